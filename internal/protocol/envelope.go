package protocol

import (
	"encoding/json"
	"fmt"
)

// Broker command field names. The status request reuses the power field
// name with an empty data object; the broker treats that combination as
// a state query rather than a write.
const (
	cmdTurn             = "turn"
	cmdBrightness       = "brightness"
	cmdColor            = "color"
	cmdColorTemperature = "colorTem"
)

// envelope is the outer wrapper every broker command is published in.
type envelope struct {
	Msg envelopeMsg `json:"msg"`
}

type envelopeMsg struct {
	AccountTopic string `json:"accountTopic"`
	Cmd          string `json:"cmd"`
	CmdVersion   int    `json:"cmdVersion"`
	Data         any    `json:"data"`
	Transaction  string `json:"transaction"`
	Type         int    `json:"type"`
}

// Per-command data payload shapes.
type (
	turnData struct {
		Val bool `json:"val"`
	}

	brightnessData struct {
		Val int `json:"val"`
	}

	colorData struct {
		Red   int `json:"red"`
		Green int `json:"green"`
		Blue  int `json:"blue"`
	}

	colorTemData struct {
		Color  colorData `json:"color"`
		Kelvin int       `json:"colorTemInKelvin"`
	}
)

// EncodeEnvelope renders a command as the JSON envelope published to a
// device's broker topic. accountTopic identifies the session's reply
// topic and transaction tags the request for tracing; both are opaque
// to this package.
func EncodeEnvelope(cmd Command, accountTopic, transaction string) ([]byte, error) {
	field, data, err := brokerRendering(cmd)
	if err != nil {
		return nil, err
	}

	env := envelope{
		Msg: envelopeMsg{
			AccountTopic: accountTopic,
			Cmd:          field,
			CmdVersion:   0,
			Data:         data,
			Transaction:  transaction,
			Type:         1,
		},
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", field, err)
	}
	return payload, nil
}

// brokerRendering maps a command to its broker field name and data
// payload. Every command kind has a broker form.
func brokerRendering(cmd Command) (string, any, error) {
	switch cmd.Kind {
	case KindStatus:
		return cmdTurn, struct{}{}, nil

	case KindPower:
		return cmdTurn, turnData{Val: cmd.On}, nil

	case KindBrightness:
		return cmdBrightness, brightnessData{Val: int(cmd.Level)}, nil

	case KindColor:
		r, g, b := cmd.Color.Bytes()
		return cmdColor, colorData{Red: int(r), Green: int(g), Blue: int(b)}, nil

	case KindColorTemperature:
		r, g, b := cmd.Color.Bytes()
		return cmdColorTemperature, colorTemData{
			Color:  colorData{Red: int(r), Green: int(g), Blue: int(b)},
			Kelvin: cmd.Kelvin,
		}, nil

	default:
		return "", nil, fmt.Errorf("protocol: unknown command kind %d", int(cmd.Kind))
	}
}
