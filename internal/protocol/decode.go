package protocol

import (
	"encoding/json"
	"fmt"
)

// Color temperature bounds in kelvin. Pushes outside this range are
// clamped; the reserved zero value means the device is not in
// temperature mode.
const (
	MinKelvin = 2000
	MaxKelvin = 9000
)

// StateUpdate is one decoded broker push, addressed by device
// identifier. Power, Brightness, and Connected are nil when the push
// did not carry them, meaning the stored value stands. Color and Kelvin
// are different: a device displays either a fixed color or a white
// temperature, so every push settles both, and nil means cleared.
type StateUpdate struct {
	// Device is the identifier of the device the push describes.
	Device string

	// Power is the reported on/off state, nil if not reported.
	Power *bool

	// Brightness is the reported level normalized to [0.0, 1.0], nil
	// if not reported.
	Brightness *float64

	// Connected is the device's own reachability claim, nil if not
	// reported.
	Connected *bool

	// Color is the fixed color the device is showing, nil when it is
	// in temperature mode or reported nothing.
	Color *Color

	// Kelvin is the white temperature the device is showing, nil when
	// it is in color mode or reported nothing.
	Kelvin *int
}

// pushMessage is the outer shape of an inbound broker publication. Only
// the state block matters; everything else is routing metadata.
type pushMessage struct {
	State *pushState `json:"state"`
}

type pushState struct {
	Device     string     `json:"device"`
	OnOff      *float64   `json:"onOff"`
	Brightness *float64   `json:"brightness"`
	Color      *pushColor `json:"color"`
	Kelvin     *float64   `json:"colorTemInKelvin"`

	// Connected arrives as a bool from some firmware generations and
	// as the strings "true"/"false" from others.
	Connected any `json:"connected"`
}

type pushColor struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// DecodePush parses an inbound broker payload into a StateUpdate.
// Payloads that are not JSON, carry no state block, or name no device
// return an error; callers on the hot path drop those without surfacing
// them since the broker relays traffic for other account holders'
// firmware versions too.
func DecodePush(payload []byte) (StateUpdate, error) {
	var msg pushMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return StateUpdate{}, fmt.Errorf("%w: %v", ErrBadPush, err)
	}
	if msg.State == nil {
		return StateUpdate{}, fmt.Errorf("%w: no state block", ErrBadPush)
	}
	if msg.State.Device == "" {
		return StateUpdate{}, ErrNoDevice
	}

	st := msg.State
	update := StateUpdate{Device: st.Device}

	if st.OnOff != nil {
		on := *st.OnOff == 1
		update.Power = &on
	}

	if st.Brightness != nil {
		level := clampUnit(*st.Brightness / 255.0)
		update.Brightness = &level
	}

	if connected, ok := decodeConnected(st.Connected); ok {
		update.Connected = &connected
	}

	if st.Color != nil {
		c := Color{
			R: clampUnit(st.Color.R / 255.0),
			G: clampUnit(st.Color.G / 255.0),
			B: clampUnit(st.Color.B / 255.0),
		}
		update.Color = &c
	}

	if st.Kelvin != nil {
		if kelvin := clampKelvin(int(*st.Kelvin)); kelvin != 0 {
			update.Kelvin = &kelvin
		}
	}

	return update, nil
}

// decodeConnected normalizes the two connectivity encodings seen in the
// wild. Unrecognized shapes read as not reported.
func decodeConnected(raw any) (value, ok bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		return v == "true", true
	default:
		return false, false
	}
}

// clampKelvin bounds nonzero temperatures to the supported range. Zero
// is the reserved "not in temperature mode" value and passes through so
// the caller can treat it as cleared.
func clampKelvin(kelvin int) int {
	if kelvin == 0 {
		return 0
	}
	if kelvin < MinKelvin {
		return MinKelvin
	}
	if kelvin > MaxKelvin {
		return MaxKelvin
	}
	return kelvin
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
