package protocol

import "fmt"

// Radio frame layout. Every frame is exactly FrameLength bytes:
// marker, opcode, payload zero-padded to MaxPayload, XOR checksum.
const (
	// FrameLength is the fixed size of every radio frame.
	FrameLength = 20

	// MaxPayload is the payload capacity of one frame: FrameLength
	// minus marker, opcode, and checksum bytes.
	MaxPayload = FrameLength - 3

	// frameMarker opens every command frame.
	frameMarker = 0x33
)

// Radio opcodes.
const (
	opPower      byte = 0x01
	opBrightness byte = 0x04
	opColor      byte = 0x05
)

// Color payloads open with a mode marker selecting manual color mode,
// followed by a fixed sentinel the firmware expects before the RGB
// bytes.
var colorModePrefix = [5]byte{0x02, 0xFF, 0xFF, 0xFF, 0x01}

// EncodeFrame assembles a radio frame from an opcode and payload. The
// payload is zero-padded to MaxPayload and the final byte is the XOR of
// all preceding bytes. Payloads over MaxPayload return
// ErrPayloadTooLarge and no frame.
func EncodeFrame(opcode byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayload)
	}

	frame := make([]byte, FrameLength)
	frame[0] = frameMarker
	frame[1] = opcode
	copy(frame[2:], payload)

	var sum byte
	for _, b := range frame[:FrameLength-1] {
		sum ^= b
	}
	frame[FrameLength-1] = sum

	return frame, nil
}

// RadioEncoding returns the opcode and payload for a command's radio
// rendering. Commands without a radio form (status requests) return
// ErrNoRadioEncoding; callers check this before opening a radio link so
// that unsendable commands never cost a connection attempt.
func RadioEncoding(cmd Command) (opcode byte, payload []byte, err error) {
	switch cmd.Kind {
	case KindPower:
		val := byte(0x00)
		if cmd.On {
			val = 0x01
		}
		return opPower, []byte{val}, nil

	case KindBrightness:
		return opBrightness, []byte{cmd.Level}, nil

	case KindColor, KindColorTemperature:
		r, g, b := cmd.Color.Bytes()
		payload := make([]byte, 0, len(colorModePrefix)+3)
		payload = append(payload, colorModePrefix[:]...)
		payload = append(payload, r, g, b)
		return opColor, payload, nil

	default:
		return 0, nil, fmt.Errorf("%w: %s", ErrNoRadioEncoding, cmd.Kind)
	}
}

// EncodeRadio is the composed helper: rendering plus framing in one
// call. It returns the complete 20-byte frame for a command.
func EncodeRadio(cmd Command) ([]byte, error) {
	opcode, payload, err := RadioEncoding(cmd)
	if err != nil {
		return nil, err
	}
	return EncodeFrame(opcode, payload)
}
