package protocol

import "fmt"

// Kind identifies what a Command asks a device to do.
type Kind int

// Command kinds, one per controllable attribute plus the broker-only
// status request.
const (
	// KindStatus asks the device to publish its full state. It has no
	// radio rendering.
	KindStatus Kind = iota

	// KindPower switches the device on or off.
	KindPower

	// KindBrightness sets the brightness level.
	KindBrightness

	// KindColor sets a fixed RGB color.
	KindColor

	// KindColorTemperature sets a white color temperature in kelvin.
	KindColorTemperature
)

// String returns a human-readable name for logging.
func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindPower:
		return "power"
	case KindBrightness:
		return "brightness"
	case KindColor:
		return "color"
	case KindColorTemperature:
		return "color-temperature"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Color is a normalized RGB triple with each channel in [0.0, 1.0].
// It is the unit devices report state in; the wire encodings convert
// to 0-255 channel bytes at the edge.
type Color struct {
	R float64
	G float64
	B float64
}

// ColorFromBytes converts 0-255 channel bytes into a normalized Color.
func ColorFromBytes(r, g, b uint8) Color {
	return Color{
		R: float64(r) / 255.0,
		G: float64(g) / 255.0,
		B: float64(b) / 255.0,
	}
}

// Bytes converts the normalized channels back to 0-255 wire bytes.
// Out-of-range channels are clamped rather than wrapped.
func (c Color) Bytes() (r, g, b uint8) {
	return channelByte(c.R), channelByte(c.G), channelByte(c.B)
}

func channelByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255.0 + 0.5)
}

// Command is one device instruction, independent of transport. Only
// the fields relevant to the Kind are meaningful; constructors below
// populate them correctly.
type Command struct {
	Kind Kind

	// On is the target power state for KindPower.
	On bool

	// Level is the raw brightness byte (0-255) for KindBrightness.
	Level uint8

	// Color is the target color for KindColor, or the RGB rendering of
	// the target temperature for KindColorTemperature.
	Color Color

	// Kelvin is the target temperature for KindColorTemperature.
	Kelvin int
}

// StatusRequest builds the broker-only command that asks a device to
// publish its current state.
func StatusRequest() Command {
	return Command{Kind: KindStatus}
}

// PowerCommand builds a power on/off command.
func PowerCommand(on bool) Command {
	return Command{Kind: KindPower, On: on}
}

// BrightnessCommand builds a brightness command from a raw 0-255 level.
func BrightnessCommand(level uint8) Command {
	return Command{Kind: KindBrightness, Level: level}
}

// ColorCommand builds a fixed-color command.
func ColorCommand(c Color) Command {
	return Command{Kind: KindColor, Color: c}
}

// ColorTemperatureCommand builds a color temperature command. The RGB
// rendering of the temperature rides along because both the radio frame
// and the broker envelope carry it next to the kelvin value.
func ColorTemperatureCommand(kelvin int, rendered Color) Command {
	return Command{Kind: KindColorTemperature, Kelvin: kelvin, Color: rendered}
}
