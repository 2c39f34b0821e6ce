package client

import (
	"math"

	"github.com/ewanmcc/lumen-core/internal/protocol"
)

// Blackbody curve bounds. The approximation is defined for 1000K to
// 40000K; device temperatures sit in a narrower band, but the helper
// clamps rather than assumes.
const (
	curveMinKelvin = 1000
	curveMaxKelvin = 40000
)

// kelvinColor renders a white color temperature as the RGB triple that
// rides along with every temperature command, using Tanner Helland's
// blackbody curve approximation. Channels are rounded to whole 0-255
// steps before normalizing, so the wire bytes are exactly the curve's
// output.
func kelvinColor(kelvin int) protocol.Color {
	if kelvin < curveMinKelvin {
		kelvin = curveMinKelvin
	} else if kelvin > curveMaxKelvin {
		kelvin = curveMaxKelvin
	}
	t := float64(kelvin) / 100.0

	var red, green, blue float64

	if t <= 66 {
		red = 255
	} else {
		red = clampChannel(329.698727446 * math.Pow(t-60, -0.1332047592))
	}

	if t <= 66 {
		green = clampChannel(99.4708025861*math.Log(t) - 161.1195681661)
	} else {
		green = clampChannel(288.1221695283 * math.Pow(t-60, -0.0755148492))
	}

	switch {
	case t >= 66:
		blue = 255
	case t <= 19:
		blue = 0
	default:
		blue = clampChannel(138.5177312231*math.Log(t-10) - 305.0447927307)
	}

	return protocol.ColorFromBytes(
		uint8(math.Round(red)),
		uint8(math.Round(green)),
		uint8(math.Round(blue)),
	)
}

// clampChannel bounds one channel to the representable 0-255 range.
func clampChannel(v float64) float64 {
	return math.Min(math.Max(v, 0), 255)
}
