package client

import (
	"context"
	"fmt"

	"github.com/ewanmcc/lumen-core/internal/device"
	"github.com/ewanmcc/lumen-core/internal/protocol"
)

// SetPower switches the device on or off. A device already cached in
// the requested state is left alone; nothing is sent. The cache fills
// from pushes, so a device that has never reported always gets the
// send.
func (c *Client) SetPower(ctx context.Context, identifier string, on bool) error {
	dev, err := c.resolve(identifier)
	if err != nil {
		return err
	}
	if err := requireCapability(dev, device.CapPower); err != nil {
		return err
	}
	if dev.Power != nil && *dev.Power == on {
		return nil
	}
	return c.dispatch(ctx, dev, protocol.PowerCommand(on))
}

// Toggle inverts the device's power state. A device whose power state
// has never been reported is left alone: there is nothing to invert.
func (c *Client) Toggle(ctx context.Context, identifier string) error {
	dev, err := c.resolve(identifier)
	if err != nil {
		return err
	}
	if dev.Power == nil {
		return nil
	}
	return c.SetPower(ctx, identifier, !*dev.Power)
}

// SetBrightness sets the brightness from a normalized 0.0 to 1.0
// level. Out-of-range levels clamp to the nearest bound, the way the
// devices themselves treat the wire byte. The send is skipped when the
// cached brightness already rounds to the same byte.
func (c *Client) SetBrightness(ctx context.Context, identifier string, level float64) error {
	dev, err := c.resolve(identifier)
	if err != nil {
		return err
	}
	if err := requireCapability(dev, device.CapBrightness); err != nil {
		return err
	}

	target := levelByte(level)
	if dev.Brightness != nil && levelByte(*dev.Brightness) == target {
		return nil
	}
	return c.dispatch(ctx, dev, protocol.BrightnessCommand(target))
}

// SetColor puts the device in fixed-color mode. Channels must be
// normalized to 0.0 through 1.0; anything else is rejected with
// ErrColorOutOfRange before any transport work. The send is skipped
// when the cached color already rounds to the same wire bytes.
func (c *Client) SetColor(ctx context.Context, identifier string, color protocol.Color) error {
	dev, err := c.resolve(identifier)
	if err != nil {
		return err
	}
	if err := requireCapability(dev, device.CapColor); err != nil {
		return err
	}

	if !validChannel(color.R) || !validChannel(color.G) || !validChannel(color.B) {
		return fmt.Errorf("%w: (%v, %v, %v)", ErrColorOutOfRange, color.R, color.G, color.B)
	}
	if dev.Color != nil && sameColor(*dev.Color, color) {
		return nil
	}
	return c.dispatch(ctx, dev, protocol.ColorCommand(color))
}

// SetColorTemperature puts the device in white-temperature mode.
// Kelvin clamps to the supported 2000-9000 band; zero and negative
// values mean "not in temperature mode" and are ignored. The RGB
// rendering of the temperature rides along in the command. The send is
// skipped when the cached temperature already matches.
func (c *Client) SetColorTemperature(ctx context.Context, identifier string, kelvin int) error {
	dev, err := c.resolve(identifier)
	if err != nil {
		return err
	}
	if err := requireCapability(dev, device.CapColorTemperature); err != nil {
		return err
	}

	if kelvin <= 0 {
		return nil
	}
	kelvin = boundKelvin(kelvin)
	if dev.ColorTemperature != nil && *dev.ColorTemperature == kelvin {
		return nil
	}
	return c.dispatch(ctx, dev, protocol.ColorTemperatureCommand(kelvin, kelvinColor(kelvin)))
}

// RequestStatus asks the device to publish its full state. Status
// requests always ride the broker, even when reachability is unknown;
// that is the discovery mechanism. The radio link has no read path, so
// for radio-only devices (and broker failures falling through) the
// call returns the codec's validation error.
func (c *Client) RequestStatus(ctx context.Context, identifier string) error {
	dev, err := c.resolve(identifier)
	if err != nil {
		return err
	}
	return c.dispatch(ctx, dev, protocol.StatusRequest())
}

// resolve returns the registry's current view of a device.
func (c *Client) resolve(identifier string) (*device.Device, error) {
	dev, ok := c.registry.Get(identifier)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, identifier)
	}
	return dev, nil
}

// requireCapability rejects commands the device variant cannot act on.
func requireCapability(dev *device.Device, want device.Capability) error {
	if !dev.Capabilities.Has(want) {
		return fmt.Errorf("%w: %s has no %s control", ErrNotSupported, dev.Label(), want)
	}
	return nil
}

// levelByte converts a normalized brightness to its wire byte,
// clamping out-of-range input rather than wrapping.
func levelByte(level float64) uint8 {
	if level <= 0 {
		return 0
	}
	if level >= 1 {
		return 255
	}
	return uint8(level*255.0 + 0.5)
}

// validChannel reports whether a color channel is normalized.
func validChannel(v float64) bool {
	return v >= 0 && v <= 1
}

// sameColor compares two colors at wire precision: equal when all
// three channels round to the same 0-255 byte.
func sameColor(a, b protocol.Color) bool {
	ar, ag, ab := a.Bytes()
	br, bg, bb := b.Bytes()
	return ar == br && ag == bg && ab == bb
}

// boundKelvin clamps a positive kelvin to the supported band.
func boundKelvin(kelvin int) int {
	if kelvin < protocol.MinKelvin {
		return protocol.MinKelvin
	}
	if kelvin > protocol.MaxKelvin {
		return protocol.MaxKelvin
	}
	return kelvin
}
