package device

import (
	"fmt"
	"strings"
	"time"

	"github.com/ewanmcc/lumen-core/internal/protocol"
)

// radioAddressOffset is where the short-range hardware address starts
// inside a device identifier. Identifiers carry two extra leading byte
// groups in front of the radio MAC.
const radioAddressOffset = 6

// Capability is a bit set describing what a device variant can do.
// Every variant the catalog produces includes CapPower; the richer
// flags stack on top of it.
type Capability uint8

// Individual capability flags.
const (
	// CapPower marks a device that can be switched on and off.
	CapPower Capability = 1 << iota

	// CapBrightness marks a dimmable device.
	CapBrightness

	// CapColor marks a device that can display a fixed RGB color.
	CapColor

	// CapColorTemperature marks a device that can display a white
	// color temperature.
	CapColorTemperature
)

// Variant capability sets produced by the catalog.
const (
	// VariantSwitch is a bare on/off device.
	VariantSwitch = CapPower

	// VariantDimmer adds brightness control.
	VariantDimmer = CapPower | CapBrightness

	// VariantRGB adds fixed-color control.
	VariantRGB = CapPower | CapBrightness | CapColor

	// VariantRGBTemperature is the full set: color plus white
	// temperature modes.
	VariantRGBTemperature = CapPower | CapBrightness | CapColor | CapColorTemperature
)

// Has reports whether all flags in want are present.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

// String returns a pipe-separated list of flag names for logging.
func (c Capability) String() string {
	if c == 0 {
		return "none"
	}

	var names []string
	if c.Has(CapPower) {
		names = append(names, "power")
	}
	if c.Has(CapBrightness) {
		names = append(names, "brightness")
	}
	if c.Has(CapColor) {
		names = append(names, "color")
	}
	if c.Has(CapColorTemperature) {
		names = append(names, "color-temperature")
	}
	return strings.Join(names, "|")
}

// ConnectivityHint is the initial reachability claim the enumeration
// service makes about a device, before any live traffic confirms it.
type ConnectivityHint int

// Connectivity hints.
const (
	// HintUnknown means the enumeration data said nothing usable.
	HintUnknown ConnectivityHint = iota

	// HintOnline means the device was last seen reachable through the
	// broker.
	HintOnline

	// HintOffline means the device is broker-capable but was last seen
	// unreachable.
	HintOffline

	// HintNoBroker means the device has no broker transport at all; it
	// is radio-only.
	HintNoBroker
)

// Descriptor is one device record as delivered by the enumeration
// service, reduced to the fields the registry needs.
type Descriptor struct {
	Identifier   string
	ProductCode  string
	Name         string
	Topic        string
	Connectivity ConnectivityHint
}

// Device is one smart-lighting unit known to this client. Instances are
// owned by the Registry; everything handed out of the registry is a
// clone, so holding one never races with live updates.
//
// The runtime attribute fields are pointers because "unknown" is a real
// state: a device reports nothing until its first push, and radio-only
// devices may never report at all.
type Device struct {
	// Identity, fixed at discovery.
	Identifier  string
	ProductCode string

	// Name is the user-assigned label; last enumeration wins.
	Name string

	// Topic is the device's broker command channel.
	Topic string

	// SupportsBroker is false for purely local, radio-only variants.
	SupportsBroker bool

	// Capabilities is the variant's supported command set.
	Capabilities Capability

	// Runtime attributes, nil until reported.
	Power            *bool
	Brightness       *float64
	Color            *protocol.Color
	ColorTemperature *int

	// Status tracks per-transport reachability.
	Status ConnectionStatus

	// StateUpdatedAt is when a push last touched the runtime
	// attributes, nil if none ever has.
	StateUpdatedAt *time.Time
}

// RadioAddress derives the short-range link hardware address from the
// identifier. Returns "" for identifiers too short to carry one.
func (d *Device) RadioAddress() string {
	if len(d.Identifier) <= radioAddressOffset {
		return ""
	}
	return d.Identifier[radioAddressOffset:]
}

// Label returns a human-readable name for logs and events, falling back
// to product code and identifier when the device has no assigned name.
func (d *Device) Label() string {
	if d.Name == "" {
		return fmt.Sprintf("<unnamed> %s @ %s", d.ProductCode, d.Identifier)
	}
	return d.Name
}

// Clone returns an independent copy. Pointer attributes are duplicated
// so mutation of the clone never reaches the registry's copy.
func (d *Device) Clone() *Device {
	if d == nil {
		return nil
	}

	cpy := *d

	if d.Power != nil {
		v := *d.Power
		cpy.Power = &v
	}
	if d.Brightness != nil {
		v := *d.Brightness
		cpy.Brightness = &v
	}
	if d.Color != nil {
		v := *d.Color
		cpy.Color = &v
	}
	if d.ColorTemperature != nil {
		v := *d.ColorTemperature
		cpy.ColorTemperature = &v
	}
	if d.StateUpdatedAt != nil {
		v := *d.StateUpdatedAt
		cpy.StateUpdatedAt = &v
	}

	return &cpy
}

// applyState merges a decoded push into the device. Power, brightness,
// and the broker flag only move when the push reported them; color and
// temperature are settled on every push because they are mutually
// exclusive display modes. Reports whether anything observable moved.
func (d *Device) applyState(update protocol.StateUpdate, now time.Time) bool {
	changed := false

	if update.Power != nil && (d.Power == nil || *d.Power != *update.Power) {
		v := *update.Power
		d.Power = &v
		changed = true
	}

	if update.Brightness != nil && (d.Brightness == nil || *d.Brightness != *update.Brightness) {
		v := *update.Brightness
		d.Brightness = &v
		changed = true
	}

	if (d.Color == nil) != (update.Color == nil) ||
		(d.Color != nil && update.Color != nil && *d.Color != *update.Color) {
		changed = true
	}
	if update.Color != nil {
		v := *update.Color
		d.Color = &v
	} else {
		d.Color = nil
	}

	if (d.ColorTemperature == nil) != (update.Kelvin == nil) ||
		(d.ColorTemperature != nil && update.Kelvin != nil && *d.ColorTemperature != *update.Kelvin) {
		changed = true
	}
	if update.Kelvin != nil {
		v := *update.Kelvin
		d.ColorTemperature = &v
	} else {
		d.ColorTemperature = nil
	}

	if update.Connected != nil {
		if d.Status.SetBroker(*update.Connected) {
			changed = true
		}
	}

	d.StateUpdatedAt = &now
	return changed
}
