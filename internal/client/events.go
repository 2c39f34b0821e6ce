package client

import (
	"encoding/json"

	"github.com/ewanmcc/lumen-core/internal/device"
)

// Events carries the engine's outward notification hooks. Every field
// is optional; nil handlers are replaced with no-ops at construction.
//
// Handlers run synchronously on the goroutine that detected the
// condition: command-driven events on the caller's goroutine,
// push-driven events on the broker delivery goroutine. They should
// return quickly and must not call back into the Client, or sends and
// session resets will deadlock behind them. Devices handed to handlers
// are private clones; holding or mutating one never races the
// registry.
type Events struct {
	// OnNewDevice fires once per device, the first time enumeration
	// sees its identifier. raw is the unparsed enumeration record.
	OnNewDevice func(dev *device.Device, raw json.RawMessage)

	// OnDeviceUpdate fires after any observable device change: an
	// applied push, or a connectivity flag moving. The device carries
	// the post-change state. raw is the push payload that caused the
	// change, or nil when the change was locally driven.
	OnDeviceUpdate func(dev *device.Device, raw []byte)

	// OnError reports transport failures that did not fail the
	// triggering call: connect exhaustion and send errors on either
	// transport. dev is nil when the failure is not tied to one
	// device. msg names the failed operation and carries the outbound
	// payload where one exists.
	OnError func(dev *device.Device, msg string, err error)
}

// withDefaults returns a copy with every nil handler replaced by a
// no-op, so firing an unconfigured event costs one empty call.
func (e Events) withDefaults() Events {
	if e.OnNewDevice == nil {
		e.OnNewDevice = func(*device.Device, json.RawMessage) {}
	}
	if e.OnDeviceUpdate == nil {
		e.OnDeviceUpdate = func(*device.Device, []byte) {}
	}
	if e.OnError == nil {
		e.OnError = func(*device.Device, string, error) {}
	}
	return e
}
