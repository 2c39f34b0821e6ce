package client

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ewanmcc/lumen-core/internal/device"
	"github.com/ewanmcc/lumen-core/internal/protocol"
)

// transaction tags an outbound envelope: unix milliseconds as text.
func transaction() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// dispatch routes one command to a transport and sends it.
//
// The broker is attempted first when the device supports it and either
// already shows broker reachability or the command is a status request
// (polling for status is how reachability gets discovered, so it never
// waits for the flag). A successful broker send ends the dispatch;
// everything else falls through to the radio link.
//
// Transport failures are reported through the error sink and do not
// fail the call. Only validation errors come back to the caller, and
// those are raised before any transport work.
func (c *Client) dispatch(ctx context.Context, dev *device.Device, cmd protocol.Command) error {
	c.sessionMu.RLock()
	defer c.sessionMu.RUnlock()

	if dev.SupportsBroker && (cmd.Kind == protocol.KindStatus || dev.Status.Broker()) {
		if c.sendBroker(dev, cmd) {
			c.logDebug("command sent",
				"device", dev.Label(),
				"kind", cmd.Kind.String(),
				"transport", "broker",
			)
			return nil
		}
	}
	return c.sendRadio(ctx, dev, cmd)
}

// sendBroker publishes the command envelope to the device's topic and
// reports whether that worked. A failed publish goes to the error sink
// and clears the device's broker flag; the dispatcher falls back to
// radio.
func (c *Client) sendBroker(dev *device.Device, cmd protocol.Command) bool {
	if c.session == nil {
		c.events.OnError(dev, "broker send skipped", ErrNoSession)
		c.clearBrokerFlag(dev)
		return false
	}

	accountTopic := ""
	if c.creds != nil {
		accountTopic = c.creds.Topic
	}

	payload, err := protocol.EncodeEnvelope(cmd, accountTopic, transaction())
	if err != nil {
		// Every command kind has a broker form, so this means a
		// malformed Command value. Not connectivity evidence; the flag
		// stays.
		c.events.OnError(dev, "broker envelope encoding failed", err)
		return false
	}

	if err := c.session.Publish(dev.Topic, payload); err != nil {
		c.events.OnError(dev, fmt.Sprintf("broker publish failed (%s)", payload), err)
		c.clearBrokerFlag(dev)
		return false
	}
	return true
}

// clearBrokerFlag drops the device's broker reachability claim,
// emitting an update event when that moves the observable status.
func (c *Client) clearBrokerFlag(dev *device.Device) {
	if d, changed := c.registry.SetBrokerConnected(dev.Identifier, false); changed {
		c.events.OnDeviceUpdate(d, nil)
	}
}

// sendRadio encodes the command as a radio frame and writes it over
// the device's pooled link, opening one first when needed.
//
// Encoding problems surface to the caller before any transport work:
// the frame is not even built until a link is in hand. Connect
// exhaustion and write failures are transport errors, reported through
// the sink while the call returns nil. A failed write also drops the
// pooled link; the next send re-dials.
func (c *Client) sendRadio(ctx context.Context, dev *device.Device, cmd protocol.Command) error {
	opcode, payload, err := protocol.RadioEncoding(cmd)
	if err != nil {
		return err
	}
	if len(payload) > protocol.MaxPayload {
		return fmt.Errorf("%w: %s payload is %d bytes", protocol.ErrPayloadTooLarge, cmd.Kind, len(payload))
	}

	if c.radio == nil {
		c.events.OnError(dev, "radio send skipped", ErrNoRadio)
		return nil
	}

	address := dev.RadioAddress()
	link, err := c.radio.GetOrOpen(ctx, address)
	if err != nil {
		c.events.OnError(dev, "radio connect failed", err)
		return nil
	}

	if d, changed := c.registry.SetRadioConnected(dev.Identifier, true); changed {
		c.events.OnDeviceUpdate(d, nil)
	}

	frame, err := protocol.EncodeFrame(opcode, payload)
	if err != nil {
		return err
	}

	if err := link.Write(frame); err != nil {
		c.events.OnError(dev, fmt.Sprintf("radio send failed (%x)", frame), err)
		if d, changed := c.registry.SetRadioConnected(dev.Identifier, false); changed {
			c.events.OnDeviceUpdate(d, nil)
		}
		c.radio.Drop(address)
		return nil
	}

	c.logDebug("command sent",
		"device", dev.Label(),
		"kind", cmd.Kind.String(),
		"transport", "radio",
	)
	return nil
}
