package client

import (
	"context"
	"fmt"

	"github.com/ewanmcc/lumen-core/internal/account"
	"github.com/ewanmcc/lumen-core/internal/device"
	"github.com/ewanmcc/lumen-core/internal/protocol"
)

// handlePush consumes one inbound broker publication. Decoded state is
// merged into the device first, then exactly one update event fires
// carrying the raw payload, so handlers always observe the post-merge
// device. A push naming an identifier the registry has not seen
// triggers one device-list refresh and a second resolution attempt; a
// push that still resolves nowhere is dropped, because the broker
// happily delivers pushes for hardware this client will never manage.
//
// Returned errors are logged by the session wrapper and otherwise
// ignored. Malformed pushes are expected traffic, not faults.
func (c *Client) handlePush(_ string, payload []byte) error {
	update, err := protocol.DecodePush(payload)
	if err != nil {
		return err
	}

	dev, ok := c.registry.ApplyState(update.Device, update)
	if !ok {
		if err := c.refreshList(c.ctx); err != nil {
			c.logWarn("device list refresh failed", "error", err)
			return nil
		}
		dev, ok = c.registry.ApplyState(update.Device, update)
		if !ok {
			c.logDebug("push for unmanaged device dropped", "identifier", update.Device)
			return nil
		}
	}

	c.events.OnDeviceUpdate(dev, payload)
	return nil
}

// RefreshDevices synchronizes the registry with the account's device
// list, then polls every broker-capable device for live state. Devices
// seen for the first time raise OnNewDevice; known identifiers only
// refresh their display name. Radio-only devices are skipped by the
// status sweep, since the radio link cannot be polled.
func (c *Client) RefreshDevices(ctx context.Context) error {
	if err := c.refreshList(ctx); err != nil {
		return err
	}

	for _, dev := range c.registry.List() {
		if !dev.SupportsBroker {
			continue
		}
		if err := c.RequestStatus(ctx, dev.Identifier); err != nil {
			c.logWarn("status poll failed",
				"device", dev.Label(),
				"error", err,
			)
		}
	}
	return nil
}

// refreshList fetches and reconciles the enumeration list without the
// status sweep. The push path uses this directly: an unknown device in
// a push only needs resolving, and its state arrives in the push
// itself.
func (c *Client) refreshList(ctx context.Context) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	records, err := c.account.ListDevices(ctx, token)
	if err != nil {
		return fmt.Errorf("refresh device list: %w", err)
	}

	for _, rec := range records {
		dev, created := c.registry.Upsert(descriptorFromRecord(rec))
		if created {
			c.events.OnNewDevice(dev, rec.Raw)
		}
	}
	return nil
}

// ensureToken returns a bearer token valid for REST calls, logging in
// again when the cached one is missing or expired. It deliberately
// leaves the broker session alone: EnsureBrokerSession owns that
// lifecycle, and a token refreshed here satisfies the next session
// validity check.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.sessionMu.RLock()
	creds := c.creds
	c.sessionMu.RUnlock()

	if creds != nil && account.TokenValid(creds.Token) {
		return creds.Token, nil
	}

	fresh, err := c.account.Login(ctx)
	if err != nil {
		return "", err
	}

	c.sessionMu.Lock()
	c.creds = fresh
	c.sessionMu.Unlock()
	return fresh.Token, nil
}

// descriptorFromRecord maps one enumeration record onto the registry's
// input shape.
func descriptorFromRecord(rec account.Record) device.Descriptor {
	return device.Descriptor{
		Identifier:   rec.Identifier,
		ProductCode:  rec.ProductCode,
		Name:         rec.Name,
		Topic:        rec.Topic,
		Connectivity: connectivityHint(rec),
	}
}

// connectivityHint maps a record's advisory fields onto the initial
// reachability claim, mirroring the enumeration service's own rules:
// an explicit online report wins, and a record with no LAN binding
// marks a radio-only device.
func connectivityHint(rec account.Record) device.ConnectivityHint {
	switch {
	case rec.Online != nil && *rec.Online:
		return device.HintOnline
	case rec.Online != nil:
		return device.HintOffline
	case !rec.LANBound:
		return device.HintNoBroker
	default:
		return device.HintUnknown
	}
}
