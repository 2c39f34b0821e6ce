package account

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Record is one enumerated device with the nested settings and state blobs
// parsed. The blobs arrive as JSON strings inside the JSON response; the
// fields below are the subset the engine consumes.
type Record struct {
	// Identifier uniquely names the physical device.
	Identifier string

	// ProductCode is the vendor product/SKU code (e.g. "H6159").
	ProductCode string

	// Name is the user-assigned display name.
	Name string

	// Topic is the per-device command topic from the settings blob.
	Topic string

	// RadioAddress is the short-range hardware address from the settings
	// blob, when reported. The authoritative derivation remains the device
	// identifier; this is diagnostic.
	RadioAddress string

	// LANBound reports whether the settings blob carries a LAN binding.
	// Devices without one cannot be reached through the broker.
	LANBound bool

	// Online is the last-known broker reachability, nil when the state
	// blob does not report it.
	Online *bool

	// Raw is the unparsed device record as received, passed through to
	// event consumers.
	Raw json.RawMessage
}

// listRequest is the wire shape of the device-list call.
type listRequest struct {
	Key         string `json:"key"`
	Transaction int64  `json:"transaction"`
	View        int    `json:"view"`
}

// listResponse keeps each device record raw so it can be handed to event
// consumers verbatim.
type listResponse struct {
	Devices []json.RawMessage `json:"devices"`
	Message string            `json:"message"`
	Status  int               `json:"status"`
}

// deviceRecord is the parsed shape of one raw device record.
type deviceRecord struct {
	Device     string `json:"device"`
	DeviceName string `json:"deviceName"`
	SKU        string `json:"sku"`
	DeviceExt  struct {
		DeviceSettings string `json:"deviceSettings"`
		LastDeviceData string `json:"lastDeviceData"`
	} `json:"deviceExt"`
}

// settingsBlob is the parsed settings string. Pointer fields track key
// presence: records lacking both an address and a topic describe products
// this engine cannot reach on any transport.
type settingsBlob struct {
	WifiName *string `json:"wifiName"`
	Address  *string `json:"address"`
	Topic    *string `json:"topic"`
}

// stateBlob is the parsed last-known-state string.
type stateBlob struct {
	Online *bool `json:"online"`
}

// ListDevices enumerates the devices assigned to the account.
//
// Records without an identifier or product code, and records whose settings
// blob is unusable, are skipped rather than failing the whole enumeration;
// the account may legitimately hold products outside this engine's reach.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - token: Bearer token from a prior Login
//
// Returns:
//   - []Record: Usable device records, in service order
//   - error: ErrRequestFailed when the call or the service-level status fails
func (c *Client) ListDevices(ctx context.Context, token string) ([]Record, error) {
	req := listRequest{
		Transaction: time.Now().UnixMilli(),
	}

	var res listResponse
	if err := c.post(ctx, deviceListPath, req, token, &res); err != nil {
		return nil, err
	}

	if res.Status != statusOK {
		return nil, fmt.Errorf("%w: device list status %d: %s", ErrRequestFailed, res.Status, res.Message)
	}

	records := make([]Record, 0, len(res.Devices))
	for _, raw := range res.Devices {
		rec, ok := parseRecord(raw)
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

// parseRecord extracts one Record from a raw device entry. The bool result
// reports whether the entry is usable.
func parseRecord(raw json.RawMessage) (Record, bool) {
	var rec deviceRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, false
	}
	if rec.Device == "" || rec.SKU == "" {
		return Record{}, false
	}

	var settings settingsBlob
	if err := json.Unmarshal([]byte(rec.DeviceExt.DeviceSettings), &settings); err != nil {
		return Record{}, false
	}
	if settings.Address == nil && settings.Topic == nil {
		return Record{}, false
	}

	out := Record{
		Identifier:  rec.Device,
		ProductCode: rec.SKU,
		Name:        rec.DeviceName,
		LANBound:    settings.WifiName != nil,
		Raw:         raw,
	}
	if settings.Topic != nil {
		out.Topic = *settings.Topic
	}
	if settings.Address != nil {
		out.RadioAddress = *settings.Address
	}

	// Last-known state is advisory; a malformed blob just means no hint.
	var state stateBlob
	if err := json.Unmarshal([]byte(rec.DeviceExt.LastDeviceData), &state); err == nil {
		out.Online = state.Online
	}

	return out, true
}
