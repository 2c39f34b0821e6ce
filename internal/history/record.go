package history

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/ewanmcc/lumen-core/internal/device"
)

// RecordState writes one device_state point carrying the device's
// current attributes and reachability.
//
// Unreported attributes are omitted rather than written as zero, so a
// device that has never pushed brightness produces points without a
// brightness field. Reachability fields are always present; every
// update event moves at least one of them or an attribute.
//
// The write is non-blocking; data is batched and sent asynchronously.
func (r *Recorder) RecordState(dev *device.Device) {
	if dev == nil || !r.IsConnected() {
		return
	}

	fields := map[string]any{
		"reachable": !dev.Status.Offline(),
		"broker":    dev.Status.Broker(),
		"radio":     dev.Status.Radio(),
	}
	if dev.Power != nil {
		fields["on"] = *dev.Power
	}
	if dev.Brightness != nil {
		fields["brightness"] = *dev.Brightness
	}
	if dev.Color != nil {
		cr, cg, cb := dev.Color.Bytes()
		fields["color_r"] = int64(cr)
		fields["color_g"] = int64(cg)
		fields["color_b"] = int64(cb)
	}
	if dev.ColorTemperature != nil {
		fields["color_temperature"] = int64(*dev.ColorTemperature)
	}

	point := write.NewPoint(
		"device_state",
		map[string]string{
			"device":  dev.Identifier,
			"product": dev.ProductCode,
		},
		fields,
		time.Now(),
	)

	r.writeAPI.WritePoint(point)
}

// RecordError writes one transport_errors point. The device tag is
// omitted for errors not attributable to a device.
func (r *Recorder) RecordError(identifier, message string) {
	if !r.IsConnected() {
		return
	}

	tags := map[string]string{}
	if identifier != "" {
		tags["device"] = identifier
	}

	point := write.NewPoint(
		"transport_errors",
		tags,
		map[string]any{"message": message},
		time.Now(),
	)

	r.writeAPI.WritePoint(point)
}
