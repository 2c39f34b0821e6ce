// Package history records device state transitions to InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with the
// connection-management and batching patterns used across Lumen Core.
//
// # Purpose
//
// Every device update event carries the device's post-merge state; the
// recorder turns those into time-series points so reachability gaps,
// brightness schedules, and mode switches can be inspected after the
// fact. Transport errors are recorded alongside, which is usually where
// a reachability investigation starts.
//
// # Usage
//
//	rec, err := history.Connect(cfg.InfluxDB)
//	if err != nil {
//	    // history is optional; log and continue without it
//	}
//	defer rec.Close()
//
//	rec.RecordState(dev)
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are non-blocking and
// batched; flush cadence comes from configuration.
//
// # Error Handling
//
// Write errors surface asynchronously through the SetOnError callback.
// Connection and health-check errors are returned directly.
package history
