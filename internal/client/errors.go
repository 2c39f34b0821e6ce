package client

import "errors"

// Sentinel errors for engine operations. Use errors.Is() to check for
// them.
//
// Example:
//
//	if errors.Is(err, client.ErrUnknownDevice) {
//		// refresh the device list and retry
//	}
var (
	// ErrUnknownDevice is returned when a command names an identifier
	// the registry has never seen.
	ErrUnknownDevice = errors.New("client: unknown device")

	// ErrNotSupported is returned when a command needs a capability
	// the device variant does not carry.
	ErrNotSupported = errors.New("client: command not supported by device")

	// ErrColorOutOfRange is returned for color inputs with a channel
	// outside the normalized 0.0 to 1.0 range.
	ErrColorOutOfRange = errors.New("client: color channel out of range")

	// ErrNoSession marks a broker send attempted before
	// EnsureBrokerSession established a connection. It travels through
	// the error event sink, never a return value; the dispatch falls
	// back to the radio link.
	ErrNoSession = errors.New("client: broker session not established")

	// ErrNoRadio marks a radio send on a client built without a radio
	// pool. It travels through the error event sink.
	ErrNoRadio = errors.New("client: radio transport not configured")
)
