package protocol

import "errors"

// Package-level sentinel errors. Callers match them with errors.Is to
// distinguish caller mistakes (oversize payload, missing encoding) from
// malformed inbound traffic.
//
// Example:
//
//	frame, err := protocol.EncodeFrame(op, payload)
//	if errors.Is(err, protocol.ErrPayloadTooLarge) {
//	    // reject the command, nothing was sent
//	}
var (
	// ErrPayloadTooLarge is returned when a radio payload exceeds the
	// 17 bytes that fit in a frame.
	ErrPayloadTooLarge = errors.New("protocol: radio payload too large")

	// ErrNoRadioEncoding is returned for commands that only exist on
	// the broker path, such as status requests.
	ErrNoRadioEncoding = errors.New("protocol: command has no radio encoding")

	// ErrBadPush is returned when an inbound broker push cannot be
	// parsed as a state notification.
	ErrBadPush = errors.New("protocol: malformed push payload")

	// ErrNoDevice is returned when a push parses but names no device,
	// leaving nothing to apply it to.
	ErrNoDevice = errors.New("protocol: push missing device identifier")
)
