package history

import "errors"

// Sentinel errors for recorder operations, checkable with errors.Is:
//
//	if errors.Is(err, history.ErrDisabled) {
//	    // run without state history
//	}
var (
	// ErrDisabled indicates the recorder is disabled in configuration.
	ErrDisabled = errors.New("history: disabled in configuration")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("history: connection failed")

	// ErrNotConnected indicates the recorder has been closed or never
	// connected.
	ErrNotConnected = errors.New("history: not connected")
)
