package radio

import "errors"

// Domain errors for the radio transport package.
var (
	// ErrClosed is returned when an operation is attempted on a closed
	// pool or gateway.
	ErrClosed = errors.New("radio: closed")

	// ErrConnectFailed is returned when opening a link to a device
	// fails after exhausting all attempts.
	ErrConnectFailed = errors.New("radio: connect failed")

	// ErrConnectRejected is returned when the gateway refuses a link
	// request for a device.
	ErrConnectRejected = errors.New("radio: connect rejected by gateway")

	// ErrInvalidAddress is returned when a hardware address cannot be
	// parsed.
	ErrInvalidAddress = errors.New("radio: invalid hardware address")

	// ErrBadResponse is returned when the gateway answers with a frame
	// that cannot be understood.
	ErrBadResponse = errors.New("radio: bad gateway response")

	// ErrResponseTimeout is returned when the gateway does not answer a
	// link request in time.
	ErrResponseTimeout = errors.New("radio: gateway response timed out")

	// ErrFrameCorrupted is returned when an inbound gateway frame fails
	// its checksum.
	ErrFrameCorrupted = errors.New("radio: frame corrupted")
)
