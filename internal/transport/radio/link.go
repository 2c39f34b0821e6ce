package radio

import "context"

// Link is one open radio connection to a single device. Writes carry a
// fully built command frame and do not wait for a device response; the
// radio side of this protocol is write-only.
type Link interface {
	// Write sends one frame to the device.
	Write(frame []byte) error

	// Close releases the link. Best-effort; closing an already dead
	// link is not an error.
	Close() error
}

// Dialer opens radio links. A Dial call is a single connection attempt
// bounded by the context deadline; retry policy lives in the Pool, not
// here.
type Dialer interface {
	Dial(ctx context.Context, address string) (Link, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, address string) (Link, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, address string) (Link, error) {
	return f(ctx, address)
}
