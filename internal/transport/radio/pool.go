package radio

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Default connection policy for radio links.
const (
	// defaultConnectAttempts is how many times a link open is tried
	// before giving up.
	defaultConnectAttempts = 10

	// defaultAttemptTimeout bounds one individual connect attempt. The
	// overall open loop has no deadline of its own; it runs the
	// attempts to exhaustion.
	defaultAttemptTimeout = 2 * time.Second
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// PoolOptions configures link retry policy.
type PoolOptions struct {
	// Attempts is the number of connect attempts per open.
	// Default: 10.
	Attempts int

	// AttemptTimeout bounds each individual connect attempt.
	// Default: 2 seconds.
	AttemptTimeout time.Duration
}

// Pool caches one open radio link per device hardware address. Links
// are opened lazily on first use and stay pooled until a send failure
// drops them or the pool closes.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Concurrent opens of the same address coalesce: one dial runs,
//     the others wait for its outcome.
type Pool struct {
	dialer         Dialer
	attempts       int
	attemptTimeout time.Duration

	mu       sync.Mutex
	links    map[string]Link
	inflight map[string]chan struct{}
	closed   bool

	logger Logger
}

// NewPool creates a pool that opens links through the given dialer.
func NewPool(dialer Dialer, opts PoolOptions) *Pool {
	if opts.Attempts <= 0 {
		opts.Attempts = defaultConnectAttempts
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = defaultAttemptTimeout
	}

	return &Pool{
		dialer:         dialer,
		attempts:       opts.Attempts,
		attemptTimeout: opts.AttemptTimeout,
		links:          make(map[string]Link),
		inflight:       make(map[string]chan struct{}),
		logger:         noopLogger{},
	}
}

// SetLogger sets the logger for the pool.
func (p *Pool) SetLogger(logger Logger) {
	p.mu.Lock()
	p.logger = logger
	p.mu.Unlock()
}

// GetOrOpen returns the pooled link for the address, opening one if
// none is cached. Opening tries up to the configured attempt count,
// each attempt bounded by its own timeout, and returns the last
// failure wrapped in ErrConnectFailed when all attempts are spent.
func (p *Pool) GetOrOpen(ctx context.Context, address string) (Link, error) {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, ErrClosed
		}
		if link, ok := p.links[address]; ok {
			p.mu.Unlock()
			return link, nil
		}
		if pending, ok := p.inflight[address]; ok {
			p.mu.Unlock()
			// Another caller is already dialing this address. Wait for
			// its outcome, then re-check the cache.
			select {
			case <-pending:
				continue
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ErrConnectFailed, ctx.Err())
			}
		}

		pending := make(chan struct{})
		p.inflight[address] = pending
		p.mu.Unlock()

		link, err := p.open(ctx, address)

		p.mu.Lock()
		delete(p.inflight, address)
		if err == nil {
			if p.closed {
				p.mu.Unlock()
				close(pending)
				link.Close()
				return nil, ErrClosed
			}
			p.links[address] = link
		}
		p.mu.Unlock()
		close(pending)

		return link, err
	}
}

// open runs the connect attempt loop for one address.
func (p *Pool) open(ctx context.Context, address string) (Link, error) {
	var lastErr error

	for attempt := 1; attempt <= p.attempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrConnectFailed, ctx.Err())
		default:
		}

		attemptCtx, cancel := context.WithTimeout(ctx, p.attemptTimeout)
		link, err := p.dialer.Dial(attemptCtx, address)
		cancel()

		if err == nil {
			p.logger.Debug("radio link opened",
				"address", address,
				"attempt", attempt,
			)
			return link, nil
		}

		lastErr = err
		p.logger.Debug("radio connect attempt failed",
			"address", address,
			"attempt", attempt,
			"error", err,
		)
	}

	return nil, fmt.Errorf("%w: %d attempts to %s: %w", ErrConnectFailed, p.attempts, address, lastErr)
}

// Drop removes the pooled link for the address and closes it,
// best-effort. Dropping an address with no pooled link is a no-op.
func (p *Pool) Drop(address string) {
	p.mu.Lock()
	link, ok := p.links[address]
	delete(p.links, address)
	p.mu.Unlock()

	if ok {
		link.Close()
		p.logger.Debug("radio link dropped", "address", address)
	}
}

// Has reports whether a link is currently pooled for the address.
func (p *Pool) Has(address string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.links[address]
	return ok
}

// Size returns the number of pooled links.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.links)
}

// Close closes every pooled link and rejects further opens. Safe to
// call multiple times.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	links := p.links
	p.links = make(map[string]Link)
	p.mu.Unlock()

	for _, link := range links {
		link.Close()
	}
	return nil
}
