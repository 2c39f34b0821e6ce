package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/ewanmcc/lumen-core/internal/account"
	"github.com/ewanmcc/lumen-core/internal/device"
	"github.com/ewanmcc/lumen-core/internal/transport/broker"
)

// Logger is the subset of logging methods the engine uses.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger discards everything; it stands in when no logger is
// configured.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Client is the engine. It decides per command which transport to use,
// encodes for that transport, maintains per-device connection state,
// and merges inbound pushes back into the registry.
//
// Construct with NewClient, establish the cloud path with
// EnsureBrokerSession, discover devices with RefreshDevices, then
// issue commands. All methods are safe for concurrent use.
type Client struct {
	account  AccountClient
	registry *device.Registry
	radio    RadioPool
	dial     BrokerDialer
	endpoint broker.Options
	events   Events

	// sessionMu serializes session resets against in-flight sends:
	// resets hold it exclusively, sends hold it shared. session and
	// creds change only under the exclusive lock, except that
	// ensureToken may refresh creds for REST reuse.
	sessionMu sync.RWMutex
	session   BrokerSession
	creds     *account.Session

	// ctx backs work the engine starts on its own behalf, mainly
	// push-triggered device-list refreshes, and dies with Close.
	ctx       context.Context
	ctxCancel context.CancelFunc
	closeOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// NewClient builds an engine from its collaborators. The account
// client and registry are required; the radio pool is optional for
// broker-only deployments.
func NewClient(opts Options) (*Client, error) {
	if opts.Account == nil {
		return nil, fmt.Errorf("client: account client is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("client: device registry is required")
	}

	dial := opts.DialBroker
	if dial == nil {
		dial = func(o broker.Options) (BrokerSession, error) {
			s, err := broker.Connect(o)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		account:   opts.Account,
		registry:  opts.Registry,
		radio:     opts.Radio,
		dial:      dial,
		endpoint:  opts.Broker,
		events:    opts.Events.withDefaults(),
		ctx:       ctx,
		ctxCancel: cancel,
		logger:    logger,
	}, nil
}

// Close tears the engine down: the broker session is closed, pooled
// radio links are released, and push-triggered background work is
// cancelled. Safe to call more than once; only the first call does
// anything.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.ctxCancel()

		c.sessionMu.Lock()
		if c.session != nil {
			err = c.session.Close()
			c.session = nil
		}
		c.sessionMu.Unlock()

		if c.radio != nil {
			if radioErr := c.radio.Close(); radioErr != nil && err == nil {
				err = radioErr
			}
		}

		c.logInfo("engine closed")
	})
	return err
}

// SetLogger replaces the engine's logger. Passing nil restores the
// discard logger.
func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

func (c *Client) logDebug(msg string, args ...any) { c.getLogger().Debug(msg, args...) }
func (c *Client) logInfo(msg string, args ...any)  { c.getLogger().Info(msg, args...) }
func (c *Client) logWarn(msg string, args ...any)  { c.getLogger().Warn(msg, args...) }
