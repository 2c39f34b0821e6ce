package client

import (
	"context"

	"github.com/ewanmcc/lumen-core/internal/account"
	"github.com/ewanmcc/lumen-core/internal/device"
	"github.com/ewanmcc/lumen-core/internal/transport/broker"
	"github.com/ewanmcc/lumen-core/internal/transport/radio"
)

// AccountClient is the account-service surface the engine drives:
// authentication and device enumeration. Satisfied by *account.Client.
// An interface so tests can script the boundary.
type AccountClient interface {
	// Login authenticates and returns session credentials.
	Login(ctx context.Context) (*account.Session, error)

	// ListDevices enumerates the account's devices using a bearer
	// token from Login.
	ListDevices(ctx context.Context, token string) ([]account.Record, error)

	// ClientID returns the identifier presented to both the account
	// service and the broker.
	ClientID() string
}

// BrokerSession is the live broker connection surface. Satisfied by
// *broker.Session.
type BrokerSession interface {
	// Publish sends one payload to a topic at most once.
	Publish(topic string, payload []byte) error

	// Subscribe registers a handler for an inbound topic.
	Subscribe(topic string, handler broker.MessageHandler) error

	// IsConnected reports whether the session is currently usable.
	IsConnected() bool

	// Close tears the session down.
	Close() error
}

// BrokerDialer opens a broker session from fully resolved options.
// The default wraps broker.Connect.
type BrokerDialer func(opts broker.Options) (BrokerSession, error)

// RadioPool is the short-range connection pool surface. Satisfied by
// *radio.Pool.
type RadioPool interface {
	// GetOrOpen returns the pooled link for an address, dialing a new
	// one when absent.
	GetOrOpen(ctx context.Context, address string) (radio.Link, error)

	// Drop closes and removes the pooled link for an address.
	Drop(address string)

	// Close releases every pooled link.
	Close() error
}

// Options configures a Client.
type Options struct {
	// Account is the account-service client. Required.
	Account AccountClient

	// Registry owns the device entities the engine works on. Required.
	// Its catalog decides which enumerated products become devices and
	// is fixed for the life of the client.
	Registry *device.Registry

	// Radio is the short-range connection pool. Optional; without one
	// every radio send reports a transport error through the sink.
	Radio RadioPool

	// Broker is the endpoint template for broker sessions: host, port,
	// and optional CA bundle. The identity certificate, key, and
	// client id are filled in from login at session time.
	Broker broker.Options

	// DialBroker opens broker sessions. Optional; defaults to
	// broker.Connect. Exists so tests can substitute the transport.
	DialBroker BrokerDialer

	// Events are the outward notification hooks. All optional.
	Events Events

	// Logger is an optional structured logger.
	Logger Logger
}
