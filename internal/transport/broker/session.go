package broker

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Session wraps paho.mqtt.golang with the fixed connection policy the
// upstream broker expects.
//
// It provides connection management, message publishing, subscription
// handling, and automatic reconnection with exponential backoff.
//
// A Session is bound to the identity certificate it connected with. When
// the account re-authenticates, callers must Close the old session and
// Connect a new one; the broker drops stale identities on its side.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Subscriptions are automatically restored on reconnection.
type Session struct {
	client  pahomqtt.Client
	options *pahomqtt.ClientOptions

	// subscriptions tracks active subscriptions for re-subscription on reconnect.
	subscriptions map[string]subscription
	subMu         sync.RWMutex

	// connected tracks current connection state.
	connected bool
	connMu    sync.RWMutex

	// Callbacks for connection events (optional, set via SetOnConnect/SetOnDisconnect).
	onConnect    func()
	onDisconnect func(err error)
	callbackMu   sync.RWMutex

	// logger for error/panic logging (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// subscription holds subscription details for re-subscription on reconnect.
type subscription struct {
	topic   string
	handler MessageHandler
}

// MessageHandler is the callback signature for received messages.
//
// Handlers are invoked in separate goroutines by the paho library.
// They should not block for extended periods.
//
// Parameters:
//   - topic: The topic the message was received on (wildcards expanded)
//   - payload: The raw message payload (typically JSON)
//
// Returns:
//   - error: Logged but does not affect message acknowledgment
type MessageHandler func(topic string, payload []byte) error

// Connect establishes a mutual-TLS connection to the broker.
//
// It performs the following setup:
//  1. Loads the identity certificate and optional CA bundle
//  2. Builds connection options (ssl:// URL, fixed reconnect policy)
//  3. Attempts initial connection with timeout
//
// Parameters:
//   - opts: Session options including the identity certificate paths
//
// Returns:
//   - *Session: Connected session ready for use
//   - error: ErrTLSConfig if the certificate cannot be loaded, or
//     ErrConnectionFailed if the connection does not come up in time
func Connect(opts Options) (*Session, error) {
	tlsConfig, err := newTLSConfig(opts)
	if err != nil {
		return nil, err
	}

	po := buildClientOptions(opts, tlsConfig)

	s := &Session{
		options:       po,
		subscriptions: make(map[string]subscription),
	}

	// Set up connection callbacks
	po.SetOnConnectHandler(func(_ pahomqtt.Client) {
		s.handleConnect()
	})

	po.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		s.handleDisconnect(err)
	})

	// Create and connect
	s.client = pahomqtt.NewClient(po)
	token := s.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		// ConnectRetry keeps dialling in the background; stop it so an
		// abandoned session does not come up behind the caller's back.
		s.client.Disconnect(0)
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// Set connected state immediately after successful connection.
	// The OnConnectHandler callback runs asynchronously and may not have
	// executed yet, so we set it here to ensure IsConnected() returns true.
	s.connMu.Lock()
	s.connected = true
	s.connMu.Unlock()

	return s, nil
}

// handleConnect is called when the connection is established.
func (s *Session) handleConnect() {
	s.connMu.Lock()
	s.connected = true
	s.connMu.Unlock()

	// Restore subscriptions
	s.restoreSubscriptions()

	// Notify callback if set
	s.callbackMu.RLock()
	callback := s.onConnect
	s.callbackMu.RUnlock()
	if callback != nil {
		callback()
	}
}

// handleDisconnect is called when the connection is lost.
func (s *Session) handleDisconnect(err error) {
	s.connMu.Lock()
	s.connected = false
	s.connMu.Unlock()

	// Notify callback if set
	s.callbackMu.RLock()
	callback := s.onDisconnect
	s.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// restoreSubscriptions re-subscribes to all tracked topics after reconnect.
func (s *Session) restoreSubscriptions() {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for _, sub := range s.subscriptions {
		// Re-subscribe (ignore errors during reconnection)
		s.client.Subscribe(sub.topic, sessionQoS, s.wrapHandler(sub.handler))
	}
}

// Close gracefully disconnects from the broker.
//
// Pending operations are given a short quiesce period before the
// connection is torn down. Closing an already-closed session is a no-op.
//
// Returns:
//   - error: Always nil; the signature matches io.Closer
func (s *Session) Close() error {
	if s.client == nil {
		return nil
	}

	// Disconnect with quiesce period for pending operations
	s.client.Disconnect(defaultDisconnectQuiesce)

	s.connMu.Lock()
	s.connected = false
	s.connMu.Unlock()

	return nil
}

// HealthCheck verifies the broker connection is alive and functioning.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Session) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("broker health check: %w", ctx.Err())
	default:
	}

	if !s.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// IsConnected returns the current connection state.
//
// Note: This reflects the last known state. For reliability,
// use HealthCheck which can perform an active test.
func (s *Session) IsConnected() bool {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return s.connected && s.client.IsConnected()
}

// SetOnConnect sets a callback to be invoked when connection is established.
// This is called on initial connect and on every reconnect.
func (s *Session) SetOnConnect(callback func()) {
	s.callbackMu.Lock()
	s.onConnect = callback
	s.callbackMu.Unlock()
}

// SetOnDisconnect sets a callback to be invoked when connection is lost.
// The error parameter describes why the connection was lost.
func (s *Session) SetOnDisconnect(callback func(err error)) {
	s.callbackMu.Lock()
	s.onDisconnect = callback
	s.callbackMu.Unlock()
}

// SetLogger sets a logger for error and panic logging.
// If not set, errors in handlers are silently ignored.
func (s *Session) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

// getLogger returns the current logger (may be nil).
func (s *Session) getLogger() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

// wrapHandler wraps a MessageHandler with panic recovery and optional logging.
func (s *Session) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := s.getLogger(); logger != nil {
					logger.Error("broker handler panic recovered",
						"topic", msg.Topic(),
						"panic", r,
					)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := s.getLogger(); logger != nil {
				logger.Warn("broker handler returned error",
					"topic", msg.Topic(),
					"error", err,
				)
			}
		}
	}
}
