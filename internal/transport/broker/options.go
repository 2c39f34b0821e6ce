package broker

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Connection policy constants. The upstream broker dictates these values;
// they are deliberately not user-tunable.
const (
	// defaultConnectTimeout is the window allowed for each connect attempt.
	defaultConnectTimeout = 20 * time.Second

	// defaultPublishTimeout is the maximum time to wait for a publish to
	// reach the network layer.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// reconnectInitialDelay is the first retry delay after a lost connection.
	reconnectInitialDelay = 1 * time.Second

	// reconnectMaxDelay caps the exponential reconnect backoff.
	reconnectMaxDelay = 32 * time.Second

	// sessionQoS is the delivery level for every publish and subscription.
	// The upstream broker accepts at-most-once only.
	sessionQoS = 0

	// tlsMinVersion is the minimum TLS version for broker connections.
	tlsMinVersion = tls.VersionTLS12
)

// Options configures a broker session.
//
// The certificate pair is the per-account identity issued at login; the
// broker authenticates the session from it, so there is no username or
// password.
type Options struct {
	// Host is the broker hostname.
	Host string

	// Port is the broker TLS port (typically 8883).
	Port int

	// ClientID identifies this session to the broker. Sessions sharing a
	// client ID evict each other, so callers should derive a fresh one per
	// process (see account.NewClientID).
	ClientID string

	// CertFile and KeyFile are paths to the PEM-encoded identity
	// certificate and private key presented during the TLS handshake.
	CertFile string
	KeyFile  string

	// CAFile is an optional PEM bundle used to verify the broker
	// certificate. When empty the host's root CA set is used.
	CAFile string
}

// newTLSConfig loads the identity keypair and optional CA bundle into a
// TLS configuration for the broker connection.
func newTLSConfig(opts Options) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(opts.CertFile, opts.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("%w: load identity keypair: %w", ErrTLSConfig, err)
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tlsMinVersion,
	}

	if opts.CAFile != "" {
		pemBytes, err := os.ReadFile(opts.CAFile)
		if err != nil {
			return nil, fmt.Errorf("%w: read CA bundle: %w", ErrTLSConfig, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pemBytes) {
			return nil, fmt.Errorf("%w: no certificates in CA bundle %s", ErrTLSConfig, opts.CAFile)
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}

// buildClientOptions creates paho MQTT options from session options.
//
// This configures:
//   - Broker URL (always ssl://, the broker has no plaintext listener)
//   - Client ID for identification
//   - Mutual-TLS identity certificate
//   - Auto-reconnect with exponential backoff (fixed 1s-32s policy)
//   - Clean session mode
func buildClientOptions(opts Options, tlsConfig *tls.Config) *pahomqtt.ClientOptions {
	po := pahomqtt.NewClientOptions()

	brokerURL := fmt.Sprintf("ssl://%s:%d", opts.Host, opts.Port)
	po.AddBroker(brokerURL)

	// Client identification
	po.SetClientID(opts.ClientID)

	// Identity certificate. The broker scopes pushes to the account the
	// certificate was issued for.
	po.SetTLSConfig(tlsConfig)

	// Clean session - broker state is invalidated on re-authentication
	// anyway, so nothing useful would survive a persistent session.
	po.SetCleanSession(true)

	// Auto-reconnect with exponential backoff
	po.SetAutoReconnect(true)
	po.SetConnectRetry(true)
	po.SetConnectRetryInterval(reconnectInitialDelay)
	po.SetMaxReconnectInterval(reconnectMaxDelay)

	// Connection timeout
	po.SetConnectTimeout(defaultConnectTimeout)

	// Keepalive - broker sends PINGs to detect dead connections
	po.SetKeepAlive(defaultKeepAlive)

	return po
}
