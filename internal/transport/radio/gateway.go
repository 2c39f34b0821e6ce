package radio

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// defaultBaudRate is the gateway dongle's serial rate, 8N1.
	defaultBaudRate = 115200

	// readPollInterval is the serial read timeout used to keep response
	// waits responsive to deadlines without busy-spinning.
	readPollInterval = 50 * time.Millisecond
)

// serialPort is the subset of the serial device the gateway uses.
// Narrowed for testability.
type serialPort interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// GatewayConfig holds serial gateway configuration.
type GatewayConfig struct {
	// PortPath is the serial device path, e.g. "/dev/ttyUSB0".
	PortPath string

	// BaudRate overrides the default of 115200.
	BaudRate int
}

// Gateway is a Dialer backed by a radio gateway dongle on a serial
// port. The dongle maintains the actual short-range links; this side
// speaks a small framed host protocol to it: CONNECT expects a status
// response, WRITE and DISCONNECT are fire-and-forget.
//
// One serial port serves every device link, so all exchanges are
// serialized on the port.
type Gateway struct {
	port serialPort

	// opMu serializes request/response exchanges on the shared port.
	opMu sync.Mutex

	mu     sync.Mutex
	closed bool

	logger Logger
}

// Ensure Gateway implements Dialer.
var _ Dialer = (*Gateway)(nil)

// OpenGateway opens the serial port and returns a gateway ready to
// dial device links.
func OpenGateway(cfg GatewayConfig) (*Gateway, error) {
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = defaultBaudRate
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(cfg.PortPath, mode)
	if err != nil {
		return nil, fmt.Errorf("radio: open gateway port %s: %w", cfg.PortPath, err)
	}

	if err := port.SetReadTimeout(readPollInterval); err != nil {
		port.Close()
		return nil, fmt.Errorf("radio: set gateway read timeout: %w", err)
	}

	return newGateway(port), nil
}

// newGateway wraps an already opened port. The port must have a read
// timeout set so response waits can poll.
func newGateway(port serialPort) *Gateway {
	return &Gateway{
		port:   port,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the gateway.
func (g *Gateway) SetLogger(logger Logger) {
	g.mu.Lock()
	g.logger = logger
	g.mu.Unlock()
}

// Dial asks the gateway to open a short-range link to the device and
// bind it to the control attribute. One attempt; the wait for the
// gateway's answer is bounded by the context deadline.
func (g *Gateway) Dial(ctx context.Context, address string) (Link, error) {
	if g.isClosed() {
		return nil, ErrClosed
	}

	mac, err := parseHardwareAddress(address)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(defaultAttemptTimeout)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}

	body := make([]byte, 0, hardwareAddressLen+len(controlAttribute))
	body = append(body, mac...)
	body = append(body, controlAttribute[:]...)
	frame := encodeHostFrame(opConnect, body)

	// Hold the port for the whole exchange so no other operation can
	// slot in between the request and its response.
	g.opMu.Lock()
	defer g.opMu.Unlock()

	if _, err := g.port.Write(frame); err != nil {
		return nil, fmt.Errorf("radio: gateway connect write: %w", err)
	}

	respOp, respBody, err := g.readFrame(ctx, deadline)
	if err != nil {
		return nil, err
	}

	if respOp != opConnect|opResponseBit || len(respBody) != 1 {
		return nil, fmt.Errorf("%w: op %02X, %d body bytes", ErrBadResponse, respOp, len(respBody))
	}
	if respBody[0] != statusOK {
		return nil, fmt.Errorf("%w: device %s, status %02X", ErrConnectRejected, address, respBody[0])
	}

	g.logger.Debug("gateway link established", "address", address)

	return &gatewayLink{gw: g, address: address, mac: mac}, nil
}

// readFrame accumulates bytes off the port until a flag byte closes a
// frame, then decodes it. The port's poll timeout keeps the loop
// responsive to the deadline.
func (g *Gateway) readFrame(ctx context.Context, deadline time.Time) (byte, []byte, error) {
	buf := make([]byte, 0, maxHostFrame)
	one := make([]byte, 1)

	for {
		if err := ctx.Err(); err != nil {
			return 0, nil, fmt.Errorf("%w: %w", ErrResponseTimeout, err)
		}
		if time.Now().After(deadline) {
			return 0, nil, ErrResponseTimeout
		}

		n, err := g.port.Read(one)
		if err != nil {
			return 0, nil, fmt.Errorf("radio: gateway read: %w", err)
		}
		if n == 0 {
			// Poll timeout, no data yet.
			continue
		}

		b := one[0]
		if b == hostFlag {
			if len(buf) == 0 {
				// Idle flag between frames.
				continue
			}
			return decodeHostFrame(buf)
		}

		buf = append(buf, b)
		if len(buf) > maxHostFrame {
			return 0, nil, fmt.Errorf("%w: oversized frame", ErrBadResponse)
		}
	}
}

// write sends one fire-and-forget frame to the gateway.
func (g *Gateway) write(op byte, mac net.HardwareAddr, payload []byte) error {
	if g.isClosed() {
		return ErrClosed
	}

	body := make([]byte, 0, len(mac)+len(payload))
	body = append(body, mac...)
	body = append(body, payload...)
	frame := encodeHostFrame(op, body)

	g.opMu.Lock()
	defer g.opMu.Unlock()

	if _, err := g.port.Write(frame); err != nil {
		return fmt.Errorf("radio: gateway write: %w", err)
	}
	return nil
}

// isClosed returns true if the gateway has been closed.
func (g *Gateway) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// Close closes the serial port. Links dialed through this gateway
// fail their writes afterwards. Safe to call multiple times.
func (g *Gateway) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	g.mu.Unlock()

	g.logger.Info("gateway closed")
	return g.port.Close()
}

// parseHardwareAddress parses a colon-separated device hardware
// address into its raw bytes.
func parseHardwareAddress(address string) (net.HardwareAddr, error) {
	mac, err := net.ParseMAC(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, address, err)
	}
	if len(mac) != hardwareAddressLen {
		return nil, fmt.Errorf("%w: %q: need %d bytes, got %d",
			ErrInvalidAddress, address, hardwareAddressLen, len(mac))
	}
	return mac, nil
}

// gatewayLink is one device link multiplexed over the gateway port.
type gatewayLink struct {
	gw      *Gateway
	address string
	mac     net.HardwareAddr
}

// Ensure gatewayLink implements Link.
var _ Link = (*gatewayLink)(nil)

// Write sends one command frame to the device. The device side never
// answers writes, so delivery is fire-and-forget.
func (l *gatewayLink) Write(frame []byte) error {
	return l.gw.write(opWrite, l.mac, frame)
}

// Close tells the gateway to drop the device link. Best-effort; the
// gateway reclaims dead links on its own either way.
func (l *gatewayLink) Close() error {
	return l.gw.write(opDisconnect, l.mac, nil)
}
