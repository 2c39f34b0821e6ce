package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ewanmcc/lumen-core/internal/account"
	"github.com/ewanmcc/lumen-core/internal/device"
	"github.com/ewanmcc/lumen-core/internal/transport/broker"
)

// Shared identities for the engine tests. The radio address derives
// from the identifier by dropping the first three octets.
const (
	testIdentifier = "AA:BB:CC:DD:EE:FF:11:22"
	testTopic      = "GD/deskLightTopic1234"
	testPushTopic  = "GA/accountTopic5678"
)

// mintToken signs a JWT carrying the given expiry. Zero means no
// expiry claim; only structural validity matters to the engine.
func mintToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()

	claims := jwt.RegisteredClaims{}
	if !expiresAt.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return token
}

// testContext returns a context canceled when the test ends. It stands
// in for (*testing.T).Context, which requires a newer Go toolchain.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// fakeAccount scripts the account-service boundary.
type fakeAccount struct {
	mu         sync.Mutex
	session    account.Session
	loginErr   error
	records    []account.Record
	listErr    error
	loginCalls int
	listCalls  int
}

func (f *fakeAccount) Login(context.Context) (*account.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	s := f.session
	return &s, nil
}

func (f *fakeAccount) ListDevices(context.Context, string) ([]account.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.records, nil
}

func (f *fakeAccount) ClientID() string { return "0123456789abcdef0123456789abcdef" }

func (f *fakeAccount) setToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session.Token = token
}

func (f *fakeAccount) setRecords(records []account.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
}

func (f *fakeAccount) logins() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls
}

func (f *fakeAccount) lists() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

// publishedMsg is one captured broker publish.
type publishedMsg struct {
	topic   string
	payload []byte
}

// fakeSession implements BrokerSession in memory. Publish attempts are
// counted even when scripted to fail.
type fakeSession struct {
	mu           sync.Mutex
	connected    bool
	publishErr   error
	subscribeErr error
	attempts     int
	published    []publishedMsg
	handlers     map[string]broker.MessageHandler
	closeCalls   int
	onSubscribe  func(topic string)
}

func (s *fakeSession) Publish(topic string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.publishErr != nil {
		return s.publishErr
	}
	s.published = append(s.published, publishedMsg{topic: topic, payload: append([]byte(nil), payload...)})
	return nil
}

func (s *fakeSession) Subscribe(topic string, handler broker.MessageHandler) error {
	s.mu.Lock()
	cb := s.onSubscribe
	err := s.subscribeErr
	if err == nil {
		if s.handlers == nil {
			s.handlers = make(map[string]broker.MessageHandler)
		}
		s.handlers[topic] = handler
	}
	s.mu.Unlock()

	if cb != nil {
		cb(topic)
	}
	return err
}

func (s *fakeSession) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCalls++
	s.connected = false
	return nil
}

func (s *fakeSession) setConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
}

func (s *fakeSession) publishes() []publishedMsg {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]publishedMsg(nil), s.published...)
}

func (s *fakeSession) publishAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func (s *fakeSession) closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

func (s *fakeSession) subscribedTo(topic string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.handlers[topic]
	return ok
}

// deliver invokes the subscribed handler the way the broker would.
func (s *fakeSession) deliver(topic string, payload []byte) error {
	s.mu.Lock()
	handler, ok := s.handlers[topic]
	s.mu.Unlock()
	if !ok {
		return errors.New("fakeSession: no handler for " + topic)
	}
	return handler(topic, payload)
}

// fakeDialer hands out scripted sessions in order, re-handing the last
// one when the queue runs dry, and captures the resolved endpoint
// options.
type fakeDialer struct {
	mu       sync.Mutex
	sessions []*fakeSession
	last     *fakeSession
	err      error
	calls    int
	resolved []broker.Options
}

func (d *fakeDialer) dial(opts broker.Options) (BrokerSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	d.resolved = append(d.resolved, opts)
	if d.err != nil {
		return nil, d.err
	}
	if len(d.sessions) > 0 {
		d.last = d.sessions[0]
		d.sessions = d.sessions[1:]
	}
	if d.last == nil {
		return nil, errors.New("fakeDialer: no session scripted")
	}
	return d.last, nil
}

func (d *fakeDialer) queue(s *fakeSession) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions = append(d.sessions, s)
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *fakeDialer) resolvedOpts() []broker.Options {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]broker.Options(nil), d.resolved...)
}

// eventRecord is one captured engine event, or a test-injected mark,
// in firing order.
type eventRecord struct {
	kind       string // "new", "update", "error", or a mark
	identifier string
	raw        []byte
	msg        string
	err        error
	offline    bool
}

// recorder captures engine events and marks in one ordered timeline.
type recorder struct {
	mu      sync.Mutex
	records []eventRecord
}

func (r *recorder) add(rec eventRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

// events returns hooks that feed the recorder.
func (r *recorder) events() Events {
	return Events{
		OnNewDevice: func(dev *device.Device, raw json.RawMessage) {
			r.add(eventRecord{kind: "new", identifier: dev.Identifier, raw: raw})
		},
		OnDeviceUpdate: func(dev *device.Device, raw []byte) {
			r.add(eventRecord{
				kind:       "update",
				identifier: dev.Identifier,
				raw:        raw,
				offline:    dev.Status.Offline(),
			})
		},
		OnError: func(dev *device.Device, msg string, err error) {
			rec := eventRecord{kind: "error", msg: msg, err: err}
			if dev != nil {
				rec.identifier = dev.Identifier
			}
			r.add(rec)
		},
	}
}

func (r *recorder) timeline() []eventRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]eventRecord(nil), r.records...)
}

func (r *recorder) byKind(kind string) []eventRecord {
	var out []eventRecord
	for _, rec := range r.timeline() {
		if rec.kind == kind {
			out = append(out, rec)
		}
	}
	return out
}

// engineFixture bundles a client with its scripted collaborators: a
// dialer holding one connectable session, a login that mints a valid
// token, and an event recorder.
type engineFixture struct {
	client   *Client
	registry *device.Registry
	acct     *fakeAccount
	dialer   *fakeDialer
	session  *fakeSession
	rec      *recorder
}

func newFixture(t *testing.T, pool RadioPool) *engineFixture {
	t.Helper()

	acct := &fakeAccount{session: account.Session{
		Token:    mintToken(t, time.Now().Add(time.Hour)),
		CertFile: "testdata/acct.pem",
		KeyFile:  "testdata/acct.pkey",
		Topic:    testPushTopic,
	}}
	session := &fakeSession{connected: true}
	dialer := &fakeDialer{sessions: []*fakeSession{session}}
	rec := &recorder{}

	c, err := NewClient(Options{
		Account:    acct,
		Registry:   device.NewRegistry(device.DefaultCatalog()),
		Radio:      pool,
		Broker:     broker.Options{Host: "mqtt.example.com", Port: 8883},
		DialBroker: dialer.dial,
		Events:     rec.events(),
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	return &engineFixture{
		client:   c,
		registry: c.registry,
		acct:     acct,
		dialer:   dialer,
		session:  session,
		rec:      rec,
	}
}

// newConnectedFixture additionally establishes the broker session and
// seeds one broker-reachable full-color device.
func newConnectedFixture(t *testing.T, pool RadioPool) *engineFixture {
	t.Helper()

	f := newFixture(t, pool)
	if err := f.client.EnsureBrokerSession(testContext(t)); err != nil {
		t.Fatalf("EnsureBrokerSession() error = %v", err)
	}
	seedDevice(t, f.registry, testIdentifier, "H6159", device.HintUnknown)
	f.registry.SetBrokerConnected(testIdentifier, true)
	return f
}

// seedDevice registers a device directly in the registry, bypassing
// enumeration.
func seedDevice(t *testing.T, registry *device.Registry, identifier, code string, hint device.ConnectivityHint) {
	t.Helper()

	_, created := registry.Upsert(device.Descriptor{
		Identifier:   identifier,
		ProductCode:  code,
		Name:         "Desk Light",
		Topic:        testTopic,
		Connectivity: hint,
	})
	if !created {
		t.Fatalf("Upsert(%q) created = false, want true", identifier)
	}
}

// mustDevice fetches the registry's view of a device.
func mustDevice(t *testing.T, registry *device.Registry, identifier string) *device.Device {
	t.Helper()

	dev, ok := registry.Get(identifier)
	if !ok {
		t.Fatalf("Get(%q) ok = false, want true", identifier)
	}
	return dev
}

func TestNewClient(t *testing.T) {
	acct := &fakeAccount{}
	registry := device.NewRegistry(device.DefaultCatalog())

	t.Run("requires an account client", func(t *testing.T) {
		if _, err := NewClient(Options{Registry: registry}); err == nil {
			t.Fatal("NewClient() error = nil, want error")
		}
	})

	t.Run("requires a registry", func(t *testing.T) {
		if _, err := NewClient(Options{Account: acct}); err == nil {
			t.Fatal("NewClient() error = nil, want error")
		}
	})

	t.Run("builds without radio or events", func(t *testing.T) {
		c, err := NewClient(Options{Account: acct, Registry: registry})
		if err != nil {
			t.Fatalf("NewClient() error = %v", err)
		}
		defer func() { _ = c.Close() }()

		// Defaulted hooks must be callable.
		c.events.OnNewDevice(nil, nil)
		c.events.OnDeviceUpdate(nil, nil)
		c.events.OnError(nil, "", nil)
	})
}

func TestClient_Close(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.client.EnsureBrokerSession(testContext(t)); err != nil {
		t.Fatalf("EnsureBrokerSession() error = %v", err)
	}

	if err := f.client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := f.session.closed(); got != 1 {
		t.Errorf("session close calls = %d, want 1", got)
	}

	// Closing again must not touch the session a second time.
	if err := f.client.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if got := f.session.closed(); got != 1 {
		t.Errorf("close calls after second Close() = %d, want 1", got)
	}
}
