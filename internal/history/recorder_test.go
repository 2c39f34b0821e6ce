package history_test

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ewanmcc/lumen-core/internal/device"
	"github.com/ewanmcc/lumen-core/internal/history"
	"github.com/ewanmcc/lumen-core/internal/infrastructure/config"
)

// influxStub fakes the two InfluxDB endpoints the recorder touches:
// the ping used for connect/health checks and the v2 write API.
type influxStub struct {
	mu          sync.Mutex
	lines       []string
	pingStatus  int
	writeStatus int
}

// testContext returns a context canceled when the test ends. It stands
// in for (*testing.T).Context, which requires a newer Go toolchain.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

func newInfluxStub(t *testing.T) (*influxStub, *httptest.Server) {
	t.Helper()

	stub := &influxStub{
		pingStatus:  http.StatusNoContent,
		writeStatus: http.StatusNoContent,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/ping":
			stub.mu.Lock()
			status := stub.pingStatus
			stub.mu.Unlock()
			w.WriteHeader(status)

		case strings.HasPrefix(r.URL.Path, "/api/v2/write"):
			body := r.Body
			if r.Header.Get("Content-Encoding") == "gzip" {
				gz, err := gzip.NewReader(r.Body)
				if err != nil {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				defer gz.Close()
				body = gz
			}
			data, err := io.ReadAll(body)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}

			stub.mu.Lock()
			for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
				if line != "" {
					stub.lines = append(stub.lines, line)
				}
			}
			status := stub.writeStatus
			stub.mu.Unlock()
			w.WriteHeader(status)

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	return stub, srv
}

func (s *influxStub) written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func (s *influxStub) setWriteStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeStatus = status
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "test-token",
		Org:           "lumen",
		Bucket:        "state",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

func connectRecorder(t *testing.T, url string) *history.Recorder {
	t.Helper()

	rec, err := history.Connect(testConfig(url))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = rec.Close() })
	return rec
}

func TestConnect(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		cfg := testConfig("http://127.0.0.1:0")
		cfg.Enabled = false

		_, err := history.Connect(cfg)
		if !errors.Is(err, history.ErrDisabled) {
			t.Fatalf("Connect() error = %v, want ErrDisabled", err)
		}
	})

	t.Run("unhealthy server", func(t *testing.T) {
		stub, srv := newInfluxStub(t)
		stub.mu.Lock()
		stub.pingStatus = http.StatusInternalServerError
		stub.mu.Unlock()

		_, err := history.Connect(testConfig(srv.URL))
		if !errors.Is(err, history.ErrConnectionFailed) {
			t.Fatalf("Connect() error = %v, want ErrConnectionFailed", err)
		}
	})

	t.Run("healthy server", func(t *testing.T) {
		_, srv := newInfluxStub(t)

		rec := connectRecorder(t, srv.URL)
		if !rec.IsConnected() {
			t.Error("IsConnected() = false after Connect()")
		}
	})
}

func TestRecorder_RecordState(t *testing.T) {
	stub, srv := newInfluxStub(t)
	rec := connectRecorder(t, srv.URL)

	on := true
	brightness := 0.5
	kelvin := 4000
	dev := &device.Device{
		Identifier:       "AA:BB:CC:DD:EE:FF:11:22",
		ProductCode:      "H6159",
		Power:            &on,
		Brightness:       &brightness,
		ColorTemperature: &kelvin,
	}
	dev.Status.SetBroker(true)

	rec.RecordState(dev)
	rec.Flush()

	lines := stub.written()
	if len(lines) != 1 {
		t.Fatalf("written lines = %d, want 1", len(lines))
	}

	line := lines[0]
	if !strings.HasPrefix(line, "device_state,") {
		t.Errorf("line = %q, want device_state measurement", line)
	}
	for _, fragment := range []string{
		"device=AA:BB:CC:DD:EE:FF:11:22",
		"product=H6159",
		"on=true",
		"brightness=0.5",
		"color_temperature=4000i",
		"reachable=true",
		"broker=true",
		"radio=false",
	} {
		if !strings.Contains(line, fragment) {
			t.Errorf("line %q missing %q", line, fragment)
		}
	}
	if strings.Contains(line, "color_r") {
		t.Errorf("line %q carries color fields for a device in temperature mode", line)
	}
}

func TestRecorder_RecordState_OmitsUnreported(t *testing.T) {
	stub, srv := newInfluxStub(t)
	rec := connectRecorder(t, srv.URL)

	rec.RecordState(&device.Device{
		Identifier:  "AA:BB:CC:DD:EE:FF:11:22",
		ProductCode: "H6159",
	})
	rec.Flush()

	lines := stub.written()
	if len(lines) != 1 {
		t.Fatalf("written lines = %d, want 1", len(lines))
	}
	for _, fragment := range []string{"on=", "brightness=", "color_temperature="} {
		if strings.Contains(lines[0], fragment) {
			t.Errorf("line %q carries unreported field %q", lines[0], fragment)
		}
	}
	if !strings.Contains(lines[0], "reachable=false") {
		t.Errorf("line %q missing reachable=false", lines[0])
	}
}

func TestRecorder_RecordError(t *testing.T) {
	stub, srv := newInfluxStub(t)
	rec := connectRecorder(t, srv.URL)

	rec.RecordError("AA:BB:CC:DD:EE:FF:11:22", "radio send failed")
	rec.RecordError("", "broker session lost")
	rec.Flush()

	lines := stub.written()
	if len(lines) != 2 {
		t.Fatalf("written lines = %d, want 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "transport_errors,device=AA:BB:CC:DD:EE:FF:11:22") {
		t.Errorf("line = %q, want a device-tagged transport_errors point", lines[0])
	}
	if !strings.Contains(lines[0], `message="radio send failed"`) {
		t.Errorf("line = %q, missing the message field", lines[0])
	}
	if !strings.HasPrefix(lines[1], "transport_errors ") {
		t.Errorf("line = %q, want an untagged transport_errors point", lines[1])
	}
}

func TestRecorder_Close(t *testing.T) {
	stub, srv := newInfluxStub(t)
	rec := connectRecorder(t, srv.URL)

	if err := rec.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if rec.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}

	// Writes after close are dropped, not queued.
	rec.RecordState(&device.Device{Identifier: "AA:BB:CC:DD:EE:FF:11:22"})
	rec.Flush()
	if got := stub.written(); len(got) != 0 {
		t.Errorf("written lines after Close = %d, want 0", len(got))
	}
}

func TestRecorder_HealthCheck(t *testing.T) {
	_, srv := newInfluxStub(t)
	rec := connectRecorder(t, srv.URL)

	if err := rec.HealthCheck(testContext(t)); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	_ = rec.Close()
	if err := rec.HealthCheck(testContext(t)); !errors.Is(err, history.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}
}

func TestRecorder_SetOnError(t *testing.T) {
	stub, srv := newInfluxStub(t)
	rec := connectRecorder(t, srv.URL)

	errCh := make(chan error, 1)
	rec.SetOnError(func(err error) {
		select {
		case errCh <- err:
		default:
		}
	})

	// A 400 is not retried, so the failure surfaces immediately.
	stub.setWriteStatus(http.StatusBadRequest)
	rec.RecordError("AA:BB:CC:DD:EE:FF:11:22", "doomed point")
	rec.Flush()

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("error callback received nil")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("write error never reached the callback")
	}
}
