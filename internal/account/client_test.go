package account

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testClientID = "0123456789abcdef0123456789abcdef"

// newTestClient wires a client against a local test server.
func newTestClient(t *testing.T, handler http.HandlerFunc, certDir string) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Options{
		BaseURL:    srv.URL,
		APIKey:     "test-api-key",
		Email:      "user@example.com",
		Password:   "hunter2",
		ClientID:   testClientID,
		CertDir:    certDir,
		HTTPClient: srv.Client(),
	})
}

// testContext returns a context canceled when the test ends. It stands
// in for (*testing.T).Context, which requires a newer Go toolchain.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// writeCertPair creates an identity certificate pair for ref in dir.
// Only existence is checked at login time, so content is irrelevant.
func writeCertPair(t *testing.T, dir, ref string) {
	t.Helper()

	for _, name := range []string{ref + certFileExt, ref + keyFileExt} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("test"), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestNewClient_ReplacesInvalidClientID(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"empty", ""},
		{"malformed", "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(Options{ClientID: tt.id})
			if !ValidClientID(c.ClientID()) {
				t.Errorf("ClientID() = %q, want a valid generated id", c.ClientID())
			}
		})
	}

	t.Run("keeps valid id", func(t *testing.T) {
		c := NewClient(Options{ClientID: testClientID})
		if c.ClientID() != testClientID {
			t.Errorf("ClientID() = %q, want %q", c.ClientID(), testClientID)
		}
	})
}

func TestClient_Login(t *testing.T) {
	validToken := mintToken(t, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	t.Run("success", func(t *testing.T) {
		certDir := t.TempDir()
		writeCertPair(t, certDir, "account.cert")

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			if r.URL.Path != loginPath {
				t.Errorf("path = %s, want %s", r.URL.Path, loginPath)
			}
			if got := r.Header.Get("x-api-key"); got != "test-api-key" {
				t.Errorf("x-api-key = %q", got)
			}
			if got := r.Header.Get("clientId"); got != testClientID {
				t.Errorf("clientId header = %q", got)
			}
			if got := r.Header.Get("appVersion"); got != headerAppVersion {
				t.Errorf("appVersion header = %q", got)
			}
			if got := r.Header.Get("User-Agent"); got != headerUserAgent {
				t.Errorf("User-Agent header = %q", got)
			}
			if got := r.Header.Get("Authorization"); got != "" {
				t.Errorf("login must not carry Authorization, got %q", got)
			}
			if got := r.Header.Get("timestamp"); got == "" {
				t.Error("timestamp header missing")
			}

			var req struct {
				Client      string  `json:"client"`
				Email       string  `json:"email"`
				Key         *string `json:"key"`
				Password    string  `json:"password"`
				Transaction int64   `json:"transaction"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decoding request body: %v", err)
			}
			if req.Client != testClientID {
				t.Errorf("body client = %q", req.Client)
			}
			if req.Email != "user@example.com" || req.Password != "hunter2" {
				t.Errorf("body credentials = %q / %q", req.Email, req.Password)
			}
			if req.Key == nil || *req.Key != "" {
				t.Error("body must carry an empty key field")
			}
			if req.Transaction == 0 {
				t.Error("body transaction missing")
			}

			json.NewEncoder(w).Encode(map[string]any{
				"client": map[string]any{
					"A":     "account.cert",
					"token": validToken,
					"topic": "GA/abfe75884b7aff2cc0e5b6d91a028d25",
				},
				"message": "Login successful",
				"status":  200,
			})
		}, certDir)

		session, err := client.Login(testContext(t))
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if session.Token != validToken {
			t.Errorf("session token = %q", session.Token)
		}
		if want := filepath.Join(certDir, "account.cert.pem"); session.CertFile != want {
			t.Errorf("CertFile = %q, want %q", session.CertFile, want)
		}
		if want := filepath.Join(certDir, "account.cert.pkey"); session.KeyFile != want {
			t.Errorf("KeyFile = %q, want %q", session.KeyFile, want)
		}
		if session.Topic != "GA/abfe75884b7aff2cc0e5b6d91a028d25" {
			t.Errorf("Topic = %q", session.Topic)
		}
	})

	t.Run("rejected credentials", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"message": "Incorrect password",
				"status":  400,
			})
		}, t.TempDir())

		_, err := client.Login(testContext(t))
		if !errors.Is(err, ErrAuthentication) {
			t.Errorf("Login() error = %v, want ErrAuthentication", err)
		}
	})

	t.Run("malformed token", func(t *testing.T) {
		certDir := t.TempDir()
		writeCertPair(t, certDir, "account.cert")

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"client": map[string]any{
					"A":     "account.cert",
					"token": "not-a-real-token",
					"topic": "GA/abc",
				},
				"status": 200,
			})
		}, certDir)

		_, err := client.Login(testContext(t))
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Login() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("missing certificate pair", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"client": map[string]any{
					"A":     "unknown.cert",
					"token": validToken,
					"topic": "GA/abc",
				},
				"status": 200,
			})
		}, t.TempDir())

		_, err := client.Login(testContext(t))
		if !errors.Is(err, ErrCertificateMissing) {
			t.Errorf("Login() error = %v, want ErrCertificateMissing", err)
		}
	})

	t.Run("no certificate named", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"client": map[string]any{
					"token": validToken,
					"topic": "GA/abc",
				},
				"status": 200,
			})
		}, t.TempDir())

		_, err := client.Login(testContext(t))
		if !errors.Is(err, ErrCertificateMissing) {
			t.Errorf("Login() error = %v, want ErrCertificateMissing", err)
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}, t.TempDir())

		_, err := client.Login(testContext(t))
		if !errors.Is(err, ErrRequestFailed) {
			t.Errorf("Login() error = %v, want ErrRequestFailed", err)
		}
	})
}

func TestClient_ListDevices(t *testing.T) {
	// settingsFor builds a settings blob string; wifiName marks LAN binding.
	settingsFor := func(wifi bool, address, topic string) string {
		blob := map[string]any{
			"address": address,
			"topic":   topic,
			"sku":     "H6159",
		}
		if wifi {
			blob["wifiName"] = "attic"
		}
		data, err := json.Marshal(blob)
		if err != nil {
			t.Fatalf("marshal settings blob: %v", err)
		}
		return string(data)
	}

	t.Run("parses records", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != deviceListPath {
				t.Errorf("path = %s, want %s", r.URL.Path, deviceListPath)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer token-123" {
				t.Errorf("Authorization = %q, want bearer token", got)
			}

			json.NewEncoder(w).Encode(map[string]any{
				"devices": []any{
					map[string]any{
						"device":     "AA:BB:CC:DD:EE:FF:11:22",
						"deviceName": "Kitchen light",
						"sku":        "H6159",
						"deviceExt": map[string]any{
							"deviceSettings": settingsFor(true, "CC:DD:EE:FF:11:22", "GD/123"),
							"lastDeviceData": `{"online":false}`,
						},
					},
					map[string]any{
						"device":     "A2:B2:C3:D4:E5:F6:77:88",
						"deviceName": "Bedside lamp",
						"sku":        "H6085",
						"deviceExt": map[string]any{
							"deviceSettings": settingsFor(false, "C3:D4:E5:F6:77:88", "GD/456"),
							"lastDeviceData": `{}`,
						},
					},
					map[string]any{
						// No product code: skipped.
						"device": "11:22:33:44:55:66:77:88",
						"deviceExt": map[string]any{
							"deviceSettings": settingsFor(true, "33:44:55:66:77:88", "GD/789"),
							"lastDeviceData": `{}`,
						},
					},
					map[string]any{
						// Unparseable settings blob: skipped.
						"device": "99:88:77:66:55:44:33:22",
						"sku":    "H6159",
						"deviceExt": map[string]any{
							"deviceSettings": "{broken",
							"lastDeviceData": `{}`,
						},
					},
					map[string]any{
						// Neither address nor topic: skipped.
						"device": "DE:AD:BE:EF:00:11:22:33",
						"sku":    "H6159",
						"deviceExt": map[string]any{
							"deviceSettings": `{"sku":"H6159"}`,
							"lastDeviceData": `{}`,
						},
					},
				},
				"message": "",
				"status":  200,
			})
		}, t.TempDir())

		records, err := client.ListDevices(testContext(t), "token-123")
		if err != nil {
			t.Fatalf("ListDevices() error = %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("record count = %d, want 2", len(records))
		}

		first := records[0]
		if first.Identifier != "AA:BB:CC:DD:EE:FF:11:22" {
			t.Errorf("Identifier = %q", first.Identifier)
		}
		if first.ProductCode != "H6159" {
			t.Errorf("ProductCode = %q", first.ProductCode)
		}
		if first.Name != "Kitchen light" {
			t.Errorf("Name = %q", first.Name)
		}
		if first.Topic != "GD/123" {
			t.Errorf("Topic = %q", first.Topic)
		}
		if first.RadioAddress != "CC:DD:EE:FF:11:22" {
			t.Errorf("RadioAddress = %q", first.RadioAddress)
		}
		if !first.LANBound {
			t.Error("LANBound = false, want true")
		}
		if first.Online == nil || *first.Online {
			t.Errorf("Online = %v, want false", first.Online)
		}
		if len(first.Raw) == 0 {
			t.Error("Raw record missing")
		}

		second := records[1]
		if second.LANBound {
			t.Error("LANBound = true for radio-only device")
		}
		if second.Online != nil {
			t.Errorf("Online = %v, want nil when unreported", second.Online)
		}
	})

	t.Run("service-level failure", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"message": "token expired",
				"status":  401,
			})
		}, t.TempDir())

		_, err := client.ListDevices(testContext(t), "stale-token")
		if !errors.Is(err, ErrRequestFailed) {
			t.Errorf("ListDevices() error = %v, want ErrRequestFailed", err)
		}
	})

	t.Run("malformed response", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{"))
		}, t.TempDir())

		_, err := client.ListDevices(testContext(t), "token-123")
		if !errors.Is(err, ErrRequestFailed) {
			t.Errorf("ListDevices() error = %v, want ErrRequestFailed", err)
		}
	})
}
