package account

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// API endpoints, relative to the configured base URL.
const (
	loginPath      = "/account/rest/account/v1/login"
	deviceListPath = "/device/rest/devices/v1/list"
)

// Fixed header values the service expects from app clients. Requests
// missing them are rejected upstream regardless of credentials.
const (
	headerAppVersion = "3.2.1"
	headerClientType = "0"
	headerUserAgent  = "okhttp/3.12.0"
)

// defaultHTTPTimeout bounds each API call end to end.
const defaultHTTPTimeout = 15 * time.Second

// statusOK is the in-body status code of a successful API response. The
// service reports application-level failures in the body, not the HTTP
// status line.
const statusOK = 200

// maxErrorBody caps how much of an error response is echoed into errors.
const maxErrorBody = 512

// Options configures the account client.
type Options struct {
	// BaseURL of the account REST API, e.g. "https://app.example.com".
	BaseURL string

	// APIKey is sent as the x-api-key header on every call.
	APIKey string

	// Email and Password are the account credentials.
	Email    string
	Password string

	// ClientID identifies this client instance to the service. Regenerated
	// when absent or malformed (see NewClientID).
	ClientID string

	// CertDir is the directory holding broker identity certificate pairs,
	// one <ref>.pem / <ref>.pkey pair per certificate reference.
	CertDir string

	// HTTPClient overrides the transport used for API calls. Nil selects a
	// default client with a 15-second timeout.
	HTTPClient *http.Client
}

// Client talks to the account REST API: login and device enumeration.
//
// Client keeps no token state of its own. The engine decides when a cached
// session is stale (see TokenValid) and calls Login again; every prior
// broker binding is invalidated by that.
//
// Thread Safety: all methods are safe for concurrent use; the client is
// immutable after construction.
type Client struct {
	baseURL  string
	apiKey   string
	email    string
	password string
	clientID string
	certDir  string
	http     *http.Client
}

// NewClient creates an account client from options.
//
// A missing or malformed ClientID is replaced with a freshly generated one;
// ClientID() reports the value actually in use so callers can persist it.
func NewClient(opts Options) *Client {
	clientID := opts.ClientID
	if !ValidClientID(clientID) {
		clientID = NewClientID()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		apiKey:   opts.APIKey,
		email:    opts.Email,
		password: opts.Password,
		clientID: clientID,
		certDir:  opts.CertDir,
		http:     httpClient,
	}
}

// ClientID returns the identifier this client presents to the service.
// The same value must be used as the broker client id.
func (c *Client) ClientID() string {
	return c.clientID
}

// post sends one JSON request and decodes the JSON response into out.
// An empty token omits the Authorization header (login is unauthenticated).
func (c *Client) post(ctx context.Context, path string, body any, token string, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: encode request: %w", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	c.setHeaders(req, token)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return fmt.Errorf("%w: HTTP %d: %s", ErrRequestFailed, res.StatusCode, snippet)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrRequestFailed, err)
	}

	return nil
}

// setHeaders applies the fixed app-client header set plus per-request values.
func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("country", "US")
	req.Header.Set("Accept-Language", "en")
	req.Header.Set("timezone", "America/Los_Angeles")
	req.Header.Set("appVersion", headerAppVersion)
	req.Header.Set("clientId", c.clientID)
	req.Header.Set("clientType", headerClientType)
	req.Header.Set("User-Agent", headerUserAgent)
	req.Header.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
