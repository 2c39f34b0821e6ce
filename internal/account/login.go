package account

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// File extensions of a broker identity certificate pair.
const (
	certFileExt = ".pem"
	keyFileExt  = ".pkey"
)

// Session holds the credentials returned by a successful login.
type Session struct {
	// Token is the bearer token for subsequent API calls. Check TokenValid
	// before reusing a cached session.
	Token string

	// CertFile and KeyFile are the broker identity certificate pair named
	// by the login response, resolved against the certificate directory.
	CertFile string
	KeyFile  string

	// Topic is the account push topic carrying device state updates.
	Topic string
}

// loginRequest is the wire shape of the login call. Key and View are
// vestigial fields the service requires verbatim.
type loginRequest struct {
	Client      string `json:"client"`
	Email       string `json:"email"`
	Key         string `json:"key"`
	Password    string `json:"password"`
	Transaction int64  `json:"transaction"`
	View        int    `json:"view"`
}

// loginResponse is the wire shape of the login reply. The certificate
// reference arrives in the single-letter field "A".
type loginResponse struct {
	Client struct {
		Token   string `json:"token"`
		CertRef string `json:"A"`
		Topic   string `json:"topic"`
	} `json:"client"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// Login authenticates against the account service.
//
// On success the returned session carries the bearer token, the resolved
// broker identity certificate pair, and the account push topic. The
// certificate pair must already exist in the certificate directory; the
// service only names which pair to use.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - *Session: Credentials for the broker session and API calls
//   - error: ErrAuthentication on a rejected login, ErrInvalidToken when
//     the returned token fails the structural check, ErrCertificateMissing
//     when the named certificate pair is not on disk
func (c *Client) Login(ctx context.Context) (*Session, error) {
	req := loginRequest{
		Client:      c.clientID,
		Email:       c.email,
		Password:    c.password,
		Transaction: time.Now().UnixMilli(),
	}

	var res loginResponse
	if err := c.post(ctx, loginPath, req, "", &res); err != nil {
		return nil, err
	}

	if res.Status != statusOK {
		return nil, fmt.Errorf("%w: service status %d: %s", ErrAuthentication, res.Status, res.Message)
	}
	if !TokenValid(res.Client.Token) {
		return nil, fmt.Errorf("%w: login returned a malformed or expired token", ErrInvalidToken)
	}

	certFile, keyFile, err := c.resolveCertPair(res.Client.CertRef)
	if err != nil {
		return nil, err
	}

	return &Session{
		Token:    res.Client.Token,
		CertFile: certFile,
		KeyFile:  keyFile,
		Topic:    res.Client.Topic,
	}, nil
}

// resolveCertPair maps a certificate reference from the login response to
// the identity pair on disk. Both files must exist; provisioning them is
// outside this client's scope.
func (c *Client) resolveCertPair(ref string) (certFile, keyFile string, err error) {
	if ref == "" {
		return "", "", fmt.Errorf("%w: login response named no certificate", ErrCertificateMissing)
	}

	certFile = filepath.Join(c.certDir, ref+certFileExt)
	keyFile = filepath.Join(c.certDir, ref+keyFileExt)

	for _, path := range []string{certFile, keyFile} {
		info, err := os.Stat(path)
		if err != nil {
			return "", "", fmt.Errorf("%w: %s: %w", ErrCertificateMissing, ref, err)
		}
		if info.IsDir() {
			return "", "", fmt.Errorf("%w: %s is a directory", ErrCertificateMissing, path)
		}
	}

	return certFile, keyFile, nil
}
