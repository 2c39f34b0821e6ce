package account

import "errors"

// Domain-specific errors for account operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrAuthentication is returned when the login call is rejected by the
	// service.
	ErrAuthentication = errors.New("account: authentication failed")

	// ErrRequestFailed is returned when an API call cannot be completed or
	// the service reports a non-success status.
	ErrRequestFailed = errors.New("account: request failed")

	// ErrInvalidToken is returned when the service hands back a token that
	// fails the structural check.
	ErrInvalidToken = errors.New("account: invalid token")

	// ErrCertificateMissing is returned when the broker identity certificate
	// named by the login response is not present in the certificate directory.
	ErrCertificateMissing = errors.New("account: identity certificate missing")
)
