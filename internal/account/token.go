package account

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// minTokenLength rejects obviously junk strings before parsing.
const minTokenLength = 10

// TokenValid reports whether token is a well-formed JWT whose expiry claim,
// when present, lies in the future.
//
// The signature is deliberately not verified: the service signs with its own
// private key, and this client only needs to decide whether a cached token
// is worth presenting again. The service remains the authority and rejects
// anything it did not issue.
func TokenValid(token string) bool {
	if len(token) < minTokenLength {
		return false
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return false
	}

	return true
}
