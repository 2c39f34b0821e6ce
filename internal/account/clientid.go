package account

import (
	"crypto/md5" //nolint:gosec // id derivation, not a credential
	"encoding/hex"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// clientIDLength is the length the service requires of client identifiers.
const clientIDLength = 32

// NewClientID derives a fresh 32-character client identifier.
//
// The value doubles as the broker client id. It should be generated once and
// persisted: the service keys device bindings to it, and two live sessions
// sharing an id evict each other at the broker.
func NewClientID() string {
	seed := uuid.NewString() + strconv.FormatInt(time.Now().UnixMilli(), 10)
	sum := md5.Sum([]byte(seed)) //nolint:gosec // id derivation, not a credential
	return hex.EncodeToString(sum[:])
}

// ValidClientID reports whether id is usable as a client identifier.
func ValidClientID(id string) bool {
	return len(id) == clientIDLength
}
