package qr

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	tokenPrefix   = "ORD-"
	shortIDLength = 8
	randomLength  = 10
)

// NewToken returns "ORD-<unix millis>-<10 hex chars>". Uniqueness is best
// effort: the backend's unique index on qr_code is the real guard.
func NewToken(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:randomLength]
	return tokenPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "-" + random
}

// ShortID is the order number shown on the confirmation screen: the first
// eight characters of the token.
func ShortID(token string) string {
	if len(token) <= shortIDLength {
		return token
	}
	return token[:shortIDLength]
}
