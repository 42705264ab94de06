// Package auth issues and verifies the bearer tokens staff devices present to
// the scanner API.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "canteen"

// DefaultTTL is how long a staff token stays valid when no ttl is given.
const DefaultTTL = 12 * time.Hour

var ErrNoSecret = errors.New("auth: staff token secret is not configured")

// Claims holds the typed JWT payload.
type Claims struct {
	Staff string `json:"staff"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 staff tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue creates a signed token naming the staff member.
func (i *Issuer) Issue(staff string) (string, error) {
	staff = strings.TrimSpace(staff)
	if staff == "" {
		return "", errors.New("auth: staff name is required")
	}
	now := i.now()
	claims := Claims{
		Staff: staff,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   staff,
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify parses and validates a token string.
func (i *Issuer) Verify(t string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(t, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Staff == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
