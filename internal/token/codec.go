// Package token issues and verifies the signed capability tokens encoded
// in reservation QR codes.  A token names one seat, one user and one
// nonce, and is valid until its exp claim.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultWindow is how long an issued token stays valid.
const DefaultWindow = 2 * time.Hour

var (
	// ErrMalformed is returned for tokens that cannot be decoded or that
	// lack one of the required claims.
	ErrMalformed = errors.New("malformed token")
	// ErrInvalidSignature is returned when the signature does not match
	// the configured secret or the algorithm is not HS256.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrExpired is returned by Check once now is past exp.
	ErrExpired = errors.New("token expired")
)

// Claims is the payload of a capability token.  ReservedAt is in epoch
// milliseconds; exp (RegisteredClaims.ExpiresAt) is in epoch seconds.
type Claims struct {
	SeatID       string `json:"seatId"`
	ReservedBy   string `json:"reservedBy"`
	ReservedAt   int64  `json:"reservedAt"`
	OneTimeToken string `json:"oneTimeToken"`
	jwt.RegisteredClaims
}

// Exp returns the expiry as epoch seconds, or 0 when unset.
func (c *Claims) Exp() int64 {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Unix()
}

// Expired reports whether the token is expired at now.  The comparison is
// strict: a token is still valid during the second named by exp.
func (c *Claims) Expired(now time.Time) bool {
	return now.Unix() > c.Exp()
}

func (c *Claims) complete() bool {
	return c.SeatID != "" && c.ReservedBy != "" && c.OneTimeToken != "" &&
		c.ReservedAt > 0 && c.ExpiresAt != nil
}

// Codec signs and verifies capability tokens with a shared HMAC secret.
type Codec struct {
	secret []byte
	window time.Duration
}

// NewCodec returns a codec using secret.  A non-positive window falls back
// to DefaultWindow.
func NewCodec(secret string, window time.Duration) *Codec {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Codec{secret: []byte(secret), window: window}
}

// Window is the validity period applied by Issue.
func (c *Codec) Window() time.Duration { return c.window }

// Issue builds and signs an HS256 token for seatID held by userID.
func (c *Codec) Issue(seatID, userID, nonce string, now time.Time) (string, Claims, error) {
	if seatID == "" || userID == "" || nonce == "" {
		return "", Claims{}, fmt.Errorf("issue token: %w", ErrMalformed)
	}
	claims := Claims{
		SeatID:       seatID,
		ReservedBy:   userID,
		ReservedAt:   now.UnixMilli(),
		OneTimeToken: nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(c.window)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks the signature and shape of raw and returns its claims.
// Expiry is deliberately left to Check.
func (c *Codec) Verify(raw string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return Claims{}, ErrInvalidSignature
		default:
			return Claims{}, ErrMalformed
		}
	}
	if !claims.complete() {
		return Claims{}, ErrMalformed
	}
	return claims, nil
}

// Check verifies raw and rejects it when expired at now.  Every handler
// that accepts a token goes through Check.
func (c *Codec) Check(raw string, now time.Time) (Claims, error) {
	claims, err := c.Verify(raw)
	if err != nil {
		return Claims{}, err
	}
	if claims.Expired(now) {
		return Claims{}, ErrExpired
	}
	return claims, nil
}
