package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

var issuedAt = time.Date(2026, 3, 2, 9, 30, 15, 250*int(time.Millisecond), time.UTC)

func TestIssueVerifyRoundTrip(t *testing.T) {
	c := NewCodec(testSecret, 2*time.Hour)
	raw, issued, err := c.Issue("1F-A1", "u1", "abc123", issuedAt)
	require.NoError(t, err)

	got, err := c.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "1F-A1", got.SeatID)
	assert.Equal(t, "u1", got.ReservedBy)
	assert.Equal(t, "abc123", got.OneTimeToken)
	assert.Equal(t, issuedAt.UnixMilli(), got.ReservedAt)
	assert.Equal(t, issuedAt.Add(2*time.Hour).Unix(), got.Exp())
	assert.Equal(t, issued.Exp(), got.Exp())
}

func TestCheckExpiryBoundary(t *testing.T) {
	c := NewCodec(testSecret, time.Hour)
	raw, claims, err := c.Issue("1F-A1", "u1", "n", issuedAt)
	require.NoError(t, err)

	exp := time.Unix(claims.Exp(), 0)
	_, err = c.Check(raw, exp)
	assert.NoError(t, err)

	_, err = c.Check(raw, exp.Add(time.Second))
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyDoesNotCheckExpiry(t *testing.T) {
	c := NewCodec(testSecret, time.Second)
	raw, _, err := c.Issue("1F-A1", "u1", "n", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = c.Verify(raw)
	assert.NoError(t, err)
	_, err = c.Check(raw, time.Now())
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyWrongSecret(t *testing.T) {
	raw, _, err := NewCodec("other", 0).Issue("1F-A1", "u1", "n", issuedAt)
	require.NoError(t, err)

	_, err = NewCodec(testSecret, 0).Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyTampered(t *testing.T) {
	c := NewCodec(testSecret, 0)
	raw, _, err := c.Issue("1F-A1", "u1", "n", issuedAt)
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	other, _, err := c.Issue("2F-B2", "u1", "n", issuedAt)
	require.NoError(t, err)
	forged := parts[0] + "." + strings.Split(other, ".")[1] + "." + parts[2]

	_, err = c.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyMalformed(t *testing.T) {
	c := NewCodec(testSecret, 0)
	for _, raw := range []string{"", "abc", "a.b.c", "not.a.jwt.at.all"} {
		_, err := c.Verify(raw)
		assert.ErrorIs(t, err, ErrMalformed, raw)
	}
}

func TestVerifyMissingClaims(t *testing.T) {
	t.Parallel()
	c := NewCodec(testSecret, 0)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"seatId": "1F-A1",
		"exp":    issuedAt.Add(time.Hour).Unix(),
	})
	raw, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = c.Verify(raw)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	c := NewCodec(testSecret, 0)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		SeatID: "1F-A1", ReservedBy: "u1", ReservedAt: issuedAt.UnixMilli(), OneTimeToken: "n",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour))},
	})
	raw, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = c.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestIssueRequiresFields(t *testing.T) {
	_, _, err := NewCodec(testSecret, 0).Issue("", "u1", "n", issuedAt)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestNewNonce(t *testing.T) {
	a, err := NewNonce()
	require.NoError(t, err)
	b, err := NewNonce()
	require.NoError(t, err)
	assert.Len(t, a, 2*NonceBytes)
	assert.NotEqual(t, a, b)
}
