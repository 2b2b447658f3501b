package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("topsecret", "alice", 30)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Token)
	assert.WithinDuration(t, time.Now().UTC().Add(30*time.Minute), tok.Exp, 5*time.Second)

	sub, err := VerifyAccessToken("topsecret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)
}

func TestVerifyAccessTokenWrongSecret(t *testing.T) {
	tok, err := NewAccessToken("topsecret", "alice", 30)
	require.NoError(t, err)

	_, err = VerifyAccessToken("othersecret", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyAccessTokenExpired(t *testing.T) {
	claims := jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().UTC().Add(-time.Minute).Unix(),
		"iat": time.Now().UTC().Add(-time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("topsecret"))
	require.NoError(t, err)

	_, err = VerifyAccessToken("topsecret", signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyAccessTokenWrongAlgorithm(t *testing.T) {
	// An unsigned token must never pass, even with a matching payload.
	signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().UTC().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = VerifyAccessToken("topsecret", signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyAccessTokenMalformed(t *testing.T) {
	for _, raw := range []string{"", "garbage", "a.b.c"} {
		_, err := VerifyAccessToken("topsecret", raw)
		assert.ErrorIs(t, err, ErrInvalidToken, "raw=%q", raw)
	}
}

func TestVerifyAccessTokenMissingSubject(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().UTC().Add(time.Hour).Unix(),
	}).SignedString([]byte("topsecret"))
	require.NoError(t, err)

	_, err = VerifyAccessToken("topsecret", signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
