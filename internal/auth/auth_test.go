package auth

import (
	"context"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailymint/internal/apperr"
)

var secret = []byte("test-secret-key-for-jwt-testing-32chars")

func TestVerify_Valid(t *testing.T) {
	tok, err := IssueToken(secret, "12345", "dailymint.app", "quick-auth", time.Hour)
	require.NoError(t, err)

	v := NewJWTVerifier(secret, "quick-auth")
	sub, err := v.Verify(context.Background(), tok, "dailymint.app")
	require.NoError(t, err)
	assert.Equal(t, "12345", sub)
}

func TestVerify_Rejects(t *testing.T) {
	v := NewJWTVerifier(secret, "quick-auth")
	ctx := context.Background()

	wrongDomain, _ := IssueToken(secret, "1", "other.app", "quick-auth", time.Hour)
	wrongIssuer, _ := IssueToken(secret, "1", "dailymint.app", "someone-else", time.Hour)
	expired, _ := IssueToken(secret, "1", "dailymint.app", "quick-auth", -time.Hour)
	wrongSecret, _ := IssueToken([]byte("another-secret-another-secret-xx"), "1", "dailymint.app", "quick-auth", time.Hour)
	noSubject, _ := IssueToken(secret, "", "dailymint.app", "quick-auth", time.Hour)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "1", Issuer: "quick-auth", Audience: jwt.ClaimStrings{"dailymint.app"},
	})
	noExpStr, err := noExp.SignedString(secret)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"wrong domain": wrongDomain,
		"wrong issuer": wrongIssuer,
		"expired":      expired,
		"wrong secret": wrongSecret,
		"no subject":   noSubject,
		"no expiry":    noExpStr,
		"garbage":      "not.a.jwt",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(ctx, tok, "dailymint.app")
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		})
	}
}

func TestVerify_NoneAlgorithm(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTVerifier(secret, "").Verify(context.Background(), s, "")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}
