// Package auth verifies identity-provider bearer tokens.
package auth

import (
	"context"
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"dailymint/internal/apperr"
)

// ErrInvalidToken is returned for any token that does not verify.
var ErrInvalidToken = apperr.Unauthorized("invalid token", nil)

// Verifier resolves a bearer token issued for domain to a subject identifier.
type Verifier interface {
	Verify(ctx context.Context, token, domain string) (string, error)
}

// JWTVerifier checks HS256 tokens whose audience is the app domain.
type JWTVerifier struct {
	secret []byte
	issuer string
	leeway time.Duration
}

func NewJWTVerifier(secret []byte, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: secret, issuer: issuer, leeway: 30 * time.Second}
}

func (v *JWTVerifier) Verify(_ context.Context, tokenStr, domain string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if domain != "" {
		opts = append(opts, jwt.WithAudience(domain))
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", apperr.Unauthorized("invalid token", err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", apperr.Unauthorized("invalid token", errors.New("missing subject"))
	}
	return claims.Subject, nil
}

// IssueToken signs a token for subject; used by tests and local tooling.
func IssueToken(secret []byte, subject, domain, issuer string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if domain != "" {
		claims.Audience = jwt.ClaimStrings{domain}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
