// Package auth provides bearer-token verification for front-ends that sit
// in front of the runtime. The core never consults it; it exists so an
// HTTP front-end can gate access to a session before handing the request
// to the monologue loop.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the verified contents of a session token.
type Claims struct {
	SessionID string `json:"sid"`
	Subject   string `json:"sub"`
	jwt.RegisteredClaims
}

var (
	// ErrMissingToken indicates no bearer token was supplied.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken indicates the token failed verification.
	ErrInvalidToken = errors.New("invalid bearer token")
)

// Verifier validates HS256-signed session tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier over the shared signing secret.
func NewVerifier(secret []byte) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: signing secret is required")
	}
	return &Verifier{secret: secret}, nil
}

// VerifyBearerToken checks an "Authorization: Bearer <token>" header value
// and returns its claims.
func (v *Verifier) VerifyBearerToken(header string) (*Claims, error) {
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
	if token == "" {
		return nil, ErrMissingToken
	}
	return v.Verify(token)
}

// Verify parses and validates a raw token string.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Issue signs a token for a session, valid for ttl. Primarily for tests
// and local tooling; production issuance lives with the front-end.
func (v *Verifier) Issue(sessionID, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		SessionID: sessionID,
		Subject:   subject,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
