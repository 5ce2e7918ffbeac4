package credential

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the metadata a client can read from a JWT-shaped user token.
type TokenClaims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// ParseTokenClaims reads claims from token without verifying its signature.
// The server remains the authority on validity; the client only uses the
// claims as advisory metadata. Tokens that are not JWTs return an error.
func ParseTokenClaims(token string) (*TokenClaims, error) {
	if strings.Count(token, ".") != 2 {
		return nil, fmt.Errorf("credential: token is not a JWT")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("credential: parse token: %w", err)
	}

	tc := &TokenClaims{}
	if v, ok := claims["sub"].(string); ok {
		tc.Subject = v
	}
	if v, ok := claims["role"].(string); ok {
		tc.Role = v
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		tc.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		tc.IssuedAt = iat.Time
	}
	return tc, nil
}

// Enrich fills missing session metadata from the token's claims. Opaque
// tokens leave the session unchanged.
func (s Session) Enrich() Session {
	tc, err := ParseTokenClaims(s.Token.Value)
	if err != nil {
		return s
	}
	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = tc.ExpiresAt
	}
	if s.UserID == "" {
		s.UserID = tc.Subject
	}
	if s.Role == "" {
		if r, err := ParseRole(tc.Role); err == nil {
			s.Role = r
		}
	}
	if !tc.IssuedAt.IsZero() {
		s.IssuedAt = tc.IssuedAt
	}
	return s
}
