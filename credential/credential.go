// Package credential holds the bearer credentials the access layer attaches to
// outbound calls: the process-wide anonymous key and, once a login completes,
// the per-session user token.
//
// A Store is an explicitly owned value. Construct one at process start and hand
// it to the login flow and the API client; nothing in this module reaches it
// through package state.
package credential

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies which credential an operation requires.
type Kind int

const (
	// Anonymous is the shared public key. It authorizes only public operations.
	Anonymous Kind = iota + 1
	// UserToken is the bearer value issued after a successful login.
	UserToken
)

func (k Kind) String() string {
	switch k {
	case Anonymous:
		return "anonymous"
	case UserToken:
		return "user_token"
	default:
		return "unknown"
	}
}

// Credential is an opaque bearer value tagged with its kind.
type Credential struct {
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
}

// Header returns the Authorization header value for the credential.
func (c Credential) Header() string {
	return "Bearer " + c.Value
}

// Role determines which operations a session holder may invoke.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleBerater  Role = "berater"
	RoleCustomer Role = "customer"
)

// ParseRole maps the server's role string onto a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleBerater, RoleCustomer:
		return r, nil
	default:
		return "", fmt.Errorf("credential: unknown role %q", s)
	}
}

// Session is the result of a completed login.
type Session struct {
	UserID string     `json:"user_id,omitempty"`
	Role   Role       `json:"role"`
	Token  Credential `json:"token"`

	// ExpiresAt is advisory. The zero value means the token is treated as
	// valid until a request is rejected.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	IssuedAt  time.Time `json:"issued_at,omitempty"`
}

// Expired reports whether the session carries an expiry that has passed.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Valid reports whether the session holds a usable user token.
func (s Session) Valid() bool {
	return s.Token.Kind == UserToken && s.Token.Value != ""
}

// NewSession builds a Session around a freshly issued user token.
func NewSession(token string, role Role, expiresAt time.Time) Session {
	return Session{
		Role:      role,
		Token:     Credential{Kind: UserToken, Value: token},
		ExpiresAt: expiresAt,
		IssuedAt:  time.Now(),
	}
}
