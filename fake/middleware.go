package fake

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	access "github.com/beraterhub/access-go"
	"github.com/beraterhub/access-go/credential"
)

var errRevoked = errors.New("fake: token revoked")

// Context keys for storing caller data in gin.Context.
const (
	KeyCredentialKind = "fake_credential_kind"
	KeyUserID         = "fake_user_id"
	KeyRole           = "fake_role"
)

// record logs the request and applies latency. It runs before auth so that
// rejected requests are still counted.
func (b *Backend) record() gin.HandlerFunc {
	return func(c *gin.Context) {
		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method:        c.Request.Method,
			Path:          c.Request.URL.Path,
			Authorization: c.GetHeader("Authorization"),
			RequestID:     c.GetHeader(access.HeaderRequestID),
		})
		b.mu.Unlock()

		if b.latency > 0 {
			select {
			case <-time.After(b.latency):
			case <-c.Request.Context().Done():
				c.Abort()
				return
			}
		}

		start := time.Now()
		c.Next()
		b.logger.Debug("fake request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// outage answers 503 while the backend is down.
func (b *Backend) outage() gin.HandlerFunc {
	return func(c *gin.Context) {
		b.mu.Lock()
		down := b.down
		b.mu.Unlock()
		if down {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
			return
		}
		c.Next()
	}
}

// auth verifies the bearer credential. Public routes accept the anonymous key
// or a live user token; privileged routes accept only a user token.
// Responds with 401 if the credential is missing or invalid.
func (b *Backend) auth(scope credential.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractBearerToken(c.Request)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			return
		}

		if tokenStr == b.anonKey {
			if scope == credential.UserToken {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user token required"})
				return
			}
			c.Set(KeyCredentialKind, credential.Anonymous)
			c.Next()
			return
		}

		claims, err := b.verify(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(KeyCredentialKind, credential.UserToken)
		c.Set(KeyUserID, claims["sub"])
		c.Set(KeyRole, claims["role"])
		c.Next()
	}
}

// verify checks signature, expiry and revocation of a user token.
func (b *Backend) verify(tokenStr string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return b.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(b.now))
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	live := b.issued[tokenStr]
	b.mu.Unlock()
	if !live {
		return nil, errRevoked
	}
	return claims, nil
}

// issueLocked signs a token for u. Caller holds mu.
func (b *Backend) issueLocked(u access.User) (string, error) {
	now := b.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  u.ID,
		"role": u.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(b.tokenTTL).Unix(),
		"jti":  uuid.NewString(),
	})
	signed, err := tok.SignedString(b.signingKey)
	if err != nil {
		return "", err
	}
	b.issued[signed] = true
	return signed, nil
}

// GetUserID returns the authenticated user ID from the Gin context.
func GetUserID(c *gin.Context) string {
	v, _ := c.Get(KeyUserID)
	s, _ := v.(string)
	return s
}

// GetRole returns the authenticated user's role from the Gin context.
func GetRole(c *gin.Context) string {
	v, _ := c.Get(KeyRole)
	s, _ := v.(string)
	return s
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
