// Package fake provides an in-memory implementation of the hosted berater API
// for testing.
//
// Use fake.NewServer() in tests to exercise the real HTTP client against a
// local backend, with no network access or external dependencies.
package fake

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	access "github.com/beraterhub/access-go"
	"github.com/beraterhub/access-go/credential"
)

// DefaultAnonKey is the anonymous key accepted when WithAnonKey is not given.
const DefaultAnonKey = "fake-anon-key"

// DefaultCode is the one-time code of accounts created through signup.
const DefaultCode = "123456"

// Option configures the fake backend.
type Option func(*Backend)

// Request is a request as received by the backend.
type Request struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

type account struct {
	user access.User
	hash []byte
	code string
}

type pendingLogin struct {
	username  string
	expiresAt time.Time
	failures  int
}

// Backend is the in-memory API. Its Handler can be mounted on any server.
type Backend struct {
	engine     *gin.Engine
	validate   *validator.Validate
	logger     *slog.Logger
	anonKey    string
	signingKey []byte
	publicURL  string
	tokenTTL   time.Duration
	pendingTTL time.Duration
	maxVerify  int
	latency    time.Duration
	now        func() time.Time

	mu          sync.Mutex
	accounts    map[string]*account // username → account
	pending     map[string]*pendingLogin
	issued      map[string]bool // live user tokens
	berater     map[string]*access.Berater
	reviews     []access.Review
	chats       map[string][]access.ChatMessage
	qrCodes     []access.QRCode
	offers      map[string][]access.Offer
	initialized bool
	down        bool
	requests    []Request
}

// WithAnonKey sets the anonymous key the backend accepts.
func WithAnonKey(key string) Option {
	return func(b *Backend) { b.anonKey = key }
}

// WithSigningKey sets the HMAC key user tokens are signed with.
func WithSigningKey(key []byte) Option {
	return func(b *Backend) { b.signingKey = key }
}

// WithUser adds an account that can log in with password and one-time code.
func WithUser(username, password, code string, role credential.Role) Option {
	return func(b *Backend) {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			panic(fmt.Sprintf("fake: hash password: %v", err))
		}
		b.accounts[username] = &account{
			user: access.User{
				ID:        uuid.NewString(),
				Email:     username,
				Name:      username,
				Role:      string(role),
				CreatedAt: b.now(),
			},
			hash: hash,
			code: code,
		}
	}
}

// WithBerater seeds an advisor record.
func WithBerater(br access.Berater) Option {
	return func(b *Backend) {
		if br.ID == "" {
			br.ID = uuid.NewString()
		}
		if br.CreatedAt.IsZero() {
			br.CreatedAt = b.now()
		}
		b.berater[br.ID] = &br
	}
}

// WithOffers replaces the offers of category.
func WithOffers(category string, offers ...access.Offer) Option {
	return func(b *Backend) { b.offers[category] = offers }
}

// WithTokenTTL sets the lifetime of issued user tokens. Default: 1 hour.
func WithTokenTTL(d time.Duration) Option {
	return func(b *Backend) { b.tokenTTL = d }
}

// WithMaxVerifyAttempts bounds rejected codes per pending token. Default: 5.
func WithMaxVerifyAttempts(n int) Option {
	return func(b *Backend) { b.maxVerify = n }
}

// WithLatency delays every response by d.
func WithLatency(d time.Duration) Option {
	return func(b *Backend) { b.latency = d }
}

// WithPublicURL sets the base of generated QR code links.
func WithPublicURL(u string) Option {
	return func(b *Backend) { b.publicURL = strings.TrimRight(u, "/") }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

// WithLogger sets a structured logger for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// NewBackend creates the in-memory API.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		anonKey:    DefaultAnonKey,
		signingKey: []byte("fake-signing-key"),
		publicURL:  "https://berater.example",
		tokenTTL:   time.Hour,
		pendingTTL: 5 * time.Minute,
		maxVerify:  5,
		now:        time.Now,
		accounts:   make(map[string]*account),
		pending:    make(map[string]*pendingLogin),
		issued:     make(map[string]bool),
		berater:    make(map[string]*access.Berater),
		chats:      make(map[string][]access.ChatMessage),
		offers:     defaultOffers(),
	}
	for _, o := range opts {
		o(b)
	}
	b.engine = b.routes()
	return b
}

// Handler returns the HTTP handler serving the API.
func (b *Backend) Handler() http.Handler { return b.engine }

// AnonKey returns the accepted anonymous key.
func (b *Backend) AnonKey() string { return b.anonKey }

// SetDown switches the outage mode. While down every request gets 503.
func (b *Backend) SetDown(down bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.down = down
}

// Revoke invalidates a user token server-side.
func (b *Backend) Revoke(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.issued, token)
}

// RevokeAll invalidates every issued user token.
func (b *Backend) RevokeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.issued = make(map[string]bool)
}

// IssueToken mints a user token for username without the login exchange.
func (b *Backend) IssueToken(username string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[username]
	if !ok {
		return "", fmt.Errorf("fake: unknown user %q", username)
	}
	return b.issueLocked(acc.user)
}

// Requests returns every request received so far, oldest first.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// RequestCount returns how many requests were received for method and path.
// An empty method matches any method.
func (b *Backend) RequestCount(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, r := range b.requests {
		if (method == "" || r.Method == method) && r.Path == path {
			n++
		}
	}
	return n
}

// Reviews returns the stored reviews.
func (b *Backend) Reviews() []access.Review {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]access.Review(nil), b.reviews...)
}

// beraterListLocked returns advisors in creation order. Caller holds mu.
func (b *Backend) beraterListLocked() []access.Berater {
	out := make([]access.Berater, 0, len(b.berater))
	for _, br := range b.berater {
		out = append(out, *br)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Server is a Backend listening on a local httptest server.
type Server struct {
	*Backend
	URL string

	srv *httptest.Server
}

// NewServer starts a backend on a loopback address. Call Close when done.
func NewServer(opts ...Option) *Server {
	b := NewBackend(opts...)
	srv := httptest.NewServer(b.Handler())
	return &Server{Backend: b, URL: srv.URL, srv: srv}
}

// Client returns an HTTP client configured for the server.
func (s *Server) Client() *http.Client { return s.srv.Client() }

// Close shuts the server down.
func (s *Server) Close() { s.srv.Close() }
