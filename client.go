// Package access is the authenticated access layer of the berater front end.
//
// A Client is the single chokepoint through which every backend operation
// passes. Each operation in the catalog is statically bound to the credential
// it requires: public operations carry the anonymous key, privileged ones the
// token of the active session held by a credential.Store. Every response is
// classified into a typed success value or an *Error before it is returned.
//
// Example usage:
//
//	store, _ := credential.NewStore(anonKey)
//	client, err := access.NewClient(
//	    access.Config{BaseURL: "https://api.example.com"},
//	    store,
//	    access.WithLogger(logger),
//	)
//	offers, err := client.GetOffers(ctx, "internet-tv")
package access

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/beraterhub/access-go/credential"
)

// DefaultTimeout bounds a single request when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Client issues authorized requests for the operation catalog.
type Client struct {
	config   Config
	baseURL  *url.URL
	store    *credential.Store
	http     *http.Client
	logger   *slog.Logger
	recorder Recorder
	validate *validator.Validate

	// reads shares identical anonymous GETs. writes counts completed
	// non-GET calls; it is part of the share key, so a read never joins a
	// round trip that started before a write its caller already awaited.
	reads  singleflight.Group
	writes atomic.Uint64
}

// Config holds connection configuration.
type Config struct {
	// BaseURL is the root of the hosted API, e.g. "https://api.example.com".
	BaseURL string

	// Timeout bounds each request. Default: 10 seconds.
	Timeout time.Duration

	// UserAgent is sent with every request when set.
	UserAgent string
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets a structured logger for the client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient sets a custom HTTP client. Its Timeout takes precedence over
// Config.Timeout.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRecorder sets the metrics sink for request outcomes.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithValidator replaces the payload validator.
func WithValidator(v *validator.Validate) Option {
	return func(c *Client) { c.validate = v }
}

// NewClient creates a client for cfg that reads credentials from store.
func NewClient(cfg Config, store *credential.Store, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("access: BaseURL is required")
	}
	if store == nil {
		return nil, fmt.Errorf("access: credential store is required")
	}
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("access: invalid BaseURL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("access: BaseURL must be an http(s) URL, got %q", cfg.BaseURL)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		config:   cfg,
		baseURL:  u,
		store:    store,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		recorder: nopRecorder{},
	}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.Timeout}
	}
	if c.validate == nil {
		c.validate = newValidator()
	}
	if u.Scheme == "http" {
		c.logger.Warn("access client configured without TLS", "base_url", cfg.BaseURL)
	}
	return c, nil
}

// Config returns the client configuration.
func (c *Client) Config() Config { return c.config }

// Credentials returns the credential store the client reads from.
func (c *Client) Credentials() *credential.Store { return c.store }

// Logout ends the active session. No request is sent; the token is simply
// discarded, so a new login is required before privileged calls succeed.
func (c *Client) Logout() {
	c.store.Clear()
}

// Close releases idle connections held by the underlying HTTP client.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
