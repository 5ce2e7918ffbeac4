// Package redisstore persists the active session slot in Redis so several
// processes (or successive CLI invocations) can share one login.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/beraterhub/access-go/credential"
)

const keyPrefix = "access:session:"

// Persister implements credential.Persister on a Redis key.
type Persister struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

// compile-time check
var _ credential.Persister = (*Persister)(nil)

// New returns a Persister storing the session under access:session:<name>.
func New(client *redis.Client, name string) *Persister {
	if name == "" {
		name = "default"
	}
	return &Persister{client: client, key: keyPrefix + name, now: time.Now}
}

// Connect parses a redis:// URL and verifies connectivity.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redisstore: url is required")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redisstore: parse url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}
	return client, nil
}

// Load returns the persisted session, or nil when none is stored.
func (p *Persister) Load(ctx context.Context) (*credential.Session, error) {
	raw, err := p.client.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: get: %w", err)
	}

	var sess credential.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("redisstore: decode: %w", err)
	}
	return &sess, nil
}

// Save stores s. The key expires together with the session when it carries
// an expiry.
func (p *Persister) Save(ctx context.Context, s credential.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("redisstore: encode: %w", err)
	}

	var ttl time.Duration
	if !s.ExpiresAt.IsZero() {
		ttl = s.ExpiresAt.Sub(p.now())
		if ttl <= 0 {
			return p.Delete(ctx)
		}
	}
	if err := p.client.Set(ctx, p.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: set: %w", err)
	}
	return nil
}

// Delete removes the persisted session.
func (p *Persister) Delete(ctx context.Context) error {
	if err := p.client.Del(ctx, p.key).Err(); err != nil {
		return fmt.Errorf("redisstore: del: %w", err)
	}
	return nil
}
