// Package config loads command configuration from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Config is the configuration of beraterctl.
type Config struct {
	BaseURL   string        `env:"BERATER_BASE_URL, required"`
	AnonKey   string        `env:"BERATER_ANON_KEY, required"`
	Timeout   time.Duration `env:"BERATER_TIMEOUT, default=10s"`
	UserAgent string        `env:"BERATER_USER_AGENT, default=beraterctl"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`

	// RedisURL enables session persistence when set.
	RedisURL string `env:"REDIS_URL"`
	// MetricsAddr serves /metrics when set.
	MetricsAddr string `env:"METRICS_ADDR"`
}

// FakeConfig is the configuration of fakeapi.
type FakeConfig struct {
	Addr     string `env:"FAKE_ADDR, default=:8081"`
	AnonKey  string `env:"BERATER_ANON_KEY, default=fake-anon-key"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	AdminUser     string `env:"FAKE_ADMIN_USER, default=admin"`
	AdminPassword string `env:"FAKE_ADMIN_PASSWORD, default=correct"`
	AdminCode     string `env:"FAKE_ADMIN_CODE, default=123456"`
}

// Load reads Config from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads Config from l.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("config: BERATER_TIMEOUT must be positive, got %s", cfg.Timeout)
	}
	return &cfg, nil
}

// LoadFake reads FakeConfig from l.
func LoadFake(ctx context.Context, l envconfig.Lookuper) (*FakeConfig, error) {
	var cfg FakeConfig
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// LoadDotEnv loads variables from the given files (default ".env") into the
// process environment. Missing files are not an error; variables already set
// win over file values.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return nil
}

// ParseLevel maps a level name onto a slog.Level. Unknown names are an error.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: invalid LOG_LEVEL %q", s)
	}
	return level, nil
}

// NewLogger returns a JSON logger writing to w at level.
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	l, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: l})), nil
}
