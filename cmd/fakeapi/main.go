// Command fakeapi serves the in-memory berater API for local development.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sethvargo/go-envconfig"

	"github.com/beraterhub/access-go/credential"
	"github.com/beraterhub/access-go/fake"
	"github.com/beraterhub/access-go/internal/config"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.LoadFake(context.Background(), envconfig.OsLookuper())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := config.NewLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	backend := fake.NewBackend(
		fake.WithAnonKey(cfg.AnonKey),
		fake.WithUser(cfg.AdminUser, cfg.AdminPassword, cfg.AdminCode, credential.RoleAdmin),
		fake.WithLogger(logger),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           backend.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("fake berater API listening", "addr", cfg.Addr, "admin", cfg.AdminUser)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown error", "error", err)
	}
}
