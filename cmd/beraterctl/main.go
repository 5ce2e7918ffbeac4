// Command beraterctl talks to the berater API from a terminal: it performs the
// two-step admin login and runs catalog operations with the right credential.
//
// Usage:
//
//	beraterctl [-session name] <command> [args]
//
// Commands: login, logout, whoami, catalog, offers <category>,
// berater [id], chat <sessionId>, analytics, init.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-envconfig"

	access "github.com/beraterhub/access-go"
	"github.com/beraterhub/access-go/audit"
	"github.com/beraterhub/access-go/credential"
	"github.com/beraterhub/access-go/credential/redisstore"
	"github.com/beraterhub/access-go/internal/config"
	"github.com/beraterhub/access-go/login"
	"github.com/beraterhub/access-go/metrics"
)

// maxPrimaryTries bounds password prompts in one interactive login.
const maxPrimaryTries = 3

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], envconfig.OsLookuper(), os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "beraterctl:", message(err))
		os.Exit(1)
	}
}

type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *credential.Store
	client  *access.Client
	metrics *metrics.Metrics
	auditor *audit.Logger
	redis   *redis.Client

	in     *bufio.Scanner
	out    io.Writer
	prompt io.Writer
}

func run(ctx context.Context, args []string, env envconfig.Lookuper, in io.Reader, out, errOut io.Writer) error {
	fs := flag.NewFlagSet("beraterctl", flag.ContinueOnError)
	fs.SetOutput(errOut)
	sessionName := fs.String("session", "default", "name of the persisted session (with REDIS_URL)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	cfg, err := config.LoadFrom(ctx, env)
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(errOut, cfg.LogLevel)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger, *sessionName)
	if err != nil {
		return err
	}
	defer a.close()
	a.in = bufio.NewScanner(in)
	a.out = out
	a.prompt = errOut

	return a.dispatch(ctx, fs.Arg(0), fs.Args()[1:])
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, sessionName string) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	reg := prometheus.NewRegistry()
	a.metrics = metrics.New(reg)
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, reg, logger)
	}

	storeOpts := []credential.Option{
		credential.WithLogger(logger),
		credential.WithInvalidationHook(func(_ credential.Session, r credential.Reason) {
			if a.prompt != nil && (r == credential.ReasonRejected || r == credential.ReasonExpired) {
				fmt.Fprintf(a.prompt, "session %s, sign in again\n", r)
			}
		}),
	}
	if cfg.RedisURL != "" {
		rc, err := redisstore.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.redis = rc
		storeOpts = append(storeOpts, credential.WithPersister(redisstore.New(rc, sessionName)))
	}

	store, err := credential.NewStore(cfg.AnonKey, storeOpts...)
	if err != nil {
		a.close()
		return nil, err
	}
	if restored, err := store.Restore(ctx); err != nil {
		logger.Warn("could not restore session", "error", err)
	} else if restored {
		logger.Debug("session restored", "session", sessionName)
	}
	a.store = store

	client, err := access.NewClient(
		access.Config{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout, UserAgent: cfg.UserAgent},
		store,
		access.WithLogger(logger),
		access.WithRecorder(a.metrics),
	)
	if err != nil {
		a.close()
		return nil, err
	}
	a.client = client
	a.auditor = audit.New(0, audit.WithSlogHandler(logger))
	return a, nil
}

func (a *app) close() {
	if a.auditor != nil {
		_ = a.auditor.Close()
	}
	if a.client != nil {
		_ = a.client.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		_, err := a.login(ctx)
		if err == nil {
			fmt.Fprintln(a.prompt, "signed in")
		}
		return err
	case "logout":
		a.client.Logout()
		return nil
	case "whoami":
		sess, ok := a.store.Session()
		if !ok {
			return errors.New("not signed in")
		}
		return a.print(map[string]any{
			"userId":    sess.UserID,
			"role":      sess.Role,
			"expiresAt": sess.ExpiresAt,
		})
	case "catalog":
		ops := access.Catalog()
		rows := make([]map[string]string, len(ops))
		for i, op := range ops {
			rows[i] = map[string]string{"name": op.Name, "method": op.Method, "path": op.Path, "credential": op.Scope.String()}
		}
		return a.print(rows)
	case "offers":
		if len(args) != 1 {
			return errors.New("usage: offers <category>")
		}
		return a.result(a.client.GetOffers(ctx, args[0]))
	case "berater":
		if len(args) == 1 {
			return a.result(a.client.GetBerater(ctx, args[0]))
		}
		return a.result(a.client.ListBerater(ctx))
	case "chat":
		if len(args) != 1 {
			return errors.New("usage: chat <sessionId>")
		}
		return a.result(a.client.GetChatHistory(ctx, args[0]))
	case "analytics":
		if err := a.ensureSession(ctx); err != nil {
			return err
		}
		return a.result(a.client.GetAnalytics(ctx))
	case "init":
		return a.result(a.client.InitializeSystem(ctx))
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// ensureSession runs the interactive login when no session is active.
func (a *app) ensureSession(ctx context.Context) error {
	if _, ok := a.store.Session(); ok {
		return nil
	}
	_, err := a.login(ctx)
	return err
}

func (a *app) login(ctx context.Context) (credential.Session, error) {
	flow := login.New(a.client, a.store,
		login.WithLogger(a.logger),
		login.WithAuditor(a.auditor),
		login.WithRecorder(a.metrics),
	)

	for try := 1; ; try++ {
		username, err := a.ask("Username: ")
		if err != nil {
			return credential.Session{}, err
		}
		password, err := a.ask("Password: ")
		if err != nil {
			return credential.Session{}, err
		}
		err = flow.SubmitPrimary(ctx, username, password)
		if err == nil {
			break
		}
		if access.KindOf(err) != access.KindInvalidCredentials || try == maxPrimaryTries {
			return credential.Session{}, err
		}
		fmt.Fprintln(a.prompt, access.UserMessage(err))
	}

	for {
		code, err := a.ask("Verification code: ")
		if err != nil {
			flow.Abandon()
			return credential.Session{}, err
		}
		sess, err := flow.SubmitSecondFactor(ctx, code)
		if err == nil {
			return sess, nil
		}
		if access.KindOf(err) != access.KindInvalidSecondFactor || flow.State() == login.Failed {
			return credential.Session{}, err
		}
		fmt.Fprintf(a.prompt, "%s (%d attempts left)\n", access.UserMessage(err), flow.RemainingSecondFactorAttempts())
	}
}

func (a *app) ask(prompt string) (string, error) {
	fmt.Fprint(a.prompt, prompt)
	if !a.in.Scan() {
		if err := a.in.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(a.in.Text()), nil
}

func (a *app) result(v any, err error) error {
	if err != nil {
		return err
	}
	return a.print(v)
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// message renders err for the terminal. Classified failures use the
// user-facing wording; everything else is shown as is.
func message(err error) string {
	if access.KindOf(err) != 0 {
		return access.UserMessage(err)
	}
	return err.Error()
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server stopped", "error", err)
	}
}
