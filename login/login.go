// Package login drives the two-step administrator login: password first, then
// a six digit one-time code, then a session installed in the credential store.
//
// A Flow is one login attempt. It is safe for concurrent use, but only one
// submission is ever in flight; a second one is rejected with ErrBusy rather
// than queued. Calls made in the wrong state fail with ErrOutOfOrder before
// any network I/O.
package login

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	access "github.com/beraterhub/access-go"
	"github.com/beraterhub/access-go/audit"
	"github.com/beraterhub/access-go/credential"
)

// DefaultMaxSecondFactorAttempts bounds consecutive rejected codes per attempt.
const DefaultMaxSecondFactorAttempts = 5

// CodeLength is the length of the one-time code.
const CodeLength = 6

// State is the stage of a login attempt.
type State int

const (
	AwaitingPrimary State = iota
	AwaitingSecondFactor
	Complete
	Failed
)

func (s State) String() string {
	switch s {
	case AwaitingPrimary:
		return "awaiting_primary"
	case AwaitingSecondFactor:
		return "awaiting_second_factor"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further submissions are accepted.
func (s State) Terminal() bool { return s == Complete || s == Failed }

// Misuse and lifecycle errors. These are not part of the access error
// taxonomy: ErrOutOfOrder and ErrBusy indicate a caller bug.
var (
	ErrOutOfOrder        = errors.New("login: call not allowed in current state")
	ErrBusy              = errors.New("login: a submission is already in flight")
	ErrAbandoned         = errors.New("login: attempt was abandoned")
	ErrAttemptsExhausted = errors.New("login: second factor attempts exhausted")
)

// Authenticator performs the two login round trips. *access.Client
// implements it.
type Authenticator interface {
	SubmitPrimary(ctx context.Context, username, password string) (access.Challenge, error)
	VerifySecondFactor(ctx context.Context, ch access.Challenge, code string) (credential.Session, error)
}

// Recorder receives state transitions. *metrics.Metrics implements it.
type Recorder interface {
	ObserveLoginTransition(from, to string)
}

// Flow is one login attempt.
type Flow struct {
	auth            Authenticator
	store           *credential.Store
	logger          *slog.Logger
	auditor         *audit.Logger
	recorder        Recorder
	onAuthenticated func(credential.Session)
	maxAttempts     int

	mu        sync.Mutex
	state     State
	attemptID string
	inFlight  bool
	username  string
	challenge access.Challenge
	failures  int
}

// Option configures a Flow.
type Option func(*Flow)

// WithMaxSecondFactorAttempts sets how many consecutive rejected codes move
// the flow to Failed. Values below 1 are ignored.
func WithMaxSecondFactorAttempts(n int) Option {
	return func(f *Flow) {
		if n >= 1 {
			f.maxAttempts = n
		}
	}
}

// WithLogger sets a structured logger for the flow.
func WithLogger(l *slog.Logger) Option {
	return func(f *Flow) { f.logger = l }
}

// WithAuditor emits audit events for every submission.
func WithAuditor(a *audit.Logger) Option {
	return func(f *Flow) { f.auditor = a }
}

// WithRecorder sets the metrics sink for state transitions.
func WithRecorder(r Recorder) Option {
	return func(f *Flow) { f.recorder = r }
}

// WithOnAuthenticated registers the terminal "authenticated" callback. It runs
// after the session is installed and outside the flow's lock.
func WithOnAuthenticated(fn func(credential.Session)) Option {
	return func(f *Flow) { f.onAuthenticated = fn }
}

// New creates a login attempt in AwaitingPrimary.
func New(auth Authenticator, store *credential.Store, opts ...Option) *Flow {
	f := &Flow{
		auth:        auth,
		store:       store,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxAttempts: DefaultMaxSecondFactorAttempts,
		state:       AwaitingPrimary,
		attemptID:   uuid.NewString(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// State returns the current stage.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// AttemptID identifies the current attempt. It changes on Abandon.
func (f *Flow) AttemptID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attemptID
}

// Pending reports whether a submission is in flight.
func (f *Flow) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// RemainingSecondFactorAttempts returns how many more codes may be rejected
// before the flow fails.
func (f *Flow) RemainingSecondFactorAttempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxAttempts - f.failures
}

// SubmitPrimary sends username and password. On acceptance the flow moves to
// AwaitingSecondFactor. A rejection keeps it in AwaitingPrimary and returns an
// error of kind access.KindInvalidCredentials; the attempt may be retried.
func (f *Flow) SubmitPrimary(ctx context.Context, username, password string) error {
	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return ErrBusy
	}
	if f.state != AwaitingPrimary {
		state := f.state
		f.mu.Unlock()
		return fmt.Errorf("%w: SubmitPrimary in %s", ErrOutOfOrder, state)
	}
	if username == "" || password == "" {
		f.mu.Unlock()
		return &access.Error{Kind: access.KindInvalidCredentials, Op: "login-primary", Message: "username and password are required"}
	}
	f.inFlight = true
	attempt := f.attemptID
	f.mu.Unlock()

	ch, err := f.auth.SubmitPrimary(ctx, username, password)

	f.mu.Lock()
	if f.attemptID != attempt {
		f.mu.Unlock()
		f.logger.Debug("dropping primary result of abandoned attempt", "attempt_id", attempt)
		return ErrAbandoned
	}
	f.inFlight = false

	if err != nil {
		err = classify("login-primary", err)
		ev := f.event(ctx, audit.ActionPrimary, username, err)
		f.mu.Unlock()
		f.publish(ev)
		f.logger.Info("primary authentication rejected", "attempt_id", attempt, "kind", access.KindOf(err))
		return err
	}

	f.username = username
	f.challenge = ch
	f.transition(AwaitingSecondFactor)
	ev := f.event(ctx, audit.ActionPrimary, username, nil)
	f.mu.Unlock()
	f.publish(ev)
	return nil
}

// SubmitSecondFactor sends the one-time code. On acceptance the session is
// installed in the credential store, the flow moves to Complete and the
// session is returned. A rejected code keeps the flow in AwaitingSecondFactor
// until the attempt bound is reached, after which the flow is Failed and the
// error also matches ErrAttemptsExhausted.
func (f *Flow) SubmitSecondFactor(ctx context.Context, code string) (credential.Session, error) {
	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return credential.Session{}, ErrBusy
	}
	if f.state != AwaitingSecondFactor {
		state := f.state
		f.mu.Unlock()
		return credential.Session{}, fmt.Errorf("%w: SubmitSecondFactor in %s", ErrOutOfOrder, state)
	}
	if !validCode(code) {
		f.mu.Unlock()
		return credential.Session{}, &access.Error{
			Kind:    access.KindInvalidSecondFactor,
			Op:      "login-verify",
			Message: fmt.Sprintf("code must be %d digits", CodeLength),
		}
	}
	f.inFlight = true
	attempt := f.attemptID
	ch := f.challenge
	username := f.username
	f.mu.Unlock()

	sess, err := f.auth.VerifySecondFactor(ctx, ch, code)

	f.mu.Lock()
	if f.attemptID != attempt {
		f.mu.Unlock()
		f.logger.Debug("dropping verification result of abandoned attempt", "attempt_id", attempt)
		return credential.Session{}, ErrAbandoned
	}
	f.inFlight = false

	if err != nil {
		err = classify("login-verify", err)
		if access.KindOf(err) == access.KindInvalidSecondFactor {
			f.failures++
			if f.failures >= f.maxAttempts {
				f.clear()
				f.transition(Failed)
				err = fmt.Errorf("%w: %w", ErrAttemptsExhausted, err)
			}
		}
		ev := f.event(ctx, audit.ActionSecondFactor, username, err)
		f.mu.Unlock()
		f.publish(ev)
		return credential.Session{}, err
	}

	if err := f.store.Begin(sess); err != nil {
		f.mu.Unlock()
		return credential.Session{}, &access.Error{Kind: access.KindUnavailable, Op: "login-verify", Message: "install session", Err: err}
	}
	f.clear()
	f.transition(Complete)
	ev := f.event(ctx, audit.ActionSecondFactor, username, nil)
	ev.Role = string(sess.Role)
	cb := f.onAuthenticated
	f.mu.Unlock()
	f.publish(ev)

	if cb != nil {
		cb(sess)
	}
	return sess, nil
}

// Abandon discards everything the attempt holds and starts a fresh one in
// AwaitingPrimary. Results of submissions still in flight are dropped. A
// completed flow is left untouched: its session already belongs to the store.
func (f *Flow) Abandon() {
	f.mu.Lock()
	if f.state == Complete {
		f.mu.Unlock()
		return
	}

	prev := f.attemptID
	ev := f.event(context.Background(), audit.ActionAbandon, f.username, nil)
	f.clear()
	f.inFlight = false
	f.failures = 0
	f.attemptID = uuid.NewString()
	if f.state != AwaitingPrimary {
		f.transition(AwaitingPrimary)
	}
	f.mu.Unlock()

	f.publish(ev)
	f.logger.Debug("login attempt abandoned", "attempt_id", prev)
}

// clear drops the in-memory login inputs. Caller holds mu.
func (f *Flow) clear() {
	f.username = ""
	f.challenge = access.Challenge{}
}

// transition moves to next. Caller holds mu.
func (f *Flow) transition(next State) {
	prev := f.state
	f.state = next
	if f.recorder != nil {
		f.recorder.ObserveLoginTransition(prev.String(), next.String())
	}
	f.logger.Info("login state changed", "attempt_id", f.attemptID, "from", prev, "to", next)
}

// event builds the audit record of a submission. Caller holds mu; the record
// is published with publish after mu is released.
func (f *Flow) event(ctx context.Context, action, username string, err error) audit.Event {
	ev := audit.Event{
		RequestID: access.RequestIDFromContext(ctx),
		AttemptID: f.attemptID,
		Username:  username,
		Action:    action,
		Result:    audit.ResultSuccess,
	}
	if err != nil {
		ev.Result = audit.ResultRejected
		if !isRejection(err) {
			ev.Result = audit.ResultFailure
		}
		ev.Error = access.KindOf(err).String()
		if errors.Is(err, ErrAttemptsExhausted) {
			ev.Details = "attempts exhausted"
		}
	}
	return ev
}

// publish hands ev to the auditor. It may block while the audit queue is
// full, so it never runs under mu.
func (f *Flow) publish(ev audit.Event) {
	if f.auditor != nil {
		f.auditor.Log(ev)
	}
}

// classify guarantees the error leaving the flow is an *access.Error.
func classify(op string, err error) error {
	if access.KindOf(err) != 0 {
		return err
	}
	return &access.Error{Kind: access.KindUnavailable, Op: op, Err: err}
}

func isRejection(err error) bool {
	switch access.KindOf(err) {
	case access.KindInvalidCredentials, access.KindInvalidSecondFactor:
		return true
	}
	return false
}

func validCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
