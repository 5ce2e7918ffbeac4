package access

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies every expected failure of the access layer.
type ErrorKind int

const (
	// KindInvalidCredentials: username/password rejected. Retryable by the user.
	KindInvalidCredentials ErrorKind = iota + 1
	// KindInvalidSecondFactor: one-time code rejected. Retryable within the attempt bound.
	KindInvalidSecondFactor
	// KindUnauthenticated: a privileged operation was called without a session.
	KindUnauthenticated
	// KindUnauthorized: the server rejected the credential. Requires a new login.
	KindUnauthorized
	// KindBadRequest: the payload was rejected. Not retryable without change.
	KindBadRequest
	// KindUnavailable: transport or server failure. Retryable with backoff.
	KindUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindInvalidSecondFactor:
		return "invalid_second_factor"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindUnauthorized:
		return "unauthorized"
	case KindBadRequest:
		return "bad_request"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is a classified failure returned by the client and the login flow.
type Error struct {
	Kind    ErrorKind
	Op      string // operation name, e.g. "create-review"
	Status  int    // HTTP status, 0 when no response was received
	Message string // server-supplied or local detail
	Err     error  // underlying cause, if any
}

func (e *Error) Error() string {
	msg := "access: "
	if e.Op != "" {
		msg += e.Op + ": "
	}
	msg += e.Kind.String()
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors by kind, so errors.Is(err, ErrUnauthorized)
// holds for any unauthorized failure regardless of operation.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Status == 0 && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidCredentials  = &Error{Kind: KindInvalidCredentials}
	ErrInvalidSecondFactor = &Error{Kind: KindInvalidSecondFactor}
	ErrUnauthenticated     = &Error{Kind: KindUnauthenticated}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
	ErrBadRequest          = &Error{Kind: KindBadRequest}
	ErrUnavailable         = &Error{Kind: KindUnavailable}
)

// KindOf returns the classification of err, or 0 if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Retryable reports whether the caller may safely retry with backoff.
func Retryable(err error) bool {
	return KindOf(err) == KindUnavailable
}

// UserMessage returns the text to show for err. Transport failures are never
// worded as credential problems.
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindInvalidCredentials:
		return "Invalid username or password."
	case KindInvalidSecondFactor:
		return "The verification code is incorrect."
	case KindUnauthenticated, KindUnauthorized:
		return "Your session has ended. Please sign in again."
	case KindBadRequest:
		var e *Error
		if errors.As(err, &e) && e.Message != "" {
			return e.Message
		}
		return "The request could not be processed."
	case KindUnavailable:
		return "The service is temporarily unavailable. Please try again shortly."
	default:
		return "Something went wrong."
	}
}

// classifyStatus maps a non-2xx HTTP status onto an ErrorKind for operations.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthorized
	case status >= 400 && status < 500:
		return KindBadRequest
	default:
		return KindUnavailable
	}
}
