// Package apperr defines the error taxonomy shared by the client stores.
package apperr

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Kind classifies a failure.
type Kind int

const (
	// Internal is a failure that fits no other kind (bad payload, encoding).
	Internal Kind = iota

	// Validation is a 4xx response other than 401.
	Validation

	// Authentication is a 401 response.
	Authentication

	// SessionInvalid means the session could not be verified: the
	// credential is absent, expired or rejected by /auth/me.
	SessionInvalid

	// NotAuthenticated is a local precondition failure; no request was sent.
	NotAuthenticated

	// Network means no response was received.
	Network
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Authentication:
		return "authentication"
	case SessionInvalid:
		return "session invalid"
	case NotAuthenticated:
		return "not authenticated"
	case Network:
		return "network"
	default:
		return "internal"
	}
}

// Error is the typed result of a failed store action.
type Error struct {
	Kind    Kind
	Op      string // store action, e.g. "fetchTasks"
	Message string // user-facing text
	Status  int    // HTTP status, 0 when no response was received
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error without an underlying cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// MsgNotAuthenticated is the precondition failure message used by stores
// that require an authenticated session.
const MsgNotAuthenticated = "Not authenticated. Please log in."

// FromHTTP classifies an error returned by the HTTP adapter.
// message is the server-provided message when there is one, otherwise
// fallback. Network failures always carry fallback.
func FromHTTP(op string, err error, fallback string) *Error {
	if err == nil {
		return nil
	}

	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" {
			msg = fallback
		}
		kind := Validation
		switch {
		case gerr.Code == http.StatusUnauthorized:
			kind = Authentication
		case gerr.Code >= 500:
			kind = Internal
		}
		return &Error{Kind: kind, Op: op, Message: msg, Status: gerr.Code, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: Network, Op: op, Message: fallback, Err: err}
	}

	var ne interface{ NetworkFailure() bool }
	if errors.As(err, &ne) && ne.NetworkFailure() {
		return &Error{Kind: Network, Op: op, Message: fallback, Err: err}
	}

	return &Error{Kind: Internal, Op: op, Message: fallback, Err: err}
}

// KindOf returns the Kind of err, or Internal if err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// IsUnauthorized reports whether err came from a 401 response.
func IsUnauthorized(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Status == http.StatusUnauthorized
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusUnauthorized
	}
	return false
}
