// Package exitcode defines exit codes for the CLI.
package exitcode

import "taskmate/internal/apperr"

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, not found, rejected input).
	UserError = 1

	// AuthError indicates a missing, rejected or expired session.
	AuthError = 2

	// BackendError indicates a server, network or internal error.
	BackendError = 3
)

// FromError maps a store error to an exit code. nil is Success.
func FromError(err error) int {
	if err == nil {
		return Success
	}
	switch apperr.KindOf(err) {
	case apperr.Validation:
		return UserError
	case apperr.Authentication, apperr.SessionInvalid, apperr.NotAuthenticated:
		return AuthError
	default:
		return BackendError
	}
}
