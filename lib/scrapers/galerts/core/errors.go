package core

import (
	"errors"
	"fmt"
	"net/http"
)

// SignInFailed is returned when Google rejects the email/password pair.
var SignInFailed = errors.New("Failed to sign in to your Google account.")

// ErrParseFailure means the alerts page did not contain a window state
// blob in the shape this package understands. It usually signals a
// server-side schema change rather than a transient failure.
var ErrParseFailure = errors.New("unrecognized window state")

// ErrValidation means caller-supplied alert parameters violate a
// documented invariant. It is always raised before any network call.
var ErrValidation = errors.New("invalid alert parameters")

// UnexpectedResponseError is returned on any non-200 response. The full
// response is retained for diagnosis, nothing is retried internally.
type UnexpectedResponseError struct {
	Status  int
	Headers http.Header
	Body    []byte
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("unexpected response from google alerts: status %d", e.Status)
}

func parseFailuref(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParseFailure, fmt.Sprintf(format, args...))
}

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
