package authapi

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated indicates the whoami endpoint did not confirm a session
var ErrNotAuthenticated = errors.New("no authenticated session")

// ErrMalformedIdentity indicates the whoami endpoint answered 2xx with a body
// that is not a usable identity
var ErrMalformedIdentity = errors.New("malformed whoami response")

// RejectedError represents a non-2xx answer from a login or register call.
// Reason is the server supplied explanation, empty when the body carried none.
type RejectedError struct {
	StatusCode int
	Reason     string
}

func (e *RejectedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("request rejected: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("request rejected: HTTP %d: %s", e.StatusCode, e.Reason)
}

// TransportError means no response was obtained at all
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err (or anything it wraps) is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
