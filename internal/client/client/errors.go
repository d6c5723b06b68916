package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRejected     = errors.New("request rejected")
)

// APIError is the classified failure of a gateway call.
type APIError struct {
	Status  int
	Message string
	Kind    error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error { return e.Kind }

// Message returns the server-supplied message of err, or fallback when err
// carries none.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// MsgUnreachable is what users see for any ErrUnavailable failure.
const MsgUnreachable = "Server is unreachable, please try again"

// Describe renders err for a user: a generic retryable message when the
// server could not be reached, the server's own message otherwise, fallback
// when there is none.
func Describe(err error, fallback string) string {
	if errors.Is(err, ErrUnavailable) {
		return MsgUnreachable
	}
	return Message(err, fallback)
}
