package api

import (
	"errors"
	"fmt"
)

// ErrTransport wraps failures where no usable response was received:
// connection errors, cancelled contexts, undecodable bodies.
var ErrTransport = errors.New("task api unreachable")

// ConflictError is returned when the server rejects a write because the
// presented row_version is stale (HTTP 409).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	if e.Message == "" {
		return "version conflict"
	}
	return "version conflict: " + e.Message
}

// StatusError is any other non-2xx response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("task api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("task api returned status %d: %s", e.StatusCode, e.Message)
}

// IsConflict reports whether err is (or wraps) a *ConflictError and returns it.
func IsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsStatus reports whether err is (or wraps) a *StatusError and returns it.
func IsStatus(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
