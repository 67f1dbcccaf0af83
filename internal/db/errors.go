package db

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the row does not exist or is in the recycle bin
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict means the presented row_version is stale
	ErrVersionConflict = errors.New("row version conflict")
	// ErrLocked means the task is locked against edits
	ErrLocked = errors.New("task is locked")
	// ErrForbidden means the actor's capabilities do not cover the action
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidField means the request carried an unknown field or bad value
	ErrInvalidField = errors.New("invalid field")
)

// FieldError names the field that made a write invalid or forbidden
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }
