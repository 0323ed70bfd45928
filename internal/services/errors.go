package services

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials is returned for both unknown-username and
// wrong-password logins. The two cases must stay indistinguishable to the
// caller (anti-enumeration).
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError marks malformed or missing input, optionally tagged with
// the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConflictError marks a duplicate unique field. The field tag lets the
// client highlight the right input.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("an account with this %s already exists", e.Field)
}

// PreconditionError marks a programming-contract violation, e.g. asking to
// provision an account with no identity. Not recoverable per request.
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string {
	return e.Message
}
