// Package apperr holds the error types shared by the session, data-access and
// task layers.
package apperr

import (
	"errors"
	"fmt"
)

// AuthenticationError is a rejected sign-in or sign-up. Message is shown to the user as-is.
type AuthenticationError struct {
	Message string
}

func (e AuthenticationError) Error() string {
	if e.Message == "" {
		return "authentication failed"
	}
	return e.Message
}

// ValidationError is a form field that failed validation before reaching the backend.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// DataAccessError wraps a failed row operation, keeping the backend message verbatim.
type DataAccessError struct {
	Op      string
	Message string
	Err     error
}

func (e DataAccessError) Error() string {
	return e.Message
}

func (e DataAccessError) Unwrap() error {
	return e.Err
}

// NewDataAccessError builds a DataAccessError whose message is err's message.
func NewDataAccessError(op string, err error) DataAccessError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return DataAccessError{Op: op, Message: msg, Err: err}
}

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// Message returns the user-facing text of err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var authErr AuthenticationError
	if errors.As(err, &authErr) {
		return authErr.Error()
	}
	var valErr ValidationError
	if errors.As(err, &valErr) {
		return valErr.Error()
	}
	var dataErr DataAccessError
	if errors.As(err, &dataErr) {
		return dataErr.Error()
	}
	return err.Error()
}
