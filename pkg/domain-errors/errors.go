// Package domainerrors defines the coded error taxonomy shared by services and
// transports. Stores return sentinel errors; services translate them into one of
// these codes with a human-readable message so raw collaborator errors never
// reach the UI layer.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure.
type Code string

const (
	// CodeIdentityConflict: stage 1 invoked for an email that already has an identity.
	CodeIdentityConflict Code = "identity_conflict"
	// CodeSequence: a stage was invoked without a valid prior identity in scope.
	CodeSequence Code = "sequence_error"
	// CodePersistenceFailure: a durable-store write failed.
	CodePersistenceFailure Code = "persistence_failure"
	// CodeEncodingExhausted: every candidate encoding and the fallback failed.
	CodeEncodingExhausted Code = "encoding_exhausted"
	// CodeUploadFailure: the object store rejected every candidate location.
	CodeUploadFailure Code = "upload_failure"

	CodeValidation   Code = "validation_error"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeInvalidState Code = "invalid_state"
	CodeInternal     Code = "internal"
	CodeRateLimited  Code = "rate_limited"
)

// Error carries a code, a user-facing message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error without an underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the outermost domain code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost domain message, or a generic message for
// errors that were never translated.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// HasCode reports whether any domain error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is reports whether the outermost domain error carries code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
