// Package sentinel holds the infrastructure facts stores report. Stores
// return them, possibly wrapped; services translate them into domain-errors
// codes and never pass them to the transport.
//
// Input validation does not belong here; use pkg/domain-errors directly.
package sentinel

import "errors"

var (
	// ErrNotFound: no row or object for the key.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a uniqueness constraint refused the write.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable: the backend timed out, was cancelled or is unreachable.
	ErrUnavailable = errors.New("unavailable")
	// ErrRejected: the store refused a value (enum, check or not-null constraint).
	// Transaction stores return it for an unknown payment-mode encoding.
	ErrRejected = errors.New("rejected by store")
)
