// Package trial runs a write against an ordered list of candidate
// parameterizations, accepting the first one the remote store takes and falling
// back to a reduced-fidelity write only when every candidate is rejected.
//
// It exists for stores whose accepted values are not reliably known ahead of
// time: storage buckets that may or may not exist, categorical columns whose
// exact encoding is discovered by trial. Attempts run strictly in order and
// never in parallel; once a candidate succeeds later candidates are not tried.
//
// The attempt function must be retry-safe: a failed attempt may leave no
// residue in the target store. Callers whose store cannot guarantee that must
// wrap the attempt so it cleans up after itself.
package trial

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable is the cause reported by an always-failing fallback.
var ErrUnavailable = errors.New("fallback unavailable")

// Attempt records one failed candidate.
type Attempt struct {
	Candidate string
	Err       error
}

// DiagnosticError aggregates every per-candidate cause plus the fallback's
// cause. It is returned only when nothing succeeded.
type DiagnosticError struct {
	Operation   string
	Attempts    []Attempt
	FallbackErr error
}

func (e *DiagnosticError) Error() string {
	var b strings.Builder
	if e.Operation != "" {
		b.WriteString(e.Operation)
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "all %d candidates failed", len(e.Attempts))
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "; %q: %v", a.Candidate, a.Err)
	}
	if e.FallbackErr != nil {
		fmt.Fprintf(&b, "; fallback: %v", e.FallbackErr)
	}
	return b.String()
}

// Unwrap exposes every cause to errors.Is and errors.As.
func (e *DiagnosticError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts)+1)
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	if e.FallbackErr != nil {
		errs = append(errs, e.FallbackErr)
	}
	return errs
}

// Candidates lists the labels of every candidate attempted, in order.
func (e *DiagnosticError) Candidates() []string {
	out := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		out[i] = a.Candidate
	}
	return out
}

// Outcome describes a successful trial.
type Outcome[T any] struct {
	Value T
	// Index of the accepted candidate, or -1 when the fallback produced Value.
	Index        int
	Candidate    string
	UsedFallback bool
	// Failed holds the candidates rejected before the accepted one.
	Failed []Attempt
}

// Event is reported to observers after every attempt, including the fallback.
type Event struct {
	Operation string
	Candidate string
	Index     int
	Fallback  bool
	Err       error
}

type options struct {
	operation string
	observers []func(Event)
}

// Option configures a single TryInOrder call.
type Option func(*options)

// WithOperation names the trial in diagnostics and events.
func WithOperation(name string) Option {
	return func(o *options) {
		o.operation = name
	}
}

// WithObserver registers a callback invoked after each attempt.
func WithObserver(fn func(Event)) Option {
	return func(o *options) {
		if fn != nil {
			o.observers = append(o.observers, fn)
		}
	}
}

// Unavailable returns a fallback that always fails with reason. Use it when a
// reduced-fidelity write does not exist, so TryInOrder still reports one
// DiagnosticError covering every candidate.
func Unavailable[T any](reason string) func(context.Context) (T, error) {
	return func(context.Context) (T, error) {
		var zero T
		return zero, fmt.Errorf("%w: %s", ErrUnavailable, reason)
	}
}

// TryInOrder attempts candidates strictly in order and returns the first
// success. When every candidate fails it runs fallback; when the fallback fails
// too it returns a *DiagnosticError. A nil fallback behaves like Unavailable.
//
// A cancelled context stops the trial before the next attempt and skips the
// fallback; the context error is reported as the fallback cause.
func TryInOrder[P, T any](
	ctx context.Context,
	candidates []P,
	attempt func(context.Context, P) (T, error),
	fallback func(context.Context) (T, error),
	opts ...Option,
) (Outcome[T], error) {
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if fallback == nil {
		fallback = Unavailable[T]("no fallback configured")
	}

	var failed []Attempt
	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return Outcome[T]{}, &DiagnosticError{Operation: cfg.operation, Attempts: failed, FallbackErr: err}
		}
		label := fmt.Sprint(candidate)
		value, err := attempt(ctx, candidate)
		cfg.notify(Event{Operation: cfg.operation, Candidate: label, Index: i, Err: err})
		if err == nil {
			return Outcome[T]{Value: value, Index: i, Candidate: label, Failed: failed}, nil
		}
		failed = append(failed, Attempt{Candidate: label, Err: err})
	}

	if err := ctx.Err(); err != nil {
		return Outcome[T]{}, &DiagnosticError{Operation: cfg.operation, Attempts: failed, FallbackErr: err}
	}
	value, err := fallback(ctx)
	cfg.notify(Event{Operation: cfg.operation, Index: -1, Fallback: true, Err: err})
	if err != nil {
		return Outcome[T]{}, &DiagnosticError{Operation: cfg.operation, Attempts: failed, FallbackErr: err}
	}
	return Outcome[T]{Value: value, Index: -1, UsedFallback: true, Failed: failed}, nil
}

func (o options) notify(ev Event) {
	for _, fn := range o.observers {
		fn(ev)
	}
}
