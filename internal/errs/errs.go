// Package errs defines the error taxonomy shared across engram's internal
// packages. Components wrap lower-level errors into an Error with a Kind so
// callers can branch on failure class with errors.Is/errors.As without
// depending on package-specific sentinel values.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error into a handling-relevant bucket.
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindInvalidInput  Kind = "invalid_input"
	KindConflict      Kind = "conflict"
	KindUnavailable   Kind = "unavailable"
	KindPermission    Kind = "permission"
	KindInternal      Kind = "internal"
	KindBlocked       Kind = "blocked" // safety gate refused the operation
)

// Error is the common wrapper used across engram packages.
type Error struct {
	Kind Kind
	Op   string // the operation that failed, e.g. "pipeline.Ingest"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error with the given kind, operation label and cause.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrap is a convenience for New(KindInternal, op, err). Returns nil if err is nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return &Error{Kind: e.Kind, Op: op + ": " + e.Op, Err: e.Err}
	}
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
