// Package apperr carries stable error kinds across component boundaries.
// Callers branch on the kind, never on error strings or stack traces.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

type Kind string

const (
	InvalidInput              Kind = "INVALID_INPUT"
	NotFound                  Kind = "NOT_FOUND"
	Conflict                  Kind = "CONFLICT"
	StorageError              Kind = "STORAGE_ERROR"
	EmbeddingUnavailable      Kind = "EMBEDDING_UNAVAILABLE"
	CategorizationUnavailable Kind = "CATEGORIZATION_UNAVAILABLE"
	ExtractionUnavailable     Kind = "EXTRACTION_UNAVAILABLE"
	Timeout                   Kind = "TIMEOUT"
	Canceled                  Kind = "CANCELED"
	Overloaded                Kind = "OVERLOADED"
	Unsupported               Kind = "UNSUPPORTED"
	Internal                  Kind = "INTERNAL"
)

// Error is an error with a stable kind tag and an optional cause chain.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
// A nil cause yields nil so call sites can wrap unconditionally.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf walks the cause chain and returns the outermost kind.
// Bare context errors map to Timeout/Canceled; anything else is Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	if errors.Is(err, context.Canceled) {
		return Canceled
	}
	return Internal
}

// IsKind reports whether the chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
