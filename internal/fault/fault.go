// Package fault defines the error taxonomy shared by the FinRAG pipeline
// stages. Every expected failure mode is represented as a typed error value
// carrying a [Kind], so callers can branch on the class of failure with
// [IsKind] instead of matching message text.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline error.
type Kind string

const (
	// Validation means a required input was missing or malformed before any
	// work was attempted (no PageMap for a page-based method, no file path
	// for a file-based parse, missing vector_dimension, absent API key).
	Validation Kind = "validation"

	// UnsupportedMethod means an unknown strategy key was requested.
	UnsupportedMethod Kind = "unsupported_method"

	// Format means an external artifact (embedding file, LLM JSON response)
	// could not be decoded. Nothing is persisted when a Format error occurs.
	Format Kind = "format"

	// External means a call to an external capability (embedding, generation,
	// vector store, extraction) failed and the failure was not downgraded.
	External Kind = "external"
)

// Error is a classified pipeline error. It wraps an optional cause so that
// errors.Is / errors.As keep working through the classification layer.
type Error struct {
	// Kind is the failure class.
	Kind Kind
	// Msg is the human-readable description.
	Msg string
	// Err is the wrapped cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// New constructs a classified error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error. A nil err yields nil.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// IsKind reports whether err (or anything it wraps) is a classified error of
// the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}
