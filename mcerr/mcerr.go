// Package mcerr defines the error taxonomy shared by every package in the
// Monte Carlo fitting engine.
package mcerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind distinguishes the small set of ways the engine can fail.
type Kind int

const (
	// ConfigInvalid marks a missing or out-of-range run/histogram option.
	ConfigInvalid Kind = iota
	// DataInvalid marks malformed measurement data.
	DataInvalid
	// IllConditioned marks a singular OSB normal matrix.
	IllConditioned
	// KernelFailure marks a kernel error or a non-finite kernel result.
	KernelFailure
	// ReloadMismatch marks a failed load-consistency check.
	ReloadMismatch
	// BinEdgeMismatch marks disagreeing bin edges across repetitions.
	BinEdgeMismatch
	// Cancelled marks cooperative cancellation of a repetition.
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case ConfigInvalid:
		return "ConfigInvalid"
	case DataInvalid:
		return "DataInvalid"
	case IllConditioned:
		return "IllConditioned"
	case KernelFailure:
		return "KernelFailure"
	case ReloadMismatch:
		return "ReloadMismatch"
	case BinEdgeMismatch:
		return "BinEdgeMismatch"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Error is the engine's single error type: a Kind a caller can switch on,
// plus the underlying cause (wrapped with a stack via pkg/errors so the
// root cause survives a few layers of propagation).
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New wraps cause under kind. cause may be nil.
func New(kind Kind, cause error) *Error {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &Error{Kind: kind, Cause: cause}
}

// Newf builds a cause from format/args and wraps it under kind.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return New(kind, fmt.Errorf(format, args...))
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
