// Package errors provides error handling for WDX.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Hints for user-facing messages
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrCorruptInput) {
//	    // the dump itself is broken, nothing to recover
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Combining. Join keeps every joined error visible to Is/As, unlike
// CombineErrors which demotes the second error to a hidden secondary.
var (
	Join = crdb.Join
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Structural failure sentinels. Any error wrapping one of these terminates
// the run; everything else is per-entity and is counted, not propagated.
// Use errors.Is() to check, errors.Wrap() to add context while keeping the type.
var (
	// ErrCorruptInput indicates malformed dump structure. The dump is assumed
	// to be a single well-formed sequence, so structural corruption is not
	// locally repairable and aborts the run.
	ErrCorruptInput = New("corrupt input")

	// ErrCacheIO indicates the resolution cache could not be read or written.
	// Fatal: silently losing cache durability would re-resolve every property
	// on every future run.
	ErrCacheIO = New("resolution cache I/O failure")

	// ErrSinkIO indicates an output sink write failed. Fatal: there is no
	// safe partial-write recovery once a sink append has gone wrong.
	ErrSinkIO = New("sink I/O failure")
)

// IsFatal reports whether err wraps one of the structural sentinels that
// must terminate the run.
func IsFatal(err error) bool {
	return err != nil && IsAny(err, ErrCorruptInput, ErrCacheIO, ErrSinkIO)
}

// WrapCorruptInput marks err as structural input corruption with context.
func WrapCorruptInput(err error, context string) error {
	return Wrap(Wrap(ErrCorruptInput, err.Error()), context)
}

// NewCorruptInputf creates a corrupt-input error with a formatted message.
func NewCorruptInputf(format string, args ...interface{}) error {
	return Wrap(ErrCorruptInput, Newf(format, args...).Error())
}

// WrapCacheIO marks err as a cache durability failure with context.
func WrapCacheIO(err error, context string) error {
	return Wrap(Wrap(ErrCacheIO, err.Error()), context)
}

// WrapSinkIO marks err as a sink write failure with context.
func WrapSinkIO(err error, context string) error {
	return Wrap(Wrap(ErrSinkIO, err.Error()), context)
}
