package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrParseFailure marks a stored blob that could not be decoded.
	ErrParseFailure = errors.New("parse failure")
	// ErrStoreUnavailable marks an I/O failure from the object store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInvariantViolation marks data corruption, e.g. a Task whose
	// owning Program is missing. Distinct from an expected absence.
	ErrInvariantViolation = errors.New("invariant violation")
)
