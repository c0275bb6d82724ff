package chainbase

import (
	"fmt"
)

// NotFoundError is returned by Get when no record exists for the given id.
type NotFoundError struct {
	ID RecordID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("chainbase: record not found: %d", uint64(e.ID))
}

// UniquenessViolationError is returned by Emplace when the derived
// uniqueness key of the built record collides with an existing record.
type UniquenessViolationError struct {
	Key string
}

func (e *UniquenessViolationError) Error() string {
	return fmt.Sprintf("chainbase: uniqueness violation on key %q", e.Key)
}

// InvalidStateError is returned by SetRevision when the undo stack is not
// empty.
type InvalidStateError struct {
	Msg string
}

func (e *InvalidStateError) Error() string {
	return "chainbase: invalid state: " + e.Msg
}

// OutOfRangeError is returned by SetRevision when the requested revision
// exceeds the positive range of the signed revision counter.
type OutOfRangeError struct {
	Value uint64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("chainbase: revision %d is out of range", e.Value)
}

// ReadOnlyViolationError is returned by any write operation invoked on a
// Database opened in read-only mode.
type ReadOnlyViolationError struct{}

func (e *ReadOnlyViolationError) Error() string {
	return "chainbase: write attempted on a read-only database"
}

// CorruptedStateError is returned when an index being added to a Database
// has an undo-stack revision range inconsistent with the database's
// existing indexes, and isn't a freshly-added empty index that could be
// auto-aligned.
type CorruptedStateError struct {
	Msg string
}

func (e *CorruptedStateError) Error() string {
	return "chainbase: corrupted state: " + e.Msg
}

// AdapterError wraps a non-OK status returned by the underlying key/value
// store adapter.
type AdapterError struct {
	Op  string
	Err error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("chainbase: adapter %s: %v", e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

func wrapAdapterErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &AdapterError{Op: op, Err: err}
}

// fatalError is implemented by values panicked for class-2 (fatal, per
// spec.md §7) conditions: a uniqueness collision encountered while
// applying modify's mutator, or while replaying pre-images during Undo.
// These denote a broken invariant; the source aborts the process, and a
// panic here must not be recovered and treated as an ordinary error.
type fatalError interface {
	error
	fatal()
}

type corruptionError struct {
	msg string
}

func (e *corruptionError) Error() string { return "chainbase: FATAL: " + e.msg }
func (e *corruptionError) fatal()        {}

func abortCorruption(format string, args ...any) {
	panic(&corruptionError{msg: fmt.Sprintf(format, args...)})
}

// IsFatal reports whether a value recovered from a panic originated from
// this package's fatal-abort path (a uniqueness collision during modify
// or undo replay). It exists so a host process can distinguish "this
// process is corrupted, log and exit" from an ordinary panic while still
// not offering a way to continue running past it.
func IsFatal(recovered any) bool {
	_, ok := recovered.(fatalError)
	return ok
}
