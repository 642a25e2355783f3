package store

import "errors"

// Common errors returned by store operations.
//
// Expected failure modes surface as wrapped sentinel errors, checkable
// with errors.Is():
//
//	if errors.Is(err, store.ErrNotFound) {
//	    // entity has no backing file
//	}
var (
	// ErrNotFound is returned when no file backs the requested
	// project or task id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidID is returned when an id resolves outside the
	// workspace root or produces an empty slug.
	ErrInvalidID = errors.New("invalid identifier")

	// ErrMutualDependency is returned when linking two tasks would
	// make them directly depend on each other.
	ErrMutualDependency = errors.New("mutual dependency")

	// ErrSubtaskIndex is returned when a toggle addresses a subtask
	// index that does not exist.
	ErrSubtaskIndex = errors.New("subtask index out of range")
)
