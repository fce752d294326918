package model

import "errors"

var (
	// ErrNotFound indicates an unknown session, role or memory.
	ErrNotFound = errors.New("not found")

	// ErrInvalidPattern indicates a custom trigger that is not a valid
	// regular expression.
	ErrInvalidPattern = errors.New("invalid trigger pattern")

	// ErrProviderDegraded indicates an embedding or completion provider call
	// failed and the result was produced without it.
	ErrProviderDegraded = errors.New("provider degraded")

	// ErrConflict indicates an id that is already taken.
	ErrConflict = errors.New("already exists")

	// ErrDefaultRole indicates an attempt to modify a built-in role.
	ErrDefaultRole = errors.New("default roles are read-only")

	// ErrInvalidInput indicates a request that failed validation.
	ErrInvalidInput = errors.New("invalid input")
)
