package types

import "errors"

// Domain errors shared across the tree and storage layers
var (
	// ErrPathConflict is returned when a path segment that must be a
	// directory already exists as a file
	ErrPathConflict = errors.New("path conflict")
	// ErrNotFound is returned when a requested node or snapshot doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrCorruptSnapshot is returned when persisted tree data cannot be
	// parsed or fails structural validation
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)
