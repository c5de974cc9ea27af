// Package errors defines all exported error sentinels for the nesthash library.
//
// This is the single source of truth for error values. Both the top-level
// nesthash package and internal table packages import from here,
// ensuring errors.Is checks work across package boundaries.
package errors

import "errors"

// Lookup errors
var (
	ErrNotFound = errors.New("nesthash: key not found")
)

// Insert errors
var (
	ErrFull = errors.New("nesthash: table is full")
)

// Construction errors
var (
	ErrInvalidLadder    = errors.New("nesthash: invalid capacity ladder")
	ErrInvalidTableSize = errors.New("nesthash: subtable size must be at least 2")
	ErrUnknownHash      = errors.New("nesthash: unknown hash strategy")
)
