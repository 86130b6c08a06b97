// Package mingledb is an embedded document store that keeps each collection
// in a single file. A collection file starts with a fixed magic header and a
// small JSON metadata block, followed by a sequence of frames: each frame is
// a little-endian length prefix and a compressed msgpack document.
//
// Inserts append one frame. Updates and deletes decode the whole collection,
// change the document list in memory and rewrite the file through a
// temporary file and an atomic rename. Reads always decode from disk; no
// documents are cached between calls.
//
// An optional per-collection schema enforces required fields, value types
// and uniqueness. Filters select documents by literal equality, regular
// expression, or comparison operators. A small identity layer stores
// credential records in the reserved _auth collection.
package mingledb

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic handling. Callers can use errors.Is to
// distinguish schema violations (ErrMissingRequiredField, ErrTypeMismatch,
// ErrDuplicateUniqueValue) from corruption (ErrCorruptHeader,
// ErrCorruptFrame, ErrTruncated).
var (
	ErrNotFound             = errors.New("document not found")
	ErrClosed               = errors.New("database is closed")
	ErrInvalidCollection    = errors.New("invalid collection name")
	ErrInvalidSchema        = errors.New("invalid schema")
	ErrInvalidFilter        = errors.New("invalid filter")
	ErrInvalidPattern       = errors.New("invalid regex pattern")
	ErrInvalidValue         = errors.New("unsupported value type")
	ErrCorruptHeader        = errors.New("corrupt collection header")
	ErrCorruptFrame         = errors.New("corrupt frame")
	ErrTruncated            = fmt.Errorf("%w: truncated", ErrCorruptFrame)
	ErrFrameTooLarge        = errors.New("frame exceeds maximum size")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrTypeMismatch         = errors.New("type mismatch")
	ErrDuplicateUniqueValue = errors.New("duplicate value for unique field")
	ErrUsernameExists       = errors.New("username already exists")
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// ValidationError reports the first schema rule a document violated.
// Kind is one of ErrMissingRequiredField, ErrTypeMismatch or
// ErrDuplicateUniqueValue, so errors.Is works against the sentinels.
type ValidationError struct {
	Kind  error
	Field string
	Want  Type // declared type, set for ErrTypeMismatch
}

func (e *ValidationError) Error() string {
	if e.Kind == ErrTypeMismatch {
		return fmt.Sprintf("validation: field %q must be of type %s", e.Field, e.Want)
	}
	return fmt.Sprintf("validation: field %q: %v", e.Field, e.Kind)
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}
