package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a removal targets a document that does
	// not exist in the store.
	ErrNotFound = errors.New("no matching document")

	// ErrDegenerateQuery is returned when a zero-norm vector is supplied
	// where cosine normalization is required. The score would be a division
	// by zero, so it is reported instead of silently computed.
	ErrDegenerateQuery = errors.New("degenerate query: zero-norm vector")

	// ErrEmptyVector is returned when an empty vector is inserted or queried.
	ErrEmptyVector = errors.New("vector must not be empty")

	// ErrCorruptData is returned when a snapshot fails structural
	// validation. No partial store is ever returned alongside it.
	ErrCorruptData = errors.New("corrupt snapshot data")
)

// ErrDimensionMismatch indicates a vector whose length disagrees with the
// store's fixed dimensionality.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrIndexOutOfRange indicates a removal targeting an index outside the
// store's current bounds.
type ErrIndexOutOfRange struct {
	Index int
	Size  int
}

func (e *ErrIndexOutOfRange) Error() string {
	return fmt.Sprintf("index %d out of range for store of size %d", e.Index, e.Size)
}

// ErrUnsupportedVersion indicates a snapshot whose declared format version
// is not recognized by this build.
type ErrUnsupportedVersion struct {
	Version uint16
}

func (e *ErrUnsupportedVersion) Error() string {
	return fmt.Sprintf("unsupported snapshot format version %d", e.Version)
}

// Unwrap lets unsupported-version errors satisfy errors.Is(err, ErrCorruptData).
func (e *ErrUnsupportedVersion) Unwrap() error { return ErrCorruptData }
