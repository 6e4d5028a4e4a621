package microvector

import (
	"errors"

	"github.com/loganpowell/microvector/store"
)

var (
	// ErrEmptyTerm is returned when a search term is empty or whitespace.
	ErrEmptyTerm = errors.New("search term is empty")

	// ErrNotFound indicates that no stored document matched.
	ErrNotFound = store.ErrNotFound

	// ErrDegenerateQuery indicates a zero-magnitude query under a metric
	// that requires normalization.
	ErrDegenerateQuery = store.ErrDegenerateQuery

	// ErrCorruptData indicates an unreadable or inconsistent snapshot.
	ErrCorruptData = store.ErrCorruptData
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
type ErrDimensionMismatch = store.ErrDimensionMismatch

// ErrIndexOutOfRange indicates a positional reference outside the store.
type ErrIndexOutOfRange = store.ErrIndexOutOfRange
