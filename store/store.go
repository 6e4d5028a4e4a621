// Package store implements the in-memory vector store: an ordered collection
// of (vector, document) pairs with a fixed dimensionality, metric-aware
// normalization, exact brute-force top-k search, and a versioned compressed
// snapshot format.
package store

import (
	"fmt"
	"slices"
	"sort"

	"github.com/loganpowell/microvector/document"
	"github.com/loganpowell/microvector/metric"
)

// Store owns an ordered sequence of (vector, document) pairs.
//
// Every vector has the same length. For cosine stores, every vector is
// L2-normalized before storage, without exception; the normalized flag
// records that state and is persisted with snapshots.
//
// A Store is not safe for concurrent mutation. It is designed for a single
// owner; callers needing shared access must serialize externally.
type Store struct {
	dim        int
	metric     metric.Metric
	keyPath    string
	normalized bool

	vectors [][]float32
	docs    []document.Document
}

// SearchResult pairs a matched document with its score under the store's
// metric. The document aliases store-owned memory and must not be mutated.
type SearchResult struct {
	Document document.Document
	Score    float32
}

// New creates an empty store.
//
// dim fixes the vector dimensionality for the store's lifetime. A dim of 0
// defers that choice to the first inserted vector, matching stores whose
// dimensionality is determined by an external embedding model.
func New(dim int, m metric.Metric, keyPath string) (*Store, error) {
	if dim < 0 {
		return nil, fmt.Errorf("invalid dimension: %d", dim)
	}
	if !m.Valid() {
		return nil, fmt.Errorf("invalid metric: %v", m)
	}
	return &Store{
		dim:        dim,
		metric:     m,
		keyPath:    keyPath,
		normalized: m.NormalizesVectors(),
	}, nil
}

// Len returns the number of stored pairs.
func (s *Store) Len() int { return len(s.docs) }

// Dim returns the store's dimensionality (0 until the first insert when
// created with dim 0).
func (s *Store) Dim() int { return s.dim }

// Metric returns the store's configured metric.
func (s *Store) Metric() metric.Metric { return s.metric }

// KeyPath returns the dot-path of the document field the vectors were
// derived from.
func (s *Store) KeyPath() string { return s.keyPath }

// Normalized reports whether stored vectors are unit-normalized.
func (s *Store) Normalized() bool { return s.normalized }

// Docs returns the stored documents in insertion order. The returned slice
// is a copy, but the documents themselves alias store-owned memory.
func (s *Store) Docs() []document.Document {
	return slices.Clone(s.docs)
}

// Vectors returns a deep copy of the stored vectors in insertion order.
func (s *Store) Vectors() [][]float32 {
	out := make([][]float32, len(s.vectors))
	for i, v := range s.vectors {
		out[i] = slices.Clone(v)
	}
	return out
}

// prepare validates vec against dim and returns the copy that will actually
// be stored: L2-normalized for cosine stores, cloned as-is otherwise.
// It never mutates the store.
func (s *Store) prepare(vec []float32, dim int) ([]float32, error) {
	if len(vec) == 0 {
		return nil, ErrEmptyVector
	}
	if dim > 0 && len(vec) != dim {
		return nil, &ErrDimensionMismatch{Expected: dim, Actual: len(vec)}
	}
	if s.normalized {
		norm, err := metric.NormalizeL2Copy(vec)
		if err != nil {
			return nil, fmt.Errorf("cannot normalize vector: %w", err)
		}
		return norm, nil
	}
	return slices.Clone(vec), nil
}

// Insert appends one (vector, document) pair.
// It fails with *ErrDimensionMismatch if the vector's length disagrees with
// the store's dimensionality; the store is left unchanged on any error.
func (s *Store) Insert(vec []float32, doc document.Document) error {
	prepared, err := s.prepare(vec, s.dim)
	if err != nil {
		return err
	}
	if s.dim == 0 {
		s.dim = len(vec)
	}
	s.vectors = append(s.vectors, prepared)
	s.docs = append(s.docs, doc)
	return nil
}

// InsertBatch appends pairs atomically: either every pair is inserted or
// none are. Validation and normalization run for the whole batch before the
// store is touched.
func (s *Store) InsertBatch(vecs [][]float32, docs []document.Document) error {
	if len(vecs) != len(docs) {
		return fmt.Errorf("vector count %d does not match document count %d", len(vecs), len(docs))
	}
	if len(vecs) == 0 {
		return nil
	}

	dim := s.dim
	if dim == 0 {
		dim = len(vecs[0])
	}
	prepared := make([][]float32, len(vecs))
	for i, v := range vecs {
		p, err := s.prepare(v, dim)
		if err != nil {
			return fmt.Errorf("vector %d: %w", i, err)
		}
		prepared[i] = p
	}

	s.dim = dim
	s.vectors = append(s.vectors, prepared...)
	s.docs = append(s.docs, docs...)
	return nil
}

// ReplaceAll discards every existing pair and installs the new set.
//
// If the store was empty, its dimensionality is re-established from the
// first new vector; otherwise the new set must match the existing dim.
// On any error the previous contents are left intact.
func (s *Store) ReplaceAll(vecs [][]float32, docs []document.Document) error {
	if len(vecs) != len(docs) {
		return fmt.Errorf("vector count %d does not match document count %d", len(vecs), len(docs))
	}
	if len(vecs) == 0 {
		s.vectors = nil
		s.docs = nil
		return nil
	}

	dim := s.dim
	if s.Len() == 0 || dim == 0 {
		dim = len(vecs[0])
	}
	prepared := make([][]float32, len(vecs))
	for i, v := range vecs {
		p, err := s.prepare(v, dim)
		if err != nil {
			return fmt.Errorf("vector %d: %w", i, err)
		}
		prepared[i] = p
	}

	s.dim = dim
	s.vectors = prepared
	s.docs = append([]document.Document(nil), docs...)
	return nil
}

// RemoveIndex deletes the pair at index i, shifting subsequent pairs down by
// one. Indices are positions in a flat array, not stable identities: they
// change across removals.
func (s *Store) RemoveIndex(i int) error {
	if i < 0 || i >= len(s.docs) {
		return &ErrIndexOutOfRange{Index: i, Size: len(s.docs)}
	}
	s.vectors = slices.Delete(s.vectors, i, i+1)
	s.docs = slices.Delete(s.docs, i, i+1)
	return nil
}

// RemoveMatch deletes the first pair whose document compares field-for-field
// equal to doc. At most one pair is removed; ErrNotFound is returned when no
// document matches.
func (s *Store) RemoveMatch(doc document.Document) error {
	for i, d := range s.docs {
		if d.Equal(doc) {
			return s.RemoveIndex(i)
		}
	}
	return ErrNotFound
}

// Search scores query against every stored vector under the store's metric
// and returns up to topK results, best first. Ties keep insertion order.
//
// topK values of 0 or less and searches on an empty store both return an
// empty result set. A query whose length disagrees with the store's dim
// fails with *ErrDimensionMismatch; a zero-norm query under cosine fails
// with ErrDegenerateQuery.
func (s *Store) Search(query []float32, topK int) ([]SearchResult, error) {
	if topK <= 0 || s.Len() == 0 {
		return nil, nil
	}
	if len(query) != s.dim {
		return nil, &ErrDimensionMismatch{Expected: s.dim, Actual: len(query)}
	}

	q := query
	if s.normalized {
		norm, err := metric.NormalizeL2Copy(query)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDegenerateQuery, err)
		}
		q = norm
	}

	fn, err := metric.Provider(s.metric)
	if err != nil {
		return nil, err
	}
	scores := metric.ScoreAll(fn, q, s.vectors)

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(order, func(i, j int) bool {
		return s.metric.Less(scores[order[i]], scores[order[j]])
	})

	if topK > len(order) {
		topK = len(order)
	}
	results := make([]SearchResult, topK)
	for i := 0; i < topK; i++ {
		idx := order[i]
		results[i] = SearchResult{Document: s.docs[idx], Score: scores[idx]}
	}
	return results, nil
}
