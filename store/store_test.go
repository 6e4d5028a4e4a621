package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loganpowell/microvector/document"
	"github.com/loganpowell/microvector/metric"
)

func mustStore(t *testing.T, dim int, m metric.Metric) *Store {
	t.Helper()
	s, err := New(dim, m, "text")
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	s := mustStore(t, 3, metric.Cosine)
	assert.Equal(t, 3, s.Dim())
	assert.Equal(t, metric.Cosine, s.Metric())
	assert.Equal(t, "text", s.KeyPath())
	assert.True(t, s.Normalized())
	assert.Equal(t, 0, s.Len())

	s = mustStore(t, 0, metric.Dot)
	assert.False(t, s.Normalized())

	_, err := New(-1, metric.Dot, "text")
	assert.Error(t, err)
	_, err = New(3, metric.Metric(99), "text")
	assert.Error(t, err)
}

func TestInsert(t *testing.T) {
	t.Run("GrowsByOne", func(t *testing.T) {
		s := mustStore(t, 3, metric.Dot)
		require.NoError(t, s.Insert([]float32{1, 2, 3}, document.Document{"text": "a"}))
		assert.Equal(t, 1, s.Len())
	})

	t.Run("DimensionMismatchLeavesStoreUnchanged", func(t *testing.T) {
		s := mustStore(t, 3, metric.Dot)
		require.NoError(t, s.Insert([]float32{1, 2, 3}, document.Document{"text": "a"}))

		err := s.Insert([]float32{1, 2}, document.Document{"text": "b"})
		var dm *ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
		assert.Equal(t, 3, dm.Expected)
		assert.Equal(t, 2, dm.Actual)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("EmptyVector", func(t *testing.T) {
		s := mustStore(t, 0, metric.Dot)
		assert.ErrorIs(t, s.Insert(nil, document.Document{"text": "a"}), ErrEmptyVector)
	})

	t.Run("DimEstablishedByFirstInsert", func(t *testing.T) {
		s := mustStore(t, 0, metric.Euclidean)
		require.NoError(t, s.Insert([]float32{1, 2}, document.Document{"text": "a"}))
		assert.Equal(t, 2, s.Dim())

		err := s.Insert([]float32{1, 2, 3}, document.Document{"text": "b"})
		var dm *ErrDimensionMismatch
		assert.ErrorAs(t, err, &dm)
	})

	t.Run("CosineNormalizesBeforeStorage", func(t *testing.T) {
		s := mustStore(t, 2, metric.Cosine)
		require.NoError(t, s.Insert([]float32{3, 4}, document.Document{"text": "a"}))

		vecs := s.Vectors()
		require.Len(t, vecs, 1)
		assert.InDelta(t, 1.0, float64(metric.Magnitude(vecs[0])), 1e-6)
		assert.InDelta(t, 0.6, vecs[0][0], 1e-6)
		assert.InDelta(t, 0.8, vecs[0][1], 1e-6)
	})

	t.Run("CosineRejectsZeroVector", func(t *testing.T) {
		s := mustStore(t, 2, metric.Cosine)
		err := s.Insert([]float32{0, 0}, document.Document{"text": "a"})
		assert.ErrorIs(t, err, metric.ErrZeroVector)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("InsertCopiesVector", func(t *testing.T) {
		s := mustStore(t, 2, metric.Dot)
		v := []float32{1, 2}
		require.NoError(t, s.Insert(v, document.Document{"text": "a"}))
		v[0] = 99
		assert.Equal(t, float32(1), s.Vectors()[0][0])
	})
}

func TestInsertBatch(t *testing.T) {
	t.Run("AllOrNothing", func(t *testing.T) {
		s := mustStore(t, 3, metric.Dot)
		err := s.InsertBatch(
			[][]float32{{1, 0, 0}, {0, 1}},
			[]document.Document{{"text": "a"}, {"text": "b"}},
		)
		var dm *ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("PairCountMismatch", func(t *testing.T) {
		s := mustStore(t, 2, metric.Dot)
		err := s.InsertBatch([][]float32{{1, 0}}, nil)
		assert.Error(t, err)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("AppendAccumulation", func(t *testing.T) {
		s := mustStore(t, 2, metric.Dot)
		require.NoError(t, s.InsertBatch(
			[][]float32{{1, 0}, {0, 1}},
			[]document.Document{{"text": "a"}, {"text": "b"}},
		))
		require.NoError(t, s.InsertBatch(
			[][]float32{{1, 1}},
			[]document.Document{{"text": "c"}},
		))

		assert.Equal(t, 3, s.Len())
		docs := s.Docs()
		assert.True(t, docs[0].Equal(document.Document{"text": "a"}))
		assert.True(t, docs[1].Equal(document.Document{"text": "b"}))
		assert.True(t, docs[2].Equal(document.Document{"text": "c"}))
	})

	t.Run("EmptyBatchIsNoop", func(t *testing.T) {
		s := mustStore(t, 2, metric.Dot)
		require.NoError(t, s.InsertBatch(nil, nil))
		assert.Equal(t, 0, s.Len())
	})
}

func TestReplaceAll(t *testing.T) {
	t.Run("DiscardsExisting", func(t *testing.T) {
		s := mustStore(t, 2, metric.Dot)
		require.NoError(t, s.Insert([]float32{1, 0}, document.Document{"text": "old"}))

		require.NoError(t, s.ReplaceAll(
			[][]float32{{0, 1}, {1, 1}},
			[]document.Document{{"text": "n1"}, {"text": "n2"}},
		))
		assert.Equal(t, 2, s.Len())
		assert.True(t, s.Docs()[0].Equal(document.Document{"text": "n1"}))
	})

	t.Run("Idempotent", func(t *testing.T) {
		s := mustStore(t, 2, metric.Cosine)
		vecs := [][]float32{{1, 0}, {0, 2}}
		docs := []document.Document{{"text": "a"}, {"text": "b"}}

		require.NoError(t, s.ReplaceAll(vecs, docs))
		first := s.Vectors()
		firstDocs := s.Docs()

		require.NoError(t, s.ReplaceAll(vecs, docs))
		assert.Equal(t, first, s.Vectors())
		require.Equal(t, len(firstDocs), s.Len())
		for i, d := range s.Docs() {
			assert.True(t, d.Equal(firstDocs[i]))
		}
	})

	t.Run("ReestablishesDimWhenEmpty", func(t *testing.T) {
		s := mustStore(t, 3, metric.Dot)
		require.NoError(t, s.ReplaceAll(
			[][]float32{{1, 0}},
			[]document.Document{{"text": "a"}},
		))
		assert.Equal(t, 2, s.Dim())
	})

	t.Run("KeepsDimWhenNonEmpty", func(t *testing.T) {
		s := mustStore(t, 2, metric.Dot)
		require.NoError(t, s.Insert([]float32{1, 0}, document.Document{"text": "a"}))

		err := s.ReplaceAll(
			[][]float32{{1, 0, 0}},
			[]document.Document{{"text": "b"}},
		)
		var dm *ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
		// Prior contents intact.
		assert.Equal(t, 1, s.Len())
		assert.True(t, s.Docs()[0].Equal(document.Document{"text": "a"}))
	})

	t.Run("EmptySetClears", func(t *testing.T) {
		s := mustStore(t, 2, metric.Dot)
		require.NoError(t, s.Insert([]float32{1, 0}, document.Document{"text": "a"}))
		require.NoError(t, s.ReplaceAll(nil, nil))
		assert.Equal(t, 0, s.Len())
		assert.Equal(t, 2, s.Dim())
	})
}

func TestRemoveIndex(t *testing.T) {
	seed := func(t *testing.T) *Store {
		s := mustStore(t, 2, metric.Dot)
		require.NoError(t, s.InsertBatch(
			[][]float32{{1, 0}, {0, 1}, {1, 1}, {2, 2}},
			[]document.Document{{"i": "0"}, {"i": "1"}, {"i": "2"}, {"i": "3"}},
		))
		return s
	}

	t.Run("ShiftsSubsequentDown", func(t *testing.T) {
		s := seed(t)
		require.NoError(t, s.RemoveIndex(1))
		require.Equal(t, 3, s.Len())
		docs := s.Docs()
		assert.True(t, docs[0].Equal(document.Document{"i": "0"}))
		assert.True(t, docs[1].Equal(document.Document{"i": "2"}))
		assert.True(t, docs[2].Equal(document.Document{"i": "3"}))
		assert.Equal(t, []float32{1, 1}, s.Vectors()[1])
	})

	t.Run("OutOfRange", func(t *testing.T) {
		s := seed(t)
		var oor *ErrIndexOutOfRange
		require.ErrorAs(t, s.RemoveIndex(4), &oor)
		assert.Equal(t, 4, oor.Index)
		assert.Equal(t, 4, oor.Size)
		assert.ErrorAs(t, s.RemoveIndex(-1), &oor)
		assert.Equal(t, 4, s.Len())
	})
}

func TestRemoveMatch(t *testing.T) {
	s := mustStore(t, 2, metric.Dot)
	require.NoError(t, s.InsertBatch(
		[][]float32{{1, 0}, {0, 1}, {1, 1}},
		[]document.Document{
			{"text": "dup"},
			{"text": "other"},
			{"text": "dup"},
		},
	))

	t.Run("RemovesFirstMatchOnly", func(t *testing.T) {
		require.NoError(t, s.RemoveMatch(document.Document{"text": "dup"}))
		require.Equal(t, 2, s.Len())
		assert.True(t, s.Docs()[0].Equal(document.Document{"text": "other"}))
		assert.True(t, s.Docs()[1].Equal(document.Document{"text": "dup"}))
	})

	t.Run("NotFound", func(t *testing.T) {
		err := s.RemoveMatch(document.Document{"text": "absent"})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, 2, s.Len())
	})
}

func TestSearch(t *testing.T) {
	t.Run("CosineRanking", func(t *testing.T) {
		s := mustStore(t, 3, metric.Cosine)
		require.NoError(t, s.InsertBatch(
			[][]float32{{1, 0, 0}, {0, 1, 0}, {0.9, 0.1, 0}},
			[]document.Document{{"text": "cat"}, {"text": "dog"}, {"text": "car"}},
		))

		results, err := s.Search([]float32{1, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.True(t, results[0].Document.Equal(document.Document{"text": "cat"}))
		assert.InDelta(t, 1.0, results[0].Score, 1e-3)
		assert.True(t, results[1].Document.Equal(document.Document{"text": "car"}))
		assert.InDelta(t, 0.994, results[1].Score, 1e-3)
	})

	t.Run("EuclideanRanksAscending", func(t *testing.T) {
		s := mustStore(t, 2, metric.Euclidean)
		require.NoError(t, s.InsertBatch(
			[][]float32{{10, 10}, {1, 1}, {5, 5}},
			[]document.Document{{"d": "far"}, {"d": "near"}, {"d": "mid"}},
		))

		results, err := s.Search([]float32{0, 0}, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.True(t, results[0].Document.Equal(document.Document{"d": "near"}))
		assert.True(t, results[1].Document.Equal(document.Document{"d": "mid"}))
		assert.True(t, results[2].Document.Equal(document.Document{"d": "far"}))
	})

	t.Run("SelfQueryRanksFirstForDot", func(t *testing.T) {
		s := mustStore(t, 3, metric.Dot)
		target := []float32{0, 3, 0}
		require.NoError(t, s.InsertBatch(
			[][]float32{{1, 0, 0}, target, {0, 1, 1}},
			[]document.Document{{"t": "x"}, {"t": "self"}, {"t": "y"}},
		))

		results, err := s.Search(target, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.True(t, results[0].Document.Equal(document.Document{"t": "self"}))
	})

	t.Run("TieBreakKeepsInsertionOrder", func(t *testing.T) {
		s := mustStore(t, 2, metric.Euclidean)
		require.NoError(t, s.InsertBatch(
			[][]float32{{1, 0}, {0, 1}, {-1, 0}},
			[]document.Document{{"i": "0"}, {"i": "1"}, {"i": "2"}},
		))

		// All three are at distance 1 from the origin.
		results, err := s.Search([]float32{0, 0}, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.True(t, results[0].Document.Equal(document.Document{"i": "0"}))
		assert.True(t, results[1].Document.Equal(document.Document{"i": "1"}))
		assert.True(t, results[2].Document.Equal(document.Document{"i": "2"}))
	})

	t.Run("TopKBoundaries", func(t *testing.T) {
		s := mustStore(t, 2, metric.Dot)
		require.NoError(t, s.InsertBatch(
			[][]float32{{1, 0}, {0, 1}},
			[]document.Document{{"t": "a"}, {"t": "b"}},
		))

		results, err := s.Search([]float32{1, 1}, 0)
		require.NoError(t, err)
		assert.Empty(t, results)

		results, err = s.Search([]float32{1, 1}, 100)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("EmptyStore", func(t *testing.T) {
		s := mustStore(t, 2, metric.Cosine)
		results, err := s.Search([]float32{1, 0}, 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("QueryDimensionMismatch", func(t *testing.T) {
		s := mustStore(t, 3, metric.Dot)
		require.NoError(t, s.Insert([]float32{1, 0, 0}, document.Document{"t": "a"}))

		var dm *ErrDimensionMismatch
		_, err := s.Search([]float32{1, 0}, 1)
		require.ErrorAs(t, err, &dm)
	})

	t.Run("DegenerateCosineQuery", func(t *testing.T) {
		s := mustStore(t, 2, metric.Cosine)
		require.NoError(t, s.Insert([]float32{1, 0}, document.Document{"t": "a"}))

		_, err := s.Search([]float32{0, 0}, 1)
		assert.ErrorIs(t, err, ErrDegenerateQuery)
	})

	t.Run("ZeroQueryFineForDistanceMetrics", func(t *testing.T) {
		s := mustStore(t, 2, metric.Euclidean)
		require.NoError(t, s.Insert([]float32{3, 4}, document.Document{"t": "a"}))

		results, err := s.Search([]float32{0, 0}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.InDelta(t, 5.0, results[0].Score, 1e-6)
	})
}
