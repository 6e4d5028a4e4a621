// Package metric provides the similarity and distance functions used for
// vector search, plus the L2 normalization helpers that back cosine search.
//
// All functions operate on float32 slices of equal length. Length checks are
// the caller's responsibility unless a function documents otherwise.
package metric

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// ErrZeroVector is returned when an operation requires a nonzero L2 norm
// but the supplied vector is all zeros.
var ErrZeroVector = errors.New("zero-norm vector")

// Metric identifies the scoring function used to rank vectors.
type Metric int

const (
	// Cosine ranks by the cosine of the angle between vectors.
	// Stored vectors and queries are L2-normalized, so the score reduces
	// to a plain dot product. Higher is better.
	Cosine Metric = iota
	// Dot ranks by the raw inner product. Higher is better.
	Dot
	// Euclidean ranks by the L2 distance. Lower is better.
	Euclidean
	// Derrida ranks by a combined magnitude/direction distance.
	// See DerridaDistance for the exact formula. Lower is better.
	Derrida
)

func (m Metric) String() string {
	switch m {
	case Cosine:
		return "cosine"
	case Dot:
		return "dot"
	case Euclidean:
		return "euclidean"
	case Derrida:
		return "derrida"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// Parse returns the Metric named by s (case-insensitive).
func Parse(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cosine":
		return Cosine, nil
	case "dot":
		return Dot, nil
	case "euclidean":
		return Euclidean, nil
	case "derrida":
		return Derrida, nil
	default:
		return 0, fmt.Errorf("unsupported metric %q (use one of: cosine, dot, euclidean, derrida)", s)
	}
}

// Valid reports whether m is one of the four defined metrics.
func (m Metric) Valid() bool {
	return m >= Cosine && m <= Derrida
}

// Ascending reports the ranking direction: true means lower scores rank
// first (distance metrics), false means higher scores rank first
// (similarity metrics).
func (m Metric) Ascending() bool {
	return m == Euclidean || m == Derrida
}

// NormalizesVectors reports whether stores using this metric must
// L2-normalize every vector at insertion time.
func (m Metric) NormalizesVectors() bool {
	return m == Cosine
}

// Less reports whether score a ranks strictly before score b under m.
func (m Metric) Less(a, b float32) bool {
	if m.Ascending() {
		return a < b
	}
	return a > b
}

// Func scores a query vector against a stored vector.
type Func func(q, v []float32) float32

// Provider returns the score function for the given metric.
//
// For Cosine the returned function is a plain dot product: it assumes both
// operands are already L2-normalized, which the store guarantees for
// cosine-configured stores. Callers must reject zero-norm queries before
// scoring (see ErrZeroVector).
func Provider(m Metric) (Func, error) {
	switch m {
	case Cosine, Dot:
		return DotProduct, nil
	case Euclidean:
		return EuclideanDistance, nil
	case Derrida:
		return DerridaDistance, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}

// DotProduct returns the inner product of a and b.
func DotProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Magnitude returns the L2 norm of v.
func Magnitude(v []float32) float32 {
	return float32(math.Sqrt(float64(DotProduct(v, v))))
}

// EuclideanDistance returns the L2 distance between a and b.
func EuclideanDistance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return float32(math.Sqrt(float64(sum)))
}

// CosineSimilarity returns the cosine of the angle between a and b without
// assuming either operand is normalized. It returns ErrZeroVector if either
// operand has zero L2 norm, since the ratio is undefined there.
func CosineSimilarity(a, b []float32) (float32, error) {
	na := Magnitude(a)
	nb := Magnitude(b)
	if na == 0 || nb == 0 {
		return 0, ErrZeroVector
	}
	return DotProduct(a, b) / (na * nb), nil
}

// DerridaDistance returns a scalar distance combining magnitude and
// directional deviation:
//
//	derrida(a, b) = |‖a‖ − ‖b‖| + (1 − cos θ)
//
// where cos θ is the cosine similarity of a and b. The directional term is
// defined as 0 when either operand has zero norm, which makes the function
// total: derrida(0, 0) = 0 and derrida(0, v) = ‖v‖. Lower is better.
func DerridaDistance(a, b []float32) float32 {
	na := Magnitude(a)
	nb := Magnitude(b)
	dist := na - nb
	if dist < 0 {
		dist = -dist
	}
	if na > 0 && nb > 0 {
		dist += 1 - DotProduct(a, b)/(na*nb)
	}
	return dist
}

// ScoreAll computes scores for a query against every vector in one pass.
// The result has one score per input vector, in input order.
func ScoreAll(fn Func, q []float32, vectors [][]float32) []float32 {
	scores := make([]float32, len(vectors))
	for i, v := range vectors {
		scores[i] = fn(q, v)
	}
	return scores
}

// NormalizeL2InPlace L2-normalizes v in place.
// It returns ErrZeroVector if v has zero L2 norm.
func NormalizeL2InPlace(v []float32) error {
	norm2 := DotProduct(v, v)
	if norm2 == 0 {
		return ErrZeroVector
	}
	inv := 1 / float32(math.Sqrt(float64(norm2)))
	for i := range v {
		v[i] *= inv
	}
	return nil
}

// NormalizeL2Copy returns an L2-normalized copy of src.
// It returns ErrZeroVector if src has zero L2 norm.
func NormalizeL2Copy(src []float32) ([]float32, error) {
	dst := slices.Clone(src)
	if err := NormalizeL2InPlace(dst); err != nil {
		return nil, err
	}
	return dst, nil
}
