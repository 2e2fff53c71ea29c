// Package similarity provides the scoring functions used to rank records
// against a query vector. Higher scores mean more similar.
package similarity

import (
	"errors"
	"fmt"
	"math"
)

// ErrLengthMismatch is returned when the two vectors differ in length.
var ErrLengthMismatch = errors.New("vector length mismatch")

// Cosine computes the cosine similarity dot(a,b) / (|a| * |b|).
//
// If either vector has zero norm the result is NaN. That is an accepted
// edge case: a zero vector has no direction, so the score is not
// comparable. Callers must treat NaN as "unrankable" rather than crash.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// Dot computes the raw dot product. For pre-normalized vectors this is
// equivalent to cosine similarity and cheaper.
func Dot(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(a), len(b))
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot, nil
}

// Metric selects the similarity function used for ranking.
type Metric int

const (
	MetricCosine Metric = iota
	MetricDot
)

func (m Metric) String() string {
	switch m {
	case MetricCosine:
		return "Cosine"
	case MetricDot:
		return "Dot"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// Func scores a candidate vector against a query vector.
type Func func(a, b []float32) (float64, error)

// Provider returns the scoring function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricCosine:
		return Cosine, nil
	case MetricDot:
		return Dot, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}
