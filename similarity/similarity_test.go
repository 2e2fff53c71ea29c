package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 0}, b: []float32{1, 0}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "diagonal", a: []float32{1, 0}, b: []float32{0.7, 0.7}, want: 1 / math.Sqrt2},
		{name: "scale invariant", a: []float32{2, 0}, b: []float32{100, 0}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cosine(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestCosineLengthMismatch(t *testing.T) {
	_, err := Cosine([]float32{1, 2}, []float32{1})
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestCosineZeroNorm(t *testing.T) {
	got, err := Cosine([]float32{0, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got))
}

func TestDot(t *testing.T) {
	got, err := Dot([]float32{1, 2, 3}, []float32{4, 5, 6})
	require.NoError(t, err)
	assert.InDelta(t, 32, got, 1e-6)

	_, err = Dot([]float32{1}, []float32{1, 2})
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestProvider(t *testing.T) {
	fn, err := Provider(MetricCosine)
	require.NoError(t, err)
	got, err := fn([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1, got, 1e-6)

	fn, err = Provider(MetricDot)
	require.NoError(t, err)
	got, err = fn([]float32{2, 0}, []float32{3, 0})
	require.NoError(t, err)
	assert.InDelta(t, 6, got, 1e-6)

	_, err = Provider(Metric(99))
	require.Error(t, err)
}

func TestMetricString(t *testing.T) {
	assert.Equal(t, "Cosine", MetricCosine.String())
	assert.Equal(t, "Dot", MetricDot.String())
	assert.Contains(t, Metric(99).String(), "Unknown")
}
