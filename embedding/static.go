package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

// Static is a deterministic, dependency-free provider for tests and
// offline use: the vector is a seeded hash of the input text, L2
// normalized. Equal texts always map to equal vectors.
type Static struct {
	// Dimension of produced vectors. Defaults to 64 when zero.
	Dimension int
}

// Embed returns the deterministic vector for the text.
func (s Static) Embed(_ context.Context, text string) ([]float32, error) {
	dim := s.Dimension
	if dim <= 0 {
		dim = 64
	}

	vec := make([]float32, dim)
	h := fnv.New64a()
	var norm float64
	for i := range vec {
		h.Write([]byte(text))
		h.Write([]byte{byte(i)})
		// Map the hash to (-1, 1).
		v := float64(int64(h.Sum64())) / math.MaxInt64
		vec[i] = float32(v)
		norm += v * v
	}

	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

// Model identifies the provider.
func (Static) Model() string { return "static" }
