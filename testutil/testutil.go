// Package testutil provides seeded random data generators shared by tests.
package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/hupe1980/vectra/record"
	"github.com/hupe1980/vectra/similarity"
)

// RNG encapsulates a seeded random number generator. It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// UnitVector generates a single L2-normalized random vector.
func (r *RNG) UnitVector(dimensions int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unitVectorLocked(dimensions)
}

// UnitVectors generates num L2-normalized random vectors.
func (r *RNG) UnitVectors(num, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	vectors := make([][]float32, num)
	for i := range vectors {
		vectors[i] = r.unitVectorLocked(dimensions)
	}
	return vectors
}

func (r *RNG) unitVectorLocked(dimensions int) []float32 {
	vec := make([]float32, dimensions)
	var norm float64
	for j := range vec {
		v := r.rand.NormFloat64()
		vec[j] = float32(v)
		norm += v * v
	}

	if norm == 0 {
		norm = 1
	}

	invNorm := float32(1.0 / math.Sqrt(norm))
	for j := range vec {
		vec[j] *= invNorm
	}
	return vec
}

// Records generates num records with unit-vector embeddings and a small
// attribute set: a unique "id" string, a "bucket" drawn from bucketCount
// values and a "rank" int. The shared attribute shape makes the records
// schema-compatible with each other.
func (r *RNG) Records(num, dimensions, bucketCount int) []record.Record {
	vectors := r.UnitVectors(num, dimensions)

	r.mu.Lock()
	defer r.mu.Unlock()

	records := make([]record.Record, num)
	for i := range records {
		records[i] = record.Record{
			"id":                fmt.Sprintf("rec-%04d", i),
			"bucket":            fmt.Sprintf("bucket-%d", r.rand.Intn(bucketCount)),
			"rank":              i,
			record.EmbeddingKey: vectors[i],
		}
	}
	return records
}

// Ranked is a ground-truth entry produced by BruteForceRank.
type Ranked struct {
	Index int
	Score float64
}

// BruteForceRank scores every vector against the query with cosine
// similarity and returns the top k in descending score order. Vectors that
// cannot be scored are skipped.
func BruteForceRank(vectors [][]float32, query []float32, k int) []Ranked {
	results := make([]Ranked, 0, len(vectors))
	for i, v := range vectors {
		score, err := similarity.Cosine(query, v)
		if err != nil || math.IsNaN(score) {
			continue
		}
		results = append(results, Ranked{Index: i, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}
