package record

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		rec     Record
		wantErr error
	}{
		{
			name: "valid float32 embedding",
			rec:  Record{"embedding": []float32{0.1, 0.2}},
		},
		{
			name: "valid float64 embedding",
			rec:  Record{"embedding": []float64{0.1, 0.2}},
		},
		{
			name: "valid any-slice embedding",
			rec:  Record{"embedding": []any{0.1, 2, int64(3)}},
		},
		{
			name:    "missing embedding",
			rec:     Record{"title": "x"},
			wantErr: ErrMissingEmbedding,
		},
		{
			name:    "non-numeric embedding",
			rec:     Record{"embedding": "not a vector"},
			wantErr: ErrInvalidEmbedding,
		},
		{
			name:    "mixed slice with string",
			rec:     Record{"embedding": []any{0.1, "x"}},
			wantErr: ErrInvalidEmbedding,
		},
		{
			name:    "empty embedding",
			rec:     Record{"embedding": []float32{}},
			wantErr: ErrInvalidEmbedding,
		},
		{
			name:    "NaN element",
			rec:     Record{"embedding": []float32{0.1, float32(math.NaN())}},
			wantErr: ErrInvalidEmbedding,
		},
		{
			name:    "Inf element",
			rec:     Record{"embedding": []float32{float32(math.Inf(1))}},
			wantErr: ErrInvalidEmbedding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			// Validation normalizes the embedding to []float32.
			_, ok := tt.rec[EmbeddingKey].([]float32)
			assert.True(t, ok)
		})
	}
}

func TestClone(t *testing.T) {
	orig := Record{
		"title":     "doc",
		"embedding": []float32{1, 2, 3},
	}

	clone := orig.Clone()
	require.Equal(t, orig, clone)

	emb := clone[EmbeddingKey].([]float32)
	emb[0] = 99
	assert.Equal(t, float32(1), orig[EmbeddingKey].([]float32)[0])

	clone["title"] = "other"
	assert.Equal(t, "doc", orig["title"])

	assert.Nil(t, Record(nil).Clone())
}

func TestEmbedding(t *testing.T) {
	emb, ok := Record{"embedding": []float64{1, 2}}.Embedding()
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2}, emb)

	_, ok = Record{"title": "x"}.Embedding()
	assert.False(t, ok)

	_, ok = Record{"embedding": 42}.Embedding()
	assert.False(t, ok)
}

func TestFilterMatches(t *testing.T) {
	rec := Record{
		"title":     "doc",
		"count":     3,
		"published": true,
		"embedding": []float32{1},
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{name: "empty filter matches", filter: Filter{}, want: true},
		{name: "nil filter matches", filter: nil, want: true},
		{name: "string equality", filter: Filter{"title": "doc"}, want: true},
		{name: "string mismatch", filter: Filter{"title": "other"}, want: false},
		{name: "numeric cross-kind", filter: Filter{"count": float64(3)}, want: true},
		{name: "bool equality", filter: Filter{"published": true}, want: true},
		{name: "absent attribute", filter: Filter{"missing": 1}, want: false},
		{name: "multi attribute", filter: Filter{"title": "doc", "count": 3}, want: true},
		{name: "multi attribute one off", filter: Filter{"title": "doc", "count": 4}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(rec))
		})
	}
}

func TestValueEqual(t *testing.T) {
	assert.True(t, ValueEqual(3, float64(3)))
	assert.True(t, ValueEqual(uint8(7), int64(7)))
	assert.False(t, ValueEqual(3, "3"))
	assert.True(t, ValueEqual("a", "a"))
	assert.True(t, ValueEqual(nil, nil))
	assert.False(t, ValueEqual(nil, 0))
	assert.True(t, ValueEqual([]string{"a"}, []string{"a"}))
}

func TestSchema(t *testing.T) {
	s := NewSchema(Record{"title": "x", "embedding": []float32{1}})
	assert.Equal(t, []string{"embedding", "title"}, s.Attributes())

	require.NoError(t, s.Validate(Record{"title": "y", "embedding": []float32{2}, "extra": 1}))

	err := s.Validate(Record{"embedding": []float32{2}})
	require.ErrorIs(t, err, ErrSchemaViolation)
}

func TestAsFloat64(t *testing.T) {
	f, ok := AsFloat64(int32(5))
	require.True(t, ok)
	assert.Equal(t, float64(5), f)

	_, ok = AsFloat64("5")
	assert.False(t, ok)
}
