package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vectra/codec"
	"github.com/hupe1980/vectra/record"
)

func testRecords() []record.Record {
	return []record.Record{
		{"id": "a", "bucket": "red", record.EmbeddingKey: []float32{1, 0}},
		{"id": "b", "bucket": "blue", record.EmbeddingKey: []float32{0, 1}},
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	gw := NewMemory()

	h, err := gw.Open(ctx, "db")
	require.NoError(t, err)
	assert.Equal(t, "db", h.Database())

	require.NoError(t, gw.EnsureTable(ctx, h, "tbl"))
	require.NoError(t, gw.WriteAll(ctx, h, "tbl", testRecords()))

	got, err := gw.ReadAll(ctx, h, "tbl")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0]["id"])
	assert.Equal(t, "b", got[1]["id"])
}

func TestMemoryIsolation(t *testing.T) {
	ctx := context.Background()
	gw := NewMemory()

	h, err := gw.Open(ctx, "db")
	require.NoError(t, err)

	records := testRecords()
	require.NoError(t, gw.EnsureTable(ctx, h, "tbl"))
	require.NoError(t, gw.WriteAll(ctx, h, "tbl", records))

	// Mutating the caller's records must not leak into the store.
	records[0]["id"] = "mutated"

	got, err := gw.ReadAll(ctx, h, "tbl")
	require.NoError(t, err)
	assert.Equal(t, "a", got[0]["id"])

	// Mutating read results must not leak either.
	got[1]["id"] = "mutated"
	again, err := gw.ReadAll(ctx, h, "tbl")
	require.NoError(t, err)
	assert.Equal(t, "b", again[1]["id"])
}

func TestMemoryNotFound(t *testing.T) {
	ctx := context.Background()
	gw := NewMemory()

	h, err := gw.Open(ctx, "db")
	require.NoError(t, err)

	_, err = gw.ReadAll(ctx, h, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, gw.DeleteTable(ctx, "db", "missing"), ErrNotFound)
	require.ErrorIs(t, gw.DeleteDatabase(ctx, "missing"), ErrNotFound)
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	gw := NewMemory()

	h, err := gw.Open(ctx, "db")
	require.NoError(t, err)
	require.NoError(t, gw.EnsureTable(ctx, h, "tbl"))

	require.NoError(t, gw.DeleteTable(ctx, "db", "tbl"))
	_, err = gw.ReadAll(ctx, h, "tbl")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, gw.EnsureTable(ctx, h, "tbl"))
	require.NoError(t, gw.DeleteDatabase(ctx, "db"))
	_, err = gw.ReadAll(ctx, h, "tbl")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCounting(t *testing.T) {
	ctx := context.Background()
	counting := NewCounting(NewMemory())

	h, err := counting.Open(ctx, "db")
	require.NoError(t, err)
	require.NoError(t, counting.EnsureTable(ctx, h, "tbl"))
	require.NoError(t, counting.WriteAll(ctx, h, "tbl", testRecords()))

	_, err = counting.ReadAll(ctx, h, "tbl")
	require.NoError(t, err)
	_, err = counting.ReadAll(ctx, h, "tbl")
	require.NoError(t, err)

	assert.Equal(t, int64(1), counting.Opens())
	assert.Equal(t, int64(1), counting.WriteAlls())
	assert.Equal(t, int64(2), counting.ReadAlls())
}

func TestEncodeDecodeRecords(t *testing.T) {
	data, err := EncodeRecords(codec.Default, testRecords())
	require.NoError(t, err)

	got, err := DecodeRecords(codec.Default, data)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Embeddings survive the codec round trip as []float32.
	emb, ok := got[0].Embedding()
	require.True(t, ok)
	assert.Equal(t, []float32{1, 0}, emb)
	_, isFloat32 := got[0][record.EmbeddingKey].([]float32)
	assert.True(t, isFloat32)
}

func TestEncodeRecordsNil(t *testing.T) {
	data, err := EncodeRecords(nil, nil)
	require.NoError(t, err)

	got, err := DecodeRecords(nil, data)
	require.NoError(t, err)
	assert.Empty(t, got)
}
