package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vectra/record"
	"github.com/hupe1980/vectra/storage"
)

func seedGateway(t *testing.T) storage.Gateway {
	t.Helper()
	ctx := context.Background()

	gw := storage.NewMemory()
	h, err := gw.Open(ctx, "db")
	require.NoError(t, err)
	require.NoError(t, gw.EnsureTable(ctx, h, "tbl"))
	require.NoError(t, gw.WriteAll(ctx, h, "tbl", []record.Record{
		{"id": "a", record.EmbeddingKey: []float32{1, 0}},
		{"id": "b", record.EmbeddingKey: []float32{0, 1}},
	}))
	return gw
}

func TestPreload(t *testing.T) {
	ctx := context.Background()
	c := New(seedGateway(t))

	require.False(t, c.IsValid("db", "tbl"))
	require.Nil(t, c.Get())

	require.NoError(t, c.Preload(ctx, "db", "tbl"))
	require.True(t, c.IsValid("db", "tbl"))
	assert.Len(t, c.Get(), 2)
}

func TestPreloadSingleFetch(t *testing.T) {
	ctx := context.Background()
	counting := storage.NewCounting(seedGateway(t))
	c := New(counting)

	require.NoError(t, c.Preload(ctx, "db", "tbl"))
	assert.Equal(t, int64(1), counting.ReadAlls())

	// Repeated validity checks and reads touch only the snapshot.
	for i := 0; i < 5; i++ {
		require.True(t, c.IsValid("db", "tbl"))
		require.Len(t, c.Get(), 2)
	}
	assert.Equal(t, int64(1), counting.ReadAlls())
}

func TestPreloadReplacesSnapshot(t *testing.T) {
	ctx := context.Background()
	gw := seedGateway(t)
	h, err := gw.Open(ctx, "db")
	require.NoError(t, err)
	require.NoError(t, gw.EnsureTable(ctx, h, "other"))
	require.NoError(t, gw.WriteAll(ctx, h, "other", []record.Record{
		{"id": "x", record.EmbeddingKey: []float32{1}},
	}))

	c := New(gw)
	require.NoError(t, c.Preload(ctx, "db", "tbl"))
	require.NoError(t, c.Preload(ctx, "db", "other"))

	assert.False(t, c.IsValid("db", "tbl"))
	assert.True(t, c.IsValid("db", "other"))
	assert.Len(t, c.Get(), 1)
}

func TestPreloadFailureClearsSnapshot(t *testing.T) {
	ctx := context.Background()
	gw := seedGateway(t)
	c := New(gw)

	require.NoError(t, c.Preload(ctx, "db", "tbl"))
	require.True(t, c.IsValid("db", "tbl"))

	err := c.Preload(ctx, "db", "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	assert.False(t, c.IsValid("db", "tbl"))
	assert.False(t, c.IsValid("db", "missing"))
	assert.Nil(t, c.Get())
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	counting := storage.NewCounting(seedGateway(t))
	c := New(counting)

	require.NoError(t, c.Preload(ctx, "db", "tbl"))
	c.Invalidate()

	assert.False(t, c.IsValid("db", "tbl"))
	assert.Nil(t, c.Get())

	require.NoError(t, c.Preload(ctx, "db", "tbl"))
	assert.Equal(t, int64(2), counting.ReadAlls())
}

func TestIsValidIdentity(t *testing.T) {
	ctx := context.Background()
	c := New(seedGateway(t))

	require.NoError(t, c.Preload(ctx, "db", "tbl"))
	assert.True(t, c.IsValid("db", "tbl"))
	assert.False(t, c.IsValid("db", "other"))
	assert.False(t, c.IsValid("db2", "tbl"))
}
