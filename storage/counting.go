package storage

import (
	"context"
	"sync/atomic"

	"github.com/hupe1980/vectra/record"
)

// Counting wraps a Gateway and counts operations. It exists so callers and
// tests can verify cache behavior (e.g. that repeated storage-backed
// searches hit the backing store exactly once).
type Counting struct {
	inner Gateway

	opens     atomic.Int64
	readAlls  atomic.Int64
	writeAlls atomic.Int64
}

// NewCounting wraps the given gateway.
func NewCounting(inner Gateway) *Counting {
	return &Counting{inner: inner}
}

// Opens returns the number of Open calls.
func (c *Counting) Opens() int64 { return c.opens.Load() }

// ReadAlls returns the number of ReadAll calls.
func (c *Counting) ReadAlls() int64 { return c.readAlls.Load() }

// WriteAlls returns the number of WriteAll calls.
func (c *Counting) WriteAlls() int64 { return c.writeAlls.Load() }

func (c *Counting) Open(ctx context.Context, database string) (Handle, error) {
	c.opens.Add(1)
	return c.inner.Open(ctx, database)
}

func (c *Counting) EnsureTable(ctx context.Context, h Handle, table string) error {
	return c.inner.EnsureTable(ctx, h, table)
}

func (c *Counting) ReadAll(ctx context.Context, h Handle, table string) ([]record.Record, error) {
	c.readAlls.Add(1)
	return c.inner.ReadAll(ctx, h, table)
}

func (c *Counting) WriteAll(ctx context.Context, h Handle, table string, records []record.Record) error {
	c.writeAlls.Add(1)
	return c.inner.WriteAll(ctx, h, table, records)
}

func (c *Counting) DeleteTable(ctx context.Context, database, table string) error {
	return c.inner.DeleteTable(ctx, database, table)
}

func (c *Counting) DeleteDatabase(ctx context.Context, database string) error {
	return c.inner.DeleteDatabase(ctx, database)
}
