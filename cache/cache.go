// Package cache holds the storage snapshot cache: at most one record
// sequence fetched from durable storage, tagged with the (database, table)
// identity it was fetched for.
//
// A snapshot stays valid until it is explicitly invalidated or replaced; it
// does not track freshness of the underlying durable data.
package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/vectra/record"
	"github.com/hupe1980/vectra/storage"
)

// StorageCache caches one preloaded snapshot. Concurrent preloads of the
// same identity are collapsed into a single fetch; preloads of different
// identities race and the last to complete wins, which matches the
// replace-wholesale snapshot lifecycle.
type StorageCache struct {
	gateway storage.Gateway
	group   singleflight.Group

	mu       sync.RWMutex
	snapshot []record.Record
	database string
	table    string
	valid    bool
}

// New creates a cache fetching through the given gateway.
func New(gateway storage.Gateway) *StorageCache {
	return &StorageCache{
		gateway: gateway,
	}
}

// Preload discards any existing snapshot, fetches the full record sequence
// for (database, table) and stores it on success. On failure the cache is
// left empty and the error is returned.
func (c *StorageCache) Preload(ctx context.Context, database, table string) error {
	c.mu.Lock()
	c.snapshot = nil
	c.valid = false
	c.mu.Unlock()

	v, err, _ := c.group.Do(database+"\x00"+table, func() (any, error) {
		h, err := c.gateway.Open(ctx, database)
		if err != nil {
			return nil, err
		}
		return c.gateway.ReadAll(ctx, h, table)
	})
	if err != nil {
		c.mu.Lock()
		c.snapshot = nil
		c.valid = false
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.snapshot = v.([]record.Record)
	c.database = database
	c.table = table
	c.valid = true
	c.mu.Unlock()
	return nil
}

// IsValid reports whether a snapshot for exactly (database, table) is
// present. Identity is compared by string equality only; a stale-but-tagged
// snapshot is still valid until invalidated.
func (c *StorageCache) IsValid(database, table string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.valid && c.database == database && c.table == table
}

// Invalidate clears the snapshot, forcing the next access to refetch.
func (c *StorageCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshot = nil
	c.valid = false
}

// Get returns the current snapshot, or nil when none is held. The returned
// slice is the cache's own copy of the durable records; callers must not
// mutate it.
func (c *StorageCache) Get() []record.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.valid {
		return nil
	}
	return c.snapshot
}
