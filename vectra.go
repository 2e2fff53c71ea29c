package vectra

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/vectra/cache"
	"github.com/hupe1980/vectra/embedding"
	"github.com/hupe1980/vectra/record"
	"github.com/hupe1980/vectra/similarity"
	"github.com/hupe1980/vectra/store"
)

// timeNow is a hook for tests.
var timeNow = time.Now

// Index is the entry point: an in-memory similarity index over schema-
// validated records, with optional durable-storage and text-embedding
// collaborators.
//
// All methods are safe for concurrent use.
type Index struct {
	opts     options
	store    *store.RecordStore
	cache    *cache.StorageCache
	embedder embedding.Provider
	score    similarity.Func
}

// New creates an empty Index.
func New(optFns ...Option) (*Index, error) {
	opts := applyOptions(optFns)

	score, err := similarity.Provider(opts.metric)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		opts:  opts,
		store: store.New(),
		score: score,
	}
	if opts.gateway != nil {
		idx.cache = cache.New(opts.gateway)
	}
	if opts.embedder != nil {
		idx.embedder = opts.embedder
		if opts.embeddingCache != nil {
			idx.embedder = embedding.Cached(opts.embedder, opts.embeddingCache)
		}
	}
	return idx, nil
}

// NewFromRecords creates an Index seeded with the given records. The first
// record establishes the schema.
func NewFromRecords(records []record.Record, optFns ...Option) (*Index, error) {
	idx, err := New(optFns...)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if err := idx.Add(context.Background(), rec); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Add validates and stores a record. The first added record establishes
// the attribute schema; every later record must carry at least those
// attributes and a well-formed embedding.
func (idx *Index) Add(ctx context.Context, rec record.Record) error {
	start := timeNow()
	err := translateError(idx.store.Add(rec))
	idx.opts.metricsCollector.RecordAdd(timeNow().Sub(start), err)
	idx.opts.logger.LogAdd(ctx, idx.store.Size(), err)
	return err
}

// Update merges the patch into the first record matching the filter.
// Returns ErrNotFound when nothing matches.
func (idx *Index) Update(ctx context.Context, filter record.Filter, patch record.Record) error {
	start := timeNow()
	err := translateError(idx.store.Update(filter, patch))
	idx.opts.metricsCollector.RecordUpdate(timeNow().Sub(start), err)
	idx.opts.logger.LogUpdate(ctx, err)
	return err
}

// Remove deletes the first record matching the filter. Returns ErrNotFound
// when nothing matches.
func (idx *Index) Remove(ctx context.Context, filter record.Filter) error {
	start := timeNow()
	err := translateError(idx.store.Remove(filter))
	idx.opts.metricsCollector.RecordRemove(timeNow().Sub(start), err)
	idx.opts.logger.LogRemove(ctx, err)
	return err
}

// RemoveBatch deletes the first match of each filter. Filters without a
// match are skipped.
func (idx *Index) RemoveBatch(ctx context.Context, filters []record.Filter) {
	start := timeNow()
	idx.store.RemoveBatch(filters)
	idx.opts.metricsCollector.RecordRemove(timeNow().Sub(start), nil)
	idx.opts.logger.LogRemove(ctx, nil)
}

// Get returns the first record matching the filter. A miss is reported via
// the bool, not an error.
func (idx *Index) Get(filter record.Filter) (record.Record, bool) {
	return idx.store.Get(filter)
}

// Size returns the number of in-memory records.
func (idx *Index) Size() int {
	return idx.store.Size()
}

// Clear discards all in-memory records. The schema and any storage
// snapshot are retained.
func (idx *Index) Clear() {
	idx.store.Clear()
}

// Search starts a fluent search for records similar to the query vector.
func (idx *Index) Search(query []float32) *SearchRequest {
	return &SearchRequest{
		index: idx,
		query: query,
	}
}

// Preload fetches the full record sequence for (database, table) into the
// snapshot cache, replacing any previous snapshot.
func (idx *Index) Preload(ctx context.Context, database, table string) error {
	if idx.cache == nil {
		return ErrStorageUnavailable
	}

	start := timeNow()
	err := idx.cache.Preload(ctx, database, table)
	idx.opts.metricsCollector.RecordPreload(timeNow().Sub(start), err)
	if err != nil {
		err = newStorageError("preload", database, table, err)
	}
	idx.opts.logger.LogPreload(ctx, database, table, len(idx.cache.Get()), err)
	return err
}

// InvalidateCache discards the storage snapshot, forcing the next
// storage-backed search or Preload to refetch.
func (idx *Index) InvalidateCache() {
	if idx.cache != nil {
		idx.cache.Invalidate()
	}
}

// SaveAll writes the in-memory records wholesale to (database, table),
// creating the table if needed and replacing its previous contents. A
// snapshot cached for the same identity is invalidated.
func (idx *Index) SaveAll(ctx context.Context, database, table string) error {
	if idx.opts.gateway == nil {
		return ErrStorageUnavailable
	}

	records := idx.store.Records()
	err := func() error {
		h, err := idx.opts.gateway.Open(ctx, database)
		if err != nil {
			return err
		}
		if err := idx.opts.gateway.EnsureTable(ctx, h, table); err != nil {
			return err
		}
		return idx.opts.gateway.WriteAll(ctx, h, table, records)
	}()
	if err != nil {
		err = newStorageError("save", database, table, err)
	} else if idx.cache != nil && idx.cache.IsValid(database, table) {
		idx.cache.Invalidate()
	}
	idx.opts.logger.LogSaveAll(ctx, database, table, len(records), err)
	return err
}

// DeleteTable removes the table from durable storage. The snapshot cache
// is invalidated if it holds that table.
func (idx *Index) DeleteTable(ctx context.Context, database, table string) error {
	if idx.opts.gateway == nil {
		return ErrStorageUnavailable
	}

	if err := idx.opts.gateway.DeleteTable(ctx, database, table); err != nil {
		return newStorageError("delete table", database, table, err)
	}
	if idx.cache != nil && idx.cache.IsValid(database, table) {
		idx.cache.Invalidate()
	}
	return nil
}

// DeleteDatabase removes the database and all its tables from durable
// storage. The snapshot cache is invalidated.
func (idx *Index) DeleteDatabase(ctx context.Context, database string) error {
	if idx.opts.gateway == nil {
		return ErrStorageUnavailable
	}

	if err := idx.opts.gateway.DeleteDatabase(ctx, database); err != nil {
		return newStorageError("delete database", database, "", err)
	}
	idx.InvalidateCache()
	return nil
}

// Dump writes the in-memory records to w using the configured codec.
// Intended for debugging and data export.
func (idx *Index) Dump(w io.Writer) error {
	data, err := idx.opts.codec.Marshal(idx.store.Records())
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// AddText embeds the text with the configured provider and stores it as a
// record carrying the given attributes plus the text itself.
func (idx *Index) AddText(ctx context.Context, text string, attrs record.Record) error {
	if idx.embedder == nil {
		return fmt.Errorf("no embedding provider configured")
	}

	vec, err := idx.embedder.Embed(ctx, text)
	if err != nil {
		return err
	}

	rec := attrs.Clone()
	if rec == nil {
		rec = record.Record{}
	}
	rec["text"] = text
	rec[record.EmbeddingKey] = vec
	return idx.Add(ctx, rec)
}

// SearchText embeds the text and returns a search builder over the
// resulting query vector.
func (idx *Index) SearchText(ctx context.Context, text string) (*SearchRequest, error) {
	if idx.embedder == nil {
		return nil, fmt.Errorf("no embedding provider configured")
	}

	vec, err := idx.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return idx.Search(vec), nil
}

func (idx *Index) afterSearch(ctx context.Context, topK, found int, duration time.Duration, err error) {
	idx.opts.metricsCollector.RecordSearch(topK, duration, err)
	idx.opts.logger.LogSearch(ctx, topK, found, err)
}
