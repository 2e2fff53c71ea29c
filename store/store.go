// Package store implements the in-memory record store: an insertion-ordered
// record collection with a fixed attribute schema and equality-filter CRUD.
//
// The store is guarded by a single RWMutex; mutation and scans serialize at
// this boundary. Callers that need a stable view while mutating concurrently
// should scan over the copy returned by Records.
package store

import (
	"errors"
	"slices"
	"sync"

	"github.com/hupe1980/vectra/record"
)

// ErrNotFound is returned when no record matches the filter of a
// single-target update or remove.
//
// This is a store-layer sentinel; the vectra package translates it into its
// public error contract.
var ErrNotFound = errors.New("no matching record")

// RecordStore owns an ordered collection of records sharing one schema.
type RecordStore struct {
	mu      sync.RWMutex
	schema  record.Schema
	records []record.Record
	ids     []uint32
	byID    map[uint32]int
	nextID  uint32
	inv     *invertedIndex
}

// New creates an empty RecordStore. The schema is established by the first
// added record, or up front via SetSchema.
func New() *RecordStore {
	return &RecordStore{
		byID: make(map[uint32]int),
		inv:  newInvertedIndex(),
	}
}

// SetSchema establishes the schema explicitly. It is a no-op once a schema
// exists.
func (rs *RecordStore) SetSchema(s record.Schema) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.schema == nil {
		rs.schema = s
	}
}

// Schema returns the established schema, or nil if none yet.
func (rs *RecordStore) Schema() record.Schema {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	return rs.schema
}

// Add validates and appends a record. The first record establishes the
// schema; later records must carry at least the schema's attributes. The
// store keeps its own copy of the record.
func (rs *RecordStore) Add(rec record.Record) error {
	c := rec.Clone()
	if err := c.Validate(); err != nil {
		return err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.schema == nil {
		rs.schema = record.NewSchema(c)
	} else if err := rs.schema.Validate(c); err != nil {
		return err
	}

	id := rs.nextID
	rs.nextID++
	rs.byID[id] = len(rs.records)
	rs.records = append(rs.records, c)
	rs.ids = append(rs.ids, id)
	rs.inv.add(id, c)
	return nil
}

// Update merges the patch into the first record matching the filter.
// Patched attributes overwrite, all others are retained. A patch carrying
// an embedding is validated like an add.
func (rs *RecordStore) Update(filter record.Filter, patch record.Record) error {
	var emb []float32
	if _, ok := patch[record.EmbeddingKey]; ok {
		probe := record.Record{record.EmbeddingKey: patch[record.EmbeddingKey]}
		if err := probe.Validate(); err != nil {
			return err
		}
		v, _ := probe.Embedding()
		emb = slices.Clone(v)
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	pos := rs.findFirst(filter)
	if pos < 0 {
		return ErrNotFound
	}

	id, rec := rs.ids[pos], rs.records[pos]
	rs.inv.remove(id, rec)
	for k, v := range patch {
		if k == record.EmbeddingKey {
			rec[k] = emb
			continue
		}
		rec[k] = v
	}
	rs.inv.add(id, rec)
	return nil
}

// Remove deletes the first record matching the filter.
func (rs *RecordStore) Remove(filter record.Filter) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	return rs.removeFirst(filter)
}

// RemoveBatch deletes the first match of each filter. Filters without a
// match are skipped, which makes the operation idempotent.
func (rs *RecordStore) RemoveBatch(filters []record.Filter) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	for _, f := range filters {
		_ = rs.removeFirst(f)
	}
}

// Get returns the first record matching the filter, or nil when none does.
// Lookup misses are a normal outcome, not an error. The returned record is
// the stored one; callers must not mutate it.
func (rs *RecordStore) Get(filter record.Filter) (record.Record, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	pos := rs.findFirst(filter)
	if pos < 0 {
		return nil, false
	}
	return rs.records[pos], true
}

// Size returns the number of stored records.
func (rs *RecordStore) Size() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	return len(rs.records)
}

// Clear discards all records. The established schema is retained.
func (rs *RecordStore) Clear() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.records = nil
	rs.ids = nil
	rs.byID = make(map[uint32]int)
	rs.inv.clear()
}

// Records returns the stored records in insertion order. The slice is a
// copy; the records themselves are not.
func (rs *RecordStore) Records() []record.Record {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	out := make([]record.Record, len(rs.records))
	copy(out, rs.records)
	return out
}

// Matching returns the records satisfying the filter in insertion order,
// using the inverted index to narrow candidates where possible.
func (rs *RecordStore) Matching(filter record.Filter) []record.Record {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	if len(filter) == 0 {
		out := make([]record.Record, len(rs.records))
		copy(out, rs.records)
		return out
	}

	var out []record.Record
	if bm, ok := rs.inv.candidates(filter); ok {
		it := bm.Iterator()
		for it.HasNext() {
			pos, ok := rs.byID[it.Next()]
			if !ok {
				continue
			}
			if filter.Matches(rs.records[pos]) {
				out = append(out, rs.records[pos])
			}
		}
		return out
	}

	for _, rec := range rs.records {
		if filter.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// removeFirst assumes rs.mu is held for writing.
func (rs *RecordStore) removeFirst(filter record.Filter) error {
	pos := rs.findFirst(filter)
	if pos < 0 {
		return ErrNotFound
	}

	id := rs.ids[pos]
	rs.inv.remove(id, rs.records[pos])
	delete(rs.byID, id)

	rs.records = append(rs.records[:pos], rs.records[pos+1:]...)
	rs.ids = append(rs.ids[:pos], rs.ids[pos+1:]...)
	for i := pos; i < len(rs.ids); i++ {
		rs.byID[rs.ids[i]] = i
	}
	return nil
}

// findFirst returns the position of the first match in insertion order, or
// -1. Record IDs are monotonically increasing, so ascending bitmap order is
// insertion order. Assumes rs.mu is held.
func (rs *RecordStore) findFirst(filter record.Filter) int {
	if len(filter) == 0 {
		if len(rs.records) == 0 {
			return -1
		}
		return 0
	}

	if bm, ok := rs.inv.candidates(filter); ok {
		it := bm.Iterator()
		for it.HasNext() {
			pos, ok := rs.byID[it.Next()]
			if !ok {
				continue
			}
			if filter.Matches(rs.records[pos]) {
				return pos
			}
		}
		return -1
	}

	for pos, rec := range rs.records {
		if filter.Matches(rec) {
			return pos
		}
	}
	return -1
}
