package storage

import (
	"context"
	"sync"

	"github.com/hupe1980/vectra/record"
)

// Memory is an in-memory Gateway implementation for testing and ephemeral
// use. Thread-safe.
type Memory struct {
	mu  sync.RWMutex
	dbs map[string]map[string][]record.Record
}

// NewMemory creates an empty in-memory gateway.
func NewMemory() *Memory {
	return &Memory{
		dbs: make(map[string]map[string][]record.Record),
	}
}

type memoryHandle struct {
	database string
}

func (h memoryHandle) Database() string { return h.database }

// Open opens the named database, creating it if absent.
func (m *Memory) Open(_ context.Context, database string) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.dbs[database]; !ok {
		m.dbs[database] = make(map[string][]record.Record)
	}
	return memoryHandle{database: database}, nil
}

// EnsureTable creates the table if it does not exist.
func (m *Memory) EnsureTable(_ context.Context, h Handle, table string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	db, ok := m.dbs[h.Database()]
	if !ok {
		return ErrNotFound
	}
	if _, ok := db[table]; !ok {
		db[table] = []record.Record{}
	}
	return nil
}

// ReadAll returns a copy of the table contents.
func (m *Memory) ReadAll(_ context.Context, h Handle, table string) ([]record.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	db, ok := m.dbs[h.Database()]
	if !ok {
		return nil, ErrNotFound
	}
	records, ok := db[table]
	if !ok {
		return nil, ErrNotFound
	}

	out := make([]record.Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out, nil
}

// WriteAll replaces the table contents with copies of the given records.
func (m *Memory) WriteAll(_ context.Context, h Handle, table string, records []record.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	db, ok := m.dbs[h.Database()]
	if !ok {
		return ErrNotFound
	}

	stored := make([]record.Record, len(records))
	for i, r := range records {
		stored[i] = r.Clone()
	}
	db[table] = stored
	return nil
}

// DeleteTable removes the table.
func (m *Memory) DeleteTable(_ context.Context, database, table string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	db, ok := m.dbs[database]
	if !ok {
		return ErrNotFound
	}
	if _, ok := db[table]; !ok {
		return ErrNotFound
	}
	delete(db, table)
	return nil
}

// DeleteDatabase removes the database and all its tables.
func (m *Memory) DeleteDatabase(_ context.Context, database string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.dbs[database]; !ok {
		return ErrNotFound
	}
	delete(m.dbs, database)
	return nil
}
