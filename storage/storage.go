// Package storage defines the durable-storage gateway the index persists
// through, plus in-memory and file-backed implementations. Object-store and
// DynamoDB gateways live in subpackages.
package storage

import (
	"context"
	"errors"

	"github.com/hupe1980/vectra/codec"
	"github.com/hupe1980/vectra/record"
)

var (
	// ErrNotFound is returned when a database or table does not exist.
	//
	// Implementations should return an error that satisfies
	// `errors.Is(err, ErrNotFound)`.
	ErrNotFound = errors.New("database or table not found")

	// ErrConnectionFailure wraps transport-level failures talking to the
	// backing store.
	ErrConnectionFailure = errors.New("storage connection failure")

	// ErrUnsupported is returned by gateways whose backing capability is
	// absent in the running environment. It must be reported before any
	// I/O is attempted.
	ErrUnsupported = errors.New("storage capability unavailable")
)

// Handle is an opaque reference to an opened database.
type Handle interface {
	// Database returns the database name the handle was opened for.
	Database() string
}

// Gateway is the durable-storage collaborator. A database groups named
// tables; a table holds an ordered record sequence with whole-table
// read/replace semantics.
type Gateway interface {
	// Open opens the named database, creating it if absent.
	Open(ctx context.Context, database string) (Handle, error)

	// EnsureTable creates the table if it does not exist.
	EnsureTable(ctx context.Context, h Handle, table string) error

	// ReadAll returns the full record sequence of the table.
	ReadAll(ctx context.Context, h Handle, table string) ([]record.Record, error)

	// WriteAll replaces the table contents with the given records.
	WriteAll(ctx context.Context, h Handle, table string, records []record.Record) error

	// DeleteTable removes the table.
	DeleteTable(ctx context.Context, database, table string) error

	// DeleteDatabase removes the database and all its tables.
	DeleteDatabase(ctx context.Context, database string) error
}

// EncodeRecords serializes a record sequence with the given codec.
func EncodeRecords(c codec.Codec, records []record.Record) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}
	if records == nil {
		records = []record.Record{}
	}
	return c.Marshal(records)
}

// DecodeRecords deserializes a record sequence and re-normalizes embeddings
// that the codec widened to []any/float64. Records whose embedding does not
// normalize are returned untouched; the search path skips them.
func DecodeRecords(c codec.Codec, data []byte) ([]record.Record, error) {
	if c == nil {
		c = codec.Default
	}
	var records []record.Record
	if err := c.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	for _, r := range records {
		_ = r.Validate()
	}
	return records, nil
}
