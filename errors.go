package vectra

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vectra/record"
	"github.com/hupe1980/vectra/store"
)

var (
	// ErrNotFound is returned when no record matches the filter of an
	// update or remove.
	ErrNotFound = errors.New("not found")

	// ErrInvalidK is returned when topK is negative.
	ErrInvalidK = errors.New("topK must be positive")

	// ErrStorageUnavailable is returned when a storage-backed operation
	// is requested but no gateway is configured. It is raised before any
	// I/O is attempted.
	ErrStorageUnavailable = errors.New("storage unavailable: no gateway configured")
)

// ValidationError indicates a malformed record: a missing or invalid
// embedding, or a schema violation.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ValidationError struct {
	Reason string
	cause  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.cause }

// StorageError wraps a durable-storage failure with the operation and
// identity it occurred on.
//
// The original underlying error can be accessed via errors.Unwrap.
type StorageError struct {
	Op       string
	Database string
	Table    string
	cause    error
}

func (e *StorageError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.Database, e.cause)
	}
	return fmt.Sprintf("storage %s %s/%s: %v", e.Op, e.Database, e.Table, e.cause)
}

func (e *StorageError) Unwrap() error { return e.cause }

func newStorageError(op, database, table string, cause error) *StorageError {
	return &StorageError{Op: op, Database: database, Table: table, cause: cause}
}

// translateError maps lower-layer sentinels into the public error
// contract.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	switch {
	case errors.Is(err, record.ErrMissingEmbedding),
		errors.Is(err, record.ErrInvalidEmbedding),
		errors.Is(err, record.ErrSchemaViolation):
		return &ValidationError{Reason: err.Error(), cause: err}
	}

	return err
}
