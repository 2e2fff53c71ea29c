package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/vectra/codec"
	"github.com/hupe1980/vectra/record"
)

// Compression selects how the Local gateway compresses table files.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionLZ4
)

func (c Compression) ext() string {
	switch c {
	case CompressionZstd:
		return ".rec.zst"
	case CompressionLZ4:
		return ".rec.lz4"
	default:
		return ".rec"
	}
}

// LocalOptions configures the Local gateway.
type LocalOptions struct {
	// Codec encodes table contents. Defaults to codec.Default.
	Codec codec.Codec

	// Compression applied to table files. Defaults to CompressionNone.
	Compression Compression
}

// Local is a file-backed Gateway: each database is a directory under the
// root, each table a single encoded (optionally compressed) file. Writes
// replace the table file atomically via rename.
type Local struct {
	root        string
	codec       codec.Codec
	compression Compression
}

// NewLocal creates a file-backed gateway rooted at the given directory.
func NewLocal(root string, optFns ...func(o *LocalOptions)) *Local {
	opts := LocalOptions{
		Codec: codec.Default,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Local{
		root:        root,
		codec:       opts.Codec,
		compression: opts.Compression,
	}
}

type localHandle struct {
	database string
	dir      string
}

func (h localHandle) Database() string { return h.database }

// Open opens the named database, creating its directory if absent.
func (l *Local) Open(_ context.Context, database string) (Handle, error) {
	dir := filepath.Join(l.root, database)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailure, err)
	}
	return localHandle{database: database, dir: dir}, nil
}

// EnsureTable creates an empty table file if none exists.
func (l *Local) EnsureTable(ctx context.Context, h Handle, table string) error {
	path := l.tablePath(h.Database(), table)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrConnectionFailure, err)
	}
	return l.WriteAll(ctx, h, table, nil)
}

// ReadAll reads and decodes the full table file.
func (l *Local) ReadAll(_ context.Context, h Handle, table string) ([]record.Record, error) {
	data, err := os.ReadFile(l.tablePath(h.Database(), table))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: table %q", ErrNotFound, table)
		}
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailure, err)
	}

	data, err = l.decompress(data)
	if err != nil {
		return nil, err
	}
	return DecodeRecords(l.codec, data)
}

// WriteAll encodes the records and replaces the table file atomically.
func (l *Local) WriteAll(_ context.Context, h Handle, table string, records []record.Record) error {
	data, err := EncodeRecords(l.codec, records)
	if err != nil {
		return err
	}
	data, err = l.compress(data)
	if err != nil {
		return err
	}

	path := l.tablePath(h.Database(), table)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailure, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %w", ErrConnectionFailure, err)
	}
	return nil
}

// DeleteTable removes the table file.
func (l *Local) DeleteTable(_ context.Context, database, table string) error {
	if err := os.Remove(l.tablePath(database, table)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: table %q", ErrNotFound, table)
		}
		return fmt.Errorf("%w: %w", ErrConnectionFailure, err)
	}
	return nil
}

// DeleteDatabase removes the database directory and all table files in it.
func (l *Local) DeleteDatabase(_ context.Context, database string) error {
	dir := filepath.Join(l.root, database)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: database %q", ErrNotFound, database)
		}
		return fmt.Errorf("%w: %w", ErrConnectionFailure, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailure, err)
	}
	return nil
}

func (l *Local) tablePath(database, table string) string {
	return filepath.Join(l.root, database, table+l.compression.ext())
}

func (l *Local) compress(data []byte) ([]byte, error) {
	switch l.compression {
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return data, nil
	}
}

func (l *Local) decompress(data []byte) ([]byte, error) {
	switch l.compression {
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	case CompressionLZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	default:
		return data, nil
	}
}
