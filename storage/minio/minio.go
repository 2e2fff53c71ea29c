// Package minio implements a storage.Gateway for MinIO and other
// S3-compatible object stores. Each logical table is one object under
// "<prefix>/<database>/<table>.rec".
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/vectra/codec"
	"github.com/hupe1980/vectra/record"
	"github.com/hupe1980/vectra/storage"
)

// Options configures the gateway.
type Options struct {
	// Codec encodes table objects. Defaults to codec.Default.
	Codec codec.Codec
}

// Gateway is an object-store backed storage.Gateway.
type Gateway struct {
	client *minio.Client
	bucket string
	prefix string
	codec  codec.Codec
}

// New creates a gateway writing into the given bucket. rootPrefix is
// prepended to all object keys (e.g. "vectra/").
func New(client *minio.Client, bucket, rootPrefix string, optFns ...func(o *Options)) *Gateway {
	opts := Options{
		Codec: codec.Default,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Gateway{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
		codec:  opts.Codec,
	}
}

type handle struct {
	database string
}

func (h handle) Database() string { return h.database }

// Open verifies the bucket exists and returns a handle. Object stores have
// no database object to create; the database is a key prefix.
func (g *Gateway) Open(ctx context.Context, database string) (storage.Handle, error) {
	exists, err := g.client.BucketExists(ctx, g.bucket)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrConnectionFailure, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: bucket %q does not exist", storage.ErrUnsupported, g.bucket)
	}
	return handle{database: database}, nil
}

// EnsureTable writes an empty table object if none exists.
func (g *Gateway) EnsureTable(ctx context.Context, h storage.Handle, table string) error {
	key := g.key(h.Database(), table)
	_, err := g.client.StatObject(ctx, g.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return nil
	}
	if !isNoSuchKey(err) {
		return fmt.Errorf("%w: %w", storage.ErrConnectionFailure, err)
	}
	return g.WriteAll(ctx, h, table, nil)
}

// ReadAll fetches and decodes the table object.
func (g *Gateway) ReadAll(ctx context.Context, h storage.Handle, table string) ([]record.Record, error) {
	key := g.key(h.Database(), table)
	obj, err := g.client.GetObject(ctx, g.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrConnectionFailure, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: table %q", storage.ErrNotFound, table)
		}
		return nil, fmt.Errorf("%w: %w", storage.ErrConnectionFailure, err)
	}
	return storage.DecodeRecords(g.codec, data)
}

// WriteAll replaces the table object.
func (g *Gateway) WriteAll(ctx context.Context, h storage.Handle, table string, records []record.Record) error {
	data, err := storage.EncodeRecords(g.codec, records)
	if err != nil {
		return err
	}
	key := g.key(h.Database(), table)
	_, err = g.client.PutObject(ctx, g.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrConnectionFailure, err)
	}
	return nil
}

// DeleteTable removes the table object.
func (g *Gateway) DeleteTable(ctx context.Context, database, table string) error {
	key := g.key(database, table)
	if _, err := g.client.StatObject(ctx, g.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return fmt.Errorf("%w: table %q", storage.ErrNotFound, table)
		}
		return fmt.Errorf("%w: %w", storage.ErrConnectionFailure, err)
	}
	if err := g.client.RemoveObject(ctx, g.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrConnectionFailure, err)
	}
	return nil
}

// DeleteDatabase removes every table object under the database prefix.
func (g *Gateway) DeleteDatabase(ctx context.Context, database string) error {
	prefix := path.Join(g.prefix, database) + "/"

	found := false
	for obj := range g.client.ListObjects(ctx, g.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return fmt.Errorf("%w: %w", storage.ErrConnectionFailure, obj.Err)
		}
		found = true
		if err := g.client.RemoveObject(ctx, g.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("%w: %w", storage.ErrConnectionFailure, err)
		}
	}
	if !found {
		return fmt.Errorf("%w: database %q", storage.ErrNotFound, database)
	}
	return nil
}

func (g *Gateway) key(database, table string) string {
	return path.Join(g.prefix, database, table+".rec")
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NotFound"
}
