// Package s3 implements a storage.Gateway on AWS S3. Each logical table is
// one object under "<prefix>/<database>/<table>.rec"; transfers go through
// the s3/manager uploader and downloader.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/vectra/codec"
	"github.com/hupe1980/vectra/record"
	"github.com/hupe1980/vectra/storage"
)

// Options configures the gateway.
type Options struct {
	// Codec encodes table objects. Defaults to codec.Default.
	Codec codec.Codec
}

// Gateway is an S3-backed storage.Gateway.
type Gateway struct {
	client     *awss3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
	bucket     string
	prefix     string
	codec      codec.Codec
}

// New creates a gateway writing into the given bucket under rootPrefix.
func New(client *awss3.Client, bucket, rootPrefix string, optFns ...func(o *Options)) *Gateway {
	opts := Options{
		Codec: codec.Default,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Gateway{
		client:     client,
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
		bucket:     bucket,
		prefix:     rootPrefix,
		codec:      opts.Codec,
	}
}

// NewDefault creates a gateway using the default AWS config chain.
func NewDefault(ctx context.Context, bucket, rootPrefix string, optFns ...func(o *Options)) (*Gateway, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrUnsupported, err)
	}
	return New(awss3.NewFromConfig(cfg), bucket, rootPrefix, optFns...), nil
}

type handle struct {
	database string
}

func (h handle) Database() string { return h.database }

// Open verifies the bucket exists and returns a handle.
func (g *Gateway) Open(ctx context.Context, database string) (storage.Handle, error) {
	_, err := g.client.HeadBucket(ctx, &awss3.HeadBucketInput{
		Bucket: aws.String(g.bucket),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return nil, fmt.Errorf("%w: bucket %q does not exist", storage.ErrUnsupported, g.bucket)
		}
		return nil, fmt.Errorf("%w: %w", storage.ErrConnectionFailure, err)
	}
	return handle{database: database}, nil
}

// EnsureTable writes an empty table object if none exists.
func (g *Gateway) EnsureTable(ctx context.Context, h storage.Handle, table string) error {
	key := g.key(h.Database(), table)
	_, err := g.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return nil
	}
	var nf *types.NotFound
	if !errors.As(err, &nf) {
		return fmt.Errorf("%w: %w", storage.ErrConnectionFailure, err)
	}
	return g.WriteAll(ctx, h, table, nil)
}

// ReadAll downloads and decodes the table object.
func (g *Gateway) ReadAll(ctx context.Context, h storage.Handle, table string) ([]record.Record, error) {
	key := g.key(h.Database(), table)

	buf := manager.NewWriteAtBuffer(nil)
	_, err := g.downloader.Download(ctx, buf, &awss3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: table %q", storage.ErrNotFound, table)
		}
		return nil, fmt.Errorf("%w: %w", storage.ErrConnectionFailure, err)
	}
	return storage.DecodeRecords(g.codec, buf.Bytes())
}

// WriteAll replaces the table object.
func (g *Gateway) WriteAll(ctx context.Context, h storage.Handle, table string, records []record.Record) error {
	data, err := storage.EncodeRecords(g.codec, records)
	if err != nil {
		return err
	}
	_, err = g.uploader.Upload(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(g.key(h.Database(), table)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrConnectionFailure, err)
	}
	return nil
}

// DeleteTable removes the table object.
func (g *Gateway) DeleteTable(ctx context.Context, database, table string) error {
	key := g.key(database, table)
	_, err := g.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return fmt.Errorf("%w: table %q", storage.ErrNotFound, table)
		}
		return fmt.Errorf("%w: %w", storage.ErrConnectionFailure, err)
	}
	_, err = g.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrConnectionFailure, err)
	}
	return nil
}

// DeleteDatabase removes every table object under the database prefix.
func (g *Gateway) DeleteDatabase(ctx context.Context, database string) error {
	prefix := path.Join(g.prefix, database) + "/"

	found := false
	paginator := awss3.NewListObjectsV2Paginator(g.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(g.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", storage.ErrConnectionFailure, err)
		}
		for _, obj := range page.Contents {
			found = true
			_, err := g.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
				Bucket: aws.String(g.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				return fmt.Errorf("%w: %w", storage.ErrConnectionFailure, err)
			}
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
