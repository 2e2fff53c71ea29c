// Package dynamodb implements a storage.Gateway backed by a single
// DynamoDB table.
//
// Logical databases and tables are multiplexed into one provisioned
// DynamoDB table via the partition key:
//
//   - Partition key: pk (string)  - "<database>/<table>"
//   - Sort key:      sk (number)  - record position, -1 for the table marker
//   - payload:       B            - codec-encoded record
//
// Create the backing table with:
//
//	aws dynamodb create-table \
//	  --table-name vectra \
//	  --attribute-definitions AttributeName=pk,AttributeType=S AttributeName=sk,AttributeType=N \
//	  --key-schema AttributeName=pk,KeyType=HASH AttributeName=sk,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/vectra/codec"
	"github.com/hupe1980/vectra/record"
	"github.com/hupe1980/vectra/storage"
)

// markerSortKey tags the item that marks a table as existing, so an empty
// table is distinguishable from an absent one.
const markerSortKey = -1

// batchWriteLimit is the DynamoDB BatchWriteItem request cap.
const batchWriteLimit = 25

// Client is the subset of the DynamoDB API the gateway uses.
type Client interface {
	DescribeTable(ctx context.Context, params *awsdynamodb.DescribeTableInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.DescribeTableOutput, error)
	Query(ctx context.Context, params *awsdynamodb.QueryInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *awsdynamodb.ScanInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *awsdynamodb.BatchWriteItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.BatchWriteItemOutput, error)
}

// Options configures the gateway.
type Options struct {
	// Codec encodes record payloads. Defaults to codec.Default.
	Codec codec.Codec
}

// Gateway is a DynamoDB-backed storage.Gateway.
type Gateway struct {
	client    Client
	tableName string
	codec     codec.Codec
}

// New creates a gateway on the given DynamoDB client and backing table.
func New(client Client, tableName string, optFns ...func(o *Options)) *Gateway {
	opts := Options{
		Codec: codec.Default,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Gateway{
		client:    client,
		tableName: tableName,
		codec:     opts.Codec,
	}
}

// NewDefault creates a gateway using the default AWS config chain.
func NewDefault(ctx context.Context, tableName string, optFns ...func(o *Options)) (*Gateway, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrUnsupported, err)
	}
	return New(awsdynamodb.NewFromConfig(cfg), tableName, optFns...), nil
}

type handle struct {
	database string
}

func (h handle) Database() string { return h.database }

// Open verifies the backing table is reachable and returns a handle.
// A missing backing table means the durable-storage capability is absent,
// which maps to storage.ErrUnsupported before any data I/O happens.
func (g *Gateway) Open(ctx context.Context, database string) (storage.Handle, error) {
	_, err := g.client.DescribeTable(ctx, &awsdynamodb.DescribeTableInput{
		TableName: aws.String(g.tableName),
	})
	if err != nil {
		var rnf *types.ResourceNotFoundException
		if errors.As(err, &rnf) {
			return nil, fmt.Errorf("%w: backing table %q not provisioned", storage.ErrUnsupported, g.tableName)
		}
		return nil, fmt.Errorf("%w: %w", storage.ErrConnectionFailure, err)
	}
	return handle{database: database}, nil
}

// EnsureTable writes the table marker item if the table has no items yet.
func (g *Gateway) EnsureTable(ctx context.Context, h storage.Handle, table string) error {
	pk := g.partitionKey(h.Database(), table)
	keys, err := g.queryKeys(ctx, pk)
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		return nil
	}
	return g.batchWrite(ctx, []types.WriteRequest{markerPut(pk)})
}

// ReadAll queries all items of the logical table in position order.
func (g *Gateway) ReadAll(ctx context.Context, h storage.Handle, table string) ([]record.Record, error) {
	pk := g.partitionKey(h.Database(), table)

	records := []record.Record{}
	found := false
	var startKey map[string]types.AttributeValue
	for {
		out, err := g.client.Query(ctx, &awsdynamodb.QueryInput{
			TableName:              aws.String(g.tableName),
			KeyConditionExpression: aws.String("pk = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: pk},
			},
			ScanIndexForward:  aws.Bool(true),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrConnectionFailure, err)
		}

		for _, item := range out.Items {
			found = true
			if isMarker(item) {
				continue
			}
			payload, ok := item["payload"].(*types.AttributeValueMemberB)
			if !ok {
				continue
			}
			var rec record.Record
			if err := g.codec.Unmarshal(payload.Value, &rec); err != nil {
				return nil, fmt.Errorf("decode record: %w", err)
			}
			_ = rec.Validate()
			records = append(records, rec)
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	if !found {
		return nil, fmt.Errorf("%w: table %q", storage.ErrNotFound, table)
	}
	return records, nil
}

// WriteAll replaces the logical table: existing items are deleted, then the
// marker and the new record sequence are written.
func (g *Gateway) WriteAll(ctx context.Context, h storage.Handle, table string, records []record.Record) error {
	pk := g.partitionKey(h.Database(), table)

	if err := g.deletePartition(ctx, pk); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	writes := []types.WriteRequest{markerPut(pk)}
	for i, rec := range records {
		payload, err := g.codec.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		writes = append(writes, types.WriteRequest{
			PutRequest: &types.PutRequest{
				Item: map[string]types.AttributeValue{
					"pk":      &types.AttributeValueMemberS{Value: pk},
					"sk":      &types.AttributeValueMemberN{Value: strconv.Itoa(i)},
					"payload": &types.AttributeValueMemberB{Value: payload},
				},
			},
		})
	}
	return g.batchWrite(ctx, writes)
}

// DeleteTable removes all items of the logical table.
func (g *Gateway) DeleteTable(ctx context.Context, database, table string) error {
	return g.deletePartition(ctx, g.partitionKey(database, table))
}

// DeleteDatabase removes all logical tables of the database. This scans the
// backing table; databases are expected to be few and small.
func (g *Gateway) DeleteDatabase(ctx context.Context, database string) error {
	prefix := database + "/"

	var keys []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue
	for {
		out, err := g.client.Scan(ctx, &awsdynamodb.ScanInput{
			TableName:            aws.String(g.tableName),
			FilterExpression:     aws.String("begins_with(pk, :prefix)"),
			ProjectionExpression: aws.String("pk, sk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":prefix": &types.AttributeValueMemberS{Value: prefix},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return fmt.Errorf("%w: %w", storage.ErrConnectionFailure, err)
		}
		keys = append(keys, out.Items...)
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	if len(keys) == 0 {
		return fmt.Errorf("%w: database %q", storage.ErrNotFound, database)
	}
	return g.deleteKeys(ctx, keys)
}

func (g *Gateway) partitionKey(database, table string) string {
	return database + "/" + table
}

func (g *Gateway) queryKeys(ctx context.Context, pk string) ([]map[string]types.AttributeValue, error) {
	var keys []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue
	for {
		out, err := g.client.Query(ctx, &awsdynamodb.QueryInput{
			TableName:              aws.String(g.tableName),
			KeyConditionExpression: aws.String("pk = :pk"),
			ProjectionExpression:   aws.String("pk, sk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: pk},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrConnectionFailure, err)
		}
		keys = append(keys, out.Items...)
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return keys, nil
}

func (g *Gateway) deletePartition(ctx context.Context, pk string) error {
	keys, err := g.queryKeys(ctx, pk)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: %q", storage.ErrNotFound, pk)
	}
	return g.deleteKeys(ctx, keys)
}

func (g *Gateway) deleteKeys(ctx context.Context, keys []map[string]types.AttributeValue) error {
	writes := make([]types.WriteRequest, 0, len(keys))
	for _, key := range keys {
		writes = append(writes, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{
				Key: map[string]types.AttributeValue{
					"pk": key["pk"],
					"sk": key["sk"],
				},
			},
		})
	}
	return g.batchWrite(ctx, writes)
}

// batchWrite issues chunked BatchWriteItem calls, retrying unprocessed
// items until none remain.
func (g *Gateway) batchWrite(ctx context.Context, writes []types.WriteRequest) error {
	for len(writes) > 0 {
		chunk := writes
		if len(chunk) > batchWriteLimit {
			chunk = chunk[:batchWriteLimit]
		}
		writes = writes[len(chunk):]

		pending := chunk
		for len(pending) > 0 {
			out, err := g.client.BatchWriteItem(ctx, &awsdynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{
					g.tableName: pending,
				},
			})
			if err != nil {
				return fmt.Errorf("%w: %w", storage.ErrConnectionFailure, err)
			}
			pending = out.UnprocessedItems[g.tableName]
		}
	}
	return nil
}

func markerPut(pk string) types.WriteRequest {
	return types.WriteRequest{
		PutRequest: &types.PutRequest{
			Item: map[string]types.AttributeValue{
				"pk": &types.AttributeValueMemberS{Value: pk},
				"sk": &types.AttributeValueMemberN{Value: strconv.Itoa(markerSortKey)},
			},
		},
	}
}

func isMarker(item map[string]types.AttributeValue) bool {
	sk, ok := item["sk"].(*types.AttributeValueMemberN)
	return ok && sk.Value == strconv.Itoa(markerSortKey)
}
