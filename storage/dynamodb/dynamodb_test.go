package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"testing"

	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vectra/record"
	"github.com/hupe1980/vectra/storage"
)

// fakeClient implements Client over an in-memory item set.
type fakeClient struct {
	missing bool
	// pk -> sk -> payload (nil for the marker item)
	items map[string]map[int][]byte
}

func newFakeClient() *fakeClient {
	return &fakeClient{items: make(map[string]map[int][]byte)}
}

func (f *fakeClient) DescribeTable(_ context.Context, _ *awsdynamodb.DescribeTableInput, _ ...func(*awsdynamodb.Options)) (*awsdynamodb.DescribeTableOutput, error) {
	if f.missing {
		return nil, &types.ResourceNotFoundException{}
	}
	return &awsdynamodb.DescribeTableOutput{}, nil
}

func (f *fakeClient) Query(_ context.Context, params *awsdynamodb.QueryInput, _ ...func(*awsdynamodb.Options)) (*awsdynamodb.QueryOutput, error) {
	pk := params.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value
	return &awsdynamodb.QueryOutput{Items: f.partitionItems(pk)}, nil
}

func (f *fakeClient) Scan(_ context.Context, params *awsdynamodb.ScanInput, _ ...func(*awsdynamodb.Options)) (*awsdynamodb.ScanOutput, error) {
	prefix := params.ExpressionAttributeValues[":prefix"].(*types.AttributeValueMemberS).Value

	var items []map[string]types.AttributeValue
	for pk := range f.items {
		if strings.HasPrefix(pk, prefix) {
			items = append(items, f.partitionItems(pk)...)
		}
	}
	return &awsdynamodb.ScanOutput{Items: items}, nil
}

func (f *fakeClient) BatchWriteItem(_ context.Context, params *awsdynamodb.BatchWriteItemInput, _ ...func(*awsdynamodb.Options)) (*awsdynamodb.BatchWriteItemOutput, error) {
	for table, writes := range params.RequestItems {
		if len(writes) > batchWriteLimit {
			return nil, fmt.Errorf("batch of %d exceeds limit for table %s", len(writes), table)
		}
		for _, w := range writes {
			switch {
			case w.PutRequest != nil:
				pk, sk := itemKey(w.PutRequest.Item)
				if f.items[pk] == nil {
					f.items[pk] = make(map[int][]byte)
				}
				var payload []byte
				if p, ok := w.PutRequest.Item["payload"].(*types.AttributeValueMemberB); ok {
					payload = p.Value
				}
				f.items[pk][sk] = payload
			case w.DeleteRequest != nil:
				pk, sk := itemKey(w.DeleteRequest.Key)
				delete(f.items[pk], sk)
				if len(f.items[pk]) == 0 {
					delete(f.items, pk)
				}
			}
		}
	}
	return &awsdynamodb.BatchWriteItemOutput{}, nil
}

func (f *fakeClient) partitionItems(pk string) []map[string]types.AttributeValue {
	sks := make([]int, 0, len(f.items[pk]))
	for sk := range f.items[pk] {
		sks = append(sks, sk)
	}
	sort.Ints(sks)

	items := make([]map[string]types.AttributeValue, 0, len(sks))
	for _, sk := range sks {
		item := map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: pk},
			"sk": &types.AttributeValueMemberN{Value: strconv.Itoa(sk)},
		}
		if payload := f.items[pk][sk]; payload != nil {
			item["payload"] = &types.AttributeValueMemberB{Value: payload}
		}
		items = append(items, item)
	}
	return items
}

func itemKey(item map[string]types.AttributeValue) (string, int) {
	pk := item["pk"].(*types.AttributeValueMemberS).Value
	sk, _ := strconv.Atoi(item["sk"].(*types.AttributeValueMemberN).Value)
	return pk, sk
}

func testRecords(n int) []record.Record {
	records := make([]record.Record, n)
	for i := range records {
		records[i] = record.Record{
			"id":                fmt.Sprintf("rec-%d", i),
			record.EmbeddingKey: []float32{float32(i), 1},
		}
	}
	return records
}

func TestOpenMissingBackingTable(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	client.missing = true

	gw := New(client, "vectra")
	_, err := gw.Open(ctx, "db")
	require.ErrorIs(t, err, storage.ErrUnsupported)
}

func TestEnsureTableEmptyVsAbsent(t *testing.T) {
	ctx := context.Background()
	gw := New(newFakeClient(), "vectra")

	h, err := gw.Open(ctx, "db")
	require.NoError(t, err)

	// Absent table reads as not found.
	_, err = gw.ReadAll(ctx, h, "tbl")
	require.ErrorIs(t, err, storage.ErrNotFound)

	// Ensured-but-empty table reads as empty.
	require.NoError(t, gw.EnsureTable(ctx, h, "tbl"))
	got, err := gw.ReadAll(ctx, h, "tbl")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteAllReadAllRoundTrip(t *testing.T) {
	ctx := context.Background()
	gw := New(newFakeClient(), "vectra")

	h, err := gw.Open(ctx, "db")
	require.NoError(t, err)

	// More than one BatchWriteItem chunk.
	records := testRecords(60)
	require.NoError(t, gw.WriteAll(ctx, h, "tbl", records))

	got, err := gw.ReadAll(ctx, h, "tbl")
	require.NoError(t, err)
	require.Len(t, got, 60)
	for i, rec := range got {
		assert.Equal(t, fmt.Sprintf("rec-%d", i), rec["id"])
		emb, ok := rec.Embedding()
		require.True(t, ok)
		assert.Equal(t, []float32{float32(i), 1}, emb)
	}
}

func TestWriteAllReplaces(t *testing.T) {
	ctx := context.Background()
	gw := New(newFakeClient(), "vectra")

	h, err := gw.Open(ctx, "db")
	require.NoError(t, err)

	require.NoError(t, gw.WriteAll(ctx, h, "tbl", testRecords(5)))
	require.NoError(t, gw.WriteAll(ctx, h, "tbl", testRecords(2)))

	got, err := gw.ReadAll(ctx, h, "tbl")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestDeleteTable(t *testing.T) {
	ctx := context.Background()
	gw := New(newFakeClient(), "vectra")

	h, err := gw.Open(ctx, "db")
	require.NoError(t, err)
	require.NoError(t, gw.WriteAll(ctx, h, "tbl", testRecords(3)))

	require.NoError(t, gw.DeleteTable(ctx, "db", "tbl"))
	_, err = gw.ReadAll(ctx, h, "tbl")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.ErrorIs(t, gw.DeleteTable(ctx, "db", "tbl"), storage.ErrNotFound)
}

func TestDeleteDatabase(t *testing.T) {
	ctx := context.Background()
	gw := New(newFakeClient(), "vectra")

	h, err := gw.Open(ctx, "db")
	require.NoError(t, err)
	require.NoError(t, gw.WriteAll(ctx, h, "a", testRecords(2)))
	require.NoError(t, gw.WriteAll(ctx, h, "b", testRecords(2)))

	require.NoError(t, gw.DeleteDatabase(ctx, "db"))
	_, err = gw.ReadAll(ctx, h, "a")
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = gw.ReadAll(ctx, h, "b")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.ErrorIs(t, gw.DeleteDatabase(ctx, "db"), storage.ErrNotFound)
}
