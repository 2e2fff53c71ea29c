package vectra

import (
	"context"
	"math"

	"github.com/hupe1980/vectra/record"
	"github.com/hupe1980/vectra/topk"
)

// SearchResult is a single ranked hit.
type SearchResult struct {
	// Score is the similarity of the record to the query. Higher is more
	// similar.
	Score float64

	// Record is the matched record.
	Record record.Record
}

// SearchRequest is a fluent builder for similarity searches. Obtain one via
// Index.Search, chain constraints, then call Execute.
//
//	results, err := idx.Search(query).
//		TopK(5).
//		Filter(record.Filter{"lang": "de"}).
//		Execute(ctx)
type SearchRequest struct {
	index    *Index
	query    []float32
	topK     int
	filter   record.Filter
	database string
	table    string
	storage  bool
}

// TopK sets the maximum number of results to return. Zero or unset means
// the index default.
func (r *SearchRequest) TopK(k int) *SearchRequest {
	r.topK = k
	return r
}

// Filter restricts the candidate set to records matching all given
// attribute equalities before ranking.
func (r *SearchRequest) Filter(f record.Filter) *SearchRequest {
	r.filter = f
	return r
}

// FromStorage ranks over the durable snapshot for (database, table) instead
// of the in-memory records. The snapshot is fetched through the cache and
// preloaded on a miss. When storage cannot deliver a snapshot the search
// degrades to empty results rather than failing.
func (r *SearchRequest) FromStorage(database, table string) *SearchRequest {
	r.database = database
	r.table = table
	r.storage = true
	return r
}

// Execute runs the search and returns the topK most similar records in
// descending score order. Candidates whose embedding cannot be scored
// against the query are skipped.
func (r *SearchRequest) Execute(ctx context.Context) ([]SearchResult, error) {
	start := timeNow()
	results, err := r.index.executeSearch(ctx, r)
	r.index.afterSearch(ctx, r.effectiveTopK(), len(results), timeNow().Sub(start), err)
	return results, err
}

func (r *SearchRequest) effectiveTopK() int {
	if r.topK == 0 {
		return r.index.opts.defaultTopK
	}
	return r.topK
}

func (idx *Index) executeSearch(ctx context.Context, r *SearchRequest) ([]SearchResult, error) {
	if r.topK < 0 {
		return nil, ErrInvalidK
	}
	k := r.effectiveTopK()

	probe := record.Record{record.EmbeddingKey: r.query}
	if err := probe.Validate(); err != nil {
		return nil, translateError(err)
	}
	query, _ := probe.Embedding()

	var candidates []record.Record
	if r.storage {
		candidates = idx.storageCandidates(ctx, r.database, r.table)
	} else {
		candidates = idx.store.Matching(r.filter)
	}

	selector := topk.New(k)
	for _, rec := range candidates {
		if r.storage && !r.filter.Matches(rec) {
			continue
		}
		emb, ok := rec.Embedding()
		if !ok {
			continue
		}
		score, err := idx.score(query, emb)
		if err != nil || math.IsNaN(score) {
			continue
		}
		selector.Push(rec, score)
	}

	items := selector.Results()
	results := make([]SearchResult, 0, len(items))
	for _, it := range items {
		results = append(results, SearchResult{Score: it.Score, Record: it.Record})
	}
	return results, nil
}

// storageCandidates returns the snapshot for (database, table), preloading
// on a cache miss. Any storage failure degrades to an empty candidate set.
func (idx *Index) storageCandidates(ctx context.Context, database, table string) []record.Record {
	if idx.cache == nil {
		idx.opts.logger.WarnContext(ctx, "storage search without gateway, returning no results",
			"database", database,
			"table", table,
		)
		return nil
	}

	if !idx.cache.IsValid(database, table) {
		start := timeNow()
		err := idx.cache.Preload(ctx, database, table)
		idx.opts.metricsCollector.RecordPreload(timeNow().Sub(start), err)
		if err != nil {
			idx.opts.logger.WarnContext(ctx, "snapshot preload failed, returning no results",
				"database", database,
				"table", table,
				"error", err,
			)
			return nil
		}
		idx.opts.logger.LogPreload(ctx, database, table, len(idx.cache.Get()), nil)
	}
	return idx.cache.Get()
}
