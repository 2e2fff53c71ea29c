// Package vectra provides an embedded similarity-search index for Go.
//
// Vectra keeps schema-validated records in memory, ranks them against a
// query embedding by cosine similarity, and optionally collaborates with
// durable storage backends and text-embedding providers.
//
// # Quick Start
//
//	ctx := context.Background()
//	idx, _ := vectra.New()
//
//	_ = idx.Add(ctx, record.Record{
//	    "title":     "intro to go",
//	    "embedding": []float32{0.1, 0.9, 0.2},
//	})
//
//	results, _ := idx.Search([]float32{0.1, 0.8, 0.3}).
//	    TopK(5).
//	    Execute(ctx)
//	for _, r := range results {
//	    fmt.Println(r.Score, r.Record["title"])
//	}
//
// # Records and Schema
//
// A record is a flat attribute map carrying an "embedding" key. The first
// record added to an index establishes the attribute schema; every later
// record must carry at least those attributes. Embeddings are validated on
// the way in (present, numeric, non-empty, finite).
//
// # Durable Storage
//
// An index can search over snapshots held in durable storage instead of
// its in-memory records. Backends implement storage.Gateway; in-memory,
// local-disk, S3, MinIO and DynamoDB gateways ship with the module:
//
//	gw := storage.NewLocal("./data")
//	idx, _ := vectra.New(vectra.WithGateway(gw))
//
//	_ = idx.SaveAll(ctx, "corpus", "articles")
//	results, _ := idx.Search(query).
//	    FromStorage("corpus", "articles").
//	    Execute(ctx)
//
// Snapshots are fetched once and cached until invalidated; a failing
// backend degrades storage-backed searches to empty results instead of
// erroring.
//
// # Text Embedding
//
// With an embedding provider configured, text can be indexed and queried
// directly:
//
//	idx, _ := vectra.New(vectra.WithEmbedder(embedding.NewOpenAI(apiKey)))
//	_ = idx.AddText(ctx, "the quick brown fox", record.Record{"lang": "en"})
//	req, _ := idx.SearchText(ctx, "fast fox")
//	results, _ := req.Execute(ctx)
package vectra
