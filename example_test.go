package vectra_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/vectra"
	"github.com/hupe1980/vectra/record"
)

func Example() {
	ctx := context.Background()

	idx, err := vectra.New()
	if err != nil {
		log.Fatal(err)
	}

	docs := []record.Record{
		{"title": "east", "embedding": []float32{1, 0}},
		{"title": "north", "embedding": []float32{0, 1}},
		{"title": "northeast", "embedding": []float32{0.7, 0.7}},
	}
	for _, doc := range docs {
		if err := idx.Add(ctx, doc); err != nil {
			log.Fatal(err)
		}
	}

	results, err := idx.Search([]float32{1, 0}).TopK(2).Execute(ctx)
	if err != nil {
		log.Fatal(err)
	}
	for _, r := range results {
		fmt.Printf("%s %.2f\n", r.Record["title"], r.Score)
	}
	// Output:
	// east 1.00
	// northeast 0.71
}
