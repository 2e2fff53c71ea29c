package store

import (
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/vectra/record"
)

// invertedIndex maps attribute equality terms to bitmaps of record IDs.
// Only scalar values (numbers, strings, bools) are indexed; filters on
// other value kinds fall back to a linear scan.
type invertedIndex struct {
	terms map[string]*roaring.Bitmap
}

func newInvertedIndex() *invertedIndex {
	return &invertedIndex{
		terms: make(map[string]*roaring.Bitmap),
	}
}

// termKey builds a stable index key for an attribute/value pair. Numeric
// values share one representation so int/float cross-kind equality keeps
// working after codec round-trips.
func termKey(attr string, v any) (string, bool) {
	if f, ok := record.AsFloat64(v); ok {
		return attr + "\x00n:" + strconv.FormatFloat(f, 'g', -1, 64), true
	}
	switch vv := v.(type) {
	case string:
		return attr + "\x00s:" + vv, true
	case bool:
		return attr + "\x00b:" + strconv.FormatBool(vv), true
	default:
		return "", false
	}
}

func (ix *invertedIndex) add(id uint32, rec record.Record) {
	for attr, v := range rec {
		if attr == record.EmbeddingKey {
			continue
		}
		key, ok := termKey(attr, v)
		if !ok {
			continue
		}
		bm, ok := ix.terms[key]
		if !ok {
			bm = roaring.New()
			ix.terms[key] = bm
		}
		bm.Add(id)
	}
}

func (ix *invertedIndex) remove(id uint32, rec record.Record) {
	for attr, v := range rec {
		if attr == record.EmbeddingKey {
			continue
		}
		key, ok := termKey(attr, v)
		if !ok {
			continue
		}
		if bm, ok := ix.terms[key]; ok {
			bm.Remove(id)
			if bm.IsEmpty() {
				delete(ix.terms, key)
			}
		}
	}
}

// candidates intersects the bitmaps for the filter's indexable terms.
// It returns (nil, false) when the filter has no indexable term, and an
// empty bitmap when an indexed term matches nothing.
func (ix *invertedIndex) candidates(f record.Filter) (*roaring.Bitmap, bool) {
	var out *roaring.Bitmap
	indexed := false
	for attr, v := range f {
		key, ok := termKey(attr, v)
		if !ok {
			continue
		}
		indexed = true
		bm, ok := ix.terms[key]
		if !ok {
			return roaring.New(), true
		}
		if out == nil {
			out = bm.Clone()
		} else {
			out.And(bm)
		}
	}
	return out, indexed
}

func (ix *invertedIndex) clear() {
	ix.terms = make(map[string]*roaring.Bitmap)
}
