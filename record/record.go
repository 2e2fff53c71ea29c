// Package record defines the attribute-map record model shared by the
// in-memory store, the storage cache and the durable-storage gateways.
//
// A record is an open attribute map with one reserved attribute,
// "embedding", holding the fixed-width vector the index ranks by.
package record

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"sort"
)

// EmbeddingKey is the reserved attribute name for the record vector.
const EmbeddingKey = "embedding"

var (
	// ErrMissingEmbedding is returned when a record has no embedding attribute.
	ErrMissingEmbedding = errors.New("missing embedding")

	// ErrInvalidEmbedding is returned when the embedding attribute is empty,
	// non-numeric or contains NaN/Inf values.
	ErrInvalidEmbedding = errors.New("invalid embedding")

	// ErrSchemaViolation is returned when a record lacks an attribute
	// required by the established schema.
	ErrSchemaViolation = errors.New("schema violation")
)

// Record is a mapping from attribute name to value.
type Record map[string]any

// Clone returns a copy of the record. The attribute map and the embedding
// slice are copied; other values are shared (records are treated as
// value-like and never mutated in place by the index).
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	if emb, ok := out[EmbeddingKey].([]float32); ok {
		out[EmbeddingKey] = slices.Clone(emb)
	}
	return out
}

// Embedding returns the record's vector, converting from the numeric slice
// representations that survive codec round-trips ([]float32, []float64,
// []any of numbers). The second return is false when the attribute is
// absent or not a numeric slice.
func (r Record) Embedding() ([]float32, bool) {
	v, ok := r[EmbeddingKey]
	if !ok {
		return nil, false
	}
	return toFloat32Slice(v)
}

// Validate checks the embedding invariant: present, non-empty, numeric and
// finite. On success the embedding attribute is normalized to []float32 in
// place so later reads skip conversion.
func (r Record) Validate() error {
	v, ok := r[EmbeddingKey]
	if !ok {
		return ErrMissingEmbedding
	}
	emb, ok := toFloat32Slice(v)
	if !ok {
		return fmt.Errorf("%w: attribute is %T, want numeric slice", ErrInvalidEmbedding, v)
	}
	if len(emb) == 0 {
		return fmt.Errorf("%w: empty vector", ErrInvalidEmbedding)
	}
	for i, f := range emb {
		if math.IsNaN(float64(f)) {
			return fmt.Errorf("%w: element %d is NaN", ErrInvalidEmbedding, i)
		}
		if math.IsInf(float64(f), 0) {
			return fmt.Errorf("%w: element %d is Inf", ErrInvalidEmbedding, i)
		}
	}
	r[EmbeddingKey] = emb
	return nil
}

// Filter is an equality predicate over record attributes. A record matches
// when every named attribute equals the expected value; the empty filter
// matches every record.
type Filter map[string]any

// Matches reports whether the record satisfies the filter.
func (f Filter) Matches(r Record) bool {
	for k, want := range f {
		got, ok := r[k]
		if !ok {
			return false
		}
		if !ValueEqual(got, want) {
			return false
		}
	}
	return true
}

// ValueEqual compares two attribute values. Numeric values compare by
// magnitude across int/float kinds (a codec round-trip may turn an int into
// a float64); strings and bools compare directly; everything else falls
// back to deep equality.
func ValueEqual(a, b any) bool {
	if af, aok := toFloat64(a); aok {
		bf, bok := toFloat64(b)
		return bok && af == bf
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return reflect.DeepEqual(a, b)
}

// Schema is the set of attribute names every record in a store must carry.
// It is established by the first record and immutable afterwards.
type Schema map[string]struct{}

// NewSchema derives a schema from the record's attribute names.
func NewSchema(r Record) Schema {
	s := make(Schema, len(r))
	for k := range r {
		s[k] = struct{}{}
	}
	return s
}

// Validate checks that the record carries at least the schema's attributes.
// Extra attributes are allowed.
func (s Schema) Validate(r Record) error {
	for k := range s {
		if _, ok := r[k]; !ok {
			return fmt.Errorf("%w: missing attribute %q", ErrSchemaViolation, k)
		}
	}
	return nil
}

// Attributes returns the schema's attribute names in sorted order.
func (s Schema) Attributes() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// AsFloat64 converts any numeric attribute value to float64. It reports
// false for non-numeric values.
func AsFloat64(v any) (float64, bool) {
	return toFloat64(v)
}

func toFloat32Slice(v any) ([]float32, bool) {
	switch vv := v.(type) {
	case []float32:
		return vv, true
	case []float64:
		out := make([]float32, len(vv))
		for i, f := range vv {
			out[i] = float32(f)
		}
		return out, true
	case []any:
		out := make([]float32, len(vv))
		for i, e := range vv {
			f, ok := toFloat64(e)
			if !ok {
				return nil, false
			}
			out[i] = float32(f)
		}
		return out, true
	default:
		return nil, false
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
