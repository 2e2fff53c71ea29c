package vectra

import (
	"log/slog"

	"github.com/hupe1980/vectra/codec"
	"github.com/hupe1980/vectra/embedding"
	"github.com/hupe1980/vectra/similarity"
	"github.com/hupe1980/vectra/storage"
)

// DefaultTopK is used when a search does not specify how many results to
// return.
const DefaultTopK = 3

type options struct {
	codec            codec.Codec
	metricsCollector MetricsCollector
	logger           *Logger
	gateway          storage.Gateway
	embedder         embedding.Provider
	embeddingCache   *embedding.Cache
	metric           similarity.Metric
	defaultTopK      int
}

// Option configures Index constructor behavior.
type Option func(*options)

// WithCodec configures the codec used for the debug dump.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithGateway configures the durable-storage gateway used by Preload,
// SaveAll and storage-backed searches. Without a gateway those operations
// report ErrStorageUnavailable (searches degrade to empty results).
func WithGateway(gw storage.Gateway) Option {
	return func(o *options) {
		o.gateway = gw
	}
}

// WithEmbedder configures the text-embedding provider used by AddText and
// SearchText.
func WithEmbedder(p embedding.Provider) Option {
	return func(o *options) {
		o.embedder = p
	}
}

// WithEmbeddingCache configures a memoization cache for the embedder. Only
// effective together with WithEmbedder.
func WithEmbeddingCache(c *embedding.Cache) Option {
	return func(o *options) {
		o.embeddingCache = c
	}
}

// WithMetric selects the similarity metric used for ranking. The default
// is cosine similarity.
func WithMetric(m similarity.Metric) Option {
	return func(o *options) {
		o.metric = m
	}
}

// WithDefaultTopK overrides the result count used when a search does not
// set one.
func WithDefaultTopK(k int) Option {
	return func(o *options) {
		if k > 0 {
			o.defaultTopK = k
		}
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		metric:           similarity.MetricCosine,
		defaultTopK:      DefaultTopK,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
