package microvector

import (
	"log/slog"

	"github.com/loganpowell/microvector/codec"
	"github.com/loganpowell/microvector/embed"
	"github.com/loganpowell/microvector/metric"
	"github.com/loganpowell/microvector/partition"
	"github.com/loganpowell/microvector/store"
)

type options struct {
	metric         metric.Metric
	keyPath        string
	vectorCacheDir string
	modelCacheDir  string
	model          string
	embedder       embed.Embedder
	codec          codec.Codec
	compression    store.Compression
	logger         *Logger
}

// Option configures Client construction.
type Option func(*options)

// WithMetric selects the scoring metric for newly created partitions.
// Loaded partitions keep the metric they were persisted with.
func WithMetric(m metric.Metric) Option {
	return func(o *options) {
		o.metric = m
	}
}

// WithKeyPath selects the document field (dot-path) whose value is
// embedded, for newly created partitions.
func WithKeyPath(path string) Option {
	return func(o *options) {
		o.keyPath = path
	}
}

// WithVectorCacheDir configures the directory holding partition snapshots.
func WithVectorCacheDir(dir string) Option {
	return func(o *options) {
		o.vectorCacheDir = dir
	}
}

// WithModelCacheDir configures where downloaded embedding model files are
// kept. Ignored when a custom embedder is supplied.
func WithModelCacheDir(dir string) Option {
	return func(o *options) {
		o.modelCacheDir = dir
	}
}

// WithModel selects the embedding model by name (e.g.
// "BAAI/bge-small-en-v1.5"). Ignored when a custom embedder is supplied.
func WithModel(name string) Option {
	return func(o *options) {
		o.model = name
	}
}

// WithEmbedder supplies a custom vector source. The caller retains
// ownership: Client.Close will not close it.
func WithEmbedder(e embed.Embedder) Option {
	return func(o *options) {
		o.embedder = e
	}
}

// WithCodec configures the codec used for document payloads in snapshots.
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

// WithCompression selects the snapshot compression scheme.
func WithCompression(c store.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
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
		metric:         metric.Cosine,
		keyPath:        partition.DefaultKeyPath,
		vectorCacheDir: partition.DefaultVectorCacheDir,
		modelCacheDir:  partition.DefaultModelCacheDir,
		model:          embed.DefaultModel,
		codec:          codec.Default,
		compression:    store.CompressionZstd,
		logger:         NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
