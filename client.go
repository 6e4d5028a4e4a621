package microvector

import (
	"context"
	"fmt"
	"strings"

	"github.com/loganpowell/microvector/document"
	"github.com/loganpowell/microvector/embed"
	"github.com/loganpowell/microvector/partition"
	"github.com/loganpowell/microvector/store"
)

// DefaultTopK is the result count used when Search is given topK <= 0.
const DefaultTopK = 5

// SearchResult is one ranked (document, score) pair.
type SearchResult = store.SearchResult

// WriteMode controls how Save interacts with an existing partition.
type WriteMode = partition.WriteMode

const (
	// Replace discards any existing partition content.
	Replace = partition.Replace
	// Append adds to the existing partition content.
	Append = partition.Append
)

// SaveOptions control one Save call.
type SaveOptions struct {
	// Mode decides replace-vs-append against an existing partition.
	// Defaults to Replace.
	Mode WriteMode
	// Persist writes the resulting state to disk. Defaults to true; with
	// false the partition lives only in the returned handle.
	Persist bool
}

// Client is the top-level entry point: it owns the embedding provider and
// a partition manager, and exposes save/search/delete over named
// partitions.
//
// A Client is safe to reuse across calls but performs no internal locking;
// serialize concurrent access to the same partition name.
type Client struct {
	manager      *partition.Manager
	embedder     embed.Embedder
	ownsEmbedder bool
}

// New creates a Client. Without WithEmbedder, a local ONNX embedding model
// is initialized (downloading it on first use into the model cache dir).
func New(optFns ...Option) (*Client, error) {
	o := applyOptions(optFns)

	embedder := o.embedder
	ownsEmbedder := false
	if embedder == nil {
		fe, err := embed.NewFastEmbed(embed.FastEmbedConfig{
			Model:    o.model,
			CacheDir: o.modelCacheDir,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing embedder: %w", err)
		}
		embedder = fe
		ownsEmbedder = true
	}

	manager, err := partition.NewManager(embedder, func(c *partition.Config) {
		c.VectorCacheDir = o.vectorCacheDir
		c.Metric = o.metric
		c.KeyPath = o.keyPath
		c.Codec = o.codec
		c.Compression = o.compression
		c.Logger = o.logger.Logger
	})
	if err != nil {
		if ownsEmbedder {
			_ = embedder.Close()
		}
		return nil, err
	}

	return &Client{
		manager:      manager,
		embedder:     embedder,
		ownsEmbedder: ownsEmbedder,
	}, nil
}

// Save embeds collection and writes it into the named partition. By
// default the partition is replaced and the result is persisted; use
// SaveOptions to append or to keep the result in memory only. The
// returned handle can be used for further mutation and search.
func (c *Client) Save(ctx context.Context, name string, collection []document.Document, optFns ...func(o *SaveOptions)) (*partition.Partition, error) {
	opts := SaveOptions{Mode: Replace, Persist: true}
	for _, fn := range optFns {
		fn(&opts)
	}
	return c.manager.Open(ctx, name, collection, opts.Mode, opts.Persist)
}

// Search embeds term and returns up to topK documents from the named
// partition, ranked under the partition's metric. topK <= 0 falls back to
// DefaultTopK. An empty or whitespace term is rejected with ErrEmptyTerm.
// A partition with no on-disk record yields no results.
func (c *Client) Search(ctx context.Context, name, term string, topK int) ([]SearchResult, error) {
	if strings.TrimSpace(term) == "" {
		return nil, ErrEmptyTerm
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	p, err := c.manager.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return p.Search(ctx, term, topK)
}

// Partition opens a read handle on the named partition, or an empty
// in-memory one if it has no on-disk record. Nothing is written.
func (c *Client) Partition(ctx context.Context, name string) (*partition.Partition, error) {
	return c.manager.Load(ctx, name)
}

// Delete removes the named partition's on-disk record. Deleting a
// partition that has no record returns an error satisfying
// errors.Is(err, os.ErrNotExist).
func (c *Client) Delete(name string) error {
	return c.manager.Delete(name)
}

// Partitions lists the names of all partitions with an on-disk record.
func (c *Client) Partitions() ([]string, error) {
	return c.manager.List()
}

// Close releases the embedding provider if the client created it. A
// client with a caller-supplied embedder closes nothing.
func (c *Client) Close() error {
	if !c.ownsEmbedder {
		return nil
	}
	return c.embedder.Close()
}
