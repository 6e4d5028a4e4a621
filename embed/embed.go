// Package embed defines the embedding collaborator contract: given text,
// produce a fixed-length float vector. The store and partition layers are
// agnostic to how vectors are produced; they only rely on this interface.
package embed

import (
	"context"
	"errors"
)

// ErrEmptyInput is returned when there is no text to embed.
var ErrEmptyInput = errors.New("no input text to embed")

// Embedder produces embedding vectors for text.
//
// All vectors returned by one Embedder have the same length; Dimension
// reports it (0 if unknown until the first call).
type Embedder interface {
	// EmbedDocuments embeds a batch of document texts, one vector per input,
	// in input order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a single search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Dimension returns the embedding dimensionality, or 0 if unknown.
	Dimension() int
	// Close releases any resources held by the embedder.
	Close() error
}

// Func adapts a plain function to the Embedder interface. Useful for tests
// and for callers that bring their own embedding backend.
type Func struct {
	dim int
	fn  func(ctx context.Context, texts []string) ([][]float32, error)
}

// NewFunc wraps fn as an Embedder reporting the given dimension.
func NewFunc(dim int, fn func(ctx context.Context, texts []string) ([][]float32, error)) *Func {
	return &Func{dim: dim, fn: fn}
}

func (f *Func) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	return f.fn(ctx, texts)
}

func (f *Func) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.fn(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, errors.New("embedding function returned unexpected batch size")
	}
	return vecs[0], nil
}

func (f *Func) Dimension() int { return f.dim }
func (f *Func) Close() error   { return nil }
