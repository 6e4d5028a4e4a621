package embed

import (
	"context"
	"fmt"

	fastembed "github.com/anush008/fastembed-go"
)

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = "BAAI/bge-small-en-v1.5"

// defaultBatchSize caps how many texts go through the ONNX session at once.
const defaultBatchSize = 256

// modelMapping maps HuggingFace-style model names to fastembed constants.
var modelMapping = map[string]fastembed.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-small-en":                      fastembed.BGESmallEN,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"BAAI/bge-base-en":                       fastembed.BGEBaseEN,
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
}

// modelDimensions maps fastembed models to their embedding dimensions.
var modelDimensions = map[fastembed.EmbeddingModel]int{
	fastembed.BGESmallENV15: 384,
	fastembed.BGESmallEN:    384,
	fastembed.BGEBaseENV15:  768,
	fastembed.BGEBaseEN:     768,
	fastembed.AllMiniLML6V2: 384,
}

// FastEmbedConfig configures the local ONNX embedding provider.
type FastEmbedConfig struct {
	// Model is the embedding model name. Defaults to DefaultModel.
	Model string
	// CacheDir is where downloaded model files are kept.
	CacheDir string
	// MaxLength is the maximum input sequence length. Defaults to 512.
	MaxLength int
	// ShowProgress enables download progress output.
	ShowProgress bool
}

// FastEmbed generates embeddings locally via ONNX models. The model is
// downloaded on first use and cached under CacheDir.
type FastEmbed struct {
	model     *fastembed.FlagEmbedding
	modelName string
	dimension int
}

var _ Embedder = (*FastEmbed)(nil)

// NewFastEmbed creates a FastEmbed provider for the configured model.
func NewFastEmbed(cfg FastEmbedConfig) (*FastEmbed, error) {
	name := cfg.Model
	if name == "" {
		name = DefaultModel
	}
	model, ok := modelMapping[name]
	if !ok {
		model = fastembed.EmbeddingModel(name)
		if _, known := modelDimensions[model]; !known {
			return nil, fmt.Errorf("unsupported embedding model %q", name)
		}
	}

	maxLength := cfg.MaxLength
	if maxLength == 0 {
		maxLength = 512
	}
	showProgress := cfg.ShowProgress

	fe, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                model,
		CacheDir:             cfg.CacheDir,
		MaxLength:            maxLength,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing fastembed: %w", err)
	}

	return &FastEmbed{
		model:     fe,
		modelName: name,
		dimension: modelDimensions[model],
	}, nil
}

// EmbedDocuments embeds document texts with the "passage:" prefix the BGE
// family expects for stored content.
func (e *FastEmbed) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vecs, err := e.model.PassageEmbed(texts, defaultBatchSize)
	if err != nil {
		return nil, fmt.Errorf("embedding %d documents: %w", len(texts), err)
	}
	return vecs, nil
}

// EmbedQuery embeds a search query with the "query:" prefix.
func (e *FastEmbed) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec, err := e.model.QueryEmbed(text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return vec, nil
}

// Dimension returns the embedding dimension of the configured model.
func (e *FastEmbed) Dimension() int { return e.dimension }

// Model returns the configured model name.
func (e *FastEmbed) Model() string { return e.modelName }

// Close releases the underlying ONNX session.
func (e *FastEmbed) Close() error {
	if e.model != nil {
		return e.model.Destroy()
	}
	return nil
}
