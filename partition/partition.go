package partition

import (
	"context"
	"fmt"

	"github.com/loganpowell/microvector/document"
	"github.com/loganpowell/microvector/store"
)

// Partition is a handle to one named partition's store. The metric and key
// path are locked to the store (persisted with it); persistence of
// individual mutations is decided per call.
//
// A Partition is single-owner: it provides no internal locking.
type Partition struct {
	name  string
	path  string
	store *store.Store
	mgr   *Manager
}

// Entry is one exported (document, vector) pair with its current position.
type Entry struct {
	Index    int               `json:"index"`
	Document document.Document `json:"document"`
	Vector   []float32         `json:"vector,omitempty"`
}

// Name returns the partition's logical name.
func (p *Partition) Name() string { return p.name }

// Path returns the partition's snapshot file location.
func (p *Partition) Path() string { return p.path }

// Size returns the number of documents in the partition.
func (p *Partition) Size() int { return p.store.Len() }

// Metric returns the metric locked to this partition's store.
func (p *Partition) Metric() string { return p.store.Metric().String() }

// KeyPath returns the document field path this partition vectorizes.
func (p *Partition) KeyPath() string { return p.store.KeyPath() }

// Search embeds term and returns up to topK documents ranked under the
// partition's metric. An empty partition returns no results without
// invoking the embedder.
func (p *Partition) Search(ctx context.Context, term string, topK int) ([]store.SearchResult, error) {
	if p.store.Len() == 0 || topK <= 0 {
		return nil, nil
	}
	query, err := p.mgr.embedder.EmbedQuery(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := p.store.Search(query, topK)
	if err != nil {
		return nil, err
	}
	p.mgr.logger.DebugContext(ctx, "search completed",
		"partition", p.name, "top_k", topK, "results", len(results))
	return results, nil
}

// Add embeds and inserts documents. The whole batch is inserted atomically
// or not at all. With persist, the merged state is flushed to disk.
func (p *Partition) Add(ctx context.Context, docs []document.Document, persist bool) error {
	if len(docs) == 0 {
		return nil
	}
	if err := p.insert(ctx, docs); err != nil {
		return err
	}
	if persist {
		if err := p.flush(); err != nil {
			return fmt.Errorf("persist partition %q: %w", p.name, err)
		}
	}
	return nil
}

// RemoveIndex deletes the pair at index i. Positions above i shift down by
// one. With persist, the updated state is flushed to disk.
func (p *Partition) RemoveIndex(i int, persist bool) error {
	if err := p.store.RemoveIndex(i); err != nil {
		return err
	}
	if persist {
		if err := p.flush(); err != nil {
			return fmt.Errorf("persist partition %q: %w", p.name, err)
		}
	}
	return nil
}

// RemoveMatch deletes the first pair whose document compares equal to doc.
// With persist, the updated state is flushed to disk.
func (p *Partition) RemoveMatch(doc document.Document, persist bool) error {
	if err := p.store.RemoveMatch(doc); err != nil {
		return err
	}
	if persist {
		if err := p.flush(); err != nil {
			return fmt.Errorf("persist partition %q: %w", p.name, err)
		}
	}
	return nil
}

// Export returns the partition's contents in insertion order, optionally
// including the stored vectors.
func (p *Partition) Export(includeVectors bool) []Entry {
	docs := p.store.Docs()
	entries := make([]Entry, len(docs))
	var vectors [][]float32
	if includeVectors {
		vectors = p.store.Vectors()
	}
	for i, d := range docs {
		entries[i] = Entry{Index: i, Document: d}
		if includeVectors {
			entries[i].Vector = vectors[i]
		}
	}
	return entries
}

// Flush persists the partition's current in-memory state to disk.
func (p *Partition) Flush() error {
	return p.flush()
}

// Drop removes the partition's on-disk record. The in-memory state remains
// usable; a later Flush recreates the record.
func (p *Partition) Drop() error {
	return p.mgr.Delete(p.name)
}

func (p *Partition) insert(ctx context.Context, docs []document.Document) error {
	texts, err := document.KeyValues(docs, p.store.KeyPath())
	if err != nil {
		return err
	}
	vecs, err := p.mgr.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(vecs) != len(docs) {
		return fmt.Errorf("embedder returned %d vectors for %d documents", len(vecs), len(docs))
	}
	return p.store.InsertBatch(vecs, docs)
}

func (p *Partition) flush() error {
	return p.mgr.writeStore(p.path, p.store)
}
