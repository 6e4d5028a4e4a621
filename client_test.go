package microvector

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loganpowell/microvector/document"
	"github.com/loganpowell/microvector/embed"
	"github.com/loganpowell/microvector/metric"
)

// closeTrackingEmbedder wraps a deterministic embedder and records Close.
type closeTrackingEmbedder struct {
	*embed.Func
	closed bool
}

func (e *closeTrackingEmbedder) Close() error {
	e.closed = true
	return nil
}

func newMockEmbedder() *closeTrackingEmbedder {
	known := map[string][]float32{
		"cat": {1, 0, 0},
		"dog": {0, 1, 0},
		"car": {0.9, 0.1, 0},
	}
	fn := embed.NewFunc(3, func(_ context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, s := range texts {
			if v, ok := known[s]; ok {
				out[i] = v
				continue
			}
			v := []float32{0.1, 0.1, 0.1}
			for j, b := range []byte(s) {
				v[j%3] += float32(b) / 255
			}
			out[i] = v
		}
		return out, nil
	})
	return &closeTrackingEmbedder{Func: fn}
}

func newTestClient(t *testing.T, optFns ...Option) (*Client, *closeTrackingEmbedder) {
	t.Helper()
	mock := newMockEmbedder()
	all := append([]Option{
		WithEmbedder(mock),
		WithVectorCacheDir(t.TempDir()),
	}, optFns...)
	client, err := New(all...)
	require.NoError(t, err)
	return client, mock
}

func petDocs(texts ...string) []document.Document {
	out := make([]document.Document, len(texts))
	for i, s := range texts {
		out[i] = document.Document{"text": s}
	}
	return out
}

func TestClientSaveAndSearch(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	p, err := client.Save(ctx, "pets", petDocs("cat", "dog", "car"))
	require.NoError(t, err)
	assert.Equal(t, 3, p.Size())

	results, err := client.Search(ctx, "pets", "cat", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "cat", results[0].Document["text"])
	assert.Equal(t, "car", results[1].Document["text"])
}

func TestClientSaveModes(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	_, err := client.Save(ctx, "pets", petDocs("cat"))
	require.NoError(t, err)

	t.Run("Append", func(t *testing.T) {
		p, err := client.Save(ctx, "pets", petDocs("dog"), func(o *SaveOptions) {
			o.Mode = Append
		})
		require.NoError(t, err)
		assert.Equal(t, 2, p.Size())
	})

	t.Run("ReplaceDiscards", func(t *testing.T) {
		p, err := client.Save(ctx, "pets", petDocs("car"))
		require.NoError(t, err)
		assert.Equal(t, 1, p.Size())
	})

	t.Run("NoPersist", func(t *testing.T) {
		p, err := client.Save(ctx, "scratch", petDocs("cat"), func(o *SaveOptions) {
			o.Persist = false
		})
		require.NoError(t, err)
		assert.Equal(t, 1, p.Size())

		names, err := client.Partitions()
		require.NoError(t, err)
		assert.NotContains(t, names, "scratch")
	})
}

func TestClientSearchEmptyTerm(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	for _, term := range []string{"", "   ", "\n\t"} {
		_, err := client.Search(ctx, "pets", term, 3)
		assert.ErrorIs(t, err, ErrEmptyTerm)
	}
}

func TestClientSearchDefaults(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	_, err := client.Save(ctx, "pets", petDocs("a", "b", "c", "d", "e", "f", "g"))
	require.NoError(t, err)

	// topK <= 0 falls back to DefaultTopK.
	results, err := client.Search(ctx, "pets", "cat", 0)
	require.NoError(t, err)
	assert.Len(t, results, DefaultTopK)
}

func TestClientSearchMissingPartition(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	results, err := client.Search(ctx, "nothing-here", "cat", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestClientDeleteAndList(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	_, err := client.Save(ctx, "pets", petDocs("cat"))
	require.NoError(t, err)
	_, err = client.Save(ctx, "products", petDocs("car"))
	require.NoError(t, err)

	names, err := client.Partitions()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pets", "products"}, names)

	require.NoError(t, client.Delete("pets"))

	names, err = client.Partitions()
	require.NoError(t, err)
	assert.Equal(t, []string{"products"}, names)

	err = client.Delete("pets")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestClientMetricOption(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, WithMetric(metric.Euclidean))

	p, err := client.Save(ctx, "pets", petDocs("cat", "dog"))
	require.NoError(t, err)
	assert.Equal(t, "euclidean", p.Metric())

	// Distance metrics rank ascending; identical text is nearest.
	results, err := client.Search(ctx, "pets", "dog", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "dog", results[0].Document["text"])
}

func TestClientSearchLogsOnce(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	logger := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	client, _ := newTestClient(t, WithLogger(logger))

	_, err := client.Save(ctx, "pets", petDocs("cat", "dog"))
	require.NoError(t, err)

	_, err = client.Search(ctx, "pets", "cat", 1)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(buf.String(), "search completed"))
}

func TestClientClose(t *testing.T) {
	t.Run("CallerOwnedEmbedderSurvives", func(t *testing.T) {
		client, mock := newTestClient(t)
		require.NoError(t, client.Close())
		assert.False(t, mock.closed)
	})
}
