// Package main implements the microvector CLI for managing local vector
// partitions: saving JSON collections, searching them, and housekeeping.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/loganpowell/microvector"
	"github.com/loganpowell/microvector/embed"
	"github.com/loganpowell/microvector/metric"
	"github.com/loganpowell/microvector/partition"
)

var (
	flagCacheDir string
	flagModelDir string
	flagModel    string
	flagMetric   string
	flagKey      string
	flagVerbose  bool

	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "microvector",
	Short: "Local vector store for JSON document collections",
	Long: `microvector embeds JSON documents with a local ONNX model and answers
top-k similarity queries over named partitions cached on disk.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagCacheDir, "cache-dir", partition.DefaultVectorCacheDir, "Directory holding partition snapshot files")
	rootCmd.PersistentFlags().StringVar(&flagModelDir, "model-dir", partition.DefaultModelCacheDir, "Directory caching downloaded embedding models")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", embed.DefaultModel, "Embedding model name")
	rootCmd.PersistentFlags().StringVar(&flagMetric, "metric", "cosine", "Scoring metric: cosine, dot, euclidean, derrida")
	rootCmd.PersistentFlags().StringVar(&flagKey, "key", partition.DefaultKeyPath, "Document field (dot-path) to embed")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
}

// newClient builds a client from the persistent flags.
func newClient() (*microvector.Client, error) {
	m, err := metric.Parse(flagMetric)
	if err != nil {
		return nil, err
	}

	opts := []microvector.Option{
		microvector.WithVectorCacheDir(flagCacheDir),
		microvector.WithModelCacheDir(flagModelDir),
		microvector.WithModel(flagModel),
		microvector.WithMetric(m),
		microvector.WithKeyPath(flagKey),
	}
	if flagVerbose {
		opts = append(opts, microvector.WithLogLevel(slog.LevelDebug))
	}

	client, err := microvector.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing client: %w", err)
	}
	return client, nil
}

// newManager builds a partition manager with a stub embedder, for commands
// that only touch on-disk records and never embed anything.
func newManager() (*partition.Manager, error) {
	m, err := metric.Parse(flagMetric)
	if err != nil {
		return nil, err
	}
	stub := embed.NewFunc(0, func(_ context.Context, _ []string) ([][]float32, error) {
		return nil, fmt.Errorf("command does not embed")
	})
	return partition.NewManager(stub, func(c *partition.Config) {
		c.VectorCacheDir = flagCacheDir
		c.Metric = m
		c.KeyPath = flagKey
	})
}
