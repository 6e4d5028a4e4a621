// Package partition maps logical partition names to cached snapshot files
// and coordinates store mutation with optional flush-to-disk.
//
// A partition is the on-disk unit: one store serialized as a single
// compressed blob, addressed by name. Each partition is owned by exactly one
// manager entry at a time; concurrent access to the same partition name is
// the caller's responsibility to serialize.
package partition

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/loganpowell/microvector/codec"
	"github.com/loganpowell/microvector/document"
	"github.com/loganpowell/microvector/embed"
	"github.com/loganpowell/microvector/internal/fs"
	"github.com/loganpowell/microvector/metric"
	"github.com/loganpowell/microvector/store"
)

// WriteMode controls how a save interacts with an existing on-disk partition.
type WriteMode int

const (
	// Replace discards any existing partition content and installs the new
	// collection.
	Replace WriteMode = iota
	// Append loads the existing partition and adds the new collection to it.
	Append
)

func (m WriteMode) String() string {
	switch m {
	case Replace:
		return "replace"
	case Append:
		return "append"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

const (
	// DefaultVectorCacheDir is where partition snapshots are cached.
	DefaultVectorCacheDir = ".vector_cache"
	// DefaultModelCacheDir is where embedding model files are cached.
	DefaultModelCacheDir = ".cached_models"
	// DefaultKeyPath is the document field vectorized when none is chosen.
	DefaultKeyPath = "text"
	// FileExt is the extension of partition snapshot files.
	FileExt = ".mvec"
)

// Config holds the manager's tunable defaults. Every field has a named
// default; there is no ambient global state.
type Config struct {
	// VectorCacheDir is the directory holding partition snapshot files.
	VectorCacheDir string
	// Metric is the scoring metric for newly created partitions.
	Metric metric.Metric
	// KeyPath is the dot-path of the document field to vectorize for newly
	// created partitions.
	KeyPath string
	// Codec marshals document payloads in snapshots.
	Codec codec.Codec
	// Compression selects the snapshot body compression scheme.
	Compression store.Compression
	// FS abstracts file system access, for tests.
	FS fs.FileSystem
	// Logger receives structured operation logs. Defaults to a discard
	// logger; the library never logs unless asked to.
	Logger *slog.Logger
}

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // unreachable level
	}))
}

// Manager mediates load-or-create and append-vs-replace decisions for named
// partitions and delegates similarity queries to their stores.
type Manager struct {
	cfg      Config
	embedder embed.Embedder
	logger   *slog.Logger
}

// NewManager creates a Manager using the given embedder for all vector
// production. Options mutate the Config defaults.
func NewManager(embedder embed.Embedder, optFns ...func(c *Config)) (*Manager, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	cfg := Config{
		VectorCacheDir: DefaultVectorCacheDir,
		Metric:         metric.Cosine,
		KeyPath:        DefaultKeyPath,
		Codec:          codec.Default,
		Compression:    store.CompressionZstd,
		FS:             fs.Default,
	}
	for _, fn := range optFns {
		fn(&cfg)
	}
	if cfg.FS == nil {
		cfg.FS = fs.Default
	}
	if cfg.Codec == nil {
		cfg.Codec = codec.Default
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger()
	}
	if !cfg.Metric.Valid() {
		return nil, fmt.Errorf("invalid metric: %v", cfg.Metric)
	}
	if cfg.KeyPath == "" {
		cfg.KeyPath = DefaultKeyPath
	}
	return &Manager{cfg: cfg, embedder: embedder, logger: cfg.Logger}, nil
}

// Slug normalizes a partition name the way it appears on disk:
// lowercased, spaces replaced with underscores.
func Slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// Path returns the snapshot file location for a partition name. The mapping
// is deterministic: one name, one file.
func (m *Manager) Path(name string) string {
	return filepath.Join(m.cfg.VectorCacheDir, Slug(name)+FileExt)
}

// Exists reports whether the partition has an on-disk record.
func (m *Manager) Exists(name string) bool {
	_, err := m.cfg.FS.Stat(m.Path(name))
	return err == nil
}

// Open drives the per-partition state machine and returns a handle.
//
// The behavior is decided by (on-disk existence, mode, persist):
//
//	absent   any      any    create empty store, add collection, write iff persist
//	present  Replace  true   discard on-disk content, write fresh store
//	present  Append   true   load, add collection, write merged result
//	present  Append   false  load into memory, add in-memory only
//	present  Replace  false  ignore on-disk content, fresh in-memory store
//
// A nil or empty collection skips the mutation step, so Open doubles as the
// load-or-create entry point for searches.
func (m *Manager) Open(ctx context.Context, name string, collection []document.Document, mode WriteMode, persist bool) (*Partition, error) {
	path := m.Path(name)
	exists := m.Exists(name)

	logger := m.logger.With("partition", name, "mode", mode.String(), "persist", persist)
	logger.InfoContext(ctx, "opening partition", "exists", exists)

	var (
		s   *store.Store
		err error
	)
	if exists && mode == Append {
		s, err = m.loadStore(path)
		if err != nil {
			return nil, fmt.Errorf("load partition %q: %w", name, err)
		}
		logger.DebugContext(ctx, "loaded cached store", "size", s.Len(), "dim", s.Dim())
	} else {
		s, err = store.New(m.embedder.Dimension(), m.cfg.Metric, m.cfg.KeyPath)
		if err != nil {
			return nil, err
		}
	}

	p := &Partition{name: name, path: path, store: s, mgr: m}

	if len(collection) > 0 {
		if err := p.insert(ctx, collection); err != nil {
			return nil, fmt.Errorf("insert into partition %q: %w", name, err)
		}
		logger.InfoContext(ctx, "inserted documents", "count", len(collection), "size", s.Len())
	}

	if persist {
		if err := p.flush(); err != nil {
			return nil, fmt.Errorf("persist partition %q: %w", name, err)
		}
		logger.InfoContext(ctx, "persisted partition", "path", path, "size", s.Len())
	}
	return p, nil
}

// Load opens an existing partition without mutating it, or an empty
// in-memory partition if no on-disk record exists. Nothing is written.
func (m *Manager) Load(ctx context.Context, name string) (*Partition, error) {
	return m.Open(ctx, name, nil, Append, false)
}

// Delete removes the partition's on-disk record. A later Open treats the
// partition as non-existent. Deleting a partition that has no record
// returns an error satisfying errors.Is(err, os.ErrNotExist).
func (m *Manager) Delete(name string) error {
	path := m.Path(name)
	if err := m.cfg.FS.Remove(path); err != nil {
		return fmt.Errorf("delete partition %q: %w", name, err)
	}
	m.logger.Info("deleted partition", "partition", name, "path", path)
	return nil
}

// List returns the names of all partitions with an on-disk record.
func (m *Manager) List() ([]string, error) {
	entries, err := m.cfg.FS.ReadDir(m.cfg.VectorCacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), FileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), FileExt))
	}
	return names, nil
}

func (m *Manager) loadStore(path string) (*store.Store, error) {
	f, err := m.cfg.FS.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return store.Decode(bufio.NewReaderSize(f, 256*1024))
}

// writeStore writes a snapshot to a temp file in the target directory and
// atomically renames it over path. A failed write never disturbs the prior
// on-disk blob.
func (m *Manager) writeStore(path string, s *store.Store) error {
	fsys := m.cfg.FS
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := fsys.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = fsys.Remove(tmpName)
	}()

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := store.Encode(buf, s, func(o *store.EncodeOptions) {
		o.Codec = m.cfg.Codec
		o.Compression = m.cfg.Compression
	}); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := fsys.Rename(tmpName, path); err != nil {
		return err
	}

	// Success: prevent deferred cleanup from removing the final file.
	tmpName = ""
	return nil
}
