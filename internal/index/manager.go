package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/docpilot/docpilot/internal/log"
)

// Config contains the required parameters for a Manager.
type Config struct {
	// Dir is the namespace directory holding the serialized vector index and
	// the metadata log. Each namespace owns its directory exclusively.
	Dir string

	// Namespace names the collection inside the store (e.g. "documents",
	// "memory").
	Namespace string

	// Embedding computes the vector for a piece of text.
	Embedding chromem.EmbeddingFunc

	// Validate is the namespace's record schema. A record failing this check
	// aborts its whole batch.
	Validate func(Record) error

	Logger log.Logger
}

func (cfg Config) validate() error {
	if strings.TrimSpace(cfg.Dir) == "" {
		return errors.New("namespace directory is required")
	}
	if strings.TrimSpace(cfg.Namespace) == "" {
		return errors.New("namespace name is required")
	}
	if cfg.Embedding == nil {
		return errors.New("embedding function is required")
	}
	if cfg.Validate == nil {
		return errors.New("record validator is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Manager owns one namespace of the persistent vector store.
//
// The read-check-write sequence in BuildOrUpdate is serialized by a
// namespace-level mutex, so concurrent callers against the same Manager
// cannot produce duplicate entries. Distinct processes writing to the same
// namespace directory are still unsynchronized.
type Manager struct {
	dir       string
	namespace string
	logPath   string
	logger    log.Logger
	validate  func(Record) error

	mu   sync.RWMutex
	coll *chromem.Collection
}

// New creates a Manager for one namespace, loading the persisted index if one
// exists. A corrupt or unreadable persisted index does not fail construction:
// the namespace directory, stale metadata log included, is moved aside to a
// quarantine path and a fresh persistent store takes its place, so the
// namespace stays rebuildable and later writes still land on disk.
func New(cfg Config) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	db, err := chromem.NewPersistentDB(cfg.Dir, false)
	if err != nil {
		quarantine := fmt.Sprintf("%s.corrupt.%s", strings.TrimRight(cfg.Dir, string(os.PathSeparator)), time.Now().UTC().Format("20060102T150405"))
		if mvErr := os.Rename(cfg.Dir, quarantine); mvErr != nil {
			return nil, fmt.Errorf("loading persisted index for %q: %w (quarantine failed: %v)", cfg.Namespace, err, mvErr)
		}
		cfg.Logger.Error("persisted index unreadable; quarantined and starting fresh",
			"namespace", cfg.Namespace,
			"dir", cfg.Dir,
			"quarantined_to", quarantine,
			"error", err)
		db, err = chromem.NewPersistentDB(cfg.Dir, false)
		if err != nil {
			return nil, fmt.Errorf("recreating index store for %q after quarantine: %w", cfg.Namespace, err)
		}
	}

	coll, err := db.GetOrCreateCollection(cfg.Namespace, nil, cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("creating collection %q: %w", cfg.Namespace, err)
	}

	m := &Manager{
		dir:       cfg.Dir,
		namespace: cfg.Namespace,
		logPath:   filepath.Join(cfg.Dir, MetadataLogName),
		logger:    cfg.Logger,
		validate:  cfg.Validate,
		coll:      coll,
	}

	// A record present in the log but missing from the index (or vice versa)
	// is recoverable but must be flagged.
	if entries, logErr := readMetadataLog(m.logPath); logErr != nil {
		m.logger.Warn("metadata log unreadable at startup", "namespace", m.namespace, "error", logErr)
	} else if len(entries) != coll.Count() {
		m.logger.Warn("metadata log and vector index diverge",
			"namespace", m.namespace,
			"log_entries", len(entries),
			"indexed", coll.Count())
	}

	return m, nil
}

// BuildOrUpdate validates, deduplicates, embeds and persists a record batch.
//
// Contract:
//   - an empty batch is a hard error (ErrEmptyBatch)
//   - any schema-invalid record aborts the whole batch (*SchemaError); the
//     index and the metadata log are never mutated for a rejected batch
//   - records whose identity key already appears in the metadata log are
//     filtered out; if nothing survives the filter the call is a successful
//     no-op
//   - the vector index is persisted before the metadata log is appended and
//     before the call returns
func (m *Manager) BuildOrUpdate(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return ErrEmptyBatch
	}

	for i, r := range records {
		if err := m.validate(r); err != nil {
			return &SchemaError{Index: i, Key: r.Key, Err: err}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := readMetadataLog(m.logPath)
	if err != nil {
		return fmt.Errorf("loading existing metadata: %w", err)
	}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[e.Key] = struct{}{}
	}

	fresh := make([]Record, 0, len(records))
	for _, r := range records {
		if _, dup := seen[r.Key]; dup {
			continue
		}
		seen[r.Key] = struct{}{} // also collapses duplicates within the batch
		fresh = append(fresh, r)
	}

	if len(fresh) == 0 {
		m.logger.Info("no new unique records to index", "namespace", m.namespace, "submitted", len(records))
		return nil
	}

	docs := make([]chromem.Document, len(fresh))
	for i, r := range fresh {
		docs[i] = chromem.Document{
			ID:       r.Key,
			Content:  r.Text,
			Metadata: r.Meta,
		}
	}

	// chromem's persistent DB writes every document to the namespace
	// directory before AddDocuments returns: durability precedes success.
	if err := m.coll.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("indexing %d records in %q: %w", len(fresh), m.namespace, err)
	}

	if err := appendMetadataLog(m.logPath, fresh); err != nil {
		// The index already holds the batch; the log does not. Flag the
		// divergence loudly, it will be re-reported at next startup.
		m.logger.Error("metadata log append failed after index write; namespace has diverged",
			"namespace", m.namespace, "error", err)
		return fmt.Errorf("appending metadata log: %w", err)
	}

	m.logger.Info("indexed records",
		"namespace", m.namespace,
		"added", len(fresh),
		"deduplicated", len(records)-len(fresh),
		"total", m.coll.Count())
	return nil
}

// Query returns the k nearest records to the given text, ordered by
// similarity. Querying a namespace with no indexed records fails with
// ErrNotInitialized rather than returning an empty result set.
func (m *Manager) Query(ctx context.Context, text string, k int) ([]Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty query text", ErrInvalidQuery)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidQuery, k)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	total := m.coll.Count()
	if total == 0 {
		return nil, fmt.Errorf("namespace %q: %w", m.namespace, ErrNotInitialized)
	}
	if k > total {
		k = total
	}

	hits, err := m.coll.Query(ctx, text, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying namespace %q: %w", m.namespace, err)
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			Record: Record{
				Key:  h.ID,
				Text: h.Content,
				Meta: h.Metadata,
			},
			Similarity: h.Similarity,
		}
	}
	return results, nil
}

// Count returns the number of records currently indexed in the namespace.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.coll.Count()
}

// Namespace returns the namespace name.
func (m *Manager) Namespace() string { return m.namespace }
