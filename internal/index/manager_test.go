package index

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docpilot/docpilot/internal/log"
	"github.com/docpilot/docpilot/internal/testutil"
)

func newTestManager(t *testing.T, dir string) *Manager {
	t.Helper()
	m, err := New(Config{
		Dir:       dir,
		Namespace: "documents",
		Embedding: testutil.Embedding,
		Validate:  ValidateChunkRecord,
		Logger:    log.NewNop(),
	})
	require.NoError(t, err)
	return m
}

func testChunk(id int, filename, text string) Chunk {
	return Chunk{
		ChunkID:    id,
		Text:       text,
		Filename:   filename,
		SourceType: "txt",
		DocPath:    "/docs/" + filename,
	}
}

func TestBuildOrUpdateIdempotent(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	batch := ChunkRecords([]Chunk{testChunk(0, "a.txt", "alpha content")})

	require.NoError(t, m.BuildOrUpdate(context.Background(), batch))
	require.NoError(t, m.BuildOrUpdate(context.Background(), batch))

	assert.Equal(t, 1, m.Count(), "resubmitting an identical batch must not grow the index")
}

func TestBuildOrUpdateDedupByIdentityKey(t *testing.T) {
	m := newTestManager(t, t.TempDir())

	first := ChunkRecords([]Chunk{
		testChunk(0, "a.txt", "alpha content"),
		testChunk(1, "a.txt", "beta content"),
	})
	require.NoError(t, m.BuildOrUpdate(context.Background(), first))
	require.Equal(t, 2, m.Count())

	// Same chunk id in a different file is a distinct identity.
	second := ChunkRecords([]Chunk{
		testChunk(0, "a.txt", "alpha content"),
		testChunk(0, "b.txt", "gamma content"),
	})
	require.NoError(t, m.BuildOrUpdate(context.Background(), second))
	assert.Equal(t, 3, m.Count())
}

func TestBuildOrUpdateEmptyBatch(t *testing.T) {
	m := newTestManager(t, t.TempDir())

	err := m.BuildOrUpdate(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyBatch)

	err = m.BuildOrUpdate(context.Background(), []Record{})
	require.ErrorIs(t, err, ErrEmptyBatch)
}

func TestBuildOrUpdateSchemaAbortsWholeBatch(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, dir)

	batch := ChunkRecords([]Chunk{
		testChunk(0, "a.txt", "valid content"),
		testChunk(1, "a.txt", "   "), // empty text fails the schema
	})
	err := m.BuildOrUpdate(context.Background(), batch)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, 1, schemaErr.Index)
	assert.Equal(t, "a.txt:1", schemaErr.Key)

	// Neither the index nor the metadata log may be touched by a rejected batch.
	assert.Equal(t, 0, m.Count())
	_, statErr := os.Stat(filepath.Join(dir, MetadataLogName))
	assert.True(t, os.IsNotExist(statErr), "metadata log must not exist after a rejected batch")
}

func TestBuildOrUpdateAllDuplicatesIsNoOp(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	batch := ChunkRecords([]Chunk{testChunk(0, "a.txt", "alpha content")})

	require.NoError(t, m.BuildOrUpdate(context.Background(), batch))

	// A batch that dedups down to nothing succeeds without writing.
	require.NoError(t, m.BuildOrUpdate(context.Background(), batch))
	assert.Equal(t, 1, m.Count())
}

func TestQueryNotInitialized(t *testing.T) {
	m := newTestManager(t, t.TempDir())

	_, err := m.Query(context.Background(), "anything", 5)
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestQueryInvalidInput(t *testing.T) {
	m := newTestManager(t, t.TempDir())

	_, err := m.Query(context.Background(), "   ", 5)
	require.ErrorIs(t, err, ErrInvalidQuery)

	_, err = m.Query(context.Background(), "valid", 0)
	require.ErrorIs(t, err, ErrInvalidQuery)
}

func TestQueryClampsKToIndexSize(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	batch := ChunkRecords([]Chunk{
		testChunk(0, "a.txt", "alpha content"),
		testChunk(1, "a.txt", "beta content"),
	})
	require.NoError(t, m.BuildOrUpdate(context.Background(), batch))

	results, err := m.Query(context.Background(), "alpha content", 50)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestQueryReturnsStoredMetadata(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	chunk := testChunk(3, "report.txt", "quarterly revenue summary")
	require.NoError(t, m.BuildOrUpdate(context.Background(), ChunkRecords([]Chunk{chunk})))

	results, err := m.Query(context.Background(), "quarterly revenue summary", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	assert.Equal(t, "report.txt:3", got.Key)
	assert.Equal(t, "quarterly revenue summary", got.Text)
	assert.Equal(t, "report.txt", got.Meta[MetaFilename])
	assert.Equal(t, "3", got.Meta[MetaChunkID])
	assert.Equal(t, "txt", got.Meta[MetaSourceType])
	assert.Equal(t, "/docs/report.txt", got.Meta[MetaDocPath])
}

func TestPersistenceAcrossManagers(t *testing.T) {
	dir := t.TempDir()

	m1 := newTestManager(t, dir)
	batch := ChunkRecords([]Chunk{testChunk(0, "a.txt", "alpha content")})
	require.NoError(t, m1.BuildOrUpdate(context.Background(), batch))

	// A fresh Manager over the same directory sees the persisted state and
	// still deduplicates against it.
	m2 := newTestManager(t, dir)
	assert.Equal(t, 1, m2.Count())
	require.NoError(t, m2.BuildOrUpdate(context.Background(), batch))
	assert.Equal(t, 1, m2.Count())
}

// corruptStore overwrites every serialized collection file under dir so the
// next load of the persistent store fails.
func corruptStore(t *testing.T, dir string) {
	t.Helper()
	corrupted := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".gob" {
			return nil
		}
		corrupted++
		return os.WriteFile(path, []byte("not a serialized collection"), 0o600)
	})
	require.NoError(t, err)
	require.NotZero(t, corrupted, "expected serialized collection files to corrupt")
}

func TestNewQuarantinesCorruptStore(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "documents")

	batch := ChunkRecords([]Chunk{
		testChunk(0, "a.txt", "alpha content"),
		testChunk(1, "a.txt", "beta content"),
	})
	m1 := newTestManager(t, dir)
	require.NoError(t, m1.BuildOrUpdate(context.Background(), batch))
	require.Equal(t, 2, m1.Count())

	corruptStore(t, dir)

	// Construction succeeds, the broken store is moved aside together with
	// its metadata log, and the namespace starts empty.
	m2 := newTestManager(t, dir)
	assert.Equal(t, 0, m2.Count())
	quarantined, err := filepath.Glob(dir + ".corrupt.*")
	require.NoError(t, err)
	require.Len(t, quarantined, 1)
	assert.NoFileExists(t, filepath.Join(dir, MetadataLogName))

	// Re-submitting the lost records rebuilds the namespace; the stale log
	// no longer filters them out.
	require.NoError(t, m2.BuildOrUpdate(context.Background(), batch))
	assert.Equal(t, 2, m2.Count())
}

func TestWriteAfterQuarantineSurvivesRestart(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "documents")

	m1 := newTestManager(t, dir)
	require.NoError(t, m1.BuildOrUpdate(context.Background(),
		ChunkRecords([]Chunk{testChunk(0, "a.txt", "alpha content")})))

	corruptStore(t, dir)

	m2 := newTestManager(t, dir)
	require.NoError(t, m2.BuildOrUpdate(context.Background(),
		ChunkRecords([]Chunk{testChunk(0, "b.txt", "gamma content")})))
	require.Equal(t, 1, m2.Count())

	// The replacement store is persistent, not in-memory: a fresh Manager
	// over the same directory still sees the record.
	m3 := newTestManager(t, dir)
	assert.Equal(t, 1, m3.Count())
}

func TestNewQuarantinesWhenDirIsRegularFile(t *testing.T) {
	parent := t.TempDir()
	blocked := filepath.Join(parent, "documents")
	require.NoError(t, os.WriteFile(blocked, []byte("not a directory"), 0o640))

	m := newTestManager(t, blocked)
	assert.Equal(t, 0, m.Count())

	quarantined, err := filepath.Glob(blocked + ".corrupt.*")
	require.NoError(t, err)
	assert.Len(t, quarantined, 1)
}

func TestNewFlagsLogIndexDivergence(t *testing.T) {
	dir := t.TempDir()

	// A metadata log with entries the index does not hold is recoverable but
	// must be flagged at startup.
	require.NoError(t, appendMetadataLog(filepath.Join(dir, MetadataLogName), []Record{
		{Key: "a.txt:0", Text: "alpha content"},
	}))

	var buf bytes.Buffer
	_, err := New(Config{
		Dir:       dir,
		Namespace: "documents",
		Embedding: testutil.Embedding,
		Validate:  ValidateChunkRecord,
		Logger:    log.NewWithWriter(&buf, log.Config{}),
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "metadata log and vector index diverge")
}

func TestConfigValidation(t *testing.T) {
	base := Config{
		Dir:       t.TempDir(),
		Namespace: "documents",
		Embedding: testutil.Embedding,
		Validate:  ValidateChunkRecord,
		Logger:    log.NewNop(),
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing dir", func(c *Config) { c.Dir = "" }},
		{"missing namespace", func(c *Config) { c.Namespace = "  " }},
		{"missing embedding", func(c *Config) { c.Embedding = nil }},
		{"missing validator", func(c *Config) { c.Validate = nil }},
		{"missing logger", func(c *Config) { c.Logger = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			_, err := New(cfg)
			require.Error(t, err)
		})
	}
}

func TestValidateChunkRecord(t *testing.T) {
	valid := testChunk(0, "a.txt", "content").Record()
	require.NoError(t, ValidateChunkRecord(valid))

	tests := []struct {
		name   string
		mutate func(*Record)
	}{
		{"empty text", func(r *Record) { r.Text = " " }},
		{"nil metadata", func(r *Record) { r.Meta = nil }},
		{"missing filename", func(r *Record) { r.Meta[MetaFilename] = "" }},
		{"missing source type", func(r *Record) { r.Meta[MetaSourceType] = "" }},
		{"missing doc path", func(r *Record) { r.Meta[MetaDocPath] = "" }},
		{"non-numeric chunk id", func(r *Record) { r.Meta[MetaChunkID] = "abc" }},
		{"negative chunk id", func(r *Record) { r.Meta[MetaChunkID] = "-1" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testChunk(0, "a.txt", "content").Record()
			tt.mutate(&r)
			require.Error(t, ValidateChunkRecord(r))
		})
	}
}
