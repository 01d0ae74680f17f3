package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeChunkFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunks.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))
	return path
}

func TestReadChunks(t *testing.T) {
	path := writeChunkFile(t, `{"chunk_id": 0, "text": "alpha", "filename": "a.txt", "source_type": "txt", "doc_path": "/docs/a.txt"}

{"chunk_id": 1, "text": "beta", "filename": "a.txt", "source_type": "txt", "doc_path": "/docs/a.txt"}
`)

	chunks, err := readChunks(path)
	require.NoError(t, err)
	require.Len(t, chunks, 2, "blank lines are skipped")
	assert.Equal(t, "alpha", chunks[0].Text)
	assert.Equal(t, 1, chunks[1].ChunkID)
}

func TestReadChunksMalformedLine(t *testing.T) {
	path := writeChunkFile(t, `{"chunk_id": 0, "text": "alpha", "filename": "a.txt", "source_type": "txt", "doc_path": "/docs/a.txt"}
not json
`)

	_, err := readChunks(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadChunksMissingFile(t *testing.T) {
	_, err := readChunks(filepath.Join(t.TempDir(), "nope.jsonl"))
	require.Error(t, err)
}

func TestSubcommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"classify", "pipeline", "chat", "query", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}
