package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMetadataLogMissingFile(t *testing.T) {
	entries, err := readMetadataLog(filepath.Join(t.TempDir(), MetadataLogName))
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestMetadataLogRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), MetadataLogName)

	first := []Record{
		{Key: "a.txt:0", Meta: map[string]string{MetaFilename: "a.txt", MetaChunkID: "0"}},
		{Key: "a.txt:1", Meta: map[string]string{MetaFilename: "a.txt", MetaChunkID: "1"}},
	}
	require.NoError(t, appendMetadataLog(path, first))
	require.NoError(t, appendMetadataLog(path, []Record{
		{Key: "b.txt:0", Meta: map[string]string{MetaFilename: "b.txt", MetaChunkID: "0"}},
	}))

	entries, err := readMetadataLog(path)
	require.NoError(t, err)
	require.Len(t, entries, 3, "appends accumulate, never truncate")
	assert.Equal(t, "a.txt:0", entries[0].Key)
	assert.Equal(t, "b.txt:0", entries[2].Key)
	assert.Equal(t, "a.txt", entries[0].Meta[MetaFilename])
}

func TestReadMetadataLogMalformedLineAborts(t *testing.T) {
	path := filepath.Join(t.TempDir(), MetadataLogName)
	content := `{"key": "a.txt:0", "meta": {}}
garbage line
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))

	_, err := readMetadataLog(path)
	require.Error(t, err, "a corrupt dedup log must not be silently truncated")
	assert.Contains(t, err.Error(), "line 2")
}

func TestAppendMetadataLogCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ns", MetadataLogName)
	require.NoError(t, appendMetadataLog(path, []Record{{Key: "k", Meta: map[string]string{}}}))

	entries, err := readMetadataLog(path)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
