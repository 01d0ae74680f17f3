package index

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Metadata keys for document-corpus records.
const (
	MetaChunkID    = "chunk_id"
	MetaFilename   = "filename"
	MetaSourceType = "source_type"
	MetaDocPath    = "doc_path"
)

// Record is the namespace-agnostic unit stored by a Manager: an identity key,
// the text to embed, and a flat metadata map.
type Record struct {
	Key  string            // Identity key, unique within the namespace
	Text string            // Content to embed
	Meta map[string]string // Metadata persisted alongside the vector
}

// Result is a Record returned from a query together with its cosine
// similarity score.
type Result struct {
	Record
	Similarity float32
}

// Chunk is a bounded span of extracted document text with positional and
// provenance metadata. Chunks are produced by an external ingestion
// collaborator and are immutable once indexed.
type Chunk struct {
	ChunkID    int    `json:"chunk_id"`
	Text       string `json:"text"`
	Filename   string `json:"filename"`
	SourceType string `json:"source_type"`
	DocPath    string `json:"doc_path"`
}

// Key returns the chunk's identity key. Deduplication within the document
// namespace is keyed on (chunk_id, filename).
func (c Chunk) Key() string {
	return fmt.Sprintf("%s:%d", c.Filename, c.ChunkID)
}

// Record converts the chunk into the Manager's storage form.
func (c Chunk) Record() Record {
	return Record{
		Key:  c.Key(),
		Text: c.Text,
		Meta: map[string]string{
			MetaChunkID:    strconv.Itoa(c.ChunkID),
			MetaFilename:   c.Filename,
			MetaSourceType: c.SourceType,
			MetaDocPath:    c.DocPath,
		},
	}
}

// ChunkRecords converts a chunk batch into records.
func ChunkRecords(chunks []Chunk) []Record {
	records := make([]Record, len(chunks))
	for i, c := range chunks {
		records[i] = c.Record()
	}
	return records
}

// ValidateChunkRecord is the document-namespace schema: every record must
// carry non-empty text and the full chunk metadata set.
func ValidateChunkRecord(r Record) error {
	if strings.TrimSpace(r.Text) == "" {
		return errors.New("text must not be empty")
	}
	if r.Meta == nil {
		return errors.New("metadata must not be nil")
	}
	for _, key := range []string{MetaChunkID, MetaFilename, MetaSourceType, MetaDocPath} {
		if strings.TrimSpace(r.Meta[key]) == "" {
			return fmt.Errorf("metadata field %q must not be empty", key)
		}
	}
	if id, err := strconv.Atoi(r.Meta[MetaChunkID]); err != nil || id < 0 {
		return fmt.Errorf("metadata field %q must be a non-negative integer", MetaChunkID)
	}
	return nil
}
