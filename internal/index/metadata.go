package index

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// MetadataLogName is the append-only metadata log file inside a namespace
// directory. One JSON object per line, one line per indexed record.
const MetadataLogName = "metadata.jsonl"

// logEntry is the persisted form of one indexed record's metadata.
type logEntry struct {
	Key  string            `json:"key"`
	Meta map[string]string `json:"meta"`
}

// readMetadataLog loads the full metadata log. A missing file means an empty
// log, not an error. Malformed lines abort the read: the log is the dedup
// source of truth and silently skipping entries would reintroduce duplicates.
func readMetadataLog(path string) ([]logEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening metadata log: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var entries []logEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var entry logEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("metadata log line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading metadata log: %w", err)
	}
	return entries, nil
}

// appendMetadataLog appends one entry per record and syncs the file before
// returning.
func appendMetadataLog(path string, records []Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating namespace directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("opening metadata log: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	w := bufio.NewWriter(f)
	for _, r := range records {
		data, err := json.Marshal(logEntry{Key: r.Key, Meta: r.Meta})
		if err != nil {
			return fmt.Errorf("marshaling metadata for %q: %w", r.Key, err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("writing metadata log: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing metadata log: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing metadata log: %w", err)
	}
	return nil
}
