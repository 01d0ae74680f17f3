package index

import (
	"errors"
	"fmt"
)

// Sentinel errors for index operations. Check with errors.Is().
var (
	// ErrEmptyBatch indicates BuildOrUpdate was called with no records.
	// An empty batch is a hard failure, never a silent no-op.
	ErrEmptyBatch = errors.New("no records provided")

	// ErrNotInitialized indicates a query against a namespace that has no
	// indexed records yet. Callers must be able to distinguish "no index"
	// from "no matches".
	ErrNotInitialized = errors.New("index not initialized")

	// ErrInvalidQuery indicates an empty query text or non-positive k.
	ErrInvalidQuery = errors.New("invalid query")
)

// SchemaError reports a record that failed the namespace's schema check.
// The whole batch is aborted; partial application is not permitted.
type SchemaError struct {
	Index int    // Position of the offending record in the batch
	Key   string // Identity key, if one was derivable
	Err   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid record at index %d (key %q): %v", e.Index, e.Key, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }
