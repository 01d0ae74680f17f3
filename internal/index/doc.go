// Package index implements the embedding index manager.
//
// A Manager wraps one namespace of the persistent vector store: an on-disk
// chromem-go database plus an append-only newline-delimited metadata log.
// The document corpus and the episodic memory log are two Manager instances
// with the same logic and different namespace directories.
//
// Responsibilities:
//   - Batch validation against the namespace's record schema
//   - Identity-key deduplication against the metadata log
//   - Embedding and synchronous persistence before success is reported
//   - Nearest-neighbor queries over the namespace
//   - Recovery from a corrupt persisted index into an empty, rebuildable state
package index
