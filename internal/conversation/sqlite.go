package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const checkpointSchema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	thread_id TEXT NOT NULL,
	state TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_thread ON checkpoints(thread_id, id);
`

// SQLiteCheckpointer persists checkpoints in a SQLite database so threads
// survive process restarts. Safe for concurrent use.
type SQLiteCheckpointer struct {
	db *sql.DB
}

// NewSQLiteCheckpointer opens (and initializes if needed) the checkpoint
// database at dbPath.
func NewSQLiteCheckpointer(dbPath string) (*SQLiteCheckpointer, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint database: %w", err)
	}

	if _, err := db.Exec(checkpointSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing checkpoint schema: %w", err)
	}

	return &SQLiteCheckpointer{db: db}, nil
}

func (c *SQLiteCheckpointer) Put(ctx context.Context, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("serializing checkpoint: %w", err)
	}

	_, err = c.db.ExecContext(ctx,
		"INSERT INTO checkpoints (thread_id, state, created_at) VALUES (?, ?, ?)",
		state.ThreadID, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing checkpoint for thread %q: %w", state.ThreadID, err)
	}
	return nil
}

func (c *SQLiteCheckpointer) Latest(ctx context.Context, threadID string) (State, bool, error) {
	var data string
	err := c.db.QueryRowContext(ctx,
		"SELECT state FROM checkpoints WHERE thread_id = ? ORDER BY id DESC LIMIT 1",
		threadID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("reading checkpoint for thread %q: %w", threadID, err)
	}

	var state State
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return State{}, false, fmt.Errorf("deserializing checkpoint for thread %q: %w", threadID, err)
	}
	return state, true, nil
}

func (c *SQLiteCheckpointer) Delete(ctx context.Context, threadID string) error {
	if _, err := c.db.ExecContext(ctx,
		"DELETE FROM checkpoints WHERE thread_id = ?", threadID,
	); err != nil {
		return fmt.Errorf("deleting checkpoints for thread %q: %w", threadID, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (c *SQLiteCheckpointer) Close() error {
	return c.db.Close()
}
