package conversation

import (
	"context"
	"sync"
)

// Checkpointer persists conversational state per thread. Every transition
// appends a checkpoint; Latest returns the most recent one; Delete removes
// every checkpoint under the thread so subsequent reads see a fresh session.
type Checkpointer interface {
	Put(ctx context.Context, state State) error
	Latest(ctx context.Context, threadID string) (State, bool, error)
	Delete(ctx context.Context, threadID string) error
}

// MemoryCheckpointer keeps checkpoints in process memory. Suitable for tests
// and single-run sessions; state does not survive a restart.
type MemoryCheckpointer struct {
	mu      sync.RWMutex
	threads map[string][]State
}

// NewMemoryCheckpointer creates an empty in-memory checkpointer.
func NewMemoryCheckpointer() *MemoryCheckpointer {
	return &MemoryCheckpointer{threads: make(map[string][]State)}
}

func (c *MemoryCheckpointer) Put(_ context.Context, state State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threads[state.ThreadID] = append(c.threads[state.ThreadID], state.Clone())
	return nil
}

func (c *MemoryCheckpointer) Latest(_ context.Context, threadID string) (State, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	history := c.threads[threadID]
	if len(history) == 0 {
		return State{}, false, nil
	}
	return history[len(history)-1].Clone(), true, nil
}

func (c *MemoryCheckpointer) Delete(_ context.Context, threadID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.threads, threadID)
	return nil
}
