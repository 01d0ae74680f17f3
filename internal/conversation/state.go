// Package conversation implements the multi-turn session state machine: each
// turn retrieves supporting context from the document index, generates a
// reply, appends to history, and compacts older history into a running
// summary once the message count crosses a fixed threshold. State is
// checkpointed per thread after every transition.
package conversation

// Message roles.
const (
	RoleHuman     = "human"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one turn in a conversation.
type Message struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// State is the full conversational state of one thread. A thread owns its
// state exclusively; nothing is shared across threads.
type State struct {
	ThreadID    string    `json:"thread_id"`
	Messages    []Message `json:"messages"`
	Question    string    `json:"question"`
	Summary     string    `json:"summary,omitempty"`
	GraphOutput string    `json:"graph_output,omitempty"`
}

// Clone returns a deep copy so checkpointed snapshots cannot alias live state.
func (s State) Clone() State {
	out := s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	return out
}
