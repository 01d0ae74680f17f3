package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/docpilot/docpilot/internal/index"
	"github.com/docpilot/docpilot/internal/log"
)

// compactionThreshold triggers summarization once the message count exceeds
// it; keepRecent is how many of the newest messages survive compaction
// verbatim. Both are fixed properties of the state machine, not tunables.
const (
	compactionThreshold = 6
	keepRecent          = 2
)

// emptyQuestionReply is the fixed output for a turn submitted without a
// question. History is not touched.
const emptyQuestionReply = "Empty or missing question."

const answerPrompt = `You are an assistant for question-answering tasks.
Use the following pieces of context to answer the question. If you don't know the answer, just say that you don't know.
Context:
%s
%s
Question:
%s
Answer:`

// Generator produces model text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Retriever serves nearest-neighbor lookups over the document corpus.
// *index.Manager satisfies it.
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]index.Result, error)
}

// Config contains the required parameters for an Engine.
type Config struct {
	Generator    Generator
	Retriever    Retriever
	Checkpointer Checkpointer
	Logger       log.Logger

	// RetrievalTopK is how many document chunks back a turn's answer.
	// Defaults to 10.
	RetrievalTopK int
}

func (cfg Config) validate() error {
	if cfg.Generator == nil {
		return errors.New("generator is required")
	}
	if cfg.Retriever == nil {
		return errors.New("retriever is required")
	}
	if cfg.Checkpointer == nil {
		return errors.New("checkpointer is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.RetrievalTopK < 0 {
		return errors.New("retrieval top-k must not be negative")
	}
	return nil
}

// Engine drives the per-thread conversation state machine. Threads are
// isolated; concurrent turns on the same thread must be serialized by the
// caller.
type Engine struct {
	gen    Generator
	docs   Retriever
	cp     Checkpointer
	logger log.Logger
	topK   int
}

// NewEngine creates an Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	topK := cfg.RetrievalTopK
	if topK == 0 {
		topK = 10
	}
	return &Engine{
		gen:    cfg.Generator,
		docs:   cfg.Retriever,
		cp:     cfg.Checkpointer,
		logger: cfg.Logger,
		topK:   topK,
	}, nil
}

// SubmitTurn runs one turn for the thread: retrieve context, answer, append
// the human and assistant messages, checkpoint, and compact history if the
// threshold was crossed. The returned state reflects all transitions of the
// turn.
func (e *Engine) SubmitTurn(ctx context.Context, threadID, question string) (State, error) {
	state, _, err := e.cp.Latest(ctx, threadID)
	if err != nil {
		return State{}, fmt.Errorf("loading thread %q: %w", threadID, err)
	}
	state.ThreadID = threadID
	state.Question = question

	if strings.TrimSpace(question) == "" {
		state.GraphOutput = emptyQuestionReply
		if err := e.cp.Put(ctx, state); err != nil {
			return State{}, fmt.Errorf("checkpointing thread %q: %w", threadID, err)
		}
		return state, nil
	}

	answer, err := e.answer(ctx, state, question)
	if err != nil {
		return State{}, err
	}

	state.Messages = append(state.Messages,
		Message{ID: uuid.NewString(), Role: RoleHuman, Content: question},
		Message{ID: uuid.NewString(), Role: RoleAssistant, Content: answer},
	)
	state.GraphOutput = answer

	if err := e.cp.Put(ctx, state); err != nil {
		return State{}, fmt.Errorf("checkpointing thread %q: %w", threadID, err)
	}

	if len(state.Messages) > compactionThreshold {
		state, err = e.compact(ctx, state)
		if err != nil {
			return State{}, err
		}
	}

	return state, nil
}

// answer builds the retrieval-augmented prompt and generates the reply.
func (e *Engine) answer(ctx context.Context, state State, question string) (string, error) {
	var contextText string
	results, err := e.docs.Query(ctx, question, e.topK)
	switch {
	case errors.Is(err, index.ErrNotInitialized):
		e.logger.Warn("document index not initialized; answering without retrieval context")
	case err != nil:
		e.logger.Warn("retrieval failed; answering without context", "error", err)
	default:
		parts := make([]string, len(results))
		for i, r := range results {
			parts[i] = r.Text
		}
		contextText = strings.Join(parts, "\n\n")
	}

	prompt := fmt.Sprintf(answerPrompt, contextText, historyText(state), question)

	answer, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	if strings.TrimSpace(answer) == "" {
		answer = "No answer generated."
	}
	return answer, nil
}

// compact folds all but the newest messages into the running summary and
// checkpoints the compacted state. A summarization failure leaves the full
// history in place rather than losing context.
func (e *Engine) compact(ctx context.Context, state State) (State, error) {
	var instruction string
	if state.Summary != "" {
		instruction = fmt.Sprintf(
			"This is a summary of the conversation to date:\n%s\n\nExtend the summary by taking into account the new messages above.",
			state.Summary)
	} else {
		instruction = "Create a summary of the conversation above."
	}
	prompt := historyText(state) + "\n\n" + instruction

	summary, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		e.logger.Error("history compaction failed; keeping full history", "thread_id", state.ThreadID, "error", err)
		return state, nil
	}

	state.Summary = strings.TrimSpace(summary)
	state.Messages = state.Messages[len(state.Messages)-keepRecent:]

	if err := e.cp.Put(ctx, state); err != nil {
		return State{}, fmt.Errorf("checkpointing compacted thread %q: %w", state.ThreadID, err)
	}

	e.logger.Info("compacted conversation history",
		"thread_id", state.ThreadID,
		"kept_messages", keepRecent)
	return state, nil
}

// GetState returns the latest checkpointed state for the thread. An unknown
// thread yields a fresh empty state.
func (e *Engine) GetState(ctx context.Context, threadID string) (State, error) {
	state, found, err := e.cp.Latest(ctx, threadID)
	if err != nil {
		return State{}, fmt.Errorf("loading thread %q: %w", threadID, err)
	}
	if !found {
		return State{ThreadID: threadID}, nil
	}
	return state, nil
}

// ResetThread deletes every checkpoint under the thread.
func (e *Engine) ResetThread(ctx context.Context, threadID string) error {
	if err := e.cp.Delete(ctx, threadID); err != nil {
		return fmt.Errorf("resetting thread %q: %w", threadID, err)
	}
	e.logger.Info("thread reset", "thread_id", threadID)
	return nil
}

// historyText renders the message history for prompting, prefixed with a
// synthetic system line carrying the running summary when one exists.
func historyText(state State) string {
	var b strings.Builder
	if state.Summary != "" {
		b.WriteString("System: Summary of the conversation so far: ")
		b.WriteString(state.Summary)
		b.WriteString("\n")
	}
	for _, m := range state.Messages {
		switch m.Role {
		case RoleHuman:
			b.WriteString("Human: ")
		case RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			b.WriteString("System: ")
		}
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
