// Package transform implements the four document transformers: meeting-note
// summarization, contract risk flagging, support-ticket triage, and
// knowledge-base Q&A generation. Each transformer prompts the model for a
// JSON object and validates the result against its task schema before
// returning it; a payload that fails validation never reaches the caller.
package transform

import (
	"context"
	"fmt"
	"strings"
)

// Task identifies a document category and the transformer bound to it.
type Task string

const (
	TaskMeetingNote   Task = "meeting_note"
	TaskContract      Task = "contract"
	TaskSupportTicket Task = "support_ticket"
	TaskKnowledgeBase Task = "knowledge_base"
)

// Tasks returns all recognized tasks.
func Tasks() []Task {
	return []Task{TaskMeetingNote, TaskContract, TaskSupportTicket, TaskKnowledgeBase}
}

// Valid reports whether the task is one of the recognized categories.
func (t Task) Valid() bool {
	switch t {
	case TaskMeetingNote, TaskContract, TaskSupportTicket, TaskKnowledgeBase:
		return true
	}
	return false
}

func (t Task) String() string { return string(t) }

// Generator produces model text for a prompt. Defined here so transformers
// depend only on what they use; *llm.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Run dispatches text to the transformer for the given task. The dispatch
// table is closed: an unrecognized task is an error, never a silent fallback.
func Run(ctx context.Context, g Generator, task Task, text string) (map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	switch task {
	case TaskMeetingNote:
		return Summarize(ctx, g, text)
	case TaskContract:
		return FlagRisks(ctx, g, text)
	case TaskSupportTicket:
		return Triage(ctx, g, text)
	case TaskKnowledgeBase:
		return WriteKB(ctx, g, text)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, task)
	}
}
