package transform

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput indicates the document text was empty after trimming.
	// Transformers reject empty input before any model call.
	ErrEmptyInput = errors.New("document text must not be empty")

	// ErrUnknownTask indicates a task outside the closed dispatch table.
	ErrUnknownTask = errors.New("unknown task")
)

// ValidationError reports a model payload that does not satisfy its task
// schema.
type ValidationError struct {
	Task   Task
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s output failed validation: %s", e.Task, e.Reason)
}

func invalid(task Task, format string, args ...any) error {
	return &ValidationError{Task: task, Reason: fmt.Sprintf(format, args...)}
}
