// Package router classifies document text into one of the four fixed task
// labels and dispatches it to the matching transformer. Classification errors
// and transformer errors are converted into error payloads rather than
// propagated: a caller always receives a Result.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/docpilot/docpilot/internal/log"
	"github.com/docpilot/docpilot/internal/transform"
)

// fuzzyCutoff is the minimum similarity for recovering a near-miss label
// (e.g. "meting_note") into a member of the fixed label set.
const fuzzyCutoff = 0.8

// previewLen bounds the input excerpt carried in the trace.
const previewLen = 100

const classifyPrompt = `Given the following document content, classify it into one of the following labels:

- meeting_note
- contract
- support_ticket
- knowledge_base

Respond **with exactly one label only** from the list above. Do not include explanations or punctuation.

Document:
%s`

// Trace carries observability fields for one routing decision. The episodic
// memory recorder persists it alongside the result.
type Trace struct {
	InputPreview string `json:"input_preview,omitempty"`
	RoutedTool   string `json:"routed_tool,omitempty"`
	Stage        string `json:"stage,omitempty"`
}

// Result is the outcome of one classify-and-route call. Task is nil when the
// input was rejected or classification itself failed; it is set even when the
// routed transformer failed, since the classification did succeed.
type Result struct {
	Task   *string        `json:"task"`
	Output map[string]any `json:"output"`
	Trace  Trace          `json:"agent_trace"`
}

func errorResult(task *string, msg string, trace Trace) Result {
	return Result{Task: task, Output: map[string]any{"error": msg}, Trace: trace}
}

// Config contains the required parameters for a Router.
type Config struct {
	Generator transform.Generator
	Logger    log.Logger
}

func (cfg Config) validate() error {
	if cfg.Generator == nil {
		return errors.New("generator is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Router owns the classification step and the static label-to-transformer
// dispatch.
type Router struct {
	gen    transform.Generator
	logger log.Logger
	lev    *metrics.Levenshtein
}

// New creates a Router.
func New(cfg Config) (*Router, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Router{
		gen:    cfg.Generator,
		logger: cfg.Logger,
		lev:    metrics.NewLevenshtein(),
	}, nil
}

// ClassifyAndRoute classifies text and runs the transformer bound to the
// resolved label.
//
// Failure semantics:
//   - empty input: Task nil, error payload, empty trace, no model call
//   - classification failure: Task nil, error payload, trace marks the stage
//   - unmatched label after fuzzy recovery: Task carries the raw label, error
//     payload, no transformer is invoked
//   - transformer failure: Task kept, error payload wrapping the cause
func (r *Router) ClassifyAndRoute(ctx context.Context, text string) Result {
	if strings.TrimSpace(text) == "" {
		r.logger.Error("missing or empty text input")
		return errorResult(nil, "Input must contain non-empty text field", Trace{})
	}

	raw, err := r.gen.Generate(ctx, fmt.Sprintf(classifyPrompt, text))
	if err != nil {
		r.logger.Error("classification failed", "error", err)
		return errorResult(nil, fmt.Sprintf("Classification failed: %v", err), Trace{Stage: "classification"})
	}

	label := normalizeLabel(raw)
	r.logger.Debug("raw model classification", "label", label)

	task := transform.Task(label)
	if !task.Valid() {
		recovered, ok := r.closestLabel(label)
		if !ok {
			r.logger.Warn("invalid classification", "label", label)
			return errorResult(&label,
				fmt.Sprintf("Unknown classification result: %s", label),
				Trace{InputPreview: preview(text), RoutedTool: label})
		}
		r.logger.Warn("fuzzy matched classification", "from", label, "to", recovered)
		task = recovered
		label = string(recovered)
	}

	trace := Trace{InputPreview: preview(text), RoutedTool: label}

	output, err := transform.Run(ctx, r.gen, task, text)
	if err != nil {
		// Classification succeeded, so the task is still reported.
		r.logger.Error("transformer execution failed", "task", label, "error", err)
		return errorResult(&label, fmt.Sprintf("Tool execution failed: %v", err), trace)
	}

	r.logger.Info("transformer executed", "task", label)
	return Result{Task: &label, Output: output, Trace: trace}
}

// normalizeLabel trims whitespace, lower-cases, and strips trailing periods
// from raw model output.
func normalizeLabel(raw string) string {
	label := strings.ToLower(strings.TrimSpace(raw))
	label = strings.TrimRight(label, ".")
	return strings.TrimSpace(label)
}

// closestLabel returns the fixed label most similar to the candidate, if the
// best match clears the cutoff.
func (r *Router) closestLabel(candidate string) (transform.Task, bool) {
	var (
		best      transform.Task
		bestScore float64
	)
	for _, task := range transform.Tasks() {
		if score := strutil.Similarity(candidate, string(task), r.lev); score > bestScore {
			best, bestScore = task, score
		}
	}
	if bestScore < fuzzyCutoff {
		return "", false
	}
	return best, true
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLen {
		return text
	}
	return string(runes[:previewLen])
}
