// Package memory records agent experiences into a similarity-searchable log.
// Each classification outcome becomes an Experience persisted in the memory
// namespace of the embedding index, so later runs can recall how similar
// inputs were handled.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/docpilot/docpilot/internal/index"
	"github.com/docpilot/docpilot/internal/log"
)

// Metadata keys for memory-namespace records. Output and Meta are stored as
// JSON strings inside the flat metadata map.
const (
	metaTask   = "task"
	metaOutput = "output"
	metaExtra  = "meta"
)

// ErrInvalidExperience indicates an experience that fails the required-field
// contract. Nothing is stored for a rejected experience.
var ErrInvalidExperience = errors.New("invalid experience")

// Experience is one recorded agent outcome: the input that was processed, the
// task it resolved to, and the structured output the transformer produced.
type Experience struct {
	InputText string         `json:"input_text"`
	Task      string         `json:"task"`
	Output    map[string]any `json:"output"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// Recalled is an Experience returned from similarity search together with its
// score.
type Recalled struct {
	Experience
	Similarity float32
}

// Config contains the required parameters for a Recorder.
type Config struct {
	// Index is the memory-namespace embedding index manager.
	Index  *index.Manager
	Logger log.Logger
}

func (cfg Config) validate() error {
	if cfg.Index == nil {
		return errors.New("index manager is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Recorder persists experiences and recalls similar past ones.
type Recorder struct {
	index  *index.Manager
	logger log.Logger
}

// New creates a Recorder over the memory namespace.
func New(cfg Config) (*Recorder, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Recorder{index: cfg.Index, logger: cfg.Logger}, nil
}

// ValidateExperienceRecord is the memory-namespace schema: non-empty text, a
// non-empty task, and an output that decodes as a JSON object.
func ValidateExperienceRecord(r index.Record) error {
	if strings.TrimSpace(r.Text) == "" {
		return errors.New("input text must not be empty")
	}
	if r.Meta == nil {
		return errors.New("metadata must not be nil")
	}
	if strings.TrimSpace(r.Meta[metaTask]) == "" {
		return fmt.Errorf("metadata field %q must not be empty", metaTask)
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(r.Meta[metaOutput]), &out); err != nil {
		return fmt.Errorf("metadata field %q must be a JSON object: %w", metaOutput, err)
	}
	return nil
}

// Add validates and persists one experience. A rejected experience causes no
// index or log mutation.
func (r *Recorder) Add(ctx context.Context, exp Experience) error {
	if strings.TrimSpace(exp.InputText) == "" {
		return fmt.Errorf("%w: input text must not be empty", ErrInvalidExperience)
	}
	if strings.TrimSpace(exp.Task) == "" {
		return fmt.Errorf("%w: task must not be empty", ErrInvalidExperience)
	}
	if exp.Output == nil {
		return fmt.Errorf("%w: output must be a map", ErrInvalidExperience)
	}

	output, err := json.Marshal(exp.Output)
	if err != nil {
		return fmt.Errorf("%w: output is not serializable: %v", ErrInvalidExperience, err)
	}
	meta := exp.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	extra, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("%w: meta is not serializable: %v", ErrInvalidExperience, err)
	}

	record := index.Record{
		Key:  uuid.NewString(),
		Text: exp.InputText,
		Meta: map[string]string{
			metaTask:   exp.Task,
			metaOutput: string(output),
			metaExtra:  string(extra),
		},
	}
	if err := r.index.BuildOrUpdate(ctx, []index.Record{record}); err != nil {
		return fmt.Errorf("persisting experience: %w", err)
	}

	r.logger.Info("experience recorded", "task", exp.Task)
	return nil
}

// Recall returns up to k past experiences most similar to the given text. An
// empty memory yields an empty result, not an error: first-run callers have
// nothing to recall yet.
func (r *Recorder) Recall(ctx context.Context, text string, k int) ([]Recalled, error) {
	results, err := r.index.Query(ctx, text, k)
	if err != nil {
		if errors.Is(err, index.ErrNotInitialized) {
			return nil, nil
		}
		return nil, fmt.Errorf("recalling experiences: %w", err)
	}

	recalled := make([]Recalled, 0, len(results))
	for _, res := range results {
		exp := Experience{
			InputText: res.Text,
			Task:      res.Meta[metaTask],
		}
		if err := json.Unmarshal([]byte(res.Meta[metaOutput]), &exp.Output); err != nil {
			r.logger.Warn("skipping experience with undecodable output", "key", res.Key, "error", err)
			continue
		}
		if raw := res.Meta[metaExtra]; raw != "" {
			if err := json.Unmarshal([]byte(raw), &exp.Meta); err != nil {
				r.logger.Warn("dropping undecodable experience meta", "key", res.Key, "error", err)
			}
		}
		recalled = append(recalled, Recalled{Experience: exp, Similarity: res.Similarity})
	}
	return recalled, nil
}

// Count returns the number of stored experiences.
func (r *Recorder) Count() int { return r.index.Count() }
