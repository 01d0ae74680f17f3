// Package pipeline runs the bulk document flow: index every chunk, group
// chunks into whole documents, classify each document through the router, and
// record the outcomes as experiences. Document-level classification fans out
// concurrently behind a fixed-capacity admission gate so bulk runs cannot
// issue unbounded parallel model calls.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/docpilot/docpilot/internal/index"
	"github.com/docpilot/docpilot/internal/log"
	"github.com/docpilot/docpilot/internal/memory"
	"github.com/docpilot/docpilot/internal/router"
)

// Run statuses.
const (
	StatusNoChunks   = "no_chunks"
	StatusClassified = "classified"
)

// Classifier routes one document's text. *router.Router satisfies it.
type Classifier interface {
	ClassifyAndRoute(ctx context.Context, text string) router.Result
}

// Indexer persists chunk records into the document namespace.
// *index.Manager satisfies it.
type Indexer interface {
	BuildOrUpdate(ctx context.Context, records []index.Record) error
}

// Recorder persists classification outcomes and recalls similar past ones.
// *memory.Recorder satisfies it.
type Recorder interface {
	Add(ctx context.Context, exp memory.Experience) error
	Recall(ctx context.Context, text string, k int) ([]memory.Recalled, error)
}

// DocumentResult is the outcome for one document in a bulk run.
type DocumentResult struct {
	Filename     string            `json:"filename"`
	Label        string            `json:"label"`
	Output       map[string]any    `json:"output"`
	SimilarCases []memory.Recalled `json:"similar_cases,omitempty"`
}

// Report is the outcome of one bulk run.
type Report struct {
	Status    string           `json:"status"`
	NumChunks int              `json:"num_chunks"`
	Documents []DocumentResult `json:"documents"`
}

// Config contains the parameters for a Pipeline.
type Config struct {
	Classifier Classifier
	Indexer    Indexer
	// Recorder is optional; without it outcomes are not remembered and no
	// similar cases are recalled.
	Recorder Recorder
	Logger   log.Logger

	// GateCapacity bounds concurrent document classifications. Defaults to 5.
	GateCapacity int
	// RecallTopK is how many similar past cases to attach per document.
	// Defaults to 2.
	RecallTopK int
}

func (cfg Config) validate() error {
	if cfg.Classifier == nil {
		return errors.New("classifier is required")
	}
	if cfg.Indexer == nil {
		return errors.New("indexer is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.GateCapacity < 0 {
		return errors.New("gate capacity must not be negative")
	}
	if cfg.RecallTopK < 0 {
		return errors.New("recall top-k must not be negative")
	}
	return nil
}

// Pipeline executes bulk document runs.
type Pipeline struct {
	classifier Classifier
	indexer    Indexer
	recorder   Recorder
	logger     log.Logger
	gate       *semaphore.Weighted
	recallK    int
}

// New creates a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	capacity := cfg.GateCapacity
	if capacity == 0 {
		capacity = 5
	}
	recallK := cfg.RecallTopK
	if recallK == 0 {
		recallK = 2
	}
	return &Pipeline{
		classifier: cfg.Classifier,
		indexer:    cfg.Indexer,
		recorder:   cfg.Recorder,
		logger:     cfg.Logger,
		gate:       semaphore.NewWeighted(int64(capacity)),
		recallK:    recallK,
	}, nil
}

// Run indexes the chunks, classifies each document, and reports per-document
// outcomes. A document whose classification yields an error payload becomes
// an error entry in the report; it does not abort the run.
func (p *Pipeline) Run(ctx context.Context, chunks []index.Chunk) (Report, error) {
	if len(chunks) == 0 {
		p.logger.Warn("no chunks to process")
		return Report{Status: StatusNoChunks}, nil
	}

	p.logger.Info("starting bulk run", "chunks", len(chunks))

	if err := p.indexer.BuildOrUpdate(ctx, index.ChunkRecords(chunks)); err != nil {
		return Report{}, fmt.Errorf("indexing chunks: %w", err)
	}

	// Group chunk texts per document in arrival order; the join is plain
	// concatenation.
	order := make([]string, 0)
	groups := make(map[string][]string)
	for _, c := range chunks {
		if _, ok := groups[c.Filename]; !ok {
			order = append(order, c.Filename)
		}
		groups[c.Filename] = append(groups[c.Filename], c.Text)
	}

	var (
		mu      sync.Mutex
		results = make([]DocumentResult, 0, len(order))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, filename := range order {
		fullText := strings.Join(groups[filename], "\n")
		g.Go(func() error {
			if err := p.gate.Acquire(gctx, 1); err != nil {
				return err
			}
			defer p.gate.Release(1)

			result := p.classifyDocument(gctx, filename, fullText)
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("bulk classification: %w", err)
	}

	p.logger.Info("bulk run finished", "documents", len(results))
	return Report{
		Status:    StatusClassified,
		NumChunks: len(chunks),
		Documents: results,
	}, nil
}

func (p *Pipeline) classifyDocument(ctx context.Context, filename, fullText string) DocumentResult {
	doc := DocumentResult{Filename: filename, Output: map[string]any{}}

	if p.recorder != nil {
		similar, err := p.recorder.Recall(ctx, fullText, p.recallK)
		if err != nil {
			p.logger.Warn("recall failed", "filename", filename, "error", err)
		} else {
			doc.SimilarCases = similar
		}
	}

	result := p.classifier.ClassifyAndRoute(ctx, fullText)
	if result.Output != nil {
		doc.Output = result.Output
	}
	if result.Task == nil {
		doc.Label = "unknown"
		p.logger.Warn("document could not be classified", "filename", filename)
		return doc
	}
	doc.Label = *result.Task

	if p.recorder != nil {
		exp := memory.Experience{
			InputText: fullText,
			Task:      *result.Task,
			Output:    result.Output,
			Meta: map[string]any{
				"filename":      filename,
				"input_preview": result.Trace.InputPreview,
				"routed_tool":   result.Trace.RoutedTool,
			},
		}
		if err := p.recorder.Add(ctx, exp); err != nil {
			p.logger.Warn("recording experience failed", "filename", filename, "error", err)
		}
	}

	return doc
}
