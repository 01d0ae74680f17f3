// Package app wires the application together: configuration, logging, the
// Genkit model client, both index namespaces, the router, the episodic
// recorder, the conversation engine, and the bulk pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/docpilot/docpilot/internal/config"
	"github.com/docpilot/docpilot/internal/conversation"
	"github.com/docpilot/docpilot/internal/index"
	"github.com/docpilot/docpilot/internal/llm"
	"github.com/docpilot/docpilot/internal/log"
	"github.com/docpilot/docpilot/internal/memory"
	"github.com/docpilot/docpilot/internal/pipeline"
	"github.com/docpilot/docpilot/internal/router"
)

// Namespace names for the two index instances.
const (
	DocumentNamespace = "documents"
	MemoryNamespace   = "memory"
)

// App holds every initialized component. Create with Setup, release with
// Close.
type App struct {
	Config   *config.Config
	Logger   log.Logger
	Genkit   *genkit.Genkit
	LLM      *llm.Client
	Docs     *index.Manager
	Memory   *memory.Recorder
	Router   *router.Router
	Engine   *conversation.Engine
	Pipeline *pipeline.Pipeline

	checkpointer *conversation.SQLiteCheckpointer
}

// Setup creates and initializes the application.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}

	a := &App{Config: cfg}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				a.Logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.Logger = log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), JSON: cfg.LogJSON})

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with googleai provider")
	}
	a.Genkit = g

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}
	embedFunc := llm.NewEmbeddingFunc(embedder)

	client, err := llm.New(llm.Config{
		Genkit:    g,
		ModelName: cfg.ModelName,
		Logger:    a.Logger,
		Timeout:   cfg.ModelTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating model client: %w", err)
	}
	a.LLM = client

	docs, err := index.New(index.Config{
		Dir:       cfg.DocumentIndexDir(),
		Namespace: DocumentNamespace,
		Embedding: embedFunc,
		Validate:  index.ValidateChunkRecord,
		Logger:    a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating document index: %w", err)
	}
	a.Docs = docs

	memIndex, err := index.New(index.Config{
		Dir:       cfg.MemoryIndexDir(),
		Namespace: MemoryNamespace,
		Embedding: embedFunc,
		Validate:  memory.ValidateExperienceRecord,
		Logger:    a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating memory index: %w", err)
	}

	recorder, err := memory.New(memory.Config{Index: memIndex, Logger: a.Logger})
	if err != nil {
		return nil, fmt.Errorf("creating experience recorder: %w", err)
	}
	a.Memory = recorder

	rtr, err := router.New(router.Config{Generator: client, Logger: a.Logger})
	if err != nil {
		return nil, fmt.Errorf("creating router: %w", err)
	}
	a.Router = rtr

	checkpointer, err := conversation.NewSQLiteCheckpointer(cfg.CheckpointDBPath())
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint store: %w", err)
	}
	a.checkpointer = checkpointer

	engine, err := conversation.NewEngine(conversation.Config{
		Generator:     client,
		Retriever:     docs,
		Checkpointer:  checkpointer,
		Logger:        a.Logger,
		RetrievalTopK: cfg.RetrievalTopK,
	})
	if err != nil {
		return nil, fmt.Errorf("creating conversation engine: %w", err)
	}
	a.Engine = engine

	pipe, err := pipeline.New(pipeline.Config{
		Classifier:   rtr,
		Indexer:      docs,
		Recorder:     recorder,
		Logger:       a.Logger,
		GateCapacity: cfg.GateCapacity,
		RecallTopK:   cfg.RecallTopK,
	})
	if err != nil {
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}
	a.Pipeline = pipe

	a.Logger.Info("application initialized",
		"model", cfg.ModelName,
		"embedder", cfg.EmbedderModel,
		"data_dir", cfg.DataDir)
	return a, nil
}

// Close releases held resources.
func (a *App) Close() error {
	if a.checkpointer != nil {
		if err := a.checkpointer.Close(); err != nil {
			return fmt.Errorf("closing checkpoint store: %w", err)
		}
	}
	return nil
}
