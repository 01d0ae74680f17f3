// Package llm provides the single model-client handle injected into every
// component that talks to the language model.
//
// Components depend on their own narrow generator interfaces; Client is the
// production implementation backed by Genkit. Tests substitute deterministic
// stubs instead.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/docpilot/docpilot/internal/log"
)

// ErrEmptyResponse indicates the model returned no usable text.
var ErrEmptyResponse = errors.New("model returned empty response")

// DefaultTimeout bounds a model call when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Config contains the required parameters for Client.
type Config struct {
	Genkit    *genkit.Genkit
	ModelName string // Provider-qualified model name (e.g. "googleai/gemini-2.0-flash-lite")
	Logger    log.Logger

	// Timeout bounds every outbound call. Zero value uses DefaultTimeout.
	// Expiry surfaces to callers as an ordinary generation error.
	Timeout time.Duration

	// Limiter optionally throttles outbound calls. Nil uses a default of
	// 10 requests/sec sustained with a burst of 30.
	Limiter *rate.Limiter
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if strings.TrimSpace(cfg.ModelName) == "" {
		return errors.New("model name is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Client is the production model client.
//
// Client is safe for concurrent use by multiple goroutines; all configuration
// is captured immutably at construction time.
type Client struct {
	g       *genkit.Genkit
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	logger  log.Logger
}

// New creates a Client from the given configuration.
func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}

	return &Client{
		g:       cfg.Genkit,
		model:   cfg.ModelName,
		timeout: timeout,
		limiter: limiter,
		logger:  cfg.Logger,
	}, nil
}

// Generate invokes the model with a single prompt and returns its text output.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, "", prompt)
}

// GenerateWithSystem invokes the model with a system instruction and a prompt.
func (c *Client) GenerateWithSystem(ctx context.Context, system, prompt string) (string, error) {
	return c.generate(ctx, system, prompt)
}

func (c *Client) generate(ctx context.Context, system, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	opts := []ai.GenerateOption{
		ai.WithModelName(c.model),
		ai.WithPrompt(prompt),
	}
	if system != "" {
		opts = append(opts, ai.WithSystem(system))
	}

	start := time.Now()
	resp, err := genkit.Generate(callCtx, c.g, opts...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("model call timed out after %s: %w", c.timeout, err)
		}
		return "", fmt.Errorf("model call failed: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("model call completed",
		"model", c.model,
		"prompt_len", len(prompt),
		"response_len", len(text),
		"duration", time.Since(start))

	return text, nil
}
