// Package testutil provides deterministic test doubles shared across
// packages: a stub embedding function and a scripted text generator. Nothing
// here touches the network.
package testutil

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"sync"
)

// Embedding maps text to a deterministic unit vector. Identical text always
// embeds to the identical vector, so similarity ordering is stable across
// runs.
func Embedding(_ context.Context, text string) ([]float32, error) {
	const dim = 8
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, dim)
	var norm float64
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(seed%1000) + 1
		norm += float64(vec[i]) * float64(vec[i])
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

// ScriptedGenerator returns queued responses in order and records every
// prompt. Safe for concurrent use.
type ScriptedGenerator struct {
	mu        sync.Mutex
	responses []string
	prompts   []string
	err       error
}

// NewScriptedGenerator creates a generator that replies with the given
// responses in order.
func NewScriptedGenerator(responses ...string) *ScriptedGenerator {
	return &ScriptedGenerator{responses: responses}
}

// NewFailingGenerator creates a generator whose every call fails with err.
func NewFailingGenerator(err error) *ScriptedGenerator {
	return &ScriptedGenerator{err: err}
}

func (g *ScriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	if len(g.responses) == 0 {
		return "", errors.New("no scripted response left")
	}
	resp := g.responses[0]
	g.responses = g.responses[1:]
	return resp, nil
}

// Prompts returns a copy of every prompt seen so far.
func (g *ScriptedGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.prompts))
	copy(out, g.prompts)
	return out
}

// Calls returns how many times Generate was invoked.
func (g *ScriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}
