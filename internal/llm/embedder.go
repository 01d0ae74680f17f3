package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	chromem "github.com/philippgille/chromem-go"
)

// NewEmbeddingFunc adapts a Genkit embedder to the single-text signature the
// vector store consumes. Vectors are passed through as the model produced
// them; the store normalizes on insert.
func NewEmbeddingFunc(embedder ai.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := embedder.Embed(ctx, &ai.EmbedRequest{
			Input: []*ai.Document{ai.DocumentFromText(text, nil)},
		})
		if err != nil {
			return nil, fmt.Errorf("embedding text: %w", err)
		}
		if len(resp.Embeddings) == 0 {
			return nil, errors.New("embedder returned no vectors")
		}
		vec := resp.Embeddings[0].Embedding
		if len(vec) == 0 {
			return nil, errors.New("embedder returned an empty vector")
		}
		return vec, nil
	}
}
