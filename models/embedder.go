package models

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
)

// LCGEmbedder wraps a langchaingo embeddings.Embedder and satisfies the
// pipeline's Embedder contract: one vector per input text, same length and
// order.
//
//	llm, _ := ollama.New(ollama.WithModel("nomic-embed-text"))
//	embedder, _ := embeddings.NewEmbedder(llm)
//	batch := models.NewLCGEmbedder(embedder)
type LCGEmbedder struct {
	embedder embeddings.Embedder
}

// NewLCGEmbedder creates an LCGEmbedder wrapping the given embedder.
func NewLCGEmbedder(embedder embeddings.Embedder) *LCGEmbedder {
	return &LCGEmbedder{embedder: embedder}
}

// EmbedBatch embeds texts as one batch.
func (e *LCGEmbedder) EmbedBatch(
	ctx context.Context,
	texts []string,
) ([][]float32, error) {
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf(
			"embed batch: got %d vectors for %d texts",
			len(vectors), len(texts),
		)
	}
	return vectors, nil
}
