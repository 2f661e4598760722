package models

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder implements embeddings.Embedder.
type fakeEmbedder struct {
	vectors [][]float32
	err     error
}

func (f *fakeEmbedder) EmbedDocuments(
	ctx context.Context,
	texts []string,
) ([][]float32, error) {
	return f.vectors, f.err
}

func (f *fakeEmbedder) EmbedQuery(
	ctx context.Context,
	text string,
) ([]float32, error) {
	return nil, errors.New("not implemented")
}

func TestLCGEmbedder_EmbedBatch(t *testing.T) {
	embedder := NewLCGEmbedder(&fakeEmbedder{
		vectors: [][]float32{{0.1, 0.2}, {0.3, 0.4}},
	})

	vectors, err := embedder.EmbedBatch(
		context.Background(), []string{"one", "two"},
	)
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0.3, 0.4}, vectors[1])
}

func TestLCGEmbedder_Error(t *testing.T) {
	embedder := NewLCGEmbedder(&fakeEmbedder{err: errors.New("offline")})

	_, err := embedder.EmbedBatch(context.Background(), []string{"one"})
	assert.ErrorContains(t, err, "offline")
}

func TestLCGEmbedder_LengthMismatch(t *testing.T) {
	embedder := NewLCGEmbedder(&fakeEmbedder{
		vectors: [][]float32{{0.1}},
	})

	_, err := embedder.EmbedBatch(
		context.Background(), []string{"one", "two"},
	)
	assert.ErrorContains(t, err, "2 texts")
}
