package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/embeddings"
)

// lcClient wraps a langchaingo embedder with dimension validation and
// timing logs. OpenAI and Ollama clients embed it.
type lcClient struct {
	model     embeddings.Embedder
	modelName string
	dimension int
}

// Model returns the configured embedding model name.
func (c *lcClient) Model() string {
	return c.modelName
}

// Dimension returns the expected embedding dimension.
func (c *lcClient) Dimension() int {
	return c.dimension
}

// Embed generates an embedding vector for text.
func (c *lcClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts.
func (c *lcClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	slog.Debug("embedding batch", "model", c.modelName, "texts", len(texts))

	start := time.Now()
	vectors, err := c.model.EmbedDocuments(ctx, texts)
	duration := time.Since(start)

	if err != nil {
		slog.Warn("embedding failed", "model", c.modelName, "texts", len(texts),
			"duration_ms", duration.Milliseconds(), "error", err)
		return nil, fmt.Errorf("embed batch: %w", err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("count mismatch: got %d, want %d", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) != c.dimension {
			return nil, fmt.Errorf("embedding %d dimension mismatch: got %d, want %d",
				i, len(v), c.dimension)
		}
	}

	slog.Debug("embedding batch complete", "model", c.modelName, "texts", len(texts),
		"duration_ms", duration.Milliseconds())
	return vectors, nil
}
