package embedding

import (
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

const (
	// DefaultOllamaModel is the embedding model that produces 768-dimensional vectors.
	DefaultOllamaModel = "nomic-embed-text"

	// DefaultOllamaDimension is the dimension for nomic-embed-text.
	// CRITICAL: This MUST match the vector collection's configured dimension.
	DefaultOllamaDimension = 768
)

// OllamaClient implements Embedder using a local Ollama server.
type OllamaClient struct {
	lcClient
}

// Compile-time check that OllamaClient implements Embedder.
var _ Embedder = (*OllamaClient)(nil)

// NewOllamaClient creates a new Ollama embedding client.
// If model is empty, uses DefaultOllamaModel (nomic-embed-text).
// If expectedDimension is 0, uses DefaultOllamaDimension (768).
func NewOllamaClient(host, model string, expectedDimension int) (*OllamaClient, error) {
	if model == "" {
		model = DefaultOllamaModel
	}
	if expectedDimension == 0 {
		expectedDimension = DefaultOllamaDimension
	}

	opts := []ollama.Option{ollama.WithModel(model)}
	if host != "" {
		opts = append(opts, ollama.WithServerURL(host))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create ollama embedder: %w", err)
	}

	return &OllamaClient{lcClient{
		model:     embedder,
		modelName: model,
		dimension: expectedDimension,
	}}, nil
}
