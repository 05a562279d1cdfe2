package embedding

import (
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	// DefaultOpenAIModel is the default OpenAI embedding model.
	DefaultOpenAIModel = "text-embedding-3-small"

	// DefaultOpenAIDimension is the output dimension of text-embedding-3-small.
	DefaultOpenAIDimension = 1536
)

// OpenAIClient implements Embedder using the OpenAI embeddings API.
type OpenAIClient struct {
	lcClient
}

// Compile-time check that OpenAIClient implements Embedder.
var _ Embedder = (*OpenAIClient)(nil)

// NewOpenAIClient creates an OpenAI embedding client.
// If model is empty, uses DefaultOpenAIModel.
// If expectedDimension is 0, uses DefaultOpenAIDimension.
func NewOpenAIClient(apiKey, model string, expectedDimension int) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key required for OpenAI embeddings")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if expectedDimension == 0 {
		expectedDimension = DefaultOpenAIDimension
	}

	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create openai embedder: %w", err)
	}

	return &OpenAIClient{lcClient{
		model:     embedder,
		modelName: model,
		dimension: expectedDimension,
	}}, nil
}
