// Package embedding provides text embedding generation with multiple backend support.
package embedding

import (
	"context"
	"fmt"
)

// Embedder defines the interface for text embedding providers.
// Implementations include OpenAI, Ollama (local) and AWS Bedrock.
type Embedder interface {
	// Embed generates an embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	// More efficient than multiple Embed calls for bulk operations.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the name of the embedding model being used.
	Model() string

	// Dimension returns the embedding vector dimension.
	// CRITICAL: Must match the vector collection's configured dimension.
	Dimension() int
}

// ProviderType identifies the embedding provider.
type ProviderType string

const (
	// ProviderOpenAI uses the OpenAI embeddings API.
	ProviderOpenAI ProviderType = "openai"

	// ProviderOllama uses a local Ollama server for embeddings.
	ProviderOllama ProviderType = "ollama"

	// ProviderBedrock uses AWS Bedrock (Titan embeddings).
	ProviderBedrock ProviderType = "bedrock"

	// ProviderVoyage uses the Voyage AI embeddings API.
	ProviderVoyage ProviderType = "voyage"
)

// Config holds configuration for creating an Embedder.
type Config struct {
	// Provider specifies which embedding backend to use.
	Provider ProviderType

	// Model is the embedding model name (provider-specific).
	// OpenAI: "text-embedding-3-small" (1536-dim)
	// Ollama: "all-minilm:l6-v2" (384-dim), "nomic-embed-text" (768-dim)
	// Bedrock: "amazon.titan-embed-text-v2:0" (1024-dim)
	// Voyage: "voyage-3" (1024-dim)
	Model string

	// ExpectedDimension is the required output dimension.
	// Set to 0 to use the provider's default.
	ExpectedDimension int

	// OpenAI-specific
	OpenAIAPIKey string

	// Ollama-specific (uses OLLAMA_HOST env var if empty)
	OllamaHost string

	// Bedrock-specific
	BedrockRegion string

	// Voyage-specific
	VoyageAPIKey string
}

// New creates an Embedder based on the provided configuration.
func New(ctx context.Context, cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case ProviderOpenAI, "":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider requires API key")
		}
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.Model, cfg.ExpectedDimension)

	case ProviderOllama:
		return NewOllamaClient(cfg.OllamaHost, cfg.Model, cfg.ExpectedDimension)

	case ProviderBedrock:
		return NewBedrockClient(ctx, cfg.BedrockRegion, cfg.Model, cfg.ExpectedDimension)

	case ProviderVoyage:
		return NewVoyageClient(cfg.VoyageAPIKey, cfg.Model, cfg.ExpectedDimension)

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}
