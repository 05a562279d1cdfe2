// Package embedding_test contains integration tests for embedding clients.
package embedding_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/askdocs-go/internal/embedding"
)

func TestNewOllamaClient(t *testing.T) {
	client, err := embedding.NewOllamaClient("", "", 0)
	require.NoError(t, err, "should create client with default model")
	assert.Equal(t, embedding.DefaultOllamaModel, client.Model())
	assert.Equal(t, embedding.DefaultOllamaDimension, client.Dimension())
}

func TestNewOllamaClientCustomModel(t *testing.T) {
	client, err := embedding.NewOllamaClient("http://localhost:11434", "custom-model", 512)
	require.NoError(t, err, "should create client with custom model")
	assert.Equal(t, "custom-model", client.Model())
	assert.Equal(t, 512, client.Dimension())
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	_, err := embedding.NewOpenAIClient("", "", 0)
	assert.Error(t, err, "missing API key must fail fast")
}

func TestNewOpenAIClientDefaults(t *testing.T) {
	client, err := embedding.NewOpenAIClient("test-key", "", 0)
	require.NoError(t, err)
	assert.Equal(t, embedding.DefaultOpenAIModel, client.Model())
	assert.Equal(t, embedding.DefaultOpenAIDimension, client.Dimension())
}

func TestFactoryUnknownProvider(t *testing.T) {
	_, err := embedding.New(context.Background(), embedding.Config{Provider: "nope"})
	assert.Error(t, err)
}

func TestEmbedBatchEmpty(t *testing.T) {
	client, err := embedding.NewOllamaClient("", "", 0)
	require.NoError(t, err, "should create client")

	ctx := context.Background()
	embeddings, err := client.EmbedBatch(ctx, []string{})
	require.NoError(t, err, "should handle empty batch")
	assert.Len(t, embeddings, 0, "should return empty slice")
}

func TestEmbed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := embedding.NewOllamaClient("", "", 0)
	require.NoError(t, err, "should create client")

	emb, err := client.Embed(ctx, "This is a test sentence for embedding.")
	require.NoError(t, err, "should generate embedding")

	// CRITICAL: Verify dimension matches expected
	assert.Len(t, emb, client.Dimension(),
		"embedding must be exactly %d dimensions", client.Dimension())

	// Verify values are reasonable (not all zeros, within normal range)
	var sum float32
	for _, v := range emb {
		sum += v * v
	}
	assert.Greater(t, sum, float32(0.1), "embedding should have non-trivial values")
}

func TestEmbedBatch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := embedding.NewOllamaClient("", "", 0)
	require.NoError(t, err, "should create client")

	texts := []string{
		"Install the package with npm.",
		"Configure the client with your API key.",
		"Query the search endpoint with a filter.",
	}

	embeddings, err := client.EmbedBatch(ctx, texts)
	require.NoError(t, err, "should generate batch embeddings")

	assert.Len(t, embeddings, len(texts), "should return one embedding per text")

	for i, emb := range embeddings {
		assert.Len(t, emb, client.Dimension(),
			"embedding %d must be exactly %d dimensions", i, client.Dimension())
	}
}

func TestEmbedSimilarity(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := embedding.NewOllamaClient("", "", 0)
	require.NoError(t, err, "should create client")

	emb1, err := client.Embed(ctx, "How do I install the CLI tool?")
	require.NoError(t, err)

	emb2, err := client.Embed(ctx, "Installing the command line tool.")
	require.NoError(t, err)

	emb3, err := client.Embed(ctx, "Database query optimization techniques.")
	require.NoError(t, err)

	sim12 := cosineSimilarity(emb1, emb2)
	sim13 := cosineSimilarity(emb1, emb3)

	t.Logf("Similarity (similar sentences): %.4f", sim12)
	t.Logf("Similarity (different topics): %.4f", sim13)

	assert.Greater(t, sim12, sim13, "similar sentences should have higher similarity than different topics")
}

func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
