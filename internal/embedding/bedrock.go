package embedding

import (
	"context"
	"encoding/json"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const (
	// DefaultBedrockModel is the default Titan embedding model.
	DefaultBedrockModel = "amazon.titan-embed-text-v2:0"

	// DefaultBedrockDimension is the dimension for titan-embed-text-v2.
	DefaultBedrockDimension = 1024
)

// BedrockClient implements Embedder using AWS Bedrock Titan embeddings.
type BedrockClient struct {
	client    *bedrockruntime.Client
	model     string
	dimension int
}

// Compile-time check that BedrockClient implements Embedder.
var _ Embedder = (*BedrockClient)(nil)

// NewBedrockClient creates a Bedrock embedding client using the default
// AWS credential chain.
// If model is empty, uses DefaultBedrockModel.
// If expectedDimension is 0, uses DefaultBedrockDimension.
func NewBedrockClient(ctx context.Context, region, model string, expectedDimension int) (*BedrockClient, error) {
	if model == "" {
		model = DefaultBedrockModel
	}
	if expectedDimension == 0 {
		expectedDimension = DefaultBedrockDimension
	}

	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &BedrockClient{
		client:    bedrockruntime.NewFromConfig(awsCfg),
		model:     model,
		dimension: expectedDimension,
	}, nil
}

// Model returns the configured embedding model name.
func (c *BedrockClient) Model() string {
	return c.model
}

// Dimension returns the expected embedding dimension.
func (c *BedrockClient) Dimension() int {
	return c.dimension
}

// titanRequest is the request format for Titan embedding models.
type titanRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions,omitempty"`
}

// titanResponse is the response format from Titan embedding models.
type titanResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// Embed generates an embedding vector for the given text.
func (c *BedrockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(titanRequest{InputText: text, Dimensions: c.dimension})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	contentType := "application/json"
	out, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.model,
		ContentType: &contentType,
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("invoke model: %w", err)
	}

	var resp titanResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(resp.Embedding) != c.dimension {
		return nil, fmt.Errorf("dimension mismatch: got %d, want %d",
			len(resp.Embedding), c.dimension)
	}
	return resp.Embedding, nil
}

// EmbedBatch generates embeddings for multiple texts. Titan has no batch
// endpoint, so texts are embedded sequentially.
func (c *BedrockClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := c.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}
