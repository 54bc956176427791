// Package embedding wraps Google's Gemini embedding API behind a small
// interface so the Semantic Retriever never depends on genai directly.
// Grounded on internal/embedding/genai.go.
package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"hearth/internal/logging"
)

// Dimensions is the embedding width this module standardizes on, matching
// the sqlite-vec index's fixed column width.
const Dimensions = 768

// Client embeds text into vectors for semantic search.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// GenAIClient embeds text via the Gemini embedding API.
type GenAIClient struct {
	client *genai.Client
	model  string
}

// NewGenAIClient builds a GenAIClient. model defaults to
// "gemini-embedding-001" when empty.
func NewGenAIClient(ctx context.Context, apiKey, model string) (*GenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embedding: API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("embedding: create genai client: %w", err)
	}

	return &GenAIClient{client: client, model: model}, nil
}

func outputDim(d int) *int32 {
	v := int32(d)
	return &v
}

// Embed generates an embedding vector for a single text.
func (c *GenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	log := logging.Get(logging.CategoryRetrieval)

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	result, err := c.client.Models.EmbedContent(ctx, c.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: outputDim(Dimensions),
	})
	if err != nil {
		log.Warn("embed: API call failed: %v", err)
		return nil, fmt.Errorf("embedding: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("embedding: no embeddings returned")
	}
	return result.Embeddings[0].Values, nil
}

// Dimensions returns this client's embedding width.
func (c *GenAIClient) Dimensions() int { return Dimensions }
