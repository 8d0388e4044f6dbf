package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"FeedWatcher/internal/config"
	"FeedWatcher/internal/ports"
)

// EmbeddingClient implements ports.Embedder against an OpenAI-compatible
// embeddings endpoint.
type EmbeddingClient struct {
	endpoint   string
	model      string
	apiKey     string
	dimensions int
	httpClient *http.Client
}

var _ ports.Embedder = (*EmbeddingClient)(nil)

// NewEmbeddingClient builds a reusable client from configuration.
func NewEmbeddingClient(cfg config.EmbeddingConfig) *EmbeddingClient {
	return &EmbeddingClient{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		dimensions: cfg.Dimensions,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
	}
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the vector for text, or an error the caller treats as a
// missing embedding rather than a failed enrichment.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float64, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return nil, fmt.Errorf("embedding client misconfigured")
	}

	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding provider returned %s", resp.Status)
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embedding response is empty")
	}

	vector := parsed.Data[0].Embedding
	if c.dimensions > 0 && len(vector) != c.dimensions {
		return nil, fmt.Errorf("embedding has %d dimensions, want %d", len(vector), c.dimensions)
	}
	return vector, nil
}
