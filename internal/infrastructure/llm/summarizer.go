// Package llm contains HTTP clients for the chat-summary and embedding
// providers.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"FeedWatcher/internal/config"
	"FeedWatcher/internal/ports"
)

var waitExpr = regexp.MustCompile(`try again in ([\d\.]+) seconds`)

// ThrottleError marks a provider rate-limit response. The pipeline
// escalates it to the global rate-limit flag instead of treating it as an
// item-level failure.
type ThrottleError struct {
	Message     string
	WaitSeconds string
}

func (e *ThrottleError) Error() string {
	return e.Message
}

// Reason renders the human-readable pause reason, including the suggested
// wait time when the provider supplied one.
func (e *ThrottleError) Reason() string {
	if e.WaitSeconds != "" {
		return fmt.Sprintf("Rate limit exceeded. The API suggests waiting %s seconds. Please wait and then resume.", e.WaitSeconds)
	}
	return "Rate limit exceeded. Please wait a moment before resuming."
}

// classifyError inspects a provider failure for a throttling signal.
func classifyError(status int, body string) error {
	lower := strings.ToLower(body)
	if status == http.StatusTooManyRequests || strings.Contains(lower, "rate limit") {
		err := &ThrottleError{Message: strings.TrimSpace(body)}
		if m := waitExpr.FindStringSubmatch(lower); m != nil {
			err.WaitSeconds = m[1]
		}
		return err
	}
	return fmt.Errorf("chat provider error (%d): %s", status, strings.TrimSpace(body))
}

// SummaryClient implements ports.Summarizer against an OpenAI-compatible
// chat completions endpoint.
type SummaryClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.Summarizer = (*SummaryClient)(nil)

// NewSummaryClient builds a client from configuration.
func NewSummaryClient(cfg config.ChatConfig) *SummaryClient {
	return &SummaryClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient:   &http.Client{Timeout: cfg.Timeout()},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Summarize posts the prompt and returns the model's reply text.
func (c *SummaryClient) Summarize(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("chat client misconfigured")
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return "", classifyError(resp.StatusCode, string(raw))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if parsed.Error != nil {
		return "", classifyError(resp.StatusCode, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
