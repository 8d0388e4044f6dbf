// Package feedapi fetches pages from configured JSON sources.
package feedapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"FeedWatcher/internal/domain"
	"FeedWatcher/internal/ports"
)

// pageToken is the placeholder substituted into every source URL template.
const pageToken = "{PAGE}"

const userAgent = "FeedWatcher/1.0"

// Client fetches and decodes one page of a paginated source. Non-2xx
// responses and non-JSON bodies are scan-ending errors for the caller.
type Client struct {
	httpClient  *http.Client
	githubToken string
}

var _ ports.FeedFetcher = (*Client)(nil)

// NewClient wires an HTTP client; a nil client gets a 20s timeout default.
func NewClient(httpClient *http.Client, githubToken string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{httpClient: httpClient, githubToken: githubToken}
}

// BuildPageURL substitutes the page number into the source URL template.
func BuildPageURL(template string, page int) (string, error) {
	if template == "" {
		return "", fmt.Errorf("source has no apiUrl")
	}
	if !strings.Contains(template, pageToken) {
		return "", fmt.Errorf("apiUrl %q has no %s placeholder", template, pageToken)
	}
	return strings.ReplaceAll(template, pageToken, strconv.Itoa(page)), nil
}

// FetchPage retrieves the given page and decodes the JSON body. The page
// argument is the wire page number; zero-index adjustment happens in the
// scanner before calling.
func (c *Client) FetchPage(ctx context.Context, src domain.SourceConfig, page int) (any, error) {
	pageURL, err := BuildPageURL(src.APIURL, page)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if strings.Contains(pageURL, "api.github.com") {
		req.Header.Set("Accept", "application/vnd.github.v3+json")
		if c.githubToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.githubToken)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("source %s returned %s", src.Name, resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse response from %s: %w", src.Name, err)
	}
	return data, nil
}
