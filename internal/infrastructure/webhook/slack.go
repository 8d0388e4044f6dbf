// Package webhook delivers matched items to Slack incoming webhooks.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"FeedWatcher/internal/domain"
	"FeedWatcher/internal/ports"
)

// SlackNotifier posts Block Kit messages to an incoming webhook URL.
type SlackNotifier struct {
	client *http.Client
}

var _ ports.Notifier = (*SlackNotifier)(nil)

// NewSlackNotifier builds a notifier with a bounded request timeout.
func NewSlackNotifier() *SlackNotifier {
	return &SlackNotifier{
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Notify sends one item card. Slack replies with a non-JSON body ("ok"),
// so only the status code is checked.
func (n *SlackNotifier) Notify(ctx context.Context, webhookURL string, item domain.Item, summary string) error {
	if webhookURL == "" {
		return fmt.Errorf("webhook url is not configured")
	}

	payload := buildBlocks(item, summary)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("slack webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}

func buildBlocks(item domain.Item, summary string) map[string]any {
	title := item.Title
	if title == "" {
		title = item.ID
	}

	fields := []map[string]any{
		{"type": "mrkdwn", "text": fmt.Sprintf("*Source:*\n%s", item.SourceName)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Matched:*\n`%s`", item.MatchedLabel)},
	}
	if item.By != "" {
		fields = append(fields, map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Author:*\n%s", item.By)})
	}

	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{"type": "plain_text", "text": truncate(title, 150), "emoji": true},
		},
		{"type": "section", "fields": fields},
	}
	if summary != "" {
		blocks = append(blocks, map[string]any{
			"type": "section",
			"text": map[string]any{"type": "mrkdwn", "text": truncate(summary, 2900)},
		})
	}
	if item.URL != "" {
		blocks = append(blocks, map[string]any{
			"type": "section",
			"text": map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("<%s|View original>", item.URL)},
		})
	}

	return map[string]any{
		"text":   fmt.Sprintf("Match in %s: %s", item.SourceName, title),
		"blocks": blocks,
	}
}

// truncate keeps the payload inside Slack block size limits.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
