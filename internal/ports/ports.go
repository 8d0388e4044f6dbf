package ports

import (
	"context"

	"FeedWatcher/internal/domain"
)

// FeedFetcher retrieves one page of a paginated JSON source.
type FeedFetcher interface {
	FetchPage(ctx context.Context, src domain.SourceConfig, page int) (any, error)
}

// Summarizer produces a free-text summary for a prompt or fails. A
// *llm.ThrottleError failure signals provider rate limiting and escalates
// to the global rate-limit flag.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Embedder turns text into a fixed-length vector. An empty result is
// never fatal to the enrichment outcome.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// ContentStore caches enriched records keyed by composite id. Upserts are
// idempotent; concurrent writers to the same id resolve last-writer-wins.
type ContentStore interface {
	Get(ctx context.Context, id string) (domain.ContentRecord, bool, error)
	Upsert(ctx context.Context, rec domain.ContentRecord) error
}

// StatsSink records coarse counters per pipeline event. Implementations
// must be best-effort and never block or fail the pipeline.
type StatsSink interface {
	Record(eventType string, details map[string]any)
}

// EventSink receives every pipeline event in append order.
type EventSink interface {
	Publish(event domain.Event)
}

// Notifier delivers a fully formed record to an outbound channel.
type Notifier interface {
	Notify(ctx context.Context, webhookURL string, item domain.Item, summary string) error
}
