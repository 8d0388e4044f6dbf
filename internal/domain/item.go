package domain

import "time"

// SummaryStatus tracks an item's position in the enrichment flow.
type SummaryStatus string

const (
	SummaryPending  SummaryStatus = "pending"
	SummaryComplete SummaryStatus = "complete"
)

// Item is a feed entry normalized from a provider-specific payload.
// ID is the composite key <source-name>-<provider-id> used for both the
// content cache and session deduplication.
type Item struct {
	ID           string        `json:"id"`
	SourceName   string        `json:"source_name"`
	By           string        `json:"by"`
	Time         int64         `json:"time"`
	Title        string        `json:"title"`
	URL          string        `json:"url"`
	Text         string        `json:"text"`
	MatchedLabel string        `json:"matched_label"`
	ProcessedAt  string        `json:"processed_at"`
	Status       SummaryStatus `json:"summary_status"`
}

// ContentRecord is the persisted superset of Item plus its enrichment
// result. Upserts by ID are idempotent: reprocessing overwrites.
type ContentRecord struct {
	ID         string
	SourceName string
	By         string
	Time       time.Time
	Title      string
	URL        string
	Text       string
	Label      string
	AISummary  string
	Embedding  []float64
	UpdatedAt  time.Time
}

// ScanCursor is the resumption token handed back when a scan session ends
// before natural termination. Not persisted; replay NextPage as start_page
// of a fresh scan for the same source.
type ScanCursor struct {
	SourceName   string `json:"source_name"`
	NextPage     int    `json:"next_page"`
	PagesScanned int    `json:"pages_scanned"`
}
