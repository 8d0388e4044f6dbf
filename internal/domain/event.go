package domain

// Event types carried on the broadcast channel. Events are transient and
// never persisted.
const (
	EventStatus         = "status"
	EventAPIItem        = "api_item"
	EventSummaryUpdate  = "summary_update"
	EventLocalAnalytics = "local_analytics_update"
)

// Scan lifecycle statuses attached to EventStatus events.
const (
	StatusScanning       = "scanning"
	StatusIdle           = "idle"
	StatusError          = "error"
	StatusScanPaused     = "scan_paused"
	StatusManuallyPaused = "manually_paused"
	StatusRateLimited    = "rate_limit_paused"
)

// Event is one entry on the ordered update channel. Exactly one of the
// optional payloads is set depending on Type.
type Event struct {
	Type string `json:"type"`

	// status events
	Status     string `json:"status,omitempty"`
	Reason     string `json:"reason,omitempty"`
	SourceName string `json:"source_name,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	NextPage   int    `json:"next_page,omitempty"`

	// api_item events
	Item *Item `json:"item,omitempty"`

	// summary_update events
	ID        string `json:"id,omitempty"`
	AISummary string `json:"ai_summary,omitempty"`

	// local_analytics_update fallback events
	EventType string         `json:"eventType,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}
