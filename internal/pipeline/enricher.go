package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"FeedWatcher/internal/domain"
	"FeedWatcher/internal/jsonpath"
	"FeedWatcher/internal/ports"
)

// Reserved failure-marker prefixes. A summary beginning with either is a
// non-success result delivered through the normal ai_summary field, which
// keeps the single-field contract backward compatible with viewers.
const (
	errorMarker  = "[Error:"
	statusMarker = "[Status:"
)

// summaryOK reports whether text is a real summary rather than an encoded
// failure or pause marker.
func summaryOK(text string) bool {
	return text != "" && !strings.HasPrefix(text, errorMarker) && !strings.HasPrefix(text, statusMarker)
}

// throttler is satisfied by provider errors that carry a rate-limit
// signal with a human-readable pause reason.
type throttler interface {
	error
	Reason() string
}

// Enricher resolves matched items: cache replay when a prior record holds
// a valid summary, otherwise summarization plus best-effort embedding on
// the slow pool.
type Enricher struct {
	gate       *DedupGate
	state      *State
	store      ports.ContentStore
	summarizer ports.Summarizer
	embedder   ports.Embedder
	events     ports.EventSink
	stats      ports.StatsSink
	slow       *Pool
	logger     *slog.Logger
}

// NewEnricher wires the dispatcher. store, summarizer, and embedder may be
// nil; each absence degrades per the error taxonomy instead of failing.
func NewEnricher(gate *DedupGate, state *State, store ports.ContentStore, summarizer ports.Summarizer, embedder ports.Embedder, events ports.EventSink, stats ports.StatsSink, slow *Pool, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{
		gate:       gate,
		state:      state,
		store:      store,
		summarizer: summarizer,
		embedder:   embedder,
		events:     events,
		stats:      stats,
		slow:       slow,
		logger:     logger,
	}
}

// Process handles one matched raw item, called inline from the scanning
// worker: id derivation, dedup, cache resolution, and the pending event
// are cheap; only the AI calls are deferred to the slow pool.
func (e *Enricher) Process(ctx context.Context, item any, label string, src domain.SourceConfig) {
	rawID, ok := jsonpath.LookupString(item, src.FieldMappings.ID)
	if !ok || rawID == "" {
		e.logger.Warn("item without extractable id skipped", "source", src.Name)
		return
	}
	id := src.Name + "-" + rawID

	if !e.gate.Reserve(id) {
		return
	}

	if e.replayFromCache(ctx, id, label, src) {
		return
	}

	norm := e.normalize(item, id, rawID, label, src)
	e.logger.Info("item matched, queueing for summary", "id", id, "label", label)
	e.stats.Record("item_matched", map[string]any{"sourceName": src.Name, "matchedLabel": label, "itemId": rawID})
	e.events.Publish(domain.Event{Type: domain.EventAPIItem, Item: &norm})

	e.slow.Submit(func() {
		e.generate(norm, label, src)
	})
}

// replayFromCache emits the stored record when it already carries a valid
// summary, avoiding a second provider call for re-scanned items.
func (e *Enricher) replayFromCache(ctx context.Context, id, label string, src domain.SourceConfig) bool {
	if e.store == nil {
		return false
	}
	rec, found, err := e.store.Get(ctx, id)
	if err != nil {
		e.logger.Error("cache lookup failed", "id", id, "error", err)
		return false
	}
	if !found || !summaryOK(rec.AISummary) {
		return false
	}

	e.logger.Info("replaying cached summary", "id", id)
	item := domain.Item{
		ID:           id,
		SourceName:   src.Name,
		By:           rec.By,
		Time:         rec.Time.Unix(),
		Title:        rec.Title,
		URL:          rec.URL,
		Text:         rec.Text,
		MatchedLabel: label,
		ProcessedAt:  time.Now().UTC().Format(time.RFC3339),
		Status:       domain.SummaryComplete,
	}
	e.events.Publish(domain.Event{Type: domain.EventAPIItem, Item: &item})
	e.events.Publish(domain.Event{Type: domain.EventSummaryUpdate, ID: id, AISummary: rec.AISummary})
	return true
}

// normalize maps the raw provider item into the pipeline shape.
func (e *Enricher) normalize(item any, id, rawID, label string, src domain.SourceConfig) domain.Item {
	m := src.FieldMappings
	title, _ := jsonpath.LookupString(item, m.Title)
	url, _ := jsonpath.LookupString(item, m.URL)
	by, _ := jsonpath.LookupString(item, m.By)
	text, _ := jsonpath.LookupString(item, m.Text)

	// Hacker News items often carry no url field; link to the discussion.
	if url == "" && strings.Contains(src.Name, "Hacker News") {
		url = "https://news.ycombinator.com/item?id=" + rawID
	}

	var unix int64
	if raw, ok := jsonpath.LookupString(item, m.Time); ok {
		parsed, parsedOK := parseItemTime(raw)
		if !parsedOK {
			e.logger.Warn("could not parse timestamp", "id", id, "value", raw)
		}
		unix = parsed
	}

	return domain.Item{
		ID:           id,
		SourceName:   src.Name,
		By:           by,
		Time:         unix,
		Title:        title,
		URL:          url,
		Text:         stripHTML(text),
		MatchedLabel: label,
		ProcessedAt:  time.Now().UTC().Format(time.RFC3339),
		Status:       domain.SummaryPending,
	}
}

// generate runs on the slow pool and always terminates the pending card
// with a summary_update, except when pause/cancel aborts the attempt
// before any call is made.
func (e *Enricher) generate(item domain.Item, label string, src domain.SourceConfig) {
	if e.state.Paused() || e.state.Cancelled() {
		e.logger.Info("summary generation halted by pause/cancel", "id", item.ID)
		e.gate.Release(item.ID)
		return
	}

	summary := e.summarize(item, label, src)
	success := summaryOK(summary)

	details := map[string]any{"sourceName": src.Name, "itemId": item.ID, "success": success}
	if !success {
		details["error"] = summary
	}
	e.stats.Record("summary_generated", details)

	if success && e.store != nil {
		e.persist(item, label, summary)
	}

	e.events.Publish(domain.Event{Type: domain.EventSummaryUpdate, ID: item.ID, AISummary: summary})
}

func (e *Enricher) summarize(item domain.Item, label string, src domain.SourceConfig) string {
	if limited, _ := e.state.RateLimited(); limited {
		e.logger.Warn("summary request blocked by rate-limit pause", "id", item.ID)
		return statusMarker + " Paused due to rate limit. Request not sent.]"
	}
	if e.summarizer == nil {
		return errorMarker + " summary client not configured]"
	}

	prompt := fmt.Sprintf("## Matched Keyword\n`%s`\n\n## API Content to Analyze (from %s)\n\nTitle: %s\n\nContent:\n%s",
		label, src.Name, item.Title, item.Text)

	text, err := e.summarizer.Summarize(context.Background(), prompt)
	if err == nil {
		return text
	}

	var throttle throttler
	if errors.As(err, &throttle) {
		e.logger.Warn("rate limit exceeded, pausing all summary requests", "id", item.ID, "error", err)
		reason := throttle.Reason()
		e.state.SetRateLimited(reason)
		e.events.Publish(domain.Event{
			Type:   domain.EventStatus,
			Status: domain.StatusRateLimited,
			Reason: reason,
		})
		return fmt.Sprintf("%s Paused due to rate limit: %v]", errorMarker, err)
	}

	e.logger.Error("summary call failed", "id", item.ID, "error", err)
	return fmt.Sprintf("%s calling LLM failed: %v]", errorMarker, err)
}

// persist embeds best-effort and upserts the content record. A missing
// embedding never fails the record.
func (e *Enricher) persist(item domain.Item, label, summary string) {
	rec := domain.ContentRecord{
		ID:         item.ID,
		SourceName: item.SourceName,
		By:         item.By,
		Time:       time.Unix(item.Time, 0).UTC(),
		Title:      item.Title,
		URL:        item.URL,
		Text:       item.Text,
		Label:      label,
		AISummary:  summary,
	}

	if e.embedder != nil {
		toEmbed := fmt.Sprintf("Title: %s\nSummary: %s", item.Title, summary)
		vector, err := e.embedder.Embed(context.Background(), toEmbed)
		if err != nil {
			e.logger.Warn("embedding skipped", "id", item.ID, "error", err)
		} else {
			rec.Embedding = vector
		}
	}

	if err := e.store.Upsert(context.Background(), rec); err != nil {
		e.logger.Error("failed to store content record", "id", item.ID, "error", err)
		return
	}
	e.logger.Info("content record stored", "id", item.ID)
}

// stripHTML renders an HTML fragment as plain text; forum and issue
// bodies routinely arrive with markup. Non-HTML text passes through.
func stripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}
