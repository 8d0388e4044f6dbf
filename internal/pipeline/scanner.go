package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"FeedWatcher/internal/domain"
	"FeedWatcher/internal/jsonpath"
	"FeedWatcher/internal/pattern"
	"FeedWatcher/internal/ports"
)

// submitFunc hands a matched raw item to the enrichment side. It may
// block briefly (cache lookup, slow-queue admission) but never on work
// scheduled behind the calling scanner.
type submitFunc func(item any, label string, src domain.SourceConfig)

// Scanner drives one paginated source through a bounded scan session. All
// pipeline-wide coordination happens through the shared State and the
// event sink; the scanner never calls the enrichment dispatcher directly.
type Scanner struct {
	fetcher      ports.FeedFetcher
	registry     *pattern.Registry
	state        *State
	events       ports.EventSink
	stats        ports.StatsSink
	submit       submitFunc
	pagesPerScan int
	logger       *slog.Logger
}

// NewScanner wires a scanner. pagesPerScan <= 0 falls back to 10.
func NewScanner(fetcher ports.FeedFetcher, registry *pattern.Registry, state *State, events ports.EventSink, stats ports.StatsSink, submit submitFunc, pagesPerScan int, logger *slog.Logger) *Scanner {
	if pagesPerScan <= 0 {
		pagesPerScan = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		fetcher:      fetcher,
		registry:     registry,
		state:        state,
		events:       events,
		stats:        stats,
		submit:       submit,
		pagesPerScan: pagesPerScan,
		logger:       logger,
	}
}

// Run executes one scan session for src starting at startPage and returns
// the resumption cursor. Within a session page N is fully matched and
// submitted before page N+1 is fetched. The session ends on natural
// termination (empty item list), a fetch/config error, cancellation,
// rate limiting, or the page budget.
func (s *Scanner) Run(ctx context.Context, src domain.SourceConfig, startPage int, sessionID string) domain.ScanCursor {
	if startPage < 1 {
		startPage = 1
	}
	cursor := domain.ScanCursor{SourceName: src.Name, NextPage: startPage}

	s.events.Publish(domain.Event{
		Type:       domain.EventStatus,
		Status:     domain.StatusScanning,
		Reason:     fmt.Sprintf("Starting scan for %s...", src.Name),
		SourceName: src.Name,
		SessionID:  sessionID,
	})
	s.logger.Info("scan session starting", "source", src.Name, "start_page", startPage, "session", sessionID)
	s.stats.Record("scan_started", map[string]any{"sourceName": src.Name, "startPage": startPage})

	if src.APIURL == "" {
		s.events.Publish(domain.Event{
			Type:       domain.EventStatus,
			Status:     domain.StatusError,
			Reason:     fmt.Sprintf("Missing apiUrl in config for %s", src.Name),
			SourceName: src.Name,
			SessionID:  sessionID,
		})
		return cursor
	}

	page := startPage
	for cursor.PagesScanned < s.pagesPerScan {
		if s.state.Cancelled() {
			s.finishCancelled(src, sessionID)
			return cursor
		}
		if s.state.Paused() {
			s.events.Publish(domain.Event{
				Type:       domain.EventStatus,
				Status:     domain.StatusManuallyPaused,
				Reason:     fmt.Sprintf("Scan paused for %s.", src.Name),
				SourceName: src.Name,
				SessionID:  sessionID,
			})
			s.logger.Info("scan waiting on manual pause", "source", src.Name)
			if !s.state.WaitWhilePaused() {
				s.finishCancelled(src, sessionID)
				return cursor
			}
			// Re-check rate limit after resuming; the pause did not
			// consume a page.
			continue
		}
		if limited, _ := s.state.RateLimited(); limited {
			s.logger.Warn("scan halted by rate-limit pause", "source", src.Name, "next_page", page)
			return cursor
		}

		wirePage := page
		if src.PaginationZeroIndexed {
			wirePage = page - 1
		}

		s.events.Publish(domain.Event{
			Type:       domain.EventStatus,
			Status:     domain.StatusScanning,
			Reason:     fmt.Sprintf("Fetching page %d from %s...", page, src.Name),
			SourceName: src.Name,
			SessionID:  sessionID,
		})

		data, err := s.fetcher.FetchPage(ctx, src, wirePage)
		if err != nil {
			s.logger.Error("page fetch failed", "source", src.Name, "page", page, "error", err)
			s.events.Publish(domain.Event{
				Type:       domain.EventStatus,
				Status:     domain.StatusError,
				Reason:     fmt.Sprintf("Failed to fetch data: %v", err),
				SourceName: src.Name,
				SessionID:  sessionID,
			})
			s.stats.Record("scan_error", map[string]any{"sourceName": src.Name, "error": err.Error()})
			return cursor
		}

		items, ok := itemList(data, src.DataRoot)
		if !ok || len(items) == 0 {
			s.logger.Info("no more items", "source", src.Name, "pages_scanned", cursor.PagesScanned)
			s.events.Publish(domain.Event{
				Type:       domain.EventStatus,
				Status:     domain.StatusIdle,
				Reason:     fmt.Sprintf("Scan of %s complete: no more items.", src.Name),
				SourceName: src.Name,
				SessionID:  sessionID,
			})
			s.stats.Record("scan_completed", map[string]any{"sourceName": src.Name, "reason": "no_more_items", "pagesScanned": cursor.PagesScanned})
			return cursor
		}

		for _, item := range items {
			if s.state.Cancelled() {
				s.finishCancelled(src, sessionID)
				return cursor
			}
			if label, matched := s.matchItem(item, src); matched {
				s.submit(item, label, src)
			}
		}

		cursor.PagesScanned++
		page++
		cursor.NextPage = page
	}

	s.logger.Info("scan paused on page budget", "source", src.Name, "next_page", cursor.NextPage)
	s.events.Publish(domain.Event{
		Type:       domain.EventStatus,
		Status:     domain.StatusScanPaused,
		Reason:     fmt.Sprintf("Paused after scanning %d pages.", cursor.PagesScanned),
		SourceName: src.Name,
		SessionID:  sessionID,
		NextPage:   cursor.NextPage,
	})
	s.stats.Record("scan_paused_limit", map[string]any{"sourceName": src.Name, "nextPage": cursor.NextPage})
	return cursor
}

func (s *Scanner) finishCancelled(src domain.SourceConfig, sessionID string) {
	s.logger.Info("scan cancelled", "source", src.Name)
	s.events.Publish(domain.Event{
		Type:       domain.EventStatus,
		Status:     domain.StatusIdle,
		Reason:     fmt.Sprintf("Scan for %s cancelled.", src.Name),
		SourceName: src.Name,
		SessionID:  sessionID,
	})
	s.stats.Record("scan_cancelled", map[string]any{"sourceName": src.Name})
}

// matchItem runs the pattern registry over the concatenation of the
// configured fields.
func (s *Scanner) matchItem(item any, src domain.SourceConfig) (string, bool) {
	var parts []string
	for _, field := range src.FieldsToCheck {
		if text, ok := jsonpath.LookupString(item, field); ok {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return s.registry.Match(strings.Join(parts, " "))
}

// itemList extracts the item array at the configured data root. A missing
// root or a non-list value reads as natural termination.
func itemList(data any, root string) ([]any, bool) {
	value, ok := jsonpath.Lookup(data, root)
	if !ok {
		return nil, false
	}
	list, isList := value.([]any)
	return list, isList
}
