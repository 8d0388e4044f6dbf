package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"FeedWatcher/internal/domain"
	"FeedWatcher/internal/pattern"
)

func testSource() domain.SourceConfig {
	return domain.SourceConfig{
		Name:     "Test Feed",
		APIURL:   "https://example.test/search?page={PAGE}",
		DataRoot: "hits",
		FieldMappings: domain.FieldMappings{
			ID:    "objectID",
			Title: "title",
		},
		FieldsToCheck: []string{"title"},
	}
}

func testRegistry(t *testing.T) *pattern.Registry {
	t.Helper()
	registry := pattern.NewRegistry(slog.Default())
	registry.Replace([]domain.PatternConfig{{Label: "MongoDB", Pattern: "(?i)mongodb"}})
	return registry
}

type submission struct {
	item  any
	label string
}

type submitRecorder struct {
	mu   sync.Mutex
	subs []submission
}

func (r *submitRecorder) submit(item any, label string, _ domain.SourceConfig) {
	r.mu.Lock()
	r.subs = append(r.subs, submission{item: item, label: label})
	r.mu.Unlock()
}

func (r *submitRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

func page(titles ...string) map[string]any {
	hits := make([]any, 0, len(titles))
	for i, title := range titles {
		hits = append(hits, map[string]any{"objectID": fmt.Sprintf("%d", i+1), "title": title})
	}
	return map[string]any{"hits": hits}
}

func TestScannerStopsWhenSourceRunsDry(t *testing.T) {
	events := &memEvents{}
	stats := &memStats{}
	rec := &submitRecorder{}

	fetcher := fetchFunc(func(_ context.Context, _ domain.SourceConfig, p int) (any, error) {
		if p == 1 {
			return page("MongoDB aggregation question", "unrelated post"), nil
		}
		return page(), nil
	})

	s := NewScanner(fetcher, testRegistry(t), NewState(), events, stats, rec.submit, 10, nil)
	cursor := s.Run(context.Background(), testSource(), 1, "sess-1")

	if cursor.PagesScanned != 1 {
		t.Fatalf("pages scanned = %d, want 1", cursor.PagesScanned)
	}
	if rec.count() != 1 {
		t.Fatalf("submissions = %d, want 1", rec.count())
	}

	last, ok := events.last()
	if !ok || last.Status != domain.StatusIdle {
		t.Fatalf("last event = %+v, want idle completion", last)
	}
	if last.Reason != "Scan of Test Feed complete: no more items." {
		t.Errorf("completion reason = %q", last.Reason)
	}
}

func TestScannerPausesOnPageBudget(t *testing.T) {
	events := &memEvents{}
	rec := &submitRecorder{}

	var fetched []int
	fetcher := fetchFunc(func(_ context.Context, _ domain.SourceConfig, p int) (any, error) {
		fetched = append(fetched, p)
		return page("mongodb again"), nil
	})

	s := NewScanner(fetcher, testRegistry(t), NewState(), events, &memStats{}, rec.submit, 3, nil)
	cursor := s.Run(context.Background(), testSource(), 5, "sess-2")

	if len(fetched) != 3 {
		t.Fatalf("fetched %d pages, want 3", len(fetched))
	}
	if cursor.NextPage != 8 {
		t.Fatalf("next page = %d, want 8", cursor.NextPage)
	}

	last, _ := events.last()
	if last.Status != domain.StatusScanPaused {
		t.Fatalf("last status = %q, want %q", last.Status, domain.StatusScanPaused)
	}
	if last.NextPage != 8 {
		t.Errorf("event next_page = %d, want 8", last.NextPage)
	}
}

func TestScannerZeroIndexedPagination(t *testing.T) {
	var fetched []int
	fetcher := fetchFunc(func(_ context.Context, _ domain.SourceConfig, p int) (any, error) {
		fetched = append(fetched, p)
		return page(), nil
	})

	src := testSource()
	src.PaginationZeroIndexed = true

	s := NewScanner(fetcher, testRegistry(t), NewState(), &memEvents{}, &memStats{}, (&submitRecorder{}).submit, 10, nil)
	s.Run(context.Background(), src, 1, "sess-3")

	if len(fetched) != 1 || fetched[0] != 0 {
		t.Fatalf("wire pages = %v, want [0]", fetched)
	}
}

func TestScannerCancelledBeforeStart(t *testing.T) {
	events := &memEvents{}
	state := NewState()
	state.Cancel()

	calls := 0
	fetcher := fetchFunc(func(context.Context, domain.SourceConfig, int) (any, error) {
		calls++
		return page(), nil
	})

	s := NewScanner(fetcher, testRegistry(t), state, events, &memStats{}, (&submitRecorder{}).submit, 10, nil)
	s.Run(context.Background(), testSource(), 1, "sess-4")

	if calls != 0 {
		t.Fatalf("fetch calls = %d, want 0", calls)
	}
	last, _ := events.last()
	if last.Status != domain.StatusIdle || last.Reason != "Scan for Test Feed cancelled." {
		t.Fatalf("last event = %+v, want cancellation idle", last)
	}
}

func TestScannerHaltsSilentlyWhenRateLimited(t *testing.T) {
	events := &memEvents{}
	state := NewState()
	state.SetRateLimited("throttled")

	calls := 0
	fetcher := fetchFunc(func(context.Context, domain.SourceConfig, int) (any, error) {
		calls++
		return page(), nil
	})

	s := NewScanner(fetcher, testRegistry(t), state, events, &memStats{}, (&submitRecorder{}).submit, 10, nil)
	cursor := s.Run(context.Background(), testSource(), 4, "sess-5")

	if calls != 0 {
		t.Fatalf("fetch calls = %d, want 0", calls)
	}
	if cursor.NextPage != 4 {
		t.Fatalf("cursor next page = %d, want 4 for later resumption", cursor.NextPage)
	}
	// Only the session-start event; no terminal status overwrites the
	// rate-limit banner viewers already have.
	last, _ := events.last()
	if last.Status != domain.StatusScanning {
		t.Fatalf("last status = %q, want the start event only", last.Status)
	}
}

func TestScannerReportsFetchFailure(t *testing.T) {
	events := &memEvents{}
	stats := &memStats{}

	fetcher := fetchFunc(func(context.Context, domain.SourceConfig, int) (any, error) {
		return nil, fmt.Errorf("status 500")
	})

	s := NewScanner(fetcher, testRegistry(t), NewState(), events, stats, (&submitRecorder{}).submit, 10, nil)
	s.Run(context.Background(), testSource(), 1, "sess-6")

	last, _ := events.last()
	if last.Status != domain.StatusError {
		t.Fatalf("last status = %q, want error", last.Status)
	}
	found := false
	for _, eventType := range stats.types() {
		if eventType == "scan_error" {
			found = true
		}
	}
	if !found {
		t.Errorf("scan_error stat not recorded, got %v", stats.types())
	}
}

func TestScannerMissingAPIURL(t *testing.T) {
	events := &memEvents{}
	src := testSource()
	src.APIURL = ""

	s := NewScanner(fetchFunc(func(context.Context, domain.SourceConfig, int) (any, error) {
		t.Fatal("fetch must not be called")
		return nil, nil
	}), testRegistry(t), NewState(), events, &memStats{}, (&submitRecorder{}).submit, 10, nil)
	s.Run(context.Background(), src, 1, "sess-7")

	last, _ := events.last()
	if last.Status != domain.StatusError || last.Reason != "Missing apiUrl in config for Test Feed" {
		t.Fatalf("last event = %+v, want config error", last)
	}
}

func TestScannerResumesAfterManualPause(t *testing.T) {
	state := NewState()
	events := &memEvents{}

	fetches := 0
	fetcher := fetchFunc(func(_ context.Context, _ domain.SourceConfig, p int) (any, error) {
		fetches++
		if fetches == 1 {
			// Pause takes effect at the next loop checkpoint.
			state.Pause()
			return page("mongodb"), nil
		}
		return page(), nil
	})

	s := NewScanner(fetcher, testRegistry(t), state, events, &memStats{}, (&submitRecorder{}).submit, 10, nil)

	done := make(chan domain.ScanCursor, 1)
	go func() {
		done <- s.Run(context.Background(), testSource(), 1, "sess-8")
	}()

	pauseSeen := func() bool {
		for _, event := range events.all() {
			if event.Status == domain.StatusManuallyPaused {
				return true
			}
		}
		return false
	}
	if !waitFor(pauseSeen, 2*time.Second) {
		t.Fatal("scanner never reported manual pause")
	}
	state.Resume()

	cursor := <-done
	// Page 1 was consumed before the pause; the empty page 2 after resume
	// ends the session without counting.
	if cursor.PagesScanned != 1 || cursor.NextPage != 2 {
		t.Fatalf("cursor = %+v, want pages_scanned 1 next_page 2", cursor)
	}
	if fetches != 2 {
		t.Fatalf("fetches = %d, want 2 (pause consumes no fetch)", fetches)
	}
}
