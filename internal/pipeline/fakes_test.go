package pipeline

import (
	"context"
	"sync"
	"time"

	"FeedWatcher/internal/domain"
)

type memEvents struct {
	mu     sync.Mutex
	events []domain.Event
}

func (m *memEvents) Publish(event domain.Event) {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
}

func (m *memEvents) all() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *memEvents) byType(eventType string) []domain.Event {
	var out []domain.Event
	for _, event := range m.all() {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

func (m *memEvents) last() (domain.Event, bool) {
	all := m.all()
	if len(all) == 0 {
		return domain.Event{}, false
	}
	return all[len(all)-1], true
}

type statRecord struct {
	eventType string
	details   map[string]any
}

type memStats struct {
	mu      sync.Mutex
	records []statRecord
}

func (m *memStats) Record(eventType string, details map[string]any) {
	m.mu.Lock()
	m.records = append(m.records, statRecord{eventType: eventType, details: details})
	m.mu.Unlock()
}

func (m *memStats) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec.eventType)
	}
	return out
}

type fetchFunc func(ctx context.Context, src domain.SourceConfig, page int) (any, error)

func (f fetchFunc) FetchPage(ctx context.Context, src domain.SourceConfig, page int) (any, error) {
	return f(ctx, src, page)
}

type memStore struct {
	mu      sync.Mutex
	records map[string]domain.ContentRecord
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]domain.ContentRecord)}
}

func (m *memStore) Get(_ context.Context, id string) (domain.ContentRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	return rec, ok, nil
}

func (m *memStore) Upsert(_ context.Context, rec domain.ContentRecord) error {
	m.mu.Lock()
	m.records[rec.ID] = rec
	m.mu.Unlock()
	return nil
}

type fakeSummarizer struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	text    string
	err     error
}

func (f *fakeSummarizer) Summarize(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeSummarizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeEmbedder struct {
	vector []float64
	err    error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

// throttleErr mimics a provider rate-limit error without importing the
// llm package.
type throttleErr struct{ reason string }

func (e *throttleErr) Error() string  { return "429: rate limit reached" }
func (e *throttleErr) Reason() string { return e.reason }

// waitFor polls cond until it holds or the deadline passes.
func waitFor(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
