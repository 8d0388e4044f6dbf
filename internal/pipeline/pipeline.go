// Package pipeline implements the scan orchestration and enrichment core:
// two bounded worker pools coordinated through shared pause/cancel/rate-
// limit flags, a session dedup gate, and a single ordered event channel.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"FeedWatcher/internal/domain"
	"FeedWatcher/internal/pattern"
	"FeedWatcher/internal/ports"
)

// Deps wires all collaborators into the pipeline.
type Deps struct {
	Fetcher    ports.FeedFetcher
	Patterns   *pattern.Registry
	Sources    *SourceRegistry
	Store      ports.ContentStore
	Summarizer ports.Summarizer
	Embedder   ports.Embedder
	Events     ports.EventSink
	Stats      ports.StatsSink
	Logger     *slog.Logger

	PagesPerScan int
	FastWorkers  int
	AIWorkers    int
	QueueSize    int
}

// Pipeline owns the long-lived fast and slow pools and exposes the scan
// trigger and control operations. Pools are shared process-wide, not
// recreated per scan.
type Pipeline struct {
	state    *State
	gate     *DedupGate
	sources  *SourceRegistry
	scanner  *Scanner
	enricher *Enricher
	events   ports.EventSink
	fast     *Pool
	slow     *Pool
	logger   *slog.Logger
}

// New assembles the pipeline from its dependencies.
func New(deps Deps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	state := NewState()
	gate := NewDedupGate()
	fast := NewPool(deps.FastWorkers, deps.QueueSize)
	slow := NewPool(deps.AIWorkers, deps.QueueSize)

	enricher := NewEnricher(gate, state, deps.Store, deps.Summarizer, deps.Embedder,
		deps.Events, deps.Stats, slow, logger.With("component", "enricher"))

	// Matched items run the fast phase inline on the scanner's worker:
	// id derivation, dedup, cache lookup, and the pending event are
	// cheap, and the AI call is already deferred to the slow pool.
	// Re-submitting to the fast pool would let a scanner fill the queue
	// with its own work and deadlock once every worker holds a session.
	submit := func(item any, label string, src domain.SourceConfig) {
		enricher.Process(context.Background(), item, label, src)
	}

	scanner := NewScanner(deps.Fetcher, deps.Patterns, state, deps.Events, deps.Stats,
		submit, deps.PagesPerScan, logger.With("component", "scanner"))

	return &Pipeline{
		state:    state,
		gate:     gate,
		sources:  deps.Sources,
		scanner:  scanner,
		enricher: enricher,
		events:   deps.Events,
		fast:     fast,
		slow:     slow,
		logger:   logger,
	}
}

// ScanSource starts one asynchronous scan session. Starting a batch
// clears manual pause and cancel; the rate-limit flag survives until an
// explicit ResumeOperations.
func (p *Pipeline) ScanSource(name string, startPage int) (string, error) {
	src, ok := p.sources.Get(name)
	if !ok {
		return "", fmt.Errorf("source %q not found", name)
	}

	p.state.ResetForScanBatch()
	sessionID := ulid.Make().String()
	p.fast.Submit(func() {
		p.scanner.Run(context.Background(), src, startPage, sessionID)
	})
	return sessionID, nil
}

// ScanAll starts one session per requested source, all from page 1, and
// returns the number of scans initiated.
func (p *Pipeline) ScanAll(names []string) (int, error) {
	var selected []domain.SourceConfig
	for _, name := range names {
		if src, ok := p.sources.Get(name); ok {
			selected = append(selected, src)
		}
	}
	if len(selected) == 0 {
		return 0, fmt.Errorf("none of the requested sources are configured")
	}

	p.state.ResetForScanBatch()
	for _, src := range selected {
		src := src
		sessionID := ulid.Make().String()
		p.fast.Submit(func() {
			p.scanner.Run(context.Background(), src, 1, sessionID)
		})
	}
	p.logger.Info("parallel scan initiated", "sources", len(selected))
	return len(selected), nil
}

// Pause sets the manual pause observed by scanners and the enricher.
func (p *Pipeline) Pause() {
	p.state.Pause()
	p.logger.Info("scan manually paused")
}

// Resume clears the manual pause.
func (p *Pipeline) Resume() {
	p.state.Resume()
	p.logger.Info("scan manually resumed")
}

// Cancel stops in-progress scanners at their next checkpoint and makes
// queued enrichment submissions self-abort.
func (p *Pipeline) Cancel() {
	p.state.Cancel()
	p.logger.Info("scan cancellation signal sent")
}

// ResumeOperations lifts the rate-limit pause. Returns false when the
// flag was not set.
func (p *Pipeline) ResumeOperations() bool {
	if !p.state.ClearRateLimited() {
		return false
	}
	p.logger.Info("rate limit flag cleared, resuming operations")
	p.events.Publish(domain.Event{
		Type:   domain.EventStatus,
		Status: domain.StatusIdle,
		Reason: "Operations resumed by user.",
	})
	return true
}

// RateLimited reports the rate-limit flag and its reason.
func (p *Pipeline) RateLimited() (bool, string) {
	return p.state.RateLimited()
}

// Close drains both pools. Intended for shutdown and tests.
func (p *Pipeline) Close() {
	p.fast.Close()
	p.slow.Close()
}
