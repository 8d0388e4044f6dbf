package pipeline

import "sync"

// State holds the three pipeline-wide control flags: manual pause,
// rate-limit pause, and cancel. One State instance is injected into every
// component so independent pipelines can run side by side in tests.
//
// Scanners block cooperatively while manually paused; the enrichment path
// treats pause/cancel as abort-before-call signals. The rate-limit flag is
// set by throttled provider calls and cleared only by an explicit resume.
type State struct {
	mu          sync.Mutex
	cond        *sync.Cond
	paused      bool
	rateLimited bool
	cancelled   bool
	rateReason  string
}

// NewState builds a State with all flags clear.
func NewState() *State {
	s := &State{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Pause sets the manual-pause flag.
func (s *State) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume clears the manual-pause flag and wakes all blocked scanners.
func (s *State) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	s.cond.Broadcast()
}

// Cancel sets the cancel flag and wakes paused scanners so they can
// observe it.
func (s *State) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.paused = false
	s.mu.Unlock()
	s.cond.Broadcast()
}

// SetRateLimited records a throttling signal with a human-readable reason.
func (s *State) SetRateLimited(reason string) {
	s.mu.Lock()
	s.rateLimited = true
	s.rateReason = reason
	s.mu.Unlock()
}

// ClearRateLimited lifts the rate-limit pause. Returns false when the flag
// was not set.
func (s *State) ClearRateLimited() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.rateLimited
	s.rateLimited = false
	s.rateReason = ""
	return was
}

// ResetForScanBatch clears manual pause and cancel at the start of a newly
// triggered batch. The rate-limit flag survives; only ClearRateLimited
// lifts it.
func (s *State) ResetForScanBatch() {
	s.mu.Lock()
	s.paused = false
	s.cancelled = false
	s.mu.Unlock()
	s.cond.Broadcast()
}

// Paused reports the manual-pause flag.
func (s *State) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// RateLimited reports the rate-limit flag and its reason.
func (s *State) RateLimited() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rateLimited, s.rateReason
}

// Cancelled reports the cancel flag.
func (s *State) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// WaitWhilePaused blocks until the manual-pause flag clears or the batch
// is cancelled. The wait is condition-variable based, not polling.
// Returns false when woken by cancellation.
func (s *State) WaitWhilePaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.paused && !s.cancelled {
		s.cond.Wait()
	}
	return !s.cancelled
}
