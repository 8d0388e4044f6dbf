// Package pattern holds the hot-swappable set of match rules applied to
// every scanned item.
package pattern

import (
	"log/slog"
	"regexp"
	"sync"

	"FeedWatcher/internal/domain"
)

// Rule is one compiled matcher. Label doubles as the matched_label carried
// on every downstream item.
type Rule struct {
	Label   string
	Pattern *regexp.Regexp
}

// Registry stores the active rule set. Replace swaps the whole set
// atomically; readers take a point-in-time snapshot so an in-flight scan
// never observes a half-updated registry.
type Registry struct {
	mu     sync.RWMutex
	rules  []Rule
	logger *slog.Logger
}

// NewRegistry builds an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Replace compiles and installs a new rule set, returning the number of
// rules accepted. A rule with a missing label or an invalid expression is
// logged and skipped; it never aborts installation of the remaining rules.
// Registry order is the order of the incoming list.
func (r *Registry) Replace(configs []domain.PatternConfig) int {
	compiled := make([]Rule, 0, len(configs))
	for _, cfg := range configs {
		if cfg.Label == "" {
			r.logger.Error("skipping pattern with empty label", "pattern", cfg.Pattern)
			continue
		}
		re, err := regexp.Compile(cfg.Pattern)
		if err != nil {
			r.logger.Error("skipping invalid pattern", "label", cfg.Label, "error", err)
			continue
		}
		compiled = append(compiled, Rule{Label: cfg.Label, Pattern: re})
	}

	r.mu.Lock()
	r.rules = compiled
	r.mu.Unlock()

	r.logger.Info("search patterns updated", "count", len(compiled))
	return len(compiled)
}

// Match returns the label of the first rule, in registry order, whose
// pattern matches text. Matching runs against a snapshot so the lock is
// never held during regexp evaluation.
func (r *Registry) Match(text string) (string, bool) {
	for _, rule := range r.Snapshot() {
		if rule.Pattern.MatchString(text) {
			return rule.Label, true
		}
	}
	return "", false
}

// Snapshot returns the current rule set as an independent slice.
func (r *Registry) Snapshot() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Configs reports the active rules in their raw form, for the control API.
func (r *Registry) Configs() []domain.PatternConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.PatternConfig, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, domain.PatternConfig{Label: rule.Label, Pattern: rule.Pattern.String()})
	}
	return out
}
