package pipeline

import (
	"sync"

	"FeedWatcher/internal/domain"
)

// SourceRegistry holds the configured sources, keyed by name. Like the
// pattern registry, the whole set is replaced atomically on update.
type SourceRegistry struct {
	mu      sync.RWMutex
	ordered []domain.SourceConfig
}

// NewSourceRegistry builds an empty registry.
func NewSourceRegistry() *SourceRegistry {
	return &SourceRegistry{}
}

// Replace installs a new source list, dropping entries without a name.
// Returns the number of sources accepted.
func (r *SourceRegistry) Replace(sources []domain.SourceConfig) int {
	accepted := make([]domain.SourceConfig, 0, len(sources))
	for _, src := range sources {
		if src.Name == "" {
			continue
		}
		accepted = append(accepted, src)
	}

	r.mu.Lock()
	r.ordered = accepted
	r.mu.Unlock()
	return len(accepted)
}

// Get resolves one source by name.
func (r *SourceRegistry) Get(name string) (domain.SourceConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, src := range r.ordered {
		if src.Name == name {
			return src, true
		}
	}
	return domain.SourceConfig{}, false
}

// List returns the configured sources in registry order.
func (r *SourceRegistry) List() []domain.SourceConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.SourceConfig, len(r.ordered))
	copy(out, r.ordered)
	return out
}
