package pipeline

import "sync"

// DedupGate tracks composite ids already handed to enrichment during this
// process lifetime. There is no eviction: the set grows with the number of
// distinct matched items and is cleared only by process restart. Entries
// are released explicitly when a reserved item aborts before processing so
// a later scan can retry it.
type DedupGate struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDedupGate builds an empty gate.
func NewDedupGate() *DedupGate {
	return &DedupGate{seen: make(map[string]struct{})}
}

// Reserve claims an id. Returns false when the id was already claimed, in
// which case the caller must drop the item.
func (g *DedupGate) Reserve(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.seen[id]; ok {
		return false
	}
	g.seen[id] = struct{}{}
	return true
}

// Release returns a reservation, allowing a future Reserve of the same id.
func (g *DedupGate) Release(id string) {
	g.mu.Lock()
	delete(g.seen, id)
	g.mu.Unlock()
}

// Len reports the number of claimed ids.
func (g *DedupGate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
