// Package events carries status and item updates from the pipeline to all
// connected viewers.
package events

import (
	"sync"

	"FeedWatcher/internal/domain"
)

// DefaultBuffer is the per-subscriber queue depth before events are dropped.
const DefaultBuffer = 256

// SubscriberStats counts delivery outcomes. Dropped growing during normal
// operation means viewers cannot keep up with the event rate and the
// buffer should be raised.
type SubscriberStats struct {
	Sent    uint64
	Dropped uint64
}

type subscriber struct {
	ch    chan domain.Event
	stats SubscriberStats
}

// Bus is a multi-producer broadcast channel. Publish appends an event for
// every currently connected subscriber in call order; a subscriber that
// cannot keep up has events dropped rather than back-pressuring producers.
// Late joiners receive no history.
type Bus struct {
	mu      sync.Mutex
	subs    map[uint64]*subscriber
	nextID  uint64
	buffer  int
	closed  bool
	retired SubscriberStats
}

// NewBus builds a bus with the given per-subscriber buffer depth.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{subs: make(map[uint64]*subscriber), buffer: buffer}
}

// Subscribe registers a new viewer and returns its receive channel plus an
// unsubscribe function. The channel is closed on unsubscribe or bus close.
func (b *Bus) Subscribe() (<-chan domain.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	sub := &subscriber{ch: make(chan domain.Event, b.buffer)}
	if b.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}
	b.subs[id] = sub

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if s, ok := b.subs[id]; ok {
				delete(b.subs, id)
				b.retire(s)
				close(s.ch)
			}
		})
	}
	return sub.ch, cancel
}

// retire folds a departing subscriber's counters into the bus totals.
// Callers hold b.mu.
func (b *Bus) retire(s *subscriber) {
	b.retired.Sent += s.stats.Sent
	b.retired.Dropped += s.stats.Dropped
}

// Publish appends the event for every subscriber. It never blocks: a full
// subscriber queue drops the event for that subscriber only. Holding the
// lock across all sends keeps append order identical for every viewer.
func (b *Bus) Publish(event domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for _, sub := range b.subs {
		select {
		case sub.ch <- event:
			sub.stats.Sent++
		default:
			sub.stats.Dropped++
		}
	}
}

// Stats reports delivery totals across all subscribers, past and present.
func (b *Bus) Stats() SubscriberStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := b.retired
	for _, sub := range b.subs {
		total.Sent += sub.stats.Sent
		total.Dropped += sub.stats.Dropped
	}
	return total
}

// Subscribers reports the number of connected viewers.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close disconnects every subscriber. Publish becomes a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		b.retire(sub)
		close(sub.ch)
	}
}
