package events

import (
	"testing"
	"time"

	"FeedWatcher/internal/domain"
)

func TestPublishDeliversInOrder(t *testing.T) {
	t.Parallel()

	bus := NewBus(8)
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(domain.Event{Type: domain.EventStatus, Status: domain.StatusScanning})
	bus.Publish(domain.Event{Type: domain.EventAPIItem, Item: &domain.Item{ID: "src-1"}})
	bus.Publish(domain.Event{Type: domain.EventSummaryUpdate, ID: "src-1"})

	want := []string{domain.EventStatus, domain.EventAPIItem, domain.EventSummaryUpdate}
	for i, wantType := range want {
		select {
		case ev := <-ch:
			if ev.Type != wantType {
				t.Fatalf("event %d: got %q, want %q", i, ev.Type, wantType)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestSlowSubscriberNeverBlocksPublish(t *testing.T) {
	t.Parallel()

	bus := NewBus(2)
	_, cancel := bus.Subscribe() // never read from
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(domain.Event{Type: domain.EventStatus})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestLateJoinerGetsNoHistory(t *testing.T) {
	t.Parallel()

	bus := NewBus(8)
	bus.Publish(domain.Event{Type: domain.EventStatus, Status: domain.StatusScanning})

	ch, cancel := bus.Subscribe()
	defer cancel()

	select {
	case ev := <-ch:
		t.Fatalf("late joiner received replayed event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	bus := NewBus(8)
	ch, cancel := bus.Subscribe()
	cancel()
	cancel() // second call is a no-op

	if _, open := <-ch; open {
		t.Fatal("channel still open after unsubscribe")
	}
	if n := bus.Subscribers(); n != 0 {
		t.Fatalf("subscribers = %d, want 0", n)
	}
}

func TestStatsCountSentAndDropped(t *testing.T) {
	t.Parallel()

	bus := NewBus(2)
	ch, cancel := bus.Subscribe() // buffer 2, never read from

	for i := 0; i < 5; i++ {
		bus.Publish(domain.Event{Type: domain.EventStatus})
	}

	stats := bus.Stats()
	if stats.Sent != 2 || stats.Dropped != 3 {
		t.Fatalf("stats = %+v, want 2 sent / 3 dropped", stats)
	}

	// Totals survive the subscriber leaving.
	cancel()
	<-ch
	stats = bus.Stats()
	if stats.Sent != 2 || stats.Dropped != 3 {
		t.Fatalf("stats after unsubscribe = %+v, want totals retained", stats)
	}
}

func TestCloseDisconnectsAll(t *testing.T) {
	t.Parallel()

	bus := NewBus(8)
	ch, _ := bus.Subscribe()
	bus.Close()

	if _, open := <-ch; open {
		t.Fatal("channel open after bus close")
	}
	bus.Publish(domain.Event{Type: domain.EventStatus}) // must not panic
}
