package pipeline

import "testing"

func TestDedupGateReserveAndRelease(t *testing.T) {
	g := NewDedupGate()

	if !g.Reserve("Feed-1") {
		t.Fatal("first Reserve failed")
	}
	if g.Reserve("Feed-1") {
		t.Fatal("duplicate Reserve succeeded")
	}
	if !g.Reserve("Feed-2") {
		t.Fatal("unrelated id blocked")
	}
	if g.Len() != 2 {
		t.Fatalf("len = %d, want 2", g.Len())
	}

	g.Release("Feed-1")
	if !g.Reserve("Feed-1") {
		t.Fatal("Reserve after Release failed")
	}

	// Releasing an unknown id is a no-op.
	g.Release("never-reserved")
	if g.Len() != 2 {
		t.Fatalf("len = %d, want 2", g.Len())
	}
}
