package vclock

import "testing"

func TestIncrementMonotone(t *testing.T) {
	c := Clock{}
	snap1 := c.Increment("alice")
	snap2 := c.Increment("alice")
	if snap1["alice"] != 1 {
		t.Fatalf("expected 1, got %d", snap1["alice"])
	}
	if snap2["alice"] != 2 {
		t.Fatalf("expected 2, got %d", snap2["alice"])
	}
	// snapshots must be frozen, independent of later mutation
	if snap1["alice"] != 1 {
		t.Fatalf("snapshot mutated after later increment")
	}
}

func TestMergeTakesMax(t *testing.T) {
	c := Clock{"alice": 2, "bob": 1}
	c.Merge(Clock{"alice": 1, "bob": 3, "carol": 5})
	if c["alice"] != 2 || c["bob"] != 3 || c["carol"] != 5 {
		t.Fatalf("unexpected merged clock: %#v", c)
	}
}

func TestCompareIrreflexive(t *testing.T) {
	a := Clock{"alice": 2, "bob": 1}
	if Compare(a, a) != Concurrent {
		t.Fatalf("A must never be before itself")
	}
}

func TestCompareAntisymmetric(t *testing.T) {
	a := Clock{"alice": 1}
	b := Clock{"alice": 2}
	if Compare(a, b) != Before {
		t.Fatalf("expected Before")
	}
	if Compare(b, a) != After {
		t.Fatalf("expected After, antisymmetry violated")
	}
}

func TestCompareConcurrent(t *testing.T) {
	a := Clock{"alice": 2, "bob": 0}
	b := Clock{"alice": 0, "bob": 2}
	if Compare(a, b) != Concurrent {
		t.Fatalf("expected Concurrent")
	}
}

func TestCompareTransitive(t *testing.T) {
	a := Clock{"alice": 1}
	b := Clock{"alice": 2}
	c := Clock{"alice": 3}
	if Compare(a, b) != Before || Compare(b, c) != Before {
		t.Fatalf("setup invariant broken")
	}
	if Compare(a, c) == After {
		t.Fatalf("transitivity violated: A<B<C but A>C")
	}
}

func TestDominates(t *testing.T) {
	a := Clock{"alice": 2, "bob": 3}
	b := Clock{"alice": 1, "bob": 3}
	if !Dominates(a, b) {
		t.Fatalf("expected a to dominate b")
	}
	if Dominates(b, a) {
		t.Fatalf("b must not dominate a")
	}
}

type event struct {
	clock     Clock
	timestamp int64
	name      string
}

func (e event) Clock() Clock     { return e.clock }
func (e event) Timestamp() int64 { return e.timestamp }

func TestSortEventsStableAndCausal(t *testing.T) {
	events := []event{
		{clock: Clock{"a": 2, "b": 1}, timestamp: 200, name: "op2"},
		{clock: Clock{"a": 1}, timestamp: 100, name: "op1"},
		{clock: Clock{"a": 0, "b": 1}, timestamp: 150, name: "concurrent-with-op1"},
	}
	SortEvents(events)
	if events[0].name != "op1" && events[0].name != "concurrent-with-op1" {
		t.Fatalf("op2 must sort after both causally-prior events, got order: %v", events)
	}
	if events[2].name != "op2" {
		t.Fatalf("op2 dominates both others and must sort last, got order: %v", events)
	}

	// repeated sort yields identical output (stability / idempotence)
	again := make([]event, len(events))
	copy(again, events)
	SortEvents(again)
	for i := range events {
		if events[i].name != again[i].name {
			t.Fatalf("sortEvents is not idempotent on already-sorted input")
		}
	}
}
