package reminder

import "testing"

func TestRegistryTombstonesKeepIDsStable(t *testing.T) {
	t.Parallel()

	g := NewRegistry()
	a := &Reminder{MessageID: "a", UserID: 1}
	b := &Reminder{MessageID: "b", UserID: 2}
	c := &Reminder{MessageID: "c", UserID: 1}
	if g.Register(a) != 1 || g.Register(b) != 2 || g.Register(c) != 3 {
		t.Fatalf("ids not sequential: %d %d %d", a.ID(), b.ID(), c.ID())
	}

	if !g.Tombstone(2) {
		t.Fatalf("Tombstone(2) = false")
	}
	if g.Tombstone(2) {
		t.Fatalf("second Tombstone(2) = true")
	}
	if _, ok := g.Get(2); ok {
		t.Fatalf("tombstoned id still resolves")
	}
	if r, ok := g.Get(3); !ok || r != c {
		t.Fatalf("Get(3) = %v %v", r, ok)
	}
	for _, id := range []int{0, -1, 4} {
		if _, ok := g.Get(id); ok {
			t.Fatalf("Get(%d) resolved", id)
		}
	}

	d := &Reminder{MessageID: "d", UserID: 1}
	if id := g.Register(d); id != 4 {
		t.Fatalf("id after tombstone = %d, want 4", id)
	}
	if g.Len() != 3 || g.HighWater() != 4 {
		t.Fatalf("Len=%d HighWater=%d", g.Len(), g.HighWater())
	}

	list := g.ListFor(1)
	if len(list) != 3 || list[0] != a || list[1] != c || list[2] != d {
		t.Fatalf("ListFor(1) = %v", list)
	}
	if r, ok := g.FindByMessageID("c"); !ok || r != c {
		t.Fatalf("FindByMessageID(c) = %v %v", r, ok)
	}
	if _, ok := g.FindByMessageID("b"); ok {
		t.Fatalf("FindByMessageID found a tombstone")
	}
}

func TestRegistryListSkipsTerminal(t *testing.T) {
	t.Parallel()

	g := NewRegistry()
	a := &Reminder{MessageID: "a", UserID: 1}
	b := &Reminder{MessageID: "b", UserID: 1}
	g.Register(a)
	g.Register(b)
	a.transition(StateDelivered)

	list := g.ListFor(1)
	if len(list) != 1 || list[0] != b {
		t.Fatalf("ListFor = %v", list)
	}
}
