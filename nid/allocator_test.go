package nid

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCreateUniqueIncreasing(t *testing.T) {
	a := NewAllocator()
	last := 0
	for i := 0; i < 100; i++ {
		id := a.Create(fmt.Sprintf("name-%d", i))
		if id <= last {
			t.Fatalf("Create() = %d after %d, want strictly increasing", id, last)
		}
		last = id
	}
	if a.LastID() != 100 {
		t.Errorf("LastID() = %d, want 100", a.LastID())
	}
}

func TestCreateSameNameIsIdempotent(t *testing.T) {
	a := NewAllocator()
	first := a.Create("node")
	a.Create("other")
	if again := a.Create("node"); again != first {
		t.Errorf("Create(node) = %d, want %d", again, first)
	}
}

func TestCreateWithoutName(t *testing.T) {
	a := NewAllocator()
	if a.Create("") != 1 || a.Create("") != 2 {
		t.Fatal("unnamed Create() should always allocate")
	}
	if n := len(a.Associations()); n != 0 {
		t.Errorf("unnamed Create() made %d associations", n)
	}
}

func TestRecycleScenario(t *testing.T) {
	a := NewAllocator()
	if id := a.Create("a"); id != 1 {
		t.Fatalf("Create(a) = %d, want 1", id)
	}
	if id := a.Create("b"); id != 2 {
		t.Fatalf("Create(b) = %d, want 2", id)
	}

	a.Recycle(1)
	if diff := cmp.Diff([]int{1}, a.Recycled()); diff != "" {
		t.Fatalf("Recycled() (-want +got):\n%s", diff)
	}
	if _, ok := a.Lookup("a"); ok {
		t.Fatal("recycling 1 should drop the association for a")
	}

	if id := a.Create("c"); id != 1 {
		t.Fatalf("Create(c) = %d, want recycled 1", id)
	}
	if id := a.Create("a"); id != 3 {
		t.Fatalf("Create(a) = %d, want fresh 3", id)
	}
}

func TestRecycledReturnedOnce(t *testing.T) {
	a := NewAllocator()
	for i := 0; i < 3; i++ {
		a.Create("")
	}
	a.Recycle(2)
	a.Recycle(2)

	if id := a.Create(""); id != 2 {
		t.Fatalf("Create() = %d, want 2", id)
	}
	if id := a.Create(""); id != 4 {
		t.Fatalf("Create() = %d, want 4; a recycled id must be reused once", id)
	}
}

func TestRecycleSmallestFirst(t *testing.T) {
	a := NewAllocator()
	for i := 0; i < 5; i++ {
		a.Create("")
	}
	for _, id := range []int{4, 2, 5} {
		a.Recycle(id)
	}
	var got []int
	for i := 0; i < 4; i++ {
		got = append(got, a.Create(""))
	}
	if diff := cmp.Diff([]int{2, 4, 5, 6}, got); diff != "" {
		t.Errorf("Create() order (-want +got):\n%s", diff)
	}
}

func TestRecycleStripsAllNames(t *testing.T) {
	a := NewAllocator()
	id := a.Create("x")
	a.Associate(id, "alias")
	a.Create("keep")

	a.Recycle(id)
	if diff := cmp.Diff(map[string]int{"keep": 2}, a.Associations()); diff != "" {
		t.Errorf("Associations() (-want +got):\n%s", diff)
	}
}

func TestInvalidOperationsIgnored(t *testing.T) {
	a := NewAllocator()
	a.Create("one")

	a.Associate(0, "zero")
	a.Associate(-1, "neg")
	a.Associate(2, "future")
	a.Associate(1, "")
	a.Recycle(0)
	a.Recycle(-3)
	a.Recycle(7)

	if diff := cmp.Diff(map[string]int{"one": 1}, a.Associations()); diff != "" {
		t.Errorf("Associations() (-want +got):\n%s", diff)
	}
	if got := a.Recycled(); len(got) != 0 {
		t.Errorf("Recycled() = %v, want empty", got)
	}
}

func TestAssociateOverwrites(t *testing.T) {
	a := NewAllocator()
	a.Create("")
	a.Create("")
	a.Associate(1, "n")
	a.Associate(2, "n")
	if id, _ := a.Lookup("n"); id != 2 {
		t.Errorf("Lookup(n) = %d, want 2", id)
	}
	if id := a.Create("n"); id != 2 {
		t.Errorf("Create(n) = %d, want 2", id)
	}
}

func TestFromStateDropsInvalid(t *testing.T) {
	a := fromState(allocatorState{
		LastID:       3,
		Recycled:     []int{3, 9, 1, 1, 0},
		Associations: map[string]int{"ok": 2, "bad": 8},
	})
	if diff := cmp.Diff([]int{1, 3}, a.Recycled()); diff != "" {
		t.Errorf("Recycled() (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]int{"ok": 2}, a.Associations()); diff != "" {
		t.Errorf("Associations() (-want +got):\n%s", diff)
	}
}
