// Package nid generates small unique integer IDs per namespace and keeps
// the generators across process restarts.
package nid

import (
	"slices"
	"sync"
)

// Allocator hands out incrementing integer IDs. IDs may be bound to a name,
// so the same name gets the same ID back, and may be recycled for reuse.
//
// Reusing a recycled ID is only safe if the caller no longer uses it;
// the allocator does not track live IDs.
type Allocator struct {
	mu           sync.Mutex
	lastID       int
	recycled     []int // sorted, unique, each <= lastID
	associations map[string]int
}

// NewAllocator returns an allocator whose first ID is 1.
func NewAllocator() *Allocator {
	return &Allocator{associations: make(map[string]int)}
}

// Create returns an ID, chosen in this order:
//   - the ID associated with name, if any;
//   - the smallest recycled ID, if any;
//   - a new ID one above the last one issued.
//
// A non-empty name is associated with the returned ID.
func (a *Allocator) Create(name string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id, ok := a.associations[name]; ok && name != "" {
		return id
	}
	var id int
	if len(a.recycled) > 0 {
		id = a.recycled[0]
		a.recycled = a.recycled[1:]
	} else {
		a.lastID++
		id = a.lastID
	}
	a.associateLocked(id, name)
	return id
}

// Associate binds name to id, replacing any earlier binding for name.
// It does nothing unless id is positive, already issued, and name is not empty.
func (a *Allocator) Associate(id int, name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.associateLocked(id, name)
}

func (a *Allocator) associateLocked(id int, name string) {
	if id <= 0 || name == "" || id > a.lastID {
		return
	}
	if a.associations == nil {
		a.associations = make(map[string]int)
	}
	a.associations[name] = id
}

// Recycle returns id to the pool used by Create and drops every name bound to it.
// It does nothing unless id is positive and already issued.
func (a *Allocator) Recycle(id int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id <= 0 || id > a.lastID {
		return
	}
	if i, found := slices.BinarySearch(a.recycled, id); !found {
		a.recycled = slices.Insert(a.recycled, i, id)
	}
	for name, assoc := range a.associations {
		if assoc == id {
			delete(a.associations, name)
		}
	}
}

// Lookup returns the ID bound to name.
func (a *Allocator) Lookup(name string) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.associations[name]
	return id, ok
}

// LastID returns the highest ID issued so far.
func (a *Allocator) LastID() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastID
}

// Recycled returns the IDs waiting for reuse in ascending order.
func (a *Allocator) Recycled() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.recycled)
}

// Associations returns a copy of the name bindings.
func (a *Allocator) Associations() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]int, len(a.associations))
	for k, v := range a.associations {
		out[k] = v
	}
	return out
}

// allocatorState is the persisted form of an Allocator.
type allocatorState struct {
	LastID       int            `cbor:"1,keyasint" msgpack:"last_id"`
	Recycled     []int          `cbor:"2,keyasint" msgpack:"recycled"`
	Associations map[string]int `cbor:"3,keyasint" msgpack:"associations"`
}

func (a *Allocator) state() allocatorState {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := allocatorState{
		LastID:       a.lastID,
		Recycled:     slices.Clone(a.recycled),
		Associations: make(map[string]int, len(a.associations)),
	}
	for k, v := range a.associations {
		st.Associations[k] = v
	}
	return st
}

// fromState rebuilds an allocator, dropping entries that break its invariants.
func fromState(st allocatorState) *Allocator {
	a := NewAllocator()
	if st.LastID > 0 {
		a.lastID = st.LastID
	}
	for _, id := range st.Recycled {
		if id > 0 && id <= a.lastID {
			a.recycled = append(a.recycled, id)
		}
	}
	slices.Sort(a.recycled)
	a.recycled = slices.Compact(a.recycled)
	for name, id := range st.Associations {
		a.associateLocked(id, name)
	}
	return a
}
