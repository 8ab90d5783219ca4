package nid

import (
	"fmt"
	"slices"
	"sync"
)

// CacheKey is where the Manager keeps its allocators.
const CacheKey = "IDManager_Generators"

// Cache is the persistence the Manager needs. *ncache.Cache satisfies it.
type Cache interface {
	Get(key string, v any) (bool, error)
	Set(key string, v any, persist bool) error
}

// Manager keeps one Allocator per namespace name and persists them in a Cache.
type Manager struct {
	cache Cache

	mu         sync.Mutex
	allocators map[string]*Allocator
}

// NewManager restores the allocators stored in cache.
func NewManager(cache Cache) (*Manager, error) {
	if cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	var states map[string]allocatorState
	if _, err := cache.Get(CacheKey, &states); err != nil {
		return nil, fmt.Errorf("load id allocators: %w", err)
	}
	m := &Manager{
		cache:      cache,
		allocators: make(map[string]*Allocator, len(states)),
	}
	for name, st := range states {
		m.allocators[name] = fromState(st)
	}
	return m, nil
}

// Get returns the allocator for name, creating it if needed.
// A non-empty name is kept in the manager, so even a lookup of a new name
// is persisted by the next Save. An empty name yields a throwaway allocator.
func (m *Manager) Get(name string) *Allocator {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.allocators[name]
	if !ok {
		a = NewAllocator()
	}
	if name != "" {
		m.allocators[name] = a
	}
	return a
}

// Names returns the namespace names in sorted order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.allocators))
	for name := range m.allocators {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Reset drops every allocator.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allocators = make(map[string]*Allocator)
}

// Save writes every allocator to the cache and persists it.
func (m *Manager) Save() error {
	m.mu.Lock()
	states := make(map[string]allocatorState, len(m.allocators))
	for name, a := range m.allocators {
		states[name] = a.state()
	}
	m.mu.Unlock()

	if err := m.cache.Set(CacheKey, states, true); err != nil {
		return fmt.Errorf("save id allocators: %w", err)
	}
	return nil
}
