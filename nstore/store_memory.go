package nstore

import (
	"bytes"
	"fmt"
	"slices"
	"sync"
)

// MemoryDataStore keeps values in process memory. Values are stored as
// given; the encrypt flag is ignored. Useful for tests.
type MemoryDataStore struct {
	// Limit is the largest value in bytes Set accepts, reported through
	// MaxValueSize. Zero means unlimited.
	Limit int

	mu   sync.RWMutex
	data map[string][]byte
}

var (
	_ DataStore = (*MemoryDataStore)(nil)
	_ Limiter   = (*MemoryDataStore)(nil)
)

// NewMemoryDataStore returns an empty store with the given value limit.
func NewMemoryDataStore(limit int) *MemoryDataStore {
	return &MemoryDataStore{Limit: limit, data: make(map[string][]byte)}
}

func (s *MemoryDataStore) Get(key string, decrypt bool) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return bytes.Clone(v), nil
}

func (s *MemoryDataStore) Set(key string, encrypt bool, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if s.Limit > 0 && len(value) > s.Limit {
		return fmt.Errorf("value for %q is %d bytes, limit %d", key, len(value), s.Limit)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string][]byte)
	}
	s.data[key] = bytes.Clone(value)
	return nil
}

func (s *MemoryDataStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemoryDataStore) Path() string { return "memory" }

func (s *MemoryDataStore) MaxValueSize() int { return s.Limit }

// Keys returns the stored keys in sorted order.
func (s *MemoryDataStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
