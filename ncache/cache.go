// Package ncache provides the persistent key-value cache that holds
// process-wide nimbus state.
//
// The whole mapping is loaded once per Cache and written back as a unit.
// Values are encoded individually with the configured Codec, so a caller
// decodes a key into whatever Go type it stored there.
package ncache

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/kardianos/nimbus/nlog"
)

// Config configures a Cache.
type Config struct {
	// Backend persists the mapping. Required.
	Backend Backend

	// Codec encodes individual values. Defaults to deterministic CBOR.
	Codec Codec

	// Logger receives load and save events. Optional.
	Logger nlog.Logger
}

// Cache is a string-keyed mapping persisted through a Backend.
type Cache struct {
	backend Backend
	codec   Codec
	log     nlog.Logger

	mu   sync.Mutex
	data map[string][]byte // nil until loaded
}

// New creates a cache. Nothing is read until the first access or Load.
func New(cfg Config) (*Cache, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	codec := cfg.Codec
	if codec == nil {
		var err error
		codec, err = NewCBOR(true)
		if err != nil {
			return nil, err
		}
	}
	return &Cache{
		backend: cfg.Backend,
		codec:   codec,
		log:     nlog.OrNop(cfg.Logger),
	}, nil
}

// Load reads the backing store if it has not been read yet.
func (c *Cache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked()
}

func (c *Cache) loadLocked() error {
	if c.data != nil {
		return nil
	}
	m, err := c.backend.Load()
	if err != nil {
		c.log.Error("cache load failed", nlog.Fields{"path": c.backend.Path(), "error": err})
		return err
	}
	c.data = m
	c.log.Debug("cache loaded", nlog.Fields{"path": c.backend.Path(), "keys": len(m)})
	return nil
}

// Get decodes the value stored under key into v, which must be a pointer.
// It reports false if the key is absent, leaving v untouched.
func (c *Cache) Get(key string, v any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(); err != nil {
		return false, err
	}
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	if err := c.codec.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

// GetOr returns the value stored under key, or def if it is absent.
func GetOr[T any](c *Cache, key string, def T) (T, error) {
	var v T
	ok, err := c.Get(key, &v)
	if err != nil || !ok {
		return def, err
	}
	return v, nil
}

// Set stores v under key. A nil v removes the key.
// If persist is true the whole mapping is written to the backend before returning.
func (c *Cache) Set(key string, v any, persist bool) error {
	if key == "" {
		return errors.New("key is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(); err != nil {
		return err
	}
	if v == nil {
		delete(c.data, key)
	} else {
		raw, err := c.codec.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %q: %w", key, err)
		}
		c.data[key] = raw
	}
	if !persist {
		return nil
	}
	return c.saveLocked()
}

// Save writes the mapping to the backend. An unloaded cache is not written.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

func (c *Cache) saveLocked() error {
	if c.data == nil {
		return nil
	}
	if err := c.backend.Store(c.data); err != nil {
		c.log.Error("cache save failed", nlog.Fields{"path": c.backend.Path(), "error": err})
		return fmt.Errorf("save cache: %w", err)
	}
	c.log.Debug("cache saved", nlog.Fields{"path": c.backend.Path(), "keys": len(c.data)})
	return nil
}

// Delete removes the backing storage and drops the loaded mapping, so the
// next access starts from an empty cache. All persisted state is lost.
func (c *Cache) Delete() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.backend.Remove(); err != nil {
		return fmt.Errorf("remove cache: %w", err)
	}
	c.data = nil
	c.log.Warn("cache deleted", nlog.Fields{"path": c.backend.Path()})
	return nil
}

// Keys returns the stored keys in sorted order.
func (c *Cache) Keys() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// Path returns the backend storage location.
func (c *Cache) Path() string {
	return c.backend.Path()
}

// Close releases the backend. It does not save.
func (c *Cache) Close() error {
	return c.backend.Close()
}
