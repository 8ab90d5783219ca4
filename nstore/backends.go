package nstore

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	ErrUnknownBackend = errors.New("unknown secret backend")
	ErrNotCreatable   = errors.New("secret backend cannot be created by name")
)

// BackendConfig carries the settings a backend may use when opened.
type BackendConfig struct {
	// Path is the file, directory or registry key. Empty selects the backend default.
	Path string

	// Service identifies nimbus entries in the OS keyring.
	Service string
}

// Backend describes one kind of DataStore.
type Backend struct {
	Name        string
	Description string

	// Creatable reports whether users may select the backend by name.
	// Backends that only make sense when constructed in code set it to false.
	Creatable bool

	Open func(cfg BackendConfig) (DataStore, error)
}

// Registry holds the known backends. Populate it explicitly at startup.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// DefaultRegistry returns a registry with every backend built into this platform.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, b := range builtinBackends() {
		r.MustRegister(b)
	}
	for _, b := range platformBackends() {
		r.MustRegister(b)
	}
	return r
}

// Register adds b. Names must be unique.
func (r *Registry) Register(b Backend) error {
	if b.Name == "" {
		return fmt.Errorf("backend name is required")
	}
	if b.Open == nil {
		return fmt.Errorf("backend %q: open function is required", b.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.backends[b.Name]; ok {
		return fmt.Errorf("backend %q already registered", b.Name)
	}
	r.backends[b.Name] = b
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(b Backend) {
	if err := r.Register(b); err != nil {
		panic(err)
	}
}

// Lookup returns the backend registered under name.
func (r *Registry) Lookup(name string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	return b, ok
}

// Creatable returns the user-selectable backends sorted by name.
func (r *Registry) Creatable() []Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]Backend, 0, len(r.backends))
	for _, b := range r.backends {
		if b.Creatable {
			list = append(list, b)
		}
	}
	slices.SortFunc(list, func(a, b Backend) int { return cmp.Compare(a.Name, b.Name) })
	return list
}

// Open opens the creatable backend registered under name.
func (r *Registry) Open(name string, cfg BackendConfig) (DataStore, error) {
	b, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	if !b.Creatable {
		return nil, fmt.Errorf("%w: %q", ErrNotCreatable, name)
	}
	s, err := b.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", name, err)
	}
	return s, nil
}

func builtinBackends() []Backend {
	return []Backend{
		{
			Name:        "keyring",
			Description: "OS credential vault",
			Creatable:   true,
			Open: func(cfg BackendConfig) (DataStore, error) {
				return NewKeyringDataStore(cfg.Service), nil
			},
		},
		{
			Name:        "config",
			Description: "encrypted values in a single config file",
			Creatable:   true,
			Open: func(cfg BackendConfig) (DataStore, error) {
				return NewConfigDataStore(orDefault(cfg.Path, DefaultConfigPath))
			},
		},
		{
			Name:        "file",
			Description: "encrypted values, one file per key",
			Creatable:   true,
			Open: func(cfg BackendConfig) (DataStore, error) {
				return NewFileDataStore(orDefault(cfg.Path, DefaultFileDir))
			},
		},
		{
			Name:        "memory",
			Description: "process memory, lost on exit",
			Open: func(cfg BackendConfig) (DataStore, error) {
				return NewMemoryDataStore(0), nil
			},
		},
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
