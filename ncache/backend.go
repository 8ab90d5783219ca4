package ncache

import (
	"fmt"
	"path/filepath"
)

// Backend persists the whole cache mapping as one unit.
type Backend interface {
	// Load returns the stored mapping. A missing store is an empty mapping.
	// A store that exists but cannot be decoded returns a *CorruptError.
	Load() (map[string][]byte, error)

	// Store replaces the persisted mapping with m.
	Store(m map[string][]byte) error

	// Remove deletes the backing storage. Removing a missing store is not an error.
	Remove() error

	// Path returns the storage location for display purposes.
	Path() string

	// Close releases any resources held by the backend.
	Close() error
}

// Well-known backend names.
const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

// FileName is the base name of the cache in the home directory.
const FileName = "nimbus_datacache"

// OpenBackend opens the named backend inside dir.
func OpenBackend(name, dir string, codec Codec) (Backend, error) {
	switch name {
	case "", BackendFile:
		return NewFileBackend(filepath.Join(dir, FileName), codec)
	case BackendBolt:
		return NewBoltBackend(filepath.Join(dir, FileName+".db"))
	default:
		return nil, fmt.Errorf("unknown cache backend %q", name)
	}
}
