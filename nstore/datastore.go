// Package nstore provides the secret storage backends nimbus keeps
// credentials in: the OS keyring, an encrypted config file, per-key files,
// the Windows registry and an in-memory store for tests.
package nstore

// DataStore provides simple key-value storage for secrets.
// Platform-specific implementations can use the OS keyring, files, the
// Windows registry with DPAPI, etc.
type DataStore interface {
	// Get retrieves a value by key. Returns nil, nil if not found.
	// If decrypt is true, the value is decrypted before returning.
	Get(key string, decrypt bool) ([]byte, error)

	// Set stores a value by key.
	// If encrypt is true, the value is encrypted before storing.
	Set(key string, encrypt bool, value []byte) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(key string) error

	// Path returns the storage location for display purposes.
	Path() string
}

// Limiter is implemented by stores that cannot hold values beyond a size.
type Limiter interface {
	// MaxValueSize returns the largest value, in bytes, the store accepts
	// in one entry. Zero means unlimited.
	MaxValueSize() int
}

// MaxValueSize returns the limit declared by s, or 0 if s declares none.
func MaxValueSize(s DataStore) int {
	if l, ok := s.(Limiter); ok {
		return l.MaxValueSize()
	}
	return 0
}
