package nstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileDataStore implements DataStore with one file per key in a directory.
type FileDataStore struct {
	dir string
	mu  sync.RWMutex
}

var _ DataStore = (*FileDataStore)(nil)

// NewFileDataStore creates a new file-based data store.
func NewFileDataStore(dir string) (*FileDataStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("directory is required")
	}
	dir = expandPath(dir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data store directory: %w", err)
	}
	return &FileDataStore{dir: dir}, nil
}

// Get retrieves a value by key.
func (s *FileDataStore) Get(key string, decrypt bool) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if decrypt && len(data) > 0 {
		decrypted, err := decryptValue(data)
		if err != nil {
			return nil, fmt.Errorf("decrypt %s: %w", key, err)
		}
		return decrypted, nil
	}
	return data, nil
}

// Set stores a value by key.
func (s *FileDataStore) Set(key string, encrypt bool, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	data := value
	if encrypt {
		encrypted, err := encryptValue(value)
		if err != nil {
			return fmt.Errorf("encrypt %s: %w", key, err)
		}
		data = encrypted
	}
	return atomicWriteFile(filepath.Join(s.dir, key), data, 0600)
}

// Delete removes the file holding key.
func (s *FileDataStore) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(filepath.Join(s.dir, key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Path returns the storage location for display purposes.
func (s *FileDataStore) Path() string {
	return s.dir
}

// validateKey rejects keys that cannot be used as a file name or config entry.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}
	if key == "." || key == ".." || strings.HasPrefix(key, "#") || strings.HasPrefix(key, ".tmp-") {
		return fmt.Errorf("invalid key %q", key)
	}
	if strings.ContainsAny(key, "=/\\ \t\r\n{}") {
		return fmt.Errorf("invalid key %q", key)
	}
	return nil
}

// atomicWriteFile writes data to a temp file and renames it to the target path.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// expandPath expands a leading ~ and environment variables in a path.
func expandPath(path string) string {
	if path == "~" || len(path) > 1 && path[0] == '~' && os.IsPathSeparator(path[1]) {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	return os.Expand(path, os.Getenv)
}
