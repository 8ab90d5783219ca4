package ncache

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend stores the mapping in a single codec-encoded file.
type FileBackend struct {
	path  string
	codec Codec
}

var _ Backend = (*FileBackend)(nil)

// NewFileBackend creates a file backend at path, which may start with ~.
func NewFileBackend(path string, codec Codec) (*FileBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if codec == nil {
		return nil, fmt.Errorf("codec is required")
	}
	return &FileBackend{path: ExpandPath(path), codec: codec}, nil
}

func (b *FileBackend) Load() (map[string][]byte, error) {
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return map[string][]byte{}, nil
	}
	if err != nil {
		return nil, err
	}
	m := map[string][]byte{}
	if err := b.codec.Unmarshal(data, &m); err != nil {
		return nil, &CorruptError{Path: b.path, Err: err}
	}
	if m == nil {
		m = map[string][]byte{}
	}
	return m, nil
}

func (b *FileBackend) Store(m map[string][]byte) error {
	data, err := b.codec.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0700); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return atomicWriteFile(b.path, data, 0600)
}

func (b *FileBackend) Remove() error {
	err := os.Remove(b.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (b *FileBackend) Path() string { return b.path }

func (b *FileBackend) Close() error { return nil }

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

// ExpandPath expands a leading ~ and environment variables in a path.
func ExpandPath(path string) string {
	if path == "~" || len(path) > 1 && path[0] == '~' && os.IsPathSeparator(path[1]) {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	return os.Expand(path, os.Getenv)
}
