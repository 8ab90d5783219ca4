package nstore

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// The config file holds one entry per key:
//
//	key=T{text value}
//	key=T{
//	multi-line text
//	}
//	key=B{base64encoded}
//	key=B{
//	base64encoded
//	over multiple lines
//	}
//
// Text (T) is used when the value is printable ASCII without braces,
// binary (B) otherwise. Encrypted values are always binary.
// Lines starting with # are comments.
type entries map[string][]byte

const base64LineWidth = 60

func isBinary(data []byte) bool {
	for _, b := range data {
		switch {
		case b == '\n', b == '\t', b == '\r':
		case b < 0x20, b >= 0x7f, b == '{', b == '}':
			return true
		}
	}
	return false
}

func parseEntries(r io.Reader) (entries, error) {
	e := make(entries)
	sc := bufio.NewScanner(r)

	var (
		openKey string
		binary  bool
		body    bytes.Buffer
	)
	for sc.Scan() {
		line := sc.Text()

		if openKey != "" {
			if line != "}" {
				if body.Len() > 0 {
					body.WriteByte('\n')
				}
				body.WriteString(line)
				continue
			}
			value, err := decodeBody(openKey, binary, body.String())
			if err != nil {
				return nil, err
			}
			e[openKey] = value
			openKey = ""
			body.Reset()
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch {
		case value == "T{" || value == "B{":
			openKey = key
			binary = value[0] == 'B'
		case len(value) >= 3 && value[1] == '{' && value[len(value)-1] == '}':
			if value[0] != 'T' && value[0] != 'B' {
				continue
			}
			decoded, err := decodeBody(key, value[0] == 'B', value[2:len(value)-1])
			if err != nil {
				return nil, err
			}
			e[key] = decoded
		}
	}
	if openKey != "" {
		return nil, fmt.Errorf("unterminated value for key %q", openKey)
	}
	return e, sc.Err()
}

func decodeBody(key string, binary bool, body string) ([]byte, error) {
	if !binary {
		return []byte(strings.Trim(body, "\n")), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(body, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("decode base64 for key %q: %w", key, err)
	}
	return decoded, nil
}

func formatEntries(w io.Writer, e entries) error {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	bw := bufio.NewWriter(w)
	for _, key := range keys {
		value := e[key]
		if !isBinary(value) {
			if bytes.IndexByte(value, '\n') >= 0 {
				fmt.Fprintf(bw, "%s=T{\n%s\n}\n\n", key, value)
			} else {
				fmt.Fprintf(bw, "%s=T{%s}\n\n", key, value)
			}
			continue
		}
		enc := base64.StdEncoding.EncodeToString(value)
		if len(enc) <= base64LineWidth {
			fmt.Fprintf(bw, "%s=B{%s}\n\n", key, enc)
			continue
		}
		fmt.Fprintf(bw, "%s=B{\n", key)
		for len(enc) > base64LineWidth {
			fmt.Fprintf(bw, "%s\n", enc[:base64LineWidth])
			enc = enc[base64LineWidth:]
		}
		fmt.Fprintf(bw, "%s\n}\n\n", enc)
	}
	return bw.Flush()
}

// ConfigDataStore implements DataStore using a single config file.
// Every change rewrites the whole file.
type ConfigDataStore struct {
	path string

	mu      sync.Mutex
	entries entries
}

var _ DataStore = (*ConfigDataStore)(nil)

// NewConfigDataStore opens the config file at path, which may start with ~
// or contain environment variables. A missing file is an empty store.
func NewConfigDataStore(path string) (*ConfigDataStore, error) {
	path = expandPath(path)
	e := make(entries)
	f, err := os.Open(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, err
	default:
		e, err = parseEntries(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return &ConfigDataStore{path: path, entries: e}, nil
}

func (s *ConfigDataStore) Get(key string, decrypt bool) ([]byte, error) {
	s.mu.Lock()
	data := s.entries[key]
	s.mu.Unlock()

	if len(data) == 0 {
		return nil, nil
	}
	if decrypt {
		plain, err := decryptValue(data)
		if err != nil {
			return nil, fmt.Errorf("decrypt %s: %w", key, err)
		}
		return plain, nil
	}
	return data, nil
}

func (s *ConfigDataStore) Set(key string, encrypt bool, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	data := value
	if encrypt {
		var err error
		data, err = encryptValue(value)
		if err != nil {
			return fmt.Errorf("encrypt %s: %w", key, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = data
	return s.flushLocked()
}

func (s *ConfigDataStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return nil
	}
	delete(s.entries, key)
	return s.flushLocked()
}

func (s *ConfigDataStore) flushLocked() error {
	var buf bytes.Buffer
	if err := formatEntries(&buf, s.entries); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return atomicWriteFile(s.path, buf.Bytes(), 0600)
}

func (s *ConfigDataStore) Path() string {
	return s.path
}
