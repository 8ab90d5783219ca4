// Package nsecret stores secrets in an nstore.DataStore, splitting values
// that exceed the store's size limit into numbered chunks.
//
// A secret "token" under prefix "nimbus" is stored as:
//
//	nimbus_token                 the whole value, or when chunked:
//	nimbus_token_chunk0          fragment count as a decimal string
//	nimbus_token_chunk1..N       fragments in order
package nsecret

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kardianos/nimbus/nlog"
	"github.com/kardianos/nimbus/nstore"
)

// Defaults.
const (
	DefaultPrefix    = "nimbus"
	DefaultChunkSize = 1000
)

// ErrIncomplete is returned when a chunk marker names a fragment that is missing.
var ErrIncomplete = errors.New("nsecret: chunked secret is incomplete")

// Config configures a Store.
type Config struct {
	// Store holds the entries. Required.
	Store nstore.DataStore

	// Prefix is prepended to every key. Defaults to DefaultPrefix.
	Prefix string

	// ChunkSize is the largest fragment length in characters. Defaults to
	// DefaultChunkSize. Fragments are also kept within the store's byte limit.
	ChunkSize int

	Logger nlog.Logger
}

// Store reads and writes secrets by key.
type Store struct {
	store     nstore.DataStore
	prefix    string
	chunkSize int
	log       nlog.Logger
}

// New creates a Store.
func New(cfg Config) (*Store, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("data store is required")
	}
	s := &Store{
		store:     cfg.Store,
		prefix:    cfg.Prefix,
		chunkSize: cfg.ChunkSize,
		log:       nlog.OrNop(cfg.Logger),
	}
	if s.prefix == "" {
		s.prefix = DefaultPrefix
	}
	if s.chunkSize <= 0 {
		s.chunkSize = DefaultChunkSize
	}
	if limit := nstore.MaxValueSize(s.store); limit > 0 && s.chunkSize > limit {
		return nil, fmt.Errorf("chunk size %d exceeds store limit %d", s.chunkSize, limit)
	}
	return s, nil
}

func (s *Store) plainKey(key string) string {
	return s.prefix + "_" + key
}

func (s *Store) chunkKey(key string, n int) string {
	return s.prefix + "_" + key + "_chunk" + strconv.Itoa(n)
}

// Set stores value under key, replacing any earlier value.
// An empty value deletes the key.
//
// The new form is written before the earlier one is removed, so a failed
// write leaves the earlier secret readable, except when one chunked secret
// replaces another.
func (s *Store) Set(key, value string) error {
	if value == "" {
		return s.Delete(key)
	}
	old, wasChunked, err := s.chunkCount(key)
	if err != nil {
		return err
	}

	limit := nstore.MaxValueSize(s.store)
	if limit <= 0 || len(value) <= limit {
		if err := s.store.Set(s.plainKey(key), true, []byte(value)); err != nil {
			return fmt.Errorf("set secret %s: %w", key, err)
		}
		if wasChunked {
			return s.deleteChunks(key, old)
		}
		return nil
	}

	chunks := splitChunks(value, s.chunkSize, limit)
	for i, chunk := range chunks {
		if err := s.store.Set(s.chunkKey(key, i+1), true, []byte(chunk)); err != nil {
			if !wasChunked {
				s.dropFragments(key, 1, i)
			}
			return fmt.Errorf("set secret %s chunk %d: %w", key, i+1, err)
		}
	}
	if err := s.store.Set(s.chunkKey(key, 0), true, []byte(strconv.Itoa(len(chunks)))); err != nil {
		if !wasChunked {
			s.dropFragments(key, 1, len(chunks))
		}
		return fmt.Errorf("set secret %s chunk count: %w", key, err)
	}
	if wasChunked && old > len(chunks) {
		s.dropFragments(key, len(chunks)+1, old)
	}
	if err := s.store.Delete(s.plainKey(key)); err != nil {
		return fmt.Errorf("delete stale secret %s: %w", key, err)
	}
	s.log.Debug("secret stored in chunks", nlog.Fields{"key": key, "chunks": len(chunks)})
	return nil
}

// dropFragments removes fragments from..to of key, logging failures.
func (s *Store) dropFragments(key string, from, to int) {
	for i := from; i <= to; i++ {
		if err := s.store.Delete(s.chunkKey(key, i)); err != nil {
			s.log.Warn("remove stale secret fragment", nlog.Fields{"key": key, "chunk": i, "error": err})
		}
	}
}

// chunkCount reads the fragment count for key. It reports false if key is not chunked.
func (s *Store) chunkCount(key string) (int, bool, error) {
	raw, err := s.store.Get(s.chunkKey(key, 0), true)
	if err != nil {
		return 0, false, fmt.Errorf("get secret %s chunk count: %w", key, err)
	}
	if raw == nil {
		return 0, false, nil
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil || n < 0 {
		return 0, false, fmt.Errorf("secret %s: invalid chunk count %q", key, raw)
	}
	return n, true, nil
}

// Get returns the secret stored under key. It reports false if there is none.
func (s *Store) Get(key string) (string, bool, error) {
	n, chunked, err := s.chunkCount(key)
	if err != nil {
		return "", false, err
	}
	if chunked {
		var b strings.Builder
		for i := 1; i <= n; i++ {
			chunk, err := s.store.Get(s.chunkKey(key, i), true)
			if err != nil {
				return "", false, fmt.Errorf("get secret %s chunk %d: %w", key, i, err)
			}
			if chunk == nil {
				return "", false, fmt.Errorf("%w: %s chunk %d of %d", ErrIncomplete, key, i, n)
			}
			b.Write(chunk)
		}
		return b.String(), true, nil
	}

	raw, err := s.store.Get(s.plainKey(key), true)
	if err != nil {
		return "", false, fmt.Errorf("get secret %s: %w", key, err)
	}
	if raw == nil {
		return "", false, nil
	}
	return string(raw), true, nil
}

// Delete removes the secret stored under key, chunked or not.
// Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	n, chunked, err := s.chunkCount(key)
	if err != nil {
		return err
	}
	if !chunked {
		if err := s.store.Delete(s.plainKey(key)); err != nil {
			return fmt.Errorf("delete secret %s: %w", key, err)
		}
		return nil
	}
	return s.deleteChunks(key, n)
}

// deleteChunks removes fragments 1..n and then the marker.
func (s *Store) deleteChunks(key string, n int) error {
	for i := 1; i <= n; i++ {
		if err := s.store.Delete(s.chunkKey(key, i)); err != nil {
			return fmt.Errorf("delete secret %s chunk %d: %w", key, i, err)
		}
	}
	// The marker goes last so an interrupted delete can be retried.
	if err := s.store.Delete(s.chunkKey(key, 0)); err != nil {
		return fmt.Errorf("delete secret %s chunk count: %w", key, err)
	}
	return nil
}

// splitChunks splits s into pieces of at most maxRunes runes and, when
// maxBytes is positive, at most maxBytes bytes. A piece never ends inside a
// rune and always holds at least one rune.
func splitChunks(s string, maxRunes, maxBytes int) []string {
	var out []string
	for len(s) > 0 {
		end, count := 0, 0
		for end < len(s) && count < maxRunes {
			_, size := utf8.DecodeRuneInString(s[end:])
			if maxBytes > 0 && end+size > maxBytes && count > 0 {
				break
			}
			end += size
			count++
		}
		out = append(out, s[:end])
		s = s[end:]
	}
	return out
}
