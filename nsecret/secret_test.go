package nsecret

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/kardianos/nimbus/nstore"
)

func newStore(t *testing.T, limit, chunk int) (*Store, *nstore.MemoryDataStore) {
	t.Helper()
	mem := nstore.NewMemoryDataStore(limit)
	s, err := New(Config{Store: mem, ChunkSize: chunk})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s, mem
}

func TestSetGetDelete(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		wantKeys []string
	}{
		{
			name:     "below threshold",
			value:    strings.Repeat("a", 12),
			wantKeys: []string{"nimbus_token"},
		},
		{
			name:     "at threshold",
			value:    strings.Repeat("b", 12),
			wantKeys: []string{"nimbus_token"},
		},
		{
			name:  "above threshold",
			value: "0123456789" + "abcdefghij" + "XYZ",
			wantKeys: []string{
				"nimbus_token_chunk0",
				"nimbus_token_chunk1",
				"nimbus_token_chunk2",
				"nimbus_token_chunk3",
			},
		},
		{
			name:  "multibyte runes",
			value: strings.Repeat("é", 13),
			wantKeys: []string{
				"nimbus_token_chunk0",
				"nimbus_token_chunk1",
				"nimbus_token_chunk2",
				"nimbus_token_chunk3",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mem := newStore(t, 12, 10)

			if err := s.Set("token", tt.value); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if diff := cmp.Diff(tt.wantKeys, mem.Keys()); diff != "" {
				t.Errorf("stored keys (-want +got):\n%s", diff)
			}

			got, ok, err := s.Get("token")
			if err != nil || !ok {
				t.Fatalf("Get() = %v, %v", ok, err)
			}
			if got != tt.value {
				t.Errorf("Get() = %q, want %q", got, tt.value)
			}

			if err := s.Delete("token"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, ok, err := s.Get("token"); ok || err != nil {
				t.Errorf("Get() after Delete() = %v, %v; want absent", ok, err)
			}
			if keys := mem.Keys(); len(keys) != 0 {
				t.Errorf("keys left after Delete(): %v", keys)
			}
		})
	}
}

func TestChunkMarker(t *testing.T) {
	s, mem := newStore(t, 5, 4)
	if err := s.Set("k", "abcdefghij"); err != nil {
		t.Fatal(err)
	}
	count, _ := mem.Get("nimbus_k_chunk0", true)
	if string(count) != "3" {
		t.Errorf("chunk0 = %q, want 3", count)
	}
	var parts []string
	for _, k := range []string{"nimbus_k_chunk1", "nimbus_k_chunk2", "nimbus_k_chunk3"} {
		v, _ := mem.Get(k, true)
		parts = append(parts, string(v))
	}
	if diff := cmp.Diff([]string{"abcd", "efgh", "ij"}, parts); diff != "" {
		t.Errorf("fragments (-want +got):\n%s", diff)
	}
}

func TestNoLimitNeverChunks(t *testing.T) {
	s, mem := newStore(t, 0, 10)
	long := strings.Repeat("x", 5000)
	if err := s.Set("big", long); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"nimbus_big"}, mem.Keys()); diff != "" {
		t.Errorf("stored keys (-want +got):\n%s", diff)
	}
}

func TestSwitchForms(t *testing.T) {
	s, mem := newStore(t, 5, 4)

	if err := s.Set("k", "a long secret"); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("k", "tiny"); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Get("k")
	if err != nil || !ok || got != "tiny" {
		t.Fatalf("Get() = %q, %v, %v; want tiny", got, ok, err)
	}
	if diff := cmp.Diff([]string{"nimbus_k"}, mem.Keys()); diff != "" {
		t.Errorf("stale chunks left (-want +got):\n%s", diff)
	}

	if err := s.Set("k", "longer again"); err != nil {
		t.Fatal(err)
	}
	got, _, _ = s.Get("k")
	if got != "longer again" {
		t.Errorf("Get() = %q, want %q", got, "longer again")
	}
	if v, _ := mem.Get("nimbus_k", true); v != nil {
		t.Errorf("stale plain value left: %q", v)
	}
}

func TestEmptyValueDeletes(t *testing.T) {
	s, mem := newStore(t, 0, 0)
	if err := s.Set("k", "v"); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("k", ""); err != nil {
		t.Fatal(err)
	}
	if keys := mem.Keys(); len(keys) != 0 {
		t.Errorf("keys = %v, want none", keys)
	}
}

func TestGetMissing(t *testing.T) {
	s, _ := newStore(t, 0, 0)
	got, ok, err := s.Get("nothing")
	if err != nil || ok || got != "" {
		t.Errorf("Get() = %q, %v, %v; want absent", got, ok, err)
	}
	if err := s.Delete("nothing"); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}

func TestTornChunks(t *testing.T) {
	s, mem := newStore(t, 5, 4)
	if err := s.Set("k", "abcdefghij"); err != nil {
		t.Fatal(err)
	}
	if err := mem.Delete("nimbus_k_chunk2"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Get("k"); !errors.Is(err, ErrIncomplete) {
		t.Errorf("Get() error = %v, want ErrIncomplete", err)
	}
	// Delete still clears what is left.
	if err := s.Delete("k"); err != nil {
		t.Fatal(err)
	}
	if keys := mem.Keys(); len(keys) != 0 {
		t.Errorf("keys = %v, want none", keys)
	}
}

func TestBadMarker(t *testing.T) {
	s, mem := newStore(t, 0, 0)
	if err := mem.Set("nimbus_k_chunk0", true, []byte("many")); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Get("k"); err == nil {
		t.Error("Get() with a non-numeric marker should fail")
	}
}

func TestCustomPrefix(t *testing.T) {
	mem := nstore.NewMemoryDataStore(0)
	s, err := New(Config{Store: mem, Prefix: "tool"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set("api", "v"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"tool_api"}, mem.Keys()); diff != "" {
		t.Errorf("keys (-want +got):\n%s", diff)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New() without a store should fail")
	}
	if _, err := New(Config{Store: nstore.NewMemoryDataStore(10), ChunkSize: 20}); err == nil {
		t.Error("New() with chunk size above the limit should fail")
	}
	s, err := New(Config{Store: nstore.NewMemoryDataStore(1200)})
	if err != nil {
		t.Fatal(err)
	}
	if s.chunkSize != DefaultChunkSize || s.prefix != DefaultPrefix {
		t.Errorf("defaults = %d, %q", s.chunkSize, s.prefix)
	}
}

func TestByteLimitedStore(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		wantChunks int
	}{
		{"ascii under limit", strings.Repeat("a", 2000), 0},
		{"multibyte under rune count", strings.Repeat("界", 900), 2},
		{"multibyte long", strings.Repeat("界", 3000), 4},
		{"mixed widths", strings.Repeat("a界🙂", 700), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mem := newStore(t, 2560, 0)
			if err := s.Set("tok", tt.value); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			got, ok, err := s.Get("tok")
			if err != nil || !ok {
				t.Fatalf("Get() = %v, %v", ok, err)
			}
			if got != tt.value {
				t.Errorf("Get() returned %d bytes, want %d", len(got), len(tt.value))
			}

			n, chunked, err := s.chunkCount("tok")
			if err != nil {
				t.Fatal(err)
			}
			if chunked != (tt.wantChunks > 0) || n != tt.wantChunks {
				t.Errorf("chunks = %d (chunked %v), want %d", n, chunked, tt.wantChunks)
			}
			for _, k := range mem.Keys() {
				v, _ := mem.Get(k, true)
				if len(v) > 2560 {
					t.Errorf("%s holds %d bytes", k, len(v))
				}
			}
		})
	}
}

// failingStore rejects writes to one key.
type failingStore struct {
	*nstore.MemoryDataStore
	failKey string
}

func (f *failingStore) Set(key string, encrypt bool, value []byte) error {
	if key == f.failKey {
		return errors.New("write refused")
	}
	return f.MemoryDataStore.Set(key, encrypt, value)
}

func TestFailedSetKeepsPreviousValue(t *testing.T) {
	tests := []struct {
		name     string
		previous string
		next     string
		failKey  string
		wantKeys []string
	}{
		{
			name:     "plain replaced by chunked",
			previous: "old",
			next:     "abcdefghij",
			failKey:  "nimbus_k_chunk2",
			wantKeys: []string{"nimbus_k"},
		},
		{
			name:     "plain replaced by chunked, marker fails",
			previous: "old",
			next:     "abcdefghij",
			failKey:  "nimbus_k_chunk0",
			wantKeys: []string{"nimbus_k"},
		},
		{
			name:     "chunked replaced by plain",
			previous: "abcdefghij",
			next:     "new",
			failKey:  "nimbus_k",
			wantKeys: []string{"nimbus_k_chunk0", "nimbus_k_chunk1", "nimbus_k_chunk2", "nimbus_k_chunk3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &failingStore{MemoryDataStore: nstore.NewMemoryDataStore(5)}
			s, err := New(Config{Store: fs, ChunkSize: 4})
			if err != nil {
				t.Fatal(err)
			}
			if err := s.Set("k", tt.previous); err != nil {
				t.Fatal(err)
			}

			fs.failKey = tt.failKey
			if err := s.Set("k", tt.next); err == nil {
				t.Fatal("Set() should fail")
			}
			got, ok, err := s.Get("k")
			if err != nil || !ok || got != tt.previous {
				t.Errorf("Get() = %q, %v, %v; want %q", got, ok, err, tt.previous)
			}
			if diff := cmp.Diff(tt.wantKeys, fs.Keys()); diff != "" {
				t.Errorf("stored keys (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplitChunks(t *testing.T) {
	tests := []struct {
		in    string
		runes int
		bytes int
		want  []string
	}{
		{"", 3, 0, nil},
		{"abc", 3, 0, []string{"abc"}},
		{"abcdefg", 3, 0, []string{"abc", "def", "g"}},
		{"héllo", 2, 0, []string{"hé", "ll", "o"}},
		{"héllo", 5, 3, []string{"hé", "llo"}},
		{"界界界", 10, 7, []string{"界界", "界"}},
		{"🙂🙂", 10, 3, []string{"🙂", "🙂"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, splitChunks(tt.in, tt.runes, tt.bytes)); diff != "" {
			t.Errorf("splitChunks(%q, %d, %d) (-want +got):\n%s", tt.in, tt.runes, tt.bytes, diff)
		}
	}
}
