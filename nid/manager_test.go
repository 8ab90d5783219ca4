package nid

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/kardianos/nimbus/ncache"
)

func openCache(t *testing.T, dir string, codec ncache.Codec) *ncache.Cache {
	t.Helper()
	b, err := ncache.NewFileBackend(filepath.Join(dir, ncache.FileName), codec)
	if err != nil {
		t.Fatal(err)
	}
	c, err := ncache.New(ncache.Config{Backend: b, Codec: codec})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestManagerPersists(t *testing.T) {
	cbor, err := ncache.NewCBOR(true)
	if err != nil {
		t.Fatal(err)
	}
	for _, codec := range []ncache.Codec{cbor, ncache.Msgpack{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			dir := t.TempDir()

			m, err := NewManager(openCache(t, dir, codec))
			if err != nil {
				t.Fatalf("NewManager() error = %v", err)
			}
			nodes := m.Get("nodes")
			nodes.Create("a")
			nodes.Create("b")
			nodes.Create("c")
			nodes.Recycle(2)
			m.Get("links").Create("")

			if err := m.Save(); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			m2, err := NewManager(openCache(t, dir, codec))
			if err != nil {
				t.Fatalf("NewManager() reload error = %v", err)
			}
			if diff := cmp.Diff([]string{"links", "nodes"}, m2.Names()); diff != "" {
				t.Errorf("Names() (-want +got):\n%s", diff)
			}
			n2 := m2.Get("nodes")
			if n2.LastID() != 3 {
				t.Errorf("LastID() = %d, want 3", n2.LastID())
			}
			if diff := cmp.Diff([]int{2}, n2.Recycled()); diff != "" {
				t.Errorf("Recycled() (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(map[string]int{"a": 1, "c": 3}, n2.Associations()); diff != "" {
				t.Errorf("Associations() (-want +got):\n%s", diff)
			}
			if id := n2.Create("a"); id != 1 {
				t.Errorf("Create(a) after reload = %d, want 1", id)
			}
			if id := n2.Create(""); id != 2 {
				t.Errorf("Create() after reload = %d, want recycled 2", id)
			}
		})
	}
}

func TestManagerGet(t *testing.T) {
	m, err := NewManager(openCache(t, t.TempDir(), ncache.Msgpack{}))
	if err != nil {
		t.Fatal(err)
	}

	a := m.Get("ns")
	if m.Get("ns") != a {
		t.Error("Get() should return the same allocator for a name")
	}
	if diff := cmp.Diff([]string{"ns"}, m.Names()); diff != "" {
		t.Errorf("a lookup should register the name (-want +got):\n%s", diff)
	}

	anon := m.Get("")
	if anon == m.Get("") {
		t.Error("empty name should give a fresh allocator each time")
	}
	if diff := cmp.Diff([]string{"ns"}, m.Names()); diff != "" {
		t.Errorf("empty name must not be registered (-want +got):\n%s", diff)
	}

	m.Reset()
	if len(m.Names()) != 0 {
		t.Errorf("Names() after Reset() = %v", m.Names())
	}
}

func TestNewManagerRequiresCache(t *testing.T) {
	if _, err := NewManager(nil); err == nil {
		t.Fatal("NewManager(nil) should fail")
	}
}
