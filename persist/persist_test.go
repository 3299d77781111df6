package persist

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/odvcencio/superstore/state"
	"github.com/odvcencio/superstore/storage"
)

type counter struct {
	Count int `json:"count"`
}

// failingBackend rejects writes, standing in for a full quota.
type failingBackend struct {
	*storage.Memory
	err error
}

func (f failingBackend) SetItem(string, string) error { return f.err }

func TestNew_SavesInitialValue(t *testing.T) {
	mem := storage.NewMemory()

	s, err := New(counter{Count: 0}, "test-store", WithBackend(mem))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := s.Get(); got.Count != 0 {
		t.Fatalf("expected initial value, got %+v", got)
	}
	raw, ok, _ := mem.GetItem("test-store")
	if !ok || raw != `{"count":0}` {
		t.Fatalf("expected initial value in storage, got %q ok=%v", raw, ok)
	}
}

func TestNew_StoredValueWins(t *testing.T) {
	mem := storage.NewMemory()
	mem.SetItem("test-store", `{"count":5}`)

	s, err := New(counter{Count: 0}, "test-store", WithBackend(mem))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := s.Get(); got.Count != 5 {
		t.Fatalf("expected stored value to win, got %+v", got)
	}
}

func TestNew_MalformedFallsBack(t *testing.T) {
	for _, raw := range []string{"{not json", "", "null", `"wrong type"`} {
		mem := storage.NewMemory()
		mem.SetItem("test-store", raw)

		s, err := New(counter{Count: 7}, "test-store", WithBackend(mem))
		if err != nil {
			t.Fatalf("new with %q: %v", raw, err)
		}
		if got := s.Get(); got.Count != 7 {
			t.Fatalf("expected fallback for %q, got %+v", raw, got)
		}
		if stored, _, _ := mem.GetItem("test-store"); stored != `{"count":7}` {
			t.Fatalf("expected fallback to be written for %q, got %q", raw, stored)
		}
	}
}

func TestNew_Namespace(t *testing.T) {
	mem := storage.NewMemory()

	s, err := New("dark", "theme", WithInit(Init{Storage: mem, Namespace: "app"}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Key() != "app:theme" {
		t.Fatalf("expected namespaced key, got %q", s.Key())
	}
	if raw, ok, _ := mem.GetItem("app:theme"); !ok || raw != `"dark"` {
		t.Fatalf("expected namespaced write, got %q", raw)
	}
	if _, ok, _ := mem.GetItem("theme"); ok {
		t.Fatalf("expected bare key to stay empty")
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(1, "k"); !errors.Is(err, ErrNoBackend) {
		t.Fatalf("expected ErrNoBackend, got %v", err)
	}
	if _, err := New(1, "", WithBackend(storage.NewMemory())); !errors.Is(err, ErrEmptyIdentifier) {
		t.Fatalf("expected ErrEmptyIdentifier, got %v", err)
	}
	quota := errors.New("quota exceeded")
	if _, err := New(1, "k", WithBackend(failingBackend{storage.NewMemory(), quota})); !errors.Is(err, quota) {
		t.Fatalf("expected write error from construction, got %v", err)
	}
}

func TestStore_SetAndUpdateWrite(t *testing.T) {
	mem := storage.NewMemory()
	s, _ := New(counter{}, "test-store", WithBackend(mem))

	if err := s.Set(counter{Count: 10}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if raw, _, _ := mem.GetItem("test-store"); raw != `{"count":10}` {
		t.Fatalf("expected set to be written, got %q", raw)
	}
	if err := s.Update(func(c counter) counter { c.Count++; return c }); err != nil {
		t.Fatalf("update: %v", err)
	}
	if raw, _, _ := mem.GetItem("test-store"); raw != `{"count":11}` {
		t.Fatalf("expected update to be written, got %q", raw)
	}
}

func TestStore_WriteErrorPropagates(t *testing.T) {
	quota := errors.New("quota exceeded")
	backend := &switchBackend{Memory: storage.NewMemory()}
	s, err := New(1, "k", WithBackend(backend))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	backend.err = quota
	if err := s.Set(2); !errors.Is(err, quota) {
		t.Fatalf("expected quota error from Set, got %v", err)
	}
	if err := s.Update(func(v int) int { return v + 1 }); !errors.Is(err, quota) {
		t.Fatalf("expected quota error from Update, got %v", err)
	}
}

type switchBackend struct {
	*storage.Memory
	err error
}

func (s *switchBackend) SetItem(key, value string) error {
	if s.err != nil {
		return s.err
	}
	return s.Memory.SetItem(key, value)
}

func TestStore_ClearKeepsMemory(t *testing.T) {
	mem := storage.NewMemory()
	s, _ := New(counter{Count: 3}, "test-store", WithBackend(mem))

	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := mem.GetItem("test-store"); ok {
		t.Fatalf("expected key removed from storage")
	}
	if got := s.Get(); got.Count != 3 {
		t.Fatalf("expected in-memory value unchanged, got %+v", got)
	}

	s.Set(counter{Count: 4})
	if raw, ok, _ := mem.GetItem("test-store"); !ok || raw != `{"count":4}` {
		t.Fatalf("expected next set to write again, got %q", raw)
	}
}

func TestStore_Subscribe(t *testing.T) {
	s, _ := New(1, "n", WithBackend(storage.NewMemory()))
	var got []int
	unsub := s.Subscribe(func(v int) { got = append(got, v) })
	s.Set(2)
	unsub()
	s.Set(3)

	if !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("unexpected values: %v", got)
	}
}

func TestStore_WithEqualSkipsWrite(t *testing.T) {
	backend := &countingBackend{Memory: storage.NewMemory()}
	s, _ := New(1, "n", WithBackend(backend), WithEqual(state.EqualComparable[int]))

	s.Set(1)
	s.Set(1)
	if backend.writes != 1 {
		t.Fatalf("expected only the construction write, got %d", backend.writes)
	}
	s.Set(2)
	if backend.writes != 2 {
		t.Fatalf("expected a write for a new value, got %d", backend.writes)
	}
}

func TestNew_WithEqualTypeMismatch(t *testing.T) {
	_, err := New("a", "n", WithBackend(storage.NewMemory()), WithEqual(state.EqualComparable[int]))
	if !errors.Is(err, ErrEqualType) {
		t.Fatalf("expected ErrEqualType, got %v", err)
	}
}

type countingBackend struct {
	*storage.Memory
	writes int
}

func (c *countingBackend) SetItem(key, value string) error {
	c.writes++
	return c.Memory.SetItem(key, value)
}

func TestStore_Reload(t *testing.T) {
	mem := storage.NewMemory()
	s, _ := New("a", "k", WithBackend(mem))

	mem.SetItem("k", `"b"`)
	replaced, err := s.Reload()
	if err != nil || !replaced {
		t.Fatalf("expected reload to replace value, got %v %v", replaced, err)
	}
	if s.Get() != "b" {
		t.Fatalf("expected b, got %q", s.Get())
	}

	mem.RemoveItem("k")
	if replaced, _ := s.Reload(); replaced {
		t.Fatalf("expected no replacement for missing key")
	}
}

func TestFollow_FileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.json")
	local, err := storage.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	other, _ := storage.OpenFile(path)

	s, err := New(0, "count", WithBackend(local))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go Follow(ctx, local, nil, s)

	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for i := 1; ; i++ {
		other.SetItem("count", "42")
		select {
		case <-ctx.Done():
			t.Fatalf("store did not follow external change, value %d", s.Get())
		case <-tick.C:
		}
		if s.Get() == 42 {
			return
		}
		// Reset so the next write is a change again.
		other.SetItem("count", "0")
	}
}
