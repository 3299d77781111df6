package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFile_RoundTripFormats(t *testing.T) {
	for _, name := range []string{"store.json", "store.yaml", "store.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			f, err := OpenFile(path)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			if f.Len() != 0 {
				t.Fatalf("expected empty storage for missing file")
			}
			if err := f.SetItem("app:theme", `"dark"`); err != nil {
				t.Fatalf("set: %v", err)
			}
			if err := f.SetItem("count", `{"count":5}`); err != nil {
				t.Fatalf("set: %v", err)
			}

			reopened, err := OpenFile(path)
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			if v, ok, _ := reopened.GetItem("app:theme"); !ok || v != `"dark"` {
				t.Fatalf("expected theme to survive reopen, got %q ok=%v", v, ok)
			}
			if v, _, _ := reopened.GetItem("count"); v != `{"count":5}` {
				t.Fatalf("expected count to survive reopen, got %q", v)
			}

			if err := reopened.RemoveItem("count"); err != nil {
				t.Fatalf("remove: %v", err)
			}
			again, err := OpenFile(path)
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			if _, ok, _ := again.GetItem("count"); ok {
				t.Fatalf("expected count to be removed")
			}
		})
	}
}

func TestFile_UnknownExtension(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "store.ini"))
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
	f, err := OpenFile(filepath.Join(t.TempDir(), "store"), WithCodec(jsonCodec{}))
	if err != nil {
		t.Fatalf("expected explicit codec to be accepted, got %v", err)
	}
	if f.Codec().Name() != FormatJSON {
		t.Fatalf("expected json codec, got %s", f.Codec().Name())
	}
}

func TestFile_MalformedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := OpenFile(path)
	var codecErr *CodecError
	if !errors.As(err, &codecErr) {
		t.Fatalf("expected CodecError, got %v", err)
	}
	if codecErr.Path != path {
		t.Fatalf("expected path %q, got %q", path, codecErr.Path)
	}
}

func TestFile_Closed(t *testing.T) {
	f, err := OpenFile(filepath.Join(t.TempDir(), "store.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	if err := f.SetItem("k", "v"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, _, err := f.GetItem("k"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestFile_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	a, _ := OpenFile(path)
	b, _ := OpenFile(path)

	a.SetItem("x", "1")
	a.SetItem("y", "2")

	changed, err := b.Reload()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(changed) != 2 || changed[0] != "x" || changed[1] != "y" {
		t.Fatalf("unexpected changed keys: %v", changed)
	}
	changed, _ = b.Reload()
	if len(changed) != 0 {
		t.Fatalf("expected no changes on second reload, got %v", changed)
	}
}

// gatedCodec blocks Unmarshal while armed until release is closed.
type gatedCodec struct {
	jsonCodec
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (c *gatedCodec) Unmarshal(data []byte) (map[string]string, error) {
	if c.armed.CompareAndSwap(true, false) {
		close(c.entered)
		<-c.release
	}
	return c.jsonCodec.Unmarshal(data)
}

func TestFile_ReloadConcurrentSetItem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	codec := &gatedCodec{entered: make(chan struct{}), release: make(chan struct{})}
	f, err := OpenFile(path, WithCodec(codec))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.SetItem("k", "1"); err != nil {
		t.Fatal(err)
	}

	codec.armed.Store(true)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := f.Reload(); err != nil {
			t.Errorf("reload: %v", err)
		}
	}()
	<-codec.entered
	go func() {
		defer wg.Done()
		if err := f.SetItem("k", "2"); err != nil {
			t.Errorf("set: %v", err)
		}
	}()
	time.Sleep(20 * time.Millisecond)
	close(codec.release)
	wg.Wait()

	if v, _, _ := f.GetItem("k"); v != "2" {
		t.Fatalf("expected committed write to survive reload, got %q", v)
	}
	if err := f.SetItem("other", "x"); err != nil {
		t.Fatal(err)
	}
	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if v, _, _ := reopened.GetItem("k"); v != "2" {
		t.Fatalf("expected k=2 on disk, got %q", v)
	}
}

func TestFile_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.yaml")
	watched, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	writer, _ := OpenFile(path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	keys := make(chan []string, 4)
	go watched.Watch(ctx, func(changed []string) { keys <- changed })

	// Give the watcher time to register before writing.
	deadline := time.After(4 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for i := 0; ; i++ {
		writer.SetItem("k", string(rune('a'+i%26)))
		select {
		case got := <-keys:
			if len(got) != 1 || got[0] != "k" {
				t.Fatalf("unexpected changed keys: %v", got)
			}
			if v, ok, _ := watched.GetItem("k"); !ok || v == "" {
				t.Fatalf("expected watched backend to reload k")
			}
			return
		case <-deadline:
			t.Fatalf("watch did not report change")
		case <-tick.C:
		}
	}
}
