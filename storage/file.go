package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// File is a [Backend] that keeps all keys in one document on disk.
// Every write rewrites the document through a temp file and rename.
type File struct {
	mu     sync.RWMutex
	path   string
	codec  Codec
	items  map[string]string
	closed bool
	logger *slog.Logger
}

// FileOption configures a [File].
type FileOption func(*File)

// WithCodec overrides the codec picked from the file extension.
func WithCodec(codec Codec) FileOption {
	return func(f *File) {
		if codec != nil {
			f.codec = codec
		}
	}
}

// WithFileLogger sets the logger used for watch diagnostics.
func WithFileLogger(logger *slog.Logger) FileOption {
	return func(f *File) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// OpenFile opens the document at path. A missing file is empty storage and is
// created on the first write.
func OpenFile(path string, opts ...FileOption) (*File, error) {
	f := &File{
		path:   filepath.Clean(path),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.codec == nil {
		codec, err := CodecForPath(f.path)
		if err != nil {
			return nil, err
		}
		f.codec = codec
	}
	items, err := f.read()
	if err != nil {
		return nil, err
	}
	f.items = items
	return f, nil
}

// Path returns the document path.
func (f *File) Path() string {
	return f.path
}

// Codec returns the document codec.
func (f *File) Codec() Codec {
	return f.codec
}

// GetItem returns the value stored under key.
func (f *File) GetItem(key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return "", false, ErrClosed
	}
	value, ok := f.items[key]
	return value, ok, nil
}

// SetItem stores value under key and rewrites the document.
// On write failure the in-memory view is rolled back.
func (f *File) SetItem(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	prev, existed := f.items[key]
	f.items[key] = value
	if err := f.writeLocked(); err != nil {
		if existed {
			f.items[key] = prev
		} else {
			delete(f.items, key)
		}
		return err
	}
	return nil
}

// RemoveItem deletes key and rewrites the document.
func (f *File) RemoveItem(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	prev, existed := f.items[key]
	if !existed {
		return nil
	}
	delete(f.items, key)
	if err := f.writeLocked(); err != nil {
		f.items[key] = prev
		return err
	}
	return nil
}

// Keys returns the stored keys in sorted order.
func (f *File) Keys() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return sortedKeys(f.items)
}

// Len returns the number of stored keys.
func (f *File) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.items)
}

// Reload re-reads the document and returns the keys whose value changed,
// appeared or disappeared.
// The lock is held across the read so a concurrent SetItem is either already
// on disk or waits for the swap.
func (f *File) Reload() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}
	items, err := f.read()
	if err != nil {
		return nil, err
	}
	changed := diffKeys(f.items, items)
	f.items = items
	return changed, nil
}

// Watch follows the document until ctx is done, reloading it when another
// writer replaces it and calling fn with the changed keys.
func (f *File) Watch(ctx context.Context, fn func(keys []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("storage: create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: create dir: %w", err)
	}
	// The directory is watched because rename-based writes replace the inode.
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("storage: watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			changed, err := f.Reload()
			if errors.Is(err, ErrClosed) {
				return nil
			}
			if err != nil {
				f.logger.Warn("storage reload failed", "path", f.path, "error", err)
				continue
			}
			if len(changed) > 0 && fn != nil {
				f.logger.Debug("storage changed externally", "path", f.path, "keys", changed)
				fn(changed)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("storage watch error", "path", f.path, "error", err)
		}
	}
}

// Close marks the backend closed. The document stays on disk.
func (f *File) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *File) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", f.path, err)
	}
	items, err := f.codec.Unmarshal(data)
	if err != nil {
		return nil, &CodecError{Path: f.path, Err: err}
	}
	if items == nil {
		items = make(map[string]string)
	}
	return items, nil
}

func (f *File) writeLocked() error {
	data, err := f.codec.Marshal(f.items)
	if err != nil {
		return &CodecError{Path: f.path, Err: err}
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("storage: write %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("storage: write %s: %w", f.path, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("storage: replace %s: %w", f.path, err)
	}
	return nil
}

func diffKeys(before, after map[string]string) []string {
	changed := make(map[string]string)
	for k, v := range before {
		if nv, ok := after[k]; !ok || nv != v {
			changed[k] = ""
		}
	}
	for k := range after {
		if _, ok := before[k]; !ok {
			changed[k] = ""
		}
	}
	return sortedKeys(changed)
}
