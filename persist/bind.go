package persist

import (
	"sync"

	"github.com/odvcencio/superstore/state"
)

// Binding mirrors an existing writable store into storage.
// Because the write happens in a subscriber, errors cannot reach the caller
// of Set; they are kept in Err and logged.
type Binding[T any] struct {
	target state.Writable[T]
	mirror *mirror[T]
	unsub  func()

	mu  sync.Mutex
	err error
}

// Bind adopts a valid stored value into w, then writes every value of w to
// storage, starting with the current one. The first write error is returned.
func Bind[T any](w state.Writable[T], identifier string, opts ...Option) (*Binding[T], error) {
	o := buildOptions(opts)
	m, err := newMirror[T](identifier, o)
	if err != nil {
		return nil, err
	}
	if stored, ok := m.load(); ok {
		w.Set(stored)
	}

	b := &Binding[T]{target: w, mirror: m}
	b.unsub = w.Subscribe(b.persist)
	if err := b.Err(); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *Binding[T]) persist(value T) {
	err := b.mirror.write(value)
	if err != nil {
		b.mirror.logger.Error("persist write failed", "key", b.mirror.key, "error", err)
	}
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()
}

// Err returns the result of the most recent write.
func (b *Binding[T]) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Key returns the storage key.
func (b *Binding[T]) Key() string {
	return b.mirror.key
}

// Clear removes the key from storage without touching the store.
func (b *Binding[T]) Clear() error {
	return b.mirror.clear()
}

// Reload adopts the stored value into the bound store.
func (b *Binding[T]) Reload() (bool, error) {
	value, ok, err := b.mirror.read()
	if err != nil || !ok {
		return false, err
	}
	b.target.Set(value)
	return true, nil
}

// Close stops mirroring. Stored data is left in place.
func (b *Binding[T]) Close() {
	if b.unsub != nil {
		b.unsub()
	}
}
