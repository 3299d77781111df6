package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/odvcencio/superstore/state"
	"github.com/odvcencio/superstore/storage"
)

var (
	// ErrNoBackend indicates no storage backend was configured.
	ErrNoBackend = errors.New("persist: no storage backend")

	// ErrEmptyIdentifier indicates an empty store identifier.
	ErrEmptyIdentifier = errors.New("persist: empty identifier")

	// ErrEqualType indicates a WithEqual func for a different value type.
	ErrEqualType = errors.New("persist: equal func does not match store type")
)

// Store is a writable store whose value is mirrored into a storage backend
// as JSON. It satisfies state.Readable; Set and Update return storage errors.
type Store[T any] struct {
	signal  *state.Signal[T]
	mirror  *mirror[T]
	writeMu sync.Mutex
}

// New creates a persistable store. A valid JSON value already stored under
// the key wins over initial; absent or malformed data falls back to initial.
// The resulting value is written to storage before New returns.
func New[T any](initial T, identifier string, opts ...Option) (*Store[T], error) {
	o := buildOptions(opts)
	m, err := newMirror[T](identifier, o)
	if err != nil {
		return nil, err
	}

	value := initial
	if stored, ok := m.load(); ok {
		value = stored
	}

	s := &Store[T]{
		signal: state.NewSignal(value),
		mirror: m,
	}
	if o.equal != nil {
		eq, ok := o.equal.(func(a, b T) bool)
		if !ok {
			return nil, fmt.Errorf("%w: got %T", ErrEqualType, o.equal)
		}
		s.signal.SetEqualFunc(eq)
	}
	if err := s.writeCurrent(); err != nil {
		return nil, err
	}
	return s, nil
}

// Key returns the storage key.
func (s *Store[T]) Key() string {
	return s.mirror.key
}

// Get returns the in-memory value.
func (s *Store[T]) Get() T {
	return s.signal.Get()
}

// Value returns the in-memory value as any.
func (s *Store[T]) Value() any {
	return s.signal.Get()
}

// Subscribe delivers the current value to fn, then every change.
func (s *Store[T]) Subscribe(fn func(T)) func() {
	return s.signal.Subscribe(fn)
}

// SubscribeWithScheduler registers fn using a scheduler.
func (s *Store[T]) SubscribeWithScheduler(scheduler state.Scheduler, fn func(T)) func() {
	return s.signal.SubscribeWithScheduler(scheduler, fn)
}

// Watch registers fn for subsequent changes only.
func (s *Store[T]) Watch(fn func()) func() {
	return s.signal.Watch(fn)
}

// Set stores value, notifies subscribers and writes it to storage.
func (s *Store[T]) Set(value T) error {
	if !s.signal.Set(value) {
		return nil
	}
	return s.writeCurrent()
}

// Update replaces the value with fn(current) and writes it to storage.
func (s *Store[T]) Update(fn func(T) T) error {
	if !s.signal.Update(fn) {
		return nil
	}
	return s.writeCurrent()
}

// Clear removes the key from storage. The in-memory value is kept, so the
// two diverge until the next Set or Update.
func (s *Store[T]) Clear() error {
	return s.mirror.clear()
}

// Reload adopts the stored value if one is present and valid. It reports
// whether the in-memory value was replaced.
func (s *Store[T]) Reload() (bool, error) {
	value, ok, err := s.mirror.read()
	if err != nil || !ok {
		return false, err
	}
	s.signal.Set(value)
	return true, nil
}

// writeCurrent writes the latest in-memory value, so concurrent writers
// leave storage matching the store.
func (s *Store[T]) writeCurrent() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.mirror.write(s.signal.Get())
}

// mirror moves values of one key between a store and a backend.
type mirror[T any] struct {
	backend storage.Backend
	key     string
	logger  *slog.Logger
}

func newMirror[T any](identifier string, o options) (*mirror[T], error) {
	if o.init.Storage == nil {
		return nil, ErrNoBackend
	}
	if identifier == "" {
		return nil, ErrEmptyIdentifier
	}
	return &mirror[T]{
		backend: o.init.Storage,
		key:     o.init.Key(identifier),
		logger:  o.logger,
	}, nil
}

// load reads the stored value for construction; every failure is a miss.
func (m *mirror[T]) load() (T, bool) {
	value, ok, err := m.read()
	if err != nil {
		m.logger.Debug("ignoring stored value", "key", m.key, "error", err)
		var zero T
		return zero, false
	}
	return value, ok
}

func (m *mirror[T]) read() (T, bool, error) {
	var value T
	raw, ok, err := m.backend.GetItem(m.key)
	if err != nil {
		return value, false, fmt.Errorf("persist: read %q: %w", m.key, err)
	}
	if !ok {
		return value, false, nil
	}
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return value, false, nil
	}
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return value, false, fmt.Errorf("persist: decode %q: %w", m.key, err)
	}
	return value, true, nil
}

func (m *mirror[T]) write(value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("persist: encode %q: %w", m.key, err)
	}
	if err := m.backend.SetItem(m.key, string(data)); err != nil {
		return fmt.Errorf("persist: write %q: %w", m.key, err)
	}
	return nil
}

func (m *mirror[T]) clear() error {
	if err := m.backend.RemoveItem(m.key); err != nil {
		return fmt.Errorf("persist: clear %q: %w", m.key, err)
	}
	return nil
}

var _ state.Readable[int] = (*Store[int])(nil)
