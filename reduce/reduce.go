// Package reduce adds action dispatch to a store.
//
// A [Store] pairs a state.Writable with a pure [Reducer]. Dispatch runs the
// reducer inside the store's Update, so subscribers see the new state before
// Dispatch returns unless another goroutine is mid-notification, in which case
// that goroutine delivers it:
//
//	type kind string
//
//	counter := reduce.New(0, func(n int, a reduce.Action[kind]) int {
//		switch a.Type {
//		case "add":
//			delta, _ := reduce.PayloadAs[int](a)
//			return n + delta
//		}
//		return n
//	})
//	counter.Dispatch(reduce.NewAction[kind]("add", 5))
package reduce

import (
	"github.com/odvcencio/superstore/state"
)

// Action describes an intended state transition.
type Action[K ~string] struct {
	Type    K
	Payload any
}

// NewAction builds an action with a payload.
func NewAction[K ~string](typ K, payload any) Action[K] {
	return Action[K]{Type: typ, Payload: payload}
}

// PayloadAs returns the payload converted to P.
func PayloadAs[P any, K ~string](a Action[K]) (P, bool) {
	p, ok := a.Payload.(P)
	return p, ok
}

// Reducer computes the next state. It must not mutate state in place and
// should return state unchanged for action types it does not handle.
type Reducer[T any, K ~string] func(state T, action Action[K]) T

// Store is a writable store with a Dispatch method.
type Store[T any, K ~string] struct {
	store   state.Writable[T]
	reducer Reducer[T, K]
}

// Option configures a Store.
type Option[T any] func(*config[T])

type config[T any] struct {
	initializer func(T) T
	equal       state.EqualFunc[T]
}

// WithInitializer runs fn once through Update after the store is built.
func WithInitializer[T any](fn func(T) T) Option[T] {
	return func(c *config[T]) {
		c.initializer = fn
	}
}

// WithEqual suppresses notifications for states fn reports equal.
// It applies only to stores built by New.
func WithEqual[T any](fn state.EqualFunc[T]) Option[T] {
	return func(c *config[T]) {
		c.equal = fn
	}
}

// New creates a store holding initial.
func New[T any, K ~string](initial T, reducer Reducer[T, K], opts ...Option[T]) *Store[T, K] {
	cfg := buildConfig(opts)
	sig := state.NewSignal(initial)
	if cfg.equal != nil {
		sig.SetEqualFunc(cfg.equal)
	}
	return wrap(sig, reducer, cfg)
}

// Wrap adds Dispatch to an existing writable store.
func Wrap[T any, K ~string](w state.Writable[T], reducer Reducer[T, K], opts ...Option[T]) *Store[T, K] {
	return wrap(w, reducer, buildConfig(opts))
}

func wrap[T any, K ~string](w state.Writable[T], reducer Reducer[T, K], cfg config[T]) *Store[T, K] {
	if reducer == nil {
		reducer = func(s T, _ Action[K]) T { return s }
	}
	s := &Store[T, K]{store: w, reducer: reducer}
	if cfg.initializer != nil {
		w.Update(cfg.initializer)
	}
	return s
}

func buildConfig[T any](opts []Option[T]) config[T] {
	var cfg config[T]
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Dispatch applies the reducer to the current state. A panicking reducer
// propagates and leaves the state untouched. When dispatches race on several
// goroutines, a dispatch may return before subscribers see its state; they
// still see every state in commit order.
func (s *Store[T, K]) Dispatch(action Action[K]) {
	s.store.Update(func(current T) T {
		return s.reducer(current, action)
	})
}

// Get returns the current state.
func (s *Store[T, K]) Get() T {
	return s.store.Get()
}

// Value returns the current state as any.
func (s *Store[T, K]) Value() any {
	return s.store.Value()
}

// Set replaces the state without going through the reducer.
func (s *Store[T, K]) Set(value T) bool {
	return s.store.Set(value)
}

// Update replaces the state with fn(current).
func (s *Store[T, K]) Update(fn func(T) T) bool {
	return s.store.Update(fn)
}

// Subscribe delivers the current state to fn, then every change.
func (s *Store[T, K]) Subscribe(fn func(T)) func() {
	return s.store.Subscribe(fn)
}

// SubscribeWithScheduler registers fn using a scheduler.
func (s *Store[T, K]) SubscribeWithScheduler(scheduler state.Scheduler, fn func(T)) func() {
	return s.store.SubscribeWithScheduler(scheduler, fn)
}

// Watch registers fn for subsequent changes only.
func (s *Store[T, K]) Watch(fn func()) func() {
	return s.store.Watch(fn)
}

// Fold applies actions to initial in order.
func Fold[T any, K ~string](initial T, reducer Reducer[T, K], actions ...Action[K]) T {
	current := initial
	for _, a := range actions {
		current = reducer(current, a)
	}
	return current
}

var _ state.Writable[int] = (*Store[int, string])(nil)
