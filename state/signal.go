// Package state provides the reactive store primitive the wrappers build on.
//
// A [Signal] holds one value. Subscribers receive the current value as soon as
// they subscribe and every later value in subscription order. Writes issued
// while a notification round is running (from a subscriber or another
// goroutine) are queued and delivered after it, so all subscribers observe the
// same sequence.
package state

import (
	"sync"
	"sync/atomic"
)

// EqualFunc compares two values for equality.
type EqualFunc[T any] func(a, b T) bool

// EqualComparable compares comparable values with ==.
func EqualComparable[T comparable](a, b T) bool {
	return a == b
}

type subscriber[T any] struct {
	id        int
	since     uint64 // last commit the subscriber had already seen
	fn        func(T)
	scheduler Scheduler
	active    atomic.Bool
}

func (s *subscriber[T]) deliver(value T) {
	if !s.active.Load() {
		return
	}
	if s.scheduler == nil {
		s.fn(value)
		return
	}
	s.scheduler.Schedule(func() {
		if s.active.Load() {
			s.fn(value)
		}
	})
}

// Signal holds a value and notifies subscribers on change.
type Signal[T any] struct {
	write sync.Mutex // serializes Set/Update commits

	mu        sync.Mutex
	value     T
	subs      []*subscriber[T]
	next      int
	equal     EqualFunc[T]
	seq       uint64
	pending   []pending[T]
	notifying bool
}

type pending[T any] struct {
	value T
	seq   uint64
}

// NewSignal creates a new signal with an initial value.
func NewSignal[T any](initial T) *Signal[T] {
	return &Signal[T]{value: initial}
}

// SetEqualFunc configures the equality check used to suppress redundant updates.
func (s *Signal[T]) SetEqualFunc(fn EqualFunc[T]) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.equal = fn
	s.mu.Unlock()
}

// Get returns the current value.
func (s *Signal[T]) Get() T {
	if s == nil {
		var zero T
		return zero
	}
	s.mu.Lock()
	value := s.value
	s.mu.Unlock()
	return value
}

// Value returns the current value as any.
func (s *Signal[T]) Value() any {
	return s.Get()
}

// Set stores value and notifies subscribers. It reports false when the
// equality func considers value unchanged. If another goroutine is already
// notifying, Set returns and that goroutine delivers value.
func (s *Signal[T]) Set(value T) bool {
	if s == nil {
		return false
	}
	s.write.Lock()
	changed := s.commit(value)
	s.write.Unlock()
	if changed {
		s.flush()
	}
	return changed
}

// Update replaces the value with fn(current).
// Updates are serialized; fn must not write to the same signal. If fn panics
// the value is left untouched and the panic propagates.
func (s *Signal[T]) Update(fn func(T) T) bool {
	if s == nil || fn == nil {
		return false
	}
	changed := s.apply(fn)
	if changed {
		s.flush()
	}
	return changed
}

func (s *Signal[T]) apply(fn func(T) T) bool {
	s.write.Lock()
	defer s.write.Unlock()
	return s.commit(fn(s.Get()))
}

func (s *Signal[T]) commit(value T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.equal != nil && s.equal(s.value, value) {
		return false
	}
	s.value = value
	s.seq++
	s.pending = append(s.pending, pending[T]{value: value, seq: s.seq})
	return true
}

// flush delivers queued values. Only one goroutine drains at a time; others
// leave their values to the active drain. A subscriber only receives values
// committed after it subscribed.
func (s *Signal[T]) flush() {
	s.mu.Lock()
	if s.notifying {
		s.mu.Unlock()
		return
	}
	s.notifying = true
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.notifying = false
			s.pending = nil
			s.mu.Unlock()
			panic(r)
		}
	}()
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending[0] = pending[T]{}
		s.pending = s.pending[1:]
		subs := s.copySubscribersLocked()
		s.mu.Unlock()

		for _, sub := range subs {
			if sub.since >= next.seq {
				continue
			}
			sub.deliver(next.value)
		}

		s.mu.Lock()
	}
	s.pending = nil
	s.notifying = false
	s.mu.Unlock()
}

// Subscribe registers fn and delivers the current value to it synchronously.
func (s *Signal[T]) Subscribe(fn func(T)) func() {
	return s.SubscribeWithScheduler(nil, fn)
}

// SubscribeWithScheduler registers fn using a scheduler.
// If scheduler is nil, callbacks run synchronously.
func (s *Signal[T]) SubscribeWithScheduler(scheduler Scheduler, fn func(T)) func() {
	if s == nil || fn == nil {
		return func() {}
	}
	sub, current := s.add(fn, scheduler)
	sub.deliver(current)
	return s.remover(sub)
}

// Watch registers fn for subsequent changes only.
func (s *Signal[T]) Watch(fn func()) func() {
	if s == nil || fn == nil {
		return func() {}
	}
	sub, _ := s.add(func(T) { fn() }, nil)
	return s.remover(sub)
}

func (s *Signal[T]) add(fn func(T), scheduler Scheduler) (*subscriber[T], T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := &subscriber[T]{id: s.next, since: s.seq, fn: fn, scheduler: scheduler}
	sub.active.Store(true)
	s.next++
	s.subs = append(s.subs, sub)
	return sub, s.value
}

func (s *Signal[T]) remover(sub *subscriber[T]) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			s.mu.Lock()
			for i, existing := range s.subs {
				if existing.id == sub.id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					break
				}
			}
			s.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscribers.
func (s *Signal[T]) Subscribers() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Signal[T]) copySubscribersLocked() []*subscriber[T] {
	if len(s.subs) == 0 {
		return nil
	}
	subs := make([]*subscriber[T], len(s.subs))
	copy(subs, s.subs)
	return subs
}
