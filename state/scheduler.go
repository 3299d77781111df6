package state

import (
	"context"
	"sync"
)

// Scheduler dispatches subscription callbacks and async settlements.
type Scheduler interface {
	Schedule(fn func())
}

// SchedulerFunc adapts a function into a Scheduler.
type SchedulerFunc func(func())

// Schedule dispatches fn using the wrapped function.
func (f SchedulerFunc) Schedule(fn func()) {
	if f == nil || fn == nil {
		return
	}
	f(fn)
}

// DirectScheduler runs callbacks immediately in the caller goroutine.
var DirectScheduler Scheduler = SchedulerFunc(func(fn func()) {
	if fn != nil {
		fn()
	}
})

// Queue batches callbacks for explicit flushing.
type Queue struct {
	mu      sync.Mutex
	pending []func()
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Schedule enqueues a callback for later flushing. It never blocks.
func (q *Queue) Schedule(fn func()) {
	if q == nil || fn == nil {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
}

// Len returns the number of queued callbacks.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Flush executes queued callbacks in order and returns the count.
// Callbacks scheduled while flushing run on the next Flush.
func (q *Queue) Flush() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
	return len(pending)
}

// Serial runs callbacks one at a time in scheduling order. The first caller
// drains the queue on its own goroutine; callbacks scheduled while draining,
// from the drain itself or from other goroutines, run after the current one.
type Serial struct {
	mu       sync.Mutex
	pending  []func()
	draining bool
}

// Schedule runs fn now if the queue is idle, otherwise after queued work.
func (s *Serial) Schedule(fn func()) {
	if s == nil || fn == nil {
		return
	}
	s.mu.Lock()
	s.pending = append(s.pending, fn)
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.draining = false
			s.mu.Unlock()
			panic(r)
		}
	}()
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending[0] = nil
		s.pending = s.pending[1:]
		s.mu.Unlock()
		next()
		s.mu.Lock()
	}
	s.pending = nil
	s.draining = false
	s.mu.Unlock()
}

// Loop runs scheduled callbacks one at a time on the goroutine calling Run.
// It gives store updates coming from many goroutines a single owner.
type Loop struct {
	queue Queue
	wake  chan struct{}
}

// NewLoop creates an idle loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Schedule enqueues fn and wakes the loop.
func (l *Loop) Schedule(fn func()) {
	if l == nil || fn == nil {
		return
	}
	l.queue.Schedule(fn)
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes callbacks until ctx is done. Callbacks still queued when ctx
// ends are left in place for a later Run.
func (l *Loop) Run(ctx context.Context) error {
	if l == nil {
		return nil
	}
	for {
		for l.queue.Flush() > 0 {
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}
