package state

import "sync"

// Subscriptions tracks and clears multiple unsubscribe callbacks.
type Subscriptions struct {
	mu     sync.Mutex
	unsubs []func()
	sched  Scheduler
}

// NewSubscriptions creates a Subscriptions with a default scheduler.
func NewSubscriptions(scheduler Scheduler) *Subscriptions {
	return &Subscriptions{sched: scheduler}
}

// Scheduler returns the default scheduler.
func (s *Subscriptions) Scheduler() Scheduler {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	scheduler := s.sched
	s.mu.Unlock()
	return scheduler
}

// Add registers an unsubscribe callback.
func (s *Subscriptions) Add(unsub func()) {
	if s == nil || unsub == nil {
		return
	}
	s.mu.Lock()
	s.unsubs = append(s.unsubs, unsub)
	s.mu.Unlock()
}

// Watch registers a change listener and tracks the unsubscribe.
// With a default scheduler set, fn runs through it.
func (s *Subscriptions) Watch(sub Subscribable, fn func()) {
	if s == nil || sub == nil || fn == nil {
		return
	}
	if scheduler := s.Scheduler(); scheduler != nil {
		inner := fn
		fn = func() { scheduler.Schedule(inner) }
	}
	s.Add(sub.Watch(fn))
}

// Observe subscribes fn to r using the default scheduler of subs and tracks
// the unsubscribe. fn receives the current value first.
func Observe[T any](subs *Subscriptions, r Readable[T], fn func(T)) {
	if subs == nil || r == nil || fn == nil {
		return
	}
	subs.Add(r.SubscribeWithScheduler(subs.Scheduler(), fn))
}

// Len returns the number of tracked subscriptions.
func (s *Subscriptions) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.unsubs)
}

// Clear unsubscribes all tracked callbacks.
func (s *Subscriptions) Clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()
	for _, unsub := range unsubs {
		if unsub != nil {
			unsub()
		}
	}
}
