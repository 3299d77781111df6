package state

import "sync"

// Derived holds a value computed from other stores.
type Derived[T any] struct {
	signal    *Signal[T]
	compute   func() T
	mu        sync.Mutex
	unsubs    []func()
	scheduler Scheduler
}

// NewDerived creates a derived value from dependencies.
func NewDerived[T any](compute func() T, deps ...Subscribable) *Derived[T] {
	return NewDerivedWithScheduler(nil, compute, deps...)
}

// NewDerivedWithScheduler creates a derived value and schedules recomputes.
func NewDerivedWithScheduler[T any](scheduler Scheduler, compute func() T, deps ...Subscribable) *Derived[T] {
	if compute == nil {
		compute = func() T {
			var zero T
			return zero
		}
	}
	d := &Derived[T]{
		signal:    NewSignal(compute()),
		compute:   compute,
		scheduler: scheduler,
	}
	for _, dep := range deps {
		if dep == nil {
			continue
		}
		if unsub := dep.Watch(d.enqueueRecompute); unsub != nil {
			d.unsubs = append(d.unsubs, unsub)
		}
	}
	return d
}

// SetEqualFunc configures the equality check used to suppress redundant updates.
func (d *Derived[T]) SetEqualFunc(fn EqualFunc[T]) {
	if d == nil {
		return
	}
	d.signal.SetEqualFunc(fn)
}

// Get returns the current derived value.
func (d *Derived[T]) Get() T {
	if d == nil {
		var zero T
		return zero
	}
	return d.signal.Get()
}

// Value returns the current derived value as any.
func (d *Derived[T]) Value() any {
	return d.Get()
}

// Subscribe registers fn and delivers the current value immediately.
func (d *Derived[T]) Subscribe(fn func(T)) func() {
	if d == nil {
		return func() {}
	}
	return d.signal.Subscribe(fn)
}

// SubscribeWithScheduler registers fn using a scheduler.
func (d *Derived[T]) SubscribeWithScheduler(scheduler Scheduler, fn func(T)) func() {
	if d == nil {
		return func() {}
	}
	return d.signal.SubscribeWithScheduler(scheduler, fn)
}

// Watch registers fn for subsequent changes only.
func (d *Derived[T]) Watch(fn func()) func() {
	if d == nil {
		return func() {}
	}
	return d.signal.Watch(fn)
}

// Stop unsubscribes from dependency updates.
func (d *Derived[T]) Stop() {
	if d == nil {
		return
	}
	d.mu.Lock()
	unsubs := d.unsubs
	d.unsubs = nil
	d.mu.Unlock()
	for _, unsub := range unsubs {
		if unsub != nil {
			unsub()
		}
	}
}

func (d *Derived[T]) recompute() {
	d.signal.Set(d.compute())
}

func (d *Derived[T]) enqueueRecompute() {
	if d.scheduler == nil {
		d.recompute()
		return
	}
	d.scheduler.Schedule(d.recompute)
}
