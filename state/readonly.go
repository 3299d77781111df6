package state

// Readonly hides the write half of a store.
func Readonly[T any](r Readable[T]) Readable[T] {
	if r == nil {
		return nil
	}
	if ro, ok := r.(readonly[T]); ok {
		return ro
	}
	return readonly[T]{src: r}
}

type readonly[T any] struct {
	src Readable[T]
}

func (r readonly[T]) Get() T { return r.src.Get() }
func (r readonly[T]) Value() any { return r.src.Value() }
func (r readonly[T]) Watch(fn func()) func() { return r.src.Watch(fn) }
func (r readonly[T]) Subscribe(fn func(T)) func() { return r.src.Subscribe(fn) }

func (r readonly[T]) SubscribeWithScheduler(scheduler Scheduler, fn func(T)) func() {
	return r.src.SubscribeWithScheduler(scheduler, fn)
}
