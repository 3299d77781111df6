package state

// Subscribable emits change notifications without exposing the value type.
type Subscribable interface {
	// Watch registers fn for every subsequent change. It does not fire for
	// the current value.
	Watch(fn func()) func()
}

// Dependency is a type-erased store used to drive derived and async values.
type Dependency interface {
	Subscribable
	Value() any
}

// Readable exposes read-only reactive state.
type Readable[T any] interface {
	Dependency
	Get() T
	// Subscribe delivers the current value to fn immediately, then every
	// subsequent value. The returned func unsubscribes.
	Subscribe(fn func(T)) func()
	SubscribeWithScheduler(scheduler Scheduler, fn func(T)) func()
}

// Writable exposes read/write reactive state.
type Writable[T any] interface {
	Readable[T]
	Set(value T) bool
	Update(fn func(T) T) bool
}
