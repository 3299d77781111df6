package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/odvcencio/superstore/state"
)

// ErrPanic wraps a panic recovered from a handler.
var ErrPanic = errors.New("async: handler panicked")

// Handler produces a result from the current dependency values.
type Handler[R any] func(ctx context.Context, values []any) (R, error)

// Tracker exposes the lifecycle of an async handler as three stores.
type Tracker[R any] struct {
	Loading state.Readable[bool]
	Error   state.Readable[error]
	Data    state.Readable[*R]

	loading *state.Signal[bool]
	err     *state.Signal[error]
	data    *state.Signal[*R]

	handler Handler[R]
	inputs  *state.Derived[[]any]
	opts    options
	subs    state.Subscriptions
	serial  state.Serial
	wg      sync.WaitGroup

	// cancel is only touched from callbacks run by serial.
	cancel context.CancelFunc

	mu      sync.Mutex
	current ulid.ULID
	closed  bool
	stop    context.CancelFunc
	base    context.Context
}

// New tracks a handler without dependencies. It runs exactly once.
func New[R any](handler func(ctx context.Context) (R, error), opts ...Option) *Tracker[R] {
	return NewN(nil, func(ctx context.Context, _ []any) (R, error) {
		return handler(ctx)
	}, opts...)
}

// New1 tracks a handler driven by one dependency.
func New1[A, R any](a state.Readable[A], handler func(ctx context.Context, a A) (R, error), opts ...Option) *Tracker[R] {
	return NewN([]state.Dependency{a}, func(ctx context.Context, values []any) (R, error) {
		va, _ := values[0].(A)
		return handler(ctx, va)
	}, opts...)
}

// New2 tracks a handler driven by two dependencies.
func New2[A, B, R any](a state.Readable[A], b state.Readable[B], handler func(ctx context.Context, a A, b B) (R, error), opts ...Option) *Tracker[R] {
	return NewN([]state.Dependency{a, b}, func(ctx context.Context, values []any) (R, error) {
		va, _ := values[0].(A)
		vb, _ := values[1].(B)
		return handler(ctx, va, vb)
	}, opts...)
}

// NewN tracks a handler driven by any number of dependencies. The handler
// receives their values in order. The first run starts before NewN returns.
func NewN[R any](deps []state.Dependency, handler Handler[R], opts ...Option) *Tracker[R] {
	o := buildOptions(opts)
	t := &Tracker[R]{
		loading: state.NewSignal(false),
		err:     state.NewSignal[error](nil),
		data:    state.NewSignal[*R](nil),
		handler: handler,
		opts:    o,
	}
	t.loading.SetEqualFunc(state.EqualComparable[bool])
	t.err.SetEqualFunc(bothNil)
	t.Loading = state.Readonly[bool](t.loading)
	t.Error = state.Readonly[error](t.err)
	t.Data = state.Readonly[*R](t.data)
	t.base, t.stop = context.WithCancel(o.ctx)

	var live []state.Dependency
	var watched []state.Subscribable
	for _, dep := range deps {
		if dep == nil {
			continue
		}
		live = append(live, dep)
		watched = append(watched, dep)
	}
	t.inputs = state.NewDerived(func() []any {
		values := make([]any, len(live))
		for i, dep := range live {
			values[i] = dep.Value()
		}
		return values
	}, watched...)
	t.subs.Add(t.inputs.Stop)
	t.subs.Watch(t.inputs, t.trigger)
	t.trigger()
	return t
}

func bothNil(a, b error) bool {
	return a == nil && b == nil
}

// Invocation returns the id of the most recent run.
func (t *Tracker[R]) Invocation() ulid.ULID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Wait blocks until every triggered handler has returned and handed its
// settlement to the scheduler. Dependency writes racing a Wait that finds no
// run pending are not waited for; write dependencies before calling Wait.
func (t *Tracker[R]) Wait() {
	t.wg.Wait()
}

// Close stops reacting to dependencies and cancels in-flight runs. Results
// arriving after Close are dropped.
func (t *Tracker[R]) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()
	t.subs.Clear()
	t.stop()
}

func (t *Tracker[R]) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Tracker[R]) trigger() {
	if t.isClosed() {
		return
	}
	t.wg.Add(1)
	t.serial.Schedule(t.start)
}

// start begins a new run with the dependency values current at this point.
// It owns the WaitGroup slot taken by trigger.
func (t *Tracker[R]) start() {
	if t.isClosed() {
		t.wg.Done()
		return
	}
	values := t.inputs.Get()

	if t.cancel != nil && !t.opts.lastWriteWins {
		t.cancel()
	}
	id := ulid.Make()
	ctx, cancel := context.WithCancel(t.base)
	t.mu.Lock()
	t.current = id
	t.mu.Unlock()
	t.cancel = cancel

	t.opts.logger.Debug("async run started", "invocation", id.String(), "deps", len(values))
	t.err.Set(nil)
	t.loading.Set(true)

	go t.invoke(ctx, cancel, id, values)
}

func (t *Tracker[R]) invoke(ctx context.Context, cancel context.CancelFunc, id ulid.ULID, values []any) {
	defer t.wg.Done()
	defer cancel()

	result, err := t.call(ctx, values)
	t.opts.scheduler.Schedule(func() {
		t.serial.Schedule(func() {
			t.settle(id, result, err)
		})
	})
}

func (t *Tracker[R]) call(ctx context.Context, values []any) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return t.handler(ctx, values)
}

func (t *Tracker[R]) settle(id ulid.ULID, result R, err error) {
	logger := t.opts.logger.With(slog.String("invocation", id.String()))
	t.mu.Lock()
	closed, current := t.closed, t.current
	t.mu.Unlock()
	if closed {
		logger.Debug("async result dropped after close")
		return
	}
	if id != current && !t.opts.lastWriteWins {
		logger.Debug("async result superseded", "current", current.String())
		return
	}
	if err != nil {
		logger.Debug("async run failed", "error", err)
		t.err.Set(err)
	} else {
		logger.Debug("async run resolved")
		t.data.Set(&result)
	}
	t.loading.Set(false)
}
