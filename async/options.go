package async

import (
	"context"
	"io"
	"log/slog"

	"github.com/odvcencio/superstore/state"
)

type options struct {
	scheduler     state.Scheduler
	lastWriteWins bool
	logger        *slog.Logger
	ctx           context.Context
}

// Option configures a Tracker.
type Option func(*options)

// WithScheduler routes settlements through scheduler. Defaults to running
// them on the handler goroutine.
func WithScheduler(scheduler state.Scheduler) Option {
	return func(o *options) {
		o.scheduler = scheduler
	}
}

// WithLastWriteWins applies results in completion order, even from runs a
// newer trigger has superseded. Superseded runs are not cancelled.
func WithLastWriteWins() Option {
	return func(o *options) {
		o.lastWriteWins = true
	}
}

// WithLogger sets the logger. Defaults to discarding output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithContext sets the parent context of every handler run.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		scheduler: state.DirectScheduler,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		ctx:       context.Background(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.scheduler == nil {
		o.scheduler = state.DirectScheduler
	}
	return o
}
