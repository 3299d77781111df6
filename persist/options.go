package persist

import (
	"io"
	"log/slog"

	"github.com/odvcencio/superstore/storage"
)

// Init selects the backend and namespace for a persistable store.
type Init struct {
	Storage   storage.Backend
	Namespace string
}

// Key returns the storage key for identifier under this namespace.
func (i Init) Key(identifier string) string {
	if i.Namespace == "" {
		return identifier
	}
	return i.Namespace + ":" + identifier
}

type options struct {
	init   Init
	logger *slog.Logger
	equal  any
}

// Option configures a persistable store or binding.
type Option func(*options)

// WithInit sets backend and namespace together.
func WithInit(init Init) Option {
	return func(o *options) {
		o.init = init
	}
}

// WithBackend sets the storage backend.
func WithBackend(backend storage.Backend) Option {
	return func(o *options) {
		o.init.Storage = backend
	}
}

// WithNamespace prefixes the storage key with "namespace:".
func WithNamespace(namespace string) Option {
	return func(o *options) {
		o.init.Namespace = namespace
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

// WithEqual suppresses notifications and writes for values fn reports equal.
// New fails with ErrEqualType when T is not the store's value type. Bind
// ignores it; the bound writable keeps its own equality.
func WithEqual[T any](fn func(a, b T) bool) Option {
	return func(o *options) {
		o.equal = fn
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
