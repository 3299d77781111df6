package persist

import (
	"context"
	"log/slog"
)

// Watcher reports keys changed by another writer of a backend.
// *storage.File implements it.
type Watcher interface {
	Watch(ctx context.Context, fn func(keys []string)) error
}

// Reloader is a persisted store that can re-read its key.
type Reloader interface {
	Key() string
	Reload() (bool, error)
}

// Follow reloads stores whose keys change in the watched backend until ctx
// is done. Reload errors are logged and do not stop following.
func Follow(ctx context.Context, w Watcher, logger *slog.Logger, stores ...Reloader) error {
	if logger == nil {
		logger = slog.Default()
	}
	byKey := make(map[string][]Reloader, len(stores))
	for _, s := range stores {
		if s != nil {
			byKey[s.Key()] = append(byKey[s.Key()], s)
		}
	}
	return w.Watch(ctx, func(keys []string) {
		for _, key := range keys {
			for _, s := range byKey[key] {
				if _, err := s.Reload(); err != nil {
					logger.Warn("persist reload failed", "key", key, "error", err)
				}
			}
		}
	})
}
