package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed indicates the backend has been closed.
	ErrClosed = errors.New("storage: backend closed")

	// ErrUnknownFormat indicates a file extension or format name with no codec.
	ErrUnknownFormat = errors.New("storage: unknown format")
)

// Backend is a string key-value store. No atomicity across keys is assumed.
type Backend interface {
	// GetItem returns the value stored under key and whether it exists.
	GetItem(key string) (string, bool, error)

	// SetItem stores value under key.
	SetItem(key, value string) error

	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(key string) error
}

// Kind names the two well-known backends.
type Kind string

const (
	// Local is durable storage that survives restarts.
	Local Kind = "local"
	// Session is storage that lives as long as the process.
	Session Kind = "session"
)

// ParseKind converts a config value into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Local, "localStorage":
		return Local, nil
	case Session, "sessionStorage":
		return Session, nil
	}
	return "", fmt.Errorf("storage: unknown kind %q", s)
}

// CodecError wraps document encoding/decoding errors with the file path.
type CodecError struct {
	Path string
	Err  error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("storage: codec error for %q: %v", e.Path, e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}
