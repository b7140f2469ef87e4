// Package storage is the durable per-origin key/value store
// shared by every console surface: the localStorage analogue.
// Writers treat it as last-writer-wins ; propagation between
// surfaces is the broadcast bus' job, never storage polling.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound indicates the key has no durable value.
var ErrNotFound = errors.New("storage: key not found")

// Store. Durable key/value access.
type Store interface {
	// Get returns the value of [key] ; ErrNotFound if absent.
	Get(ctx context.Context, key string) (string, error)
	// Set writes [value] under [key] ; last-writer-wins.
	Set(ctx context.Context, key, value string) error
	// Del removes [key] ; no error if absent.
	Del(ctx context.Context, key string) error
}

// IsNotFound reports whether [err] is the absent-key outcome.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
