// Package cache holds the process-lifetime health scratch space consulted by
// the combat resolver before it falls back to the durable store.
//
// Implementations only synchronise individual calls. Nothing makes a Get
// followed by a Set atomic, and callers must not assume otherwise.
package cache

import (
	"context"
	"errors"
)

// ErrKeyMissing is returned by Remove when the id has no entry.
var ErrKeyMissing = errors.New("cache key missing")

// Cache maps a combatant id to its last observed health.
type Cache interface {
	// Get returns the cached health and whether an entry was present.
	Get(ctx context.Context, id int) (int, bool, error)
	// Set overwrites the entry for id. Last writer wins.
	Set(ctx context.Context, id, health int) error
	// Remove deletes the entry for id or returns ErrKeyMissing.
	Remove(ctx context.Context, id int) error
}
