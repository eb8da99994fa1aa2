// Package kvstore provides the durable key-value substrate used to carry
// reminder records and stage configurations between scheduling and lifecycle
// calls. Entries expire after a TTL. Pop removes the entry, so callers that
// want to keep a value re-stash it immediately after reading, which also
// refreshes the TTL.
package kvstore

import (
	"context"
	"time"
)

// Store is the narrow contract the reminder core needs from persistence.
type Store interface {
	// Stash writes value under key with the given TTL, replacing any
	// previous value.
	Stash(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Pop reads and removes the value under key. A missing or expired key
	// returns (nil, nil).
	Pop(ctx context.Context, key string) ([]byte, error)
}
