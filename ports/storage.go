package ports

import (
	"context"

	"sensetrack/domain/core"
)

// KeyValueStore is the persistence port behind the tracker. Values are opaque
// JSON documents stored under a small fixed set of keys.
type KeyValueStore interface {
	// Get returns core.ErrNotFound when the key has never been set
	Get(ctx context.Context, key core.StorageKey) ([]byte, error)
	Set(ctx context.Context, key core.StorageKey, value []byte) error
	// Remove is a no-op for a missing key
	Remove(ctx context.Context, key core.StorageKey) error
	Keys(ctx context.Context) ([]core.StorageKey, error)
}
