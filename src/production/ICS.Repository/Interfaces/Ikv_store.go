package interfaces

import "context"

// KVStore is the durable key-value abstraction the sync engine persists
// through. Values are JSON encoded.
type KVStore interface {
	// Get decodes the value stored at key into dst. found is false when the
	// key does not exist.
	Get(ctx context.Context, key string, dst interface{}) (found bool, err error)

	// Put stores value at key, replacing any previous value
	Put(ctx context.Context, key string, value interface{}) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists keys starting with prefix in ascending order
	Keys(ctx context.Context, prefix string) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}
