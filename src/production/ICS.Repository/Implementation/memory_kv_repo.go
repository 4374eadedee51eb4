package implementation

import (
	"context"
	"sort"
	"strings"
	"sync"

	interfaces "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Repository/Interfaces"
)

// MemoryKVStore keeps JSON-encoded values in process memory. Values are
// round-tripped through JSON so callers never share mutable state with it.
type MemoryKVStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{values: make(map[string][]byte)}
}

func (s *MemoryKVStore) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, interfaces.NewStoreError("get", key, err)
	}

	s.mu.RLock()
	raw, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := decodeValue(raw, dst); err != nil {
		return false, interfaces.NewStoreError("get", key, err)
	}
	return true, nil
}

func (s *MemoryKVStore) Put(ctx context.Context, key string, value interface{}) error {
	if err := ctx.Err(); err != nil {
		return interfaces.NewStoreError("put", key, err)
	}

	raw, err := encodeValue(value)
	if err != nil {
		return interfaces.NewStoreError("put", key, err)
	}

	s.mu.Lock()
	s.values[key] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryKVStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return interfaces.NewStoreError("delete", key, err)
	}

	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryKVStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, interfaces.NewStoreError("keys", prefix, err)
	}

	s.mu.RLock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryKVStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryKVStore) Close() error {
	return nil
}
