package icssync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	clock "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Clock"
	logger "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Logger"
	implementation "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Repository/Implementation"
	interfaces "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Repository/Interfaces"
)

var testDay = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store    interfaces.KVStore
	clock    *clock.Fake
	registry *implementation.KVDeviceRegistry
	backlog  *implementation.KVCommandBacklog
	sweeper  *Sweeper
	engine   *Engine
}

func newFixture(store interfaces.KVStore) *fixture {
	if store == nil {
		store = implementation.NewMemoryKVStore()
	}
	clk := clock.NewFake(testDay)
	log := logger.NewNopLogger()
	registry := implementation.NewKVDeviceRegistry(store, clk)
	backlog := implementation.NewKVCommandBacklog(store, clk)
	sweeper := NewSweeper(registry, backlog, clk, log)

	return &fixture{
		store:    store,
		clock:    clk,
		registry: registry,
		backlog:  backlog,
		sweeper:  sweeper,
		engine:   NewEngine(registry, backlog, sweeper, log),
	}
}

var errUnavailable = errors.New("connection refused")

// flakyStore fails reads and writes on keys with the configured prefixes.
type flakyStore struct {
	interfaces.KVStore

	mu       sync.Mutex
	failGet  string
	failPut  string
	failKeys bool
}

func (s *flakyStore) set(fn func(*flakyStore)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func (s *flakyStore) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	s.mu.Lock()
	fail := s.failGet != "" && strings.HasPrefix(key, s.failGet)
	s.mu.Unlock()
	if fail {
		return false, interfaces.NewStoreError("get", key, errUnavailable)
	}
	return s.KVStore.Get(ctx, key, dst)
}

func (s *flakyStore) Put(ctx context.Context, key string, value interface{}) error {
	s.mu.Lock()
	fail := s.failPut != "" && strings.HasPrefix(key, s.failPut)
	s.mu.Unlock()
	if fail {
		return interfaces.NewStoreError("put", key, errUnavailable)
	}
	return s.KVStore.Put(ctx, key, value)
}

func (s *flakyStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	fail := s.failKeys
	s.mu.Unlock()
	if fail {
		return nil, interfaces.NewStoreError("keys", prefix, errUnavailable)
	}
	return s.KVStore.Keys(ctx, prefix)
}
