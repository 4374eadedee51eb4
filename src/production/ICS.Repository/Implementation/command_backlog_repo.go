package implementation

import (
	"context"
	"strings"
	"sync"

	clock "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Clock"
	interfaces "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Repository/Interfaces"
)

// KVCommandBacklog keeps one append-only list per calendar day under
// commands:<YYYY-MM-DD>.
//
// Enqueue is a read-modify-write. The mutex serializes writers inside this
// process only; writers in other processes can still lose an update.
type KVCommandBacklog struct {
	store interfaces.KVStore
	clock clock.Clock
	mu    sync.Mutex
}

func NewKVCommandBacklog(store interfaces.KVStore, clk clock.Clock) *KVCommandBacklog {
	return &KVCommandBacklog{store: store, clock: clk}
}

func (b *KVCommandBacklog) Enqueue(ctx context.Context, commands ...string) error {
	if len(commands) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	key := commandKey(clock.DayKey(b.clock.Now()))
	partition, err := b.load(ctx, key)
	if err != nil {
		return err
	}

	partition = append(partition, commands...)
	return b.store.Put(ctx, key, partition)
}

func (b *KVCommandBacklog) CurrentPartition(ctx context.Context) ([]string, error) {
	return b.load(ctx, commandKey(clock.DayKey(b.clock.Now())))
}

func (b *KVCommandBacklog) SweepOlderThanToday(ctx context.Context) (int, error) {
	keys, err := b.store.Keys(ctx, commandPrefix)
	if err != nil {
		return 0, err
	}

	today := clock.DayKey(b.clock.Now())
	removed := 0
	for _, key := range keys {
		day := strings.TrimPrefix(key, commandPrefix)
		// leave anything that is not a day partition alone
		if _, err := clock.ParseDayKey(day); err != nil {
			continue
		}
		if day >= today {
			continue
		}
		if err := b.store.Delete(ctx, key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (b *KVCommandBacklog) load(ctx context.Context, key string) ([]string, error) {
	partition := []string{}
	if _, err := b.store.Get(ctx, key, &partition); err != nil {
		return nil, err
	}
	if partition == nil {
		partition = []string{}
	}
	return partition, nil
}
