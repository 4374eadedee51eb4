package icssync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	implementation "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Repository/Implementation"
	interfaces "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Repository/Interfaces"
)

func TestSweeper_DayRollover(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)

	require.NoError(t, f.engine.Enqueue(ctx, "CMD_A"))
	_, err := f.engine.Handshake(ctx, "ZK001")
	require.NoError(t, err)
	assert.Equal(t, []string{"CMD_A"}, dispatchAll(t, f.engine, "ZK001"))

	f.clock.Advance(24 * time.Hour)

	result, ran, err := f.sweeper.SweepIfDue(ctx)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, SweepResult{Partitions: 1, Devices: 1}, result)

	keys, err := f.store.Keys(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, ran, err = f.sweeper.SweepIfDue(ctx)
	require.NoError(t, err)
	assert.False(t, ran, "second sweep on the same day is skipped")
}

func TestSweeper_KeepsSameDayState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)

	require.NoError(t, f.engine.Enqueue(ctx, "CMD_A"))
	_, err := f.engine.Handshake(ctx, "ZK001")
	require.NoError(t, err)

	result, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, result)

	partition, err := f.backlog.CurrentPartition(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"CMD_A"}, partition)

	device, err := f.registry.GetDevice(ctx, "ZK001")
	require.NoError(t, err)
	assert.NotNil(t, device)
}

func TestSweeper_NewDayStartsFresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)

	require.NoError(t, f.engine.Enqueue(ctx, "CMD_A"))
	dispatchAll(t, f.engine, "ZK001")

	f.clock.Advance(24 * time.Hour)
	_, err := f.engine.Handshake(ctx, "ZK001")
	require.NoError(t, err)

	device, err := f.registry.GetDevice(ctx, "ZK001")
	require.NoError(t, err)
	require.NotNil(t, device)
	assert.Empty(t, device.DeliveredCommands)
	assert.Equal(t, f.clock.Now(), device.CreatedAt)

	require.NoError(t, f.engine.Enqueue(ctx, "CMD_A"))
	assert.Equal(t, []string{"CMD_A"}, dispatchAll(t, f.engine, "ZK001"))
}

func TestSweeper_FailureIsRetried(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{KVStore: implementation.NewMemoryKVStore()}
	f := newFixture(store)

	require.NoError(t, f.engine.Enqueue(ctx, "CMD_A"))
	f.clock.Advance(24 * time.Hour)

	store.set(func(s *flakyStore) { s.failKeys = true })
	_, ran, err := f.sweeper.SweepIfDue(ctx)
	require.Error(t, err)
	assert.True(t, ran)
	assert.True(t, errors.Is(err, interfaces.ErrStore))

	// a failed sweep does not fail the handshake
	created, err := f.engine.Handshake(ctx, "ZK001")
	require.NoError(t, err)
	assert.True(t, created)

	store.set(func(s *flakyStore) { s.failKeys = false })
	result, ran, err := f.sweeper.SweepIfDue(ctx)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, result.Partitions)
}
