package implementation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clock "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Clock"
)

var testDay = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func TestKVDeviceRegistry_EnsureDevice(t *testing.T) {
	ctx := context.Background()
	reg := NewKVDeviceRegistry(NewMemoryKVStore(), clock.NewFake(testDay))

	device, err := reg.GetDevice(ctx, "ZK001")
	require.NoError(t, err)
	assert.Nil(t, device)

	device, created, err := reg.EnsureDevice(ctx, "ZK001")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "ZK001", device.Serial)
	assert.Empty(t, device.DeliveredCommands)
	assert.Equal(t, testDay, device.CreatedAt)

	_, created, err = reg.EnsureDevice(ctx, "ZK001")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestKVDeviceRegistry_RecordDeliveryIdempotent(t *testing.T) {
	ctx := context.Background()
	reg := NewKVDeviceRegistry(NewMemoryKVStore(), clock.NewFake(testDay))
	pin := "42"

	require.NoError(t, reg.RecordDelivery(ctx, "ZK001", "CMD_A", &pin))
	require.NoError(t, reg.RecordDelivery(ctx, "ZK001", "CMD_A", &pin))
	require.NoError(t, reg.RecordDelivery(ctx, "ZK001", "CMD_B", nil))

	device, err := reg.GetDevice(ctx, "ZK001")
	require.NoError(t, err)
	assert.Equal(t, []string{"CMD_A", "CMD_B"}, device.DeliveredCommands)
	require.NotNil(t, device.LastUserPin)
	assert.Equal(t, "42", *device.LastUserPin)
}

func TestKVDeviceRegistry_ListDevices(t *testing.T) {
	ctx := context.Background()
	reg := NewKVDeviceRegistry(NewMemoryKVStore(), clock.NewFake(testDay))

	for _, sn := range []string{"ZK002", "ZK001"} {
		_, _, err := reg.EnsureDevice(ctx, sn)
		require.NoError(t, err)
	}

	devices, err := reg.ListDevices(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "ZK001", devices[0].Serial)
	assert.Equal(t, "ZK002", devices[1].Serial)
}

func TestKVDeviceRegistry_SweepOlderThan(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(testDay.Add(-24 * time.Hour))
	reg := NewKVDeviceRegistry(NewMemoryKVStore(), clk)

	_, _, err := reg.EnsureDevice(ctx, "OLD")
	require.NoError(t, err)

	clk.Set(testDay)
	_, _, err = reg.EnsureDevice(ctx, "NEW")
	require.NoError(t, err)

	removed, err := reg.SweepOlderThan(ctx, testDay)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	old, err := reg.GetDevice(ctx, "OLD")
	require.NoError(t, err)
	assert.Nil(t, old)

	fresh, err := reg.GetDevice(ctx, "NEW")
	require.NoError(t, err)
	assert.NotNil(t, fresh)

	removed, err = reg.SweepOlderThan(ctx, testDay)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestKVDeviceRegistry_EnsureDeviceReplacesPreviousDayRecord(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(testDay)
	reg := NewKVDeviceRegistry(NewMemoryKVStore(), clk)

	require.NoError(t, reg.RecordDelivery(ctx, "ZK001", "CMD_A", nil))

	clk.Advance(24 * time.Hour)
	device, created, err := reg.EnsureDevice(ctx, "ZK001")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Empty(t, device.DeliveredCommands)
	assert.Equal(t, clk.Now(), device.CreatedAt)

	stored, err := reg.GetDevice(ctx, "ZK001")
	require.NoError(t, err)
	assert.Empty(t, stored.DeliveredCommands)
}
