package implementation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	clock "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Clock"
	icsmodels "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Models"
	interfaces "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Repository/Interfaces"
)

// KVDeviceRegistry stores one record per terminal under devices:<serial>
type KVDeviceRegistry struct {
	store interfaces.KVStore
	clock clock.Clock
}

func NewKVDeviceRegistry(store interfaces.KVStore, clk clock.Clock) *KVDeviceRegistry {
	return &KVDeviceRegistry{store: store, clock: clk}
}

func (r *KVDeviceRegistry) GetDevice(ctx context.Context, serial string) (*icsmodels.Device, error) {
	var device icsmodels.Device
	found, err := r.store.Get(ctx, deviceKey(serial), &device)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	if device.DeliveredCommands == nil {
		device.DeliveredCommands = []string{}
	}
	return &device, nil
}

func (r *KVDeviceRegistry) ListDevices(ctx context.Context) ([]icsmodels.Device, error) {
	keys, err := r.store.Keys(ctx, devicePrefix)
	if err != nil {
		return nil, err
	}

	devices := make([]icsmodels.Device, 0, len(keys))
	for _, key := range keys {
		device, err := r.GetDevice(ctx, strings.TrimPrefix(key, devicePrefix))
		if err != nil {
			return nil, err
		}
		// swept between Keys and Get
		if device == nil {
			continue
		}
		devices = append(devices, *device)
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Serial < devices[j].Serial })
	return devices, nil
}

// EnsureDevice creates the record on first contact. A record left over from
// a previous day is replaced by a fresh one, so yesterday's deliveries never
// hide today's commands even if the sweep has not run yet. Two concurrent
// callers may both create it; both write the same empty shape.
func (r *KVDeviceRegistry) EnsureDevice(ctx context.Context, serial string) (*icsmodels.Device, bool, error) {
	device, err := r.GetDevice(ctx, serial)
	if err != nil {
		return nil, false, err
	}

	now := r.clock.Now()
	if device != nil && !createdBefore(device, now) {
		return device, false, nil
	}

	device = icsmodels.NewDevice(serial, now)
	if err := r.store.Put(ctx, deviceKey(serial), device); err != nil {
		return nil, false, err
	}
	return device, true, nil
}

func (r *KVDeviceRegistry) RecordDelivery(ctx context.Context, serial, command string, pin *string) error {
	device, _, err := r.EnsureDevice(ctx, serial)
	if err != nil {
		return err
	}

	if !device.MarkDelivered(command, pin) {
		return nil
	}
	if err := r.store.Put(ctx, deviceKey(serial), device); err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

// SweepOlderThan deletes records whose creation day, in today's location,
// is strictly before today.
func (r *KVDeviceRegistry) SweepOlderThan(ctx context.Context, today time.Time) (int, error) {
	devices, err := r.ListDevices(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for i := range devices {
		device := &devices[i]
		if !createdBefore(device, today) {
			continue
		}
		if err := r.store.Delete(ctx, deviceKey(device.Serial)); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// createdBefore reports whether device was created on a calendar day before
// the day of now, both taken in now's location.
func createdBefore(device *icsmodels.Device, now time.Time) bool {
	return clock.DayKey(device.CreatedAt.In(now.Location())) < clock.DayKey(now)
}
