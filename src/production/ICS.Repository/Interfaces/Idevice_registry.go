package interfaces

import (
	"context"
	"time"

	icsmodels "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Models"
)

type DeviceRegistry interface {
	// Read devices; nil without error when the serial is unknown
	GetDevice(ctx context.Context, serial string) (*icsmodels.Device, error)
	ListDevices(ctx context.Context) ([]icsmodels.Device, error)

	// Create device on first contact (idempotent)
	EnsureDevice(ctx context.Context, serial string) (device *icsmodels.Device, created bool, err error)

	// Record a command as delivered (idempotent)
	RecordDelivery(ctx context.Context, serial, command string, pin *string) error

	// Delete devices created before the calendar day of today
	SweepOlderThan(ctx context.Context, today time.Time) (int, error)
}
