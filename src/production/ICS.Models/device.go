package icsmodels

import (
	"slices"
	"time"
)

// Device is the per-terminal delivery record, keyed by serial number
type Device struct {
	Serial            string    `json:"serial"`
	DeliveredCommands []string  `json:"delivered_commands"` // delivery order
	LastUserPin       *string   `json:"last_user_pin,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewDevice creates an empty record for a terminal seen for the first time
func NewDevice(serial string, now time.Time) *Device {
	return &Device{
		Serial:            serial,
		DeliveredCommands: []string{},
		CreatedAt:         now,
	}
}

// HasDelivered reports whether command was already handed to the device
func (d *Device) HasDelivered(command string) bool {
	return slices.Contains(d.DeliveredCommands, command)
}

// MarkDelivered appends command unless present and reports whether the
// record changed.
func (d *Device) MarkDelivered(command string, pin *string) bool {
	changed := false
	if !d.HasDelivered(command) {
		d.DeliveredCommands = append(d.DeliveredCommands, command)
		changed = true
	}
	if pin != nil && (d.LastUserPin == nil || *d.LastUserPin != *pin) {
		p := *pin
		d.LastUserPin = &p
		changed = true
	}
	return changed
}
