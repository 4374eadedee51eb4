package icsmodels

import "time"

// User is an entry of the user directory, keyed by PIN. Face templates are
// forwarded to terminals but never stored here.
type User struct {
	Pin          string    `json:"pin"`
	Name         string    `json:"name"`
	HasPhoto     bool      `json:"has_photo"`
	RegisteredAt time.Time `json:"registered_at"`
}
