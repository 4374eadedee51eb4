package interfaces

import (
	"context"

	icsmodels "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Models"
)

type UserDirectory interface {
	// Read users; nil without error when the PIN is unknown
	GetUser(ctx context.Context, pin string) (*icsmodels.User, error)
	ListUsers(ctx context.Context) ([]icsmodels.User, error)

	// Create or replace the entry for user.Pin
	PutUser(ctx context.Context, user icsmodels.User) error

	// Remove the entry; removed is false when the PIN was unknown
	DeleteUser(ctx context.Context, pin string) (removed bool, err error)
}
