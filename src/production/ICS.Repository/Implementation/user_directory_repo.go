package implementation

import (
	"context"
	"sort"
	"strings"

	icsmodels "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Models"
	interfaces "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Repository/Interfaces"
)

// KVUserDirectory stores registered users under users:<pin>. Entries are not
// touched by the daily retention sweep.
type KVUserDirectory struct {
	store interfaces.KVStore
}

func NewKVUserDirectory(store interfaces.KVStore) *KVUserDirectory {
	return &KVUserDirectory{store: store}
}

func (d *KVUserDirectory) GetUser(ctx context.Context, pin string) (*icsmodels.User, error) {
	var user icsmodels.User
	found, err := d.store.Get(ctx, userKey(pin), &user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &user, nil
}

func (d *KVUserDirectory) ListUsers(ctx context.Context) ([]icsmodels.User, error) {
	keys, err := d.store.Keys(ctx, userPrefix)
	if err != nil {
		return nil, err
	}

	users := make([]icsmodels.User, 0, len(keys))
	for _, key := range keys {
		user, err := d.GetUser(ctx, strings.TrimPrefix(key, userPrefix))
		if err != nil {
			return nil, err
		}
		if user == nil {
			continue
		}
		users = append(users, *user)
	}

	sort.Slice(users, func(i, j int) bool { return users[i].Pin < users[j].Pin })
	return users, nil
}

func (d *KVUserDirectory) PutUser(ctx context.Context, user icsmodels.User) error {
	return d.store.Put(ctx, userKey(user.Pin), user)
}

func (d *KVUserDirectory) DeleteUser(ctx context.Context, pin string) (bool, error) {
	user, err := d.GetUser(ctx, pin)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	if err := d.store.Delete(ctx, userKey(pin)); err != nil {
		return false, err
	}
	return true, nil
}
