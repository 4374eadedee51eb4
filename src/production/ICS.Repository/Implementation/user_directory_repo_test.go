package implementation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	icsmodels "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Models"
)

func TestKVUserDirectory_PutAndList(t *testing.T) {
	ctx := context.Background()
	dir := NewKVUserDirectory(NewMemoryKVStore())

	user, err := dir.GetUser(ctx, "42")
	require.NoError(t, err)
	assert.Nil(t, user)

	require.NoError(t, dir.PutUser(ctx, icsmodels.User{Pin: "7", Name: "Bob", RegisteredAt: testDay}))
	require.NoError(t, dir.PutUser(ctx, icsmodels.User{Pin: "42", Name: "Alice", HasPhoto: true, RegisteredAt: testDay}))
	require.NoError(t, dir.PutUser(ctx, icsmodels.User{Pin: "7", Name: "Robert", RegisteredAt: testDay}))

	users, err := dir.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "42", users[0].Pin)
	assert.True(t, users[0].HasPhoto)
	assert.Equal(t, "Robert", users[1].Name)
	assert.True(t, testDay.Equal(users[1].RegisteredAt))
}

func TestKVUserDirectory_DeleteUser(t *testing.T) {
	ctx := context.Background()
	dir := NewKVUserDirectory(NewMemoryKVStore())
	require.NoError(t, dir.PutUser(ctx, icsmodels.User{Pin: "42", Name: "Alice"}))

	removed, err := dir.DeleteUser(ctx, "42")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = dir.DeleteUser(ctx, "42")
	require.NoError(t, err)
	assert.False(t, removed)

	users, err := dir.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestKVUserDirectory_IgnoresOtherNamespaces(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryKVStore()
	dir := NewKVUserDirectory(store)
	require.NoError(t, store.Put(ctx, deviceKey("ZK001"), icsmodels.NewDevice("ZK001", testDay)))
	require.NoError(t, dir.PutUser(ctx, icsmodels.User{Pin: "42", Name: "Alice"}))

	users, err := dir.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Alice", users[0].Name)
}
