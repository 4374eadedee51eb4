package implementation

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	interfaces "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Repository/Interfaces"
)

func newMockPostgresStore(t *testing.T) (*PostgresKVStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() {
		mock.ExpectClose()
		if err := db.Close(); err != nil {
			t.Fatalf("failed to close db: %s", err)
		}
	})
	return NewPostgresKVStore(db), mock
}

func TestPostgresKVStore_Get(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM kv_store WHERE key = $1`)).
		WithArgs("devices:ZK001").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).
			AddRow([]byte(`{"serial":"ZK001","delivered_commands":["CMD_A"],"created_at":"2026-10-15T08:00:00Z"}`)))

	var got struct {
		Serial            string   `json:"serial"`
		DeliveredCommands []string `json:"delivered_commands"`
	}
	found, err := s.Get(ctx, "devices:ZK001", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "ZK001", got.Serial)
	assert.Equal(t, []string{"CMD_A"}, got.DeliveredCommands)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresKVStore_GetMissing(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM kv_store WHERE key = $1`)).
		WithArgs("devices:nope").
		WillReturnError(sql.ErrNoRows)

	var got map[string]interface{}
	found, err := s.Get(ctx, "devices:nope", &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresKVStore_GetFailure(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM kv_store WHERE key = $1`)).
		WithArgs("devices:ZK001").
		WillReturnError(errors.New("connection reset"))

	var got map[string]interface{}
	_, err := s.Get(ctx, "devices:ZK001", &got)
	require.Error(t, err)
	assert.True(t, errors.Is(err, interfaces.ErrStore))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresKVStore_Put(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO kv_store (key, value, updated_at)`)).
		WithArgs("commands:2026-10-15", []byte(`["CMD_A","CMD_B"]`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Put(ctx, "commands:2026-10-15", []string{"CMD_A", "CMD_B"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresKVStore_DeleteAndKeys(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT key FROM kv_store WHERE key LIKE $1 ORDER BY key`)).
		WithArgs(`commands:%`).
		WillReturnRows(sqlmock.NewRows([]string{"key"}).
			AddRow("commands:2026-10-14").
			AddRow("commands:2026-10-15"))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM kv_store WHERE key = $1`)).
		WithArgs("commands:2026-10-14").
		WillReturnResult(sqlmock.NewResult(0, 1))

	keys, err := s.Keys(ctx, "commands:")
	require.NoError(t, err)
	assert.Equal(t, []string{"commands:2026-10-14", "commands:2026-10-15"}, keys)

	require.NoError(t, s.Delete(ctx, "commands:2026-10-14"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresKVStore_CreateTables(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS kv_store`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.CreateTables(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikePrefix(t *testing.T) {
	assert.Equal(t, `devices:%`, likePrefix("devices:"))
	assert.Equal(t, `a\_b\%c\\%`, likePrefix(`a_b%c\`))
}
