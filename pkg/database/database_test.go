package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "daco.db"), MaxOpenConns: 4}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_CreatesSchema(t *testing.T) {
	db := openTestDB(t)

	version, err := Migrate(context.Background(), db.DB, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	for _, table := range []string{"applications", "application_actions", "revision_requests", "notification_ledger"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}

	// Running again is a no-op.
	version, err = Migrate(context.Background(), db.DB, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
}

func TestMigrate_ActionsAreAppendOnly(t *testing.T) {
	db := openTestDB(t)
	_, err := Migrate(context.Background(), db.DB, zap.NewNop())
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO applications (id, owner_user_id, state, created_at, updated_at)
		VALUES ('app-1', 'user-1', 'DRAFT', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO application_actions
		(application_id, user_id, actor_role, action, state_before, state_after, created_at)
		VALUES ('app-1', 'user-1', 'APPLICANT', 'edit', 'DRAFT', 'DRAFT', CURRENT_TIMESTAMP)`)
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE application_actions SET state_after = 'CLOSED'`)
	assert.ErrorContains(t, err, "append-only")

	_, err = db.Exec(`DELETE FROM application_actions`)
	assert.ErrorContains(t, err, "append-only")
}

func TestMigrate_Error(t *testing.T) {
	orig := gooseUp
	gooseUp = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUp = orig }()

	db := openTestDB(t)
	_, err := Migrate(context.Background(), db.DB, zap.NewNop())
	assert.ErrorContains(t, err, "failed to run migrations")
}

func TestDSN(t *testing.T) {
	dsn := DSN("/tmp/x.db")
	assert.Contains(t, dsn, "_txlock=immediate")
	assert.Contains(t, dsn, "_journal_mode=WAL")
}
