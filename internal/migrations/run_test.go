package migrations_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/todo-freemium/internal/migrations"
	"github.com/magabrotheeeer/todo-freemium/internal/storage/pgtest"
)

func TestRunMigrations(t *testing.T) {
	db := pgtest.Start(t)
	path := pgtest.MigrationsPath(t)

	version, err := migrations.Run(db, path)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)

	for _, table := range []string{"users", "todo_lists", "todos", "payment_transactions", "subscription_events"} {
		var exists bool
		err := db.QueryRow(`
			SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_schema = 'public' AND table_name = $1
			)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.Truef(t, exists, "table %s should exist", table)
	}

	var exists bool
	err = db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM pg_indexes
			WHERE schemaname = 'public' AND indexname = 'idx_users_billing_subscription_id'
		)`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMigrationIdempotency(t *testing.T) {
	db := pgtest.Start(t)
	path := pgtest.MigrationsPath(t)

	_, err := migrations.Run(db, path)
	require.NoError(t, err)
	version, err := migrations.Run(db, path)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestMigrationDown(t *testing.T) {
	db := pgtest.Start(t)
	path := pgtest.MigrationsPath(t)

	_, err := migrations.Run(db, path)
	require.NoError(t, err)
	require.NoError(t, migrations.Down(db, path))

	var count int
	err = db.QueryRow(`
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name IN ('users', 'todos', 'subscription_events')
	`).Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRun_InvalidPath(t *testing.T) {
	db := pgtest.Start(t)

	_, err := migrations.Run(db, "/does/not/exist")
	assert.Error(t, err)
}

func TestUserDefaults(t *testing.T) {
	db := pgtest.Migrated(t)
	uid := pgtest.Factory{DB: db}.User(t)

	var tier, state string
	var failed int
	err := db.QueryRow(`SELECT subscription_tier, subscription_state, failed_payment_count FROM users WHERE uid = $1`, uid).
		Scan(&tier, &state, &failed)
	require.NoError(t, err)
	assert.Equal(t, "free", tier)
	assert.Equal(t, "free", state)
	assert.Zero(t, failed)

	_, err = db.Exec(`UPDATE users SET subscription_tier = 'gold' WHERE uid = $1`, uid)
	assert.Error(t, err)
}
