// Package pgtest поднимает PostgreSQL в контейнере для интеграционных тестов.
package pgtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/todo-freemium/internal/migrations"
)

// MigrationsPath абсолютный путь к каталогу migrations в корне модуля.
func MigrationsPath(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}

// Start запускает контейнер и возвращает подключение без применённых миграций.
// Тест пропускается в режиме -short и без docker.
func Start(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.PingContext(ctx))
	return db
}

// Migrated запускает контейнер и накатывает все миграции.
func Migrated(t *testing.T) *sql.DB {
	t.Helper()
	db := Start(t)
	_, err := migrations.Run(db, MigrationsPath(t))
	require.NoError(t, err)
	return db
}

// Factory создаёт тестовые строки напрямую через SQL.
type Factory struct {
	DB *sql.DB
}

// User создаёт бесплатного пользователя и возвращает его uid.
func (f Factory) User(t *testing.T) string {
	t.Helper()
	uid := uuid.NewString()
	_, err := f.DB.Exec(`INSERT INTO users (uid, email, username, password_hash)
		VALUES ($1, $2, $3, 'hash')`, uid, uid+"@example.com", "user-"+uid[:8])
	require.NoError(t, err)
	return uid
}

// PremiumUser создаёт пользователя с активной подпиской.
func (f Factory) PremiumUser(t *testing.T, customerID, subscriptionID string) string {
	t.Helper()
	uid := f.User(t)
	_, err := f.DB.Exec(`UPDATE users SET subscription_tier = 'premium', subscription_status = 'active',
		subscription_state = 'premium_active', billing_customer_id = $2, billing_subscription_id = $3
		WHERE uid = $1`, uid, customerID, subscriptionID)
	require.NoError(t, err)
	return uid
}

// List создаёт список задач пользователя.
func (f Factory) List(t *testing.T, userUID, name string) int64 {
	t.Helper()
	var id int64
	err := f.DB.QueryRow(`INSERT INTO todo_lists (name, user_uid) VALUES ($1, $2) RETURNING id`,
		name, userUID).Scan(&id)
	require.NoError(t, err)
	return id
}

// Todo создаёт задачу в списке в обход квоты.
func (f Factory) Todo(t *testing.T, listID int64, description string) int64 {
	t.Helper()
	var id int64
	err := f.DB.QueryRow(`INSERT INTO todos (description, todo_list_id) VALUES ($1, $2) RETURNING id`,
		description, listID).Scan(&id)
	require.NoError(t, err)
	return id
}
