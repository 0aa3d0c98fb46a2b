package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/studentdesk/complaints/internal/db"
)

// NewPostgresDB starts a disposable PostgreSQL container and returns a migrated
// connection. It skips the test unless DESK_TEST_POSTGRES=1, since it needs Docker.
func NewPostgresDB(t *testing.T) *sqlx.DB {
	t.Helper()

	if os.Getenv("DESK_TEST_POSTGRES") != "1" {
		t.Skip("set DESK_TEST_POSTGRES=1 to run PostgreSQL integration tests")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("desk_test"),
		postgres.WithUsername("desk_test"),
		postgres.WithPassword("desk_test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Errorf("terminate postgres container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "postgres connection string")

	database, err := db.Init(ctx, "pgx", connStr)
	require.NoError(t, err, "connect postgres")
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, db.RunMigrations(ctx, database.DB, "pgx"), "run migrations")
	return database
}
