//go:build integration

package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/owentar/zeta-hackathon/internal/store/postgres"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// testDB connects to TEST_DB_URL when set, otherwise to a throwaway
// PostgreSQL container. The embedded migrations are applied either way.
func testDB(t *testing.T) *postgres.DB {
	t.Helper()

	if url := os.Getenv("TEST_DB_URL"); url != "" {
		db := connect(t, url)
		truncateAll(t, db)
		return db
	}
	return setupTestContainer(t)
}

func setupTestContainer(t *testing.T) *postgres.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("test_age_lens"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	return connect(t, connStr)
}

func connect(t *testing.T, url string) *postgres.DB {
	t.Helper()

	db, err := postgres.New(postgres.Config{
		URL:             url,
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func truncateAll(t *testing.T, db *postgres.DB) {
	t.Helper()
	_, err := db.ExecContext(context.Background(),
		`TRUNCATE age_estimations, airdropped_wallets RESTART IDENTITY`)
	require.NoError(t, err)
}
