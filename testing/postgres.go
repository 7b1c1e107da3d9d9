package testing

import (
	"context"
	stdtesting "testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/odyssey-erp/odyssey-school/internal/platform/db"
	"github.com/odyssey-erp/odyssey-school/migrations"
)

// Postgres starts a migrated PostgreSQL container for t and returns a pool to
// it. It skips under -short since it needs Docker.
func Postgres(t *stdtesting.T) *pgxpool.Pool {
	t.Helper()
	if stdtesting.Short() {
		t.Skip("integration test requires docker")
	}
	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("odyssey_test"),
		tcpostgres.WithUsername("odyssey"),
		tcpostgres.WithPassword("odyssey"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	_, err = db.Migrate(dsn, migrations.FS)
	require.NoError(t, err)

	pool, err := db.New(ctx, dsn, db.PoolOptions{MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}
