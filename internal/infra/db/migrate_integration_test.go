//go:build integration

package db

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("shop_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://test:test@%s:%s/shop_test?sslmode=disable", host, port.Port())
}

func TestMigrations_UpDownAndSchemaCheck(t *testing.T) {
	dsn := startPostgres(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	gormDB, err := Connect(dsn)
	require.NoError(t, err)

	// マイグレーション前は起動できない
	assert.Error(t, EnsureSchema(ctx, gormDB))

	require.NoError(t, MigrateUp(dsn, logger))
	// 2回目は何もしない
	require.NoError(t, MigrateUp(dsn, logger))

	version, dirty, err := MigrationVersion(dsn)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	assert.NoError(t, EnsureSchema(ctx, gormDB))

	// 2 → 1 ではテーブルは残る
	require.NoError(t, MigrateDown(dsn, 1, logger))
	assert.NoError(t, EnsureSchema(ctx, gormDB))

	require.NoError(t, MigrateDown(dsn, 1, logger))
	assert.Error(t, EnsureSchema(ctx, gormDB))
}
