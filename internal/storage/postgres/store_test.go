package postgres_test

import (
	"context"
	"os"
	"testing"

	"inventory-ledger/internal/core"
	"inventory-ledger/internal/storage/postgres"
	"inventory-ledger/internal/storage/storagetest"
	"inventory-ledger/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func setupTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../../.env")

	// Tables are truncated between subtests; never point this at a live database.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping Postgres integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := migrations.ApplyPostgres(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}
	return pool
}

func TestPostgresStore(t *testing.T) {
	pool := setupTestPool(t)

	storagetest.Run(t, func(t *testing.T) core.Store {
		_, err := pool.Exec(context.Background(),
			`TRUNCATE TABLE inventory_adjustments, inventory_movements, inventory_items CASCADE`)
		if err != nil {
			t.Fatalf("Failed to clean tables: %v", err)
		}
		return postgres.NewStore(pool)
	})
}
