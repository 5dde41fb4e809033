package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warely/stockledger/internal/infrastructure/postgres"
)

// TestDB provides isolated test database connections.
type TestDB struct {
	Pool *pgxpool.Pool
	t    *testing.T
}

// NewTestDB connects to the integration database and applies migrations.
// The test is skipped when TEST_DATABASE_URL is unset.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	migrationsPath := "migrations"
	if _, err := os.Stat(migrationsPath); os.IsNotExist(err) {
		// Relative from tests/integration.
		migrationsPath = "../../migrations"
	}

	if err := postgres.RunMigrations(dbURL, migrationsPath, zerolog.Nop()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping test database: %v", err)
	}

	return &TestDB{Pool: pool, t: t}
}

// Cleanup closes the database connection.
func (db *TestDB) Cleanup() {
	db.Pool.Close()
}

// TruncateAll removes all data from tables.
func (db *TestDB) TruncateAll(ctx context.Context) {
	db.t.Helper()

	_, err := db.Pool.Exec(ctx, `
		TRUNCATE TABLE movement_lines CASCADE;
		TRUNCATE TABLE movements CASCADE;
		TRUNCATE TABLE stock_balances CASCADE;
		TRUNCATE TABLE items CASCADE;
		TRUNCATE TABLE warehouses CASCADE;
	`)
	if err != nil {
		db.t.Fatalf("failed to truncate tables: %v", err)
	}
}

// CreateWarehouse inserts a warehouse reference row.
func (db *TestDB) CreateWarehouse(ctx context.Context, id, name string) {
	db.t.Helper()

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO warehouses (id, name, active) VALUES ($1, $2, TRUE)`,
		id, name,
	)
	if err != nil {
		db.t.Fatalf("failed to create warehouse %s: %v", id, err)
	}
}

// CreateItem inserts an item reference row.
func (db *TestDB) CreateItem(ctx context.Context, id, name, unit string) {
	db.t.Helper()

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO items (id, name, unit, unit_cost, active) VALUES ($1, $2, $3, 0, TRUE)`,
		id, name, unit,
	)
	if err != nil {
		db.t.Fatalf("failed to create item %s: %v", id, err)
	}
}

// DeactivateItem marks an item inactive.
func (db *TestDB) DeactivateItem(ctx context.Context, id string) {
	db.t.Helper()

	if _, err := db.Pool.Exec(ctx, `UPDATE items SET active = FALSE WHERE id = $1`, id); err != nil {
		db.t.Fatalf("failed to deactivate item %s: %v", id, err)
	}
}

// BalanceQuantity reads a stock balance directly, zero when absent.
func (db *TestDB) BalanceQuantity(ctx context.Context, itemID, warehouseID string) decimal.Decimal {
	db.t.Helper()

	var quantity decimal.Decimal

	err := db.Pool.QueryRow(ctx, `
		SELECT COALESCE(
			(SELECT quantity FROM stock_balances WHERE item_id = $1 AND warehouse_id = $2), 0)`,
		itemID, warehouseID,
	).Scan(&quantity)
	if err != nil {
		db.t.Fatalf("failed to read balance: %v", err)
	}

	return quantity
}

// CorruptBalance overwrites a balance row, for reconciliation tests.
func (db *TestDB) CorruptBalance(ctx context.Context, itemID, warehouseID string, quantity decimal.Decimal) {
	db.t.Helper()

	_, err := db.Pool.Exec(ctx, `
		UPDATE stock_balances SET quantity = $3 WHERE item_id = $1 AND warehouse_id = $2`,
		itemID, warehouseID, quantity,
	)
	if err != nil {
		db.t.Fatalf("failed to corrupt balance: %v", err)
	}
}
