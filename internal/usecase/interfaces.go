package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warely/stockledger/internal/domain"
)

// MovementRepository defines data access for the movement ledger.
type MovementRepository interface {
	// Create inserts the header and all lines inside tx.
	Create(ctx context.Context, tx Transaction, movement *domain.Movement) error
	GetByID(ctx context.Context, id string) (*domain.MovementDetail, error)
	// List returns one page of matching movements plus the total match count.
	List(ctx context.Context, filter domain.MovementFilter, limit, offset int) ([]*domain.MovementSummary, int, error)
	// Kardex projects an item's history in ascending order, straight from
	// the ledger. It must not consult stock balances.
	Kardex(ctx context.Context, query domain.KardexQuery) ([]*domain.KardexEntry, error)
	Summarize(ctx context.Context, from, to time.Time, kind domain.MovementKind) ([]*domain.KindSummary, error)
	// EffectTotals recomputes every (item, warehouse) quantity from the
	// committed ledger.
	EffectTotals(ctx context.Context) (map[domain.BalanceKey]decimal.Decimal, error)
}

// BalanceRepository defines data access for stock balance rows.
type BalanceRepository interface {
	// LockPairs creates missing rows at zero, then locks all given rows
	// FOR UPDATE in (item id, warehouse id) order.
	LockPairs(ctx context.Context, tx Transaction, keys []domain.BalanceKey) (map[domain.BalanceKey]*domain.StockBalance, error)
	Update(ctx context.Context, tx Transaction, balance *domain.StockBalance) error
	// Get returns a zero balance when no row exists; absence means the
	// pair has never moved.
	Get(ctx context.Context, itemID, warehouseID string) (*domain.StockBalance, error)
	Snapshot(ctx context.Context, warehouseID string) ([]*domain.StockLevel, error)
	All(ctx context.Context) ([]*domain.StockBalance, error)
}

// CatalogRepository resolves item and warehouse reference data.
type CatalogRepository interface {
	GetItem(ctx context.Context, id string) (*domain.Item, error)
	GetWarehouse(ctx context.Context, id string) (*domain.Warehouse, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations for reference data.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
