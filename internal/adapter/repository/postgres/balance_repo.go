package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warely/stockledger/internal/domain"
	"github.com/warely/stockledger/internal/usecase"
)

// BalanceRepository implements usecase.BalanceRepository.
type BalanceRepository struct {
	pool *pgxpool.Pool
}

// NewBalanceRepository creates a new BalanceRepository.
func NewBalanceRepository(pool *pgxpool.Pool) *BalanceRepository {
	return &BalanceRepository{pool: pool}
}

// LockPairs creates any missing balance rows at zero and locks every
// requested row with FOR UPDATE. The caller passes keys sorted by
// BalanceKey.Less; the SELECT repeats that order so concurrent commands
// acquire locks in the same sequence.
func (r *BalanceRepository) LockPairs(ctx context.Context, tx usecase.Transaction, keys []domain.BalanceKey) (map[domain.BalanceKey]*domain.StockBalance, error) {
	pgxTx := tx.(*Tx).PgxTx()

	now := time.Now().UTC()

	for _, key := range keys {
		_, err := pgxTx.Exec(ctx, `
			INSERT INTO stock_balances (item_id, warehouse_id, quantity, updated_at)
			VALUES ($1, $2, 0, $3)
			ON CONFLICT (item_id, warehouse_id) DO NOTHING`,
			key.ItemID, key.WarehouseID, now,
		)
		if err != nil {
			return nil, &domain.StoreError{Err: err, Op: "balance.ensure"}
		}
	}

	conds := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)*2)

	for _, key := range keys {
		conds = append(conds, fmt.Sprintf("(item_id = $%d AND warehouse_id = $%d)", len(args)+1, len(args)+2))
		args = append(args, key.ItemID, key.WarehouseID)
	}

	query := fmt.Sprintf(`
		SELECT item_id, warehouse_id, quantity, updated_at
		FROM stock_balances
		WHERE %s
		ORDER BY item_id, warehouse_id
		FOR UPDATE`, strings.Join(conds, " OR "))

	rows, err := pgxTx.Query(ctx, query, args...)
	if err != nil {
		return nil, &domain.StoreError{Err: err, Op: "balance.lock"}
	}
	defer rows.Close()

	balances := make(map[domain.BalanceKey]*domain.StockBalance, len(keys))

	for rows.Next() {
		var balance domain.StockBalance
		if err := rows.Scan(&balance.ItemID, &balance.WarehouseID, &balance.Quantity, &balance.UpdatedAt); err != nil {
			return nil, &domain.StoreError{Err: err, Op: "balance.lock"}
		}

		balances[balance.Key()] = &balance
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Err: err, Op: "balance.lock"}
	}

	return balances, nil
}

// Update writes a balance row inside the caller's transaction. The row is
// guaranteed to exist because LockPairs created it.
func (r *BalanceRepository) Update(ctx context.Context, tx usecase.Transaction, balance *domain.StockBalance) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `
		UPDATE stock_balances
		SET quantity = $3, updated_at = $4
		WHERE item_id = $1 AND warehouse_id = $2`,
		balance.ItemID, balance.WarehouseID, balance.Quantity, balance.UpdatedAt,
	)
	if err != nil {
		return &domain.StoreError{Err: err, Op: "balance.update"}
	}

	return nil
}

// Get reads one balance row without locking. A pair that never moved
// reports zero, not an error.
func (r *BalanceRepository) Get(ctx context.Context, itemID, warehouseID string) (*domain.StockBalance, error) {
	var balance domain.StockBalance

	err := r.pool.QueryRow(ctx, `
		SELECT item_id, warehouse_id, quantity, updated_at
		FROM stock_balances
		WHERE item_id = $1 AND warehouse_id = $2`,
		itemID, warehouseID,
	).Scan(&balance.ItemID, &balance.WarehouseID, &balance.Quantity, &balance.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.StockBalance{ItemID: itemID, WarehouseID: warehouseID}, nil
		}

		return nil, &domain.StoreError{Err: err, Op: "balance.get"}
	}

	return &balance, nil
}

// Snapshot lists the non-zero balances of one warehouse enriched with item
// reference fields, ordered by item name.
func (r *BalanceRepository) Snapshot(ctx context.Context, warehouseID string) ([]*domain.StockLevel, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.item_id, i.name, i.unit, b.warehouse_id, b.quantity, b.updated_at
		FROM stock_balances b
		JOIN items i ON i.id = b.item_id
		WHERE b.warehouse_id = $1 AND b.quantity <> 0
		ORDER BY i.name, b.item_id`, warehouseID,
	)
	if err != nil {
		return nil, &domain.StoreError{Err: err, Op: "balance.snapshot"}
	}
	defer rows.Close()

	var levels []*domain.StockLevel

	for rows.Next() {
		var level domain.StockLevel
		if err := rows.Scan(&level.ItemID, &level.ItemName, &level.ItemUnit, &level.WarehouseID, &level.Quantity, &level.UpdatedAt); err != nil {
			return nil, &domain.StoreError{Err: err, Op: "balance.snapshot"}
		}

		levels = append(levels, &level)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Err: err, Op: "balance.snapshot"}
	}

	return levels, nil
}

// All reads every balance row, for reconciliation.
func (r *BalanceRepository) All(ctx context.Context) ([]*domain.StockBalance, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT item_id, warehouse_id, quantity, updated_at
		FROM stock_balances
		ORDER BY item_id, warehouse_id`)
	if err != nil {
		return nil, &domain.StoreError{Err: err, Op: "balance.all"}
	}
	defer rows.Close()

	var balances []*domain.StockBalance

	for rows.Next() {
		var balance domain.StockBalance
		if err := rows.Scan(&balance.ItemID, &balance.WarehouseID, &balance.Quantity, &balance.UpdatedAt); err != nil {
			return nil, &domain.StoreError{Err: err, Op: "balance.all"}
		}

		balances = append(balances, &balance)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Err: err, Op: "balance.all"}
	}

	return balances, nil
}
