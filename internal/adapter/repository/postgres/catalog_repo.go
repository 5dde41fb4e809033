package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warely/stockledger/internal/domain"
)

// CatalogRepository implements usecase.CatalogRepository over the item and
// warehouse reference tables.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// GetItem retrieves an item by ID.
func (r *CatalogRepository) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	var item domain.Item

	err := r.pool.QueryRow(ctx, `
		SELECT id, name, unit, unit_cost, active
		FROM items
		WHERE id = $1`, id,
	).Scan(&item.ID, &item.Name, &item.Unit, &item.UnitCost, &item.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}

		return nil, &domain.StoreError{Err: err, Op: "catalog.get_item"}
	}

	return &item, nil
}

// GetWarehouse retrieves a warehouse by ID.
func (r *CatalogRepository) GetWarehouse(ctx context.Context, id string) (*domain.Warehouse, error) {
	var warehouse domain.Warehouse

	err := r.pool.QueryRow(ctx, `
		SELECT id, name, active
		FROM warehouses
		WHERE id = $1`, id,
	).Scan(&warehouse.ID, &warehouse.Name, &warehouse.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWarehouseNotFound
		}

		return nil, &domain.StoreError{Err: err, Op: "catalog.get_warehouse"}
	}

	return &warehouse, nil
}
