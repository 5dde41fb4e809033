package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warely/stockledger/internal/domain"
)

// QueryUseCase is the read side of the ledger. All operations are pure
// reads; none of them may be used to decide stock sufficiency for a later
// write, because that decision belongs inside the engine's locked
// transaction.
type QueryUseCase struct {
	movementRepo MovementRepository
	balanceRepo  BalanceRepository
	catalog      CatalogRepository
}

// NewQueryUseCase creates a new QueryUseCase.
func NewQueryUseCase(movementRepo MovementRepository, balanceRepo BalanceRepository, catalog CatalogRepository) *QueryUseCase {
	return &QueryUseCase{
		movementRepo: movementRepo,
		balanceRepo:  balanceRepo,
		catalog:      catalog,
	}
}

// GetMovement returns the full header and enriched lines of one movement.
func (uc *QueryUseCase) GetMovement(ctx context.Context, id string) (*domain.MovementDetail, error) {
	if id == "" {
		return nil, domain.ErrMovementNotFound
	}

	return uc.movementRepo.GetByID(ctx, id)
}

// ListMovements returns one page of movements matching the filter, newest
// first. Page and page size outside 1..MaxPageSize are clamped.
func (uc *QueryUseCase) ListMovements(ctx context.Context, filter domain.MovementFilter, page, pageSize int) (*domain.MovementPage, error) {
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, domain.ErrValidation
	}

	page, pageSize = domain.ClampPage(page, pageSize)
	offset := (page - 1) * pageSize

	movements, total, err := uc.movementRepo.List(ctx, filter, pageSize, offset)
	if err != nil {
		return nil, err
	}

	return &domain.MovementPage{
		Movements: movements,
		Total:     total,
		Page:      page,
		PageSize:  pageSize,
	}, nil
}

// Kardex returns the item's chronological signed history, optionally
// restricted to one warehouse and/or a date window. It is a projection
// over the ledger only.
func (uc *QueryUseCase) Kardex(ctx context.Context, query domain.KardexQuery) ([]*domain.KardexEntry, error) {
	if query.ItemID == "" {
		return nil, domain.ErrItemNotFound
	}

	if _, err := uc.catalog.GetItem(ctx, query.ItemID); err != nil {
		return nil, err
	}

	if query.From != nil && query.To != nil && query.From.After(*query.To) {
		return nil, domain.ErrInvalidPeriod
	}

	return uc.movementRepo.Kardex(ctx, query)
}

// PeriodSummary aggregates movements per kind over [from, to].
func (uc *QueryUseCase) PeriodSummary(ctx context.Context, from, to time.Time, kind domain.MovementKind) ([]*domain.KindSummary, error) {
	if from.After(to) {
		return nil, domain.ErrInvalidPeriod
	}

	if kind != "" && !kind.Valid() {
		return nil, domain.ErrValidation
	}

	return uc.movementRepo.Summarize(ctx, from, to, kind)
}

// CurrentBalance reads the stock balance index. A pair that never moved
// reports zero, not an error.
func (uc *QueryUseCase) CurrentBalance(ctx context.Context, itemID, warehouseID string) (decimal.Decimal, error) {
	balance, err := uc.balanceRepo.Get(ctx, itemID, warehouseID)
	if err != nil {
		return decimal.Zero, err
	}

	return balance.Quantity, nil
}

// StockSnapshot lists the non-zero balances of one warehouse with item
// reference fields, for reporting.
func (uc *QueryUseCase) StockSnapshot(ctx context.Context, warehouseID string) ([]*domain.StockLevel, error) {
	if _, err := uc.catalog.GetWarehouse(ctx, warehouseID); err != nil {
		return nil, err
	}

	return uc.balanceRepo.Snapshot(ctx, warehouseID)
}
