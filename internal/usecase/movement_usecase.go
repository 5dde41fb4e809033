package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warely/stockledger/internal/domain"
	"github.com/warely/stockledger/internal/infrastructure/metrics"
)

// MovementUseCase is the movement engine: it validates, constructs and
// atomically commits movements together with their balance updates.
type MovementUseCase struct {
	txManager    TransactionManager
	movementRepo MovementRepository
	balanceRepo  BalanceRepository
	catalog      CatalogRepository
	idGen        IDGenerator
	metrics      *metrics.Metrics
}

// NewMovementUseCase creates a new MovementUseCase. metrics may be nil.
func NewMovementUseCase(
	txManager TransactionManager,
	movementRepo MovementRepository,
	balanceRepo BalanceRepository,
	catalog CatalogRepository,
	idGen IDGenerator,
	m *metrics.Metrics,
) *MovementUseCase {
	return &MovementUseCase{
		txManager:    txManager,
		movementRepo: movementRepo,
		balanceRepo:  balanceRepo,
		catalog:      catalog,
		idGen:        idGen,
		metrics:      m,
	}
}

// LineInput is one requested movement line. Quantity is the entered amount
// for entries, exits and transfers, and the desired resulting balance for
// adjustments.
type LineInput struct {
	ItemID   string
	Quantity decimal.Decimal
}

// CommandInput carries the header fields shared by every movement kind.
// The actor is already authenticated and authorized upstream; the engine
// trusts the id it is given. OccurredAt defaults to commit time.
type CommandInput struct {
	OccurredAt *time.Time
	ActorID    string
	ActorName  string
	Reason     string
	Notes      string
}

type command struct {
	kind        domain.MovementKind
	origin      string
	destination string
	input       CommandInput
	lines       []LineInput
}

// CreateEntry records stock arriving at a warehouse. Every line quantity
// must be positive; no prior-stock check applies.
func (uc *MovementUseCase) CreateEntry(ctx context.Context, input CommandInput, destinationWarehouseID string, lines []LineInput) (string, error) {
	cmd := command{
		kind:        domain.KindEntry,
		destination: destinationWarehouseID,
		input:       input,
		lines:       lines,
	}

	if err := uc.validate(cmd); err != nil {
		return "", uc.fail(cmd.kind, err)
	}

	return uc.run(ctx, cmd)
}

// CreateExit records stock leaving a warehouse. Every line quantity must be
// positive and covered by the balance at commit time; otherwise the whole
// command fails with an InsufficientStockError and nothing is applied.
func (uc *MovementUseCase) CreateExit(ctx context.Context, input CommandInput, originWarehouseID string, lines []LineInput) (string, error) {
	cmd := command{
		kind:   domain.KindExit,
		origin: originWarehouseID,
		input:  input,
		lines:  lines,
	}

	if err := uc.validate(cmd); err != nil {
		return "", uc.fail(cmd.kind, err)
	}

	return uc.run(ctx, cmd)
}

// CreateTransfer moves stock between two distinct warehouses. Sufficiency
// at the origin is checked exactly as in CreateExit; all lines commit
// together or not at all.
func (uc *MovementUseCase) CreateTransfer(ctx context.Context, input CommandInput, originWarehouseID, destinationWarehouseID string, lines []LineInput) (string, error) {
	cmd := command{
		kind:        domain.KindTransfer,
		origin:      originWarehouseID,
		destination: destinationWarehouseID,
		input:       input,
		lines:       lines,
	}

	if err := uc.validate(cmd); err != nil {
		return "", uc.fail(cmd.kind, err)
	}

	return uc.run(ctx, cmd)
}

// CreateAdjustment sets balances to the requested target values. Each line
// quantity is the desired resulting balance (>= 0), not a delta; the engine
// records the computed delta per line. Lines whose delta is zero are
// dropped so the ledger stays free of vacuous entries, and when every line
// is a no-op nothing is recorded and ErrNoopAdjustment is returned. A
// reason is mandatory for this kind.
func (uc *MovementUseCase) CreateAdjustment(ctx context.Context, input CommandInput, warehouseID string, lines []LineInput) (string, error) {
	cmd := command{
		kind:        domain.KindAdjustment,
		destination: warehouseID,
		input:       input,
		lines:       lines,
	}

	if err := uc.validate(cmd); err != nil {
		return "", uc.fail(cmd.kind, err)
	}

	return uc.run(ctx, cmd)
}

// validate applies the kind-specific input rules. It runs before any
// transaction is opened, so violations touch nothing.
func (uc *MovementUseCase) validate(cmd command) error {
	if cmd.input.ActorID == "" {
		return domain.ErrMissingActor
	}

	if len(cmd.lines) == 0 {
		return domain.ErrEmptyLines
	}

	switch cmd.kind {
	case domain.KindEntry:
		if cmd.destination == "" {
			return domain.ErrMissingWarehouse
		}
	case domain.KindExit:
		if cmd.origin == "" {
			return domain.ErrMissingWarehouse
		}
	case domain.KindTransfer:
		if cmd.origin == "" || cmd.destination == "" {
			return domain.ErrMissingWarehouse
		}

		if cmd.origin == cmd.destination {
			return domain.ErrSameWarehouse
		}
	case domain.KindAdjustment:
		if cmd.destination == "" {
			return domain.ErrMissingWarehouse
		}

		if err := domain.ValidateReason(cmd.input.Reason); err != nil {
			return err
		}
	}

	for _, line := range cmd.lines {
		if cmd.kind == domain.KindAdjustment {
			if line.Quantity.IsNegative() {
				return domain.ErrNegativeTarget
			}

			continue
		}

		if line.Quantity.LessThanOrEqual(decimal.Zero) {
			return domain.ErrNonPositiveQuantity
		}
	}

	return nil
}

func (uc *MovementUseCase) run(ctx context.Context, cmd command) (string, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, DefaultCommandTimeout)
	defer cancel()

	id, err := uc.execute(ctx, cmd)
	if err != nil {
		return "", uc.fail(cmd.kind, err)
	}

	if uc.metrics != nil {
		uc.metrics.MovementsCommitted.WithLabelValues(string(cmd.kind)).Inc()
		uc.metrics.CommandDuration.WithLabelValues(string(cmd.kind)).Observe(time.Since(start).Seconds())
	}

	return id, nil
}

func (uc *MovementUseCase) execute(ctx context.Context, cmd command) (string, error) {
	if err := uc.resolveReferences(ctx, cmd); err != nil {
		return "", err
	}

	keys := uc.collectPairs(cmd)
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	// Lock every affected balance row before the sufficiency checks, so
	// concurrent commands over the same pairs serialize instead of both
	// observing stale balances.
	balances, err := uc.balanceRepo.LockPairs(ctx, tx, keys)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()

	occurredAt := now
	if cmd.input.OccurredAt != nil {
		occurredAt = cmd.input.OccurredAt.UTC()
	}

	lines, touched, err := uc.applyLines(cmd, balances)
	if err != nil {
		return "", err
	}

	if len(lines) == 0 {
		// Only adjustments can end up here: every line was a no-op.
		return "", domain.ErrNoopAdjustment
	}

	movement := &domain.Movement{
		ID:         uc.idGen.Generate(),
		Kind:       cmd.kind,
		ActorID:    cmd.input.ActorID,
		ActorName:  cmd.input.ActorName,
		Reason:     cmd.input.Reason,
		Notes:      cmd.input.Notes,
		OccurredAt: occurredAt,
		CreatedAt:  now,
	}

	if cmd.origin != "" {
		origin := cmd.origin
		movement.OriginWarehouseID = &origin
	}

	if cmd.destination != "" {
		destination := cmd.destination
		movement.DestinationWarehouseID = &destination
	}

	for i, line := range lines {
		movement.Lines = append(movement.Lines, domain.MovementLine{
			ID:         uc.idGen.Generate(),
			MovementID: movement.ID,
			ItemID:     line.ItemID,
			Position:   i + 1,
			Quantity:   line.Quantity,
		})
	}

	if err := uc.movementRepo.Create(ctx, tx, movement); err != nil {
		return "", err
	}

	for _, key := range keys {
		if !touched[key] {
			continue
		}

		balance := balances[key]
		balance.UpdatedAt = now

		if err := uc.balanceRepo.Update(ctx, tx, balance); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}

	return movement.ID, nil
}

// applyLines walks the requested lines in order against the locked
// balances and returns the lines to record plus the set of pairs whose
// balance changed. Duplicate item lines are applied sequentially, so their
// combined effect is what gets checked.
func (uc *MovementUseCase) applyLines(cmd command, balances map[domain.BalanceKey]*domain.StockBalance) ([]LineInput, map[domain.BalanceKey]bool, error) {
	recorded := make([]LineInput, 0, len(cmd.lines))
	touched := make(map[domain.BalanceKey]bool, len(balances))

	for _, line := range cmd.lines {
		switch cmd.kind {
		case domain.KindEntry:
			key := domain.BalanceKey{ItemID: line.ItemID, WarehouseID: cmd.destination}
			balances[key].Add(line.Quantity)
			touched[key] = true
			recorded = append(recorded, line)

		case domain.KindExit:
			key := domain.BalanceKey{ItemID: line.ItemID, WarehouseID: cmd.origin}

			balance := balances[key]
			if err := balance.ValidateWithdraw(line.Quantity); err != nil {
				return nil, nil, err
			}

			balance.Add(line.Quantity.Neg())
			touched[key] = true
			recorded = append(recorded, line)

		case domain.KindTransfer:
			originKey := domain.BalanceKey{ItemID: line.ItemID, WarehouseID: cmd.origin}
			destinationKey := domain.BalanceKey{ItemID: line.ItemID, WarehouseID: cmd.destination}

			origin := balances[originKey]
			if err := origin.ValidateWithdraw(line.Quantity); err != nil {
				return nil, nil, err
			}

			origin.Add(line.Quantity.Neg())
			balances[destinationKey].Add(line.Quantity)
			touched[originKey] = true
			touched[destinationKey] = true
			recorded = append(recorded, line)

		case domain.KindAdjustment:
			key := domain.BalanceKey{ItemID: line.ItemID, WarehouseID: cmd.destination}

			balance := balances[key]

			delta := line.Quantity.Sub(balance.Quantity)
			if delta.IsZero() {
				continue
			}

			balance.Quantity = line.Quantity
			touched[key] = true
			recorded = append(recorded, LineInput{ItemID: line.ItemID, Quantity: delta})
		}
	}

	return recorded, touched, nil
}

func (uc *MovementUseCase) resolveReferences(ctx context.Context, cmd command) error {
	for _, warehouseID := range []string{cmd.origin, cmd.destination} {
		if warehouseID == "" {
			continue
		}

		if _, err := uc.catalog.GetWarehouse(ctx, warehouseID); err != nil {
			return err
		}
	}

	seen := make(map[string]bool, len(cmd.lines))
	for _, line := range cmd.lines {
		if seen[line.ItemID] {
			continue
		}

		seen[line.ItemID] = true

		item, err := uc.catalog.GetItem(ctx, line.ItemID)
		if err != nil {
			return err
		}

		if !item.Active {
			return fmt.Errorf("item %s: %w", item.ID, domain.ErrItemInactive)
		}
	}

	return nil
}

func (uc *MovementUseCase) collectPairs(cmd command) []domain.BalanceKey {
	seen := make(map[domain.BalanceKey]bool)

	var keys []domain.BalanceKey

	add := func(itemID, warehouseID string) {
		key := domain.BalanceKey{ItemID: itemID, WarehouseID: warehouseID}
		if seen[key] {
			return
		}

		seen[key] = true
		keys = append(keys, key)
	}

	for _, line := range cmd.lines {
		switch cmd.kind {
		case domain.KindEntry, domain.KindAdjustment:
			add(line.ItemID, cmd.destination)
		case domain.KindExit:
			add(line.ItemID, cmd.origin)
		case domain.KindTransfer:
			add(line.ItemID, cmd.origin)
			add(line.ItemID, cmd.destination)
		}
	}

	return keys
}

func (uc *MovementUseCase) fail(kind domain.MovementKind, err error) error {
	if uc.metrics != nil {
		uc.metrics.CommandFailures.WithLabelValues(string(kind), failureLabel(err)).Inc()

		if errors.Is(err, domain.ErrInsufficientStock) {
			uc.metrics.StockRejections.Inc()
		}
	}

	return err
}

func failureLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrWarehouseNotFound),
		errors.Is(err, domain.ErrMovementNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	default:
		return "store"
	}
}
