package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/warely/stockledger/internal/domain"
	"github.com/warely/stockledger/internal/usecase"
)

// TestMovementLifecycle walks the canonical sequence: stock arrives at the
// central warehouse, part of it transfers north, and an exit larger than
// what remains is rejected without touching anything.
func TestMovementLifecycle(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	s.seedCatalog(ctx, t)

	lines := func(qty int64) []usecase.LineInput {
		return []usecase.LineInput{{ItemID: "item-bolt", Quantity: decimal.NewFromInt(qty)}}
	}

	entryID, err := s.movements.CreateEntry(ctx, actor(), "wh-central", lines(50))
	if err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}

	if _, err := s.movements.CreateTransfer(ctx, actor(), "wh-central", "wh-north", lines(20)); err != nil {
		t.Fatalf("CreateTransfer() error = %v", err)
	}

	if got := s.db.BalanceQuantity(ctx, "item-bolt", "wh-central"); !got.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("central balance = %s, want 30", got)
	}

	if got := s.db.BalanceQuantity(ctx, "item-bolt", "wh-north"); !got.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("north balance = %s, want 20", got)
	}

	_, err = s.movements.CreateExit(ctx, actor(), "wh-central", lines(40))

	var insufficientErr *domain.InsufficientStockError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("CreateExit() error = %v, want InsufficientStockError", err)
	}

	if !insufficientErr.Available.Equal(decimal.NewFromInt(30)) {
		t.Errorf("Available = %s, want 30", insufficientErr.Available)
	}

	if !insufficientErr.Requested.Equal(decimal.NewFromInt(40)) {
		t.Errorf("Requested = %s, want 40", insufficientErr.Requested)
	}

	// The rejected exit must leave no trace: balances unchanged, no
	// movement recorded.
	if got := s.db.BalanceQuantity(ctx, "item-bolt", "wh-central"); !got.Equal(decimal.NewFromInt(30)) {
		t.Errorf("central balance after rejection = %s, want 30", got)
	}

	page, err := s.queries.ListMovements(ctx, domain.MovementFilter{Kind: domain.KindExit}, 1, 10)
	if err != nil {
		t.Fatalf("ListMovements() error = %v", err)
	}

	if page.Total != 0 {
		t.Errorf("recorded exits = %d, want 0", page.Total)
	}

	detail, err := s.queries.GetMovement(ctx, entryID)
	if err != nil {
		t.Fatalf("GetMovement() error = %v", err)
	}

	if detail.Kind != domain.KindEntry || len(detail.Lines) != 1 {
		t.Errorf("entry detail = kind %s with %d lines, want entry with 1 line", detail.Kind, len(detail.Lines))
	}
}

func TestAdjustmentIdempotence(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	s.seedCatalog(ctx, t)

	input := actor()
	input.Reason = "cycle count"

	target := []usecase.LineInput{{ItemID: "item-paint", Quantity: decimal.NewFromInt(12)}}

	if _, err := s.movements.CreateAdjustment(ctx, input, "wh-central", target); err != nil {
		t.Fatalf("first CreateAdjustment() error = %v", err)
	}

	if got := s.db.BalanceQuantity(ctx, "item-paint", "wh-central"); !got.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("balance after adjustment = %s, want 12", got)
	}

	// Repeating the same count changes nothing, so no second movement
	// may appear in the ledger.
	_, err := s.movements.CreateAdjustment(ctx, input, "wh-central", target)
	if !errors.Is(err, domain.ErrNoopAdjustment) {
		t.Fatalf("second CreateAdjustment() error = %v, want ErrNoopAdjustment", err)
	}

	page, err := s.queries.ListMovements(ctx, domain.MovementFilter{Kind: domain.KindAdjustment}, 1, 10)
	if err != nil {
		t.Fatalf("ListMovements() error = %v", err)
	}

	if page.Total != 1 {
		t.Errorf("recorded adjustments = %d, want 1", page.Total)
	}
}

// TestKardexMatchesBalance checks that the signed history of an item in a
// warehouse sums to its current balance.
func TestKardexMatchesBalance(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	s.seedCatalog(ctx, t)

	bolt := func(qty int64) []usecase.LineInput {
		return []usecase.LineInput{{ItemID: "item-bolt", Quantity: decimal.NewFromInt(qty)}}
	}

	if _, err := s.movements.CreateEntry(ctx, actor(), "wh-central", bolt(100)); err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}

	if _, err := s.movements.CreateExit(ctx, actor(), "wh-central", bolt(35)); err != nil {
		t.Fatalf("CreateExit() error = %v", err)
	}

	if _, err := s.movements.CreateTransfer(ctx, actor(), "wh-central", "wh-north", bolt(25)); err != nil {
		t.Fatalf("CreateTransfer() error = %v", err)
	}

	counted := actor()
	counted.Reason = "damaged goods written off"

	if _, err := s.movements.CreateAdjustment(ctx, counted, "wh-central", bolt(38)); err != nil {
		t.Fatalf("CreateAdjustment() error = %v", err)
	}

	entries, err := s.queries.Kardex(ctx, domain.KardexQuery{ItemID: "item-bolt", WarehouseID: "wh-central"})
	if err != nil {
		t.Fatalf("Kardex() error = %v", err)
	}

	if len(entries) != 4 {
		t.Fatalf("len(entries) = %d, want 4", len(entries))
	}

	sum := decimal.Zero
	for _, entry := range entries {
		sum = sum.Add(entry.Quantity)
	}

	balance, err := s.queries.CurrentBalance(ctx, "item-bolt", "wh-central")
	if err != nil {
		t.Fatalf("CurrentBalance() error = %v", err)
	}

	if !sum.Equal(balance) {
		t.Errorf("kardex sum = %s, balance = %s, want equal", sum, balance)
	}

	if !balance.Equal(decimal.NewFromInt(38)) {
		t.Errorf("balance = %s, want 38", balance)
	}

	// Both sides of the item's history, without the warehouse filter.
	all, err := s.queries.Kardex(ctx, domain.KardexQuery{ItemID: "item-bolt"})
	if err != nil {
		t.Fatalf("Kardex() error = %v", err)
	}

	if len(all) != 5 {
		t.Errorf("len(all) = %d, want 5 (transfer contributes two sides)", len(all))
	}
}

func TestListMovementsFilterAndPaging(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	s.seedCatalog(ctx, t)

	bolt := []usecase.LineInput{{ItemID: "item-bolt", Quantity: decimal.NewFromInt(5)}}

	for i := 0; i < 5; i++ {
		if _, err := s.movements.CreateEntry(ctx, actor(), "wh-central", bolt); err != nil {
			t.Fatalf("CreateEntry() error = %v", err)
		}
	}

	restock := actor()
	restock.Reason = "quarterly restock"

	if _, err := s.movements.CreateEntry(ctx, restock, "wh-north", bolt); err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}

	page, err := s.queries.ListMovements(ctx, domain.MovementFilter{}, 1, 4)
	if err != nil {
		t.Fatalf("ListMovements() error = %v", err)
	}

	if page.Total != 6 || len(page.Movements) != 4 {
		t.Errorf("page 1 = %d of %d, want 4 of 6", len(page.Movements), page.Total)
	}

	page, err = s.queries.ListMovements(ctx, domain.MovementFilter{}, 2, 4)
	if err != nil {
		t.Fatalf("ListMovements() error = %v", err)
	}

	if len(page.Movements) != 2 {
		t.Errorf("page 2 = %d movements, want 2", len(page.Movements))
	}

	page, err = s.queries.ListMovements(ctx, domain.MovementFilter{WarehouseID: "wh-north"}, 1, 10)
	if err != nil {
		t.Fatalf("ListMovements() error = %v", err)
	}

	if page.Total != 1 {
		t.Errorf("wh-north total = %d, want 1", page.Total)
	}

	page, err = s.queries.ListMovements(ctx, domain.MovementFilter{Search: "restock"}, 1, 10)
	if err != nil {
		t.Fatalf("ListMovements() error = %v", err)
	}

	if page.Total != 1 {
		t.Errorf("search total = %d, want 1", page.Total)
	}
}

func TestPeriodSummaryAggregates(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	s.seedCatalog(ctx, t)

	lines := []usecase.LineInput{
		{ItemID: "item-bolt", Quantity: decimal.NewFromInt(40)},
		{ItemID: "item-paint", Quantity: decimal.NewFromInt(10)},
	}

	if _, err := s.movements.CreateEntry(ctx, actor(), "wh-central", lines); err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}

	exit := []usecase.LineInput{{ItemID: "item-bolt", Quantity: decimal.NewFromInt(15)}}
	if _, err := s.movements.CreateExit(ctx, actor(), "wh-central", exit); err != nil {
		t.Fatalf("CreateExit() error = %v", err)
	}

	page, err := s.queries.ListMovements(ctx, domain.MovementFilter{}, 1, 1)
	if err != nil {
		t.Fatalf("ListMovements() error = %v", err)
	}

	from := page.Movements[len(page.Movements)-1].OccurredAt.AddDate(0, 0, -1)
	to := page.Movements[0].OccurredAt.AddDate(0, 0, 1)

	summaries, err := s.queries.PeriodSummary(ctx, from, to, "")
	if err != nil {
		t.Fatalf("PeriodSummary() error = %v", err)
	}

	byKind := make(map[domain.MovementKind]*domain.KindSummary, len(summaries))
	for _, summary := range summaries {
		byKind[summary.Kind] = summary
	}

	entry, ok := byKind[domain.KindEntry]
	if !ok {
		t.Fatal("no entry summary")
	}

	if entry.MovementCount != 1 || entry.DistinctItems != 2 || !entry.TotalQuantity.Equal(decimal.NewFromInt(50)) {
		t.Errorf("entry summary = %d movements, %d items, total %s; want 1, 2, 50",
			entry.MovementCount, entry.DistinctItems, entry.TotalQuantity)
	}

	exitSummary, ok := byKind[domain.KindExit]
	if !ok {
		t.Fatal("no exit summary")
	}

	if !exitSummary.TotalQuantity.Equal(decimal.NewFromInt(15)) {
		t.Errorf("exit total = %s, want 15", exitSummary.TotalQuantity)
	}
}

func TestStockSnapshot(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	s.seedCatalog(ctx, t)

	if _, err := s.movements.CreateEntry(ctx, actor(), "wh-central", []usecase.LineInput{
		{ItemID: "item-bolt", Quantity: decimal.NewFromInt(10)},
		{ItemID: "item-paint", Quantity: decimal.RequireFromString("2.5")},
	}); err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}

	// Drain the paint so it drops out of the snapshot.
	if _, err := s.movements.CreateExit(ctx, actor(), "wh-central", []usecase.LineInput{
		{ItemID: "item-paint", Quantity: decimal.RequireFromString("2.5")},
	}); err != nil {
		t.Fatalf("CreateExit() error = %v", err)
	}

	levels, err := s.queries.StockSnapshot(ctx, "wh-central")
	if err != nil {
		t.Fatalf("StockSnapshot() error = %v", err)
	}

	if len(levels) != 1 {
		t.Fatalf("len(levels) = %d, want 1", len(levels))
	}

	if levels[0].ItemID != "item-bolt" || !levels[0].Quantity.Equal(decimal.NewFromInt(10)) {
		t.Errorf("level = %s %s, want item-bolt 10", levels[0].ItemID, levels[0].Quantity)
	}
}
