package integration

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	postgresRepo "github.com/warely/stockledger/internal/adapter/repository/postgres"
	"github.com/warely/stockledger/internal/usecase"
	"github.com/warely/stockledger/tests/testutil"
)

// stack wires the real repositories and use cases against the test
// database, the same way the CLI does.
type stack struct {
	db        *testutil.TestDB
	movements *usecase.MovementUseCase
	queries   *usecase.QueryUseCase
	recon     *usecase.ReconciliationUseCase
	retrier   *postgresRepo.Retrier
}

func newStack(t *testing.T) *stack {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := testutil.NewTestDB(t)
	t.Cleanup(db.Cleanup)

	db.TruncateAll(context.Background())

	txManager := postgresRepo.NewTxManager(db.Pool)
	movementRepo := postgresRepo.NewMovementRepository(db.Pool)
	balanceRepo := postgresRepo.NewBalanceRepository(db.Pool)
	catalog := postgresRepo.NewCatalogRepository(db.Pool)
	idGen := postgresRepo.NewULIDGenerator()

	return &stack{
		db:        db,
		movements: usecase.NewMovementUseCase(txManager, movementRepo, balanceRepo, catalog, idGen, nil),
		queries:   usecase.NewQueryUseCase(movementRepo, balanceRepo, catalog),
		recon:     usecase.NewReconciliationUseCase(txManager, movementRepo, balanceRepo, nil),
		retrier:   postgresRepo.NewRetrier(zerolog.Nop()),
	}
}

// seedCatalog creates the warehouses and items the scenarios move around.
func (s *stack) seedCatalog(ctx context.Context, t *testing.T) {
	t.Helper()

	s.db.CreateWarehouse(ctx, "wh-central", "Central Warehouse")
	s.db.CreateWarehouse(ctx, "wh-north", "North Branch")
	s.db.CreateItem(ctx, "item-bolt", "Hex Bolt M8", "unit")
	s.db.CreateItem(ctx, "item-paint", "White Paint", "liter")
}

func actor() usecase.CommandInput {
	return usecase.CommandInput{ActorID: "user-1", ActorName: "Ana Flores"}
}
