package integration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/warely/stockledger/internal/domain"
	"github.com/warely/stockledger/internal/usecase"
)

// TestConcurrentExitsSerialize races two exits of 6 against a balance of
// 10. The locked balance rows force them to serialize, so exactly one may
// succeed and the loser must see the post-commit balance.
func TestConcurrentExitsSerialize(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	s.seedCatalog(ctx, t)

	seed := []usecase.LineInput{{ItemID: "item-bolt", Quantity: decimal.NewFromInt(10)}}
	if _, err := s.movements.CreateEntry(ctx, actor(), "wh-central", seed); err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}

	const racers = 2

	var (
		wg           sync.WaitGroup
		successCount atomic.Int32
		rejectCount  atomic.Int32
	)

	for i := 0; i < racers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			err := s.retrier.Retry(ctx, func() error {
				_, err := s.movements.CreateExit(ctx, actor(), "wh-central", []usecase.LineInput{
					{ItemID: "item-bolt", Quantity: decimal.NewFromInt(6)},
				})
				return err
			})

			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				rejectCount.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("successes = %d, want 1", successCount.Load())
	}

	if rejectCount.Load() != 1 {
		t.Errorf("rejections = %d, want 1", rejectCount.Load())
	}

	if got := s.db.BalanceQuantity(ctx, "item-bolt", "wh-central"); !got.Equal(decimal.NewFromInt(4)) {
		t.Errorf("final balance = %s, want 4", got)
	}
}

// TestConcurrentExitsDrainExactly runs many small exits against a balance
// that covers all of them. None may be lost and none double-applied.
func TestConcurrentExitsDrainExactly(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	s.seedCatalog(ctx, t)

	const (
		workers = 20
		perExit = 5
	)

	seed := []usecase.LineInput{{ItemID: "item-bolt", Quantity: decimal.NewFromInt(workers * perExit)}}
	if _, err := s.movements.CreateEntry(ctx, actor(), "wh-central", seed); err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}

	var (
		wg           sync.WaitGroup
		successCount atomic.Int32
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			err := s.retrier.Retry(ctx, func() error {
				_, err := s.movements.CreateExit(ctx, actor(), "wh-central", []usecase.LineInput{
					{ItemID: "item-bolt", Quantity: decimal.NewFromInt(perExit)},
				})
				return err
			})
			if err != nil {
				t.Errorf("exit failed: %v", err)
				return
			}

			successCount.Add(1)
		}()
	}

	wg.Wait()

	if successCount.Load() != workers {
		t.Errorf("successes = %d, want %d", successCount.Load(), workers)
	}

	if got := s.db.BalanceQuantity(ctx, "item-bolt", "wh-central"); !got.IsZero() {
		t.Errorf("final balance = %s, want 0", got)
	}
}

// TestConcurrentOpposingTransfers moves stock in both directions between
// two warehouses at once. Sorted lock acquisition prevents deadlock, and
// the combined totals must be preserved.
func TestConcurrentOpposingTransfers(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	s.seedCatalog(ctx, t)

	seed := []usecase.LineInput{{ItemID: "item-bolt", Quantity: decimal.NewFromInt(50)}}

	if _, err := s.movements.CreateEntry(ctx, actor(), "wh-central", seed); err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}

	if _, err := s.movements.CreateEntry(ctx, actor(), "wh-north", seed); err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}

	transfer := func(origin, destination string) func() {
		return func() {
			err := s.retrier.Retry(ctx, func() error {
				_, err := s.movements.CreateTransfer(ctx, actor(), origin, destination, []usecase.LineInput{
					{ItemID: "item-bolt", Quantity: decimal.NewFromInt(1)},
				})
				return err
			})
			if err != nil {
				t.Errorf("transfer %s -> %s failed: %v", origin, destination, err)
			}
		}
	}

	const rounds = 10

	var wg sync.WaitGroup

	for i := 0; i < rounds; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			transfer("wh-central", "wh-north")()
		}()

		go func() {
			defer wg.Done()
			transfer("wh-north", "wh-central")()
		}()
	}

	wg.Wait()

	central := s.db.BalanceQuantity(ctx, "item-bolt", "wh-central")
	north := s.db.BalanceQuantity(ctx, "item-bolt", "wh-north")

	if !central.Add(north).Equal(decimal.NewFromInt(100)) {
		t.Errorf("combined balance = %s, want 100", central.Add(north))
	}

	if !central.Equal(decimal.NewFromInt(50)) || !north.Equal(decimal.NewFromInt(50)) {
		t.Errorf("balances = %s / %s, want 50 / 50 after equal opposing transfers", central, north)
	}
}
