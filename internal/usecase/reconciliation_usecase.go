package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warely/stockledger/internal/domain"
	"github.com/warely/stockledger/internal/infrastructure/metrics"
)

// ReconciliationUseCase verifies that the stock balance index still equals
// the sums derived from the movement ledger. The ledger is authoritative:
// a mismatch means the index row is wrong, never the history.
type ReconciliationUseCase struct {
	txManager    TransactionManager
	movementRepo MovementRepository
	balanceRepo  BalanceRepository
	metrics      *metrics.Metrics
}

// NewReconciliationUseCase creates a new ReconciliationUseCase. metrics
// may be nil.
func NewReconciliationUseCase(
	txManager TransactionManager,
	movementRepo MovementRepository,
	balanceRepo BalanceRepository,
	m *metrics.Metrics,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		txManager:    txManager,
		movementRepo: movementRepo,
		balanceRepo:  balanceRepo,
		metrics:      m,
	}
}

// Discrepancy is one balance row that disagrees with the ledger.
type Discrepancy struct {
	Key        domain.BalanceKey
	Recorded   decimal.Decimal // what the index says
	Derived    decimal.Decimal // what the ledger says
	Difference decimal.Decimal // recorded minus derived
}

// Report is the outcome of one reconciliation pass.
type Report struct {
	CheckedAt     time.Time
	Discrepancies []Discrepancy
	CheckedPairs  int
	Consistent    bool
}

// Check recomputes every pair's quantity from the ledger and diffs it
// against the stored balance rows.
func (uc *ReconciliationUseCase) Check(ctx context.Context) (*Report, error) {
	derived, err := uc.movementRepo.EffectTotals(ctx)
	if err != nil {
		return nil, err
	}

	recorded, err := uc.balanceRepo.All(ctx)
	if err != nil {
		return nil, err
	}

	recordedByKey := make(map[domain.BalanceKey]decimal.Decimal, len(recorded))
	for _, balance := range recorded {
		recordedByKey[balance.Key()] = balance.Quantity
	}

	keys := make(map[domain.BalanceKey]bool, len(derived)+len(recordedByKey))
	for key := range derived {
		keys[key] = true
	}

	for key := range recordedByKey {
		keys[key] = true
	}

	report := &Report{
		CheckedAt:    time.Now().UTC(),
		CheckedPairs: len(keys),
	}

	for key := range keys {
		derivedQty := derived[key]
		recordedQty := recordedByKey[key]

		if derivedQty.Equal(recordedQty) {
			continue
		}

		report.Discrepancies = append(report.Discrepancies, Discrepancy{
			Key:        key,
			Recorded:   recordedQty,
			Derived:    derivedQty,
			Difference: recordedQty.Sub(derivedQty),
		})
	}

	sort.Slice(report.Discrepancies, func(i, j int) bool {
		return report.Discrepancies[i].Key.Less(report.Discrepancies[j].Key)
	})

	report.Consistent = len(report.Discrepancies) == 0

	if uc.metrics != nil {
		uc.metrics.ReconciliationMismatches.Set(float64(len(report.Discrepancies)))
	}

	return report, nil
}

// Repair rewrites the listed balance rows to their ledger-derived values
// inside one transaction. The rows are locked in deterministic order first;
// any movement touching a repaired pair blocks on those locks until the
// repair commits, so the totals read afterwards cannot go stale against a
// concurrent write.
func (uc *ReconciliationUseCase) Repair(ctx context.Context, keys []domain.BalanceKey) error {
	if len(keys) == 0 {
		return nil
	}

	sorted := make([]domain.BalanceKey, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	balances, err := uc.balanceRepo.LockPairs(ctx, tx, sorted)
	if err != nil {
		return err
	}

	derived, err := uc.movementRepo.EffectTotals(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()

	for _, key := range sorted {
		balance := balances[key]
		balance.Quantity = derived[key]
		balance.UpdatedAt = now

		if err := uc.balanceRepo.Update(ctx, tx, balance); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
