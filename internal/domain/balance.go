package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceKey identifies one stock balance row.
type BalanceKey struct {
	ItemID      string
	WarehouseID string
}

// Less orders keys by item id, then warehouse id. Locking rows in this
// order keeps concurrent multi-pair commands deadlock-free.
func (k BalanceKey) Less(other BalanceKey) bool {
	if k.ItemID != other.ItemID {
		return k.ItemID < other.ItemID
	}

	return k.WarehouseID < other.WarehouseID
}

// StockBalance is the current on-hand quantity of an item in a warehouse.
// It is a read cache derived from the movement ledger; if the two ever
// disagree, the ledger wins. Rows are created lazily at zero and never
// deleted.
type StockBalance struct {
	UpdatedAt   time.Time
	ItemID      string
	WarehouseID string
	Quantity    decimal.Decimal
}

// Key returns the balance's identifying pair.
func (b *StockBalance) Key() BalanceKey {
	return BalanceKey{ItemID: b.ItemID, WarehouseID: b.WarehouseID}
}

// ValidateWithdraw checks whether quantity can be taken from the balance.
func (b *StockBalance) ValidateWithdraw(quantity decimal.Decimal) error {
	if b.Quantity.LessThan(quantity) {
		return &InsufficientStockError{
			ItemID:      b.ItemID,
			WarehouseID: b.WarehouseID,
			Available:   b.Quantity,
			Requested:   quantity,
		}
	}

	return nil
}

// Add applies a signed quantity change.
func (b *StockBalance) Add(delta decimal.Decimal) {
	b.Quantity = b.Quantity.Add(delta)
}

// StockLevel is a balance row enriched with item reference fields, used by
// snapshot views and exports.
type StockLevel struct {
	UpdatedAt   time.Time
	ItemID      string
	ItemName    string
	ItemUnit    string
	WarehouseID string
	Quantity    decimal.Decimal
}
