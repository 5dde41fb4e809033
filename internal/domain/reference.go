package domain

import "github.com/shopspring/decimal"

// Item is a trackable product. Owned by the catalog; the ledger only reads
// it. Inactive items stay visible in history but reject new movements.
type Item struct {
	ID       string
	Name     string
	Unit     string
	UnitCost decimal.Decimal
	Active   bool
}

// Warehouse is a storage location, also catalog-owned reference data.
type Warehouse struct {
	ID     string
	Name   string
	Active bool
}
