package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind identifies what a movement does to stock.
type MovementKind string

const (
	KindEntry      MovementKind = "entry"
	KindExit       MovementKind = "exit"
	KindTransfer   MovementKind = "transfer"
	KindAdjustment MovementKind = "adjustment"
)

// Valid reports whether k is one of the four movement kinds.
func (k MovementKind) Valid() bool {
	switch k {
	case KindEntry, KindExit, KindTransfer, KindAdjustment:
		return true
	}

	return false
}

// Kinds lists every movement kind in a stable order.
func Kinds() []MovementKind {
	return []MovementKind{KindEntry, KindExit, KindTransfer, KindAdjustment}
}

// Movement is one committed inventory event. Movements are immutable:
// corrections are recorded as new adjustment movements, never as edits.
type Movement struct {
	OccurredAt             time.Time
	CreatedAt              time.Time
	OriginWarehouseID      *string
	DestinationWarehouseID *string
	ID                     string
	Kind                   MovementKind
	ActorID                string
	ActorName              string
	Reason                 string
	Notes                  string
	Lines                  []MovementLine
}

// MovementLine is a single item row within a movement. Quantity holds the
// entered magnitude for entry/exit/transfer lines and the computed signed
// delta for adjustment lines.
type MovementLine struct {
	ID         string
	MovementID string
	ItemID     string
	Position   int
	Quantity   decimal.Decimal
}

// LineDetail is a line enriched with item reference fields for read views.
type LineDetail struct {
	MovementLine
	ItemName string
	ItemUnit string
}

// MovementDetail is the full read view of a movement.
type MovementDetail struct {
	Movement
	OriginWarehouseName      string
	DestinationWarehouseName string
	Lines                    []LineDetail
}

// MovementSummary is a list row: the header annotated with line count and
// the sum of absolute line quantities.
type MovementSummary struct {
	Movement
	LineCount     int
	TotalQuantity decimal.Decimal
}

// MovementPage is one page of list results plus the total match count.
type MovementPage struct {
	Movements []*MovementSummary
	Total     int
	Page      int
	PageSize  int
}

// MovementFilter is the structured filter for listing movements. Zero
// values mean "no restriction"; set predicates are AND-combined.
type MovementFilter struct {
	From        *time.Time
	To          *time.Time
	Kind        MovementKind // empty matches all kinds
	WarehouseID string       // matches origin or destination
	ActorID     string
	ItemID      string // at least one line references the item
	Search      string // case-insensitive over reason, notes, actor name
}

// KardexQuery selects the per-item history to project.
type KardexQuery struct {
	From        *time.Time
	To          *time.Time
	ItemID      string
	WarehouseID string // optional: restrict to one warehouse
}

// KardexEntry is one row of an item's chronological history: the signed
// stock effect of one movement line on one warehouse.
type KardexEntry struct {
	OccurredAt                time.Time
	MovementID                string
	Kind                      MovementKind
	ItemID                    string
	WarehouseID               string
	WarehouseName             string
	CounterpartyWarehouseID   string // the other side of a transfer
	CounterpartyWarehouseName string
	Reason                    string
	Quantity                  decimal.Decimal // signed
}

// KindSummary aggregates one movement kind over a period.
type KindSummary struct {
	Kind               MovementKind
	MovementCount      int
	TotalQuantity      decimal.Decimal
	DistinctItems      int
	DistinctWarehouses int
}
