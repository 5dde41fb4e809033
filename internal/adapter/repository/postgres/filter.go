package postgres

import (
	"fmt"
	"strings"

	"github.com/warely/stockledger/internal/domain"
)

// filterSQL assembles a WHERE clause with positional arguments from a
// structured movement filter.
type filterSQL struct {
	conds []string
	args  []any
}

func (f *filterSQL) arg(value any) string {
	f.args = append(f.args, value)
	return fmt.Sprintf("$%d", len(f.args))
}

func (f *filterSQL) where() string {
	if len(f.conds) == 0 {
		return ""
	}

	return " WHERE " + strings.Join(f.conds, " AND ")
}

// buildMovementFilter translates the filter into SQL conditions over the
// movements table aliased as m. Set predicates are AND-combined.
func buildMovementFilter(filter domain.MovementFilter) *filterSQL {
	f := &filterSQL{}

	if filter.Kind != "" {
		f.conds = append(f.conds, "m.kind = "+f.arg(string(filter.Kind)))
	}

	if filter.WarehouseID != "" {
		placeholder := f.arg(filter.WarehouseID)
		f.conds = append(f.conds, fmt.Sprintf("(m.origin_warehouse_id = %s OR m.destination_warehouse_id = %s)", placeholder, placeholder))
	}

	if filter.ActorID != "" {
		f.conds = append(f.conds, "m.actor_id = "+f.arg(filter.ActorID))
	}

	if filter.From != nil {
		f.conds = append(f.conds, "m.occurred_at >= "+f.arg(filter.From.UTC()))
	}

	if filter.To != nil {
		f.conds = append(f.conds, "m.occurred_at <= "+f.arg(filter.To.UTC()))
	}

	if filter.ItemID != "" {
		f.conds = append(f.conds, "EXISTS (SELECT 1 FROM movement_lines fl WHERE fl.movement_id = m.id AND fl.item_id = "+f.arg(filter.ItemID)+")")
	}

	if filter.Search != "" {
		placeholder := f.arg("%" + filter.Search + "%")
		f.conds = append(f.conds, fmt.Sprintf("(m.reason ILIKE %s OR m.notes ILIKE %s OR m.actor_name ILIKE %s)", placeholder, placeholder, placeholder))
	}

	return f
}
