package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/warely/stockledger/internal/domain"
	"github.com/warely/stockledger/internal/usecase"
)

// MovementRepository implements usecase.MovementRepository.
type MovementRepository struct {
	pool *pgxpool.Pool
}

// NewMovementRepository creates a new MovementRepository.
func NewMovementRepository(pool *pgxpool.Pool) *MovementRepository {
	return &MovementRepository{pool: pool}
}

// Create inserts the movement header and its lines inside the caller's
// transaction. Movements are append-only; there is no update path.
func (r *MovementRepository) Create(ctx context.Context, tx usecase.Transaction, movement *domain.Movement) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `
		INSERT INTO movements (id, kind, origin_warehouse_id, destination_warehouse_id,
			actor_id, actor_name, reason, notes, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		movement.ID,
		string(movement.Kind),
		movement.OriginWarehouseID,
		movement.DestinationWarehouseID,
		movement.ActorID,
		movement.ActorName,
		movement.Reason,
		movement.Notes,
		movement.OccurredAt,
		movement.CreatedAt,
	)
	if err != nil {
		return &domain.StoreError{Err: err, Op: "movement.create"}
	}

	for _, line := range movement.Lines {
		_, err := pgxTx.Exec(ctx, `
			INSERT INTO movement_lines (id, movement_id, item_id, position, quantity)
			VALUES ($1, $2, $3, $4, $5)`,
			line.ID, line.MovementID, line.ItemID, line.Position, line.Quantity,
		)
		if err != nil {
			return &domain.StoreError{Err: err, Op: "movement.create_line"}
		}
	}

	return nil
}

// GetByID retrieves a movement with warehouse names and enriched lines.
func (r *MovementRepository) GetByID(ctx context.Context, id string) (*domain.MovementDetail, error) {
	detail := &domain.MovementDetail{}

	var kind string

	err := r.pool.QueryRow(ctx, `
		SELECT m.id, m.kind, m.origin_warehouse_id, m.destination_warehouse_id,
			COALESCE(ow.name, ''), COALESCE(dw.name, ''),
			m.actor_id, m.actor_name, m.reason, m.notes, m.occurred_at, m.created_at
		FROM movements m
		LEFT JOIN warehouses ow ON ow.id = m.origin_warehouse_id
		LEFT JOIN warehouses dw ON dw.id = m.destination_warehouse_id
		WHERE m.id = $1`, id,
	).Scan(
		&detail.ID, &kind, &detail.OriginWarehouseID, &detail.DestinationWarehouseID,
		&detail.OriginWarehouseName, &detail.DestinationWarehouseName,
		&detail.ActorID, &detail.ActorName, &detail.Reason, &detail.Notes,
		&detail.OccurredAt, &detail.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMovementNotFound
		}

		return nil, &domain.StoreError{Err: err, Op: "movement.get"}
	}

	detail.Kind = domain.MovementKind(kind)

	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.movement_id, l.item_id, l.position, l.quantity, i.name, i.unit
		FROM movement_lines l
		JOIN items i ON i.id = l.item_id
		WHERE l.movement_id = $1
		ORDER BY l.position`, id,
	)
	if err != nil {
		return nil, &domain.StoreError{Err: err, Op: "movement.get_lines"}
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.LineDetail
		if err := rows.Scan(&line.ID, &line.MovementID, &line.ItemID, &line.Position, &line.Quantity, &line.ItemName, &line.ItemUnit); err != nil {
			return nil, &domain.StoreError{Err: err, Op: "movement.get_lines"}
		}

		detail.Lines = append(detail.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Err: err, Op: "movement.get_lines"}
	}

	return detail, nil
}

// List returns one page of movement summaries matching the filter, newest
// first, together with the total match count.
func (r *MovementRepository) List(ctx context.Context, filter domain.MovementFilter, limit, offset int) ([]*domain.MovementSummary, int, error) {
	f := buildMovementFilter(filter)

	var total int

	countQuery := "SELECT COUNT(*) FROM movements m" + f.where()
	if err := r.pool.QueryRow(ctx, countQuery, f.args...).Scan(&total); err != nil {
		return nil, 0, &domain.StoreError{Err: err, Op: "movement.count"}
	}

	query := fmt.Sprintf(`
		SELECT m.id, m.kind, m.origin_warehouse_id, m.destination_warehouse_id,
			m.actor_id, m.actor_name, m.reason, m.notes, m.occurred_at, m.created_at,
			COUNT(l.id), COALESCE(SUM(ABS(l.quantity)), 0)
		FROM movements m
		LEFT JOIN movement_lines l ON l.movement_id = m.id
		%s
		GROUP BY m.id
		ORDER BY m.occurred_at DESC, m.id DESC
		LIMIT %s OFFSET %s`, f.where(), f.arg(limit), f.arg(offset))

	rows, err := r.pool.Query(ctx, query, f.args...)
	if err != nil {
		return nil, 0, &domain.StoreError{Err: err, Op: "movement.list"}
	}
	defer rows.Close()

	summaries := make([]*domain.MovementSummary, 0, limit)

	for rows.Next() {
		var (
			summary domain.MovementSummary
			kind    string
		)

		err := rows.Scan(
			&summary.ID, &kind, &summary.OriginWarehouseID, &summary.DestinationWarehouseID,
			&summary.ActorID, &summary.ActorName, &summary.Reason, &summary.Notes,
			&summary.OccurredAt, &summary.CreatedAt,
			&summary.LineCount, &summary.TotalQuantity,
		)
		if err != nil {
			return nil, 0, &domain.StoreError{Err: err, Op: "movement.list"}
		}

		summary.Kind = domain.MovementKind(kind)
		summaries = append(summaries, &summary)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, &domain.StoreError{Err: err, Op: "movement.list"}
	}

	return summaries, total, nil
}

// kardexRow is one fetched movement line before expansion into warehouse
// sided entries.
type kardexRow struct {
	occurredAt      time.Time
	movementID      string
	kind            domain.MovementKind
	origin          *string
	destination     *string
	originName      string
	destinationName string
	reason          string
	quantity        decimal.Decimal
}

// Kardex projects the item's chronological signed history. Transfers fan
// out into two rows, one per warehouse side, so running balances per
// warehouse can be derived by simple summation.
func (r *MovementRepository) Kardex(ctx context.Context, query domain.KardexQuery) ([]*domain.KardexEntry, error) {
	f := &filterSQL{}
	f.conds = append(f.conds, "l.item_id = "+f.arg(query.ItemID))

	if query.From != nil {
		f.conds = append(f.conds, "m.occurred_at >= "+f.arg(query.From.UTC()))
	}

	if query.To != nil {
		f.conds = append(f.conds, "m.occurred_at <= "+f.arg(query.To.UTC()))
	}

	sql := `
		SELECT m.occurred_at, m.id, m.kind, m.origin_warehouse_id, m.destination_warehouse_id,
			COALESCE(ow.name, ''), COALESCE(dw.name, ''), m.reason, l.quantity
		FROM movement_lines l
		JOIN movements m ON m.id = l.movement_id
		LEFT JOIN warehouses ow ON ow.id = m.origin_warehouse_id
		LEFT JOIN warehouses dw ON dw.id = m.destination_warehouse_id` +
		f.where() + `
		ORDER BY m.occurred_at ASC, m.id ASC, l.position ASC`

	rows, err := r.pool.Query(ctx, sql, f.args...)
	if err != nil {
		return nil, &domain.StoreError{Err: err, Op: "movement.kardex"}
	}
	defer rows.Close()

	var entries []*domain.KardexEntry

	for rows.Next() {
		var (
			row  kardexRow
			kind string
		)

		err := rows.Scan(
			&row.occurredAt, &row.movementID, &kind, &row.origin, &row.destination,
			&row.originName, &row.destinationName, &row.reason, &row.quantity,
		)
		if err != nil {
			return nil, &domain.StoreError{Err: err, Op: "movement.kardex"}
		}

		row.kind = domain.MovementKind(kind)
		entries = append(entries, expandKardexRow(query, row)...)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Err: err, Op: "movement.kardex"}
	}

	return entries, nil
}

func expandKardexRow(query domain.KardexQuery, row kardexRow) []*domain.KardexEntry {
	base := domain.KardexEntry{
		OccurredAt: row.occurredAt,
		MovementID: row.movementID,
		Kind:       row.kind,
		ItemID:     query.ItemID,
		Reason:     row.reason,
	}

	side := func(warehouseID, warehouseName string, quantity decimal.Decimal, counterpartyID, counterpartyName string) *domain.KardexEntry {
		entry := base
		entry.WarehouseID = warehouseID
		entry.WarehouseName = warehouseName
		entry.Quantity = quantity
		entry.CounterpartyWarehouseID = counterpartyID
		entry.CounterpartyWarehouseName = counterpartyName
		return &entry
	}

	var sides []*domain.KardexEntry

	switch row.kind {
	case domain.KindEntry, domain.KindAdjustment:
		// Adjustment lines already store the signed delta.
		sides = append(sides, side(deref(row.destination), row.destinationName, row.quantity, "", ""))
	case domain.KindExit:
		sides = append(sides, side(deref(row.origin), row.originName, row.quantity.Neg(), "", ""))
	case domain.KindTransfer:
		sides = append(sides,
			side(deref(row.origin), row.originName, row.quantity.Neg(), deref(row.destination), row.destinationName),
			side(deref(row.destination), row.destinationName, row.quantity, deref(row.origin), row.originName),
		)
	}

	if query.WarehouseID == "" {
		return sides
	}

	filtered := sides[:0]
	for _, entry := range sides {
		if entry.WarehouseID == query.WarehouseID {
			filtered = append(filtered, entry)
		}
	}

	return filtered
}

// Summarize aggregates movements per kind over [from, to]. Aggregation
// happens in Go because transfer lines count toward both warehouses and a
// SQL sum over an unnested view would double their quantities.
func (r *MovementRepository) Summarize(ctx context.Context, from, to time.Time, kind domain.MovementKind) ([]*domain.KindSummary, error) {
	f := &filterSQL{}
	f.conds = append(f.conds, "m.occurred_at >= "+f.arg(from.UTC()))
	f.conds = append(f.conds, "m.occurred_at <= "+f.arg(to.UTC()))

	if kind != "" {
		f.conds = append(f.conds, "m.kind = "+f.arg(string(kind)))
	}

	sql := `
		SELECT m.id, m.kind, m.origin_warehouse_id, m.destination_warehouse_id, l.item_id, l.quantity
		FROM movements m
		JOIN movement_lines l ON l.movement_id = m.id` +
		f.where()

	rows, err := r.pool.Query(ctx, sql, f.args...)
	if err != nil {
		return nil, &domain.StoreError{Err: err, Op: "movement.summarize"}
	}
	defer rows.Close()

	type accumulator struct {
		movements  map[string]bool
		items      map[string]bool
		warehouses map[string]bool
		total      decimal.Decimal
	}

	byKind := make(map[domain.MovementKind]*accumulator)

	for rows.Next() {
		var (
			movementID, kindValue, itemID string
			origin, destination           *string
			quantity                      decimal.Decimal
		)

		if err := rows.Scan(&movementID, &kindValue, &origin, &destination, &itemID, &quantity); err != nil {
			return nil, &domain.StoreError{Err: err, Op: "movement.summarize"}
		}

		k := domain.MovementKind(kindValue)

		acc := byKind[k]
		if acc == nil {
			acc = &accumulator{
				movements:  make(map[string]bool),
				items:      make(map[string]bool),
				warehouses: make(map[string]bool),
			}
			byKind[k] = acc
		}

		acc.movements[movementID] = true
		acc.items[itemID] = true

		if origin != nil {
			acc.warehouses[*origin] = true
		}

		if destination != nil {
			acc.warehouses[*destination] = true
		}

		acc.total = acc.total.Add(quantity.Abs())
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Err: err, Op: "movement.summarize"}
	}

	summaries := make([]*domain.KindSummary, 0, len(byKind))

	for _, k := range domain.Kinds() {
		acc, ok := byKind[k]
		if !ok {
			continue
		}

		summaries = append(summaries, &domain.KindSummary{
			Kind:               k,
			MovementCount:      len(acc.movements),
			TotalQuantity:      acc.total,
			DistinctItems:      len(acc.items),
			DistinctWarehouses: len(acc.warehouses),
		})
	}

	return summaries, nil
}

// EffectTotals replays the entire ledger into per-pair signed sums. Used
// by reconciliation to derive what every balance row should hold.
func (r *MovementRepository) EffectTotals(ctx context.Context) (map[domain.BalanceKey]decimal.Decimal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.kind, m.origin_warehouse_id, m.destination_warehouse_id, l.item_id, l.quantity
		FROM movements m
		JOIN movement_lines l ON l.movement_id = m.id`)
	if err != nil {
		return nil, &domain.StoreError{Err: err, Op: "movement.effect_totals"}
	}
	defer rows.Close()

	totals := make(map[domain.BalanceKey]decimal.Decimal)

	add := func(itemID, warehouseID string, delta decimal.Decimal) {
		key := domain.BalanceKey{ItemID: itemID, WarehouseID: warehouseID}
		totals[key] = totals[key].Add(delta)
	}

	for rows.Next() {
		var (
			kindValue, itemID   string
			origin, destination *string
			quantity            decimal.Decimal
		)

		if err := rows.Scan(&kindValue, &origin, &destination, &itemID, &quantity); err != nil {
			return nil, &domain.StoreError{Err: err, Op: "movement.effect_totals"}
		}

		switch domain.MovementKind(kindValue) {
		case domain.KindEntry, domain.KindAdjustment:
			add(itemID, deref(destination), quantity)
		case domain.KindExit:
			add(itemID, deref(origin), quantity.Neg())
		case domain.KindTransfer:
			add(itemID, deref(origin), quantity.Neg())
			add(itemID, deref(destination), quantity)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Err: err, Op: "movement.effect_totals"}
	}

	// Pairs whose effects cancel out keep their zero total, matching the
	// balance row the engine holds for them.
	return totals, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
