// Package report renders ledger projections as xlsx workbooks for the
// warehouse staff who still live in spreadsheets.
package report

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warely/stockledger/internal/domain"
)

// WriteKardex writes an item's movement history as one sheet. The running
// balance column accumulates the signed quantities in order, so its last
// row equals the current balance when the query covered the full history.
func WriteKardex(w io.Writer, entries []*domain.KardexEntry) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{
		"occurred_at",
		"movement_id",
		"kind",
		"warehouse",
		"counterparty",
		"reason",
		"quantity",
		"running_balance",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("kardex header: %w", err)
	}

	running := decimal.Zero
	row := 2

	for _, entry := range entries {
		running = running.Add(entry.Quantity)

		excelRow := []interface{}{
			entry.OccurredAt.Format("2006-01-02 15:04:05"),
			entry.MovementID,
			string(entry.Kind),
			entry.WarehouseName,
			entry.CounterpartyWarehouseName,
			entry.Reason,
			entry.Quantity.String(),
			running.String(),
		}

		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return fmt.Errorf("kardex cell: %w", err)
		}

		if err := f.SetSheetRow(sheet, cell, &excelRow); err != nil {
			return fmt.Errorf("kardex row: %w", err)
		}

		row++
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("kardex write: %w", err)
	}

	return nil
}

// WriteSnapshot writes a warehouse's current stock levels as one sheet.
func WriteSnapshot(w io.Writer, warehouseID string, levels []*domain.StockLevel) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{
		"warehouse_id",
		"item_id",
		"item_name",
		"unit",
		"quantity",
		"updated_at",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("snapshot header: %w", err)
	}

	row := 2

	for _, level := range levels {
		excelRow := []interface{}{
			warehouseID,
			level.ItemID,
			level.ItemName,
			level.ItemUnit,
			level.Quantity.String(),
			level.UpdatedAt.Format("2006-01-02 15:04:05"),
		}

		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return fmt.Errorf("snapshot cell: %w", err)
		}

		if err := f.SetSheetRow(sheet, cell, &excelRow); err != nil {
			return fmt.Errorf("snapshot row: %w", err)
		}

		row++
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("snapshot write: %w", err)
	}

	return nil
}

// WriteSummary writes per-kind period aggregates as one sheet.
func WriteSummary(w io.Writer, summaries []*domain.KindSummary) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{
		"kind",
		"movements",
		"total_quantity",
		"distinct_items",
		"distinct_warehouses",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("summary header: %w", err)
	}

	row := 2

	for _, summary := range summaries {
		excelRow := []interface{}{
			string(summary.Kind),
			summary.MovementCount,
			summary.TotalQuantity.String(),
			summary.DistinctItems,
			summary.DistinctWarehouses,
		}

		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return fmt.Errorf("summary cell: %w", err)
		}

		if err := f.SetSheetRow(sheet, cell, &excelRow); err != nil {
			return fmt.Errorf("summary row: %w", err)
		}

		row++
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("summary write: %w", err)
	}

	return nil
}
