package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warely/stockledger/internal/domain"
)

func readRows(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("failed to read rows: %v", err)
	}

	return rows
}

func TestWriteKardexRunningBalance(t *testing.T) {
	occurred := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	entries := []*domain.KardexEntry{
		{OccurredAt: occurred, MovementID: "mov-1", Kind: domain.KindEntry, WarehouseName: "Central", Quantity: decimal.NewFromInt(50)},
		{OccurredAt: occurred.Add(time.Hour), MovementID: "mov-2", Kind: domain.KindTransfer, WarehouseName: "Central", CounterpartyWarehouseName: "North", Quantity: decimal.NewFromInt(-20)},
		{OccurredAt: occurred.Add(2 * time.Hour), MovementID: "mov-3", Kind: domain.KindExit, WarehouseName: "Central", Quantity: decimal.NewFromInt(-10)},
	}

	var buf bytes.Buffer
	if err := WriteKardex(&buf, entries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := readRows(t, &buf)
	if len(rows) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(rows))
	}

	if rows[0][0] != "occurred_at" {
		t.Errorf("unexpected header: %v", rows[0])
	}

	// running_balance is the last column
	last := len(rows[1]) - 1
	for i, want := range []string{"50", "30", "20"} {
		if rows[i+1][last] != want {
			t.Errorf("row %d: expected running balance %s, got %s", i+1, want, rows[i+1][last])
		}
	}
}

func TestWriteSnapshot(t *testing.T) {
	levels := []*domain.StockLevel{
		{ItemID: "item-bolt", ItemName: "Bolt M8", ItemUnit: "unit", Quantity: decimal.NewFromInt(30), UpdatedAt: time.Now()},
		{ItemID: "item-paint", ItemName: "Paint 1L", ItemUnit: "l", Quantity: decimal.NewFromFloat(2.5), UpdatedAt: time.Now()},
	}

	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, "wh-central", levels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := readRows(t, &buf)
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}

	if rows[1][1] != "item-bolt" || rows[1][4] != "30" {
		t.Errorf("unexpected first data row: %v", rows[1])
	}
	if rows[2][4] != "2.5" {
		t.Errorf("expected decimal quantity 2.5, got %s", rows[2][4])
	}
}

func TestWriteSummary(t *testing.T) {
	summaries := []*domain.KindSummary{
		{Kind: domain.KindEntry, MovementCount: 3, TotalQuantity: decimal.NewFromInt(120), DistinctItems: 2, DistinctWarehouses: 1},
		{Kind: domain.KindExit, MovementCount: 1, TotalQuantity: decimal.NewFromInt(40), DistinctItems: 1, DistinctWarehouses: 1},
	}

	var buf bytes.Buffer
	if err := WriteSummary(&buf, summaries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := readRows(t, &buf)
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}

	if rows[1][0] != "entry" || rows[1][2] != "120" {
		t.Errorf("unexpected entry row: %v", rows[1])
	}
}

func TestWriteKardexEmptyHistory(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteKardex(&buf, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := readRows(t, &buf)
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(rows))
	}
}
