package query

import (
	"testing"
	"time"

	"github.com/fabtrack/sheetstock/internal/inventory/domain"
)

func ts(day, hour int) time.Time {
	return time.Date(2024, 3, day, hour, 0, 0, 0, time.UTC)
}

func onHandUnit(id, job, supplier string, length int, createdAt time.Time) domain.InventoryUnit {
	received := createdAt
	return domain.InventoryUnit{
		ID:           id,
		MaterialType: "16GA-CRS",
		Supplier:     supplier,
		Width:        48,
		Length:       length,
		Status:       domain.StatusOnHand,
		Job:          job,
		DateReceived: &received,
		CreatedAt:    createdAt,
	}
}

func TestBuildLedgerGroupsArrivals(t *testing.T) {
	arrival := ts(1, 0)
	units := []domain.InventoryUnit{
		onHandUnit("a1", "PO-500", "Ryerson", 96, arrival),
		onHandUnit("a2", "PO-500", "Ryerson", 96, arrival),
		onHandUnit("a3", "PO-500", "Ryerson", 120, arrival),
		// Same timestamp, different supplier: a separate arrival.
		onHandUnit("b1", "PO-500", "Alro", 96, arrival),
		// No job: bought for stock.
		onHandUnit("c1", "", "Ryerson", 96, ts(2, 0)),
	}

	rows := BuildLedger("16GA-CRS", units, nil)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	// Newest first.
	if rows[0].Job != "stock" {
		t.Errorf("rows[0].Job = %q, want stock", rows[0].Job)
	}

	var ryerson *LedgerRow
	for i := range rows {
		if rows[i].Supplier == "Ryerson" && rows[i].Job == "PO-500" {
			ryerson = &rows[i]
		}
	}
	if ryerson == nil {
		t.Fatal("missing Ryerson PO-500 row")
	}
	if ryerson.Counts[96] != 2 || ryerson.Counts[120] != 1 {
		t.Errorf("counts = %v, want 96:2 120:1", ryerson.Counts)
	}
	if !ryerson.IsAddition || !ryerson.IsDeletable {
		t.Error("arrival row not flagged as deletable addition")
	}
	if ryerson.IsFuture {
		t.Error("on-hand arrival flagged as future")
	}
}

func TestBuildLedgerExcludesCorrectionUnits(t *testing.T) {
	units := []domain.InventoryUnit{
		onHandUnit("a1", "PO-500", "Ryerson", 96, ts(1, 0)),
		onHandUnit("m1", "", domain.SupplierManualEdit, 96, ts(2, 0)),
		onHandUnit("m2", "", domain.SupplierRescheduledReturn, 96, ts(3, 0)),
		onHandUnit("m3", "MODIFICATION 2024-03-04", "Ryerson", 96, ts(4, 0)),
	}

	rows := BuildLedger("16GA-CRS", units, nil)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1: correction units must not appear as arrivals", len(rows))
	}
	if rows[0].ID != "a1" {
		t.Errorf("surviving row = %s, want a1", rows[0].ID)
	}
}

func TestBuildLedgerRemovalRows(t *testing.T) {
	usedAt := ts(5, 0)
	logs := []domain.UsageLogEntry{
		{
			ID:        "l1",
			Kind:      domain.KindUsage,
			Job:       "J-100",
			Customer:  "Acme",
			UsedAt:    &usedAt,
			CreatedAt: ts(4, 0),
			Status:    domain.LogCompleted,
			Qty:       -2,
			Details: []domain.UsageDetail{
				{OriginalID: "x1", MaterialType: "16GA-CRS", Length: 96, Qty: 1},
				{OriginalID: "x2", MaterialType: "16GA-CRS", Length: 96, Qty: 1},
			},
		},
		// Positive correction: a reversal, never a removal row.
		{
			ID:        "l2",
			Kind:      domain.KindCorrection,
			Job:       "recount",
			CreatedAt: ts(6, 0),
			Qty:       2,
			Details: []domain.UsageDetail{
				{MaterialType: "16GA-CRS", Length: 96, Qty: 1},
				{MaterialType: "16GA-CRS", Length: 96, Qty: 1},
			},
		},
		// Other material: invisible in this ledger.
		{
			ID:        "l3",
			Kind:      domain.KindUsage,
			Job:       "J-101",
			CreatedAt: ts(7, 0),
			Qty:       -1,
			Details: []domain.UsageDetail{
				{MaterialType: "11GA-HRS", Length: 96, Qty: 1},
			},
		},
	}

	rows := BuildLedger("16GA-CRS", nil, logs)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row.IsAddition {
		t.Error("usage row flagged as addition")
	}
	if row.Counts[96] != -2 {
		t.Errorf("counts[96] = %d, want -2", row.Counts[96])
	}
	// Business date of use wins over the booking date.
	if !row.Date.Equal(usedAt) {
		t.Errorf("date = %v, want usedAt %v", row.Date, usedAt)
	}
	if row.Customer != "Acme" {
		t.Errorf("customer = %q, want Acme", row.Customer)
	}
}

func TestBuildLedgerScheduledUsageIsFulfillable(t *testing.T) {
	usedAt := ts(20, 0)
	logs := []domain.UsageLogEntry{{
		ID:        "l1",
		Kind:      domain.KindUsage,
		Job:       "J-100",
		UsedAt:    &usedAt,
		CreatedAt: ts(1, 0),
		Status:    domain.LogScheduled,
		Qty:       -1,
		Details:   []domain.UsageDetail{{MaterialType: "16GA-CRS", Length: 96, Qty: 1}},
	}}

	rows := BuildLedger("16GA-CRS", nil, logs)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if !rows[0].IsFuture || !rows[0].IsFulfillable {
		t.Errorf("scheduled usage row = future %v fulfillable %v, want both true", rows[0].IsFuture, rows[0].IsFulfillable)
	}
}

func TestBuildLedgerFutureArrival(t *testing.T) {
	arrival := ts(30, 0)
	unit := domain.InventoryUnit{
		ID:           "a1",
		MaterialType: "16GA-CRS",
		Supplier:     "Ryerson",
		Width:        48,
		Length:       96,
		Status:       domain.StatusOrdered,
		Job:          "PO-501",
		ArrivalDate:  &arrival,
		CreatedAt:    ts(1, 0),
	}

	rows := BuildLedger("16GA-CRS", []domain.InventoryUnit{unit}, nil)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if !rows[0].IsFuture {
		t.Error("all-ordered arrival not flagged as future")
	}
	if !rows[0].Date.Equal(arrival) {
		t.Errorf("date = %v, want arrival %v", rows[0].Date, arrival)
	}
}

func TestBuildLedgerEqualDatesOrderByBookingTime(t *testing.T) {
	// An arrival scheduled for the same day the usage was dated: the
	// effective dates tie, so the later-booked row must come first.
	day := ts(10, 0)
	arrival := domain.InventoryUnit{
		ID:           "a-arrival",
		MaterialType: "16GA-CRS",
		Supplier:     "Ryerson",
		Width:        48,
		Length:       96,
		Status:       domain.StatusOrdered,
		Job:          "PO-500",
		ArrivalDate:  &day,
		CreatedAt:    ts(1, 0),
	}
	usage := domain.UsageLogEntry{
		ID:        "z-usage",
		Kind:      domain.KindUsage,
		Job:       "J-100",
		UsedAt:    &day,
		CreatedAt: ts(3, 0),
		Qty:       -1,
		Details:   []domain.UsageDetail{{MaterialType: "16GA-CRS", Length: 96, Qty: 1}},
	}

	rows := BuildLedger("16GA-CRS", []domain.InventoryUnit{arrival}, []domain.UsageLogEntry{usage})
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	// The arrival's id sorts first, so a plain id tie-break would put it
	// on top; the later booking time is what decides.
	if rows[0].ID != "z-usage" || rows[1].ID != "a-arrival" {
		t.Errorf("order = %s, %s; want z-usage, a-arrival", rows[0].ID, rows[1].ID)
	}
}

func TestBuildLedgerCountShapeAndOrder(t *testing.T) {
	units := []domain.InventoryUnit{
		onHandUnit("a1", "PO-500", "Ryerson", 72, ts(1, 0)),
	}
	logs := []domain.UsageLogEntry{{
		ID:        "l1",
		Kind:      domain.KindUsage,
		Job:       "J-100",
		CreatedAt: ts(2, 0),
		Qty:       -1,
		Details:   []domain.UsageDetail{{MaterialType: "16GA-CRS", Length: 96, Qty: 1}},
	}}

	rows := BuildLedger("16GA-CRS", units, logs)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	// Newest first.
	if rows[0].ID != "l1" || rows[1].ID != "a1" {
		t.Errorf("order = %s, %s; want l1, a1", rows[0].ID, rows[1].ID)
	}

	// Every row exposes the union of lengths plus the standard ones, zero
	// filled.
	for _, row := range rows {
		for _, length := range []int{72, 96, 120, 144} {
			if _, ok := row.Counts[length]; !ok {
				t.Errorf("row %s missing length key %d: %v", row.ID, length, row.Counts)
			}
		}
	}
	if rows[1].Counts[96] != 0 {
		t.Errorf("addition row counts[96] = %d, want 0", rows[1].Counts[96])
	}
}
