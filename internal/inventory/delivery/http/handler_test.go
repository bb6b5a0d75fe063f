package http

import (
	"testing"

	"github.com/fabtrack/sheetstock/internal/inventory/domain"
	"github.com/fabtrack/sheetstock/internal/inventory/usecase/command"
)

func TestAllocationEvents(t *testing.T) {
	cmd := command.AllocateStockCommand{
		Jobs: []command.JobAllocation{
			{
				Job:      "J-100",
				Customer: "Acme",
				Lines: []command.AllocationLine{
					{MaterialType: "16GA-CRS", Length: 96, Quantity: 2},
					{MaterialType: "16GA-CRS", Length: 120, Quantity: 1},
				},
			},
			{
				Job:   "J-101",
				Lines: []command.AllocationLine{{MaterialType: "11GA-HRS", Length: 96, Quantity: 1}},
			},
		},
	}
	result := &command.AllocateStockResult{
		Entries: []domain.UsageLogEntry{
			{
				ID:       "log-1",
				Job:      "J-100",
				Customer: "Acme",
				Qty:      -3,
				Details:  make([]domain.UsageDetail, 3),
			},
			{
				ID:      "log-2",
				Job:     "J-101",
				Qty:     -1,
				Details: make([]domain.UsageDetail, 1),
			},
		},
		UnitsDeleted: 4,
	}

	events := allocationEvents(cmd, result)
	if len(events) != 2 {
		t.Fatalf("got %d events, want one per usage log", len(events))
	}

	first := events[0]
	if first.Job != "J-100" || first.Customer != "Acme" {
		t.Errorf("event job/customer = %s/%s", first.Job, first.Customer)
	}
	if first.UsageLogID != "log-1" {
		t.Errorf("UsageLogID = %s, want log-1", first.UsageLogID)
	}
	if first.UnitsDeleted != 3 {
		t.Errorf("UnitsDeleted = %d, want 3", first.UnitsDeleted)
	}
	if len(first.Lines) != 2 {
		t.Fatalf("got %d lines, want the job's 2 requested lines", len(first.Lines))
	}
	if first.Lines[0].MaterialType != "16GA-CRS" || first.Lines[0].Quantity != 2 {
		t.Errorf("lines[0] = %+v", first.Lines[0])
	}

	second := events[1]
	if second.Job != "J-101" || second.UnitsDeleted != 1 || len(second.Lines) != 1 {
		t.Errorf("second event = %+v", second)
	}
}
