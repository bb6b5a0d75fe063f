package command

import (
	"context"
	"errors"
	"testing"

	"github.com/fabtrack/sheetstock/internal/inventory/domain"
)

func TestAdjustUnitsPositiveDelta(t *testing.T) {
	ctx := context.Background()
	repo, materials := newTestRepos(t)

	handler := NewAdjustUnitsHandler(repo, materials)
	entry, err := handler.Handle(ctx, AdjustUnitsCommand{
		MaterialType: "16GA-CRS",
		Length:       96,
		Delta:        3,
		CostPerPound: 0.5,
		Width:        48,
		Reason:       "cycle count",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if entry.Kind != domain.KindCorrection {
		t.Errorf("Kind = %s, want correction", entry.Kind)
	}
	if entry.Qty != 3 {
		t.Errorf("Qty = %d, want 3", entry.Qty)
	}
	if len(entry.Details) != 3 {
		t.Errorf("got %d details, want 3", len(entry.Details))
	}

	units, err := repo.UnitsOnHand(ctx, "16GA-CRS", 96)
	if err != nil {
		t.Fatal(err)
	}
	if len(units) != 3 {
		t.Fatalf("got %d units, want 3", len(units))
	}
	for _, unit := range units {
		if unit.Supplier != domain.SupplierManualEdit {
			t.Errorf("supplier = %q, want marker supplier", unit.Supplier)
		}
		if unit.Status != domain.StatusOnHand {
			t.Errorf("status = %s, want OnHand", unit.Status)
		}
	}
}

func TestAdjustUnitsNegativeDelta(t *testing.T) {
	ctx := context.Background()
	repo, materials := newTestRepos(t)
	seedOnHand(t, repo, "16GA-CRS", 96, 5)

	handler := NewAdjustUnitsHandler(repo, materials)
	entry, err := handler.Handle(ctx, AdjustUnitsCommand{
		MaterialType: "16GA-CRS",
		Length:       96,
		Delta:        -2,
		Reason:       "damaged sheets",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if entry.Qty != -2 {
		t.Errorf("Qty = %d, want -2", entry.Qty)
	}

	// The oldest two go.
	if entry.Details[0].OriginalID != "u0" || entry.Details[1].OriginalID != "u1" {
		t.Errorf("removed %s, %s; want u0, u1", entry.Details[0].OriginalID, entry.Details[1].OriginalID)
	}
	units, _ := repo.UnitsOnHand(ctx, "16GA-CRS", 96)
	if len(units) != 3 {
		t.Errorf("got %d units left, want 3", len(units))
	}
}

func TestAdjustUnitsNegativeDeltaInsufficient(t *testing.T) {
	ctx := context.Background()
	repo, materials := newTestRepos(t)
	seedOnHand(t, repo, "16GA-CRS", 96, 1)

	handler := NewAdjustUnitsHandler(repo, materials)
	_, err := handler.Handle(ctx, AdjustUnitsCommand{
		MaterialType: "16GA-CRS",
		Length:       96,
		Delta:        -4,
	})
	var insufficient *domain.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Handle = %v, want InsufficientStockError", err)
	}
	if insufficient.Requested != 4 || insufficient.Available != 1 {
		t.Errorf("requested/available = %d/%d, want 4/1", insufficient.Requested, insufficient.Available)
	}
	units, _ := repo.UnitsOnHand(ctx, "16GA-CRS", 96)
	if len(units) != 1 {
		t.Errorf("failed adjustment removed units")
	}
}

func TestAdjustUnitsRejectsZeroDelta(t *testing.T) {
	repo, materials := newTestRepos(t)
	handler := NewAdjustUnitsHandler(repo, materials)

	_, err := handler.Handle(context.Background(), AdjustUnitsCommand{
		MaterialType: "16GA-CRS",
		Length:       96,
		Delta:        0,
	})
	var validation *domain.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("Handle = %v, want ValidationError", err)
	}
}
