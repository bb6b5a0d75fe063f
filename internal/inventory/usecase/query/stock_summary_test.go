package query

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/fabtrack/sheetstock/internal/docstore"
	"github.com/fabtrack/sheetstock/internal/inventory/domain"
	"github.com/fabtrack/sheetstock/internal/inventory/repository"
)

func TestStockSummaryAggregates(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	repo := repository.NewDocstoreInventoryRepository(store)
	materials := repository.NewDocstoreMaterialRepository(store)

	catalog := domain.MaterialCatalogEntry{
		Key:             "16GA-CRS",
		Category:        domain.CategorySteel,
		ThicknessIn:     0.0598,
		DensityLbPerIn3: 0.2833,
	}
	if err := materials.Save(ctx, catalog); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	seed := []*domain.InventoryUnit{
		{MaterialType: "16GA-CRS", CostPerPound: 0.5, Width: 48, Length: 96, Status: domain.StatusOnHand, DateReceived: &now, CreatedAt: now},
		{MaterialType: "16GA-CRS", CostPerPound: 0.5, Width: 48, Length: 96, Status: domain.StatusOnHand, DateReceived: &now, CreatedAt: now},
		{MaterialType: "16GA-CRS", CostPerPound: 0.5, Width: 48, Length: 120, Status: domain.StatusOrdered, CreatedAt: now},
		// No catalog entry: counted, but contributes no weight or cost.
		{MaterialType: "ORPHAN", CostPerPound: 0.5, Width: 48, Length: 96, Status: domain.StatusOnHand, DateReceived: &now, CreatedAt: now},
	}
	if err := repo.SaveUnits(ctx, seed); err != nil {
		t.Fatal(err)
	}

	handler := NewStockSummaryHandler(repo, materials)
	summaries, err := handler.Handle(ctx)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}

	// Sorted by material key.
	crs := summaries[0]
	if crs.MaterialType != "16GA-CRS" {
		t.Fatalf("summaries[0] = %s, want 16GA-CRS", crs.MaterialType)
	}
	if crs.Gauge != "16GA" {
		t.Errorf("gauge = %q, want 16GA", crs.Gauge)
	}
	if crs.OnHand[96] != 2 {
		t.Errorf("onHand[96] = %d, want 2", crs.OnHand[96])
	}
	if crs.Ordered[120] != 1 {
		t.Errorf("ordered[120] = %d, want 1", crs.Ordered[120])
	}

	unitWeight := func(length int) float64 {
		return 0.0598 * 48 * float64(length) * 0.2833
	}
	wantWeight := 2*unitWeight(96) + unitWeight(120)
	if math.Abs(crs.TotalWeight-wantWeight) > 1e-9 {
		t.Errorf("totalWeight = %v, want %v", crs.TotalWeight, wantWeight)
	}
	if math.Abs(crs.TotalCost-wantWeight*0.5) > 1e-9 {
		t.Errorf("totalCost = %v, want %v", crs.TotalCost, wantWeight*0.5)
	}

	orphan := summaries[1]
	if orphan.MaterialType != "ORPHAN" {
		t.Fatalf("summaries[1] = %s, want ORPHAN", orphan.MaterialType)
	}
	if orphan.OnHand[96] != 1 {
		t.Errorf("orphan onHand[96] = %d, want 1", orphan.OnHand[96])
	}
	if orphan.TotalWeight != 0 || orphan.TotalCost != 0 {
		t.Errorf("orphan weight/cost = %v/%v, want 0/0", orphan.TotalWeight, orphan.TotalCost)
	}
}

func TestListUnitsFiltersByMaterial(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	repo := repository.NewDocstoreInventoryRepository(store)

	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	seed := []*domain.InventoryUnit{
		{MaterialType: "16GA-CRS", Width: 48, Length: 96, Status: domain.StatusOnHand, DateReceived: &now, CreatedAt: now},
		{MaterialType: "11GA-HRS", Width: 48, Length: 96, Status: domain.StatusOnHand, DateReceived: &now, CreatedAt: now},
	}
	if err := repo.SaveUnits(ctx, seed); err != nil {
		t.Fatal(err)
	}

	handler := NewListUnitsHandler(repo)

	all, err := handler.Handle(ctx, ListUnitsQuery{})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("got %d units, want 2", len(all))
	}

	crs, err := handler.Handle(ctx, ListUnitsQuery{MaterialType: "16GA-CRS"})
	if err != nil {
		t.Fatalf("Handle filtered: %v", err)
	}
	if len(crs) != 1 || crs[0].MaterialType != "16GA-CRS" {
		t.Errorf("filtered result = %v, want one 16GA-CRS unit", crs)
	}
}
