package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/fabtrack/sheetstock/internal/docstore"
	"github.com/fabtrack/sheetstock/internal/inventory/domain"
	"github.com/fabtrack/sheetstock/internal/inventory/repository"
)

// One handler for the whole test: the prometheus collectors register
// globally, so a second constructor call in the same process would panic.
func TestMarkReceivedRoute(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	repo := repository.NewDocstoreInventoryRepository(store)
	materials := repository.NewDocstoreMaterialRepository(store)

	if err := materials.Save(ctx, domain.MaterialCatalogEntry{
		Key:             "16GA-CRS",
		Category:        domain.CategorySteel,
		ThicknessIn:     0.0598,
		DensityLbPerIn3: 0.2833,
	}); err != nil {
		t.Fatal(err)
	}

	arrival := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	units := []*domain.InventoryUnit{
		{MaterialType: "16GA-CRS", Width: 48, Length: 96, Status: domain.StatusOrdered, Job: "PO-700", ArrivalDate: &arrival, CreatedAt: created},
		{MaterialType: "16GA-CRS", Width: 48, Length: 96, Status: domain.StatusOrdered, Job: "PO-700", ArrivalDate: &arrival, CreatedAt: created},
	}
	if err := repo.SaveUnits(ctx, units); err != nil {
		t.Fatal(err)
	}

	handler := NewStockHandler(repo, materials)
	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	type receiveResponse struct {
		Success bool `json:"success"`
		Data    struct {
			UnitsReceived int `json:"unitsReceived"`
		} `json:"data"`
	}

	// Explicit received date in the body.
	body := `{"receivedAt":"2024-04-02T08:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/groups/PO-700/receive", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp receiveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Data.UnitsReceived != 2 {
		t.Fatalf("response = %s, want 2 units received", rec.Body.String())
	}

	wantReceived := time.Date(2024, 4, 2, 8, 0, 0, 0, time.UTC)
	got, err := repo.UnitsByJob(ctx, "PO-700")
	if err != nil {
		t.Fatal(err)
	}
	for _, unit := range got {
		if unit.Status != domain.StatusOnHand {
			t.Errorf("unit %s status = %s, want OnHand", unit.ID, unit.Status)
		}
		if unit.DateReceived == nil || !unit.DateReceived.Equal(wantReceived) {
			t.Errorf("unit %s received date = %v, want %v", unit.ID, unit.DateReceived, wantReceived)
		}
	}

	// A repeat call without a body finds nothing left to transition.
	req = httptest.NewRequest(http.MethodPost, "/api/groups/PO-700/receive", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("repeat status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp = receiveResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode repeat response: %v", err)
	}
	if resp.Data.UnitsReceived != 0 {
		t.Errorf("repeat call received %d units, want 0", resp.Data.UnitsReceived)
	}
}
