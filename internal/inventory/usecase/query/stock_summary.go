package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/fabtrack/sheetstock/internal/inventory/domain"
)

// MaterialSummary is the inventory read model for one material.
type MaterialSummary struct {
	MaterialType string      `json:"materialType"`
	Gauge        string      `json:"gauge,omitempty"`
	OnHand       map[int]int `json:"onHand"`
	Ordered      map[int]int `json:"ordered"`
	TotalWeight  float64     `json:"totalWeight"`
	TotalCost    float64     `json:"totalCost"`
}

// StockSummaryHandler handles stock summary queries
type StockSummaryHandler struct {
	repo      domain.InventoryRepository
	materials domain.MaterialRepository
}

// NewStockSummaryHandler creates a new stock summary handler
func NewStockSummaryHandler(repo domain.InventoryRepository, materials domain.MaterialRepository) *StockSummaryHandler {
	return &StockSummaryHandler{repo: repo, materials: materials}
}

// Handle re-queries the full unit list and aggregates it per material and
// length; weight and cost come from the catalog.
func (h *StockSummaryHandler) Handle(ctx context.Context) ([]MaterialSummary, error) {
	units, err := h.repo.AllUnits(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load units: %w", err)
	}
	catalog, err := h.materials.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load material catalog: %w", err)
	}
	byKey := make(map[string]domain.MaterialCatalogEntry, len(catalog))
	for _, entry := range catalog {
		byKey[entry.Key] = entry
	}

	summaries := make(map[string]*MaterialSummary)
	var keys []string
	for _, unit := range units {
		s, ok := summaries[unit.MaterialType]
		if !ok {
			s = &MaterialSummary{
				MaterialType: unit.MaterialType,
				Gauge:        domain.GaugeFromMaterial(unit.MaterialType),
				OnHand:       make(map[int]int),
				Ordered:      make(map[int]int),
			}
			summaries[unit.MaterialType] = s
			keys = append(keys, unit.MaterialType)
		}
		switch unit.Status {
		case domain.StatusOnHand:
			s.OnHand[unit.Length]++
		case domain.StatusOrdered:
			s.Ordered[unit.Length]++
		}
		if entry, ok := byKey[unit.MaterialType]; ok {
			s.TotalWeight += entry.UnitWeight(unit)
			s.TotalCost += entry.UnitCost(unit)
		}
	}

	sort.Strings(keys)
	out := make([]MaterialSummary, 0, len(keys))
	for _, key := range keys {
		out = append(out, *summaries[key])
	}
	return out, nil
}
