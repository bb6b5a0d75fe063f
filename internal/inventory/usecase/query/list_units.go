package query

import (
	"context"
	"fmt"

	"github.com/fabtrack/sheetstock/internal/inventory/domain"
)

// ListUnitsQuery represents the query to list units, optionally filtered by
// material.
type ListUnitsQuery struct {
	MaterialType string
}

// ListUnitsHandler handles list units queries
type ListUnitsHandler struct {
	repo domain.InventoryRepository
}

// NewListUnitsHandler creates a new list units handler
func NewListUnitsHandler(repo domain.InventoryRepository) *ListUnitsHandler {
	return &ListUnitsHandler{repo: repo}
}

// Handle executes the list units query
func (h *ListUnitsHandler) Handle(ctx context.Context, q ListUnitsQuery) ([]domain.InventoryUnit, error) {
	var (
		units []domain.InventoryUnit
		err   error
	)
	if q.MaterialType != "" {
		units, err = h.repo.UnitsByMaterial(ctx, q.MaterialType)
	} else {
		units, err = h.repo.AllUnits(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	return units, nil
}
