package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fabtrack/sheetstock/internal/inventory/domain"
)

// AdjustUnitsCommand is an out-of-band inventory correction: a signed delta
// of units for one material and length. Corrections are recorded as
// synthetic logs and marker suppliers so the ledger never counts them as
// real arrivals or usage.
type AdjustUnitsCommand struct {
	MaterialType string
	Length       int
	Delta        int
	CostPerPound float64
	Width        float64
	Reason       string
}

// AdjustUnitsHandler handles the adjust units command
type AdjustUnitsHandler struct {
	repo      domain.InventoryRepository
	materials domain.MaterialRepository
}

// NewAdjustUnitsHandler creates a new adjust units handler
func NewAdjustUnitsHandler(repo domain.InventoryRepository, materials domain.MaterialRepository) *AdjustUnitsHandler {
	return &AdjustUnitsHandler{repo: repo, materials: materials}
}

// Handle executes the adjustment. A positive delta creates marker-supplier
// units plus a positive-qty correction log (a reversal); a negative delta
// removes the oldest matching units under a negative-qty correction log.
func (h *AdjustUnitsHandler) Handle(ctx context.Context, cmd AdjustUnitsCommand) (*domain.UsageLogEntry, error) {
	if cmd.Delta == 0 {
		return nil, &domain.ValidationError{Field: "delta", Reason: "must not be zero"}
	}
	if cmd.Length <= 0 {
		return nil, &domain.ValidationError{Field: "length", Reason: "must be positive"}
	}
	if _, err := h.materials.Get(ctx, cmd.MaterialType); err != nil {
		if errors.Is(err, domain.ErrMaterialNotFound) {
			return nil, &domain.ValidationError{Field: "materialType", Reason: "unknown material " + cmd.MaterialType}
		}
		return nil, fmt.Errorf("failed to look up material: %w", err)
	}

	now := time.Now().UTC()
	entry := domain.UsageLogEntry{
		ID:        uuid.NewString(),
		Kind:      domain.KindCorrection,
		Job:       cmd.Reason,
		CreatedAt: now,
		Status:    domain.LogCompleted,
	}

	if cmd.Delta > 0 {
		var units []*domain.InventoryUnit
		for i := 0; i < cmd.Delta; i++ {
			units = append(units, &domain.InventoryUnit{
				MaterialType: cmd.MaterialType,
				Gauge:        domain.GaugeFromMaterial(cmd.MaterialType),
				Supplier:     domain.SupplierManualEdit,
				CostPerPound: cmd.CostPerPound,
				Width:        cmd.Width,
				Length:       cmd.Length,
				Status:       domain.StatusOnHand,
				DateReceived: &now,
				CreatedAt:    now,
			})
		}
		if err := h.repo.SaveUnits(ctx, units); err != nil {
			return nil, fmt.Errorf("failed to add correction units: %w", err)
		}
		entry.Qty = cmd.Delta
		for _, unit := range units {
			detail := domain.DetailFromUnit(*unit)
			entry.Details = append(entry.Details, detail)
		}
		if err := h.repo.SaveLog(ctx, &entry); err != nil {
			return nil, fmt.Errorf("failed to record correction: %w", err)
		}
		return &entry, nil
	}

	need := -cmd.Delta
	units, err := h.repo.UnitsOnHand(ctx, cmd.MaterialType, cmd.Length)
	if err != nil {
		return nil, fmt.Errorf("failed to load on-hand units: %w", err)
	}
	if len(units) < need {
		return nil, &domain.InsufficientStockError{
			MaterialType: cmd.MaterialType,
			Length:       cmd.Length,
			Requested:    need,
			Available:    len(units),
		}
	}

	ids := make([]string, need)
	for i, unit := range units[:need] {
		ids[i] = unit.ID
		entry.Details = append(entry.Details, domain.DetailFromUnit(unit))
	}
	entry.Qty = -need

	if err := h.repo.CommitAllocation(ctx, ids, []domain.UsageLogEntry{entry}); err != nil {
		return nil, fmt.Errorf("failed to commit correction: %w", err)
	}
	return &entry, nil
}
