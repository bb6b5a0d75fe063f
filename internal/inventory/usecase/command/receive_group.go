package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fabtrack/sheetstock/internal/inventory/domain"
)

// GroupLine is one (length, quantity) line of an order group.
type GroupLine struct {
	Length   int
	Quantity int
}

// ReceiveGroupCommand bulk-creates one unit per physical sheet for an order
// group. Ordered groups carry an arrival date; on-hand groups are received
// immediately.
type ReceiveGroupCommand struct {
	Job          string
	Supplier     string
	MaterialType string
	CostPerPound float64
	Width        float64
	Ordered      bool
	ArrivalDate  *time.Time
	Lines        []GroupLine
}

// ReceiveGroupHandler handles the receive group command
type ReceiveGroupHandler struct {
	repo      domain.InventoryRepository
	materials domain.MaterialRepository
}

// NewReceiveGroupHandler creates a new receive group handler
func NewReceiveGroupHandler(repo domain.InventoryRepository, materials domain.MaterialRepository) *ReceiveGroupHandler {
	return &ReceiveGroupHandler{repo: repo, materials: materials}
}

// Handle executes the receive group command. Every unit in the group shares
// one creation timestamp, which is what the ledger groups arrivals by.
func (h *ReceiveGroupHandler) Handle(ctx context.Context, cmd ReceiveGroupCommand) ([]domain.InventoryUnit, error) {
	if cmd.MaterialType == "" {
		return nil, &domain.ValidationError{Field: "materialType", Reason: "must not be empty"}
	}
	if cmd.CostPerPound < 0 {
		return nil, &domain.ValidationError{Field: "costPerPound", Reason: "must not be negative"}
	}
	if cmd.Width <= 0 {
		return nil, &domain.ValidationError{Field: "width", Reason: "must be positive"}
	}
	if len(cmd.Lines) == 0 {
		return nil, &domain.ValidationError{Field: "lines", Reason: "must not be empty"}
	}
	if _, err := h.materials.Get(ctx, cmd.MaterialType); err != nil {
		if errors.Is(err, domain.ErrMaterialNotFound) {
			return nil, &domain.ValidationError{Field: "materialType", Reason: "unknown material " + cmd.MaterialType}
		}
		return nil, fmt.Errorf("failed to look up material: %w", err)
	}

	now := time.Now().UTC()
	status := domain.StatusOnHand
	var dateReceived, arrivalDate *time.Time
	if cmd.Ordered {
		status = domain.StatusOrdered
		arrivalDate = cmd.ArrivalDate
	} else {
		received := now
		dateReceived = &received
	}

	var units []*domain.InventoryUnit
	for _, line := range cmd.Lines {
		if line.Quantity <= 0 {
			return nil, &domain.ValidationError{Field: "quantity", Reason: "must be positive"}
		}
		if line.Length <= 0 {
			return nil, &domain.ValidationError{Field: "length", Reason: "must be positive"}
		}
		for i := 0; i < line.Quantity; i++ {
			unit := &domain.InventoryUnit{
				MaterialType: cmd.MaterialType,
				Gauge:        domain.GaugeFromMaterial(cmd.MaterialType),
				Supplier:     cmd.Supplier,
				CostPerPound: cmd.CostPerPound,
				Width:        cmd.Width,
				Length:       line.Length,
				Status:       status,
				Job:          cmd.Job,
				ArrivalDate:  arrivalDate,
				DateReceived: dateReceived,
				CreatedAt:    now,
			}
			if err := unit.Validate(); err != nil {
				return nil, err
			}
			units = append(units, unit)
		}
	}

	if err := h.repo.SaveUnits(ctx, units); err != nil {
		return nil, fmt.Errorf("failed to create order group: %w", err)
	}

	created := make([]domain.InventoryUnit, len(units))
	for i, unit := range units {
		created[i] = *unit
	}
	return created, nil
}
