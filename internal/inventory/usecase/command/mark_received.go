package command

import (
	"context"
	"fmt"
	"time"

	"github.com/fabtrack/sheetstock/internal/inventory/domain"
)

// MarkReceivedCommand transitions a job's ordered units to on hand.
type MarkReceivedCommand struct {
	Job        string
	ReceivedAt *time.Time
}

// MarkReceivedHandler handles the mark received command
type MarkReceivedHandler struct {
	repo domain.InventoryRepository
}

// NewMarkReceivedHandler creates a new mark received handler
func NewMarkReceivedHandler(repo domain.InventoryRepository) *MarkReceivedHandler {
	return &MarkReceivedHandler{repo: repo}
}

// Handle executes the mark received command and returns the number of units
// transitioned.
func (h *MarkReceivedHandler) Handle(ctx context.Context, cmd MarkReceivedCommand) (int, error) {
	if cmd.Job == "" {
		return 0, &domain.ValidationError{Field: "job", Reason: "must not be empty"}
	}

	units, err := h.repo.UnitsByJob(ctx, cmd.Job)
	if err != nil {
		return 0, fmt.Errorf("failed to load group: %w", err)
	}

	received := time.Now().UTC()
	if cmd.ReceivedAt != nil {
		received = cmd.ReceivedAt.UTC()
	}

	var updated []*domain.InventoryUnit
	for i := range units {
		if units[i].Status != domain.StatusOrdered {
			continue
		}
		unit := units[i]
		unit.Status = domain.StatusOnHand
		unit.DateReceived = &received
		if err := unit.Validate(); err != nil {
			return 0, err
		}
		updated = append(updated, &unit)
	}

	if len(updated) == 0 {
		return 0, nil
	}
	if err := h.repo.SaveUnits(ctx, updated); err != nil {
		return 0, fmt.Errorf("failed to mark group received: %w", err)
	}
	return len(updated), nil
}
