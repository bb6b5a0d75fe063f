package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fabtrack/sheetstock/internal/inventory/domain"
)

// DeleteGroupCommand removes every unit belonging to a job and records a
// synthetic group-deletion log so the ledger still reconciles.
type DeleteGroupCommand struct {
	Job string
}

// DeleteGroupHandler handles the delete group command
type DeleteGroupHandler struct {
	repo domain.InventoryRepository
}

// NewDeleteGroupHandler creates a new delete group handler
func NewDeleteGroupHandler(repo domain.InventoryRepository) *DeleteGroupHandler {
	return &DeleteGroupHandler{repo: repo}
}

// Handle executes the delete group command and returns the number of units
// removed.
func (h *DeleteGroupHandler) Handle(ctx context.Context, cmd DeleteGroupCommand) (int, error) {
	if cmd.Job == "" {
		return 0, &domain.ValidationError{Field: "job", Reason: "must not be empty"}
	}

	units, err := h.repo.UnitsByJob(ctx, cmd.Job)
	if err != nil {
		return 0, fmt.Errorf("failed to load group: %w", err)
	}
	if len(units) == 0 {
		return 0, nil
	}

	ids := make([]string, len(units))
	details := make([]domain.UsageDetail, len(units))
	for i, unit := range units {
		ids[i] = unit.ID
		details[i] = domain.DetailFromUnit(unit)
	}

	entry := domain.UsageLogEntry{
		ID:        uuid.NewString(),
		Kind:      domain.KindGroupDeletion,
		Job:       cmd.Job,
		CreatedAt: time.Now().UTC(),
		Status:    domain.LogCompleted,
		Qty:       -len(details),
		Details:   details,
	}

	if err := h.repo.CommitAllocation(ctx, ids, []domain.UsageLogEntry{entry}); err != nil {
		return 0, fmt.Errorf("failed to delete group: %w", err)
	}
	return len(units), nil
}
