package command

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fabtrack/sheetstock/internal/inventory/domain"
)

// AllocationLine is one (material, length, quantity) demand.
type AllocationLine struct {
	MaterialType string
	Length       int
	Quantity     int
}

// JobAllocation groups lines under one job.
type JobAllocation struct {
	Job      string
	Customer string
	UsedAt   *time.Time
	Lines    []AllocationLine
}

// AllocateStockCommand represents the command to allocate stock against one
// or more jobs.
type AllocateStockCommand struct {
	Jobs []JobAllocation
}

// AllocateStockResult summarizes a committed allocation.
type AllocateStockResult struct {
	Entries      []domain.UsageLogEntry
	UnitsDeleted int
}

// AllocateStockHandler handles the allocate stock command. Requests are
// serialized through the handler's mutex: the store offers no cross-request
// locking, so two concurrent requests for the same scarce material would
// otherwise both pass the availability check.
type AllocateStockHandler struct {
	mu        sync.Mutex
	repo      domain.InventoryRepository
	materials domain.MaterialRepository
}

// NewAllocateStockHandler creates a new allocate stock handler
func NewAllocateStockHandler(repo domain.InventoryRepository, materials domain.MaterialRepository) *AllocateStockHandler {
	return &AllocateStockHandler{repo: repo, materials: materials}
}

type lineKey struct {
	materialType string
	length       int
}

// Handle executes the allocation. Every line of every job is validated and
// proven satisfiable before a single unit is deleted; only then are the
// deletions and usage logs committed.
func (h *AllocateStockHandler) Handle(ctx context.Context, cmd AllocateStockCommand) (*AllocateStockResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(cmd.Jobs) == 0 {
		return nil, &domain.ValidationError{Field: "jobs", Reason: "must not be empty"}
	}

	if err := h.validate(ctx, cmd); err != nil {
		return nil, err
	}

	// Read-only availability pass. Units per (material, length) are loaded
	// once in FIFO order and assigned to lines from a shared cursor, so
	// duplicate lines across jobs can never select the same unit twice.
	pools := make(map[lineKey][]domain.InventoryUnit)
	cursors := make(map[lineKey]int)
	for _, job := range cmd.Jobs {
		for _, line := range job.Lines {
			key := lineKey{line.MaterialType, line.Length}
			if _, ok := pools[key]; !ok {
				units, err := h.repo.UnitsOnHand(ctx, line.MaterialType, line.Length)
				if err != nil {
					return nil, fmt.Errorf("failed to load on-hand units: %w", err)
				}
				pools[key] = units
			}
			available := len(pools[key]) - cursors[key]
			if available < line.Quantity {
				return nil, &domain.InsufficientStockError{
					MaterialType: line.MaterialType,
					Length:       line.Length,
					Requested:    line.Quantity,
					Available:    available,
				}
			}
			cursors[key] += line.Quantity
		}
	}

	// Every line is satisfiable; select units and build one log per job.
	now := time.Now().UTC()
	for key := range cursors {
		cursors[key] = 0
	}

	var (
		deleted []string
		entries []domain.UsageLogEntry
	)
	for _, job := range cmd.Jobs {
		var details []domain.UsageDetail
		for _, line := range job.Lines {
			key := lineKey{line.MaterialType, line.Length}
			start := cursors[key]
			for _, unit := range pools[key][start : start+line.Quantity] {
				deleted = append(deleted, unit.ID)
				details = append(details, domain.DetailFromUnit(unit))
			}
			cursors[key] += line.Quantity
		}
		if len(details) == 0 {
			continue
		}
		status := domain.LogCompleted
		if job.UsedAt != nil && job.UsedAt.After(now) {
			status = domain.LogScheduled
		}
		entries = append(entries, domain.UsageLogEntry{
			ID:        uuid.NewString(),
			Kind:      domain.KindUsage,
			Job:       job.Job,
			Customer:  job.Customer,
			UsedAt:    job.UsedAt,
			CreatedAt: now,
			Status:    status,
			Qty:       -len(details),
			Details:   details,
		})
	}

	if err := h.repo.CommitAllocation(ctx, deleted, entries); err != nil {
		return nil, fmt.Errorf("failed to commit allocation: %w", err)
	}

	return &AllocateStockResult{Entries: entries, UnitsDeleted: len(deleted)}, nil
}

func (h *AllocateStockHandler) validate(ctx context.Context, cmd AllocateStockCommand) error {
	for _, job := range cmd.Jobs {
		if job.Job == "" {
			return &domain.ValidationError{Field: "job", Reason: "must not be empty"}
		}
		if len(job.Lines) == 0 {
			return &domain.ValidationError{Field: "lines", Reason: "must not be empty"}
		}
		for _, line := range job.Lines {
			if line.Quantity <= 0 {
				return &domain.ValidationError{Field: "quantity", Reason: "must be positive"}
			}
			if line.Length <= 0 {
				return &domain.ValidationError{Field: "length", Reason: "must be positive"}
			}
			if _, err := h.materials.Get(ctx, line.MaterialType); err != nil {
				if errors.Is(err, domain.ErrMaterialNotFound) {
					return &domain.ValidationError{Field: "materialType", Reason: "unknown material " + line.MaterialType}
				}
				return fmt.Errorf("failed to look up material: %w", err)
			}
		}
	}
	return nil
}
