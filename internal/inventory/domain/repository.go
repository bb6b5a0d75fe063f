package domain

import "context"

// InventoryRepository defines the contract for unit and usage-log access.
// Every read re-queries the store; no in-process cache is authoritative.
type InventoryRepository interface {
	SaveUnit(ctx context.Context, unit *InventoryUnit) error
	// SaveUnits bulk-creates units (one per physical sheet) in chunked
	// batches.
	SaveUnits(ctx context.Context, units []*InventoryUnit) error
	UpdateUnit(ctx context.Context, unit InventoryUnit) error
	// UnitsOnHand returns on-hand units for a material and length in FIFO
	// order: createdAt ascending, store id as tie-break.
	UnitsOnHand(ctx context.Context, materialType string, length int) ([]InventoryUnit, error)
	UnitsByMaterial(ctx context.Context, materialType string) ([]InventoryUnit, error)
	UnitsByJob(ctx context.Context, job string) ([]InventoryUnit, error)
	AllUnits(ctx context.Context) ([]InventoryUnit, error)

	SaveLog(ctx context.Context, entry *UsageLogEntry) error
	AllLogs(ctx context.Context) ([]UsageLogEntry, error)

	// CommitAllocation deletes the selected units and appends the usage
	// logs. When the whole mutation fits under the store's batch ceiling it
	// commits as one atomic batch; larger requests commit in chunks.
	CommitAllocation(ctx context.Context, unitIDs []string, entries []UsageLogEntry) error
}

// MaterialRepository defines the contract for the material catalog.
type MaterialRepository interface {
	Get(ctx context.Context, key string) (MaterialCatalogEntry, error)
	All(ctx context.Context) ([]MaterialCatalogEntry, error)
	Save(ctx context.Context, entry MaterialCatalogEntry) error
}
