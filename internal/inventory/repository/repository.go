package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fabtrack/sheetstock/internal/docstore"
	"github.com/fabtrack/sheetstock/internal/inventory/domain"
)

// Live collection names. The snapshot service receives these as its explicit
// collection list; nothing discovers collections automatically.
const (
	CollectionInventory = "inventory"
	CollectionUsageLogs = "usage_logs"
	CollectionMaterials = "materials"
)

// LiveCollections is the ordered collection set covered by snapshots.
func LiveCollections() []string {
	return []string{CollectionInventory, CollectionUsageLogs, CollectionMaterials}
}

var _ domain.InventoryRepository = (*DocstoreInventoryRepository)(nil)

// DocstoreInventoryRepository stores units and usage logs as documents.
type DocstoreInventoryRepository struct {
	store docstore.Store
}

// NewDocstoreInventoryRepository creates a new document-store-backed
// inventory repository.
func NewDocstoreInventoryRepository(store docstore.Store) *DocstoreInventoryRepository {
	return &DocstoreInventoryRepository{store: store}
}

func (r *DocstoreInventoryRepository) SaveUnit(ctx context.Context, unit *domain.InventoryUnit) error {
	fields, err := encodeUnit(*unit)
	if err != nil {
		return err
	}
	id, err := r.store.Put(ctx, CollectionInventory, unit.ID, fields)
	if err != nil {
		return err
	}
	unit.ID = id
	return nil
}

func (r *DocstoreInventoryRepository) SaveUnits(ctx context.Context, units []*domain.InventoryUnit) error {
	writes := make([]docstore.Write, 0, len(units))
	for _, unit := range units {
		if unit.ID == "" {
			unit.ID = uuid.NewString()
		}
		fields, err := encodeUnit(*unit)
		if err != nil {
			return err
		}
		writes = append(writes, docstore.Write{
			Kind:       docstore.WritePut,
			Collection: CollectionInventory,
			ID:         unit.ID,
			Fields:     fields,
		})
	}
	return docstore.ApplyChunked(ctx, r.store, writes, docstore.BatchChunkSize, nil)
}

func (r *DocstoreInventoryRepository) UpdateUnit(ctx context.Context, unit domain.InventoryUnit) error {
	if unit.ID == "" {
		return &domain.ValidationError{Field: "id", Reason: "must not be empty"}
	}
	fields, err := encodeUnit(unit)
	if err != nil {
		return err
	}
	_, err = r.store.Put(ctx, CollectionInventory, unit.ID, fields)
	return err
}

func (r *DocstoreInventoryRepository) UnitsOnHand(ctx context.Context, materialType string, length int) ([]domain.InventoryUnit, error) {
	docs, err := r.store.Query(ctx, CollectionInventory, docstore.Query{
		Filters: []docstore.Filter{
			{Field: "materialType", Value: materialType},
			{Field: "length", Value: length},
			{Field: "status", Value: string(domain.StatusOnHand)},
		},
		OrderBy:   "createdAt",
		Ascending: true,
	})
	if err != nil {
		return nil, err
	}
	return decodeUnits(docs)
}

func (r *DocstoreInventoryRepository) UnitsByMaterial(ctx context.Context, materialType string) ([]domain.InventoryUnit, error) {
	docs, err := r.store.Query(ctx, CollectionInventory, docstore.Query{
		Filters:   []docstore.Filter{{Field: "materialType", Value: materialType}},
		OrderBy:   "createdAt",
		Ascending: true,
	})
	if err != nil {
		return nil, err
	}
	return decodeUnits(docs)
}

func (r *DocstoreInventoryRepository) UnitsByJob(ctx context.Context, job string) ([]domain.InventoryUnit, error) {
	docs, err := r.store.Query(ctx, CollectionInventory, docstore.Query{
		Filters:   []docstore.Filter{{Field: "job", Value: job}},
		OrderBy:   "createdAt",
		Ascending: true,
	})
	if err != nil {
		return nil, err
	}
	return decodeUnits(docs)
}

func (r *DocstoreInventoryRepository) AllUnits(ctx context.Context) ([]domain.InventoryUnit, error) {
	docs, err := r.store.Query(ctx, CollectionInventory, docstore.Query{
		OrderBy:   "createdAt",
		Ascending: true,
	})
	if err != nil {
		return nil, err
	}
	return decodeUnits(docs)
}

func (r *DocstoreInventoryRepository) SaveLog(ctx context.Context, entry *domain.UsageLogEntry) error {
	fields, err := encodeLog(*entry)
	if err != nil {
		return err
	}
	id, err := r.store.Put(ctx, CollectionUsageLogs, entry.ID, fields)
	if err != nil {
		return err
	}
	entry.ID = id
	return nil
}

func (r *DocstoreInventoryRepository) AllLogs(ctx context.Context) ([]domain.UsageLogEntry, error) {
	docs, err := r.store.Query(ctx, CollectionUsageLogs, docstore.Query{
		OrderBy:   "createdAt",
		Ascending: true,
	})
	if err != nil {
		return nil, err
	}
	logs := make([]domain.UsageLogEntry, 0, len(docs))
	for _, doc := range docs {
		entry, err := decodeLog(doc)
		if err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, nil
}

func (r *DocstoreInventoryRepository) CommitAllocation(ctx context.Context, unitIDs []string, entries []domain.UsageLogEntry) error {
	writes := make([]docstore.Write, 0, len(unitIDs)+len(entries))
	for _, id := range unitIDs {
		writes = append(writes, docstore.Write{
			Kind:       docstore.WriteDelete,
			Collection: CollectionInventory,
			ID:         id,
		})
	}
	for _, entry := range entries {
		fields, err := encodeLog(entry)
		if err != nil {
			return err
		}
		writes = append(writes, docstore.Write{
			Kind:       docstore.WritePut,
			Collection: CollectionUsageLogs,
			ID:         entry.ID,
			Fields:     fields,
		})
	}
	return docstore.ApplyChunked(ctx, r.store, writes, docstore.BatchChunkSize, nil)
}

var _ domain.MaterialRepository = (*DocstoreMaterialRepository)(nil)

// DocstoreMaterialRepository stores the material catalog keyed by material
// key.
type DocstoreMaterialRepository struct {
	store docstore.Store
}

// NewDocstoreMaterialRepository creates a new catalog repository.
func NewDocstoreMaterialRepository(store docstore.Store) *DocstoreMaterialRepository {
	return &DocstoreMaterialRepository{store: store}
}

func (r *DocstoreMaterialRepository) Get(ctx context.Context, key string) (domain.MaterialCatalogEntry, error) {
	doc, err := r.store.Get(ctx, CollectionMaterials, key)
	if errors.Is(err, docstore.ErrNotFound) {
		return domain.MaterialCatalogEntry{}, fmt.Errorf("%w: %s", domain.ErrMaterialNotFound, key)
	}
	if err != nil {
		return domain.MaterialCatalogEntry{}, err
	}
	return decodeMaterial(doc)
}

func (r *DocstoreMaterialRepository) All(ctx context.Context) ([]domain.MaterialCatalogEntry, error) {
	docs, err := r.store.List(ctx, CollectionMaterials)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.MaterialCatalogEntry, 0, len(docs))
	for _, doc := range docs {
		entry, err := decodeMaterial(doc)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *DocstoreMaterialRepository) Save(ctx context.Context, entry domain.MaterialCatalogEntry) error {
	if entry.Key == "" {
		return &domain.ValidationError{Field: "key", Reason: "must not be empty"}
	}
	fields, err := encode(entry)
	if err != nil {
		return err
	}
	_, err = r.store.Put(ctx, CollectionMaterials, entry.Key, fields)
	return err
}

// encode converts a domain value into document fields via its json tags.
func encode(v any) (docstore.Fields, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	fields := docstore.Fields{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode document fields: %w", err)
	}
	return fields, nil
}

func decodeInto(doc docstore.Document, v any) error {
	raw, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("encode document fields: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

func encodeUnit(unit domain.InventoryUnit) (docstore.Fields, error) {
	// The store id is not part of the document body.
	unit.ID = ""
	return encode(unit)
}

func decodeUnits(docs []docstore.Document) ([]domain.InventoryUnit, error) {
	units := make([]domain.InventoryUnit, 0, len(docs))
	for _, doc := range docs {
		var unit domain.InventoryUnit
		if err := decodeInto(doc, &unit); err != nil {
			return nil, err
		}
		unit.ID = doc.ID
		units = append(units, unit)
	}
	return units, nil
}

func encodeLog(entry domain.UsageLogEntry) (docstore.Fields, error) {
	entry.ID = ""
	return encode(entry)
}

func decodeLog(doc docstore.Document) (domain.UsageLogEntry, error) {
	var entry domain.UsageLogEntry
	if err := decodeInto(doc, &entry); err != nil {
		return domain.UsageLogEntry{}, err
	}
	entry.ID = doc.ID
	return entry, nil
}

func decodeMaterial(doc docstore.Document) (domain.MaterialCatalogEntry, error) {
	var entry domain.MaterialCatalogEntry
	if err := decodeInto(doc, &entry); err != nil {
		return domain.MaterialCatalogEntry{}, err
	}
	entry.Key = doc.ID
	return entry, nil
}
