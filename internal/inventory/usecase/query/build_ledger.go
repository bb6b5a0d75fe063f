package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fabtrack/sheetstock/internal/inventory/domain"
)

// LedgerRow is one reconciled, display-ready transaction for a material.
// Every row in one ledger exposes the same per-length count keys, so the
// presentation layer never branches on row kind to render columns.
type LedgerRow struct {
	ID            string      `json:"id"`
	Job           string      `json:"job"`
	Customer      string      `json:"customer,omitempty"`
	Supplier      string      `json:"supplier,omitempty"`
	Date          time.Time   `json:"date"`
	IsAddition    bool        `json:"isAddition"`
	IsFuture      bool        `json:"isFuture"`
	IsDeletable   bool        `json:"isDeletable"`
	IsFulfillable bool        `json:"isFulfillable"`
	Counts        map[int]int `json:"counts"`

	// Booking time, kept for ordering: rows sharing an effective date sort
	// by when they were recorded.
	createdAt time.Time
}

// stockJobLabel is the job label additions fall under when units were bought
// for stock rather than a job.
const stockJobLabel = "stock"

type additionKey struct {
	createdAt int64
	job       string
	supplier  string
}

// BuildLedger derives the time-ordered ledger for one material from the
// current unit list and log list. Pure function: it is re-executed on every
// render of a history view and never touches the store.
func BuildLedger(materialType string, units []domain.InventoryUnit, logs []domain.UsageLogEntry) []LedgerRow {
	var rows []LedgerRow

	// Addition pass: one row per arrival group. Correction units are not
	// real arrivals and must not double-count in the audit trail.
	groups := make(map[additionKey][]domain.InventoryUnit)
	var order []additionKey
	for _, unit := range units {
		if unit.MaterialType != materialType {
			continue
		}
		if strings.HasPrefix(unit.Job, domain.LegacyModificationPrefix) {
			continue
		}
		if domain.IsCorrectionSupplier(unit.Supplier) {
			continue
		}
		job := unit.Job
		if job == "" {
			job = stockJobLabel
		}
		key := additionKey{unit.CreatedAt.UnixNano(), job, unit.Supplier}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], unit)
	}
	for _, key := range order {
		group := groups[key]
		counts := make(map[int]int)
		future := true
		for _, unit := range group {
			counts[unit.Length]++
			if unit.Status != domain.StatusOrdered {
				future = false
			}
		}
		first := group[0]
		date := first.CreatedAt
		if first.ArrivalDate != nil {
			date = *first.ArrivalDate
		}
		rows = append(rows, LedgerRow{
			ID:          first.ID,
			Job:         key.job,
			Supplier:    key.supplier,
			Date:        date,
			IsAddition:  true,
			IsFuture:    future,
			IsDeletable: true,
			Counts:      counts,
			createdAt:   first.CreatedAt,
		})
	}

	// Removal pass: one row per usage log touching the material. Positive
	// correction logs are reversals, not removals.
	for _, entry := range logs {
		if !entry.TouchesMaterial(materialType) {
			continue
		}
		if entry.Qty >= 0 && entry.EffectiveKind() == domain.KindCorrection {
			continue
		}
		counts := make(map[int]int)
		for _, detail := range entry.Details {
			if detail.MaterialType != materialType {
				continue
			}
			counts[detail.Length] -= detail.Qty
		}
		date := entry.CreatedAt
		if entry.UsedAt != nil {
			date = *entry.UsedAt
		}
		future := entry.Status == domain.LogScheduled
		rows = append(rows, LedgerRow{
			ID:            entry.ID,
			Job:           entry.Job,
			Customer:      entry.Customer,
			Date:          date,
			IsAddition:    false,
			IsFuture:      future,
			IsFulfillable: future,
			Counts:        counts,
			createdAt:     entry.CreatedAt,
		})
	}

	normalizeCountShapes(rows)

	// Newest first by effective date. Additions sort on arrival date,
	// removals on the business date of use, so future arrivals and
	// past-dated usage interleave correctly. Equal dates fall back to the
	// booking time, then the row id.
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.After(rows[j].Date)
		}
		if !rows[i].createdAt.Equal(rows[j].createdAt) {
			return rows[i].createdAt.After(rows[j].createdAt)
		}
		return rows[i].ID < rows[j].ID
	})
	return rows
}

// normalizeCountShapes gives every row the union of length keys, zero
// filled, plus the standard lengths.
func normalizeCountShapes(rows []LedgerRow) {
	lengths := make(map[int]struct{})
	for _, l := range domain.StandardLengths {
		lengths[l] = struct{}{}
	}
	for _, row := range rows {
		for l := range row.Counts {
			lengths[l] = struct{}{}
		}
	}
	for _, row := range rows {
		for l := range lengths {
			if _, ok := row.Counts[l]; !ok {
				row.Counts[l] = 0
			}
		}
	}
}

// LedgerQuery represents the query for one material's ledger
type LedgerQuery struct {
	MaterialType string
}

// LedgerHandler handles ledger queries
type LedgerHandler struct {
	repo domain.InventoryRepository
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(repo domain.InventoryRepository) *LedgerHandler {
	return &LedgerHandler{repo: repo}
}

// Handle loads the material's units and the full log list, then reconciles
// them into ledger rows.
func (h *LedgerHandler) Handle(ctx context.Context, q LedgerQuery) ([]LedgerRow, error) {
	if q.MaterialType == "" {
		return nil, &domain.ValidationError{Field: "materialType", Reason: "must not be empty"}
	}
	units, err := h.repo.UnitsByMaterial(ctx, q.MaterialType)
	if err != nil {
		return nil, fmt.Errorf("failed to load units: %w", err)
	}
	logs, err := h.repo.AllLogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load usage logs: %w", err)
	}
	return BuildLedger(q.MaterialType, units, logs), nil
}
