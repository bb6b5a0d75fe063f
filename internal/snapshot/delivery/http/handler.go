package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fabtrack/sheetstock/internal/docstore"
	"github.com/fabtrack/sheetstock/internal/inventory/repository"
	"github.com/fabtrack/sheetstock/internal/snapshot"
	"github.com/fabtrack/sheetstock/kafka"
	"github.com/fabtrack/sheetstock/pkg/logger"
)

// SnapshotHandler handles HTTP requests for backups, restores and data
// repair.
type SnapshotHandler struct {
	service   *snapshot.Service
	publisher *kafka.Publisher

	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// NewSnapshotHandler creates a new snapshot handler. The publisher may be
// nil when Kafka is disabled.
func NewSnapshotHandler(service *snapshot.Service, publisher *kafka.Publisher) *SnapshotHandler {
	operationCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_service_operations_total",
			Help: "Total number of snapshot operations",
		},
		[]string{"operation", "status"},
	)

	operationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snapshot_service_operation_duration_seconds",
			Help:    "Duration of snapshot operations in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"operation"},
	)

	prometheus.MustRegister(operationCounter)
	prometheus.MustRegister(operationDuration)

	return &SnapshotHandler{
		service:           service,
		publisher:         publisher,
		operationCounter:  operationCounter,
		operationDuration: operationDuration,
	}
}

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RegisterRoutes registers all snapshot routes
func (h *SnapshotHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/snapshots", h.CreateSnapshot).Methods("POST")
	router.HandleFunc("/api/snapshots", h.ListSnapshots).Methods("GET")
	router.HandleFunc("/api/snapshots/backfill", h.BackfillIndex).Methods("POST")
	router.HandleFunc("/api/snapshots/import", h.ImportSnapshot).Methods("POST")
	router.HandleFunc("/api/snapshots/{id}/restore", h.RestoreSnapshot).Methods("POST")
	router.HandleFunc("/api/snapshots/{id}/export", h.ExportSnapshot).Methods("GET")
	router.HandleFunc("/api/repair/keys", h.RepairKeys).Methods("POST")
	router.HandleFunc("/api/repair/catalog", h.RebuildCatalog).Methods("POST")
}

func (h *SnapshotHandler) observe(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	h.operationCounter.WithLabelValues(operation, status).Inc()
	h.operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// CreateSnapshot handles POST /api/snapshots
func (h *SnapshotHandler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	info, err := h.service.Backup(r.Context(), repository.LiveCollections())
	h.observe("backup", start, err)
	if err != nil {
		respondMigrationError(r.Context(), w, err, "Backup failed")
		return
	}

	if h.publisher != nil {
		if err := h.publisher.PublishSnapshotCreated(r.Context(), kafka.SnapshotCreatedEvent{
			SnapshotID: info.ID,
			TotalDocs:  info.TotalDocs,
		}); err != nil {
			logger.Warn(r.Context()).Err(err).Msg("Failed to publish snapshot event")
		}
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Snapshot created successfully",
		Data:    info,
	})
}

// ListSnapshots handles GET /api/snapshots
func (h *SnapshotHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	infos, err := h.service.ListSnapshots(r.Context())
	if err != nil {
		logger.Error(r.Context()).Err(err).Msg("Failed to list snapshots")
		respondJSON(w, http.StatusInternalServerError, Response{
			Success: false,
			Error:   "Failed to list snapshots",
		})
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    infos,
	})
}

// RestoreSnapshot handles POST /api/snapshots/{id}/restore
func (h *SnapshotHandler) RestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	start := time.Now()

	var last snapshot.Progress
	err := h.service.Restore(r.Context(), vars["id"], repository.LiveCollections(), func(p snapshot.Progress) {
		last = p
		logger.Debug(r.Context()).
			Str("collection", p.Collection).
			Str("phase", string(p.Phase)).
			Int("done", p.Done).
			Int("total", p.Total).
			Msg("Restore progress")
	})
	h.observe("restore", start, err)
	if err != nil {
		respondMigrationError(r.Context(), w, err, "Restore failed")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Snapshot restored successfully",
		Data:    last,
	})
}

// BackfillIndex handles POST /api/snapshots/backfill
func (h *SnapshotHandler) BackfillIndex(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	filled, err := h.service.BackfillIndex(r.Context())
	h.observe("backfill", start, err)
	if err != nil {
		logger.Error(r.Context()).Err(err).Msg("Index backfill failed")
		respondJSON(w, http.StatusInternalServerError, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Index backfilled",
		Data:    map[string]int{"entriesFilled": filled},
	})
}

// ExportSnapshot handles GET /api/snapshots/{id}/export
func (h *SnapshotHandler) ExportSnapshot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	start := time.Now()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+vars["id"]+`.json"`)

	err := h.service.Export(r.Context(), vars["id"], w)
	h.observe("export", start, err)
	if err != nil {
		// Headers may already be gone; log and best-effort an error body.
		logger.Error(r.Context()).Err(err).Str("snapshot_id", vars["id"]).Msg("Export failed")
		if errors.Is(err, docstore.ErrNotFound) {
			respondJSON(w, http.StatusNotFound, Response{
				Success: false,
				Error:   "Snapshot not found",
			})
			return
		}
		respondJSON(w, http.StatusInternalServerError, Response{
			Success: false,
			Error:   err.Error(),
		})
	}
}

// ImportSnapshot handles POST /api/snapshots/import
func (h *SnapshotHandler) ImportSnapshot(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	info, err := h.service.Import(r.Context(), r.Body)
	h.observe("import", start, err)
	if err != nil {
		respondMigrationError(r.Context(), w, err, "Import failed")
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Snapshot imported successfully",
		Data:    info,
	})
}

// RepairKeys handles POST /api/repair/keys
func (h *SnapshotHandler) RepairKeys(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	report, err := h.service.RepairReferentialKeys(r.Context())
	h.observe("repair_keys", start, err)
	if err != nil {
		logger.Error(r.Context()).Err(err).Msg("Key repair failed")
		respondJSON(w, http.StatusInternalServerError, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Key repair complete",
		Data:    report,
	})
}

// RebuildCatalog handles POST /api/repair/catalog
func (h *SnapshotHandler) RebuildCatalog(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	report, err := h.service.RebuildMissingCatalogEntries(r.Context())
	h.observe("rebuild_catalog", start, err)
	if err != nil {
		logger.Error(r.Context()).Err(err).Msg("Catalog rebuild failed")
		respondJSON(w, http.StatusInternalServerError, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Catalog rebuild complete",
		Data:    report,
	})
}

// respondMigrationError distinguishes a partial migration, which the caller
// can retry, from plain bad input.
func respondMigrationError(ctx context.Context, w http.ResponseWriter, err error, logMsg string) {
	var partial *snapshot.PartialMigrationError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &partial):
		status = http.StatusConflict
	case errors.Is(err, docstore.ErrNotFound):
		status = http.StatusNotFound
	}

	logger.Error(ctx).Err(err).Msg(logMsg)
	respondJSON(w, status, Response{
		Success: false,
		Error:   err.Error(),
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
