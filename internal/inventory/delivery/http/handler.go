package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fabtrack/sheetstock/internal/inventory/domain"
	"github.com/fabtrack/sheetstock/internal/inventory/usecase/command"
	"github.com/fabtrack/sheetstock/internal/inventory/usecase/query"
	"github.com/fabtrack/sheetstock/kafka"
	"github.com/fabtrack/sheetstock/pkg/logger"
)

// StockHandler handles HTTP requests for sheet stock
type StockHandler struct {
	// Command handlers
	allocateHandler     *command.AllocateStockHandler
	receiveGroupHandler *command.ReceiveGroupHandler
	markReceivedHandler *command.MarkReceivedHandler
	deleteGroupHandler  *command.DeleteGroupHandler
	adjustUnitsHandler  *command.AdjustUnitsHandler

	// Query handlers
	ledgerHandler    *query.LedgerHandler
	summaryHandler   *query.StockSummaryHandler
	listUnitsHandler *query.ListUnitsHandler

	publisher *kafka.Publisher

	requestCounter *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	requestSummary *prometheus.SummaryVec
	onHandUnits    prometheus.Gauge
}

// NewStockHandler creates a new stock handler (manual DI)
func NewStockHandler(repo domain.InventoryRepository, materials domain.MaterialRepository) *StockHandler {
	return NewStockHandlerWithDI(
		command.NewAllocateStockHandler(repo, materials),
		command.NewReceiveGroupHandler(repo, materials),
		command.NewMarkReceivedHandler(repo),
		command.NewDeleteGroupHandler(repo),
		command.NewAdjustUnitsHandler(repo, materials),
		query.NewLedgerHandler(repo),
		query.NewStockSummaryHandler(repo, materials),
		query.NewListUnitsHandler(repo),
	)
}

// NewStockHandlerWithDI creates a new stock handler using dependency injection.
// This is used by Wire for automatic dependency injection.
func NewStockHandlerWithDI(
	allocateHandler *command.AllocateStockHandler,
	receiveGroupHandler *command.ReceiveGroupHandler,
	markReceivedHandler *command.MarkReceivedHandler,
	deleteGroupHandler *command.DeleteGroupHandler,
	adjustUnitsHandler *command.AdjustUnitsHandler,
	ledgerHandler *query.LedgerHandler,
	summaryHandler *query.StockSummaryHandler,
	listUnitsHandler *query.ListUnitsHandler,
) *StockHandler {
	requestCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_service_requests_total",
			Help: "Total number of requests to stock service",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stock_service_request_duration_seconds",
			Help:    "Duration of stock service requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Summary metric for percentile calculation (p50, p90, p95, p99)
	requestSummary := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "stock_service_request_duration_summary",
			Help: "Summary of request durations with percentiles (client-side quantiles)",
			Objectives: map[float64]float64{
				0.5:  0.05,
				0.9:  0.01,
				0.95: 0.01,
				0.99: 0.001,
			},
			MaxAge: 10 * time.Minute,
		},
		[]string{"method", "endpoint"},
	)

	onHandUnits := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stock_service_on_hand_units",
			Help: "Number of on-hand inventory units",
		},
	)

	prometheus.MustRegister(requestCounter)
	prometheus.MustRegister(requestLatency)
	prometheus.MustRegister(requestSummary)
	prometheus.MustRegister(onHandUnits)

	return &StockHandler{
		allocateHandler:     allocateHandler,
		receiveGroupHandler: receiveGroupHandler,
		markReceivedHandler: markReceivedHandler,
		deleteGroupHandler:  deleteGroupHandler,
		adjustUnitsHandler:  adjustUnitsHandler,
		ledgerHandler:       ledgerHandler,
		summaryHandler:      summaryHandler,
		listUnitsHandler:    listUnitsHandler,
		requestCounter:      requestCounter,
		requestLatency:      requestLatency,
		requestSummary:      requestSummary,
		onHandUnits:         onHandUnits,
	}
}

// SetPublisher attaches the Kafka publisher. Event publishing is
// fire-and-forget: a broker failure never fails a committed allocation.
func (h *StockHandler) SetPublisher(publisher *kafka.Publisher) {
	h.publisher = publisher
}

// allocationEvents builds one event per committed usage log, carrying the
// requested lines of the matching job.
func allocationEvents(cmd command.AllocateStockCommand, result *command.AllocateStockResult) []kafka.StockAllocatedEvent {
	linesByJob := make(map[string][]kafka.AllocatedLine, len(cmd.Jobs))
	for _, job := range cmd.Jobs {
		for _, line := range job.Lines {
			linesByJob[job.Job] = append(linesByJob[job.Job], kafka.AllocatedLine{
				MaterialType: line.MaterialType,
				Length:       line.Length,
				Quantity:     line.Quantity,
			})
		}
	}
	events := make([]kafka.StockAllocatedEvent, 0, len(result.Entries))
	for _, entry := range result.Entries {
		events = append(events, kafka.StockAllocatedEvent{
			Job:          entry.Job,
			Customer:     entry.Customer,
			Lines:        linesByJob[entry.Job],
			UnitsDeleted: len(entry.Details),
			UsageLogID:   entry.ID,
		})
	}
	return events
}

// publishAllocated emits one event per allocated job
func (h *StockHandler) publishAllocated(ctx context.Context, cmd command.AllocateStockCommand, result *command.AllocateStockResult) {
	if h.publisher == nil {
		return
	}
	for _, event := range allocationEvents(cmd, result) {
		if err := h.publisher.PublishStockAllocated(ctx, event); err != nil {
			logger.Warn(ctx).Err(err).Str("job", event.Job).Msg("Failed to publish allocation event")
		}
	}
}

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware wraps handlers with Prometheus metrics
func (h *StockHandler) metricsMiddleware(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()

		h.requestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(rw.statusCode)).Inc()
		h.requestLatency.WithLabelValues(r.Method, endpoint).Observe(duration)
		h.requestSummary.WithLabelValues(r.Method, endpoint).Observe(duration)
	}
}

// RegisterRoutes registers all stock routes
func (h *StockHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/allocations", h.metricsMiddleware("/api/allocations", h.AllocateStock)).Methods("POST")
	router.HandleFunc("/api/groups", h.metricsMiddleware("/api/groups", h.ReceiveGroup)).Methods("POST")
	router.HandleFunc("/api/groups/{job}/receive", h.metricsMiddleware("/api/groups/{job}/receive", h.MarkReceived)).Methods("POST")
	router.HandleFunc("/api/groups/{job}", h.metricsMiddleware("/api/groups/{job}", h.DeleteGroup)).Methods("DELETE")
	router.HandleFunc("/api/adjustments", h.metricsMiddleware("/api/adjustments", h.AdjustUnits)).Methods("POST")
	router.HandleFunc("/api/ledger/{material}", h.metricsMiddleware("/api/ledger/{material}", h.GetLedger)).Methods("GET")
	router.HandleFunc("/api/summary", h.metricsMiddleware("/api/summary", h.GetSummary)).Methods("GET")
	router.HandleFunc("/api/units", h.metricsMiddleware("/api/units", h.ListUnits)).Methods("GET")
}

// RegisterHealthCheck registers health check endpoint
func (h *StockHandler) RegisterHealthCheck(router *mux.Router, db *sql.DB) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, Response{
				Success: false,
				Error:   "Database unavailable",
			})
			return
		}

		respondJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Stock service is healthy",
		})
	}).Methods("GET")
}

// AllocateStock handles POST /api/allocations
func (h *StockHandler) AllocateStock(w http.ResponseWriter, r *http.Request) {
	var cmd command.AllocateStockCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	result, err := h.allocateHandler.Handle(r.Context(), cmd)
	if err != nil {
		respondError(r.Context(), w, err, "Failed to allocate stock")
		return
	}

	h.publishAllocated(r.Context(), cmd, result)

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Stock allocated successfully",
		Data:    result,
	})
}

// ReceiveGroup handles POST /api/groups
func (h *StockHandler) ReceiveGroup(w http.ResponseWriter, r *http.Request) {
	var cmd command.ReceiveGroupCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	units, err := h.receiveGroupHandler.Handle(r.Context(), cmd)
	if err != nil {
		respondError(r.Context(), w, err, "Failed to receive group")
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Group received successfully",
		Data:    units,
	})
}

// MarkReceived handles POST /api/groups/{job}/receive
func (h *StockHandler) MarkReceived(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req struct {
		ReceivedAt *time.Time `json:"receivedAt"`
	}
	if r.Body != nil {
		// Body is optional; an empty body means "received now".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	cmd := command.MarkReceivedCommand{Job: vars["job"], ReceivedAt: req.ReceivedAt}

	count, err := h.markReceivedHandler.Handle(r.Context(), cmd)
	if err != nil {
		respondError(r.Context(), w, err, "Failed to mark group received")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Group marked received",
		Data:    map[string]int{"unitsReceived": count},
	})
}

// DeleteGroup handles DELETE /api/groups/{job}
func (h *StockHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	deleted, err := h.deleteGroupHandler.Handle(r.Context(), command.DeleteGroupCommand{Job: vars["job"]})
	if err != nil {
		respondError(r.Context(), w, err, "Failed to delete group")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Group deleted successfully",
		Data:    map[string]int{"unitsDeleted": deleted},
	})
}

// AdjustUnits handles POST /api/adjustments
func (h *StockHandler) AdjustUnits(w http.ResponseWriter, r *http.Request) {
	var cmd command.AdjustUnitsCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	result, err := h.adjustUnitsHandler.Handle(r.Context(), cmd)
	if err != nil {
		respondError(r.Context(), w, err, "Failed to adjust units")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Units adjusted successfully",
		Data:    result,
	})
}

// GetLedger handles GET /api/ledger/{material}
func (h *StockHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	rows, err := h.ledgerHandler.Handle(r.Context(), query.LedgerQuery{MaterialType: vars["material"]})
	if err != nil {
		respondError(r.Context(), w, err, "Failed to build ledger")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    rows,
	})
}

// GetSummary handles GET /api/summary
func (h *StockHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.summaryHandler.Handle(r.Context())
	if err != nil {
		respondError(r.Context(), w, err, "Failed to build summary")
		return
	}

	onHand := 0
	for _, s := range summaries {
		for _, n := range s.OnHand {
			onHand += n
		}
	}
	h.onHandUnits.Set(float64(onHand))

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    summaries,
	})
}

// ListUnits handles GET /api/units
func (h *StockHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.listUnitsHandler.Handle(r.Context(), query.ListUnitsQuery{
		MaterialType: r.URL.Query().Get("material"),
	})
	if err != nil {
		respondError(r.Context(), w, err, "Failed to list units")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    units,
	})
}

// respondError maps domain errors onto HTTP status codes
func respondError(ctx context.Context, w http.ResponseWriter, err error, logMsg string) {
	var (
		validationErr *domain.ValidationError
		stockErr      *domain.InsufficientStockError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &stockErr):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrMaterialNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		logger.Error(ctx).Err(err).Msg(logMsg)
	} else {
		logger.Warn(ctx).Err(err).Msg(logMsg)
	}

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
