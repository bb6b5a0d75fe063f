package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fabtrack/sheetstock/internal/docstore"
	"github.com/fabtrack/sheetstock/kafka"
	"github.com/fabtrack/sheetstock/pkg/database"
	"github.com/fabtrack/sheetstock/pkg/logger"
	"github.com/fabtrack/sheetstock/pkg/tracing"
)

const auditCollection = "audit_logs"

func main() {
	// Initialize logger
	serviceName := getEnv("OTEL_SERVICE_NAME", "stock-auditor")
	isDevelopment := getEnv("ENVIRONMENT", "development") == "development"
	logger.Init(serviceName, isDevelopment)

	logLevel := getEnv("LOG_LEVEL", "info")
	logger.SetLevel(logLevel)

	logger.Logger.Info().
		Str("service", serviceName).
		Msg("Starting stock auditor")

	// Initialize tracer
	tp, err := tracing.InitTracer(serviceName)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to initialize tracer")
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(ctx, tp); err != nil {
				logger.Logger.Error().Err(err).Msg("Failed to shutdown tracer")
			}
		}()
	}

	// Load database configuration
	dbConfig := database.Config{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "stockdb"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	db, err := database.NewGormConnection(dbConfig)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	pgStore := docstore.NewPostgresStore(db)
	if err := pgStore.AutoMigrate(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
	}
	store := docstore.NewTracingStore(pgStore)

	// Prometheus metrics
	eventsAudited := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_auditor_events_total",
			Help: "Total number of events audited",
		},
		[]string{"event_type"},
	)
	prometheus.MustRegister(eventsAudited)

	// Initialize Kafka consumer
	brokers := strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	groupID := getEnv("KAFKA_GROUP_ID", "stock-auditor")
	topics := []string{kafka.TopicStockAllocated, kafka.TopicSnapshotCreated}

	consumer, err := kafka.NewConsumer(brokers, groupID, topics)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to create Kafka consumer")
	}
	defer consumer.Close()

	consumer.RegisterHandler(kafka.EventTypeStockAllocated, func(ctx context.Context, event any) error {
		e, ok := event.(kafka.StockAllocatedEvent)
		if !ok {
			return nil
		}
		eventsAudited.WithLabelValues(kafka.EventTypeStockAllocated).Inc()
		_, err := store.Put(ctx, auditCollection, uuid.NewString(), docstore.Fields{
			"eventId":      e.EventID,
			"eventType":    e.EventType,
			"job":          e.Job,
			"customer":     e.Customer,
			"unitsDeleted": e.UnitsDeleted,
			"usageLogId":   e.UsageLogID,
			"timestamp":    e.Timestamp.UTC().Format(time.RFC3339Nano),
		})
		return err
	})

	consumer.RegisterHandler(kafka.EventTypeSnapshotCreated, func(ctx context.Context, event any) error {
		e, ok := event.(kafka.SnapshotCreatedEvent)
		if !ok {
			return nil
		}
		eventsAudited.WithLabelValues(kafka.EventTypeSnapshotCreated).Inc()
		_, err := store.Put(ctx, auditCollection, uuid.NewString(), docstore.Fields{
			"eventId":    e.EventID,
			"eventType":  e.EventType,
			"snapshotId": e.SnapshotID,
			"totalDocs":  e.TotalDocs,
			"timestamp":  e.Timestamp.UTC().Format(time.RFC3339Nano),
		})
		return err
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := consumer.Start(ctx); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to start Kafka consumer")
	}

	// Prometheus metrics endpoint
	go func() {
		metricsPort := getEnv("METRICS_PORT", "9191")
		http.Handle("/metrics", promhttp.Handler())
		logger.Logger.Info().Str("port", metricsPort).Msg("Metrics server started")
		if err := http.ListenAndServe(":"+metricsPort, nil); err != nil {
			logger.Logger.Error().Err(err).Msg("Metrics server stopped")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("Shutting down auditor...")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
