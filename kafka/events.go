package kafka

import "time"

// AllocatedLine is one allocated (material, length, quantity) line.
type AllocatedLine struct {
	MaterialType string `json:"material_type"`
	Length       int    `json:"length"`
	Quantity     int    `json:"quantity"`
}

// StockAllocatedEvent represents a committed stock allocation
type StockAllocatedEvent struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	Job          string          `json:"job"`
	Customer     string          `json:"customer,omitempty"`
	Lines        []AllocatedLine `json:"lines"`
	UnitsDeleted int             `json:"units_deleted"`
	UsageLogID   string          `json:"usage_log_id"`
	Timestamp    time.Time       `json:"timestamp"`
}

// SnapshotCreatedEvent represents a completed backup
type SnapshotCreatedEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	SnapshotID string    `json:"snapshot_id"`
	TotalDocs  int       `json:"total_docs"`
	Timestamp  time.Time `json:"timestamp"`
}

// Event types
const (
	EventTypeStockAllocated  = "stock.allocated"
	EventTypeSnapshotCreated = "snapshot.created"
)

// Kafka topics
const (
	TopicStockAllocated  = "stock-allocated"
	TopicSnapshotCreated = "snapshot-created"
)
