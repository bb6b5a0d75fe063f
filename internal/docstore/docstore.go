package docstore

import (
	"context"
	"errors"
	"fmt"
)

// MaxBatchOps is the hard ceiling the store enforces on a single batched
// write. Callers that need to move more documents must chunk.
const MaxBatchOps = 500

// Fields is the JSON-shaped payload of one document. Values are normalized
// to string/float64/bool/nil leaves (and nested maps/slices of the same) on
// write, so equality and ordering behave the same on every implementation.
type Fields = map[string]any

// Document is one stored document.
type Document struct {
	ID     string `json:"id"`
	Fields Fields `json:"fields"`
}

// Filter is a field equality constraint.
type Filter struct {
	Field string
	Value any
}

// Query selects documents from one collection.
type Query struct {
	Filters   []Filter
	OrderBy   string
	Ascending bool
	Limit     int
}

// WriteKind discriminates batched write operations.
type WriteKind string

const (
	WritePut    WriteKind = "put"
	WriteDelete WriteKind = "delete"
)

// Write is one operation inside a batch.
type Write struct {
	Kind       WriteKind
	Collection string
	ID         string
	Fields     Fields
}

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrBatchTooLarge is returned before any write is attempted when a
	// batch exceeds MaxBatchOps.
	ErrBatchTooLarge = fmt.Errorf("docstore: batch exceeds %d operations", MaxBatchOps)
)

// Store is a collection-addressable document store. Collection names are
// path strings, which is how the snapshot namespace
// snapshots/{id}/{collection} is addressed without a separate concept.
type Store interface {
	// Put upserts a document. An empty id asks the store to assign one;
	// the assigned id is returned.
	Put(ctx context.Context, collection, id string, fields Fields) (string, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	// List streams every document in a collection.
	List(ctx context.Context, collection string) ([]Document, error)
	// ListCollections returns the distinct collection names starting with
	// prefix. Only the snapshot namespace fallback scan uses it.
	ListCollections(ctx context.Context, prefix string) ([]string, error)
	// Count returns the number of documents in a collection.
	Count(ctx context.Context, collection string) (int, error)
	// ApplyBatch applies every write or none of them. Batches larger than
	// MaxBatchOps are rejected with ErrBatchTooLarge.
	ApplyBatch(ctx context.Context, writes []Write) error
}
