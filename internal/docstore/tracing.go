package docstore

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("docstore")

var _ Store = (*TracingStore)(nil)

// TracingStore wraps a Store with OpenTelemetry spans
type TracingStore struct {
	inner Store
}

// NewTracingStore creates a new store decorated with tracing
func NewTracingStore(inner Store) *TracingStore {
	return &TracingStore{inner: inner}
}

func (s *TracingStore) Put(ctx context.Context, collection, id string, fields Fields) (string, error) {
	ctx, span := tracer.Start(ctx, "docstore.Put",
		trace.WithAttributes(
			attribute.String("docstore.collection", collection),
			attribute.String("docstore.id", id),
		),
	)
	defer span.End()

	assigned, err := s.inner.Put(ctx, collection, id, fields)
	if err != nil {
		recordError(span, err)
		return "", err
	}
	span.SetAttributes(attribute.String("docstore.assigned_id", assigned))
	return assigned, nil
}

func (s *TracingStore) Get(ctx context.Context, collection, id string) (Document, error) {
	ctx, span := tracer.Start(ctx, "docstore.Get",
		trace.WithAttributes(
			attribute.String("docstore.collection", collection),
			attribute.String("docstore.id", id),
		),
	)
	defer span.End()

	doc, err := s.inner.Get(ctx, collection, id)
	if err != nil {
		recordError(span, err)
		return Document{}, err
	}
	return doc, nil
}

func (s *TracingStore) Delete(ctx context.Context, collection, id string) error {
	ctx, span := tracer.Start(ctx, "docstore.Delete",
		trace.WithAttributes(
			attribute.String("docstore.collection", collection),
			attribute.String("docstore.id", id),
		),
	)
	defer span.End()

	if err := s.inner.Delete(ctx, collection, id); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

func (s *TracingStore) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	ctx, span := tracer.Start(ctx, "docstore.Query",
		trace.WithAttributes(
			attribute.String("docstore.collection", collection),
			attribute.Int("docstore.filters", len(q.Filters)),
			attribute.String("docstore.order_by", q.OrderBy),
			attribute.Int("docstore.limit", q.Limit),
		),
	)
	defer span.End()

	docs, err := s.inner.Query(ctx, collection, q)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("docstore.result_count", len(docs)))
	return docs, nil
}

func (s *TracingStore) List(ctx context.Context, collection string) ([]Document, error) {
	ctx, span := tracer.Start(ctx, "docstore.List",
		trace.WithAttributes(attribute.String("docstore.collection", collection)),
	)
	defer span.End()

	docs, err := s.inner.List(ctx, collection)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("docstore.result_count", len(docs)))
	return docs, nil
}

func (s *TracingStore) ListCollections(ctx context.Context, prefix string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "docstore.ListCollections",
		trace.WithAttributes(attribute.String("docstore.prefix", prefix)),
	)
	defer span.End()

	names, err := s.inner.ListCollections(ctx, prefix)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("docstore.result_count", len(names)))
	return names, nil
}

func (s *TracingStore) Count(ctx context.Context, collection string) (int, error) {
	ctx, span := tracer.Start(ctx, "docstore.Count",
		trace.WithAttributes(attribute.String("docstore.collection", collection)),
	)
	defer span.End()

	n, err := s.inner.Count(ctx, collection)
	if err != nil {
		recordError(span, err)
		return 0, err
	}
	span.SetAttributes(attribute.Int("docstore.result_count", n))
	return n, nil
}

func (s *TracingStore) ApplyBatch(ctx context.Context, writes []Write) error {
	ctx, span := tracer.Start(ctx, "docstore.ApplyBatch",
		trace.WithAttributes(attribute.Int("docstore.batch_size", len(writes))),
	)
	defer span.End()

	if err := s.inner.ApplyBatch(ctx, writes); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
