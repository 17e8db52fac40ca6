package storage

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type tracedStore struct {
	provider string
	inner    ObjectStore
	tracer   trace.Tracer
}

// Traced wraps an ObjectStore so every store operation emits a span. Absent
// keys are not recorded as span errors; they are an expected outcome.
func Traced(provider string, inner ObjectStore) ObjectStore {
	if inner == nil {
		return nil
	}
	return &tracedStore{
		provider: provider,
		inner:    inner,
		tracer:   otel.Tracer("pathlearn-backend/storage"),
	}
}

func (s *tracedStore) Put(ctx context.Context, key string, data []byte) error {
	ctx, span := s.start(ctx, "store.put", key)
	defer span.End()
	err := s.inner.Put(ctx, key, data)
	s.finish(span, err)
	return err
}

func (s *tracedStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := s.start(ctx, "store.get", key)
	defer span.End()
	data, err := s.inner.Get(ctx, key)
	s.finish(span, err)
	return data, err
}

func (s *tracedStore) Exists(ctx context.Context, key string) (bool, error) {
	ctx, span := s.start(ctx, "store.exists", key)
	defer span.End()
	ok, err := s.inner.Exists(ctx, key)
	s.finish(span, err)
	return ok, err
}

func (s *tracedStore) Delete(ctx context.Context, key string) (bool, error) {
	ctx, span := s.start(ctx, "store.delete", key)
	defer span.End()
	ok, err := s.inner.Delete(ctx, key)
	s.finish(span, err)
	return ok, err
}

func (s *tracedStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	ctx, span := s.start(ctx, "store.list_keys", prefix)
	defer span.End()
	keys, err := s.inner.ListKeys(ctx, prefix)
	if err == nil {
		span.SetAttributes(attribute.Int("store.keys", len(keys)))
	}
	s.finish(span, err)
	return keys, err
}

func (s *tracedStore) Close() error {
	return s.inner.Close()
}

func (s *tracedStore) start(ctx context.Context, op, key string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("store.provider", s.provider),
		attribute.String("store.key", key),
	))
}

func (s *tracedStore) finish(span trace.Span, err error) {
	if err == nil || IsNotFound(err) {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
