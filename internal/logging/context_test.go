package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

func fieldMap(fields []zap.Field) map[string]zap.Field {
	m := make(map[string]zap.Field, len(fields))
	for _, f := range fields {
		m[f.Key] = f
	}
	return m
}

func TestContextFields_Empty(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))
}

func TestContextFields_Trace(t *testing.T) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	fields := fieldMap(ContextFields(ctx))
	require.Contains(t, fields, "trace_id")
	require.Contains(t, fields, "span_id")
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"].String)
	assert.Contains(t, fields, "trace_sampled")
}

func TestContextFields_Correlation(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-42")
	ctx = WithCapability(ctx, "greeter")
	ctx = WithBootstrapID(ctx, "0b7c2a4e-1111-2222-3333-444455556666")

	fields := fieldMap(ContextFields(ctx))
	assert.Equal(t, "req-42", fields["request.id"].String)
	assert.Equal(t, "greeter", fields["capability"].String)
	assert.Equal(t, "0b7c2a4e-1111-2222-3333-444455556666", fields["bootstrap.id"].String)
}

func TestWithRequestID_Validation(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{name: "empty", id: ""},
		{name: "spaces", id: "has space"},
		{name: "slash", id: "a/b"},
		{name: "too long", id: strings.Repeat("a", maxIDLen+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() { WithRequestID(context.Background(), tt.id) })
		})
	}
	assert.NotPanics(t, func() { WithRequestID(context.Background(), "abc_DEF-123") })
}

func TestWithBootstrapID_Validation(t *testing.T) {
	assert.Panics(t, func() { WithBootstrapID(context.Background(), "") })
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()), "missing logger yields a no-op")

	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	FromContext(ctx).Info(ctx, "via context")
	tl.AssertLogged(t, zap.InfoLevel, "via context")
}
