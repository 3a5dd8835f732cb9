// internal/logging/context.go
package logging

import (
	"context"
	"fmt"
	"regexp"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxIDLen = 128

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type (
	requestCtxKey    struct{}
	capabilityCtxKey struct{}
	bootstrapCtxKey  struct{}
	loggerCtxKey     struct{}
)

// ContextFields extracts correlation fields from ctx.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	if c := CapabilityFromContext(ctx); c != "" {
		fields = append(fields, zap.String("capability", c))
	}
	if id := BootstrapIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("bootstrap.id", id))
	}
	return fields
}

func validateID(id, name string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if len(id) > maxIDLen {
		return fmt.Errorf("%s exceeds max length %d", name, maxIDLen)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (must be alphanumeric, hyphen, underscore)", name)
	}
	return nil
}

// WithRequestID adds a request ID to ctx.
// Panics if the ID is empty or contains invalid characters.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if err := validateID(requestID, "requestID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// RequestIDFromContext returns the request ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	s, _ := ctx.Value(requestCtxKey{}).(string)
	return s
}

// WithCapability records the capability key being worked on. Keys are
// validated by the registry, so any string is accepted here.
func WithCapability(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, capabilityCtxKey{}, key)
}

// CapabilityFromContext returns the capability key, or "".
func CapabilityFromContext(ctx context.Context) string {
	s, _ := ctx.Value(capabilityCtxKey{}).(string)
	return s
}

// WithBootstrapID records the bootstrap run in progress.
// Panics if the ID is empty or contains invalid characters.
func WithBootstrapID(ctx context.Context, id string) context.Context {
	if err := validateID(id, "bootstrapID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, bootstrapCtxKey{}, id)
}

// BootstrapIDFromContext returns the bootstrap run ID, or "".
func BootstrapIDFromContext(ctx context.Context) string {
	s, _ := ctx.Value(bootstrapCtxKey{}).(string)
	return s
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return NewNop()
}
