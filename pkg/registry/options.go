package registry

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/locus/pkg/registry"

// Resolution selects what FindAny returns when a key has no primary.
type Resolution int

const (
	// ResolveFallback returns the primary, else the first registered entry.
	ResolveFallback Resolution = iota
	// ResolvePrimaryOnly returns the primary or nothing.
	ResolvePrimaryOnly
)

// String returns "fallback" or "primary_only".
func (r Resolution) String() string {
	if r == ResolvePrimaryOnly {
		return "primary_only"
	}
	return "fallback"
}

// ParseResolution parses "fallback" or "primary_only". Empty means fallback.
func ParseResolution(s string) (Resolution, error) {
	switch s {
	case "", "fallback":
		return ResolveFallback, nil
	case "primary_only":
		return ResolvePrimaryOnly, nil
	default:
		return ResolveFallback, fmt.Errorf("unknown resolution policy %q (want fallback or primary_only)", s)
	}
}

type options struct {
	logger     *zap.Logger
	observer   Observer
	resolution Resolution
	tracer     trace.Tracer
	now        func() time.Time
}

// Option configures a Registry.
type Option func(*options)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver installs an observer notified of registry activity.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithResolution sets the FindAny policy.
func WithResolution(res Resolution) Option {
	return func(o *options) { o.resolution = res }
}

// WithTracer sets the tracer used by Bootstrap.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithClock overrides the registration timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func defaultOptions() options {
	return options{
		logger:     zap.NewNop(),
		observer:   NopObserver{},
		resolution: ResolveFallback,
		tracer:     otel.Tracer(instrumentationName),
		now:        time.Now,
	}
}
