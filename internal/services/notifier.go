package services

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/locus/pkg/registry"
	"go.uber.org/zap"
)

// Notifier delivers process events.
type Notifier interface {
	Notify(ctx context.Context, event string, attrs map[string]string) error
}

// NotifierCapability is the key notifiers are registered under.
var NotifierCapability = registry.Declare[Notifier]("notifier")

// LogNotifier writes events to a logger. It registers itself on
// construction and unregisters on Close; the registry never owns it.
type LogNotifier struct {
	logger *zap.Logger
	scope  *registry.Scope
}

// NewLogNotifier creates a notifier and advertises it under
// NotifierCapability in mode.
func NewLogNotifier(reg *registry.Registry, logger *zap.Logger, mode registry.Mode) (*LogNotifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &LogNotifier{logger: logger.Named("notifier")}
	scope, err := registry.NewScope(reg, Notifier(n), registry.Bind(NotifierCapability.Key(), mode))
	if err != nil {
		return nil, fmt.Errorf("advertising log notifier: %w", err)
	}
	n.scope = scope
	return n, nil
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, event string, attrs map[string]string) error {
	fields := make([]zap.Field, 0, len(attrs)+1)
	fields = append(fields, zap.String("event", event))
	for k, v := range attrs {
		fields = append(fields, zap.String(k, v))
	}
	n.logger.Info("notification", fields...)
	return nil
}

// Close withdraws the notifier from the registry.
func (n *LogNotifier) Close() error {
	return n.scope.Close()
}
