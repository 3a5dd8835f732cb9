package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/locus/pkg/registry"
	"github.com/nats-io/nats.go"
)

// DefaultSubject prefixes every event subject published by NATSNotifier.
const DefaultSubject = "locus.events"

// Event is the payload NATSNotifier publishes.
type Event struct {
	Event string            `json:"event"`
	Attrs map[string]string `json:"attrs,omitempty"`
	Time  time.Time         `json:"time"`
}

// NATSNotifier publishes events to NATS on "<subject>.<event>". Like
// LogNotifier it advertises itself while open; the connection stays owned
// by the caller.
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
	scope   *registry.Scope
}

// NewNATSNotifier creates a notifier publishing on conn and advertises it
// under NotifierCapability in mode. An empty subject means DefaultSubject.
func NewNATSNotifier(reg *registry.Registry, conn *nats.Conn, subject string, mode registry.Mode) (*NATSNotifier, error) {
	if conn == nil {
		return nil, fmt.Errorf("nats connection is required")
	}
	if subject == "" {
		subject = DefaultSubject
	}
	n := &NATSNotifier{conn: conn, subject: subject}
	scope, err := registry.NewScope(reg, Notifier(n), registry.Bind(NotifierCapability.Key(), mode))
	if err != nil {
		return nil, fmt.Errorf("advertising nats notifier: %w", err)
	}
	n.scope = scope
	return n, nil
}

// Notify implements Notifier.
func (n *NATSNotifier) Notify(_ context.Context, event string, attrs map[string]string) error {
	data, err := json.Marshal(Event{Event: event, Attrs: attrs, Time: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := n.conn.Publish(n.subject+"."+event, data); err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

// Close withdraws the notifier from the registry. It does not close the
// connection.
func (n *NATSNotifier) Close() error {
	return n.scope.Close()
}
