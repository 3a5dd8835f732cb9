package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/fyrsmithlabs/locus/internal/logging"
	"github.com/fyrsmithlabs/locus/internal/services"
	"github.com/fyrsmithlabs/locus/pkg/registry"
	"go.uber.org/zap"
)

// reloader owns the current bootstrap run and swaps it when the manifest
// changes.
type reloader struct {
	mu      sync.Mutex
	current *registry.Provisioned
	table   registry.Table

	load      func() (registry.Table, error)
	bootstrap func(context.Context, registry.Table) (*registry.Provisioned, error)
	// notifiers returns every advertised notifier at the time of an event.
	notifiers func() []services.Notifier
	logger    *logging.Logger
}

// start performs the initial bootstrap.
func (r *reloader) start(ctx context.Context) error {
	table, err := r.load()
	if err != nil {
		return err
	}
	p, err := r.bootstrap(ctx, table)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.current, r.table = p, table
	r.mu.Unlock()
	return nil
}

// reload tears down the current run and bootstraps the new table. A table
// that fails to load leaves the current run untouched; one that fails to
// bootstrap is replaced by the previous table again.
func (r *reloader) reload(ctx context.Context) error {
	table, err := r.load()
	if err != nil {
		r.logger.Warn(ctx, "manifest reload skipped", zap.Error(err))
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		if err := r.current.Close(); err != nil {
			r.logger.Warn(logging.WithBootstrapID(ctx, r.current.ID()), "releasing previous bootstrap", zap.Error(err))
		}
		r.current = nil
	}

	p, err := r.bootstrap(ctx, table)
	if err != nil {
		r.logger.Error(ctx, "manifest reload failed, restoring previous table", zap.Error(err))
		prev, restoreErr := r.bootstrap(ctx, r.table)
		if restoreErr != nil {
			return errors.Join(err, fmt.Errorf("restoring previous table: %w", restoreErr))
		}
		r.current = prev
		return err
	}
	r.current, r.table = p, table

	r.notify(ctx, "registry.reloaded", map[string]string{
		"bootstrap_id": p.ID(),
		"entries":      strconv.Itoa(p.Len()),
	})
	return nil
}

func (r *reloader) notify(ctx context.Context, event string, attrs map[string]string) {
	if r.notifiers == nil {
		return
	}
	for _, n := range r.notifiers() {
		if err := n.Notify(ctx, event, attrs); err != nil {
			r.logger.Warn(ctx, "notification failed", zap.String("event", event), zap.Error(err))
		}
	}
}

// stop releases the current run.
func (r *reloader) stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	err := r.current.Close()
	r.current = nil
	return err
}
