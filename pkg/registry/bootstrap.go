package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Factory creates the instance for one declaration. The registry owns what
// it returns; if the instance implements io.Closer it is closed when the
// registration is removed.
type Factory func(ctx context.Context) (any, error)

// Declaration is one row of a bootstrap table.
type Declaration struct {
	Key     Key
	Name    string // implementation name, unique within a table
	Mode    Mode
	Factory Factory
	Doc     string
}

// Table is an ordered list of declarations. Bootstrap registers them in
// slice order, so the first Shared declaration for a key is what FindAny
// falls back to.
type Table []Declaration

// Validate checks every declaration before anything is constructed.
func (t Table) Validate() error {
	seen := make(map[string]struct{}, len(t))
	for i, d := range t {
		if err := d.Key.validate(); err != nil {
			return fmt.Errorf("declaration %d: %w", i, err)
		}
		if d.Name == "" {
			return fmt.Errorf("declaration %d (%s): name is required", i, d.Key)
		}
		if d.Factory == nil {
			return fmt.Errorf("declaration %q: factory is required", d.Name)
		}
		if d.Mode != Shared && d.Mode != Exclusive {
			return fmt.Errorf("declaration %q: invalid mode %s", d.Name, d.Mode)
		}
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("declaration %q: duplicate name", d.Name)
		}
		seen[d.Name] = struct{}{}
	}
	return nil
}

// Provisioned is the set of registrations made by one Bootstrap run.
type Provisioned struct {
	reg     *Registry
	id      string
	entries []*entry

	once sync.Once
	err  error
}

// ID identifies the bootstrap run.
func (p *Provisioned) ID() string { return p.id }

// Len returns the number of registrations made.
func (p *Provisioned) Len() int { return len(p.entries) }

// Entries describes the registrations made, in bootstrap order.
func (p *Provisioned) Entries() []EntryInfo {
	out := make([]EntryInfo, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e.info(e.mode == Exclusive))
	}
	return out
}

// Close unregisters everything newest first and releases the owned
// instances. Release errors are joined. Close is idempotent.
func (p *Provisioned) Close() error {
	p.once.Do(func() {
		var errs []error
		for i := len(p.entries) - 1; i >= 0; i-- {
			if err := p.reg.unregisterEntry(p.entries[i]); err != nil {
				errs = append(errs, err)
			}
		}
		p.err = errors.Join(errs...)
	})
	return p.err
}

// Bootstrap runs table in order: each factory is called and its instance
// registered as owned by the registry. On the first failure everything
// registered so far is undone and the error returned.
func (r *Registry) Bootstrap(ctx context.Context, table Table) (*Provisioned, error) {
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bootstrap table: %w", err)
	}

	p := &Provisioned{reg: r, id: uuid.NewString()}

	ctx, span := r.opt.tracer.Start(ctx, "registry.Bootstrap",
		trace.WithAttributes(
			attribute.String("bootstrap.id", p.id),
			attribute.Int("bootstrap.declarations", len(table)),
		),
	)
	defer span.End()

	for i, d := range table {
		e, err := r.provide(ctx, d)
		if err != nil {
			err = fmt.Errorf("bootstrap %q (%d/%d): %w", d.Name, i+1, len(table), err)
			if cerr := p.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("rollback: %w", cerr))
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "bootstrap failed")
			r.opt.logger.Error("bootstrap failed",
				zap.String("bootstrap_id", p.id),
				zap.String("declaration", d.Name),
				zap.Error(err),
			)
			return nil, err
		}
		p.entries = append(p.entries, e)
	}

	r.opt.logger.Info("bootstrap complete",
		zap.String("bootstrap_id", p.id),
		zap.Int("registrations", len(p.entries)),
	)
	return p, nil
}

// provide constructs and registers one declaration.
func (r *Registry) provide(ctx context.Context, d Declaration) (*entry, error) {
	ctx, span := r.opt.tracer.Start(ctx, "registry.Provide",
		trace.WithAttributes(
			attribute.String("capability", string(d.Key)),
			attribute.String("implementation", d.Name),
			attribute.String("mode", d.Mode.String()),
		),
	)
	defer span.End()

	inst, err := d.Factory(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "factory failed")
		return nil, fmt.Errorf("factory: %w", err)
	}

	e, err := r.register(d.Key, inst, d.Mode, Owned, d.Name)
	if err != nil {
		// Nothing else references the instance, so it is ours to release.
		if inst != nil && hashable(inst) && !r.stillHeld(inst) {
			if c, ok := inst.(io.Closer); ok {
				if cerr := c.Close(); cerr != nil {
					err = errors.Join(err, fmt.Errorf("release: %w", cerr))
				}
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "registration failed")
		return nil, err
	}

	span.SetAttributes(attribute.String("entry.id", e.id.String()))
	return e, nil
}
