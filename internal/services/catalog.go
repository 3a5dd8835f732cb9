package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/fyrsmithlabs/locus/pkg/registry"
)

// ErrUnknownImplementation indicates a catalog lookup miss.
var ErrUnknownImplementation = errors.New("unknown implementation")

// Implementation is one constructible implementation of a capability.
type Implementation struct {
	Capability registry.Key
	Name       string
	Doc        string
	New        registry.Factory
}

// QualifiedName is "capability.name", unique across the catalog.
func (i Implementation) QualifiedName() string {
	return i.Capability.String() + "." + i.Name
}

// Catalog indexes implementations by capability and name.
type Catalog struct {
	impls map[string]Implementation
}

// NewCatalog returns a catalog holding the built-in implementations.
func NewCatalog() *Catalog {
	c := &Catalog{impls: make(map[string]Implementation)}
	for _, impl := range builtins() {
		if err := c.Add(impl); err != nil {
			panic(err)
		}
	}
	return c
}

func builtins() []Implementation {
	return []Implementation{
		{
			Capability: GreeterCapability.Key(),
			Name:       "english",
			Doc:        "Plain English greeting",
			New:        func(context.Context) (any, error) { return Greeter(&EnglishGreeter{}), nil },
		},
		{
			Capability: GreeterCapability.Key(),
			Name:       "pirate",
			Doc:        "Pirate greeting",
			New:        func(context.Context) (any, error) { return Greeter(&PirateGreeter{}), nil },
		},
		{
			Capability: GreeterCapability.Key(),
			Name:       "formal",
			Doc:        "Formal greeting with a title",
			New:        func(context.Context) (any, error) { return Greeter(&FormalGreeter{}), nil },
		},
		{
			Capability: ClockCapability.Key(),
			Name:       "system",
			Doc:        "Local wall clock",
			New:        func(context.Context) (any, error) { return Clock(&SystemClock{}), nil },
		},
		{
			Capability: ClockCapability.Key(),
			Name:       "utc",
			Doc:        "UTC wall clock",
			New:        func(context.Context) (any, error) { return Clock(&UTCClock{}), nil },
		},
	}
}

// Add indexes impl. Capability, name and factory are required and the
// qualified name must be new.
func (c *Catalog) Add(impl Implementation) error {
	if impl.Capability.IsZero() || impl.Name == "" || impl.New == nil {
		return fmt.Errorf("catalog: implementation %q is incomplete", impl.QualifiedName())
	}
	qn := impl.QualifiedName()
	if _, dup := c.impls[qn]; dup {
		return fmt.Errorf("catalog: implementation %q already added", qn)
	}
	c.impls[qn] = impl
	return nil
}

// Lookup returns the implementation of capability called name.
func (c *Catalog) Lookup(capability registry.Key, name string) (Implementation, bool) {
	impl, ok := c.impls[capability.String()+"."+name]
	return impl, ok
}

// List returns every implementation sorted by qualified name.
func (c *Catalog) List() []Implementation {
	out := make([]Implementation, 0, len(c.impls))
	for _, impl := range c.impls {
		out = append(out, impl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QualifiedName() < out[j].QualifiedName() })
	return out
}

// Declaration builds a bootstrap declaration for one implementation.
func (c *Catalog) Declaration(capability registry.Key, name string, mode registry.Mode) (registry.Declaration, error) {
	impl, ok := c.Lookup(capability, name)
	if !ok {
		return registry.Declaration{}, fmt.Errorf("%w: %s.%s", ErrUnknownImplementation, capability, name)
	}
	return registry.Declaration{
		Key:     impl.Capability,
		Name:    impl.QualifiedName(),
		Mode:    mode,
		Factory: impl.New,
		Doc:     impl.Doc,
	}, nil
}

// DefaultTable is the built-in bootstrap order: English is the primary
// greeter with pirate and formal as alternatives, and the system clock is
// primary over UTC.
func (c *Catalog) DefaultTable() registry.Table {
	rows := []struct {
		capability registry.Key
		name       string
		mode       registry.Mode
	}{
		{GreeterCapability.Key(), "english", registry.Exclusive},
		{GreeterCapability.Key(), "pirate", registry.Shared},
		{GreeterCapability.Key(), "formal", registry.Shared},
		{ClockCapability.Key(), "system", registry.Exclusive},
		{ClockCapability.Key(), "utc", registry.Shared},
	}
	table := make(registry.Table, 0, len(rows))
	for _, row := range rows {
		d, err := c.Declaration(row.capability, row.name, row.mode)
		if err != nil {
			panic(err)
		}
		table = append(table, d)
	}
	return table
}
