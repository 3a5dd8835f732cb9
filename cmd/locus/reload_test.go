package main

import (
	"context"
	"errors"
	"testing"

	"github.com/fyrsmithlabs/locus/internal/logging"
	"github.com/fyrsmithlabs/locus/internal/services"
	"github.com/fyrsmithlabs/locus/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) Notify(_ context.Context, event string, _ map[string]string) error {
	n.events = append(n.events, event)
	return nil
}

func greeterTable(t *testing.T, names ...string) registry.Table {
	t.Helper()
	catalog := services.NewCatalog()
	var table registry.Table
	for i, name := range names {
		mode := registry.Shared
		if i == 0 {
			mode = registry.Exclusive
		}
		d, err := catalog.Declaration(services.GreeterCapability.Key(), name, mode)
		require.NoError(t, err)
		table = append(table, d)
	}
	return table
}

func newTestReloader(t *testing.T, reg *registry.Registry, tables ...registry.Table) (*reloader, *recordingNotifier, *error) {
	t.Helper()
	var loadErr error
	next := 0
	n := &recordingNotifier{}
	r := &reloader{
		load: func() (registry.Table, error) {
			if loadErr != nil {
				return nil, loadErr
			}
			tbl := tables[next]
			if next < len(tables)-1 {
				next++
			}
			return tbl, nil
		},
		bootstrap: reg.Bootstrap,
		notifiers: func() []services.Notifier { return []services.Notifier{n} },
		logger:    logging.NewNop(),
	}
	return r, n, &loadErr
}

func primaryName(t *testing.T, reg *registry.Registry) string {
	t.Helper()
	info, ok := registry.Resolve[services.Greeter](reg, services.GreeterCapability.Key()).Info()
	require.True(t, ok)
	return info.Name
}

func TestReloader_SwapsTable(t *testing.T) {
	reg := registry.New()
	r, n, _ := newTestReloader(t, reg,
		greeterTable(t, "english", "pirate"),
		greeterTable(t, "formal"),
	)
	ctx := context.Background()

	require.NoError(t, r.start(ctx))
	assert.Equal(t, "greeter.english", primaryName(t, reg))
	assert.Equal(t, 2, reg.Len(services.GreeterCapability.Key()))

	require.NoError(t, r.reload(ctx))
	assert.Equal(t, "greeter.formal", primaryName(t, reg))
	assert.Equal(t, 1, reg.Len(services.GreeterCapability.Key()))
	assert.Equal(t, []string{"registry.reloaded"}, n.events)

	require.NoError(t, r.stop())
	assert.Zero(t, reg.Len(services.GreeterCapability.Key()))
	require.NoError(t, r.stop())
}

func TestReloader_LoadErrorKeepsCurrent(t *testing.T) {
	reg := registry.New()
	r, n, loadErr := newTestReloader(t, reg, greeterTable(t, "pirate"))
	ctx := context.Background()
	require.NoError(t, r.start(ctx))

	*loadErr = errors.New("manifest: unreadable")
	require.Error(t, r.reload(ctx))

	assert.Equal(t, "greeter.pirate", primaryName(t, reg))
	assert.Empty(t, n.events)
}

func TestReloader_BootstrapErrorRestoresPrevious(t *testing.T) {
	reg := registry.New()
	r, n, _ := newTestReloader(t, reg,
		greeterTable(t, "english"),
		greeterTable(t, "formal"),
	)
	ctx := context.Background()
	require.NoError(t, r.start(ctx))

	bootstrap := r.bootstrap
	r.bootstrap = func(ctx context.Context, table registry.Table) (*registry.Provisioned, error) {
		if len(table) == 1 && table[0].Name == "greeter.formal" {
			return nil, errors.New("formal unavailable")
		}
		return bootstrap(ctx, table)
	}

	err := r.reload(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "formal unavailable")

	assert.Equal(t, "greeter.english", primaryName(t, reg))
	assert.Empty(t, n.events)
}
