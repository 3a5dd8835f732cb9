package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type greeter interface {
	Greet(name string) string
}

type englishGreeter struct{ tag string }

func (g *englishGreeter) Greet(name string) string { return "hello " + name }

type pirateGreeter struct{ tag string }

func (g *pirateGreeter) Greet(name string) string { return "ahoy " + name }

type clock struct{ zone string }

// closer counts Close calls and appends its name to a shared log.
type closer struct {
	name   string
	closed int
	log    *[]string
	err    error
}

func (c *closer) Close() error {
	c.closed++
	if c.log != nil {
		*c.log = append(*c.log, c.name)
	}
	return c.err
}

type recordingObserver struct {
	mu           sync.Mutex
	registered   []EntryInfo
	unregistered []EntryInfo
	rejected     []error
	hits, misses int
}

func (o *recordingObserver) Registered(info EntryInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.registered = append(o.registered, info)
}

func (o *recordingObserver) Unregistered(info EntryInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.unregistered = append(o.unregistered, info)
}

func (o *recordingObserver) Rejected(_ Key, _ Mode, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected = append(o.rejected, err)
}

func (o *recordingObserver) Resolved(_ Key, found bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if found {
		o.hits++
	} else {
		o.misses++
	}
}

const greeterKey Key = "greeter"

func TestRegistry_RegisterPrimary(t *testing.T) {
	r := New()
	b := &englishGreeter{tag: "b"}

	require.NoError(t, r.RegisterPrimary(greeterKey, b))

	got, ok := r.FindPrimary(greeterKey)
	require.True(t, ok)
	assert.Same(t, b, got)

	got, ok = r.FindAny(greeterKey)
	require.True(t, ok)
	assert.Same(t, b, got)

	assert.Equal(t, []any{b}, r.FindAll(greeterKey))
}

func TestRegistry_DuplicatePrimary(t *testing.T) {
	r := New()
	b := &englishGreeter{tag: "b"}
	c := &pirateGreeter{tag: "c"}
	require.NoError(t, r.RegisterPrimary(greeterKey, b))

	err := r.RegisterPrimary(greeterKey, c)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicatePrimary)

	var dup *DuplicatePrimaryError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, greeterKey, dup.Key)
	assert.Equal(t, "*registry.englishGreeter", dup.Existing.Type)

	got, ok := r.FindPrimary(greeterKey)
	require.True(t, ok)
	assert.Same(t, b, got)
	assert.Equal(t, 1, r.Len(greeterKey), "failed registration must not touch the multi list")
}

func TestRegistry_MultiOrder(t *testing.T) {
	r := New()
	var want []any
	for i := 0; i < 5; i++ {
		g := &englishGreeter{tag: fmt.Sprint(i)}
		want = append(want, g)
		require.NoError(t, r.RegisterMulti(greeterKey, g))
	}

	assert.Equal(t, want, r.FindAll(greeterKey))

	_, ok := r.FindPrimary(greeterKey)
	assert.False(t, ok)

	got, ok := r.FindAny(greeterKey)
	require.True(t, ok)
	assert.Same(t, want[0], got)
}

func TestRegistry_MultiAllowsDuplicates(t *testing.T) {
	r := New()
	g := &englishGreeter{tag: "dup"}
	require.NoError(t, r.RegisterMulti(greeterKey, g))
	require.NoError(t, r.RegisterMulti(greeterKey, g))
	assert.Equal(t, 2, r.Len(greeterKey))

	r.UnregisterMulti(greeterKey, g)
	assert.Equal(t, []any{g}, r.FindAll(greeterKey))
}

func TestRegistry_Scenarios(t *testing.T) {
	r := New()
	a := &englishGreeter{tag: "a"}
	b := &pirateGreeter{tag: "b"}
	c := &englishGreeter{tag: "c"}

	// Shared A, then exclusive B.
	scopeA, err := NewScope(r, a, Bind(greeterKey, Shared))
	require.NoError(t, err)
	scopeB, err := NewScope(r, b, Bind(greeterKey, Exclusive))
	require.NoError(t, err)

	got, ok := r.FindAny(greeterKey)
	require.True(t, ok)
	assert.Same(t, b, got)
	assert.Equal(t, []any{a, b}, r.FindAll(greeterKey))

	// A second primary is rejected.
	_, err = NewScope(r, c, Bind(greeterKey, Exclusive))
	assert.ErrorIs(t, err, ErrDuplicatePrimary)
	got, ok = r.FindPrimary(greeterKey)
	require.True(t, ok)
	assert.Same(t, b, got)

	// Dropping B falls back to A.
	require.NoError(t, scopeB.Close())
	_, ok = r.FindPrimary(greeterKey)
	assert.False(t, ok)
	got, ok = r.FindAny(greeterKey)
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, []any{a}, r.FindAll(greeterKey))

	// A handle taken before A goes away expires lazily.
	h := Resolve[greeter](r, greeterKey)
	require.True(t, h.IsLive())
	require.NoError(t, scopeA.Close())
	assert.Empty(t, r.FindAll(greeterKey))
	assert.False(t, h.IsLive())

	// Nothing was ever registered under this key.
	empty := Resolve[greeter](r, "never-registered")
	assert.False(t, empty.IsLive())
}

func TestRegistry_UnregisterPrimary(t *testing.T) {
	a := &englishGreeter{tag: "a"}
	b := &englishGreeter{tag: "b"}

	t.Run("matching instance", func(t *testing.T) {
		r := New()
		require.NoError(t, r.RegisterMulti(greeterKey, a))
		require.NoError(t, r.RegisterPrimary(greeterKey, b))

		r.UnregisterPrimary(greeterKey, b)

		_, ok := r.FindPrimary(greeterKey)
		assert.False(t, ok)
		assert.Equal(t, []any{a}, r.FindAll(greeterKey))
	})

	t.Run("other instance is a no-op", func(t *testing.T) {
		r := New()
		require.NoError(t, r.RegisterMulti(greeterKey, a))
		require.NoError(t, r.RegisterPrimary(greeterKey, b))

		r.UnregisterPrimary(greeterKey, a)

		got, ok := r.FindPrimary(greeterKey)
		require.True(t, ok)
		assert.Same(t, b, got)
		assert.Equal(t, []any{a, b}, r.FindAll(greeterKey))
	})

	t.Run("absent primary is a no-op", func(t *testing.T) {
		r := New()
		require.NoError(t, r.RegisterMulti(greeterKey, a))
		r.UnregisterPrimary(greeterKey, a)
		assert.Equal(t, []any{a}, r.FindAll(greeterKey))
	})
}

func TestRegistry_UnregisterMulti(t *testing.T) {
	a := &englishGreeter{tag: "a"}
	b := &englishGreeter{tag: "b"}
	stranger := &englishGreeter{tag: "stranger"}

	t.Run("unknown instance is a no-op", func(t *testing.T) {
		r := New()
		require.NoError(t, r.RegisterMulti(greeterKey, a))
		require.NoError(t, r.RegisterMulti(greeterKey, b))

		r.UnregisterMulti(greeterKey, stranger)
		r.UnregisterMulti("other", a)

		assert.Equal(t, []any{a, b}, r.FindAll(greeterKey))
	})

	t.Run("value equal but distinct instance is not removed", func(t *testing.T) {
		r := New()
		require.NoError(t, r.RegisterMulti(greeterKey, a))
		r.UnregisterMulti(greeterKey, &englishGreeter{tag: "a"})
		assert.Equal(t, 1, r.Len(greeterKey))
	})

	t.Run("removing the primary entry clears the primary", func(t *testing.T) {
		r := New()
		require.NoError(t, r.RegisterMulti(greeterKey, a))
		require.NoError(t, r.RegisterPrimary(greeterKey, b))

		r.UnregisterMulti(greeterKey, b)

		_, ok := r.FindPrimary(greeterKey)
		assert.False(t, ok)
		assert.Equal(t, []any{a}, r.FindAll(greeterKey))
		require.NoError(t, r.RegisterPrimary(greeterKey, b), "primary slot must be free again")
	})

	t.Run("last entry removes the key", func(t *testing.T) {
		r := New()
		require.NoError(t, r.RegisterMulti(greeterKey, a))
		r.UnregisterMulti(greeterKey, a)
		assert.Empty(t, r.Keys())
	})
}

func TestRegistry_UnknownKeyLookups(t *testing.T) {
	r := New()

	_, ok := r.FindPrimary(greeterKey)
	assert.False(t, ok)
	_, ok = r.FindAny(greeterKey)
	assert.False(t, ok)
	assert.Empty(t, r.FindAll(greeterKey))
	assert.Zero(t, r.Len(greeterKey))
	assert.Empty(t, r.Describe(greeterKey))
}

func TestRegistry_InvalidInput(t *testing.T) {
	var nilGreeter *englishGreeter

	tests := []struct {
		name     string
		key      Key
		instance any
		want     error
	}{
		{name: "empty key", key: "", instance: &englishGreeter{}, want: ErrInvalidKey},
		{name: "uppercase key", key: "Greeter", instance: &englishGreeter{}, want: ErrInvalidKey},
		{name: "nil instance", key: greeterKey, instance: nil, want: ErrInvalidInstance},
		{name: "typed nil pointer", key: greeterKey, instance: nilGreeter, want: ErrInvalidInstance},
		{name: "slice", key: greeterKey, instance: []int{1}, want: ErrInvalidInstance},
		{name: "func", key: greeterKey, instance: func() {}, want: ErrInvalidInstance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			assert.ErrorIs(t, r.RegisterMulti(tt.key, tt.instance), tt.want)
			assert.ErrorIs(t, r.RegisterPrimary(tt.key, tt.instance), tt.want)
			assert.Empty(t, r.Keys())
		})
	}
}

func TestRegistry_PrimaryOnlyResolution(t *testing.T) {
	r := New(WithResolution(ResolvePrimaryOnly))
	a := &englishGreeter{tag: "a"}
	b := &englishGreeter{tag: "b"}
	require.NoError(t, r.RegisterMulti(greeterKey, a))

	_, ok := r.FindAny(greeterKey)
	assert.False(t, ok, "shared entries are not resolved without a primary")
	assert.Equal(t, []any{a}, r.FindAll(greeterKey))

	require.NoError(t, r.RegisterPrimary(greeterKey, b))
	got, ok := r.FindAny(greeterKey)
	require.True(t, ok)
	assert.Same(t, b, got)

	assert.Equal(t, ResolvePrimaryOnly, r.Resolution())
}

func TestRegistry_SnapshotAndKeys(t *testing.T) {
	r := New()
	a := &englishGreeter{tag: "a"}
	b := &englishGreeter{tag: "b"}
	c := &clock{zone: "utc"}

	require.NoError(t, r.RegisterMulti(greeterKey, a))
	require.NoError(t, r.RegisterMulti("clock", c))
	require.NoError(t, r.RegisterPrimary(greeterKey, b))

	assert.Equal(t, []Key{"clock", "greeter"}, r.Keys())

	snap := r.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, Key("clock"), snap[0].Key)
	assert.Equal(t, Key("greeter"), snap[1].Key)
	assert.False(t, snap[1].Primary)
	assert.Equal(t, Shared, snap[1].Mode)
	assert.True(t, snap[2].Primary)
	assert.Equal(t, Exclusive, snap[2].Mode)
	assert.Equal(t, Borrowed, snap[2].Ownership)
	assert.NotEmpty(t, snap[2].ID)

	desc := r.Describe(greeterKey)
	require.Len(t, desc, 2)
	assert.Equal(t, snap[1:], desc)
}

func TestRegistry_Close(t *testing.T) {
	var log []string
	first := &closer{name: "first", log: &log}
	second := &closer{name: "second", log: &log}
	borrowed := &englishGreeter{tag: "borrowed"}

	r := New()
	_, err := r.register("store", first, Shared, Owned, "first")
	require.NoError(t, err)
	scope, err := NewScope(r, borrowed, Bind(greeterKey, Exclusive))
	require.NoError(t, err)
	_, err = r.register("store", second, Shared, Owned, "second")
	require.NoError(t, err)

	require.NoError(t, r.Close())

	assert.Equal(t, []string{"second", "first"}, log)
	assert.Empty(t, r.Keys())
	assert.False(t, scope.Live())
	require.NoError(t, scope.Close(), "closing a scope after the registry is a no-op")
	require.NoError(t, r.Close())
	assert.Equal(t, 1, first.closed)
}

func TestRegistry_CloseJoinsReleaseErrors(t *testing.T) {
	boom := errors.New("boom")
	c := &closer{name: "failing", err: boom}

	r := New()
	_, err := r.register("store", c, Shared, Owned, "failing")
	require.NoError(t, err)

	err = r.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestRegistry_OwnedReleasedOnceAcrossKeys(t *testing.T) {
	c := &closer{name: "multi"}
	r := New()
	_, err := r.register("store", c, Shared, Owned, "a")
	require.NoError(t, err)
	_, err = r.register("cache", c, Exclusive, Owned, "b")
	require.NoError(t, err)

	r.UnregisterMulti("store", c)
	assert.Zero(t, c.closed, "still held under another key")

	r.UnregisterPrimary("cache", c)
	assert.Equal(t, 1, c.closed)
}

func TestRegistry_BorrowedNeverClosed(t *testing.T) {
	c := &closer{name: "borrowed"}
	r := New()
	require.NoError(t, r.RegisterMulti("store", c))
	r.UnregisterMulti("store", c)
	assert.Zero(t, c.closed)
}

func TestRegistry_OwnershipConflict(t *testing.T) {
	c := &closer{name: "contested"}
	r := New()
	require.NoError(t, r.RegisterMulti("store", c))

	_, err := r.register("cache", c, Shared, Owned, "contested")
	assert.ErrorIs(t, err, ErrOwnershipConflict)
	assert.Equal(t, 1, len(r.Snapshot()))
}

func TestRegistry_Observer(t *testing.T) {
	obs := &recordingObserver{}
	r := New(WithObserver(obs))
	a := &englishGreeter{tag: "a"}
	b := &englishGreeter{tag: "b"}

	require.NoError(t, r.RegisterPrimary(greeterKey, a))
	require.Error(t, r.RegisterPrimary(greeterKey, b))
	_, _ = r.FindAny(greeterKey)
	_, _ = r.FindPrimary("missing")
	r.UnregisterPrimary(greeterKey, a)

	require.Len(t, obs.registered, 1)
	assert.True(t, obs.registered[0].Primary)
	require.Len(t, obs.unregistered, 1)
	assert.True(t, obs.unregistered[0].Primary)
	require.Len(t, obs.rejected, 1)
	assert.ErrorIs(t, obs.rejected[0], ErrDuplicatePrimary)
	assert.Equal(t, 1, obs.hits)
	assert.Equal(t, 1, obs.misses)
}

func TestRegistry_Logging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := New(WithLogger(zap.New(core)))

	require.NoError(t, r.RegisterPrimary(greeterKey, &englishGreeter{tag: "a"}))
	require.Error(t, r.RegisterPrimary(greeterKey, &englishGreeter{tag: "b"}))

	registered := logs.FilterMessage("capability registered").All()
	require.Len(t, registered, 1)
	assert.Equal(t, "greeter", registered[0].ContextMap()["capability"])
	assert.Equal(t, "exclusive", registered[0].ContextMap()["mode"])

	warned := logs.FilterMessage("duplicate primary registration rejected").All()
	require.Len(t, warned, 1)
	assert.Equal(t, zapcore.WarnLevel, warned[0].Level)
}

func TestRegistry_LookupsLogAtTraceLevel(t *testing.T) {
	core, logs := observer.New(zapcore.Level(-2))
	r := New(WithLogger(zap.New(core)))
	require.NoError(t, r.RegisterMulti(greeterKey, &englishGreeter{tag: "a"}))

	_, _ = r.FindAny(greeterKey)
	_, _ = r.FindPrimary("missing")

	resolved := logs.FilterMessage("capability resolved").All()
	require.Len(t, resolved, 2)
	assert.Equal(t, zapcore.Level(-2), resolved[0].Level)
	assert.Equal(t, true, resolved[0].ContextMap()["found"])
	assert.Equal(t, false, resolved[1].ContextMap()["found"])

	debugCore, debugLogs := observer.New(zapcore.DebugLevel)
	quiet := New(WithLogger(zap.New(debugCore)))
	_, _ = quiet.FindAny(greeterKey)
	assert.Zero(t, debugLogs.FilterMessage("capability resolved").Len())
}

func TestRegistry_UnregisterMultiComparesValues(t *testing.T) {
	const colorKey Key = "color"
	r := New()
	require.NoError(t, r.RegisterMulti(colorKey, "blue"))
	require.NoError(t, r.RegisterMulti(colorKey, "blue"))
	require.NoError(t, r.RegisterMulti(colorKey, "green"))

	r.UnregisterMulti(colorKey, "blue")
	assert.Equal(t, []any{"blue", "green"}, r.FindAll(colorKey))
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				g := &englishGreeter{tag: fmt.Sprintf("%d-%d", i, j)}
				scope, err := NewScope(r, g, Bind(greeterKey, Shared))
				if !assert.NoError(t, err) {
					return
				}
				_, _ = r.FindAny(greeterKey)
				_ = r.FindAll(greeterKey)
				h := Resolve[greeter](r, greeterKey)
				_ = h.IsLive()
				_ = scope.Close()
			}
		}(i)
	}
	wg.Wait()
	assert.Empty(t, r.Keys())
}
