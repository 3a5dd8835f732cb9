package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle_Empty(t *testing.T) {
	h := Resolve[greeter](New(), greeterKey)

	assert.False(t, h.IsLive())
	assert.Equal(t, greeterKey, h.Key())

	_, err := h.Get()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExpiredReference)
	assert.Contains(t, err.Error(), "greeter")

	_, ok := h.Info()
	assert.False(t, ok)
	assert.Panics(t, func() { h.MustGet() })
}

func TestHandle_ResolvesPrimaryFirst(t *testing.T) {
	r := New()
	a := &englishGreeter{tag: "a"}
	b := &pirateGreeter{tag: "b"}
	require.NoError(t, r.RegisterMulti(greeterKey, a))
	require.NoError(t, r.RegisterPrimary(greeterKey, b))

	h := Resolve[greeter](r, greeterKey)
	require.True(t, h.IsLive())

	g, err := h.Get()
	require.NoError(t, err)
	assert.Equal(t, "ahoy jim", g.Greet("jim"))

	info, ok := h.Info()
	require.True(t, ok)
	assert.True(t, info.Primary)
	assert.Equal(t, "*registry.pirateGreeter", info.Type)
}

func TestHandle_ExpiresOnUnregister(t *testing.T) {
	r := New()
	g := &englishGreeter{tag: "g"}
	s, err := NewScope(r, g, Bind(greeterKey, Shared))
	require.NoError(t, err)

	h := Resolve[*englishGreeter](r, greeterKey)
	require.True(t, h.IsLive())
	assert.Same(t, g, h.MustGet())

	require.NoError(t, s.Close())

	assert.False(t, h.IsLive())
	_, err = h.Get()
	assert.ErrorIs(t, err, ErrExpiredReference)
}

func TestHandle_DoesNotFollowUntilRefresh(t *testing.T) {
	r := New()
	a := &englishGreeter{tag: "a"}
	b := &englishGreeter{tag: "b"}

	sa, err := NewScope(r, a, Bind(greeterKey, Shared))
	require.NoError(t, err)

	h := Resolve[*englishGreeter](r, greeterKey)
	require.Same(t, a, h.MustGet())

	sb, err := NewScope(r, b, Bind(greeterKey, Exclusive))
	require.NoError(t, err)
	defer sb.Close()

	assert.Same(t, a, h.MustGet(), "handle keeps its last resolution")

	require.True(t, h.Refresh())
	assert.Same(t, b, h.MustGet())

	require.NoError(t, sa.Close())
	assert.True(t, h.IsLive(), "removing a different entry does not expire the handle")
}

func TestHandle_RefreshAfterExpiry(t *testing.T) {
	r := New()
	a := &englishGreeter{tag: "a"}
	b := &englishGreeter{tag: "b"}

	sa, err := NewScope(r, a, Bind(greeterKey, Shared))
	require.NoError(t, err)
	h := Resolve[greeter](r, greeterKey)
	require.NoError(t, sa.Close())
	require.False(t, h.IsLive())

	assert.False(t, h.Refresh(), "nothing to resolve")

	sb, err := NewScope(r, b, Bind(greeterKey, Shared))
	require.NoError(t, err)
	defer sb.Close()

	assert.True(t, h.Refresh())
	got, err := h.Get()
	require.NoError(t, err)
	assert.Same(t, b, got)
}

func TestHandle_NarrowingMismatch(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterPrimary(greeterKey, &pirateGreeter{tag: "p"}))
	require.NoError(t, r.RegisterMulti(greeterKey, &englishGreeter{tag: "e"}))

	h := Resolve[*englishGreeter](r, greeterKey)
	assert.False(t, h.IsLive(), "primary is not the requested type and there is no fallback past it")

	_, err := h.Get()
	assert.ErrorIs(t, err, ErrExpiredReference)
}

func TestHandle_FallbackSkipsOtherTypes(t *testing.T) {
	r := New()
	en := &englishGreeter{tag: "en"}
	pi := &pirateGreeter{tag: "pi"}
	require.NoError(t, r.RegisterMulti(greeterKey, greeter(en)))
	require.NoError(t, r.RegisterMulti(greeterKey, greeter(pi)))

	h := Resolve[*pirateGreeter](r, greeterKey)
	require.True(t, h.IsLive())
	assert.Same(t, pi, h.MustGet())

	r.UnregisterMulti(greeterKey, pi)
	assert.False(t, h.IsLive())
	assert.False(t, h.Refresh())

	require.NoError(t, r.RegisterPrimary(greeterKey, &pirateGreeter{tag: "primary"}))
	assert.True(t, Resolve[*pirateGreeter](r, greeterKey).IsLive())
	assert.False(t, Resolve[*englishGreeter](r, greeterKey).IsLive(), "a primary of another type is not skipped")
}

func TestTypedLookups(t *testing.T) {
	r := New()
	en := &englishGreeter{tag: "en"}
	pi := &pirateGreeter{tag: "pi"}
	require.NoError(t, r.RegisterMulti(greeterKey, en))
	require.NoError(t, r.RegisterMulti(greeterKey, pi))
	require.NoError(t, r.RegisterMulti(greeterKey, &clock{zone: "utc"}))

	t.Run("All filters by type", func(t *testing.T) {
		assert.Len(t, All[greeter](r, greeterKey), 2)
		assert.Equal(t, []*pirateGreeter{pi}, All[*pirateGreeter](r, greeterKey))
		assert.Empty(t, All[*englishGreeter](r, "missing"))
	})

	t.Run("Any narrows the fallback entry", func(t *testing.T) {
		g, ok := Any[*englishGreeter](r, greeterKey)
		require.True(t, ok)
		assert.Same(t, en, g)

		p, ok := Any[*pirateGreeter](r, greeterKey)
		require.True(t, ok, "falls back past entries of another type")
		assert.Same(t, pi, p)

		_, ok = Any[*testing.T](r, greeterKey)
		assert.False(t, ok)
	})

	t.Run("Primary without a primary", func(t *testing.T) {
		_, ok := Primary[greeter](r, greeterKey)
		assert.False(t, ok)
	})
}
