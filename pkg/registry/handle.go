package registry

import (
	"fmt"
	"sync/atomic"
)

// Handle is a lazily resolved, non-owning reference to an implementation
// of a capability.
//
// A handle resolves once on construction and again only on Refresh. It
// never keeps an instance registered or reachable: once the resolved entry
// is unregistered, IsLive reports false and Get fails with
// ErrExpiredReference.
//
// Handles are safe for concurrent use.
type Handle[T any] struct {
	reg *Registry
	key Key
	cur atomic.Pointer[entry]
}

// Resolve looks up key with FindAny semantics and narrows the result to T.
// Without a primary, the first entry that is a T is chosen. The handle is
// empty when nothing matches or when the primary is not a T.
func Resolve[T any](r *Registry, key Key) *Handle[T] {
	h := &Handle[T]{reg: r, key: key}
	h.Refresh()
	return h
}

// Key returns the capability key the handle resolves.
func (h *Handle[T]) Key() Key { return h.key }

// Refresh repeats the lookup and reports whether the handle is now live.
func (h *Handle[T]) Refresh() bool {
	e := h.reg.lookupMatch(h.key, isA[T])
	inst, ok := h.reg.resolved(h.key, e)
	if ok {
		if _, isT := inst.(T); !isT {
			ok = false
		}
	}
	if !ok {
		h.cur.Store(nil)
		return false
	}
	h.cur.Store(e)
	return true
}

// IsLive reports whether the resolved instance is still registered.
func (h *Handle[T]) IsLive() bool {
	e := h.cur.Load()
	return e != nil && e.live()
}

// Get returns the resolved instance, or ErrExpiredReference if the handle
// is empty or its instance has been unregistered.
func (h *Handle[T]) Get() (T, error) {
	var zero T
	e := h.cur.Load()
	if e == nil {
		return zero, fmt.Errorf("%w: capability %s is not resolved", ErrExpiredReference, h.key)
	}
	inst, ok := e.load()
	if !ok {
		return zero, fmt.Errorf("%w: capability %s entry %s was unregistered", ErrExpiredReference, h.key, e.id)
	}
	t, ok := inst.(T)
	if !ok {
		return zero, fmt.Errorf("%w: capability %s resolved to %T", ErrExpiredReference, h.key, inst)
	}
	return t, nil
}

// MustGet is Get for callers that treat an expired handle as a programming
// error. It panics with the Get error.
func (h *Handle[T]) MustGet() T {
	t, err := h.Get()
	if err != nil {
		panic(err)
	}
	return t
}

// Info describes the resolved entry while it is live.
func (h *Handle[T]) Info() (EntryInfo, bool) {
	e := h.cur.Load()
	if e == nil || !e.live() {
		return EntryInfo{}, false
	}
	h.reg.mu.RLock()
	primary := h.reg.primary[e.key] == e
	h.reg.mu.RUnlock()
	return e.info(primary), true
}
