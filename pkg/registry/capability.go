package registry

// Capability binds a Key to the Go type its implementations satisfy.
// Declare each capability once and share the value between providers and
// consumers.
type Capability[T any] struct {
	key Key
}

// Declare returns the capability for name. It panics if name is not a
// valid key, so declarations fail at program start.
func Declare[T any](name string) Capability[T] {
	return Capability[T]{key: MustKey(name)}
}

// Key returns the capability key.
func (c Capability[T]) Key() Key { return c.key }

// String returns the capability key.
func (c Capability[T]) String() string { return c.key.String() }

// Provide registers impl for the lifetime of the returned scope.
func (c Capability[T]) Provide(r *Registry, impl T, mode Mode) (*Scope, error) {
	return NewScope(r, impl, Bind(c.key, mode))
}

// Resolve returns a handle to the best implementation currently registered.
func (c Capability[T]) Resolve(r *Registry) *Handle[T] {
	return Resolve[T](r, c.key)
}

// Primary returns the primary implementation.
func (c Capability[T]) Primary(r *Registry) (T, bool) {
	return Primary[T](r, c.key)
}

// All returns every implementation in registration order.
func (c Capability[T]) All(r *Registry) []T {
	return All[T](r, c.key)
}

// Primary returns the primary instance for key narrowed to T. A registered
// instance that is not a T yields false.
func Primary[T any](r *Registry, key Key) (T, bool) {
	v, ok := r.FindPrimary(key)
	return narrow[T](v, ok)
}

// Any returns the primary for key narrowed to T or, without a primary and
// under the fallback policy, the first instance that is a T.
func Any[T any](r *Registry, key Key) (T, bool) {
	v, ok := r.resolved(key, r.lookupMatch(key, isA[T]))
	return narrow[T](v, ok)
}

// All returns the instances under key that are a T, in registration order.
func All[T any](r *Registry, key Key) []T {
	found := r.FindAll(key)
	out := make([]T, 0, len(found))
	for _, v := range found {
		if t, ok := v.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

func isA[T any](v any) bool {
	_, ok := v.(T)
	return ok
}

func narrow[T any](v any, ok bool) (T, bool) {
	var zero T
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
