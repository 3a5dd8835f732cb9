package registry

import (
	"errors"
	"sync"
)

// Binding pairs a key with the mode an instance is registered under.
type Binding struct {
	Key  Key
	Mode Mode
}

// Bind returns a binding for key in mode.
func Bind(key Key, mode Mode) Binding {
	return Binding{Key: key, Mode: mode}
}

// Scope keeps an instance registered for exactly as long as the scope is
// open. The registry only observes the instance; whoever owns it must call
// Close before releasing it.
type Scope struct {
	reg      *Registry
	instance any
	bindings []Binding
	entries  []*entry

	once sync.Once
}

// NewScope registers instance under every binding, in order. If any
// registration fails the earlier ones are undone and the error returned, so
// a failed scope leaves nothing behind.
func NewScope(r *Registry, instance any, bindings ...Binding) (*Scope, error) {
	if len(bindings) == 0 {
		return nil, errors.New("registry: scope needs at least one binding")
	}

	s := &Scope{
		reg:      r,
		instance: instance,
		bindings: append([]Binding(nil), bindings...),
		entries:  make([]*entry, 0, len(bindings)),
	}
	for _, b := range bindings {
		e, err := r.register(b.Key, instance, b.Mode, Borrowed, "")
		if err != nil {
			s.unwind()
			return nil, err
		}
		s.entries = append(s.entries, e)
	}
	return s, nil
}

// Close unregisters every binding. It is idempotent and tolerates entries
// already removed by other means. The error is always nil.
func (s *Scope) Close() error {
	s.once.Do(s.unwind)
	return nil
}

// Instance returns the scoped instance.
func (s *Scope) Instance() any { return s.instance }

// Bindings returns the keys and modes the instance is registered under.
func (s *Scope) Bindings() []Binding {
	return append([]Binding(nil), s.bindings...)
}

// Live reports whether every binding is still registered.
func (s *Scope) Live() bool {
	if len(s.entries) == 0 {
		return false
	}
	for _, e := range s.entries {
		if !e.live() {
			return false
		}
	}
	return true
}

// unwind removes registrations newest first. Borrowed entries never hold
// a closer, so release errors cannot occur here.
func (s *Scope) unwind() {
	for i := len(s.entries) - 1; i >= 0; i-- {
		_ = s.reg.unregisterEntry(s.entries[i])
	}
}
