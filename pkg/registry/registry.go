package registry

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// owner tracks how an instance is held across all of its entries.
type owner struct {
	ownership Ownership
	refs      int
}

// Registry maps capability keys to registered instances.
//
// Each key has at most one primary entry and an ordered list of all
// entries. The primary, when present, is also in that list.
type Registry struct {
	mu      sync.RWMutex
	primary map[Key]*entry
	multi   map[Key][]*entry
	owners  map[any]*owner
	seq     uint64
	opt     options
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &Registry{
		primary: make(map[Key]*entry),
		multi:   make(map[Key][]*entry),
		owners:  make(map[any]*owner),
		opt:     o,
	}
}

// Resolution returns the FindAny policy in effect.
func (r *Registry) Resolution() Resolution { return r.opt.resolution }

// RegisterPrimary records instance as the primary for key and appends it to
// the key's entry list. It fails with *DuplicatePrimaryError, leaving the
// registry unchanged, when key already has a primary.
func (r *Registry) RegisterPrimary(key Key, instance any) error {
	_, err := r.register(key, instance, Exclusive, Borrowed, "")
	return err
}

// RegisterMulti appends instance to the key's entry list. It only fails on
// invalid input.
func (r *Registry) RegisterMulti(key Key, instance any) error {
	_, err := r.register(key, instance, Shared, Borrowed, "")
	return err
}

// UnregisterPrimary removes the primary for key if it is instance, together
// with its place in the entry list. Anything else is a no-op.
func (r *Registry) UnregisterPrimary(key Key, instance any) {
	r.mu.Lock()
	e := r.primary[key]
	if e == nil {
		r.mu.Unlock()
		return
	}
	if cur, ok := e.load(); !ok || !sameInstance(cur, instance) {
		r.mu.Unlock()
		return
	}
	info := r.removeLocked(e)
	r.mu.Unlock()

	r.logRelease(e, info)
}

// UnregisterMulti removes the first entry for key whose instance is
// instance. If that entry was the primary the primary slot is cleared too.
// Absence is a no-op.
//
// Pointer, map, chan and func instances match by identity. Other
// comparable values (strings, struct values) have no identity in Go and
// match by ==, so two registrations of equal values are interchangeable;
// register a pointer when the distinction matters.
func (r *Registry) UnregisterMulti(key Key, instance any) {
	r.mu.Lock()
	var found *entry
	for _, e := range r.multi[key] {
		if cur, ok := e.load(); ok && sameInstance(cur, instance) {
			found = e
			break
		}
	}
	if found == nil {
		r.mu.Unlock()
		return
	}
	info := r.removeLocked(found)
	r.mu.Unlock()

	r.logRelease(found, info)
}

// traceLevel sits below Debug and matches logging.TraceLevel; lookups log
// there.
const traceLevel = zapcore.Level(-2)

// FindPrimary returns the primary instance for key.
func (r *Registry) FindPrimary(key Key) (any, bool) {
	r.mu.RLock()
	e := r.primary[key]
	r.mu.RUnlock()
	return r.resolved(key, e)
}

// FindAny returns the primary instance for key or, under the fallback
// policy, the first registered instance.
func (r *Registry) FindAny(key Key) (any, bool) {
	return r.resolved(key, r.lookupAny(key))
}

// FindAll returns every instance registered under key in registration order.
func (r *Registry) FindAll(key Key) []any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.multi[key]
	out := make([]any, 0, len(list))
	for _, e := range list {
		if inst, ok := e.load(); ok {
			out = append(out, inst)
		}
	}
	return out
}

// Len returns the number of entries under key.
func (r *Registry) Len(key Key) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.multi[key])
}

// Keys returns every key with at least one entry, sorted.
func (r *Registry) Keys() []Key {
	r.mu.RLock()
	keys := make([]Key, 0, len(r.multi))
	for k := range r.multi {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Snapshot describes every entry, ordered by key then registration order.
func (r *Registry) Snapshot() []EntryInfo {
	keys := r.Keys()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []EntryInfo
	for _, k := range keys {
		p := r.primary[k]
		for _, e := range r.multi[k] {
			out = append(out, e.info(e == p))
		}
	}
	return out
}

// Describe returns the entries registered under key in registration order.
func (r *Registry) Describe(key Key) []EntryInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p := r.primary[key]
	list := r.multi[key]
	out := make([]EntryInfo, 0, len(list))
	for _, e := range list {
		out = append(out, e.info(e == p))
	}
	return out
}

// Close removes every entry, newest first, releasing owned instances.
// Borrowed instances are only unregistered; their scopes' later Close
// calls become no-ops.
func (r *Registry) Close() error {
	r.mu.RLock()
	var all []*entry
	for _, list := range r.multi {
		all = append(all, list...)
	}
	r.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool { return all[i].seq > all[j].seq })

	var errs []error
	for _, e := range all {
		if err := r.unregisterEntry(e); err != nil {
			errs = append(errs, err)
		}
	}
	if len(all) > 0 {
		r.opt.logger.Debug("registry closed", zap.Int("entries", len(all)))
	}
	return errors.Join(errs...)
}

// register validates and records one entry.
func (r *Registry) register(key Key, instance any, mode Mode, own Ownership, name string) (*entry, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}
	if err := checkInstance(instance); err != nil {
		return nil, fmt.Errorf("capability %s: %w", key, err)
	}

	r.mu.Lock()
	if o, ok := r.owners[instance]; ok && o.ownership != own {
		r.mu.Unlock()
		err := fmt.Errorf("%w: %T is already registered as %s, cannot register as %s",
			ErrOwnershipConflict, instance, o.ownership, own)
		r.opt.observer.Rejected(key, mode, err)
		return nil, err
	}
	if mode == Exclusive {
		if existing := r.primary[key]; existing != nil {
			err := &DuplicatePrimaryError{Key: key, Existing: existing.info(true)}
			r.mu.Unlock()
			r.opt.logger.Warn("duplicate primary registration rejected",
				zap.String("capability", string(key)),
				zap.String("type", fmt.Sprintf("%T", instance)),
				zap.String("existing_type", err.Existing.Type),
			)
			r.opt.observer.Rejected(key, mode, err)
			return nil, err
		}
	}

	r.seq++
	e := newEntry(key, instance, mode, own, name, r.seq, r.opt.now())
	r.multi[key] = append(r.multi[key], e)
	if mode == Exclusive {
		r.primary[key] = e
	}
	if o, ok := r.owners[instance]; ok {
		o.refs++
	} else {
		r.owners[instance] = &owner{ownership: own, refs: 1}
	}
	info := e.info(mode == Exclusive)
	r.mu.Unlock()

	r.opt.logger.Debug("capability registered",
		zap.String("capability", string(key)),
		zap.String("mode", mode.String()),
		zap.String("ownership", own.String()),
		zap.String("type", info.Type),
		zap.String("entry_id", info.ID),
	)
	r.opt.observer.Registered(info)
	return e, nil
}

// unregisterEntry removes exactly e if it is still registered.
func (r *Registry) unregisterEntry(e *entry) error {
	r.mu.Lock()
	if e.removed {
		r.mu.Unlock()
		return nil
	}
	info := r.removeLocked(e)
	r.mu.Unlock()

	return r.finish(e, info)
}

// removeLocked detaches e from both maps. Caller holds r.mu.
func (r *Registry) removeLocked(e *entry) EntryInfo {
	primary := r.primary[e.key] == e
	if primary {
		delete(r.primary, e.key)
	}

	list := r.multi[e.key]
	for i, cur := range list {
		if cur == e {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(r.multi, e.key)
	} else {
		r.multi[e.key] = list
	}

	if inst, ok := e.load(); ok {
		if o, ok := r.owners[inst]; ok {
			o.refs--
			if o.refs <= 0 {
				delete(r.owners, inst)
			}
		}
	}
	e.removed = true
	return e.info(primary)
}

// finish releases e outside the lock and notifies observers.
func (r *Registry) finish(e *entry, info EntryInfo) error {
	inst, ok := e.release()
	var err error
	if ok && e.ownership == Owned && !r.stillHeld(inst) {
		if c, isCloser := inst.(io.Closer); isCloser {
			if cerr := c.Close(); cerr != nil {
				err = fmt.Errorf("release %s (%s): %w", info.Key, info.Type, cerr)
			}
		}
	}

	r.opt.logger.Debug("capability unregistered",
		zap.String("capability", string(info.Key)),
		zap.String("mode", info.Mode.String()),
		zap.String("entry_id", info.ID),
		zap.Bool("was_primary", info.Primary),
	)
	r.opt.observer.Unregistered(info)
	return err
}

// stillHeld reports whether another entry references inst.
func (r *Registry) stillHeld(inst any) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.owners[inst]
	return ok
}

// logRelease finishes a public unregister call, logging release errors.
func (r *Registry) logRelease(e *entry, info EntryInfo) {
	if err := r.finish(e, info); err != nil {
		r.opt.logger.Error("failed to release owned instance",
			zap.String("capability", string(info.Key)),
			zap.Error(err),
		)
	}
}

// lookupAny applies the resolution policy.
func (r *Registry) lookupAny(key Key) *entry {
	return r.lookupMatch(key, nil)
}

// lookupMatch applies the resolution policy, falling back to the first
// entry whose instance satisfies match. A primary is returned whether or
// not it matches; a nil match accepts any instance.
func (r *Registry) lookupMatch(key Key, match func(any) bool) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e := r.primary[key]; e != nil {
		return e
	}
	if r.opt.resolution == ResolvePrimaryOnly {
		return nil
	}
	for _, e := range r.multi[key] {
		inst, ok := e.load()
		if ok && (match == nil || match(inst)) {
			return e
		}
	}
	return nil
}

// resolved loads e's instance and notifies the observer.
func (r *Registry) resolved(key Key, e *entry) (any, bool) {
	var (
		inst any
		ok   bool
	)
	if e != nil {
		inst, ok = e.load()
	}
	if ce := r.opt.logger.Check(traceLevel, "capability resolved"); ce != nil {
		ce.Write(zap.String("capability", string(key)), zap.Bool("found", ok))
	}
	r.opt.observer.Resolved(key, ok)
	return inst, ok
}
