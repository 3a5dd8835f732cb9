package registry

import (
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Mode selects how an instance is registered under a key.
type Mode int

const (
	// Shared appends the instance to the key's ordered entry list.
	Shared Mode = iota
	// Exclusive makes the instance the key's primary. At most one per key.
	Exclusive
)

// String returns "shared" or "exclusive".
func (m Mode) String() string {
	switch m {
	case Shared:
		return "shared"
	case Exclusive:
		return "exclusive"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode parses "shared" or "exclusive". "primary" is accepted as an
// alias for exclusive.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "shared", "":
		return Shared, nil
	case "exclusive", "primary":
		return Exclusive, nil
	default:
		return Shared, fmt.Errorf("unknown registration mode %q (want shared or exclusive)", s)
	}
}

// Ownership records who is responsible for releasing an instance.
type Ownership int

const (
	// Borrowed instances manage their own lifetime; the registry only observes them.
	Borrowed Ownership = iota
	// Owned instances were created by the registry and are released by it.
	Owned
)

// String returns "borrowed" or "owned".
func (o Ownership) String() string {
	if o == Owned {
		return "owned"
	}
	return "borrowed"
}

// MarshalText implements encoding.TextMarshaler.
func (o Ownership) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Ownership) UnmarshalText(text []byte) error {
	switch string(text) {
	case "borrowed":
		*o = Borrowed
	case "owned":
		*o = Owned
	default:
		return fmt.Errorf("unknown ownership %q", text)
	}
	return nil
}

// EntryInfo is a read-only description of one registration.
type EntryInfo struct {
	ID           string    `json:"id"`
	Key          Key       `json:"capability"`
	Name         string    `json:"name,omitempty"`
	Type         string    `json:"type"`
	Mode         Mode      `json:"mode"`
	Ownership    Ownership `json:"ownership"`
	Primary      bool      `json:"primary"`
	RegisteredAt time.Time `json:"registered_at"`
}

// slot holds the instance while the entry is registered.
type slot struct {
	instance any
}

// entry is one registration. Handles keep a pointer to it; once the entry
// is removed its slot is cleared so the instance is no longer reachable
// through the registry or any handle.
type entry struct {
	id           uuid.UUID
	key          Key
	name         string
	typ          string
	mode         Mode
	ownership    Ownership
	seq          uint64
	registeredAt time.Time

	slot    atomic.Pointer[slot]
	removed bool // guarded by Registry.mu
}

func newEntry(key Key, instance any, mode Mode, own Ownership, name string, seq uint64, now time.Time) *entry {
	e := &entry{
		id:           uuid.New(),
		key:          key,
		name:         name,
		typ:          fmt.Sprintf("%T", instance),
		mode:         mode,
		ownership:    own,
		seq:          seq,
		registeredAt: now,
	}
	e.slot.Store(&slot{instance: instance})
	return e
}

// load returns the instance, or false once the entry has been released.
func (e *entry) load() (any, bool) {
	s := e.slot.Load()
	if s == nil {
		return nil, false
	}
	return s.instance, true
}

// live reports whether the entry is still registered.
func (e *entry) live() bool {
	return e.slot.Load() != nil
}

// release clears the slot and returns the instance it held.
func (e *entry) release() (any, bool) {
	s := e.slot.Swap(nil)
	if s == nil {
		return nil, false
	}
	return s.instance, true
}

func (e *entry) info(primary bool) EntryInfo {
	return EntryInfo{
		ID:           e.id.String(),
		Key:          e.key,
		Name:         e.name,
		Type:         e.typ,
		Mode:         e.mode,
		Ownership:    e.ownership,
		Primary:      primary,
		RegisteredAt: e.registeredAt,
	}
}

// checkInstance rejects instances that cannot be compared by identity.
func checkInstance(instance any) error {
	if instance == nil {
		return fmt.Errorf("%w: nil", ErrInvalidInstance)
	}
	v := reflect.ValueOf(instance)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Slice, reflect.Interface, reflect.UnsafePointer:
		if v.IsNil() {
			return fmt.Errorf("%w: nil %T", ErrInvalidInstance, instance)
		}
	}
	if !hashable(instance) {
		return fmt.Errorf("%w: %T is not comparable", ErrInvalidInstance, instance)
	}
	return nil
}

// hashable reports whether v can be used as a map key at runtime. Some
// types are comparable statically but hold uncomparable dynamic values.
func hashable(v any) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	_ = map[any]struct{}{v: {}}
	return true
}

// sameInstance reports identity: pointer equality for pointers, == otherwise.
func sameInstance(a, b any) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
