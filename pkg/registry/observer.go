package registry

// Observer receives registry activity. Calls happen after the registry lock
// is released, so implementations may call back into the registry.
type Observer interface {
	// Registered is called after an entry is added.
	Registered(info EntryInfo)
	// Unregistered is called after an entry is removed.
	Unregistered(info EntryInfo)
	// Rejected is called when a registration fails because of registry state.
	Rejected(key Key, mode Mode, err error)
	// Resolved is called for every single-valued lookup.
	Resolved(key Key, found bool)
}

// NopObserver ignores everything.
type NopObserver struct{}

func (NopObserver) Registered(EntryInfo) {}
func (NopObserver) Unregistered(EntryInfo) {}
func (NopObserver) Rejected(Key, Mode, error) {}
func (NopObserver) Resolved(Key, bool) {}

var _ Observer = NopObserver{}
