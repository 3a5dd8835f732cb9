// Package registry provides a process-local capability registry.
//
// Components register concrete implementations under a capability Key and
// other components resolve an implementation for that key without knowing
// its concrete type.
//
// # Overview
//
// The registry keeps, per key:
//   - at most one primary entry (the preferred implementation)
//   - an ordered list of entries (every registration, primary included)
//
// Three types cover the lifecycle:
//   - Registry: the keyed store. Construct one with New and pass it around;
//     there is no package-level instance.
//   - Scope: ties registry membership to an instance's lifetime. NewScope
//     registers, Close unregisters.
//   - Handle: a lazily resolved, non-owning reference to an implementation
//     with explicit IsLive and Refresh.
//
// # Usage
//
// Declare a capability once:
//
//	var Greeter = registry.Declare[greeter.Greeter]("greeter")
//
// Advertise an implementation for as long as it lives:
//
//	scope, err := Greeter.Provide(reg, impl, registry.Shared)
//	if err != nil {
//	    return err
//	}
//	defer scope.Close()
//
// Resolve it elsewhere:
//
//	h := Greeter.Resolve(reg)
//	if g, err := h.Get(); err == nil {
//	    g.Greet("world")
//	}
//
// # Bootstrap
//
// Factory-style registrations are collected in an ordered Table and run by
// Registry.Bootstrap. Instances created this way are owned by the registry
// and released (io.Closer) when they are unregistered.
//
// # Ownership
//
// An entry is either Borrowed (the instance manages its own lifetime and
// unregisters through its Scope) or Owned (created by Bootstrap, released by
// the registry). The same instance can never be registered under both.
//
// # Concurrency Safety
//
// Every public Registry method holds the registry's lock for the duration
// of the call. Observers and loggers run after the lock is released.
package registry
