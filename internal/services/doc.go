// Package services declares the capabilities locus serves and the catalog
// of implementations that can be bootstrapped for them.
//
// Each capability is declared once as a registry.Capability. Implementations
// are constructed by catalog factories and owned by the registry. The
// notifiers are the exception: LogNotifier and NATSNotifier register
// themselves through a Scope and stay borrowed.
package services
