package registry

import (
	"errors"
	"fmt"
)

// Errors for registry operations.
var (
	// ErrDuplicatePrimary indicates a second primary registration for a key.
	ErrDuplicatePrimary = errors.New("registry: primary already registered")
	// ErrExpiredReference indicates access through an empty or expired handle.
	ErrExpiredReference = errors.New("registry: expired reference")
	// ErrInvalidKey indicates a malformed capability key.
	ErrInvalidKey = errors.New("registry: invalid key")
	// ErrInvalidInstance indicates a nil or non-comparable instance.
	ErrInvalidInstance = errors.New("registry: invalid instance")
	// ErrOwnershipConflict indicates an instance registered as both owned and borrowed.
	ErrOwnershipConflict = errors.New("registry: ownership conflict")
)

// DuplicatePrimaryError reports a rejected primary registration.
// It matches ErrDuplicatePrimary with errors.Is.
type DuplicatePrimaryError struct {
	Key Key
	// Existing is the entry that already holds the primary slot.
	Existing EntryInfo
}

func (e *DuplicatePrimaryError) Error() string {
	return fmt.Sprintf("registry: capability %s already has primary %s (%s)",
		e.Key, e.Existing.Type, e.Existing.ID)
}

// Is reports whether target is ErrDuplicatePrimary.
func (e *DuplicatePrimaryError) Is(target error) bool {
	return target == ErrDuplicatePrimary
}
