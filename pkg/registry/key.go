package registry

import (
	"fmt"
	"regexp"
)

// maxKeyLen bounds capability key length.
const maxKeyLen = 128

// keyPattern validates capability keys: lowercase alphanumerics plus
// dot, underscore, hyphen and slash, starting with an alphanumeric.
var keyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._/-]*$`)

// Key is the stable identifier of an abstract capability.
//
// Keys are assigned explicitly and never derived from Go type names, so two
// builds of the same program always agree on them.
type Key string

// ParseKey validates s and returns it as a Key.
func ParseKey(s string) (Key, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if len(s) > maxKeyLen {
		return "", fmt.Errorf("%w: %q exceeds max length %d", ErrInvalidKey, s, maxKeyLen)
	}
	if !keyPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return Key(s), nil
}

// MustKey is like ParseKey but panics on an invalid key.
// Intended for package-level declarations.
func MustKey(s string) Key {
	k, err := ParseKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

// IsZero reports whether the key is empty.
func (k Key) IsZero() bool { return k == "" }

// String returns the key, or "<empty>" for the zero key.
func (k Key) String() string {
	if k == "" {
		return "<empty>"
	}
	return string(k)
}

// validate rejects keys that did not go through ParseKey.
func (k Key) validate() error {
	_, err := ParseKey(string(k))
	return err
}
