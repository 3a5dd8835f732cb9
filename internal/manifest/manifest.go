// Package manifest loads bootstrap manifests: TOML files that list, in
// order, which catalog implementations to provide for each capability.
//
//	[[provide]]
//	capability = "greeter"
//	implementation = "english"
//	mode = "exclusive"
package manifest

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fyrsmithlabs/locus/pkg/registry"
)

// maxManifestSize bounds manifest files.
const maxManifestSize = 1024 * 1024

// ErrInvalidManifest indicates a manifest that cannot be turned into a
// bootstrap table.
var ErrInvalidManifest = errors.New("invalid manifest")

// Provide is one [[provide]] row.
type Provide struct {
	Capability     string `toml:"capability"`
	Implementation string `toml:"implementation"`
	Mode           string `toml:"mode"`
}

// Manifest is a parsed manifest file.
type Manifest struct {
	Path    string    `toml:"-"`
	Provide []Provide `toml:"provide"`
}

// Catalog resolves implementation names to declarations.
type Catalog interface {
	Declaration(capability registry.Key, name string, mode registry.Mode) (registry.Declaration, error)
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidManifest, path)
	}
	if info.Size() > maxManifestSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalidManifest, path, maxManifestSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Path = path
	return m, nil
}

// Parse decodes and validates manifest text. Unknown keys are rejected.
func Parse(text string) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(text, &m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalidManifest, strings.Join(keys, ", "))
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks every row without consulting a catalog.
func (m *Manifest) Validate() error {
	for i, p := range m.Provide {
		if _, err := registry.ParseKey(p.Capability); err != nil {
			return fmt.Errorf("%w: provide[%d]: %v", ErrInvalidManifest, i, err)
		}
		if p.Implementation == "" {
			return fmt.Errorf("%w: provide[%d] (%s): implementation is required", ErrInvalidManifest, i, p.Capability)
		}
		if _, err := registry.ParseMode(p.Mode); err != nil {
			return fmt.Errorf("%w: provide[%d] (%s.%s): %v", ErrInvalidManifest, i, p.Capability, p.Implementation, err)
		}
	}
	return nil
}

// Table resolves every row against catalog, preserving order.
func (m *Manifest) Table(catalog Catalog) (registry.Table, error) {
	table := make(registry.Table, 0, len(m.Provide))
	for i, p := range m.Provide {
		key, err := registry.ParseKey(p.Capability)
		if err != nil {
			return nil, fmt.Errorf("%w: provide[%d]: %v", ErrInvalidManifest, i, err)
		}
		mode, err := registry.ParseMode(p.Mode)
		if err != nil {
			return nil, fmt.Errorf("%w: provide[%d]: %v", ErrInvalidManifest, i, err)
		}
		d, err := catalog.Declaration(key, p.Implementation, mode)
		if err != nil {
			return nil, fmt.Errorf("provide[%d]: %w", i, err)
		}
		table = append(table, d)
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return table, nil
}
