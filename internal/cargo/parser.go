// Package cargo provides functionality for parsing Cargo.lock files.
package cargo

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Package represents a single [[package]] entry from Cargo.lock.
// Only Name and Version are required; Source and Checksum are carried
// for callers that want them but are never validated.
type Package struct {
	Name     string `toml:"name"`
	Version  string `toml:"version"`
	Source   string `toml:"source"`
	Checksum string `toml:"checksum"`
}

// Lockfile represents the parts of Cargo.lock this tool reads.
// Dependency lists and the [metadata] table are ignored.
type Lockfile struct {
	Version  int       `toml:"version"`
	Packages []Package `toml:"package"`
}

// Load reads and parses a Cargo.lock file.
func Load(path string) ([]Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lockfile: %w", err)
	}

	pkgs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return pkgs, nil
}

// Parse extracts package records from Cargo.lock content.
// Records are returned in file order; duplicates are preserved.
func Parse(data []byte) ([]Package, error) {
	var lf Lockfile
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parsing lockfile: %w", err)
	}

	for i, pkg := range lf.Packages {
		if pkg.Name == "" {
			return nil, fmt.Errorf("package %d: missing name", i)
		}
		if pkg.Version == "" {
			return nil, fmt.Errorf("package %q: missing version", pkg.Name)
		}
	}

	return lf.Packages, nil
}
