// Package layout models a registry's URL and file naming scheme.
//
// The crates.io download path and the name-version.crate file convention
// are defaults, not constants: mirrors may lay out their archives
// differently, so both are templates that can be loaded from a config file.
package layout

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultDownloadPath is the crates.io registry download endpoint.
	DefaultDownloadPath = "/api/v1/crates/{name}/{version}/download"

	// DefaultFileName is the conventional crate archive name.
	DefaultFileName = "{name}-{version}.crate"
)

// Layout holds the URL path and local file name templates.
// Both templates use {name} and {version} placeholders.
type Layout struct {
	// DownloadPath is joined to the registry base URL per record.
	DownloadPath string `yaml:"download_path"`

	// FileName is the path of the written archive relative to the
	// output directory. It may contain slashes for mirror-tree layouts.
	FileName string `yaml:"file_name"`
}

// Default returns the crates.io layout.
func Default() Layout {
	return Layout{
		DownloadPath: DefaultDownloadPath,
		FileName:     DefaultFileName,
	}
}

// Load reads a layout config file. Absent fields keep their defaults.
func Load(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("reading layout config: %w", err)
	}

	lay := Default()
	if err := yaml.Unmarshal(data, &lay); err != nil {
		return Layout{}, fmt.Errorf("parsing layout config: %w", err)
	}

	if err := lay.Validate(); err != nil {
		return Layout{}, fmt.Errorf("layout config %s: %w", path, err)
	}

	return lay, nil
}

// Validate checks that both templates reference name and version.
// A file name missing either placeholder would collide across records.
func (l Layout) Validate() error {
	for _, tmpl := range []struct {
		field string
		value string
	}{
		{"download_path", l.DownloadPath},
		{"file_name", l.FileName},
	} {
		if !strings.Contains(tmpl.value, "{name}") {
			return fmt.Errorf("%s: missing {name} placeholder", tmpl.field)
		}
		if !strings.Contains(tmpl.value, "{version}") {
			return fmt.Errorf("%s: missing {version} placeholder", tmpl.field)
		}
	}
	return nil
}

// URLPath renders the download path for a package, escaping the values.
func (l Layout) URLPath(name, version string) string {
	return strings.NewReplacer(
		"{name}", url.PathEscape(name),
		"{version}", url.PathEscape(version),
	).Replace(l.DownloadPath)
}

// File renders the archive file name for a package. The result is
// slash-separated; callers convert to the platform path.
func (l Layout) File(name, version string) string {
	return strings.NewReplacer(
		"{name}", name,
		"{version}", version,
	).Replace(l.FileName)
}
