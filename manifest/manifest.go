// Package manifest discovers plugin descriptors from manifest files on
// disk. A manifest lists, for one namespace, the plugin names it provides
// and the catalog targets they resolve through; targets land on code via
// a discovery.TargetResolver, by default the global target table.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Custom errors
var (
	ErrInvalidManifest = errors.New("invalid manifest")
)

// Entry names one plugin and the target it resolves through.
type Entry struct {
	Name   string `json:"name" yaml:"name"`
	Target string `json:"target" yaml:"target"`
}

// Manifest describes the plugins one file contributes to a namespace.
// Names must be unique inside a manifest; the same name appearing in
// several manifests is allowed and surfaces downstream as driver
// ambiguity.
type Manifest struct {
	Namespace string  `json:"namespace" yaml:"namespace"`
	Plugins   []Entry `json:"plugins" yaml:"plugins"`
}

// Load reads, parses, and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates manifest bytes. JSON is tried first, then
// YAML, so both formats work regardless of file extension.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if jsonErr := json.Unmarshal(data, &m); jsonErr != nil {
		if yamlErr := yaml.Unmarshal(data, &m); yamlErr != nil {
			return nil, fmt.Errorf("%w: not JSON (%v) nor YAML (%v)", ErrInvalidManifest, jsonErr, yamlErr)
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the structural rules: a namespace, and for every entry
// a name and a target, with no duplicate names inside the manifest.
func (m *Manifest) Validate() error {
	if m.Namespace == "" {
		return fmt.Errorf("%w: namespace is required", ErrInvalidManifest)
	}

	seen := make(map[string]struct{}, len(m.Plugins))
	for i, e := range m.Plugins {
		if e.Name == "" {
			return fmt.Errorf("%w: plugin %d has no name", ErrInvalidManifest, i)
		}
		if e.Target == "" {
			return fmt.Errorf("%w: plugin %q has no target", ErrInvalidManifest, e.Name)
		}
		if _, dup := seen[e.Name]; dup {
			return fmt.Errorf("%w: duplicate plugin name %q", ErrInvalidManifest, e.Name)
		}
		seen[e.Name] = struct{}{}
	}
	return nil
}
