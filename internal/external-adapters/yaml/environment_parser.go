// Package yaml provides YAML-based build environment parsing.
package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/meator/android-tools-static/internal/domain/entities"
)

// yamlEnvironment represents the raw YAML structure
type yamlEnvironment struct {
	Runner        string                   `yaml:"runner"`
	BundledLibusb bool                     `yaml:"bundled_libusb"`
	RootVersion   string                   `yaml:"root_version"`
	BaseVersions  yamlBaseVersions         `yaml:"base_versions"`
	Submodules    map[string]yamlSubmodule `yaml:"submodules"`
	Extras        map[string]yamlExtra     `yaml:"extras"`
}

type yamlBaseVersions struct {
	Nmeum string `yaml:"nmeum"`
	MSYS2 string `yaml:"msys2"`
}

// yamlSubmodule is either a bare commit or a mapping
type yamlSubmodule struct {
	Commit string `yaml:"commit"`
	URL    string `yaml:"url"`
	Path   string `yaml:"path"`
}

// UnmarshalYAML accepts "core: <sha>" as shorthand for "core: {commit: <sha>}"
func (s *yamlSubmodule) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&s.Commit)
	}
	type plain yamlSubmodule
	return node.Decode((*plain)(s))
}

// yamlExtra is either a bare version or a mapping
type yamlExtra struct {
	Version string `yaml:"version"`
	Command string `yaml:"command"`
	Prefix  string `yaml:"prefix"`
	Package string `yaml:"package"`
}

// UnmarshalYAML accepts "alpine: 3.21.0" as shorthand for "alpine: {version: 3.21.0}"
func (x *yamlExtra) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&x.Version)
	}
	type plain yamlExtra
	return node.Decode((*plain)(x))
}

// EnvironmentParser parses YAML build environment profiles
type EnvironmentParser struct{}

// NewEnvironmentParser creates a new YAML parser
func NewEnvironmentParser() *EnvironmentParser {
	return &EnvironmentParser{}
}

// ParseFile parses a YAML profile into a BuildEnvironment
func (p *EnvironmentParser) ParseFile(filePath string) (*entities.BuildEnvironment, error) {
	//nolint:gosec // G304: filePath is the user-supplied environment profile
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(data)
}

// Parse parses YAML bytes into a BuildEnvironment. Unknown fields are rejected.
func (p *EnvironmentParser) Parse(data []byte) (*entities.BuildEnvironment, error) {
	var y yamlEnvironment
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&y); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: failed to parse YAML: %v", entities.ErrEnvironment, err)
	}

	env := &entities.BuildEnvironment{
		Runner:        y.Runner,
		BundledLibusb: y.BundledLibusb,
		RootVersion:   y.RootVersion,
		BaseVersions: entities.BaseVersions{
			Nmeum: y.BaseVersions.Nmeum,
			MSYS2: y.BaseVersions.MSYS2,
		},
	}

	for _, name := range sortedKeys(y.Submodules) {
		sm := y.Submodules[name]
		if sm.Commit == "" {
			return nil, fmt.Errorf("%w: submodule %q has no commit", entities.ErrEnvironment, name)
		}
		env.Submodules = append(env.Submodules, entities.Submodule{
			Name:   name,
			Path:   sm.Path,
			Commit: sm.Commit,
			URL:    sm.URL,
		})
	}

	for _, name := range sortedKeys(y.Extras) {
		x := y.Extras[name]
		if err := validateExtra(name, x); err != nil {
			return nil, err
		}
		env.Extras = append(env.Extras, entities.ExtraDependency{
			Name:    name,
			Version: x.Version,
			Command: x.Command,
			Prefix:  x.Prefix,
			Package: x.Package,
		})
	}

	return env, nil
}

func validateExtra(name string, x yamlExtra) error {
	switch {
	case x.Version == "" && x.Command == "":
		return fmt.Errorf("%w: extra %q needs a version or a command", entities.ErrEnvironment, name)
	case x.Version != "" && x.Command != "":
		return fmt.Errorf("%w: extra %q has both a version and a command", entities.ErrEnvironment, name)
	case x.Prefix != "" && x.Command == "":
		return fmt.Errorf("%w: extra %q has a prefix but no command", entities.ErrEnvironment, name)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
