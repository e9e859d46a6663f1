// Package versioninfo reads and writes the version-info.json stored in the
// cross toolchain image.
package versioninfo

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/meator/android-tools-static/internal/domain/entities"
)

// DefaultPath is where the cross toolchain image keeps the file
const DefaultPath = "/version-info.json"

// Field is one recorded component and the flag that sets it
type Field struct {
	Key  string
	Flag string
}

// Fields lists the recorded components in emission order
var Fields = []Field{
	{Key: "alpine", Flag: "alpine-version"},
	{Key: "musl-cross-make", Flag: "musl-cross-make-version"},
	{Key: "binutils", Flag: "binutils-version"},
	{Key: "gcc", Flag: "gcc-version"},
	{Key: "musl", Flag: "musl-version"},
	{Key: "gmp", Flag: "gmp-version"},
	{Key: "mpc", Flag: "mpc-version"},
	{Key: "mpfr", Flag: "mpfr-version"},
	{Key: "linux", Flag: "linux-version"},
	{Key: "isl", Flag: "isl-version"},
	{Key: "docker/setup-buildx-action", Flag: "setup-buildx-action-version"},
	{Key: "docker/login-action", Flag: "login-action-version"},
	{Key: "docker/metadata-action", Flag: "metadata-action-version"},
	{Key: "docker/bake-action", Flag: "bake-action-version"},
}

// Encode renders versions as version-info.json. Every field is required.
func Encode(versions map[string]string) ([]byte, error) {
	for _, f := range Fields {
		if versions[f.Key] == "" {
			return nil, fmt.Errorf("flag --%s must not have an empty version", f.Flag)
		}
	}
	if len(versions) != len(Fields) {
		return nil, fmt.Errorf("version info has %d entries, expected %d", len(versions), len(Fields))
	}

	// encoding/json sorts map keys
	data, err := json.Marshal(versions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal version info: %w", err)
	}
	return append(data, '\n'), nil
}

// Parse turns version-info.json content into build environment extras
func Parse(data []byte) ([]entities.ExtraDependency, error) {
	var versions map[string]string
	if err := json.Unmarshal(data, &versions); err != nil {
		return nil, fmt.Errorf("%w: version info is not a string map: %v", entities.ErrEnvironment, err)
	}

	names := make([]string, 0, len(versions))
	for name, version := range versions {
		if version == "" {
			return nil, fmt.Errorf("%w: version info has an empty version for %q", entities.ErrEnvironment, name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	extras := make([]entities.ExtraDependency, 0, len(names))
	for _, name := range names {
		extras = append(extras, entities.ExtraDependency{Name: name, Version: versions[name]})
	}
	return extras, nil
}

// ReadFile reads version-info.json at path
func ReadFile(path string) ([]entities.ExtraDependency, error) {
	//nolint:gosec // G304: path is the user-supplied version info location
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read version info: %v", entities.ErrEnvironment, err)
	}
	return Parse(data)
}
