// Package manifest reads the dependency manifest produced by the Meson build.
package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/meator/android-tools-static/internal/domain/entities"
	"github.com/meator/android-tools-static/internal/domain/interfaces/repositories"
)

const depmfType = "dependency manifest"

// Reader parses flat and depmf.json dependency manifests
type Reader struct{}

var _ repositories.ManifestRepository = (*Reader)(nil)

// NewReader creates a new manifest reader
func NewReader() *Reader {
	return &Reader{}
}

// GetManifest reads the manifest at path
func (r *Reader) GetManifest(_ context.Context, path string) (*entities.Manifest, error) {
	return r.ReadFile(path)
}

// ReadFile reads and parses the manifest at path
func (r *Reader) ReadFile(path string) (*entities.Manifest, error) {
	//nolint:gosec // G304: path is the user-supplied manifest location
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return r.Parse(data)
}

// member is one key/value pair of a JSON object, in document order
type member struct {
	Key   string
	Value json.RawMessage
}

// Parse parses manifest data. Entries keep document order.
func (r *Reader) Parse(data []byte) (*entities.Manifest, error) {
	members, err := orderedObject(data)
	if err != nil {
		return nil, err
	}

	if isDepmf(members) {
		return parseDepmf(members)
	}
	return parseFlat(members)
}

func isDepmf(members []member) bool {
	for _, m := range members {
		if m.Key != "type" {
			continue
		}
		var s string
		return json.Unmarshal(m.Value, &s) == nil && s == depmfType
	}
	return false
}

// flatRecord is the object form of a flat manifest value
type flatRecord struct {
	Version json.RawMessage `json:"version"`
	Source  string          `json:"source"`
	License json.RawMessage `json:"license"`
}

func parseFlat(members []member) (*entities.Manifest, error) {
	manifest := &entities.Manifest{Format: entities.ManifestFormatFlat}
	seen := make(map[string]bool, len(members))

	for _, m := range members {
		if err := checkName(m.Key, seen); err != nil {
			return nil, err
		}

		entry := entities.ManifestEntry{Name: m.Key}
		switch firstByte(m.Value) {
		case '"':
			if err := json.Unmarshal(m.Value, &entry.Version); err != nil {
				return nil, fmt.Errorf("%w: %q: %v", entities.ErrManifestParse, m.Key, err)
			}
		case '{':
			var rec flatRecord
			if err := json.Unmarshal(m.Value, &rec); err != nil {
				return nil, fmt.Errorf("%w: %q: %v", entities.ErrManifestParse, m.Key, err)
			}
			if firstByte(rec.Version) != '"' {
				return nil, fmt.Errorf("%w: %q has no string version", entities.ErrManifestParse, m.Key)
			}
			if err := json.Unmarshal(rec.Version, &entry.Version); err != nil {
				return nil, fmt.Errorf("%w: %q: %v", entities.ErrManifestParse, m.Key, err)
			}
			origin, err := parseOrigin(rec.Source)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", entities.ErrManifestParse, m.Key, err)
			}
			entry.Origin = origin
			licenses, err := parseLicenses(rec.License)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", entities.ErrManifestParse, m.Key, err)
			}
			entry.Licenses = licenses
		default:
			return nil, fmt.Errorf("%w: %q must map to a version string or an object", entities.ErrManifestParse, m.Key)
		}

		if entry.Version == "" {
			return nil, fmt.Errorf("%w: %q has an empty version", entities.ErrManifestParse, m.Key)
		}
		manifest.Entries = append(manifest.Entries, entry)
	}

	return manifest, nil
}

// depmfHeader is the top level of a Meson depmf.json
type depmfHeader struct {
	Type     string          `json:"type"`
	Version  string          `json:"version"`
	Projects json.RawMessage `json:"projects"`
}

type depmfProject struct {
	Version string          `json:"version"`
	License json.RawMessage `json:"license"`
}

func parseDepmf(members []member) (*entities.Manifest, error) {
	var header depmfHeader
	for _, m := range members {
		var err error
		switch m.Key {
		case "type":
			err = json.Unmarshal(m.Value, &header.Type)
		case "version":
			err = json.Unmarshal(m.Value, &header.Version)
		case "projects":
			header.Projects = m.Value
		}
		if err != nil {
			return nil, fmt.Errorf("%w: depmf %q: %v", entities.ErrManifestParse, m.Key, err)
		}
	}

	major, _, _ := strings.Cut(header.Version, ".")
	if major != "1" {
		return nil, fmt.Errorf("%w: expected a depmf major version of 1, got %q", entities.ErrManifestParse, header.Version)
	}
	if header.Projects == nil {
		return nil, fmt.Errorf("%w: depmf has no projects", entities.ErrManifestParse)
	}

	projects, err := orderedObject(header.Projects)
	if err != nil {
		return nil, err
	}

	manifest := &entities.Manifest{Format: entities.ManifestFormatDepmf}
	seen := make(map[string]bool, len(projects))

	for _, p := range projects {
		if err := checkName(p.Key, seen); err != nil {
			return nil, err
		}
		if firstByte(p.Value) != '{' {
			return nil, fmt.Errorf("%w: depmf project %q is not an object", entities.ErrManifestParse, p.Key)
		}
		var proj depmfProject
		if err := json.Unmarshal(p.Value, &proj); err != nil {
			return nil, fmt.Errorf("%w: depmf project %q: %v", entities.ErrManifestParse, p.Key, err)
		}
		licenses, err := parseLicenses(proj.License)
		if err != nil {
			return nil, fmt.Errorf("%w: depmf project %q: %v", entities.ErrManifestParse, p.Key, err)
		}

		entry := entities.ManifestEntry{Name: p.Key, Version: proj.Version, Licenses: licenses}
		if entry.Version == "undefined" {
			entry.Version = ""
		}
		manifest.Entries = append(manifest.Entries, entry)
	}

	return manifest, nil
}

func checkName(name string, seen map[string]bool) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty dependency name", entities.ErrManifestParse)
	}
	if seen[name] {
		return fmt.Errorf("%w: duplicate dependency %q", entities.ErrManifestParse, name)
	}
	seen[name] = true
	return nil
}

func parseOrigin(source string) (entities.Origin, error) {
	switch o := entities.Origin(source); o {
	case entities.OriginUnspecified, entities.OriginWrap, entities.OriginSubmodule, entities.OriginSystem, entities.OriginPrebuilt:
		return o, nil
	default:
		return "", fmt.Errorf("unknown source %q", source)
	}
}

// parseLicenses accepts a string or a list of strings. "unknown" means no license.
func parseLicenses(raw json.RawMessage) ([]string, error) {
	var list []string
	switch firstByte(raw) {
	case 0, 'n':
		return nil, nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		list = []string{s}
	case '[':
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("license must be a list of strings: %w", err)
		}
	default:
		return nil, errors.New("license must be a string or a list of strings")
	}

	out := make([]string, 0, len(list))
	for _, l := range list {
		if l != "" && l != "unknown" {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// orderedObject splits a JSON object into its members without losing key order
func orderedObject(data []byte) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrManifestParse, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", entities.ErrManifestParse)
	}

	var members []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", entities.ErrManifestParse, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected an object key", entities.ErrManifestParse)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", entities.ErrManifestParse, key, err)
		}
		members = append(members, member{Key: key, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrManifestParse, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after the top-level object", entities.ErrManifestParse)
	}

	return members, nil
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
