package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/meator/android-tools-static/internal/domain/entities"
)

func TestReader_Parse_Flat(t *testing.T) {
	reader := NewReader()
	m, err := reader.Parse([]byte(`{"zlib":"1.3.1","libusb":"1.0.27"}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if m.Format != entities.ManifestFormatFlat {
		t.Errorf("Format = %v, want %v", m.Format, entities.ManifestFormatFlat)
	}
	if len(m.Entries) != 2 {
		t.Fatalf("Entries count = %d, want 2", len(m.Entries))
	}
	if m.Entries[0].Name != "zlib" || m.Entries[0].Version != "1.3.1" {
		t.Errorf("Entries[0] = %+v, want zlib 1.3.1", m.Entries[0])
	}
	if m.Entries[1].Name != "libusb" || m.Entries[1].Version != "1.0.27" {
		t.Errorf("Entries[1] = %+v, want libusb 1.0.27", m.Entries[1])
	}
}

func TestReader_Parse_KeepsDocumentOrder(t *testing.T) {
	reader := NewReader()
	m, err := reader.Parse([]byte(`{"zstd":"1.5.6","abseil-cpp":"20240722.0","fmt":"11.0.2","brotli-not-sorted":"1"}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []string{"zstd", "abseil-cpp", "fmt", "brotli-not-sorted"}
	for i, name := range want {
		if m.Entries[i].Name != name {
			t.Errorf("Entries[%d].Name = %v, want %v", i, m.Entries[i].Name, name)
		}
	}
}

func TestReader_Parse_FlatObjects(t *testing.T) {
	reader := NewReader()
	m, err := reader.Parse([]byte(`{
		"zlib": {"version": "1.3.1", "source": "wrap", "license": ["Zlib"], "sha": "ignored"},
		"boringssl": {"version": "abc123", "source": "submodule", "license": "ISC"},
		"pcre2": {"version": "10.44", "license": "unknown"}
	}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	zlib := m.Entries[0]
	if zlib.Origin != entities.OriginWrap {
		t.Errorf("zlib Origin = %v, want wrap", zlib.Origin)
	}
	if len(zlib.Licenses) != 1 || zlib.Licenses[0] != "Zlib" {
		t.Errorf("zlib Licenses = %v, want [Zlib]", zlib.Licenses)
	}
	if m.Entries[1].Origin != entities.OriginSubmodule || m.Entries[1].Licenses[0] != "ISC" {
		t.Errorf("boringssl = %+v, want submodule ISC", m.Entries[1])
	}
	if m.Entries[2].Licenses != nil {
		t.Errorf("pcre2 Licenses = %v, want none", m.Entries[2].Licenses)
	}
}

func TestReader_Parse_Depmf(t *testing.T) {
	reader := NewReader()
	m, err := reader.Parse([]byte(`{
		"type": "dependency manifest",
		"version": "1.0.0",
		"projects": {
			"android-tools-static": {"version": "35.0.2", "license": ["Apache-2.0"]},
			"zlib": {"version": "1.3.1", "license": ["Zlib"]},
			"fmt": {"version": "undefined", "license": ["unknown"], "license_files": []}
		},
		"future_field": true
	}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if m.Format != entities.ManifestFormatDepmf {
		t.Errorf("Format = %v, want %v", m.Format, entities.ManifestFormatDepmf)
	}
	if len(m.Entries) != 3 {
		t.Fatalf("Entries count = %d, want 3", len(m.Entries))
	}

	root, ok := m.Lookup("android-tools-static")
	if !ok || root.Version != "35.0.2" {
		t.Errorf("root entry = %+v, want version 35.0.2", root)
	}
	fmtEntry, _ := m.Lookup("fmt")
	if fmtEntry.Version != "" || fmtEntry.Licenses != nil {
		t.Errorf("fmt = %+v, want no version and no license", fmtEntry)
	}
}

func TestReader_Parse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "invalid json", data: `{"zlib":`},
		{name: "empty input", data: ``},
		{name: "array top level", data: `["zlib"]`},
		{name: "string top level", data: `"zlib"`},
		{name: "number value", data: `{"zlib": 1.3}`},
		{name: "null value", data: `{"zlib": null}`},
		{name: "array value", data: `{"zlib": ["1.3.1"]}`},
		{name: "empty name", data: `{"": "1.0"}`},
		{name: "duplicate name", data: `{"zlib": "1.3.1", "zlib": "1.3.0"}`},
		{name: "empty version", data: `{"zlib": ""}`},
		{name: "object without version", data: `{"zlib": {"source": "wrap"}}`},
		{name: "object with numeric version", data: `{"zlib": {"version": 1}}`},
		{name: "unknown source", data: `{"zlib": {"version": "1.3.1", "source": "ftp"}}`},
		{name: "bad license", data: `{"zlib": {"version": "1.3.1", "license": 7}}`},
		{name: "trailing data", data: `{"zlib": "1.3.1"} {}`},
		{name: "depmf major 2", data: `{"type": "dependency manifest", "version": "2.0.0", "projects": {}}`},
		{name: "depmf without projects", data: `{"type": "dependency manifest", "version": "1.0.0"}`},
		{name: "depmf project not object", data: `{"type": "dependency manifest", "version": "1.0.0", "projects": {"zlib": "1.3.1"}}`},
		{name: "depmf projects not object", data: `{"type": "dependency manifest", "version": "1.0.0", "projects": []}`},
	}

	reader := NewReader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := reader.Parse([]byte(tt.data))
			if !errors.Is(err, entities.ErrManifestParse) {
				t.Errorf("Parse() error = %v, want ErrManifestParse", err)
			}
			if m != nil {
				t.Errorf("Parse() returned a manifest alongside an error")
			}
		})
	}
}

func TestReader_ReadFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "depmf.json")
	if err := os.WriteFile(path, []byte(`{"zlib":"1.3.1"}`), 0600); err != nil {
		t.Fatalf("Failed to write manifest: %v", err)
	}

	m, err := NewReader().ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(m.Entries) != 1 {
		t.Errorf("Entries count = %d, want 1", len(m.Entries))
	}

	if _, err := NewReader().ReadFile(filepath.Join(tmpDir, "missing.json")); err == nil {
		t.Error("ReadFile() should fail for a missing file")
	}
}
