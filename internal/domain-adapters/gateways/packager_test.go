package gateways

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/meator/android-tools-static/internal/domain/services"
)

func writePrefix(t *testing.T) string {
	t.Helper()
	prefix := filepath.Join(t.TempDir(), "prefix")
	if err := os.MkdirAll(filepath.Join(prefix, "bin"), 0750); err != nil {
		t.Fatalf("Failed to create prefix: %v", err)
	}
	//nolint:gosec // G306: Test executable binary needs 0700 permissions
	if err := os.WriteFile(filepath.Join(prefix, "bin", "adb"), []byte("fake adb binary"), 0700); err != nil {
		t.Fatalf("Failed to create test binary: %v", err)
	}
	//nolint:gosec // G306: Test executable binary needs 0700 permissions
	if err := os.WriteFile(filepath.Join(prefix, "bin", "fastboot"), []byte("fake fastboot binary"), 0700); err != nil {
		t.Fatalf("Failed to create test binary: %v", err)
	}
	return prefix
}

func writeSBOM(t *testing.T) string {
	t.Helper()
	sbomPath := filepath.Join(t.TempDir(), "sbom.cdx.json")
	if err := os.WriteFile(sbomPath, []byte(`{"bomFormat":"CycloneDX"}`+"\n"), 0600); err != nil {
		t.Fatalf("Failed to write SBOM: %v", err)
	}
	return sbomPath
}

func TestPackager_PackageArtifact_RelocatesSBOM(t *testing.T) {
	prefix := writePrefix(t)
	outDir := t.TempDir()

	artifact, err := NewPackager("android-tools-static").PackageArtifact(context.Background(), PackageRequest{
		PrefixDir: prefix,
		OutputDir: outDir,
		Version:   "v35.0.2.1",
		Platform:  "linux-x86_64",
		SBOMPath:  writeSBOM(t),
		ModTime:   time.Unix(1700000000, 0),
	})
	if err != nil {
		t.Fatalf("PackageArtifact() error = %v", err)
	}

	if artifact.Name != "android-tools-static-35.0.2.1-linux-x86_64.tar.gz" {
		t.Errorf("Name = %v", artifact.Name)
	}
	if artifact.Type != "archive" {
		t.Errorf("Type = %v, want archive", artifact.Type)
	}

	names, err := ListArchive(artifact.Path)
	if err != nil {
		t.Fatalf("ListArchive() error = %v", err)
	}
	want := []string{
		"bin",
		"bin/adb",
		"bin/fastboot",
		"share",
		"share/android-tools-static",
		SBOMArchivePath,
	}
	if !slices.Equal(names, want) {
		t.Errorf("entries = %v, want %v", names, want)
	}

	if err := services.NewChecksumService().VerifySidecar(artifact.Path); err != nil {
		t.Errorf("VerifySidecar() error = %v", err)
	}
}

func TestPackager_PackageArtifact_Reproducible(t *testing.T) {
	prefix := writePrefix(t)
	sbomPath := writeSBOM(t)

	build := func() []byte {
		outDir := t.TempDir()
		artifact, err := NewPackager("android-tools-static").PackageArtifact(context.Background(), PackageRequest{
			PrefixDir: prefix,
			OutputDir: outDir,
			Version:   "35.0.2.1",
			Platform:  "windows-x86_64",
			SBOMPath:  sbomPath,
			ModTime:   time.Unix(1700000000, 0),
		})
		if err != nil {
			t.Fatalf("PackageArtifact() error = %v", err)
		}
		//nolint:gosec // G304: test file
		data, err := os.ReadFile(artifact.Path)
		if err != nil {
			t.Fatalf("Failed to read archive: %v", err)
		}
		return data
	}

	first := build()
	// Touching the files must not change the archive
	now := time.Now()
	if err := os.Chtimes(filepath.Join(prefix, "bin", "adb"), now, now); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}
	if !bytes.Equal(first, build()) {
		t.Error("archives differ between identical builds")
	}
}

func TestPackager_PackageArtifact_Errors(t *testing.T) {
	prefix := writePrefix(t)
	notDir := filepath.Join(prefix, "bin", "adb")

	tests := []struct {
		name string
		req  PackageRequest
	}{
		{"missing prefix", PackageRequest{PrefixDir: "/nonexistent/prefix"}},
		{"prefix is a file", PackageRequest{PrefixDir: notDir}},
		{"missing sbom", PackageRequest{PrefixDir: prefix, SBOMPath: "/nonexistent/sbom.cdx.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.OutputDir = t.TempDir()
			tt.req.Version = "35.0.2.1"
			tt.req.Platform = "linux-x86_64"
			if _, err := NewPackager("android-tools-static").PackageArtifact(context.Background(), tt.req); err == nil {
				t.Error("PackageArtifact() expected error")
			}
		})
	}
}
