package gateways

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meator/android-tools-static/internal/domain/entities"
	"github.com/meator/android-tools-static/internal/domain/interfaces"
	"github.com/meator/android-tools-static/internal/external-adapters/yaml"
)

// stubRunner answers version commands from a table
type stubRunner struct {
	versions map[string]string
	calls    int
}

func (r *stubRunner) Version(_ context.Context, command, _ string) (string, error) {
	r.calls++
	v, ok := r.versions[command]
	if !ok {
		return "", entities.ErrEnvironment
	}
	return v, nil
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

const loaderProfile = `runner: ubuntu-24.04
submodules:
  core: 0123456789abcdef0123456789abcdef01234567
extras:
  alpine: 3.21.0
  alpine-meson: {command: "apk list --installed meson", prefix: "meson-"}
`

func newTestLoader(t *testing.T, runner *stubRunner) (*environmentLoader, string) {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "linux.yml"), loaderProfile)
	loader := NewEnvironmentLoader(yaml.NewEnvironmentRepository(dir), &interfaces.NoOpLogger{})
	loader.runner = runner
	return loader, dir
}

func TestEnvironmentLoader_RunsVersionCommands(t *testing.T) {
	runner := &stubRunner{versions: map[string]string{"apk list --installed meson": "1.6.1-r0"}}
	loader, _ := newTestLoader(t, runner)

	env, err := loader.Load(context.Background(), entities.EnvironmentRequest{Profile: "linux"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	meson, ok := env.Extra("alpine-meson")
	if !ok {
		t.Fatal("alpine-meson missing")
	}
	if meson.Version != "1.6.1-r0" || meson.Command != "" {
		t.Errorf("alpine-meson = %+v, want queried version and no command", meson)
	}
	if alpine, _ := env.Extra("alpine"); alpine.Version != "3.21.0" {
		t.Errorf("alpine = %+v", alpine)
	}
}

func TestEnvironmentLoader_FakeVersions(t *testing.T) {
	runner := &stubRunner{}
	loader, _ := newTestLoader(t, runner)

	env, err := loader.Load(context.Background(), entities.EnvironmentRequest{Profile: "linux", FakeVersions: true})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if runner.calls != 0 {
		t.Errorf("runner called %d times, want 0", runner.calls)
	}
	if meson, _ := env.Extra("alpine-meson"); meson.Version != FakeVersion {
		t.Errorf("alpine-meson version = %v, want %v", meson.Version, FakeVersion)
	}
}

func TestEnvironmentLoader_VersionCommandFailure(t *testing.T) {
	loader, _ := newTestLoader(t, &stubRunner{})

	_, err := loader.Load(context.Background(), entities.EnvironmentRequest{Profile: "linux"})
	if !errors.Is(err, entities.ErrEnvironment) {
		t.Errorf("Load() error = %v, want ErrEnvironment", err)
	}
}

func TestEnvironmentLoader_VersionInfo(t *testing.T) {
	runner := &stubRunner{versions: map[string]string{"apk list --installed meson": "1.6.1-r0"}}
	loader, dir := newTestLoader(t, runner)

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "agreeing", content: `{"alpine":"3.21.0","gcc":"14.2.0"}`},
		{name: "conflicting", content: `{"alpine":"3.20.0"}`, wantErr: entities.ErrConflictingVersion},
		{name: "empty version", content: `{"gcc":""}`, wantErr: entities.ErrEnvironment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			writeTestFile(t, path, tt.content)

			env, err := loader.Load(context.Background(), entities.EnvironmentRequest{Profile: "linux", VersionInfoPath: path})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if gcc, ok := env.Extra("gcc"); !ok || gcc.Version != "14.2.0" {
				t.Errorf("gcc = %+v, %v", gcc, ok)
			}
		})
	}
}

func TestEnvironmentLoader_SourceTree(t *testing.T) {
	runner := &stubRunner{versions: map[string]string{"apk list --installed meson": "1.6.1-r0"}}
	loader, _ := newTestLoader(t, runner)

	sourceDir := t.TempDir()
	writeTestFile(t, filepath.Join(sourceDir, "subprojects", "zlib.wrap"), "[wrap-file]\nwrapdb_version = 1.3.1-2\n")
	writeTestFile(t, filepath.Join(sourceDir, "subprojects", "libusb.wrap"), "[wrap-file]\ndirectory = libusb-1.0.27\nwrapdb_version = 1.0.27-1\n")
	writeTestFile(t, filepath.Join(sourceDir, "base_versions.ini"), "[base_versions]\nnmeum_version = 35.0.2\nmsys2_version = 35.0.2-1\n")

	manifest := &entities.Manifest{
		Format: entities.ManifestFormatFlat,
		Entries: []entities.ManifestEntry{
			{Name: "zlib", Version: "1.3.1"},
			{Name: "libusb", Version: "1.0.27"},
		},
	}

	// The profile pins submodules, so git is never run
	env, err := loader.Load(context.Background(), entities.EnvironmentRequest{
		Profile:   "linux",
		SourceDir: sourceDir,
		GitExe:    "/nonexistent/git",
		Manifest:  manifest,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if w, ok := env.Wrap("zlib"); !ok || w.WrapDBVersion != "1.3.1-2" {
		t.Errorf("zlib wrap = %+v, %v", w, ok)
	}
	if w, ok := env.Wrap("libusb"); !ok || w.WrapDBVersion != "1.0.27-1" || w.Directory != "libusb-1.0.27" {
		t.Errorf("libusb wrap = %+v, %v", w, ok)
	}
	if env.BaseVersions.Nmeum != "35.0.2" || env.BaseVersions.MSYS2 != "35.0.2-1" {
		t.Errorf("BaseVersions = %+v", env.BaseVersions)
	}
}

func TestEnvironmentLoader_MissingProfile(t *testing.T) {
	loader, _ := newTestLoader(t, &stubRunner{})

	if _, err := loader.Load(context.Background(), entities.EnvironmentRequest{Profile: "solaris"}); !errors.Is(err, entities.ErrEnvironment) {
		t.Errorf("Load() error = %v, want ErrEnvironment", err)
	}
}

func TestEnvironmentLoader_MissingWrapFile(t *testing.T) {
	loader, _ := newTestLoader(t, &stubRunner{versions: map[string]string{"apk list --installed meson": "1.6.1-r0"}})

	manifest := &entities.Manifest{
		Format:  entities.ManifestFormatDepmf,
		Entries: []entities.ManifestEntry{{Name: "zlib", Version: "1.3.1"}},
	}
	_, err := loader.Load(context.Background(), entities.EnvironmentRequest{
		Profile:   "linux",
		SourceDir: t.TempDir(),
		GitExe:    "/nonexistent/git",
		Manifest:  manifest,
	})
	if !errors.Is(err, entities.ErrEnvironment) {
		t.Errorf("Load() error = %v, want ErrEnvironment", err)
	}
}

const adbWinApiWrap = `[wrap-file]
directory = AdbWinApi-1.0.0
source_url = https://github.com/meator/AdbWinApi/releases/download/v1.0.0/AdbWinApi-1.0.0.zip
source_filename = AdbWinApi-1.0.0.zip
source_hash = 9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08
`

func TestEnvironmentLoader_AdbWinApiArchive(t *testing.T) {
	loader, _ := newTestLoader(t, &stubRunner{versions: map[string]string{"apk list --installed meson": "1.6.1-r0"}})

	sourceDir := t.TempDir()
	writeTestFile(t, filepath.Join(sourceDir, "subprojects", "AdbWinApi.wrap"), adbWinApiWrap)
	writeTestFile(t, filepath.Join(sourceDir, "subprojects", "zlib.wrap"), "[wrap-file]\ndirectory = zlib-1.3.1\nwrapdb_version = 1.3.1-2\n")

	manifest := &entities.Manifest{
		Format: entities.ManifestFormatDepmf,
		Entries: []entities.ManifestEntry{
			{Name: "AdbWinApi", Version: "1.0.0"},
			{Name: "zlib", Version: "1.3.1"},
		},
	}
	env, err := loader.Load(context.Background(), entities.EnvironmentRequest{
		Profile:   "linux",
		SourceDir: sourceDir,
		GitExe:    "/nonexistent/git",
		Manifest:  manifest,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	archive, ok := env.Archive("AdbWinApi")
	if !ok {
		t.Fatal("AdbWinApi archive missing")
	}
	if archive.SHA256 != "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08" ||
		!strings.HasSuffix(archive.URL, "/AdbWinApi-1.0.0.zip") {
		t.Errorf("archive = %+v", archive)
	}
	if _, ok := env.Wrap("AdbWinApi"); ok {
		t.Error("AdbWinApi is not a wrapdb wrap")
	}
	if _, ok := env.Wrap("zlib"); !ok {
		t.Error("zlib wrap missing")
	}
}

func TestEnvironmentLoader_PatchSeriesNeedSourceDir(t *testing.T) {
	loader, _ := newTestLoader(t, &stubRunner{versions: map[string]string{"apk list --installed meson": "1.6.1-r0"}})
	_, err := loader.Load(context.Background(), entities.EnvironmentRequest{Profile: "linux", NmeumPatches: "nmeum.series"})
	if !errors.Is(err, entities.ErrEnvironment) {
		t.Errorf("Load() error = %v, want ErrEnvironment", err)
	}
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}
}

func runTestGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	base := []string{"-c", "user.name=Test Author", "-c", "user.email=author@example.com", "-c", "commit.gpgsign=false"}
	//nolint:gosec // G204: test helper
	cmd := exec.Command("git", append(base, args...)...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s failed: %v: %s", strings.Join(args, " "), err, out)
	}
	return string(out)
}

func TestEnvironmentLoader_WrapPatches(t *testing.T) {
	requireGit(t)
	loader, _ := newTestLoader(t, &stubRunner{versions: map[string]string{"apk list --installed meson": "1.6.1-r0"}})

	sourceDir := t.TempDir()
	writeTestFile(t, filepath.Join(sourceDir, "subprojects", "zlib.wrap"),
		"[wrap-file]\ndirectory = zlib-1.3.1\nwrapdb_version = 1.3.1-2\ndiff_files = zlib/noinstall.patch\n")
	writeTestFile(t, filepath.Join(sourceDir, "subprojects", "zlib-1.3.1", "meson.build"), "install = false\n")
	writeTestFile(t, filepath.Join(sourceDir, "subprojects", "packagefiles", "zlib", "noinstall.patch"),
		"--- a/meson.build\n+++ b/meson.build\n@@ -1 +1 @@\n-install = true\n+install = false\n")

	env, err := loader.Load(context.Background(), entities.EnvironmentRequest{
		Profile:     "linux",
		SourceDir:   sourceDir,
		GitExe:      "git",
		RepoLink:    "https://github.com/meator/android-tools-static/blob/${ref}/${path}",
		RepoLinkRef: "v35.0.2.1",
		Manifest: &entities.Manifest{
			Format:  entities.ManifestFormatFlat,
			Entries: []entities.ManifestEntry{{Name: "zlib", Version: "1.3.1"}},
		},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	w, _ := env.Wrap("zlib")
	if len(w.Patches) != 1 {
		t.Fatalf("Patches = %+v, want 1", w.Patches)
	}
	p := w.Patches[0]
	if p.URL != "https://github.com/meator/android-tools-static/blob/v35.0.2.1/subprojects/packagefiles/zlib/noinstall.patch" {
		t.Errorf("URL = %v", p.URL)
	}
	if p.Issue == nil || p.Issue.Type != entities.IssueEnhancement {
		t.Errorf("Issue = %+v, want the noinstall enhancement", p.Issue)
	}
}

func TestEnvironmentLoader_PatchSeries(t *testing.T) {
	requireGit(t)
	loader, _ := newTestLoader(t, &stubRunner{versions: map[string]string{"apk list --installed meson": "1.6.1-r0"}})

	sourceDir := t.TempDir()
	repo := filepath.Join(sourceDir, "vendor", "core")
	if err := os.MkdirAll(repo, 0o750); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	runTestGit(t, repo, "init", "-q")
	for i, msg := range []string{"Initial", "Use musl headers", "Drop selinux"} {
		writeTestFile(t, filepath.Join(repo, "file.txt"), strings.Repeat("line\n", i+1))
		runTestGit(t, repo, "add", "file.txt")
		runTestGit(t, repo, "commit", "-q", "-m", msg)
	}
	nmeumPatch := runTestGit(t, repo, "format-patch", "-1", "HEAD~1", "--stdout")
	portPatch := runTestGit(t, repo, "format-patch", "-1", "HEAD", "--stdout")
	writeTestFile(t, filepath.Join(sourceDir, "patches", "core", "0001-musl.patch"), nmeumPatch)
	writeTestFile(t, filepath.Join(sourceDir, "patches", "core", "0002-selinux.patch"), portPatch)

	series := t.TempDir()
	nmeum := filepath.Join(series, "nmeum.series")
	port := filepath.Join(series, "port.series")
	writeTestFile(t, nmeum, "core/0001-musl.patch\x00")
	writeTestFile(t, port, "core/0002-selinux.patch\x00")

	req := entities.EnvironmentRequest{
		Profile:      "linux",
		SourceDir:    sourceDir,
		GitExe:       "git",
		NmeumPatches: nmeum,
		PortPatches:  port,
		RepoLink:     "https://example.com/${path}",
	}
	env, err := loader.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(env.NmeumCommits) != 1 || env.NmeumCommits[0].Message != "Use musl headers" {
		t.Errorf("NmeumCommits = %+v", env.NmeumCommits)
	}
	if len(env.PortCommits) != 1 || env.PortCommits[0].URL != "https://example.com/patches/core/0002-selinux.patch" {
		t.Errorf("PortCommits = %+v", env.PortCommits)
	}
	if env.PortCommits[0].AuthorEmail != "author@example.com" {
		t.Errorf("author = %v", env.PortCommits[0].AuthorEmail)
	}

	// Swapped series no longer match the commits on top of HEAD
	req.NmeumPatches, req.PortPatches = port, nmeum
	if _, err := loader.Load(context.Background(), req); !errors.Is(err, entities.ErrEnvironment) {
		t.Errorf("Load() error = %v, want ErrEnvironment", err)
	}
}
