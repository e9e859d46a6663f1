package sourcetree

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/meator/android-tools-static/internal/domain/entities"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestReadWrap(t *testing.T) {
	sourceDir := t.TempDir()
	writeFile(t, filepath.Join(sourceDir, "subprojects", "zlib.wrap"), `[wrap-file]
directory = zlib-1.3.1
source_url = http://zlib.net/fossils/zlib-1.3.1.tar.gz
source_filename = zlib-1.3.1.tar.gz
source_hash = 9a93b2b7dfdac77ceba5a558a580e74667dd6fede4585b91eefb60f03b72df23
patch_filename = zlib_1.3.1-2_patch.zip
wrapdb_version = 1.3.1-2

[provide]
zlib = zlib_dep
`)

	info, err := ReadWrap(sourceDir, "zlib")
	if err != nil {
		t.Fatalf("ReadWrap() error = %v", err)
	}
	if info.Name != "zlib" || info.WrapDBVersion != "1.3.1-2" {
		t.Errorf("ReadWrap() = %+v, want zlib 1.3.1-2", info)
	}
	if info.Directory != "zlib-1.3.1" || len(info.DiffFiles) != 0 {
		t.Errorf("ReadWrap() = %+v, want directory zlib-1.3.1 and no diff files", info)
	}
}

func TestReadWrap_DiffFiles(t *testing.T) {
	sourceDir := t.TempDir()
	writeFile(t, filepath.Join(sourceDir, "subprojects", "protobuf.wrap"), `[wrap-file]
directory = protobuf-25.2
wrapdb_version = 25.2-2
diff_files = protobuf/0001-fix-host-abseil-compilation.patch, protobuf/0003-fix-windows-symlinks.patch
`)
	writeFile(t, filepath.Join(sourceDir, "subprojects", "nodir.wrap"), `[wrap-file]
wrapdb_version = 1-1
diff_files = x/a.patch
`)

	info, err := ReadWrap(sourceDir, "protobuf")
	if err != nil {
		t.Fatalf("ReadWrap() error = %v", err)
	}
	want := []string{"protobuf/0001-fix-host-abseil-compilation.patch", "protobuf/0003-fix-windows-symlinks.patch"}
	if len(info.DiffFiles) != len(want) || info.DiffFiles[0] != want[0] || info.DiffFiles[1] != want[1] {
		t.Errorf("DiffFiles = %q, want %q", info.DiffFiles, want)
	}

	if _, err := ReadWrap(sourceDir, "nodir"); !errors.Is(err, entities.ErrEnvironment) {
		t.Errorf("ReadWrap() error = %v, want ErrEnvironment for diff_files without directory", err)
	}
}

func TestReadArchiveWrap(t *testing.T) {
	sourceDir := t.TempDir()
	writeFile(t, filepath.Join(sourceDir, "subprojects", "AdbWinApi.wrap"), `[wrap-file]
directory = AdbWinApi-1.0.0
source_url = https://github.com/meator/AdbWinApi/releases/download/v1.0.0/AdbWinApi-1.0.0.zip
source_filename = AdbWinApi-1.0.0.zip
source_hash = 9F86D081884C7D659A2FEAA0C55AD015A3BF4F1B2B0B822CD15D6C15B0F00A08
`)
	writeFile(t, filepath.Join(sourceDir, "subprojects", "nohash.wrap"), `[wrap-file]
source_url = https://example.com/a.zip
`)
	writeFile(t, filepath.Join(sourceDir, "subprojects", "nourl.wrap"),
		`[wrap-file]
source_hash = 9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08
`)

	archive, err := ReadArchiveWrap(sourceDir, "AdbWinApi")
	if err != nil {
		t.Fatalf("ReadArchiveWrap() error = %v", err)
	}
	if archive.URL != "https://github.com/meator/AdbWinApi/releases/download/v1.0.0/AdbWinApi-1.0.0.zip" {
		t.Errorf("URL = %v", archive.URL)
	}
	if archive.SHA256 != "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08" {
		t.Errorf("SHA256 = %v, want the lowercase digest", archive.SHA256)
	}

	for _, name := range []string{"missing", "nohash", "nourl"} {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadArchiveWrap(sourceDir, name); !errors.Is(err, entities.ErrEnvironment) {
				t.Errorf("ReadArchiveWrap() error = %v, want ErrEnvironment", err)
			}
		})
	}
}

func TestReadWrap_Invalid(t *testing.T) {
	sourceDir := t.TempDir()
	writeFile(t, filepath.Join(sourceDir, "subprojects", "git.wrap"), "[wrap-git]\nurl = https://example.com/x.git\n")
	writeFile(t, filepath.Join(sourceDir, "subprojects", "noversion.wrap"), "[wrap-file]\ndirectory = x\n")

	for _, name := range []string{"missing", "git", "noversion"} {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadWrap(sourceDir, name); !errors.Is(err, entities.ErrEnvironment) {
				t.Errorf("ReadWrap() error = %v, want ErrEnvironment", err)
			}
		})
	}
}

func TestReadGitModules(t *testing.T) {
	sourceDir := t.TempDir()
	writeFile(t, filepath.Join(sourceDir, ".gitmodules"), `[submodule "vendor/adb"]
	path = vendor/adb
	url = https://android.googlesource.com/platform/packages/modules/adb
[submodule "vendor/core"]
	path = vendor/core
	url = https://android.googlesource.com/platform/system/core
	branch = main
`)

	modules, err := ReadGitModules(sourceDir)
	if err != nil {
		t.Fatalf("ReadGitModules() error = %v", err)
	}
	if len(modules) != 2 {
		t.Fatalf("ReadGitModules() count = %d, want 2", len(modules))
	}
	if modules[0].Name != "adb" || modules[0].Path != "vendor/adb" {
		t.Errorf("modules[0] = %+v, want adb at vendor/adb", modules[0])
	}
	if modules[1].URL != "https://android.googlesource.com/platform/system/core" {
		t.Errorf("modules[1].URL = %v", modules[1].URL)
	}
}

func TestReadGitModules_MissingURL(t *testing.T) {
	sourceDir := t.TempDir()
	writeFile(t, filepath.Join(sourceDir, ".gitmodules"), "[submodule \"vendor/adb\"]\n\tpath = vendor/adb\n")

	if _, err := ReadGitModules(sourceDir); !errors.Is(err, entities.ErrEnvironment) {
		t.Errorf("ReadGitModules() error = %v, want ErrEnvironment", err)
	}
}

func TestReadBaseVersions(t *testing.T) {
	sourceDir := t.TempDir()
	writeFile(t, filepath.Join(sourceDir, "base_versions.ini"), "[base_versions]\nnmeum_version = 35.0.2\nmsys2_version = 35.0.2-1\n")

	versions, err := ReadBaseVersions(sourceDir)
	if err != nil {
		t.Fatalf("ReadBaseVersions() error = %v", err)
	}
	if versions.Nmeum != "35.0.2" || versions.MSYS2 != "35.0.2-1" {
		t.Errorf("ReadBaseVersions() = %+v", versions)
	}

	writeFile(t, filepath.Join(sourceDir, "base_versions.ini"), "[base_versions]\nnmeum_version = 35.0.2\n")
	if _, err := ReadBaseVersions(sourceDir); !errors.Is(err, entities.ErrEnvironment) {
		t.Errorf("ReadBaseVersions() error = %v, want ErrEnvironment", err)
	}
}
