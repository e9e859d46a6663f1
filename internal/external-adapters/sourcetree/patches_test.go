package sourcetree

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meator/android-tools-static/internal/domain/entities"
)

const formatPatch = `From 5f2a9c0b7e8d1f3a4b6c8d0e2f4a6b8c0d2e4f6a Mon Sep 17 00:00:00 2001
From: =?UTF-8?q?J=C3=A1n=20Nov=C3=A1k?= <jan@example.com>
Date: Tue, 4 Mar 2025 10:00:00 +0100
Subject: [PATCH] Fix the build
 with musl

Include <sys/types.h> explicitly.
musl does not pull it in.
---
 libbase/file.cpp | 1 +
 1 file changed, 1 insertion(+)

diff --git a/libbase/file.cpp b/libbase/file.cpp
--- a/libbase/file.cpp
+++ b/libbase/file.cpp
@@ -1 +1,2 @@
+#include <sys/types.h>
 #include "android-base/file.h"
--
2.48.1
`

func TestParseFormatPatch(t *testing.T) {
	commit, err := ParseFormatPatch(strings.NewReader(formatPatch))
	if err != nil {
		t.Fatalf("ParseFormatPatch() error = %v", err)
	}
	if commit.UID != "5f2a9c0b7e8d1f3a4b6c8d0e2f4a6b8c0d2e4f6a" {
		t.Errorf("UID = %v", commit.UID)
	}
	if commit.AuthorName != "Ján Novák" || commit.AuthorEmail != "jan@example.com" {
		t.Errorf("author = %q <%q>", commit.AuthorName, commit.AuthorEmail)
	}
	want := "Fix the build with musl\n\nInclude <sys/types.h> explicitly.\nmusl does not pull it in."
	if commit.Message != want {
		t.Errorf("Message = %q, want %q", commit.Message, want)
	}
}

func TestParseFormatPatch_SubjectOnly(t *testing.T) {
	patch := "From 5f2a9c0b7e8d1f3a4b6c8d0e2f4a6b8c0d2e4f6a Mon Sep 17 00:00:00 2001\n" +
		"From: Dev <dev@example.com>\nSubject: [PATCH] Bump version\n\n---\n x | 1 +\n"
	commit, err := ParseFormatPatch(strings.NewReader(patch))
	if err != nil {
		t.Fatalf("ParseFormatPatch() error = %v", err)
	}
	if commit.Message != "Bump version" {
		t.Errorf("Message = %q, want the subject alone", commit.Message)
	}
}

func TestParseFormatPatch_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		patch string
	}{
		{name: "empty", patch: ""},
		{name: "plain diff", patch: "diff --git a/x b/x\n"},
		{name: "short commit", patch: "From 5f2a Mon Sep 17 00:00:00 2001\nFrom: a <a@b>\n\n"},
		{name: "two authors", patch: "From 5f2a9c0b7e8d1f3a4b6c8d0e2f4a6b8c0d2e4f6a x\nFrom: a <a@b.c>, b <b@b.c>\nSubject: x\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFormatPatch(strings.NewReader(tt.patch)); err == nil {
				t.Error("ParseFormatPatch() should fail")
			}
		})
	}
}

func TestReadPatchSeries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nmeum.series")
	writeFile(t, path, "core/0001-a.patch\x00libbase/0001-b.patch\x00core/0002-c.patch\x00")

	series, err := ReadPatchSeries(path)
	if err != nil {
		t.Fatalf("ReadPatchSeries() error = %v", err)
	}
	want := []string{"core/0001-a.patch", "libbase/0001-b.patch", "core/0002-c.patch"}
	if strings.Join(series, ",") != strings.Join(want, ",") {
		t.Errorf("ReadPatchSeries() = %v, want %v", series, want)
	}
	if got := SeriesSubmodule(series[1]); got != "libbase" {
		t.Errorf("SeriesSubmodule() = %v, want libbase", got)
	}

	escaping := filepath.Join(dir, "bad.series")
	writeFile(t, escaping, "../secret.patch\x00")
	if _, err := ReadPatchSeries(escaping); !errors.Is(err, entities.ErrEnvironment) {
		t.Errorf("ReadPatchSeries() error = %v, want ErrEnvironment", err)
	}
	if _, err := ReadPatchSeries(filepath.Join(dir, "missing")); !errors.Is(err, entities.ErrEnvironment) {
		t.Errorf("ReadPatchSeries() error = %v, want ErrEnvironment", err)
	}
}

func TestFilePatchID_GitFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.patch")
	writeFile(t, path, formatPatch)
	if _, err := FilePatchID(context.Background(), "/nonexistent/git", path); !errors.Is(err, entities.ErrEnvironment) {
		t.Errorf("FilePatchID() error = %v, want ErrEnvironment", err)
	}
}

func requireGit(t *testing.T) string {
	t.Helper()
	gitExe, err := exec.LookPath("git")
	if err != nil {
		t.Skip("git is not installed")
	}
	return gitExe
}

func git(t *testing.T, dir string, args ...string) string {
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

// commitRepo creates a repository with three commits and returns the
// format-patch of the last one
func commitRepo(t *testing.T, dir string) string {
	t.Helper()
	git(t, dir, "init", "-q")
	for i, content := range []string{"one\n", "one\ntwo\n", "one\ntwo\nthree\n"} {
		writeFile(t, filepath.Join(dir, "file.txt"), content)
		git(t, dir, "add", "file.txt")
		git(t, dir, "commit", "-q", "-m", []string{"Initial", "Add two", "Add three"}[i])
	}
	return git(t, dir, "format-patch", "-1", "HEAD", "--stdout")
}

func TestVerifySubmodulePatches(t *testing.T) {
	gitExe := requireGit(t)
	ctx := context.Background()
	repo := t.TempDir()
	patch := commitRepo(t, repo)

	patchDir := t.TempDir()
	applied := filepath.Join(patchDir, "0001-add-three.patch")
	writeFile(t, applied, patch)

	commitID, err := CommitPatchID(ctx, gitExe, repo, 0)
	if err != nil {
		t.Fatalf("CommitPatchID() error = %v", err)
	}
	fileID, err := FilePatchID(ctx, gitExe, applied)
	if err != nil {
		t.Fatalf("FilePatchID() error = %v", err)
	}
	if commitID != fileID || len(commitID) != objectNameLen {
		t.Errorf("patch ids differ: commit %q, file %q", commitID, fileID)
	}

	if err := VerifySubmodulePatches(ctx, gitExe, repo, []string{applied}); err != nil {
		t.Errorf("VerifySubmodulePatches() error = %v", err)
	}

	// HEAD~1 is "Add two", not this patch
	if err := VerifySubmodulePatches(ctx, gitExe, repo, []string{applied, applied}); !errors.Is(err, entities.ErrEnvironment) {
		t.Errorf("VerifySubmodulePatches() error = %v, want ErrEnvironment", err)
	}

	commit, err := ReadFormatPatch(applied)
	if err != nil {
		t.Fatalf("ReadFormatPatch() error = %v", err)
	}
	head := strings.TrimSpace(git(t, repo, "rev-parse", "HEAD"))
	if commit.UID != head || commit.AuthorName != "Test Author" || commit.Message != "Add three" {
		t.Errorf("ReadFormatPatch() = %+v, want HEAD %s by Test Author", commit, head)
	}
	if got, err := HeadCommit(ctx, gitExe, repo); err != nil || got != head {
		t.Errorf("HeadCommit() = %v, %v, want %v", got, err, head)
	}
}

const noinstallPatch = `diff --git a/meson.build b/meson.build
--- a/meson.build
+++ b/meson.build
@@ -1 +1 @@
-install = true
+install = false
`

func TestWrapPatches(t *testing.T) {
	gitExe := requireGit(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		build   string
		wantErr bool
	}{
		{name: "applied", build: "install = false\n"},
		{name: "not applied", build: "install = true\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sourceDir := t.TempDir()
			writeFile(t, filepath.Join(sourceDir, "subprojects", "zlib-1.3.1", "meson.build"), tt.build)
			writeFile(t, filepath.Join(sourceDir, "subprojects", "packagefiles", "zlib", "noinstall.patch"), noinstallPatch)
			w := entities.WrapInfo{Name: "zlib", Directory: "zlib-1.3.1", DiffFiles: []string{"zlib/noinstall.patch"}}

			patches, err := WrapPatches(ctx, gitExe, sourceDir, w)
			if tt.wantErr {
				if !errors.Is(err, entities.ErrEnvironment) {
					t.Errorf("WrapPatches() error = %v, want ErrEnvironment", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("WrapPatches() error = %v", err)
			}
			if len(patches) != 1 || patches[0].Path != "subprojects/packagefiles/zlib/noinstall.patch" || patches[0].Content != noinstallPatch {
				t.Errorf("WrapPatches() = %+v", patches)
			}

			// The check runs on a copy
			//nolint:gosec // G304: test file
			build, err := os.ReadFile(filepath.Join(sourceDir, "subprojects", "zlib-1.3.1", "meson.build"))
			if err != nil || string(build) != tt.build {
				t.Errorf("subproject was modified: %q, %v", build, err)
			}
		})
	}
}

func TestWrapPatches_NoDiffFiles(t *testing.T) {
	patches, err := WrapPatches(context.Background(), "/nonexistent/git", t.TempDir(), entities.WrapInfo{Name: "gtest"})
	if err != nil || patches != nil {
		t.Errorf("WrapPatches() = %v, %v, want nothing", patches, err)
	}
}
