package sourcetree

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/mail"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/meator/android-tools-static/internal/domain/entities"
)

// PatchesDir holds the patch series applied to the vendored submodules
const PatchesDir = "patches"

// ReadPatchSeries reads a NUL separated list of patch paths. Paths are
// slash separated and relative to PatchesDir.
func ReadPatchSeries(seriesPath string) ([]string, error) {
	//nolint:gosec // G304: the series file is named by the caller
	data, err := os.ReadFile(seriesPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrEnvironment, err)
	}

	var series []string
	for _, p := range strings.Split(string(data), "\x00") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		clean := path.Clean(p)
		if path.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "../") {
			return nil, fmt.Errorf("%w: %s lists %q outside of %s/", entities.ErrEnvironment, seriesPath, p, PatchesDir)
		}
		series = append(series, clean)
	}
	return series, nil
}

// SeriesSubmodule returns the submodule a series path patches, which is its
// first element
func SeriesSubmodule(seriesPath string) string {
	name, _, _ := strings.Cut(seriesPath, "/")
	return name
}

// VerifySubmodulePatches checks that the commits on top of HEAD in repoDir
// are patches, in order, the last patch being HEAD
func VerifySubmodulePatches(ctx context.Context, gitExe, repoDir string, patches []string) error {
	for n := 0; n < len(patches); n++ {
		patchPath := patches[len(patches)-1-n]
		commitID, err := CommitPatchID(ctx, gitExe, repoDir, n)
		if err != nil {
			return err
		}
		fileID, err := FilePatchID(ctx, gitExe, patchPath)
		if err != nil {
			return err
		}
		if commitID != fileID {
			return fmt.Errorf("%w: patch %s is not applied in %s: commit HEAD~%d has patch id %s, the patch has %s",
				entities.ErrEnvironment, patchPath, repoDir, n, commitID, fileID)
		}
	}
	return nil
}

var subjectDecoder = new(mime.WordDecoder)

// ParseFormatPatch reads the commit recorded in a `git format-patch` file
func ParseFormatPatch(r io.Reader) (entities.Commit, error) {
	br := bufio.NewReader(r)
	first, err := br.ReadString('\n')
	if err != nil && first == "" {
		return entities.Commit{}, fmt.Errorf("patch is empty")
	}
	fields := strings.Fields(first)
	if len(fields) < 2 || fields[0] != "From" || len(fields[1]) != objectNameLen {
		return entities.Commit{}, fmt.Errorf("patch does not start with a `From <commit>` line")
	}

	msg, err := mail.ReadMessage(br)
	if err != nil {
		return entities.Commit{}, fmt.Errorf("failed to parse patch headers: %w", err)
	}

	authors, err := mail.ParseAddressList(msg.Header.Get("From"))
	if err != nil {
		return entities.Commit{}, fmt.Errorf("failed to parse patch author: %w", err)
	}
	if len(authors) != 1 {
		return entities.Commit{}, fmt.Errorf("patch has %d authors, want 1", len(authors))
	}

	subject, err := subjectDecoder.DecodeHeader(msg.Header.Get("Subject"))
	if err != nil {
		return entities.Commit{}, fmt.Errorf("failed to decode patch subject: %w", err)
	}
	subject = strings.TrimPrefix(subject, "[PATCH] ")

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return entities.Commit{}, fmt.Errorf("failed to read patch: %w", err)
	}
	description, _, _ := strings.Cut(string(body), "---")
	description = strings.TrimSpace(description)

	message := subject
	if description != "" {
		message += "\n\n" + description
	}

	return entities.Commit{
		UID:         fields[1],
		AuthorName:  authors[0].Name,
		AuthorEmail: authors[0].Address,
		Message:     message,
	}, nil
}

// ReadFormatPatch parses the `git format-patch` file at patchPath
func ReadFormatPatch(patchPath string) (entities.Commit, error) {
	//nolint:gosec // G304: patch paths come from the patch series files
	f, err := os.Open(patchPath)
	if err != nil {
		return entities.Commit{}, fmt.Errorf("%w: %v", entities.ErrEnvironment, err)
	}
	defer f.Close()

	commit, err := ParseFormatPatch(f)
	if err != nil {
		return entities.Commit{}, fmt.Errorf("%w: %s: %v", entities.ErrEnvironment, patchPath, err)
	}
	return commit, nil
}

// WrapPatches verifies that every diff file of w is applied to its unpacked
// subproject and returns them in application order. The check reverts the
// patches, last first, in a scratch copy of the subproject.
func WrapPatches(ctx context.Context, gitExe, sourceDir string, w entities.WrapInfo) ([]entities.Patch, error) {
	if len(w.DiffFiles) == 0 {
		return nil, nil
	}

	subproject := filepath.Join(sourceDir, "subprojects", filepath.FromSlash(w.Directory))
	scratch, err := os.MkdirTemp("", "sbomgen-"+w.Name+"-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	if err := copyTree(subproject, scratch); err != nil {
		return nil, fmt.Errorf("%w: failed to copy subproject %s: %v", entities.ErrEnvironment, w.Directory, err)
	}

	patches := make([]entities.Patch, len(w.DiffFiles))
	for i := len(w.DiffFiles) - 1; i >= 0; i-- {
		rel := "subprojects/packagefiles/" + w.DiffFiles[i]
		patchPath := filepath.Join(sourceDir, filepath.FromSlash(rel))

		//nolint:gosec // G304: diff files are named by the wrap file
		content, err := os.ReadFile(patchPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", entities.ErrEnvironment, err)
		}
		if err := ApplyReverse(ctx, gitExe, scratch, patchPath); err != nil {
			return nil, fmt.Errorf("%w: patch %s is not applied to subprojects/%s, regenerate the subprojects: %v",
				entities.ErrEnvironment, rel, w.Directory, err)
		}
		patches[i] = entities.Patch{Path: rel, Content: string(content)}
	}
	return patches, nil
}

// copyTree copies the regular files and directories under src into dst.
// Symbolic links are copied as links.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o755)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(p)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				return err
			}
			//nolint:gosec // G304: p is inside the subproject being copied
			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			return os.WriteFile(target, data, info.Mode().Perm())
		default:
			return nil
		}
	})
}

