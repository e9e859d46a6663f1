package sourcetree

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/meator/android-tools-static/internal/domain/entities"
)

// objectNameLen is the length of a SHA-1 object name
const objectNameLen = 40

// ParseLsTree maps submodule paths to pinned commits from the output of
// `git ls-tree -z --format=%(objecttype)%(objectname)%(path)`.
func ParseLsTree(out []byte) map[string]string {
	commits := make(map[string]string)
	for _, record := range bytes.Split(out, []byte{0}) {
		rest, ok := bytes.CutPrefix(record, []byte("commit"))
		if !ok || len(rest) <= objectNameLen {
			continue
		}
		commits[string(rest[objectNameLen:])] = string(rest[:objectNameLen])
	}
	return commits
}

// PinnedCommits lists the gitlinks recorded in HEAD of dir
func PinnedCommits(ctx context.Context, gitExe, dir string) (map[string]string, error) {
	out, err := runGit(ctx, gitExe, dir, nil, "ls-tree", "HEAD", "-z", "--format=%(objecttype)%(objectname)%(path)")
	if err != nil {
		return nil, err
	}
	return ParseLsTree(out), nil
}

// HeadCommit returns the object name of HEAD in dir
func HeadCommit(ctx context.Context, gitExe, dir string) (string, error) {
	out, err := runGit(ctx, gitExe, dir, nil, "rev-parse", "--verify", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// FilePatchID returns the stable patch id of a patch file
func FilePatchID(ctx context.Context, gitExe, patchPath string) (string, error) {
	//nolint:gosec // G304: patch paths come from the patch series files
	patch, err := os.ReadFile(patchPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", entities.ErrEnvironment, err)
	}
	return patchID(ctx, gitExe, patch)
}

// CommitPatchID returns the stable patch id of HEAD~n in dir
func CommitPatchID(ctx context.Context, gitExe, dir string, n int) (string, error) {
	diff, err := runGit(ctx, gitExe, dir, nil, "diff", fmt.Sprintf("HEAD~%d^!", n))
	if err != nil {
		return "", err
	}
	return patchID(ctx, gitExe, diff)
}

func patchID(ctx context.Context, gitExe string, diff []byte) (string, error) {
	out, err := runGit(ctx, gitExe, "", diff, "patch-id", "--stable")
	if err != nil {
		return "", err
	}
	if len(out) < objectNameLen {
		return "", fmt.Errorf("%w: `%s patch-id` found no patch", entities.ErrEnvironment, gitExe)
	}
	return string(out[:objectNameLen]), nil
}

// ApplyReverse reverts patchPath in dir, which need not be a repository
func ApplyReverse(ctx context.Context, gitExe, dir, patchPath string) error {
	_, err := runGit(ctx, gitExe, dir, nil, "apply", "--reverse", patchPath)
	return err
}

func runGit(ctx context.Context, gitExe, dir string, stdin []byte, args ...string) ([]byte, error) {
	//nolint:gosec // G204: gitExe is a configured executable, arguments are fixed
	cmd := exec.CommandContext(ctx, gitExe, args...)
	cmd.Dir = dir
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: `%s %s` failed: %v: %s", entities.ErrEnvironment,
			gitExe, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// ReadSubmodules combines .gitmodules with the commits pinned under vendor/
func ReadSubmodules(ctx context.Context, gitExe, sourceDir string) ([]entities.Submodule, error) {
	modules, err := ReadGitModules(sourceDir)
	if err != nil {
		return nil, err
	}

	commits, err := PinnedCommits(ctx, gitExe, filepath.Join(sourceDir, "vendor"))
	if err != nil {
		return nil, err
	}

	submodules := make([]entities.Submodule, 0, len(modules))
	for _, m := range modules {
		commit, ok := commits[m.Name]
		if !ok {
			return nil, fmt.Errorf("%w: submodule %q is not pinned in vendor/", entities.ErrEnvironment, m.Name)
		}
		submodules = append(submodules, entities.Submodule{
			Name:   m.Name,
			Path:   m.Path,
			Commit: commit,
			URL:    m.URL,
		})
	}
	return submodules, nil
}
