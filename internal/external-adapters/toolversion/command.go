// Package toolversion obtains tool versions by running commands on the build host.
package toolversion

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/google/shlex"

	"github.com/meator/android-tools-static/internal/domain/entities"
)

// CommandRunner runs version commands
type CommandRunner struct{}

// NewCommandRunner creates a new command runner
func NewCommandRunner() *CommandRunner {
	return &CommandRunner{}
}

// Version runs command and returns the first whitespace-separated field of its
// output with prefix removed.
func (r *CommandRunner) Version(ctx context.Context, command, prefix string) (string, error) {
	args, err := shlex.Split(command)
	if err != nil {
		return "", fmt.Errorf("%w: cannot split command %q: %v", entities.ErrEnvironment, command, err)
	}
	if len(args) == 0 {
		return "", fmt.Errorf("%w: empty version command", entities.ErrEnvironment)
	}

	//nolint:gosec // G204: commands come from the build environment profile
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%w: `%s` failed: %v: %s", entities.ErrEnvironment, command, err, strings.TrimSpace(stderr.String()))
	}

	return ExtractVersion(out, prefix, command)
}

// ExtractVersion takes the first field of out and strips prefix from it
func ExtractVersion(out []byte, prefix, command string) (string, error) {
	fields := strings.Fields(string(out))
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: `%s` printed nothing", entities.ErrEnvironment, command)
	}

	version := fields[0]
	if prefix != "" {
		rest, ok := strings.CutPrefix(version, prefix)
		if !ok {
			return "", fmt.Errorf("%w: `%s` printed %q, which does not start with %q", entities.ErrEnvironment, command, version, prefix)
		}
		version = rest
	}
	if version == "" {
		return "", fmt.Errorf("%w: `%s` printed an empty version", entities.ErrEnvironment, command)
	}
	return version, nil
}
