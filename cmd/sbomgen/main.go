// Command sbomgen writes the CycloneDX SBOM of an android-tools-static build
// and handles the release files that carry it.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meator/android-tools-static/internal/domain/entities"
	"github.com/meator/android-tools-static/internal/domain/interfaces"
	"github.com/meator/android-tools-static/internal/external-adapters/console"
)

// projectName prefixes release archive names
const projectName = "android-tools-static"

// version is set at link time
var version = "dev"

// Exit codes
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// usageError marks mistakes in the command line itself
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// app carries what every subcommand shares
type app struct {
	v      *viper.Viper
	logger interfaces.Logger
	stdout io.Writer
	stderr io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code
func run(args []string, stdout, stderr io.Writer) int {
	a := &app{
		v:      viper.New(),
		logger: &interfaces.NoOpLogger{},
		stdout: stdout,
		stderr: stderr,
	}

	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	code := exitCode(err)
	if code == exitUsage {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fmt.Fprintf(stderr, "Run 'sbomgen --help' for usage.\n")
		return code
	}
	a.logger.Debug("command failed", interfaces.F("exit", code))
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return code
}

// exitCode maps an error to the process exit status
func exitCode(err error) int {
	var usage *usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &usage), errors.Is(err, entities.ErrUnsupportedPlatform):
		return exitUsage
	default:
		return exitError
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "sbomgen",
		Short: "Generate the CycloneDX SBOM of an android-tools-static build.",
		Long: `Generate the CycloneDX 1.6 SBOM of an android-tools-static build.

sbomgen reads the dependency manifest written by the Meson build, adds the
facts of the build environment (runner, toolchain, submodules) and writes a
reproducible SBOM. It also signs, verifies and packages release files.

Configuration is read from flags, SBOMGEN_* environment variables and an
optional .sbomgen.yaml, in that order of precedence.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.loadConfig(cmd); err != nil {
				return err
			}
			logger, err := console.NewLogger(a.stderr, a.v.GetString("color"), a.v.GetBool("verbose"))
			if err != nil {
				return &usageError{err: err}
			}
			a.logger = logger
			return nil
		},
	}

	root.PersistentFlags().String("config", "", "config file (default .sbomgen.yaml in the working directory)")
	root.PersistentFlags().String("color", console.ColorAuto, "colorize log output: auto, always or never")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	root.AddCommand(
		newGenerateCommand(a),
		newValidateCommand(a),
		newSignCommand(a),
		newVerifyCommand(a),
		newPackageCommand(a),
		newValidateReleaseCommand(a),
		newRegistryCommand(a),
		newSaveVersionsCommand(a),
	)
	return root
}

// exactArgs is cobra.ExactArgs reporting a usage error
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}
