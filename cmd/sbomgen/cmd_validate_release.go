package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meator/android-tools-static/internal/domain-adapters/gateways"
	"github.com/meator/android-tools-static/internal/domain/services"
)

// errReleaseIncomplete reports a release that is not ready to publish
var errReleaseIncomplete = errors.New("release is incomplete")

func newValidateReleaseCommand(a *app) *cobra.Command {
	defaults := make([]string, 0, len(services.DefaultReleasePlatforms))
	for _, p := range services.DefaultReleasePlatforms {
		defaults = append(defaults, string(p))
	}

	cmd := &cobra.Command{
		Use:   "validate-release <version>",
		Short: "Check that a release has every platform archive and checksum.",
		Long: `Check that a directory holds one archive and one .sha256 sidecar per
expected platform, and that every sidecar matches its archive.

Exit Codes:
  0  All expected platforms present (ready for release)
  1  Validation failed (platform mismatch, missing checksums, bad checksum)
  2  Usage error

Examples:
  sbomgen validate-release v35.0.2.1
  sbomgen validate-release 35.0.2.1 --artifacts ./dist
  sbomgen validate-release 35.0.2.1 --platforms linux-x86_64,windows-x86_64 --quiet`,
		Args: exactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			releaseVersion := args[0]
			quiet := a.v.GetBool("quiet")

			expected, err := services.ParsePlatforms(a.v.GetString("platforms"))
			if err != nil {
				return &usageError{err: err}
			}
			if len(expected) == 0 {
				return usageErrorf("--platforms must name at least one platform")
			}

			scanner := gateways.NewReleaseScanner(projectName)
			paths, err := scanner.FindArtifacts(a.v.GetString("artifacts"), releaseVersion)
			if err != nil {
				return err
			}

			validation := services.NewReleaseService(projectName).ValidateRelease(releaseVersion, expected, paths)
			checksumErr := scanner.VerifyChecksums(paths)

			if !quiet {
				fmt.Fprintf(a.stdout, "Validating release %s %s\n", projectName, releaseVersion)
				fmt.Fprintf(a.stdout, "   Expected platforms: %d\n", validation.ExpectedCount)
				fmt.Fprintf(a.stdout, "   Available platforms: %d\n", validation.AvailableCount)
			}

			if !validation.IsReady() {
				return fmt.Errorf("%w: %s", errReleaseIncomplete, validation.ErrorMessage())
			}
			if checksumErr != nil {
				return checksumErr
			}

			if !quiet {
				fmt.Fprintf(a.stdout, "Release is ready: %s\n", strings.Join(platformNames(validation.AvailablePlatforms), ", "))
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("artifacts", "dist", "directory containing the release archives")
	flags.String("platforms", strings.Join(defaults, ","), "comma-separated list of expected platforms")
	flags.BoolP("quiet", "q", false, "only report errors")
	return cmd
}

func platformNames(platforms []services.Platform) []string {
	names := make([]string, 0, len(platforms))
	for _, p := range platforms {
		names = append(names, string(p))
	}
	return names
}
