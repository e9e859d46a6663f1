package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/meator/android-tools-static/internal/domain-adapters/gateways"
	"github.com/meator/android-tools-static/internal/domain/interfaces"
	"github.com/meator/android-tools-static/internal/domain/services"
)

func newPackageCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "package",
		Short: "Pack an install prefix and its SBOM into a release archive.",
		Long: `Pack an install prefix into android-tools-static-<version>-<platform>.tar.gz
with a .sha256 sidecar next to it.

Entries are sorted, owned by root and stamped with SOURCE_DATE_EPOCH (or the
Unix epoch), so equal trees give byte-identical archives. The SBOM is stored
as share/android-tools-static/sbom.cdx.json.

With --check-binaries every file under bin/ must be an executable of the
target's format and architecture; Linux executables must also be static.

Examples:
  sbomgen package --prefix install --platform linux-x86_64 --version 35.0.2.1 --sbom sbom.cdx.json
  sbomgen package --prefix install --platform windows-x86 --version 35.0.2.1 --check-binaries`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			prefix, err := a.requireString("prefix")
			if err != nil {
				return err
			}
			platform, err := a.requireString("platform")
			if err != nil {
				return err
			}
			releaseVersion, err := a.requireString("version")
			if err != nil {
				return err
			}

			target, err := services.ParseTarget(platform)
			if err != nil {
				return err
			}

			if a.v.GetBool("check-binaries") {
				inspections, err := gateways.NewBinaryInspector().InspectTree(prefix, target)
				if err != nil {
					return err
				}
				for _, bin := range inspections {
					a.logger.Debug("Binary matches target",
						interfaces.F("path", bin.Path),
						interfaces.F("format", bin.Format),
						interfaces.F("arch", bin.Arch))
				}
			}

			modTime, ok, err := sourceDateEpoch(os.LookupEnv)
			if err != nil {
				return err
			}
			if !ok {
				modTime = time.Unix(0, 0).UTC()
			}

			artifact, err := gateways.NewPackager(projectName).PackageArtifact(cmd.Context(), gateways.PackageRequest{
				PrefixDir: prefix,
				OutputDir: a.v.GetString("output-dir"),
				Version:   releaseVersion,
				Platform:  target.ID(),
				SBOMPath:  a.v.GetString("sbom"),
				ModTime:   modTime,
			})
			if err != nil {
				return err
			}

			a.logger.Info("Packaged", interfaces.F("archive", artifact.Path))
			fmt.Fprintln(a.stdout, artifact.Path)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("prefix", "", "install prefix to archive")
	flags.StringP("platform", "p", "", "target platform")
	flags.String("version", "", "release version")
	flags.String("sbom", "", "SBOM to include in the archive")
	flags.StringP("output-dir", "o", "dist", "directory for the archive and its sidecar")
	flags.Bool("check-binaries", false, "check that bin/ holds static executables for the target")
	return cmd
}
