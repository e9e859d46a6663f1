package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meator/android-tools-static/internal/domain-adapters/gateways"
	"github.com/meator/android-tools-static/internal/domain/interfaces"
	"github.com/meator/android-tools-static/internal/external-adapters/versioninfo"
)

func newSaveVersionsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save-versions",
		Short: "Record the cross toolchain versions in version-info.json.",
		Long: `Record the versions of the cross toolchain image in version-info.json.

Run while building the image; "generate --version-info" reads the file back
when the Linux cross SBOM is produced. Every version flag is required.

Examples:
  sbomgen save-versions --output /version-info.json --alpine-version 3.20.3 --gcc-version 14.2.0 ...`,
		Args: exactArgs(0),
		RunE: func(_ *cobra.Command, _ []string) error {
			versions := make(map[string]string, len(versioninfo.Fields))
			for _, f := range versioninfo.Fields {
				versions[f.Key] = a.v.GetString(f.Flag)
			}

			data, err := versioninfo.Encode(versions)
			if err != nil {
				return &usageError{err: err}
			}

			output := a.v.GetString("output")
			if err := gateways.WriteFileAtomic(output, data, gateways.DocumentMode); err != nil {
				return fmt.Errorf("failed to write version info: %w", err)
			}
			a.logger.Info("Saved version info", interfaces.F("path", output))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringP("output", "o", versioninfo.DefaultPath, "where to write version-info.json")
	for _, f := range versioninfo.Fields {
		flags.String(f.Flag, "", "version of "+f.Key)
	}
	return cmd
}
