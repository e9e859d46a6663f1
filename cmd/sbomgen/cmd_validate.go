package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meator/android-tools-static/internal/domain-adapters/gateways"
	orchestrators "github.com/meator/android-tools-static/internal/domain-orchestrators"
	"github.com/meator/android-tools-static/internal/domain/interfaces"
	"github.com/meator/android-tools-static/internal/external-adapters/manifest"
)

func newValidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <sbom.cdx.json>",
		Short: "Check an SBOM against the schema and its own cross-references.",
		Long: `Check an SBOM against the embedded CycloneDX 1.6 schema subset, then check
that its dependency graph and its components name each other.

On success the canonical (JCS) sha256 digest of the document is printed.

Examples:
  sbomgen validate sbom.cdx.json`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			//nolint:gosec // G304: the document path is the command argument
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read document: %w", err)
			}

			validator, err := gateways.NewSchemaValidator()
			if err != nil {
				return err
			}
			orch := orchestrators.NewSBOMOrchestrator(
				manifest.NewReader(),
				nil,
				gateways.NewCycloneDXAssembler(),
				validator,
				gateways.NewDocumentWriter(),
				a.logger,
			)

			digest, err := orch.Validate(cmd.Context(), data)
			if err != nil {
				return err
			}
			a.logger.Info("Document is valid", interfaces.F("path", args[0]))
			fmt.Fprintf(a.stdout, "%s  %s\n", digest, args[0])
			return nil
		},
	}
}
