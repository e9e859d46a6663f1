package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/meator/android-tools-static/internal/domain-adapters/gateways"
	orchestrators "github.com/meator/android-tools-static/internal/domain-orchestrators"
	"github.com/meator/android-tools-static/internal/domain/entities"
	"github.com/meator/android-tools-static/internal/external-adapters/manifest"
	"github.com/meator/android-tools-static/internal/external-adapters/yaml"
)

func newGenerateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the SBOM of one build.",
		Long: `Generate the CycloneDX SBOM of one android-tools-static build.

The platform selects the entry point (linux, linux-cross, windows or macos).
The manifest is the flat {"name": "version"} file or the depmf.json written
by Meson. Everything the manifest does not record comes from the build
environment profile, the cross image's version-info.json and the source
tree.

The document is validated before it is written. On any error nothing is
written and the exit status is non-zero.

Examples:
  sbomgen generate --platform linux-x86_64 --manifest depmf.json --output sbom.cdx.json
  sbomgen generate --platform linux-cross-aarch64 --manifest deps.json \
      --environment linux-cross --version-info /version-info.json
  sbomgen generate --platform windows-x86_64 --manifest deps.json \
      --environment profiles/windows.yml --source-dir . --sidecar \
      --nmeum-patches nmeum.series --added-patches added.series \
      --repolink 'https://github.com/meator/android-tools-static/blob/${ref}/${path}'
  SOURCE_DATE_EPOCH=1700000000 sbomgen generate --platform macos-aarch64 --manifest deps.json`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runGenerate(cmd)
		},
	}

	flags := cmd.Flags()
	flags.StringP("platform", "p", "", "target platform, e.g. linux-x86_64 or linux-cross-aarch64")
	flags.StringP("manifest", "m", "", "dependency manifest written by the build")
	flags.StringP("output", "o", "sbom.cdx.json", "output path")
	flags.StringP("environment", "e", "", "build environment profile (path or name)")
	flags.String("profiles-dir", "profiles", "directory searched for named profiles")
	flags.String("version-info", "", "version-info.json of the cross toolchain image")
	flags.String("source-dir", "", "android-tools-static checkout, for wraps, submodules and base versions")
	flags.String("git", "git", "git executable")
	flags.String("nmeum-patches", "", "NUL separated series of the patches inherited from nmeum/android-tools, relative to <source-dir>/patches")
	flags.String("added-patches", "", "NUL separated series of the patches added by this port, relative to <source-dir>/patches")
	flags.String("repolink", "", "URL template linking repository files, with ${path} and an optional ${ref}")
	flags.String("repolink-ref", "", "value of ${ref} in --repolink (default the HEAD of --source-dir)")
	flags.String("root-version", "", "android-tools-static version when the manifest does not name it")
	flags.String("timestamp", "", "metadata timestamp, RFC 3339 or Unix seconds (default SOURCE_DATE_EPOCH)")
	flags.Bool("fake-versions", false, "replace queried tool versions with a placeholder and mark the SBOM as design-time")
	flags.Bool("sidecar", false, "also write <output>.sha256")
	return cmd
}

func (a *app) runGenerate(cmd *cobra.Command) error {
	platform, err := a.requireString("platform")
	if err != nil {
		return err
	}
	manifestPath, err := a.requireString("manifest")
	if err != nil {
		return err
	}

	timestamp, err := a.documentTimestamp()
	if err != nil {
		return err
	}

	validator, err := gateways.NewSchemaValidator()
	if err != nil {
		return err
	}

	orch := orchestrators.NewSBOMOrchestrator(
		manifest.NewReader(),
		gateways.NewEnvironmentLoader(yaml.NewEnvironmentRepository(a.v.GetString("profiles-dir")), a.logger),
		gateways.NewCycloneDXAssembler(),
		validator,
		gateways.NewDocumentWriter(),
		a.logger,
	)

	result, err := orch.Generate(cmd.Context(), orchestrators.GenerateRequest{
		Platform:     platform,
		ManifestPath: manifestPath,
		OutputPath:   a.v.GetString("output"),
		Environment: entities.EnvironmentRequest{
			Profile:         a.v.GetString("environment"),
			VersionInfoPath: a.v.GetString("version-info"),
			SourceDir:       a.v.GetString("source-dir"),
			GitExe:          a.v.GetString("git"),
			FakeVersions:    a.v.GetBool("fake-versions"),
			NmeumPatches:    a.v.GetString("nmeum-patches"),
			PortPatches:     a.v.GetString("added-patches"),
			RepoLink:        a.v.GetString("repolink"),
			RepoLinkRef:     a.v.GetString("repolink-ref"),
		},
		RootVersion: a.v.GetString("root-version"),
		Timestamp:   timestamp,
		ToolVersion: version,
		Sidecar:     a.v.GetBool("sidecar"),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "%s  %s\n", result.Digest, result.OutputPath)
	return nil
}

// documentTimestamp picks --timestamp, then SOURCE_DATE_EPOCH; nil omits it
func (a *app) documentTimestamp() (*time.Time, error) {
	if raw := a.v.GetString("timestamp"); raw != "" {
		t, err := parseTimestamp(raw)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}
	t, ok, err := sourceDateEpoch(os.LookupEnv)
	if err != nil || !ok {
		return nil, err
	}
	return &t, nil
}
