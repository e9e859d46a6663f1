package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/meator/android-tools-static/internal/domain/entities"
	"github.com/meator/android-tools-static/internal/domain/services"
)

func newRegistryCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "List every dependency the generator knows about.",
		Long: `List every known dependency with its versionless purl, where the build
names it from and the operating systems it is used on.

Examples:
  sbomgen registry
  sbomgen registry --origin wrap`,
		Args: exactArgs(0),
		RunE: func(_ *cobra.Command, _ []string) error {
			origin := entities.Origin(a.v.GetString("origin"))

			rows := make([][]string, 0, int(entities.KeyCount))
			for k := entities.Key(0); k < entities.KeyCount; k++ {
				entry, err := services.CatalogEntryFor(k)
				if err != nil {
					return err
				}
				if origin != "" && entry.Origin != origin {
					continue
				}
				rows = append(rows, []string{k.String(), entry.BasePurl(), originLabel(entry.Origin), platformLabel(entry.Platforms)})
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("KEY", "PURL", "ORIGIN", "PLATFORMS").
				Rows(rows...)
			fmt.Fprintln(a.stdout, t.Render())
			return nil
		},
	}

	cmd.Flags().String("origin", "", "only list dependencies of this origin (wrap, submodule, prebuilt, system, tooling)")
	return cmd
}

func originLabel(o entities.Origin) string {
	if o == entities.OriginUnspecified {
		return "-"
	}
	return string(o)
}

func platformLabel(platforms []entities.OSFamily) string {
	if len(platforms) == 0 {
		return "all"
	}
	names := make([]string, 0, len(platforms))
	for _, p := range platforms {
		names = append(names, string(p))
	}
	return strings.Join(names, ",")
}
