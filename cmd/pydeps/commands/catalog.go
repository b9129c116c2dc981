package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pydeps/pkg/catalog"
	"github.com/Sumatoshi-tech/pydeps/pkg/observability"
)

const (
	labelStdlib   = "stdlib"
	labelExternal = "external"
)

func newCatalogCommand(gf *globalFlags) *cobra.Command {
	var (
		python   string
		check    []string
		versions bool
	)

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List or query the standard library catalog",
		Long: `Print the top-level standard library module names for a Python version,
or report whether given names are treated as standard library.

Examples:
  pydeps catalog --python 3.11
  pydeps catalog --check tomllib --check requests
  pydeps catalog --versions`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if versions {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(catalog.Versions(), "\n"))

				return nil
			}

			rt, err := setup(cmd, gf, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer rt.close()

			if python != "" {
				rt.cfg.Catalog.Python = python
			}

			cat, err := rt.cfg.StdlibCatalog()
			if err != nil {
				return err
			}

			if len(check) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), renderMembership(cat, check))

				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(cat.Names(), "\n"))

			return nil
		},
	}

	cmd.Flags().StringVar(&python, "python", "", "Python version (default newest)")
	cmd.Flags().StringSliceVar(&check, "check", nil, "module names to classify")
	cmd.Flags().BoolVar(&versions, "versions", false, "list supported Python versions")

	return cmd
}

func renderMembership(cat *catalog.Catalog, names []string) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Module", "Python " + cat.Version()})

	for _, name := range names {
		label := labelExternal
		if cat.Contains(name) {
			label = labelStdlib
		}

		tbl.AppendRow(table.Row{name, label})
	}

	return tbl.Render()
}
