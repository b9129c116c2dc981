package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pydeps/pkg/deps"
)

func newValidateCommand() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "validate <report.json|->",
		Short: "Validate a JSON report against the report schema",
		Long: `Validate a report produced by "pydeps scan --format json".

Examples:
  pydeps validate report.json
  pydeps scan -f json app.py | pydeps validate -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, label, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			err = deps.Validate(data)
			if err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}

			ok := color.New(color.FgGreen)
			if noColor {
				ok.DisableColor()
			}

			ok.Fprintf(cmd.OutOrStdout(), "report is valid (%s)\n", label)

			return nil
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")

	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}

		return data, "stdin", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read report: %w", err)
	}

	return data, path, nil
}
