package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pydeps/internal/source"
	"github.com/Sumatoshi-tech/pydeps/pkg/deps"
	"github.com/Sumatoshi-tech/pydeps/pkg/observability"
	"github.com/Sumatoshi-tech/pydeps/pkg/scan"
)

var errConflictingOutput = errors.New("--names-only and --command-only are mutually exclusive")

type scanFlags struct {
	format      string
	python      string
	outputDir   string
	save        bool
	namesOnly   bool
	commandOnly bool
	noColor     bool
}

func newScanCommand(gf *globalFlags) *cobra.Command {
	sf := &scanFlags{}

	cmd := &cobra.Command{
		Use:   "scan <file.py>",
		Short: "Report the external libraries imported by a Python file",
		Long: `Parse a Python file, collect every imported top-level module and report the
ones that are not in the standard library catalog.

Files that do not parse are scanned line by line instead; in that mode only
imports that start at the beginning of a line are seen.

Examples:
  pydeps scan app.py
  pydeps scan --python 3.8 --format json app.py
  pydeps scan --save --output-dir reports app.py
  pip install $(pydeps scan --names-only app.py)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, gf, sf, args[0])
		},
	}

	cmd.Flags().StringVarP(&sf.format, "format", "f", "", "output format: text, plain, json or yaml (default from config)")
	cmd.Flags().StringVar(&sf.python, "python", "", "Python version of the standard library catalog (default newest)")
	cmd.Flags().StringVarP(&sf.outputDir, "output-dir", "o", "", "directory for --save (default from config)")
	cmd.Flags().BoolVarP(&sf.save, "save", "s", false, "save the plain-text report to a timestamped file")
	cmd.Flags().BoolVar(&sf.namesOnly, "names-only", false, "print only the installable library names")
	cmd.Flags().BoolVar(&sf.commandOnly, "command-only", false, "print only the install command")
	cmd.Flags().BoolVar(&sf.noColor, "no-color", false, "disable colored output")

	return cmd
}

func runScan(cmd *cobra.Command, gf *globalFlags, sf *scanFlags, path string) error {
	if sf.namesOnly && sf.commandOnly {
		return errConflictingOutput
	}

	rt, err := setup(cmd, gf, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer rt.close()

	if sf.python != "" {
		rt.cfg.Catalog.Python = sf.python
	}

	scanner, err := newScanner(rt)
	if err != nil {
		return err
	}

	res, err := scanner.ScanFile(cmd.Context(), path)
	if err != nil {
		return err
	}

	rep := res.Report()
	out := cmd.OutOrStdout()

	switch {
	case sf.namesOnly:
		if names := scanner.NamesOnly(res); names != "" {
			fmt.Fprintln(out, names)
		}
	case sf.commandOnly:
		if rep.HasCommand() {
			fmt.Fprintln(out, rep.Command)
		}
	default:
		format := sf.format
		if format == "" {
			format = rt.cfg.Output.Format
		}

		err = deps.Write(out, rep, format, sf.noColor || color.NoColor)
		if err != nil {
			return err
		}
	}

	if !sf.save {
		return nil
	}

	dir := sf.outputDir
	if dir == "" {
		dir = rt.cfg.Output.Directory
	}

	saved, err := deps.Save(dir, res.Source, rep.PlainText(), time.Now())
	if err != nil {
		return err
	}

	rt.logger().InfoContext(cmd.Context(), "report saved", "path", saved)
	fmt.Fprintf(cmd.ErrOrStderr(), "Saved to %s\n", saved)

	return nil
}

// newScanner builds a scanner from the loaded configuration.
func newScanner(rt *runtime) (*scan.Scanner, error) {
	cat, err := rt.cfg.StdlibCatalog()
	if err != nil {
		return nil, err
	}

	maxSize, err := rt.cfg.MaxFileSizeBytes()
	if err != nil {
		return nil, err
	}

	metrics, err := observability.NewScanMetrics(rt.providers.Meter)
	if err != nil {
		return nil, err
	}

	return scan.New(scan.Options{
		Catalog:        cat,
		PackageManager: rt.cfg.PackageManager(),
		Reader:         source.Reader{MaxSize: maxSize},
		Logger:         rt.logger(),
		Tracer:         rt.providers.Tracer,
		Metrics:        metrics,
	})
}
