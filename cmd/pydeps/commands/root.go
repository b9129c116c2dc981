// Package commands implements the pydeps cobra commands.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pydeps/pkg/config"
	"github.com/Sumatoshi-tech/pydeps/pkg/observability"
	"github.com/Sumatoshi-tech/pydeps/pkg/version"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	verbose    bool
	quiet      bool
}

// NewRootCommand builds the pydeps command tree.
func NewRootCommand() *cobra.Command {
	gf := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "pydeps",
		Short: "Detect the third-party libraries a Python file imports",
		Long: `pydeps reads a Python source file, collects its imports and reports the
ones that are not part of the standard library, together with the pip
command that installs them.

Commands:
  scan      Analyze a Python file
  catalog   Inspect the standard library catalog
  validate  Validate a JSON report
  mcp       Serve the analysis as MCP tools over stdio`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&gf.configPath, "config", "", "config file (default .pydeps.yaml in . or $HOME)")
	rootCmd.PersistentFlags().BoolVarP(&gf.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&gf.quiet, "quiet", "q", false, "only log errors")

	rootCmd.AddCommand(
		newScanCommand(gf),
		newCatalogCommand(gf),
		newValidateCommand(),
		newMCPCommand(gf),
		newVersionCommand(),
	)

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// runtime is the loaded configuration plus initialized observability.
type runtime struct {
	cfg       *config.Config
	providers observability.Providers
}

func (rt *runtime) logger() *slog.Logger {
	return rt.providers.Logger
}

func (rt *runtime) close() {
	err := rt.providers.Shutdown(context.Background())
	if err != nil {
		rt.providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}

// setup loads configuration and starts observability for one command run.
func setup(cmd *cobra.Command, gf *globalFlags, mode observability.AppMode) (*runtime, error) {
	cfg, err := config.LoadConfig(gf.configPath)
	if err != nil {
		return nil, err
	}

	obsCfg := cfg.Observability(mode, version.Resolved())
	obsCfg.LogOutput = cmd.ErrOrStderr()

	switch {
	case gf.verbose:
		obsCfg.LogLevel = slog.LevelDebug
	case gf.quiet:
		obsCfg.LogLevel = slog.LevelError
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	return &runtime{cfg: cfg, providers: providers}, nil
}
