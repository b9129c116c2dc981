package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pydeps/internal/source"
	"github.com/Sumatoshi-tech/pydeps/pkg/mcp"
	"github.com/Sumatoshi-tech/pydeps/pkg/observability"
	"github.com/Sumatoshi-tech/pydeps/pkg/version"
)

func newMCPCommand(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

Tools:
  - pydeps_scan: detect external libraries in inline Python code
  - pydeps_scan_file: detect external libraries in a Python file`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup(cmd, gf, observability.ModeMCP)
			if err != nil {
				return err
			}
			defer rt.close()

			srv, err := newMCPServer(rt)
			if err != nil {
				return err
			}

			return srv.Run(cmd.Context())
		},
	}
}

func newMCPServer(rt *runtime) (*mcp.Server, error) {
	red, err := observability.NewREDMetrics(rt.providers.Meter)
	if err != nil {
		return nil, err
	}

	scanMetrics, err := observability.NewScanMetrics(rt.providers.Meter)
	if err != nil {
		return nil, err
	}

	maxSize, err := rt.cfg.MaxFileSizeBytes()
	if err != nil {
		return nil, err
	}

	return mcp.NewServer(mcp.ServerDeps{
		Logger:         rt.logger(),
		Metrics:        red,
		ScanMetrics:    scanMetrics,
		Tracer:         rt.providers.Tracer,
		Python:         rt.cfg.Catalog.Python,
		Extra:          rt.cfg.Catalog.Extra,
		PackageManager: rt.cfg.PackageManager(),
		Reader:         source.Reader{MaxSize: maxSize},
		CacheSize:      rt.cfg.MCP.CacheSize,
		Version:        version.Resolved(),
	})
}
