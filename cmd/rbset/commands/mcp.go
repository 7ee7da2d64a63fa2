package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbset/internal/config"
	"github.com/Sumatoshi-tech/rbset/internal/mcp"
	"github.com/Sumatoshi-tech/rbset/internal/observability"
	"github.com/Sumatoshi-tech/rbset/internal/setstore"
)

// newMCPCommand creates the MCP server command.
func newMCPCommand(opts *Options) *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The server keeps named ordered string sets in memory and exposes them as tools:
  - rbset_insert: Insert members into a set, creating it on first use
  - rbset_erase:  Erase members from a set
  - rbset_find:   Check membership
  - rbset_range:  List members in order from an optional start
  - rbset_stats:  Set sizes, heights, bounds and node allocator counters`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(bind(cmd,
				"cache.capacity", "cache",
				"cache.limit", "limit",
			)...)
			if err != nil {
				return err
			}

			// Stdout carries the protocol; logs stay structured on stderr.
			opts.LogJSON = true
			if debug {
				opts.Verbose = true
				cfg.Observability.DebugTrace = true
			}

			providers, err := opts.telemetry(cmd, cfg, observability.ModeMCP)
			if err != nil {
				return err
			}
			defer shutdownTelemetry(providers)

			toolMetrics, err := observability.NewToolMetrics(providers.Meter)
			if err != nil {
				return fmt.Errorf("create tool metrics: %w", err)
			}

			treeMetrics, err := observability.NewTreeMetrics(providers.Meter)
			if err != nil {
				return fmt.Errorf("create tree metrics: %w", err)
			}

			store := setstore.New(cfg.Cache.Capacity, cfg.Cache.Limit)

			reg, err := treeMetrics.Observe(store.Snapshot)
			if err != nil {
				return fmt.Errorf("observe sets: %w", err)
			}

			defer func() {
				_ = reg.Unregister()
			}()

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:  providers.Logger,
				Metrics: toolMetrics,
				Tracer:  providers.Tracer,
				Store:   store,
			})

			providers.Logger.Info("mcp server starting", slog.Any("tools", srv.ListToolNames()))

			return srv.Run(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&debug, "debug", false, "Enable debug logging and full trace sampling")
	flags.Int("cache", config.DefaultCacheCapacity, "Shared node cache capacity (0 = disabled)")
	flags.Int("limit", config.DefaultCacheLimit, "Live member limit across all sets (0 = unlimited)")

	return cmd
}
