// Package commands implements CLI command handlers for rbset.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbset/internal/config"
	"github.com/Sumatoshi-tech/rbset/internal/observability"
	"github.com/Sumatoshi-tech/rbset/pkg/version"
)

// Options holds the persistent flags shared by every command.
type Options struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
	LogJSON    bool
}

// NewRootCommand creates the rbset command tree.
func NewRootCommand() *cobra.Command {
	opts := &Options{}

	root := &cobra.Command{
		Use:   "rbset",
		Short: "Red-black tree ordered set toolkit",
		Long: `rbset exercises and serves a red-black tree ordered set.

Commands:
  bench     Replay a generated or recorded workload and report timings
  verify    Run the property suite over every key pattern
  soak      Churn a tree indefinitely behind a /metrics endpoint
  trace     Generate and inspect LZ4 workload traces
  mcp       Serve named ordered sets over the Model Context Protocol`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "Config file (default: .rbset.yaml in CWD or $HOME)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVarP(&opts.Quiet, "quiet", "q", false, "Only log errors")
	flags.BoolVar(&opts.LogJSON, "log-json", false, "Write logs as JSON")

	root.AddCommand(
		newBenchCommand(opts),
		newVerifyCommand(opts),
		newSoakCommand(opts),
		newTraceCommand(opts),
		newMCPCommand(opts),
		newVersionCommand(),
	)

	return root
}

// load reads configuration, letting explicitly set flags win.
func (o *Options) load(bindings ...config.FlagBinding) (*config.Config, error) {
	cfg, err := config.LoadConfig(o.ConfigPath, bindings...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

// telemetry initializes providers for mode, logging to the command's stderr.
func (o *Options) telemetry(
	cmd *cobra.Command, cfg *config.Config, mode observability.AppMode, extra ...observability.Option,
) (observability.Providers, error) {
	obsCfg := cfg.Telemetry(mode, version.Version)

	switch {
	case o.Verbose:
		obsCfg.LogLevel = slog.LevelDebug
	case o.Quiet:
		obsCfg.LogLevel = slog.LevelError
	}

	if o.LogJSON {
		obsCfg.LogJSON = true
	}

	initOpts := append([]observability.Option{observability.WithLogOutput(cmd.ErrOrStderr())}, extra...)

	providers, err := observability.Init(obsCfg, initOpts...)
	if err != nil {
		return observability.Providers{}, fmt.Errorf("init observability: %w", err)
	}

	return providers, nil
}

func shutdownTelemetry(providers observability.Providers) {
	err := providers.Shutdown(context.Background())
	if err != nil {
		providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}

func bind(cmd *cobra.Command, pairs ...string) []config.FlagBinding {
	bindings := make([]config.FlagBinding, 0, len(pairs)/2)

	for i := 0; i+1 < len(pairs); i += 2 {
		bindings = append(bindings, config.FlagBinding{Key: pairs[i], Flag: cmd.Flags().Lookup(pairs[i+1])})
	}

	return bindings
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())

			return err
		},
	}
}
