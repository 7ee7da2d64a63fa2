package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbset/internal/config"
	"github.com/Sumatoshi-tech/rbset/internal/observability"
	"github.com/Sumatoshi-tech/rbset/pkg/bench"
	"github.com/Sumatoshi-tech/rbset/pkg/workload"
)

// benchCommand holds flags for the bench command.
type benchCommand struct {
	opts      *Options
	chartPath string
	tracePath string
}

func newBenchCommand(opts *Options) *cobra.Command {
	bc := &benchCommand{opts: opts}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Replay a workload against a tree and report timings",
		Long: `Generate a three-phase workload (build, mixed, drain) from a key pattern,
or replay a recorded trace, and report per-phase timings, outcome counts,
allocator reuse and tree shape.`,
		Args: cobra.NoArgs,
		RunE: bc.run,
	}

	flags := cmd.Flags()
	flags.String("pattern", config.DefaultBenchPattern, "Key pattern: "+patternList())
	flags.Int("keys", config.DefaultBenchKeys, "Number of keys")
	flags.Int64("seed", config.DefaultBenchSeed, "Random seed")
	flags.String("mix", config.DefaultBenchMix, "Mixed phase insert:erase:find weights")
	flags.Int("verify-every", config.DefaultBenchVerifyEvery, "Verify invariants every N mutations (0 = only at the end)")
	flags.Int("cache", config.DefaultCacheCapacity, "Node cache capacity (0 = disabled)")
	flags.Int("limit", config.DefaultCacheLimit, "Live node limit (0 = unlimited)")
	flags.String("format", config.DefaultBenchFormat, "Output format: table, yaml, json")
	flags.StringVar(&bc.chartPath, "chart", "", "Write an HTML depth-profile chart to this file")
	flags.StringVar(&bc.tracePath, "trace", "", "Replay ops from this trace file instead of generating them")

	return cmd
}

func (bc *benchCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := bc.opts.load(bind(cmd,
		"bench.pattern", "pattern",
		"bench.keys", "keys",
		"bench.seed", "seed",
		"bench.mix", "mix",
		"bench.verify_every", "verify-every",
		"bench.format", "format",
		"cache.capacity", "cache",
		"cache.limit", "limit",
	)...)
	if err != nil {
		return err
	}

	runCfg, err := cfg.BenchRun()
	if err != nil {
		return err
	}

	providers, err := bc.opts.telemetry(cmd, cfg, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer shutdownTelemetry(providers)

	metrics, err := observability.NewTreeMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("create tree metrics: %w", err)
	}

	ops, err := bc.ops(runCfg)
	if err != nil {
		return err
	}

	providers.Logger.Debug("workload ready", "ops", len(ops), "trace", bc.tracePath)

	runner := bench.Runner{
		Config:  runCfg,
		Logger:  providers.Logger,
		Metrics: metrics,
		Tracer:  providers.Tracer,
	}

	report, err := runner.Run(cmd.Context(), ops)
	if err != nil {
		return fmt.Errorf("bench: %w", err)
	}

	err = writeReport(cmd, report, cfg.Bench.Format)
	if err != nil {
		return err
	}

	if bc.chartPath != "" {
		return writeChart(bc.chartPath, report)
	}

	return nil
}

func (bc *benchCommand) ops(runCfg bench.Config) ([]workload.Op, error) {
	if bc.tracePath == "" {
		return runCfg.Script(), nil
	}

	ops, err := workload.ReadTraceFile(bc.tracePath)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}

	return ops, nil
}

func writeReport(cmd *cobra.Command, report bench.Report, format string) error {
	if strings.EqualFold(format, bench.FormatTable) {
		return bench.RenderTable(cmd.OutOrStdout(), report)
	}

	return bench.Encode(cmd.OutOrStdout(), report, format)
}

func writeChart(path string, report bench.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}

	err = bench.RenderChart(f, report)
	if err != nil {
		_ = f.Close()

		return err
	}

	return f.Close()
}

func patternList() string {
	names := make([]string, 0, len(workload.Patterns()))
	for _, p := range workload.Patterns() {
		names = append(names, string(p))
	}

	return strings.Join(names, ", ")
}
