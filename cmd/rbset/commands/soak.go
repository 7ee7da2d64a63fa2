package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbset/internal/config"
	"github.com/Sumatoshi-tech/rbset/internal/observability"
	"github.com/Sumatoshi-tech/rbset/pkg/bench"
)

const (
	// soakTreeName labels the soak tree in metrics.
	soakTreeName = "soak"

	diagnosticsCloseTimeout = 5 * time.Second
)

// errSoakIdle is reported by /readyz before the first batch completes.
var errSoakIdle = errors.New("soak has not started")

func newSoakCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "soak",
		Short: "Churn a tree until stopped, serving /metrics",
		Long: `Apply an endless stream of mixed inserts, erases and finds to one tree
while exposing /healthz, /readyz and Prometheus /metrics. Stops after
--duration, or on SIGINT/SIGTERM when the duration is zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSoak(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.Duration("duration", config.DefaultSoakDuration, "How long to run (0 = until interrupted)")
	flags.Int("keys", config.DefaultSoakWindow, "Target live key window")
	flags.Int("cache", config.DefaultCacheCapacity, "Node cache capacity (0 = disabled)")
	flags.Int("limit", config.DefaultCacheLimit, "Live node limit (0 = unlimited)")
	flags.String("mix", config.DefaultBenchMix, "insert:erase:find weights")
	flags.Int("verify-every", config.DefaultBenchVerifyEvery, "Verify invariants every N mutations (0 = only at the end)")
	flags.String("metrics-addr", config.DefaultSoakMetricsAddr, "Diagnostics listen address")
	flags.Duration("report-interval", config.DefaultSoakReportInterval, "Progress log interval (0 = disabled)")

	return cmd
}

func runSoak(cmd *cobra.Command, opts *Options) error {
	cfg, err := opts.load(bind(cmd,
		"soak.duration", "duration",
		"soak.window", "keys",
		"soak.metrics_addr", "metrics-addr",
		"soak.report_interval", "report-interval",
		"cache.capacity", "cache",
		"cache.limit", "limit",
		"bench.mix", "mix",
		"bench.verify_every", "verify-every",
	)...)
	if err != nil {
		return err
	}

	runCfg, err := cfg.BenchRun()
	if err != nil {
		return err
	}

	providers, err := opts.telemetry(cmd, cfg, observability.ModeSoak, observability.WithPrometheus())
	if err != nil {
		return err
	}
	defer shutdownTelemetry(providers)

	metrics, err := observability.NewTreeMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("create tree metrics: %w", err)
	}

	soak := &bench.Soak{
		Config: bench.SoakConfig{
			Window:         cfg.Soak.Window,
			Seed:           runCfg.Seed,
			Mix:            runCfg.Mix,
			CacheCapacity:  runCfg.CacheCapacity,
			NodeLimit:      runCfg.NodeLimit,
			VerifyEvery:    runCfg.VerifyEvery,
			Duration:       cfg.Soak.Duration,
			ReportInterval: cfg.Soak.ReportInterval,
		},
		Logger:  providers.Logger,
		Metrics: metrics,
		Tracer:  providers.Tracer,
	}

	reg, err := metrics.Observe(func() observability.TreeSnapshot {
		st := soak.Stats()

		return observability.TreeSnapshot{
			Trees:     []observability.TreeGauge{{Name: soakTreeName, Size: st.Len, Height: st.Height}},
			Allocator: st.Allocator,
		}
	})
	if err != nil {
		return fmt.Errorf("observe soak tree: %w", err)
	}

	defer func() {
		_ = reg.Unregister()
	}()

	ctx := cmd.Context()

	diag, err := observability.NewDiagnosticsServer(ctx, cfg.Soak.MetricsAddr, providers.Tracer, providers.MetricsHandler,
		observability.ReadyCheck{Name: soakTreeName, Check: func(context.Context) error {
			if soak.Stats().Ops == 0 {
				return errSoakIdle
			}

			return nil
		}},
	)
	if err != nil {
		return err
	}

	providers.Logger.InfoContext(ctx, "soak started",
		"metrics_addr", diag.Addr(),
		"window", cfg.Soak.Window,
		"duration", cfg.Soak.Duration,
	)

	stats, runErr := soak.Run(ctx)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), diagnosticsCloseTimeout)
	defer cancel()

	closeErr := diag.Close(closeCtx)

	if runErr != nil {
		return errors.Join(fmt.Errorf("soak: %w", runErr), closeErr)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), stats.String())

	return errors.Join(err, closeErr)
}
