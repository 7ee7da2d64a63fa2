package bench

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/rbset/pkg/rbtree"
	"github.com/Sumatoshi-tech/rbset/pkg/workload"
)

const (
	// soakBatch is how many ops run per lock acquisition.
	soakBatch = 512

	// soakKeySpaceFactor sizes the key space relative to the window.
	soakKeySpaceFactor = 2

	defaultSoakWindow = 4096
)

// SoakConfig describes an open-ended churn run.
type SoakConfig struct {
	Window         int
	Seed           int64
	Mix            workload.Mix
	CacheCapacity  int
	NodeLimit      int
	VerifyEvery    int
	Duration       time.Duration
	ReportInterval time.Duration
}

// SoakStats is a point-in-time view of a soak run.
type SoakStats struct {
	Ops           int64         `json:"ops"           yaml:"ops"`
	Outcomes      Outcomes      `json:"outcomes"      yaml:"outcomes"`
	Len           int           `json:"len"           yaml:"len"`
	PeakLen       int           `json:"peak_len"      yaml:"peak_len"`
	Height        int           `json:"height"        yaml:"height"`
	Allocator     rbtree.Stats  `json:"allocator"     yaml:"allocator"`
	Verifications int           `json:"verifications" yaml:"verifications"`
	Elapsed       time.Duration `json:"elapsed"       yaml:"elapsed"`
	OpsPerSec     float64       `json:"ops_per_sec"   yaml:"ops_per_sec"`
}

// Soak churns a single tree with ops drawn from a workload.Stream until its
// duration elapses or its context is canceled. Stats may be called from
// other goroutines while Run is active.
type Soak struct {
	Config  SoakConfig
	Logger  *slog.Logger
	Metrics Recorder
	Tracer  trace.Tracer

	mu      sync.Mutex
	state   *runState
	ops     int64
	started time.Time
	rate    *rate
	perSec  float64
}

func (s *Soak) runner() *Runner {
	return &Runner{
		Config: Config{
			CacheCapacity: s.Config.CacheCapacity,
			NodeLimit:     s.Config.NodeLimit,
			VerifyEvery:   s.Config.VerifyEvery,
		},
		Logger:  s.Logger,
		Metrics: s.Metrics,
		Tracer:  s.Tracer,
	}
}

// Run blocks until the soak ends. Cancellation and an elapsed duration are
// normal endings; only invariant violations are returned as errors.
func (s *Soak) Run(ctx context.Context) (SoakStats, error) {
	runner := s.runner()

	window := s.Config.Window
	if window <= 0 {
		window = defaultSoakWindow
	}

	ctx, span := runner.tracer().Start(ctx, "rbset.soak.run",
		trace.WithAttributes(
			attribute.Int("bench.window", window),
			attribute.Int("bench.cache_capacity", s.Config.CacheCapacity),
		))
	defer span.End()

	if s.Config.Duration > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.Config.Duration)
		defer cancel()
	}

	tree := runner.newTree()
	report := newReport(runner.Config)

	s.mu.Lock()
	s.state = &runState{tree: tree, report: &report, verifyEvery: s.Config.VerifyEvery}
	s.started = time.Now()
	s.rate = newRate(s.started)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		tree.Free()
	}()

	stream := workload.NewStream(window*soakKeySpaceFactor, s.Config.Seed, s.Config.Mix)

	var tick <-chan time.Time

	if s.Config.ReportInterval > 0 {
		ticker := time.NewTicker(s.Config.ReportInterval)
		defer ticker.Stop()

		tick = ticker.C
	}

	logger := runner.logger()

	for {
		select {
		case <-ctx.Done():
			stats := s.finish(ctx, runner)
			logger.InfoContext(ctx, "soak finished", slog.Int64("ops", stats.Ops), slog.Duration("elapsed", stats.Elapsed))

			return stats, nil
		case now := <-tick:
			stats := s.sampleRate(now)
			logger.InfoContext(ctx, "soak progress",
				slog.Int64("ops", stats.Ops),
				slog.Float64("ops_per_sec", stats.OpsPerSec),
				slog.Int("len", stats.Len),
				slog.Int("height", stats.Height),
				slog.Int64("reuses", stats.Allocator.Reuses),
			)
		default:
		}

		err := s.batch(ctx, runner, stream)
		if err != nil {
			recordRunError(span, err)

			return s.Stats(), err
		}
	}
}

func (s *Soak) batch(ctx context.Context, runner *Runner, stream *workload.Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.state

	before := state.report.Outcomes

	for range soakBatch {
		mutated := state.apply(stream.Next())
		s.ops++

		if !mutated || state.verifyEvery <= 0 {
			continue
		}

		state.mutations++
		if state.mutations%state.verifyEvery == 0 {
			err := runner.verify(ctx, state, int(s.ops))
			if err != nil {
				return err
			}
		}
	}

	recordOutcomeDelta(ctx, runner.Metrics, before, state.report.Outcomes)

	return nil
}

// finish runs a final invariant check; its result is reported through
// metrics and logs only since the soak itself ended normally.
func (s *Soak) finish(ctx context.Context, runner *Runner) SoakStats {
	s.mu.Lock()
	err := runner.verify(context.WithoutCancel(ctx), s.state, int(s.ops))
	s.mu.Unlock()

	if err != nil {
		runner.logger().ErrorContext(ctx, "final soak verification failed", slog.Any("error", err))
	}

	return s.Stats()
}

func (s *Soak) sampleRate(now time.Time) SoakStats {
	s.mu.Lock()
	s.perSec = s.rate.sample(s.ops, now)
	s.mu.Unlock()

	return s.Stats()
}

// Stats returns the current counters and tree shape. It is zero before Run.
func (s *Soak) Stats() SoakStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return SoakStats{}
	}

	tree, report := s.state.tree, s.state.report

	return SoakStats{
		Ops:           s.ops,
		Outcomes:      report.Outcomes,
		Len:           tree.Len(),
		PeakLen:       report.PeakLen,
		Height:        tree.Height(),
		Allocator:     tree.Allocator().Stats(),
		Verifications: report.Verifications,
		Elapsed:       time.Since(s.started),
		OpsPerSec:     s.perSec,
	}
}

func recordOutcomeDelta(ctx context.Context, metrics Recorder, before, after Outcomes) {
	if metrics == nil {
		return
	}

	insert, erase, find := workload.OpInsert.String(), workload.OpErase.String(), workload.OpFind.String()

	metrics.RecordOps(ctx, insert, OutcomeInserted, int64(after.Inserted-before.Inserted))
	metrics.RecordOps(ctx, insert, OutcomeDuplicate, int64(after.Duplicates-before.Duplicates))
	metrics.RecordOps(ctx, insert, OutcomeRejected, int64(after.Rejected-before.Rejected))
	metrics.RecordOps(ctx, erase, OutcomeErased, int64(after.Erased-before.Erased))
	metrics.RecordOps(ctx, erase, OutcomeMiss, int64(after.EraseMisses-before.EraseMisses))
	metrics.RecordOps(ctx, find, OutcomeHit, int64(after.FindHits-before.FindHits))
	metrics.RecordOps(ctx, find, OutcomeMiss, int64(after.FindMisses-before.FindMisses))
}

// String summarizes the stats on one line.
func (st SoakStats) String() string {
	return fmt.Sprintf("ops=%d len=%d peak=%d height=%d reuses=%d verifications=%d ops/s=%.0f",
		st.Ops, st.Len, st.PeakLen, st.Height, st.Allocator.Reuses, st.Verifications, st.OpsPerSec)
}
