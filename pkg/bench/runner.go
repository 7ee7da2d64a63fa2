// Package bench replays operation scripts against a red-black tree set,
// checks its invariants along the way and reports timings, allocator
// behaviour and tree shape.
package bench

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/rbset/pkg/rbtree"
	"github.com/Sumatoshi-tech/rbset/pkg/safeconv"
	"github.com/Sumatoshi-tech/rbset/pkg/workload"
)

const (
	tracerName = "rbset"

	// spanVerify matches the name suppressed by the filtering tracer provider.
	spanVerify = "rbset.bench.verify"

	// cancelCheckInterval is how many ops run between context checks.
	cancelCheckInterval = 1024
)

// Phase names.
const (
	PhaseBuild = "build"
	PhaseMixed = "mixed"
	PhaseDrain = "drain"
)

// Operation outcomes.
const (
	OutcomeInserted  = "inserted"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeErased    = "erased"
	OutcomeHit       = "hit"
	OutcomeMiss      = "miss"
)

// ErrInvariant is returned when the tree fails a periodic invariant check.
var ErrInvariant = errors.New("tree invariant violated")

// Config describes a bench run.
type Config struct {
	Pattern       workload.Pattern `json:"pattern"        yaml:"pattern"`
	Keys          int              `json:"keys"           yaml:"keys"`
	Seed          int64            `json:"seed"           yaml:"seed"`
	Mix           workload.Mix     `json:"mix"            yaml:"mix"`
	VerifyEvery   int              `json:"verify_every"   yaml:"verify_every"`
	CacheCapacity int              `json:"cache_capacity" yaml:"cache_capacity"`
	NodeLimit     int              `json:"node_limit"     yaml:"node_limit"`
}

// Script generates the operation script described by the config.
func (c Config) Script() []workload.Op {
	return workload.Script(workload.Keys(c.Pattern, c.Keys, c.Seed), c.Seed, c.Mix)
}

// Recorder receives aggregated run telemetry. observability.TreeMetrics
// satisfies it.
type Recorder interface {
	RecordOps(ctx context.Context, op, outcome string, n int64)
	RecordPhase(ctx context.Context, phase string, d time.Duration)
	RecordVerify(ctx context.Context, err error)
}

// Runner executes scripts. Logger, Metrics and Tracer are optional.
type Runner struct {
	Config  Config
	Logger  *slog.Logger
	Metrics Recorder
	Tracer  trace.Tracer
}

func (runner *Runner) tracer() trace.Tracer {
	if runner.Tracer != nil {
		return runner.Tracer
	}

	return otel.Tracer(tracerName)
}

func (runner *Runner) logger() *slog.Logger {
	if runner.Logger != nil {
		return runner.Logger
	}

	return slog.New(slog.DiscardHandler)
}

func (runner *Runner) newTree() *rbtree.Tree[uint32] {
	var opts []rbtree.Option[uint32]

	if runner.Config.CacheCapacity > 0 {
		opts = append(opts, rbtree.WithNodeCache[uint32](runner.Config.CacheCapacity))
	}

	if runner.Config.NodeLimit > 0 {
		opts = append(opts, rbtree.WithNodeLimit[uint32](runner.Config.NodeLimit))
	}

	return rbtree.New(cmp.Compare[uint32], nil, opts...)
}

// Run replays ops on a fresh tree. The script is split into a leading run
// of inserts (build), a trailing run of erases (drain) and everything in
// between (mixed); each phase gets its own span and timing. Node budget
// exhaustion is counted as a rejected insert rather than failing the run.
func (runner *Runner) Run(ctx context.Context, ops []workload.Op) (Report, error) {
	ctx, span := runner.tracer().Start(ctx, "rbset.bench.run",
		trace.WithAttributes(
			attribute.Int("bench.ops", len(ops)),
			attribute.String("bench.pattern", string(runner.Config.Pattern)),
			attribute.Int("bench.cache_capacity", runner.Config.CacheCapacity),
		))
	defer span.End()

	tree := runner.newTree()
	defer tree.Free()

	report := newReport(runner.Config)
	state := &runState{tree: tree, report: &report, verifyEvery: runner.Config.VerifyEvery}

	var before runtime.MemStats

	runtime.ReadMemStats(&before)

	start := time.Now()

	phases := splitPhases(ops)

	for i, p := range phases {
		err := runner.runPhase(ctx, state, p)
		if err != nil {
			recordRunError(span, err)

			return report, err
		}

		// Shape is sampled once, at the end of the first non-drain phase.
		if report.DepthProfile == nil && (p.name != PhaseDrain || i == len(phases)-1) {
			report.DepthProfile = tree.DepthProfile()
			report.Height = len(report.DepthProfile)
		}
	}

	report.Duration = time.Since(start)
	report.NsPerOp = nsPerOp(report.Duration, len(ops))

	err := runner.verify(ctx, state, len(ops))
	if err != nil {
		recordRunError(span, err)

		return report, err
	}

	var after runtime.MemStats

	runtime.ReadMemStats(&after)

	report.AllocBytes = safeconv.SafeInt64(after.TotalAlloc - before.TotalAlloc)
	report.Mallocs = safeconv.SafeInt64(after.Mallocs - before.Mallocs)
	report.FinalLen = tree.Len()
	report.Allocator = tree.Allocator().Stats()

	runner.record(ctx, &report)

	runner.logger().InfoContext(ctx, "bench run finished",
		slog.Int("ops", len(ops)),
		slog.Duration("duration", report.Duration),
		slog.Float64("ns_per_op", report.NsPerOp),
		slog.Int("peak_len", report.PeakLen),
		slog.Int64("reuses", report.Allocator.Reuses),
	)

	return report, nil
}

type runState struct {
	tree        *rbtree.Tree[uint32]
	report      *Report
	verifyEvery int
	mutations   int
}

type phase struct {
	name   string
	offset int
	ops    []workload.Op
}

// splitPhases partitions ops into build, mixed and drain phases, omitting
// empty ones.
func splitPhases(ops []workload.Op) []phase {
	build := 0
	for build < len(ops) && ops[build].Kind == workload.OpInsert {
		build++
	}

	drain := len(ops)
	for drain > build && ops[drain-1].Kind == workload.OpErase {
		drain--
	}

	candidates := []phase{
		{name: PhaseBuild, offset: 0, ops: ops[:build]},
		{name: PhaseMixed, offset: build, ops: ops[build:drain]},
		{name: PhaseDrain, offset: drain, ops: ops[drain:]},
	}

	phases := candidates[:0]

	for _, p := range candidates {
		if len(p.ops) > 0 {
			phases = append(phases, p)
		}
	}

	return phases
}

func (runner *Runner) runPhase(ctx context.Context, state *runState, p phase) error {
	ctx, span := runner.tracer().Start(ctx, "rbset.bench."+p.name,
		trace.WithAttributes(attribute.Int("bench.phase_ops", len(p.ops))))
	defer span.End()

	start := time.Now()

	for i, op := range p.ops {
		if i%cancelCheckInterval == 0 && ctx.Err() != nil {
			return fmt.Errorf("%s phase: %w", p.name, ctx.Err())
		}

		mutated := state.apply(op)
		if !mutated || state.verifyEvery <= 0 {
			continue
		}

		state.mutations++
		if state.mutations%state.verifyEvery == 0 {
			err := runner.verify(ctx, state, p.offset+i)
			if err != nil {
				return err
			}
		}
	}

	elapsed := time.Since(start)

	state.report.Phases = append(state.report.Phases, PhaseReport{
		Name:     p.name,
		Ops:      len(p.ops),
		Duration: elapsed,
		NsPerOp:  nsPerOp(elapsed, len(p.ops)),
		EndLen:   state.tree.Len(),
	})

	if runner.Metrics != nil {
		runner.Metrics.RecordPhase(ctx, p.name, elapsed)
	}

	return nil
}

// apply executes one op and reports whether the tree changed.
func (state *runState) apply(op workload.Op) bool {
	tree, report := state.tree, state.report

	switch op.Kind {
	case workload.OpInsert:
		_, inserted, err := tree.Insert(op.Key)

		switch {
		case err != nil:
			report.Outcomes.Rejected++
		case inserted:
			report.Outcomes.Inserted++
		default:
			report.Outcomes.Duplicates++
		}

		report.PeakLen = max(report.PeakLen, tree.Len())

		return err == nil && inserted
	case workload.OpErase:
		h := tree.Find(op.Key)
		if !h.Valid() {
			report.Outcomes.EraseMisses++

			return false
		}

		tree.Erase(h)
		report.Outcomes.Erased++

		return true
	default:
		if tree.Find(op.Key).Valid() {
			report.Outcomes.FindHits++
		} else {
			report.Outcomes.FindMisses++
		}

		return false
	}
}

func (runner *Runner) verify(ctx context.Context, state *runState, index int) error {
	_, span := runner.tracer().Start(ctx, spanVerify)
	defer span.End()

	err := state.tree.Verify()
	state.report.Verifications++

	if runner.Metrics != nil {
		runner.Metrics.RecordVerify(ctx, err)
	}

	if err != nil {
		return fmt.Errorf("%w after op %d: %w", ErrInvariant, index, err)
	}

	return nil
}

func (runner *Runner) record(ctx context.Context, report *Report) {
	recordOutcomeDelta(ctx, runner.Metrics, Outcomes{}, report.Outcomes)
}

func recordRunError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func nsPerOp(d time.Duration, ops int) float64 {
	if ops == 0 {
		return 0
	}

	return float64(d.Nanoseconds()) / float64(ops)
}
