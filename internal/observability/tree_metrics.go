package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/rbset/pkg/rbtree"
)

const (
	attrOp      = "op"
	attrOutcome = "outcome"
	attrPhase   = "phase"
	attrSet     = "set"
)

var (
	treeOps          = instrument{"rbset.tree.ops", "Tree operations by kind and outcome", "{op}"}
	treePhase        = instrument{"rbset.tree.phase.duration.seconds", "Workload phase duration in seconds", "s"}
	treeChecks       = instrument{"rbset.tree.verifications", "Invariant checks performed", "{check}"}
	treeViolations   = instrument{"rbset.tree.violations", "Invariant checks that failed", "{check}"}
	treeSize         = instrument{"rbset.tree.size", "Items held by the tree", "{item}"}
	treeHeight       = instrument{"rbset.tree.height", "Levels in the tree", "{level}"}
	allocLive        = instrument{"rbset.allocator.live", "Nodes linked into trees", "{node}"}
	allocCached      = instrument{"rbset.allocator.cached", "Nodes waiting on the free list", "{node}"}
	allocAllocations = instrument{"rbset.allocator.allocations", "Nodes created from scratch", "{node}"}
	allocReuses      = instrument{"rbset.allocator.reuses", "Nodes served from the free list", "{node}"}
	allocReleases    = instrument{"rbset.allocator.releases", "Nodes returned to the free list", "{node}"}
	allocDrops       = instrument{"rbset.allocator.drops", "Nodes left to the garbage collector", "{node}"}
)

// phaseBucketBoundaries covers 1ms to 10 minutes of workload phases.
var phaseBucketBoundaries = []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 600}

// TreeGauge is the observed shape of one tree.
type TreeGauge struct {
	Name   string
	Size   int
	Height int
}

// TreeSnapshot is what a snapshot source reports on each collection.
type TreeSnapshot struct {
	Trees     []TreeGauge
	Allocator rbtree.Stats
}

// TreeMetrics holds the instruments describing tree workloads and the node
// allocator behind them.
type TreeMetrics struct {
	meter metric.Meter

	ops           metric.Int64Counter
	phaseDuration metric.Float64Histogram
	verifications metric.Int64Counter
	violations    metric.Int64Counter

	size        metric.Int64ObservableGauge
	height      metric.Int64ObservableGauge
	live        metric.Int64ObservableGauge
	cached      metric.Int64ObservableGauge
	allocations metric.Int64ObservableCounter
	reuses      metric.Int64ObservableCounter
	releases    metric.Int64ObservableCounter
	drops       metric.Int64ObservableCounter
}

// NewTreeMetrics creates tree instruments from the given meter.
func NewTreeMetrics(mt metric.Meter) (*TreeMetrics, error) {
	in := &instruments{meter: mt}

	tm := &TreeMetrics{
		meter:         mt,
		ops:           in.counter(treeOps),
		phaseDuration: in.seconds(treePhase, phaseBucketBoundaries),
		verifications: in.counter(treeChecks),
		violations:    in.counter(treeViolations),
		size:          in.gauge(treeSize),
		height:        in.gauge(treeHeight),
		live:          in.gauge(allocLive),
		cached:        in.gauge(allocCached),
		allocations:   in.total(allocAllocations),
		reuses:        in.total(allocReuses),
		releases:      in.total(allocReleases),
		drops:         in.total(allocDrops),
	}

	err := in.err()
	if err != nil {
		return nil, err
	}

	return tm, nil
}

// RecordOps adds n operations of kind op that ended with outcome.
func (tm *TreeMetrics) RecordOps(ctx context.Context, op, outcome string, n int64) {
	if n == 0 {
		return
	}

	tm.ops.Add(ctx, n, metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrOutcome, outcome),
	))
}

// RecordPhase records how long a workload phase took.
func (tm *TreeMetrics) RecordPhase(ctx context.Context, phase string, d time.Duration) {
	tm.phaseDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(attrPhase, phase)))
}

// RecordVerify counts an invariant check and, when err is non-nil, a violation.
func (tm *TreeMetrics) RecordVerify(ctx context.Context, err error) {
	tm.verifications.Add(ctx, 1)

	if err != nil {
		tm.violations.Add(ctx, 1)
	}
}

// Observe registers source as the provider of tree and allocator gauges.
// source runs on the collecting goroutine and must synchronize itself.
func (tm *TreeMetrics) Observe(source func() TreeSnapshot) (metric.Registration, error) {
	return tm.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		snap := source()

		for _, tree := range snap.Trees {
			var opts []metric.ObserveOption
			if tree.Name != "" {
				opts = append(opts, metric.WithAttributes(attribute.String(attrSet, tree.Name)))
			}

			o.ObserveInt64(tm.size, int64(tree.Size), opts...)
			o.ObserveInt64(tm.height, int64(tree.Height), opts...)
		}

		o.ObserveInt64(tm.live, int64(snap.Allocator.Live))
		o.ObserveInt64(tm.cached, int64(snap.Allocator.Cached))
		o.ObserveInt64(tm.allocations, snap.Allocator.Allocations)
		o.ObserveInt64(tm.reuses, snap.Allocator.Reuses)
		o.ObserveInt64(tm.releases, snap.Allocator.Releases)
		o.ObserveInt64(tm.drops, snap.Allocator.Drops)

		return nil
	}, tm.size, tm.height, tm.live, tm.cached, tm.allocations, tm.reuses, tm.releases, tm.drops)
}
