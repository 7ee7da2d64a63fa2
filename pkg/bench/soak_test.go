package bench_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rbset/pkg/bench"
	"github.com/Sumatoshi-tech/rbset/pkg/workload"
)

func TestSoak_RunsUntilDuration(t *testing.T) {
	t.Parallel()

	rec := newFakeRecorder()
	soak := &bench.Soak{
		Config: bench.SoakConfig{
			Window:         256,
			Seed:           4,
			Mix:            workload.DefaultMix,
			CacheCapacity:  64,
			VerifyEvery:    500,
			Duration:       50 * time.Millisecond,
			ReportInterval: 10 * time.Millisecond,
		},
		Metrics: rec,
	}

	assert.Equal(t, bench.SoakStats{}, soak.Stats())

	stats, err := soak.Run(context.Background())
	require.NoError(t, err)

	assert.Positive(t, stats.Ops)
	assert.Equal(t, int(stats.Ops), stats.Outcomes.Total())
	assert.Positive(t, stats.Len)
	assert.LessOrEqual(t, stats.Len, 512)
	assert.GreaterOrEqual(t, stats.PeakLen, stats.Len)
	assert.Positive(t, stats.Allocator.Reuses)
	assert.Positive(t, stats.Verifications)
	assert.GreaterOrEqual(t, stats.Elapsed, 40*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	assert.Equal(t, int64(stats.Outcomes.Inserted), rec.ops["insert/inserted"])
	assert.Equal(t, int64(stats.Outcomes.Erased), rec.ops["erase/erased"])
	assert.Equal(t, stats.Verifications, rec.verifies)
	assert.Zero(t, rec.failures)
}

func TestSoak_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	soak := &bench.Soak{Config: bench.SoakConfig{Window: 8}}

	stats, err := soak.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Ops)
	assert.Equal(t, 1, stats.Verifications)
}

func TestSoak_NodeLimitRejects(t *testing.T) {
	t.Parallel()

	soak := &bench.Soak{Config: bench.SoakConfig{
		Window:    100,
		Seed:      1,
		Mix:       workload.Mix{Insert: 1},
		NodeLimit: 10,
		Duration:  20 * time.Millisecond,
	}}

	stats, err := soak.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Len)
	assert.Positive(t, stats.Outcomes.Rejected)
}

func TestSoakStats_String(t *testing.T) {
	t.Parallel()

	st := bench.SoakStats{Ops: 10, Len: 3, PeakLen: 5, Height: 2, Verifications: 1}
	assert.Equal(t, "ops=10 len=3 peak=5 height=2 reuses=0 verifications=1 ops/s=0", st.String())
}
