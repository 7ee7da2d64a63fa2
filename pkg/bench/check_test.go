package bench_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rbset/pkg/bench"
	"github.com/Sumatoshi-tech/rbset/pkg/workload"
)

func TestCheck_AllPatternsPass(t *testing.T) {
	t.Parallel()

	for _, p := range workload.Patterns() {
		t.Run(string(p), func(t *testing.T) {
			t.Parallel()

			results := bench.Check(p, 2000, 17)
			require.Len(t, results, 8)
			assert.False(t, bench.Failed(results))

			for _, res := range results {
				assert.True(t, res.Passed, "%s: %s", res.Name, res.Detail)
				assert.Equal(t, p, res.Pattern)
			}
		})
	}
}

func TestCheck_EmptySet(t *testing.T) {
	t.Parallel()

	results := bench.Check(workload.PatternAscending, 0, 0)
	assert.False(t, bench.Failed(results))
}

func TestFailed(t *testing.T) {
	t.Parallel()

	assert.False(t, bench.Failed(nil))
	assert.True(t, bench.Failed([]bench.CheckResult{{Passed: true}, {Passed: false}}))
}
