package workload_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rbset/pkg/workload"
)

func TestParsePattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    workload.Pattern
		wantErr bool
	}{
		{name: "ascending", input: "ascending", want: workload.PatternAscending},
		{name: "mixed_case", input: " Random ", want: workload.PatternRandom},
		{name: "sawtooth", input: "sawtooth", want: workload.PatternSawtooth},
		{name: "unknown", input: "zigzag", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := workload.ParsePattern(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, workload.ErrUnknownPattern)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePattern_Suggestion(t *testing.T) {
	t.Parallel()

	_, err := workload.ParsePattern("randon")
	require.ErrorIs(t, err, workload.ErrUnknownPattern)
	assert.Contains(t, err.Error(), `did you mean "random"?`)

	_, err = workload.ParsePattern("zigzag")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestKeys_Shapes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []uint32{1, 2, 3, 4, 5}, workload.Keys(workload.PatternAscending, 5, 0))
	assert.Equal(t, []uint32{5, 4, 3, 2, 1}, workload.Keys(workload.PatternDescending, 5, 0))
	assert.Equal(t, []uint32{1, 5, 2, 4, 3}, workload.Keys(workload.PatternSawtooth, 5, 0))
	assert.Nil(t, workload.Keys(workload.PatternRandom, 0, 1))
}

func TestKeys_RandomIsPermutation(t *testing.T) {
	t.Parallel()

	const n = 1000

	keys := workload.Keys(workload.PatternRandom, n, 7)
	require.Len(t, keys, n)
	assert.Equal(t, keys, workload.Keys(workload.PatternRandom, n, 7), "same seed must reproduce")

	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	assert.Equal(t, workload.Keys(workload.PatternAscending, n, 0), sorted)
	assert.NotEqual(t, sorted, keys)
}

func TestKeys_DuplicatesRepeat(t *testing.T) {
	t.Parallel()

	keys := workload.Keys(workload.PatternDuplicates, 500, 3)
	require.Len(t, keys, 500)

	distinct := map[uint32]struct{}{}

	for _, key := range keys {
		assert.GreaterOrEqual(t, key, uint32(1))
		assert.LessOrEqual(t, key, uint32(50))

		distinct[key] = struct{}{}
	}

	assert.Less(t, len(distinct), len(keys))
}

func TestStrings(t *testing.T) {
	t.Parallel()

	out := workload.Strings(20, 8, 42)
	require.Len(t, out, 20)
	assert.Equal(t, out, workload.Strings(20, 8, 42))

	for _, s := range out {
		assert.Len(t, s, 8)
		assert.Regexp(t, "^[a-z]+$", s)
	}
}

func TestParseMix(t *testing.T) {
	t.Parallel()

	mix, err := workload.ParseMix("60:30:10")
	require.NoError(t, err)
	assert.Equal(t, workload.Mix{Insert: 60, Erase: 30, Find: 10}, mix)
	assert.Equal(t, "60:30:10", mix.String())

	for _, bad := range []string{"", "1:2", "a:b:c", "0:0:0", "1:-1:1"} {
		_, err = workload.ParseMix(bad)
		require.ErrorIs(t, err, workload.ErrInvalidMix, bad)
	}
}

func TestScript_Phases(t *testing.T) {
	t.Parallel()

	keys := workload.Keys(workload.PatternRandom, 100, 1)
	ops := workload.Script(keys, 9, workload.Mix{Find: 1})

	require.Len(t, ops, 300)

	for i, key := range keys {
		assert.Equal(t, workload.Op{Kind: workload.OpInsert, Key: key}, ops[i])
		assert.Equal(t, workload.Op{Kind: workload.OpErase, Key: key}, ops[200+i])
	}

	for _, op := range ops[100:200] {
		assert.Equal(t, workload.OpFind, op.Kind)
		assert.Contains(t, keys, op.Key)
	}

	counts := workload.Count(ops)
	assert.Equal(t, 100, counts[workload.OpInsert])
	assert.Equal(t, 100, counts[workload.OpErase])
	assert.Equal(t, 100, counts[workload.OpFind])
}

func TestScript_DefaultMix(t *testing.T) {
	t.Parallel()

	keys := workload.Keys(workload.PatternAscending, 2000, 0)
	ops := workload.Script(keys, 5, workload.Mix{})

	counts := workload.Count(ops[2000:4000])
	assert.Positive(t, counts[workload.OpInsert])
	assert.Positive(t, counts[workload.OpErase])
	assert.Positive(t, counts[workload.OpFind])
	assert.Nil(t, workload.Script(nil, 1, workload.DefaultMix))
}

func TestOpKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "insert", workload.OpInsert.String())
	assert.Equal(t, "erase", workload.OpErase.String())
	assert.Equal(t, "find", workload.OpFind.String())
	assert.Equal(t, "op(9)", workload.OpKind(9).String())
}

func TestStream(t *testing.T) {
	t.Parallel()

	first := workload.NewStream(16, 9, workload.Mix{Insert: 1, Erase: 1})
	second := workload.NewStream(16, 9, workload.Mix{Insert: 1, Erase: 1})

	seen := map[workload.OpKind]int{}

	for range 1000 {
		op := first.Next()
		assert.Equal(t, op, second.Next())
		assert.GreaterOrEqual(t, op.Key, uint32(1))
		assert.LessOrEqual(t, op.Key, uint32(16))

		seen[op.Kind]++
	}

	assert.Zero(t, seen[workload.OpFind])
	assert.Positive(t, seen[workload.OpInsert])
	assert.Positive(t, seen[workload.OpErase])

	single := workload.NewStream(0, 1, workload.Mix{})
	assert.Equal(t, uint32(1), single.Next().Key)
}
