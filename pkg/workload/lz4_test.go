package workload_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rbset/pkg/workload"
)

const (
	deltaTestSize  = 1000
	deltaBenchSize = 100_000
)

func TestCompressUInt32Slice_RoundTrip(t *testing.T) {
	t.Parallel()

	data := make([]uint32, deltaTestSize)
	for i := range data {
		data[i] = uint32(i % 17)
	}

	compressed, err := workload.CompressUInt32Slice(data)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(data)*4)

	result := make([]uint32, len(data))
	require.NoError(t, workload.DecompressUInt32Slice(compressed, result))
	assert.Equal(t, data, result)
}

func TestDecompressUInt32Slice_Garbage(t *testing.T) {
	t.Parallel()

	result := make([]uint32, 64)
	assert.Error(t, workload.DecompressUInt32Slice([]byte{0xff, 0xff, 0xff}, result))
}

func TestDeltaEncode_AllSame(t *testing.T) {
	t.Parallel()

	original := make([]uint32, deltaTestSize)
	for i := range original {
		original[i] = 77
	}

	data := append([]uint32(nil), original...)

	workload.DeltaEncodeUInt32Slice(data)
	assert.Equal(t, uint32(77), data[0])

	for i := 1; i < len(data); i++ {
		assert.Zero(t, data[i], "delta at index %d should be 0", i)
	}

	workload.DeltaDecodeUInt32Slice(data)
	assert.Equal(t, original, data)
}

func TestDeltaEncode_Empty(t *testing.T) {
	t.Parallel()

	var data []uint32

	workload.DeltaEncodeUInt32Slice(data)
	workload.DeltaDecodeUInt32Slice(data)

	assert.Nil(t, data)
}

func TestDeltaEncode_MaxValues(t *testing.T) {
	t.Parallel()

	original := []uint32{0, 1, ^uint32(0), ^uint32(0) - 1, 0}
	data := append([]uint32(nil), original...)

	workload.DeltaEncodeUInt32Slice(data)
	workload.DeltaDecodeUInt32Slice(data)

	assert.Equal(t, original, data)
}

// Delta encoding turns ascending keys into a run of ones.
func TestDeltaEncode_CompressionImprovement(t *testing.T) {
	t.Parallel()

	data := workload.Keys(workload.PatternAscending, deltaBenchSize, 0)

	plain, err := workload.CompressUInt32Slice(data)
	require.NoError(t, err)

	deltas := append([]uint32(nil), data...)
	workload.DeltaEncodeUInt32Slice(deltas)

	packed, err := workload.CompressUInt32Slice(deltas)
	require.NoError(t, err)

	assert.Less(t, len(packed), len(plain))
}
