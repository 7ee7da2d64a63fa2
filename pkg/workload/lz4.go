package workload

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// uint32ByteSize is the number of bytes in a uint32.
const uint32ByteSize = 4

// ErrIncompressible is returned by CompressUInt32Slice when LZ4 cannot
// shrink the input. Callers store the raw bytes instead.
var ErrIncompressible = errors.New("lz4: data is incompressible")

// CompressUInt32Slice compresses a slice of uint32-s with LZ4.
func CompressUInt32Slice(data []uint32) ([]byte, error) {
	buf := new(bytes.Buffer)

	err := binary.Write(buf, binary.LittleEndian, data)
	if err != nil {
		return nil, fmt.Errorf("encode uint32 block: %w", err)
	}

	compressed := make([]byte, lz4.CompressBlockBound(buf.Len()))

	written, err := lz4.CompressBlock(buf.Bytes(), compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}

	if written == 0 {
		return nil, ErrIncompressible
	}

	return compressed[:written], nil
}

// DecompressUInt32Slice decompresses a slice of uint32-s previously compressed with LZ4.
// `result` must be preallocated to the original length.
func DecompressUInt32Slice(data []byte, result []uint32) error {
	decompressed := make([]byte, len(result)*uint32ByteSize)

	n, err := lz4.UncompressBlock(data, decompressed)
	if err != nil {
		return fmt.Errorf("lz4 uncompress: %w", err)
	}

	if n != len(decompressed) {
		return fmt.Errorf("lz4 uncompress: got %d bytes, want %d", n, len(decompressed))
	}

	return decodeUInt32Slice(decompressed, result)
}

func encodeUInt32Slice(data []uint32) []byte {
	out := make([]byte, 0, len(data)*uint32ByteSize)

	for _, v := range data {
		out = binary.LittleEndian.AppendUint32(out, v)
	}

	return out
}

func decodeUInt32Slice(raw []byte, result []uint32) error {
	if len(raw) != len(result)*uint32ByteSize {
		return fmt.Errorf("uint32 block: got %d bytes, want %d", len(raw), len(result)*uint32ByteSize)
	}

	for i := range result {
		result[i] = binary.LittleEndian.Uint32(raw[i*uint32ByteSize:])
	}

	return nil
}

// DeltaEncodeUInt32Slice replaces each element with the difference from its
// predecessor, in place. The first element is left unchanged. Sorted and
// sawtooth key runs become small repetitive values that LZ4 handles well.
func DeltaEncodeUInt32Slice(data []uint32) {
	for i := len(data) - 1; i > 0; i-- {
		data[i] -= data[i-1]
	}
}

// DeltaDecodeUInt32Slice performs a prefix-sum to restore original values from
// deltas produced by DeltaEncodeUInt32Slice. The operation is performed in place.
func DeltaDecodeUInt32Slice(data []uint32) {
	for i := 1; i < len(data); i++ {
		data[i] += data[i-1]
	}
}
