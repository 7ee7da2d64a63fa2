package workload

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
)

// Trace format constants.
const (
	TraceVersion = 1

	traceMagic = "RBTR"

	// maxTraceOps bounds the op count accepted from a trace header.
	maxTraceOps = 1 << 28

	// maxLZ4Ratio bounds how far one compressed byte can expand.
	maxLZ4Ratio = 255
)

// Block encodings.
const (
	blockRaw uint8 = iota
	blockLZ4
)

// Trace decoding errors.
var (
	ErrBadTraceMagic = errors.New("not an rbset trace")
	ErrTraceVersion  = errors.New("unsupported trace version")
	ErrTraceCorrupt  = errors.New("corrupt trace")
)

type traceHeader struct {
	Magic   [4]byte
	Version uint16
	Flags   uint16
	Count   uint32
}

type blockHeader struct {
	Encoding uint8
	Size     uint32
}

// EncodeTrace writes ops to w. Kinds and delta-encoded keys are stored as two
// separate blocks, each LZ4-compressed unless compression would not help.
func EncodeTrace(w io.Writer, ops []Op) error {
	if len(ops) > maxTraceOps {
		return fmt.Errorf("encode trace: %d ops exceeds limit %d", len(ops), maxTraceOps)
	}

	hdr := traceHeader{Version: TraceVersion, Count: uint32(len(ops))} //nolint:gosec // bounded above.
	copy(hdr.Magic[:], traceMagic)

	bw := bufio.NewWriter(w)

	err := binary.Write(bw, binary.LittleEndian, hdr)
	if err != nil {
		return fmt.Errorf("write trace header: %w", err)
	}

	kinds := make([]uint32, len(ops))
	keys := make([]uint32, len(ops))

	for i, op := range ops {
		kinds[i] = uint32(op.Kind)
		keys[i] = op.Key
	}

	DeltaEncodeUInt32Slice(keys)

	for _, block := range [][]uint32{kinds, keys} {
		err = writeBlock(bw, block)
		if err != nil {
			return err
		}
	}

	return bw.Flush()
}

func writeBlock(w io.Writer, data []uint32) error {
	hdr := blockHeader{Encoding: blockRaw}
	payload := encodeUInt32Slice(data)

	if len(data) > 0 {
		compressed, err := CompressUInt32Slice(data)

		switch {
		case err == nil:
			hdr.Encoding = blockLZ4
			payload = compressed
		case !errors.Is(err, ErrIncompressible):
			return fmt.Errorf("write trace block: %w", err)
		}
	}

	hdr.Size = uint32(len(payload)) //nolint:gosec // block sizes are bounded by maxTraceOps.

	err := binary.Write(w, binary.LittleEndian, hdr)
	if err != nil {
		return fmt.Errorf("write trace block header: %w", err)
	}

	_, err = w.Write(payload)
	if err != nil {
		return fmt.Errorf("write trace block: %w", err)
	}

	return nil
}

// DecodeTrace reads a trace written by EncodeTrace.
func DecodeTrace(r io.Reader) ([]Op, error) {
	br := bufio.NewReader(r)

	var hdr traceHeader

	err := binary.Read(br, binary.LittleEndian, &hdr)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrBadTraceMagic
		}

		return nil, fmt.Errorf("read trace header: %w", err)
	}

	if string(hdr.Magic[:]) != traceMagic {
		return nil, ErrBadTraceMagic
	}

	if hdr.Version != TraceVersion {
		return nil, fmt.Errorf("%w: %d", ErrTraceVersion, hdr.Version)
	}

	if hdr.Count > maxTraceOps {
		return nil, fmt.Errorf("%w: op count %d", ErrTraceCorrupt, hdr.Count)
	}

	count := int(hdr.Count)

	kinds, err := readBlock(br, count)
	if err != nil {
		return nil, err
	}

	keys, err := readBlock(br, count)
	if err != nil {
		return nil, err
	}

	DeltaDecodeUInt32Slice(keys)

	ops := make([]Op, count)

	for i := range ops {
		if kinds[i] >= uint32(opKindCount) {
			return nil, fmt.Errorf("%w: op %d has kind %d", ErrTraceCorrupt, i, kinds[i])
		}

		ops[i] = Op{Kind: OpKind(kinds[i]), Key: keys[i]}
	}

	return ops, nil
}

func readBlock(r io.Reader, count int) ([]uint32, error) {
	var hdr blockHeader

	err := binary.Read(r, binary.LittleEndian, &hdr)
	if err != nil {
		return nil, fmt.Errorf("%w: block header: %w", ErrTraceCorrupt, err)
	}

	// An LZ4 block never exceeds its bound; a raw block is exact.
	if int64(hdr.Size) > int64(lz4.CompressBlockBound(count*uint32ByteSize)) {
		return nil, fmt.Errorf("%w: block size %d", ErrTraceCorrupt, hdr.Size)
	}

	// The payload grows with the bytes actually read, so a header claiming a
	// huge block cannot force a large allocation up front.
	var payload bytes.Buffer

	_, err = io.CopyN(&payload, r, int64(hdr.Size))
	if err != nil {
		return nil, fmt.Errorf("%w: block payload: %w", ErrTraceCorrupt, err)
	}

	err = checkBlockSize(hdr.Encoding, payload.Len(), count)
	if err != nil {
		return nil, err
	}

	out := make([]uint32, count)

	switch hdr.Encoding {
	case blockRaw:
		err = decodeUInt32Slice(payload.Bytes(), out)
	case blockLZ4:
		err = DecompressUInt32Slice(payload.Bytes(), out)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTraceCorrupt, err)
	}

	return out, nil
}

// checkBlockSize rejects blocks whose payload cannot hold count values.
func checkBlockSize(encoding uint8, size, count int) error {
	want := count * uint32ByteSize

	switch encoding {
	case blockRaw:
		if size != want {
			return fmt.Errorf("%w: raw block has %d bytes, want %d", ErrTraceCorrupt, size, want)
		}
	case blockLZ4:
		if want > size*maxLZ4Ratio {
			return fmt.Errorf("%w: lz4 block of %d bytes cannot expand to %d", ErrTraceCorrupt, size, want)
		}
	default:
		return fmt.Errorf("%w: block encoding %d", ErrTraceCorrupt, encoding)
	}

	return nil
}

// WriteTraceFile encodes ops into the file at path, replacing it.
func WriteTraceFile(path string, ops []Op) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trace file: %w", err)
	}

	err = EncodeTrace(f, ops)
	if err != nil {
		f.Close()

		return err
	}

	return f.Close()
}

// ReadTraceFile decodes the trace stored at path.
func ReadTraceFile(path string) ([]Op, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	defer f.Close()

	return DecodeTrace(f)
}
