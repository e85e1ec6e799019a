package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/lcrh/turingsoup/pkg/bff"
	"github.com/lcrh/turingsoup/soup"
)

// StatsSize is the fixed size, in bytes, of one encoded bff.Stats value:
// seven little-endian uint32 fields (steps, head0_count, head1_count,
// math_count, copy_count, loop_count, halt_reason).
const StatsSize = 7 * 4

// EncodeStats renders s as a 28-byte little-endian record.
func EncodeStats(s bff.Stats) []byte {
	buf := make([]byte, StatsSize)
	binary.LittleEndian.PutUint32(buf[0:4], s.Steps)
	binary.LittleEndian.PutUint32(buf[4:8], s.Head0Count)
	binary.LittleEndian.PutUint32(buf[8:12], s.Head1Count)
	binary.LittleEndian.PutUint32(buf[12:16], s.MathCount)
	binary.LittleEndian.PutUint32(buf[16:20], s.CopyCount)
	binary.LittleEndian.PutUint32(buf[20:24], s.LoopCount)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(s.HaltReason))
	return buf
}

// DecodeStats parses a 28-byte record produced by EncodeStats.
func DecodeStats(data []byte) (bff.Stats, error) {
	if len(data) < StatsSize {
		return bff.Stats{}, fmt.Errorf("wire: stats record too short: got %d bytes, want %d", len(data), StatsSize)
	}
	return bff.Stats{
		Steps:      binary.LittleEndian.Uint32(data[0:4]),
		Head0Count: binary.LittleEndian.Uint32(data[4:8]),
		Head1Count: binary.LittleEndian.Uint32(data[8:12]),
		MathCount:  binary.LittleEndian.Uint32(data[12:16]),
		CopyCount:  binary.LittleEndian.Uint32(data[16:20]),
		LoopCount:  binary.LittleEndian.Uint32(data[20:24]),
		HaltReason: bff.HaltReason(binary.LittleEndian.Uint32(data[24:28])),
	}, nil
}

// recordSize is the size of one execute_pair/execute_batch record: the
// fixed stats header plus the 2*regionSize-byte post-execution tape.
func recordSize(regionSize uint32) int {
	return StatsSize + int(2*regionSize)
}

// EncodeRecord renders one execute_pair-style record: the 28-byte stats
// header followed by tape, unmodified.
func EncodeRecord(stats bff.Stats, tape []byte) []byte {
	buf := make([]byte, 0, StatsSize+len(tape))
	buf = append(buf, EncodeStats(stats)...)
	buf = append(buf, tape...)
	return buf
}

// DecodeRecord splits one execute_pair-style record back into its stats
// and tape, given the region size the tape (2*regionSize bytes) was
// produced with.
func DecodeRecord(data []byte, regionSize uint32) (bff.Stats, []byte, error) {
	want := recordSize(regionSize)
	if len(data) < want {
		return bff.Stats{}, nil, fmt.Errorf("wire: record too short: got %d bytes, want %d", len(data), want)
	}
	stats, err := DecodeStats(data[:StatsSize])
	if err != nil {
		return bff.Stats{}, nil, err
	}
	tape := data[StatsSize:want]
	return stats, tape, nil
}

// ExecuteTape runs the interpreter on tape in place (mutating it exactly
// as bff.Execute does) and returns just the 28-byte encoded stats, with no
// tape bytes appended: a caller on the wire boundary already has the tape
// it passed in, so there is nothing to echo back.
func ExecuteTape(tape []byte, head1Offset uint32, maxSteps uint32) []byte {
	stats := bff.Execute(tape, int(head1Offset), maxSteps)
	return EncodeStats(stats)
}

// ExecutePair extracts and interprets one pair's two regions without
// writing back to buf; the caller decodes the record and decides whether
// to commit via soup.CommitPair, exactly as soup.ExecutePair's own Go
// contract already requires.
func ExecutePair(buf []byte, pair soup.Pair, opts soup.PairOptions) []byte {
	stats, tape := soup.ExecutePair(buf, pair, opts)
	return EncodeRecord(stats, tape)
}

// ExecuteBatch runs ExecutePair for every pair, in order, and concatenates
// the resulting records — one record per pair, each recordSize(RegionSize)
// bytes — without writing any of them back to buf.
func ExecuteBatch(buf []byte, pairs []soup.Pair, opts soup.PairOptions) []byte {
	out := make([]byte, 0, len(pairs)*recordSize(opts.RegionSize))
	for _, pair := range pairs {
		out = append(out, ExecutePair(buf, pair, opts)...)
	}
	return out
}

// DecodeBatch splits a buffer produced by ExecuteBatch back into its
// individual (stats, tape) records, given the region size every pair in
// the batch shared.
func DecodeBatch(data []byte, regionSize uint32) ([]bff.Stats, [][]byte, error) {
	size := recordSize(regionSize)
	if size == 0 || len(data)%size != 0 {
		return nil, nil, fmt.Errorf("wire: batch length %d is not a multiple of record size %d", len(data), size)
	}

	n := len(data) / size
	stats := make([]bff.Stats, 0, n)
	tapes := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		record := data[i*size : (i+1)*size]
		s, tape, err := DecodeRecord(record, regionSize)
		if err != nil {
			return nil, nil, fmt.Errorf("wire: decode record %d: %w", i, err)
		}
		stats = append(stats, s)
		tapes = append(tapes, tape)
	}
	return stats, tapes, nil
}
