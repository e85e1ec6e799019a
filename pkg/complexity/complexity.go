// Package complexity implements the utility entry points consumed by the
// (out-of-scope) observability layer: Shannon entropy and a Kolmogorov
// complexity estimate based on DEFLATE compression ratio. Neither function
// is on the interpreter's hot path; both operate on read-only snapshots.
package complexity

import (
	"bytes"
	"math"

	"github.com/klauspost/compress/flate"
)

// deflateLevel matches the compression level used by the reference
// implementation's miniz_oxide call (original_source/wasm/src/lib.rs).
const deflateLevel = 6

// ShannonEntropy returns the Shannon entropy of data in bits per byte,
// using the empirical byte-value distribution. An empty slice has zero
// entropy by convention.
func ShannonEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	var counts [256]int
	for _, b := range data {
		counts[b]++
	}

	n := float64(len(data))
	var entropy float64
	for _, count := range counts {
		if count == 0 {
			continue
		}
		p := float64(count) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// KolmogorovEstimate approximates Kolmogorov complexity in bits per byte
// as 8*compressedSize/len(data), where compressedSize is the length of
// data after DEFLATE compression. This is the same formula and deflate
// level the reference implementation uses with miniz_oxide; here the
// compressor is klauspost/compress/flate, a faster pure-Go drop-in for
// the standard library's compress/flate.
func KolmogorovEstimate(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, deflateLevel)
	if err != nil {
		// NewWriter only fails for an out-of-range level; deflateLevel is
		// a compile-time constant known to be valid.
		panic(err)
	}
	if _, err := w.Write(data); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}

	return 8 * float64(buf.Len()) / float64(len(data))
}
