package soup

import (
	"errors"
	"math"
	"math/rand/v2"

	"github.com/lcrh/turingsoup/pkg/bff"
)

// Pair is an ordered pair of region starts submitted as one execution
// unit. A and B are byte offsets into the soup, always aligned and always
// at least RegionSize apart, so the two regions of one pair never overlap.
// When the alignment is smaller than the region size, regions of different
// pairs in a batch may overlap; that is a deliberate modelling choice (see
// SelectConfig).
type Pair struct {
	A, B uint32
}

// PairOptions carries the per-pair parameters that don't change across a
// batch: region size, the initial head1 offset into the 2R tape, and the
// interpreter's step cap.
type PairOptions struct {
	RegionSize  uint32
	Head1Offset uint32
	MaxSteps    uint32
}

// ErrNoValidPair is returned by SelectPair when the locality/alignment
// constraints leave no non-overlapping candidate after a bounded number
// of draws. With the documented defaults this never happens; it exists so
// a pathological configuration fails loudly instead of spinning forever.
var ErrNoValidPair = errors.New("soup: no valid pair under current selection constraints")

// SelectConfig is the subset of the driver's configuration surface that
// pair selection needs.
type SelectConfig struct {
	Alignment     uint32  // byte granularity of selection starts, power of two <= RegionSize
	LocalityLimit float64 // max inter-pair distance in % of soup; +Inf = unconstrained
}

const maxSelectAttempts = 64

// SelectPair chooses two distinct, non-overlapping region starts, or
// returns ErrNoValidPair:
//
//  1. maxStart = SOUP_SIZE - R; S = floor(maxStart/alignment) + 1 aligned
//     starting positions.
//  2. Draw pA uniformly in [0, S); a = pA * alignment.
//  3. Draw pB subject to the locality window (if finite) and reject any
//     pB whose region would overlap a's.
//  4. b = pB * alignment.
func (s *Soup) SelectPair(cfg SelectConfig, rng *rand.Rand) (Pair, error) {
	r := uint32(s.regionSize)
	maxStart := uint32(len(s.buf)) - r
	numPositions := maxStart/cfg.Alignment + 1

	pA := rng.Uint32N(numPositions)
	a := pA * cfg.Alignment

	lo, hi := uint32(0), numPositions-1
	if !math.IsInf(cfg.LocalityLimit, 1) {
		delta := localityDelta(cfg.LocalityLimit, s.numTapes, r, cfg.Alignment)
		lo = saturatingSub(pA, delta)
		hi = minU32(numPositions-1, pA+delta)
	}

	span := hi - lo + 1
	for attempt := 0; attempt < maxSelectAttempts; attempt++ {
		pB := lo + rng.Uint32N(span)
		b := pB * cfg.Alignment

		if absDiff(b, a) >= r {
			return Pair{A: a, B: b}, nil
		}
	}

	return Pair{}, ErrNoValidPair
}

// localityDelta converts a percentage-of-soup locality limit into a
// window radius measured in aligned-position units:
//
//	δ = floor(localityLimit * numTapes * R / (alignment * 100))
func localityDelta(localityLimit float64, numTapes int, regionSize, alignment uint32) uint32 {
	delta := localityLimit * float64(numTapes) * float64(regionSize) / (float64(alignment) * 100)
	if delta < 0 {
		return 0
	}
	return uint32(delta)
}

func saturatingSub(a, b uint32) uint32 {
	if b > a {
		return 0
	}
	return a - b
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

// ExecutePair concatenates regions A and B from buf into a fresh 2R-byte
// tape, runs the BFF interpreter on it, and returns the interpreter's
// stats together with the post-execution tape. It does not write back to
// buf — the caller decides whether to commit based on stats.Wrote().
func ExecutePair(buf []byte, pair Pair, opts PairOptions) (bff.Stats, []byte) {
	r := opts.RegionSize
	tape := make([]byte, 2*r)

	copy(tape[:r], extractRegion(buf, pair.A, r))
	copy(tape[r:], extractRegion(buf, pair.B, r))

	stats := bff.Execute(tape, int(opts.Head1Offset), opts.MaxSteps)
	return stats, tape
}

// RunPair is the full per-pair sequence a worker runs: extract, interpret,
// and — only if the interpreter observed a mutation — write the tape back
// into the two source regions.
func RunPair(buf []byte, pair Pair, opts PairOptions) bff.Stats {
	stats, tape := ExecutePair(buf, pair, opts)
	if stats.Wrote() {
		CommitPair(buf, pair, opts.RegionSize, tape)
	}
	return stats
}

// CommitPair writes a post-execution tape back into regions A and B.
func CommitPair(buf []byte, pair Pair, regionSize uint32, tape []byte) {
	copy(extractRegion(buf, pair.A, regionSize), tape[:regionSize])
	copy(extractRegion(buf, pair.B, regionSize), tape[regionSize:])
}

// extractRegion returns the region-sized sub-slice of buf starting at
// start. Region starts are always chosen so start+R <= len(buf), so this
// never wraps.
func extractRegion(buf []byte, start, regionSize uint32) []byte {
	return buf[start : start+regionSize]
}
