package soup

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/sasha-s/go-deadlock"

	"github.com/lcrh/turingsoup/pkg/bff"
)

// Counters is the aggregated per-category instruction count a batch
// dispatch returns: (Σhead0, Σhead1, Σmath, Σcopy, Σloop, count), plus a
// tally of how each pair halted.
type Counters struct {
	Head0 uint64
	Head1 uint64
	Math  uint64
	Copy  uint64
	Loop  uint64
	Count uint64 // number of pairs executed

	Halts [4]uint64 // indexed by bff.HaltReason
}

// Add merges another Counters into the receiver's categories in place.
func (c *Counters) Add(o Counters) {
	c.Head0 += o.Head0
	c.Head1 += o.Head1
	c.Math += o.Math
	c.Copy += o.Copy
	c.Loop += o.Loop
	c.Count += o.Count
	for i, n := range o.Halts {
		c.Halts[i] += n
	}
}

// AddStats merges one pair's bff.Stats into the counters.
func (c *Counters) AddStats(stats bff.Stats) {
	c.Head0 += uint64(stats.Head0Count)
	c.Head1 += uint64(stats.Head1Count)
	c.Math += uint64(stats.MathCount)
	c.Copy += uint64(stats.CopyCount)
	c.Loop += uint64(stats.LoopCount)
	c.Count++
	c.Halts[stats.HaltReason]++
}

// Dispatcher is satisfied by the execution pool (package pool). Soup only
// depends on this interface, not on the pool package, so the two packages
// don't have to import each other in both directions.
type Dispatcher interface {
	Dispatch(ctx context.Context, buf []byte, pairs []Pair, opts PairOptions) (Counters, error)
}

// Soup owns the flat byte buffer and its partitioning into regions. It is
// safe for one driver goroutine to call RunStep/Mutate/SnapshotView on
// while pool workers it dispatched to are concurrently writing into Buf —
// that concurrent writing is the entire point of the model; Soup's own
// mutex only protects the bookkeeping fields (pairCount), never the
// buffer itself.
type Soup struct {
	buf        []byte
	regionSize int
	numTapes   int

	mu        deadlock.Mutex
	pairCount int64
}

// Init allocates a soup of width*height bytes, partitioned into
// regionSize-byte regions, and fills it with uniform random bytes. R must
// be a power of two and must evenly divide the soup size's accounting
// (numTapes = size/R) for epoch tracking to be meaningful; both are
// validated by the config package before Init is called.
func Init(width, height, regionSize int, rng *rand.Rand) *Soup {
	size := width * height
	buf := make([]byte, size)
	fillRandom(buf, rng)

	return &Soup{
		buf:        buf,
		regionSize: regionSize,
		numTapes:   size / regionSize,
	}
}

// Len returns the total soup size in bytes.
func (s *Soup) Len() int { return len(s.buf) }

// RegionSize returns R.
func (s *Soup) RegionSize() int { return s.regionSize }

// NumTapes returns SOUP_SIZE / R, the denominator of the epoch counter.
func (s *Soup) NumTapes() int { return s.numTapes }

// Buf exposes the raw soup buffer for the execution pool to read and
// write directly — regions are logical views into this slice, never
// copies, except transiently inside one pair's tape.
func (s *Soup) Buf() []byte { return s.buf }

// SnapshotView returns a read-only copy of length bytes starting at
// offset, for a visualization layer (or a checkpoint writer) to consume
// without racing the pool's in-place writes. offset+length must not
// exceed the soup size.
func (s *Soup) SnapshotView(offset, length int) []byte {
	out := make([]byte, length)
	copy(out, s.buf[offset:offset+length])
	return out
}

// PairCount returns the cumulative number of pairs executed so far.
func (s *Soup) PairCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pairCount
}

// Epoch returns pairCount / numTapes, a normalized measure of how many
// times the soup has been turned over.
func (s *Soup) Epoch() float64 {
	return float64(s.PairCount()) / float64(s.numTapes)
}

// Reset refills the soup with fresh random bytes and zeroes the pair
// counter, keeping its dimensions and region size unchanged.
func (s *Soup) Reset(rng *rand.Rand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fillRandom(s.buf, rng)
	s.pairCount = 0
}

// RunStep selects batchSize pairs, dispatches them to dispatcher, applies
// mutation to every region touched by the batch, and advances the epoch
// counter. It returns the aggregated counters from the dispatch so the
// driver can update its own EMAs.
func (s *Soup) RunStep(ctx context.Context, dispatcher Dispatcher, cfg StepConfig, rng *rand.Rand) (Counters, []Pair, error) {
	if cfg.BatchSize == 0 {
		return Counters{}, nil, nil
	}

	pairs := make([]Pair, 0, cfg.BatchSize)
	for i := uint32(0); i < cfg.BatchSize; i++ {
		pair, err := s.SelectPair(cfg.Select, rng)
		if err != nil {
			return Counters{}, nil, fmt.Errorf("soup: selecting pair %d/%d: %w", i, cfg.BatchSize, err)
		}
		pairs = append(pairs, pair)
	}

	counters, err := dispatcher.Dispatch(ctx, s.buf, pairs, cfg.Pair)
	if err != nil {
		return Counters{}, nil, err
	}

	s.Mutate(pairs, cfg.MutationRate, rng)

	s.mu.Lock()
	s.pairCount += int64(cfg.BatchSize)
	s.mu.Unlock()

	return counters, pairs, nil
}

// StepConfig bundles everything RunStep needs for one tick.
type StepConfig struct {
	BatchSize    uint32
	Select       SelectConfig
	Pair         PairOptions
	MutationRate float64
}

// Mutate applies the soup's mutation pass: for every region touched by
// pairs (both the A and B side of each pair), and every byte offset
// within that region, replace the byte with a uniformly random value
// with independent probability rate.
func (s *Soup) Mutate(pairs []Pair, rate float64, rng *rand.Rand) {
	if rate <= 0 {
		return
	}
	r := uint32(s.regionSize)
	for _, p := range pairs {
		mutateRegion(s.buf, p.A, r, rate, rng)
		mutateRegion(s.buf, p.B, r, rate, rng)
	}
}

// fillRandom fills buf with uniform random bytes eight at a time, since
// math/rand/v2.Rand has no io.Reader-style bulk fill method.
func fillRandom(buf []byte, rng *rand.Rand) {
	i := 0
	for ; i+8 <= len(buf); i += 8 {
		v := rng.Uint64()
		for b := 0; b < 8; b++ {
			buf[i+b] = byte(v >> (8 * b))
		}
	}
	if rem := len(buf) - i; rem > 0 {
		v := rng.Uint64()
		for b := 0; b < rem; b++ {
			buf[i+b] = byte(v >> (8 * b))
		}
	}
}

func mutateRegion(buf []byte, start, regionSize uint32, rate float64, rng *rand.Rand) {
	region := buf[start : start+regionSize]
	for i := range region {
		if rng.Float64() < rate {
			region[i] = byte(rng.IntN(256))
		}
	}
}
