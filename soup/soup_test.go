package soup

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/lcrh/turingsoup/pkg/bff"
)

func newTestSoup(t *testing.T) *Soup {
	t.Helper()
	rng := rand.New(rand.NewPCG(1, 2))
	return Init(64, 64, 64, rng)
}

func TestInit_FillsAndSizes(t *testing.T) {
	s := newTestSoup(t)
	if s.Len() != 64*64 {
		t.Errorf("Len() = %d, want %d", s.Len(), 64*64)
	}
	if s.RegionSize() != 64 {
		t.Errorf("RegionSize() = %d, want 64", s.RegionSize())
	}
	if s.NumTapes() != s.Len()/s.RegionSize() {
		t.Errorf("NumTapes() = %d, want %d", s.NumTapes(), s.Len()/s.RegionSize())
	}
}

func TestSelectPair_NonOverlap(t *testing.T) {
	s := newTestSoup(t)
	rng := rand.New(rand.NewPCG(7, 9))
	cfg := SelectConfig{Alignment: 1, LocalityLimit: math.Inf(1)}

	for i := 0; i < 500; i++ {
		pair, err := s.SelectPair(cfg, rng)
		if err != nil {
			t.Fatalf("SelectPair: %v", err)
		}
		if absDiff(pair.A, pair.B) < uint32(s.RegionSize()) {
			t.Fatalf("pair %+v overlaps (region size %d)", pair, s.RegionSize())
		}
		if pair.A+uint32(s.RegionSize()) > uint32(s.Len()) || pair.B+uint32(s.RegionSize()) > uint32(s.Len()) {
			t.Fatalf("pair %+v crosses the end of the buffer", pair)
		}
	}
}

func TestSelectPair_LocalityWindowRespected(t *testing.T) {
	s := newTestSoup(t)
	rng := rand.New(rand.NewPCG(3, 4))
	cfg := SelectConfig{Alignment: 64, LocalityLimit: 5} // tight window: radius of 3 aligned positions
	delta := localityDelta(cfg.LocalityLimit, s.NumTapes(), uint32(s.RegionSize()), cfg.Alignment)

	for i := 0; i < 200; i++ {
		pair, err := s.SelectPair(cfg, rng)
		if err != nil {
			// A sufficiently tight window can legitimately exhaust
			// maxSelectAttempts; that's the documented failure mode.
			continue
		}
		if absDiff(pair.A, pair.B) < uint32(s.RegionSize()) {
			t.Fatalf("pair %+v overlaps", pair)
		}
		if absDiff(pair.A, pair.B) > delta*cfg.Alignment {
			t.Fatalf("pair %+v lies outside the locality window of %d positions", pair, delta)
		}
	}
}

func TestExecutePair_WriteBackGate(t *testing.T) {
	s := newTestSoup(t)
	opts := PairOptions{RegionSize: uint32(s.RegionSize()), Head1Offset: uint32(s.RegionSize()), MaxSteps: bff.DefaultMaxSteps}

	// Region A: only head moves, no writes.
	for i := 0; i < s.RegionSize(); i++ {
		s.buf[i] = bff.OpHead0Inc
	}
	for i := s.RegionSize(); i < 2*s.RegionSize(); i++ {
		s.buf[i] = bff.OpHead1Dec
	}

	before := append([]byte(nil), s.buf[:2*s.RegionSize()]...)

	pair := Pair{A: 0, B: uint32(s.RegionSize())}
	stats := RunPair(s.buf, pair, opts)

	if stats.Wrote() {
		t.Fatalf("expected no write-back, got Wrote()=true: %+v", stats)
	}
	if string(s.buf[:2*s.RegionSize()]) != string(before) {
		t.Errorf("soup bytes changed despite a head-movement-only tape")
	}
}

func TestExecutePair_WriteBackCommits(t *testing.T) {
	s := newTestSoup(t)
	r := uint32(s.RegionSize())
	opts := PairOptions{RegionSize: r, Head1Offset: r, MaxSteps: bff.DefaultMaxSteps}

	// Every byte a no-op except the first, so the trace is fully
	// predictable: head0 never moves past index 0 again.
	for i := range s.buf[:2*r] {
		s.buf[i] = 0x00
	}
	s.buf[0] = bff.OpInc // tape[0]++, a genuine write

	pair := Pair{A: 0, B: r}
	stats := RunPair(s.buf, pair, opts)

	if !stats.Wrote() {
		t.Fatalf("expected a write-back, got Wrote()=false: %+v", stats)
	}
	if s.buf[0] != bff.OpCopyToHead0 {
		t.Errorf("soup[0] = 0x%02X, want 0x%02X after commit", s.buf[0], bff.OpCopyToHead0)
	}
}

func TestExecutePair_Deterministic(t *testing.T) {
	s := newTestSoup(t)
	r := uint32(s.RegionSize())
	opts := PairOptions{RegionSize: r, Head1Offset: r, MaxSteps: bff.DefaultMaxSteps}
	pair := Pair{A: 0, B: r}

	bufCopy := append([]byte(nil), s.buf...)

	statsA, tapeA := ExecutePair(s.buf, pair, opts)
	statsB, tapeB := ExecutePair(bufCopy, pair, opts)

	if statsA != statsB {
		t.Errorf("ExecutePair is non-deterministic: %+v vs %+v", statsA, statsB)
	}
	if string(tapeA) != string(tapeB) {
		t.Errorf("ExecutePair produced different tapes for identical input")
	}
}

type sequentialDispatcher struct{}

func (sequentialDispatcher) Dispatch(ctx context.Context, buf []byte, pairs []Pair, opts PairOptions) (Counters, error) {
	var total Counters
	for _, p := range pairs {
		stats := RunPair(buf, p, opts)
		total.AddStats(stats)
	}
	return total, nil
}

func TestRunStep_AdvancesEpoch(t *testing.T) {
	s := newTestSoup(t)
	rng := rand.New(rand.NewPCG(11, 13))
	cfg := StepConfig{
		BatchSize:    10,
		Select:       SelectConfig{Alignment: 64, LocalityLimit: math.Inf(1)},
		Pair:         PairOptions{RegionSize: uint32(s.RegionSize()), Head1Offset: uint32(s.RegionSize()), MaxSteps: bff.DefaultMaxSteps},
		MutationRate: 0,
	}

	_, _, err := s.RunStep(context.Background(), sequentialDispatcher{}, cfg, rng)
	if err != nil {
		t.Fatalf("RunStep: %v", err)
	}

	if s.PairCount() != 10 {
		t.Errorf("PairCount() = %d, want 10", s.PairCount())
	}
	wantEpoch := 10.0 / float64(s.NumTapes())
	if s.Epoch() != wantEpoch {
		t.Errorf("Epoch() = %v, want %v", s.Epoch(), wantEpoch)
	}
}

func TestMutate_ZeroRateIsNoOp(t *testing.T) {
	s := newTestSoup(t)
	before := append([]byte(nil), s.buf...)
	rng := rand.New(rand.NewPCG(5, 6))

	s.Mutate([]Pair{{A: 0, B: 64}}, 0, rng)

	if string(s.buf) != string(before) {
		t.Errorf("Mutate with rate=0 changed the buffer")
	}
}

func TestMutate_FullRateRewritesRegion(t *testing.T) {
	s := newTestSoup(t)
	for i := range s.buf[:64] {
		s.buf[i] = 0xAB
	}
	rng := rand.New(rand.NewPCG(5, 6))

	s.Mutate([]Pair{{A: 0, B: 64}}, 1.0, rng)

	allSame := true
	for _, b := range s.buf[:64] {
		if b != 0xAB {
			allSame = false
			break
		}
	}
	if allSame {
		t.Errorf("Mutate with rate=1.0 left the region unchanged (astronomically unlikely)")
	}
}

func TestSnapshotView_IsACopy(t *testing.T) {
	s := newTestSoup(t)
	view := s.SnapshotView(0, 16)
	view[0] = ^view[0]
	if s.buf[0] == view[0] {
		t.Errorf("SnapshotView returned a view that aliases the soup buffer")
	}
}
