package driver

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/lcrh/turingsoup/config"
	"github.com/lcrh/turingsoup/pool"
	"github.com/lcrh/turingsoup/soup"
)

func newTestDriver(t *testing.T) *Driver {
	t.Helper()
	cfg := config.Default()
	cfg.Soup.Width, cfg.Soup.Height, cfg.Soup.RegionSize = 256, 256, 64
	cfg.Batch.PairsPerStep = 4
	cfg = cfg.Resolve()

	s := soup.Init(cfg.Soup.Width, cfg.Soup.Height, cfg.Soup.RegionSize, rand.New(rand.NewPCG(1, 1)))
	p := pool.New(2)
	d := New(cfg, s, p, rand.New(rand.NewPCG(2, 2)))
	d.Start()
	return d
}

func TestTick_StoppedDriverIsNoOp(t *testing.T) {
	d := newTestDriver(t)
	d.Stop()

	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick while stopped: %v", err)
	}
	if d.Epoch() != 0 {
		t.Errorf("Epoch() = %v, want 0 after a no-op tick", d.Epoch())
	}
}

func TestTick_AdvancesEpoch(t *testing.T) {
	d := newTestDriver(t)

	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if d.Epoch() <= 0 {
		t.Errorf("Epoch() = %v, want > 0 after a tick", d.Epoch())
	}
}

func TestTick_Backpressure(t *testing.T) {
	d := newTestDriver(t)
	d.mu.Lock()
	d.params.maxPending = 0
	d.mu.Unlock()

	err := d.Tick(context.Background())
	if err != ErrBackpressure {
		t.Errorf("Tick with maxPending=0 = %v, want ErrBackpressure", err)
	}
}

func TestReset_ClearsEpochAndEMA(t *testing.T) {
	d := newTestDriver(t)
	for i := 0; i < 5; i++ {
		if err := d.Tick(context.Background()); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
	if d.Epoch() == 0 {
		t.Fatal("expected nonzero epoch before reset")
	}

	d.Reset(rand.New(rand.NewPCG(9, 9)))

	if d.Epoch() != 0 {
		t.Errorf("Epoch() = %v, want 0 after Reset", d.Epoch())
	}
	if ema := d.EMA(); ema != (Counters{}) {
		t.Errorf("EMA() = %+v, want zero value after Reset", ema)
	}
}

func TestSetters_ApplyToNextTick(t *testing.T) {
	d := newTestDriver(t)
	d.SetMutationRate(0)
	d.SetPairsPerStep(1)
	d.SetAlignment(64)
	d.SetHead1Offset(64)
	d.SetMaxSteps(128)
	d.SetLocalityLimit(0)

	d.mu.RLock()
	p := d.params
	d.mu.RUnlock()

	if p.pairsPerStep != 1 || p.alignment != 64 || p.head1Offset != 64 || p.maxSteps != 128 {
		t.Errorf("params after setters = %+v", p)
	}
	if !math.IsInf(p.localityLimit, 1) {
		t.Errorf("localityLimit = %v, want +Inf after SetLocalityLimit(0)", p.localityLimit)
	}
}

func TestOnSample_FiresAfterThreshold(t *testing.T) {
	d := newTestDriver(t)
	d.SetSampleEvery(2)

	var gotSamples int
	d.OnSample(func(Sample) { gotSamples++ })

	for i := 0; i < 3; i++ {
		if err := d.Tick(context.Background()); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}

	if gotSamples == 0 {
		t.Error("expected OnSample to fire at least once after several ticks")
	}
}
