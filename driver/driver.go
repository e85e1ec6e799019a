package driver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/sasha-s/go-deadlock"
	"github.com/tliron/commonlog"

	"github.com/lcrh/turingsoup/config"
	"github.com/lcrh/turingsoup/pkg/complexity"
	"github.com/lcrh/turingsoup/pkg/diversity"
	"github.com/lcrh/turingsoup/soup"
)

var log = commonlog.GetLogger("turingsoup.driver")

// emaAlpha is the smoothing factor for the driver's category-count
// moving averages: low enough that a single noisy tick doesn't dominate
// the reported rate.
const emaAlpha = 0.1

// Sample is the observability payload produced when the pair-since-last-
// sample accumulator crosses the configured threshold: a snapshot of the
// soup's complexity plus its genotype/phenotype diversity.
type Sample struct {
	Epoch              float64
	ShannonEntropy     float64
	KolmogorovEstimate float64
	Diversity          diversity.Summary
}

// SampleFunc receives one Sample per threshold crossing. It must not
// block the tick loop for long; a server package wires this to a
// best-effort broadcast.
type SampleFunc func(Sample)

// Driver runs the tick loop against one soup and one dispatcher.
type Driver struct {
	soup       *soup.Soup
	dispatcher soup.Dispatcher
	rng        *rand.Rand
	log        commonlog.Logger

	mu     deadlock.RWMutex
	params liveParams
	cfg    config.Config

	outstanding      int
	ema              Counters
	pairsSinceSample uint64
	sampleEvery      uint64
	onSample         SampleFunc
	onTick           TickFunc

	running bool
}

// TickInfo is the per-tick payload passed to a TickFunc: everything a
// live stream needs to render one frame.
type TickInfo struct {
	Epoch    float64
	Counters soup.Counters
}

// TickFunc receives one TickInfo after every successful Tick. Like
// SampleFunc, it must not block for long.
type TickFunc func(TickInfo)

// OnTick registers cb to be invoked after every successful Tick, after any
// callbacks registered before it. Passing nil removes every registered
// callback.
func (d *Driver) OnTick(cb TickFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cb == nil || d.onTick == nil {
		d.onTick = cb
		return
	}
	prev := d.onTick
	d.onTick = func(info TickInfo) {
		prev(info)
		cb(info)
	}
}

// liveParams holds the configuration values each Tick reads. The Set*
// methods change all of them except maxPending at runtime without
// restarting the driver.
type liveParams struct {
	alignment     uint32
	localityLimit float64
	head1Offset   uint32
	maxSteps      uint32
	mutationRate  float64
	pairsPerStep  uint32
	maxPending    int
}

// Counters mirrors soup.Counters as floating-point EMAs for reporting.
type Counters struct {
	Head0, Head1, Math, Copy, Loop float64
}

// New builds a Driver from a resolved configuration, an already-seeded
// soup, and a dispatcher (normally a *pool.Pool). rng is used for pair
// selection and mutation on the driver's own goroutine. cfg.Pair.Head1Offset
// must be non-nil, which Config.Resolve guarantees.
func New(cfg config.Config, s *soup.Soup, dispatcher soup.Dispatcher, rng *rand.Rand) *Driver {
	return &Driver{
		soup:       s,
		dispatcher: dispatcher,
		rng:        rng,
		log:        log,
		cfg:        cfg,
		params: liveParams{
			alignment:     uint32(cfg.Pair.Alignment),
			localityLimit: resolveLocality(cfg.Pair.LocalityLimit),
			head1Offset:   uint32(*cfg.Pair.Head1Offset),
			maxSteps:      uint32(cfg.Pair.MaxSteps),
			mutationRate:  cfg.Pair.MutationRate,
			pairsPerStep:  uint32(cfg.Batch.PairsPerStep),
			maxPending:    cfg.Batch.MaxPending,
		},
		sampleEvery: 1000,
	}
}

func resolveLocality(pct float64) float64 {
	if pct <= 0 {
		return math.Inf(1)
	}
	return pct
}

// OnSample registers cb to be invoked whenever the pair accumulator
// crosses the sampling threshold. Passing nil disables sampling.
func (d *Driver) OnSample(cb SampleFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onSample = cb
}

// SetSampleEvery overrides the default 1000-pair sampling cadence.
func (d *Driver) SetSampleEvery(n uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sampleEvery = n
}

// Start marks the driver running; Tick is a no-op while stopped.
func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = true
	d.log.Info("driver started")
}

// Stop marks the driver stopped.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	d.log.Info("driver stopped")
}

// Running reports whether the driver is currently accepting ticks.
func (d *Driver) Running() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// Reset reinitializes the underlying soup with fresh random bytes and
// clears the driver's counters and epoch.
func (d *Driver) Reset(rng *rand.Rand) {
	d.soup.Reset(rng)

	d.mu.Lock()
	d.ema = Counters{}
	d.pairsSinceSample = 0
	d.mu.Unlock()

	d.log.Info("driver reset")
}

// SetAlignment updates the pair-selection alignment used by future ticks.
func (d *Driver) SetAlignment(v uint32) {
	d.mu.Lock()
	d.params.alignment = v
	d.mu.Unlock()
}

// SetLocalityLimit updates the pair-selection locality window (percent of
// soup; <=0 means unconstrained).
func (d *Driver) SetLocalityLimit(pct float64) {
	d.mu.Lock()
	d.params.localityLimit = resolveLocality(pct)
	d.mu.Unlock()
}

// SetHead1Offset updates the interpreter's initial head1 offset.
func (d *Driver) SetHead1Offset(v uint32) {
	d.mu.Lock()
	d.params.head1Offset = v
	d.mu.Unlock()
}

// SetMaxSteps updates the interpreter's step budget.
func (d *Driver) SetMaxSteps(v uint32) {
	d.mu.Lock()
	d.params.maxSteps = v
	d.mu.Unlock()
}

// SetMutationRate updates the per-byte mutation probability.
func (d *Driver) SetMutationRate(rate float64) {
	d.mu.Lock()
	d.params.mutationRate = rate
	d.mu.Unlock()
}

// SetPairsPerStep updates the batch size for future ticks.
func (d *Driver) SetPairsPerStep(v uint32) {
	d.mu.Lock()
	d.params.pairsPerStep = v
	d.mu.Unlock()
}

// Epoch returns the soup's current pairCount/numTapes ratio.
func (d *Driver) Epoch() float64 { return d.soup.Epoch() }

// EMA returns the driver's current smoothed per-category counters.
func (d *Driver) EMA() Counters {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ema
}

// ErrBackpressure is returned by Tick when too many dispatches are
// already outstanding and the caller needs to slow down before issuing
// more.
var ErrBackpressure = errors.New("driver: outstanding dispatch count at limit")

// Tick runs exactly one batch: select pairsPerStep pairs, dispatch them,
// mutate touched regions, advance the epoch, and update the EMA
// counters. It is a no-op returning nil if the driver is stopped.
func (d *Driver) Tick(ctx context.Context) error {
	if !d.Running() {
		return nil
	}

	d.mu.Lock()
	if d.outstanding >= d.params.maxPending {
		d.mu.Unlock()
		return ErrBackpressure
	}
	d.outstanding++
	p := d.params
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.outstanding--
		d.mu.Unlock()
	}()

	cfg := soup.StepConfig{
		BatchSize: p.pairsPerStep,
		Select:    soup.SelectConfig{Alignment: p.alignment, LocalityLimit: p.localityLimit},
		Pair: soup.PairOptions{
			RegionSize:  uint32(d.soup.RegionSize()),
			Head1Offset: p.head1Offset,
			MaxSteps:    p.maxSteps,
		},
		MutationRate: p.mutationRate,
	}

	counters, _, err := d.soup.RunStep(ctx, d.dispatcher, cfg, d.rng)
	if err != nil {
		return fmt.Errorf("driver: tick failed: %w", err)
	}

	d.updateEMA(counters)
	d.maybeSample()

	d.log.Debugf("tick: epoch=%.4f head0=%d head1=%d math=%d copy=%d loop=%d",
		d.Epoch(), counters.Head0, counters.Head1, counters.Math, counters.Copy, counters.Loop)

	d.mu.RLock()
	cb := d.onTick
	d.mu.RUnlock()
	if cb != nil {
		cb(TickInfo{Epoch: d.Epoch(), Counters: counters})
	}

	return nil
}

// Snapshot returns a read-only copy of length bytes of the soup starting
// at offset, for the server package's /snapshot endpoint.
func (d *Driver) Snapshot(offset, length int) []byte {
	return d.soup.SnapshotView(offset, length)
}

// SoupLen returns the total soup size in bytes.
func (d *Driver) SoupLen() int { return d.soup.Len() }

// Config returns the configuration the driver was constructed with.
func (d *Driver) Config() config.Config { return d.cfg }

func (d *Driver) updateEMA(c soup.Counters) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := float64(c.Count)
	if n == 0 {
		return
	}
	d.ema.Head0 = ema(d.ema.Head0, float64(c.Head0)/n)
	d.ema.Head1 = ema(d.ema.Head1, float64(c.Head1)/n)
	d.ema.Math = ema(d.ema.Math, float64(c.Math)/n)
	d.ema.Copy = ema(d.ema.Copy, float64(c.Copy)/n)
	d.ema.Loop = ema(d.ema.Loop, float64(c.Loop)/n)

	d.pairsSinceSample += c.Count
}

func ema(prev, sample float64) float64 {
	return emaAlpha*sample + (1-emaAlpha)*prev
}

// maybeSample takes a complexity/diversity sample and forwards it to the
// registered SampleFunc once the pair accumulator crosses sampleEvery.
// This never runs on a pool worker goroutine.
func (d *Driver) maybeSample() {
	d.mu.Lock()
	if d.pairsSinceSample < d.sampleEvery || d.onSample == nil {
		d.mu.Unlock()
		return
	}
	d.pairsSinceSample = 0
	cb := d.onSample
	d.mu.Unlock()

	view := d.soup.SnapshotView(0, d.soup.Len())

	sample := Sample{
		Epoch:              d.Epoch(),
		ShannonEntropy:     complexity.ShannonEntropy(view),
		KolmogorovEstimate: complexity.KolmogorovEstimate(view),
		Diversity:          sampleDiversity(view, d.soup.RegionSize()),
	}
	cb(sample)
}

// sampleDiversity hashes every region in view as a genotype and buckets
// its opcode-category shape as a phenotype, mirroring the dominant-
// percentage diversity metrics dropped from the distilled spec.
func sampleDiversity(view []byte, regionSize int) diversity.Summary {
	dsample := diversity.NewSample()
	for start := 0; start+regionSize <= len(view); start += regionSize {
		region := view[start : start+regionSize]
		dsample.Add(region, shapeOf(region))
	}
	return dsample.Summarize()
}

// shapeOf buckets a region's byte values into five coarse opcode-category
// counts for phenotype hashing: head moves, arithmetic, copy, loop, and
// everything else (no-ops/data).
func shapeOf(region []byte) [5]int {
	var shape [5]int
	for _, b := range region {
		switch b {
		case '<', '>', '{', '}':
			shape[0]++
		case '+', '-':
			shape[1]++
		case '.', ',':
			shape[2]++
		case '[', ']':
			shape[3]++
		default:
			shape[4]++
		}
	}
	return shape
}
