// turingsoup runs a primordial-soup simulation: a population of
// self-modifying byte tapes, repeatedly paired and interpreted, in which
// self-replicators emerge under pure random drift.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/lcrh/turingsoup/config"
	"github.com/lcrh/turingsoup/driver"
	"github.com/lcrh/turingsoup/pool"
	"github.com/lcrh/turingsoup/server"
	"github.com/lcrh/turingsoup/soup"
	"github.com/lcrh/turingsoup/storage/checkpoint"
	"github.com/lcrh/turingsoup/storage/history"
)

func main() {
	configPath := flag.String("config", "", "Path to soup.toml (uses built-in defaults if unset)")
	addr := flag.String("addr", "", "HTTP/WebSocket address to serve on, e.g. :8080 (disabled if unset)")
	checkpointPath := flag.String("checkpoint", "", "SQLite checkpoint database path (disabled if unset)")
	checkpointEvery := flag.Duration("checkpoint-every", 30*time.Second, "Checkpoint cadence (used with -checkpoint)")
	historyPath := flag.String("history", "", "DuckDB history database path (disabled if unset)")
	workers := flag.Int("workers", 0, "Execution pool worker count (0 = hardwareConcurrency-1)")
	verbose := flag.Bool("v", false, "Verbose logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: turingsoup [options]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a primordial-soup simulation until interrupted.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	commonlog.Configure(verbosity, nil)
	log := commonlog.GetLogger("turingsoup")

	cfg := config.Default().Resolve()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "turingsoup: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *workers != 0 {
		cfg.Batch.Workers = *workers
	}

	rngSeed1, rngSeed2 := uint64(time.Now().UnixNano()), uint64(os.Getpid())
	soupRNG := rand.New(rand.NewPCG(rngSeed1, rngSeed2))
	driverRNG := rand.New(rand.NewPCG(rngSeed1^0xff, rngSeed2^0xff))

	s := soup.Init(cfg.Soup.Width, cfg.Soup.Height, cfg.Soup.RegionSize, soupRNG)
	p := pool.New(cfg.Batch.Workers)
	d := driver.New(cfg, s, p, driverRNG)

	var cp *checkpoint.Store
	var runID string
	if *checkpointPath != "" {
		store, err := checkpoint.Open(*checkpointPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "turingsoup: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		cp = store
		runID = checkpoint.NewRunID()
		log.Infof("checkpointing run %s to %s every %s", runID, *checkpointPath, *checkpointEvery)
	}

	var hist *history.Store
	if *historyPath != "" {
		store, err := history.Open(*historyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "turingsoup: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		hist = store
		log.Infof("recording batch history to %s", *historyPath)
	}

	if hist != nil {
		d.OnTick(func(info driver.TickInfo) {
			if err := hist.Append(runID, info.Epoch, info.Counters); err != nil {
				log.Errorf("history append failed: %v", err)
				panic(err)
			}
		})
	}

	d.Start()

	if *addr != "" {
		srv := server.New(d)
		go func() {
			if err := srv.ListenAndServe(*addr); err != nil {
				log.Errorf("server stopped: %v", err)
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Infof("soup: %dx%d region=%d pairs/step=%d", cfg.Soup.Width, cfg.Soup.Height, cfg.Soup.RegionSize, cfg.Batch.PairsPerStep)

	lastCheckpoint := time.Now()
	for ctx.Err() == nil {
		if err := d.Tick(ctx); err != nil && err != driver.ErrBackpressure {
			if ctx.Err() != nil {
				break
			}
			log.Errorf("tick failed: %v", err)
			panic(err)
		}

		if cp != nil && time.Since(lastCheckpoint) >= *checkpointEvery {
			snap := checkpoint.Snapshot{
				Epoch:      d.Epoch(),
				RegionSize: cfg.Soup.RegionSize,
				Seed1:      rngSeed1,
				Seed2:      rngSeed2,
				Buf:        d.Snapshot(0, d.SoupLen()),
			}
			if err := cp.Save(runID, snap); err != nil {
				log.Errorf("checkpoint save failed: %v", err)
				panic(err)
			}
			lastCheckpoint = time.Now()
		}
	}

	log.Infof("shutting down at epoch %.4f", d.Epoch())
}
