// Command kvbench runs a synthetic workload against a store of cache sets
// and exposes Prometheus metrics and optional pprof endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/kvstore/cacheset"
	"github.com/IvanBrykalov/kvstore/internal/config"
	"github.com/IvanBrykalov/kvstore/kvcache"
	pmet "github.com/IvanBrykalov/kvstore/metrics/prom"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "kvbench:", err)
		os.Exit(1)
	}
}

func run() error {
	// ---- Workload flags (store flags are registered by config.Load) ----
	var (
		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 80, "read percentage [0..100]")
		delPct   = flag.Int("deletes", 2, "delete percentage of writes [0..100]")

		keys    = flag.Int("keys", 1_000_000, "keyspace size")
		zipfS   = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV   = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		preload = flag.Int("preload", -1, "preload entries (-1 = half of total capacity)")

		pprofAddr = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
	)
	cfg, err := config.Load(flag.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		return err
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(cfg.Level())
	logger, err := zc.Build()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- pprof + Prometheus (both on DefaultServeMux) ----
	metrics := pmet.New(nil, "kvstore", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	for _, addr := range []string{*pprofAddr, cfg.MetricsAddr} {
		if addr == "" {
			continue
		}
		go func() {
			logger.Info("http: serving", zap.String("addr", addr))
			if err := http.ListenAndServe(addr, nil); err != nil {
				logger.Warn("http: stopped", zap.String("addr", addr), zap.Error(err))
			}
		}()
	}

	// ---- Build store ----
	opt := cfg.StoreOptions()
	opt.Metrics = metrics
	opt.Logger = logger
	store, err := kvcache.New(opt)
	if err != nil {
		return err
	}
	capacity := store.NumSets() * cfg.ElemPerSet

	pl := *preload
	if pl < 0 {
		pl = capacity / 2
	}
	for i := 0; i < pl; i++ {
		k := []byte("k:" + strconv.Itoa(i))
		if err := store.Put(k, []byte("v"+strconv.Itoa(i))); err != nil {
			return fmt.Errorf("preload: %w", err)
		}
	}
	logger.Info("store ready",
		zap.Int("sets", store.NumSets()),
		zap.Int("elem_per_set", cfg.ElemPerSet),
		zap.Int("preloaded", store.Len()))

	// ---- Snapshot flags for goroutines ----
	readPctVal := *readPct
	delPctVal := *delPct
	keysMax := uint64(max(*keys-1, 1))
	seedBase := *seed
	workersN := max(*workers, 1)

	// ---- Load generation ----
	var reads, writes, deletes, hits, misses, total atomic.Uint64
	runCtx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	start := time.Now()
	g, gctx := errgroup.WithContext(runCtx)
	for w := 0; w < workersN; w++ {
		g.Go(func() error {
			// rand.Rand is not goroutine-safe: one RNG + Zipf per worker.
			r := rand.New(rand.NewSource(seedBase + int64(w)*9973))
			zipf := rand.NewZipf(r, *zipfS, *zipfV, keysMax)

			for gctx.Err() == nil {
				k := []byte("k:" + strconv.FormatUint(zipf.Uint64(), 10))
				total.Add(1)

				if int(r.Int31n(100)) < readPctVal {
					reads.Add(1)
					_, err := store.Get(k)
					switch {
					case err == nil:
						hits.Add(1)
					case errors.Is(err, cacheset.ErrNotFound):
						misses.Add(1)
					default:
						return err
					}
					continue
				}

				if int(r.Int31n(100)) < delPctVal {
					deletes.Add(1)
					if err := store.Delete(k); err != nil && !errors.Is(err, cacheset.ErrNotFound) {
						return err
					}
					continue
				}

				writes.Add(1)
				if err := store.Put(k, []byte("v"+strconv.Itoa(r.Int()))); err != nil {
					if cacheset.IsRetryable(err) {
						logger.Warn("put failed, skipping", zap.Error(err))
						continue
					}
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	// ---- Report ----
	ops := total.Load()
	readsN, hitsN := reads.Load(), hits.Load()
	hitRate := 0.0
	if readsN > 0 {
		hitRate = float64(hitsN) / float64(readsN) * 100
	}
	st := store.Stats()

	fmt.Printf("sets=%d elem_per_set=%d workers=%d keys=%d dur=%v seed=%d\n",
		store.NumSets(), cfg.ElemPerSet, workersN, *keys, elapsed, seedBase)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d  deletes=%d\n",
		ops, float64(ops)/elapsed.Seconds(), readsN, writes.Load(), deletes.Load())
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%  evictions=%d\n",
		hitsN, misses.Load(), hitRate, st.Evictions)
	fmt.Printf("Len()=%d  bytes=%d\n", store.Len(), st.Bytes)
	return nil
}
