// Tablebench drives TwoLevelTable and TrieTable through insert, lookup and
// delete workloads, verifies the result against a btree model, and reports
// timings and peak memory.
//
// Usage:
//
//	go run ./cmd/tablebench -keys 1000000 -hash xxh3
//	go run ./cmd/tablebench -config workloads.toml -words /usr/share/dict/words
//
// Flags:
//
//	-config     TOML workload file (default: one workload per table kind)
//	-words      Newline-separated word file used as keys (default: generated keys)
//	-keys       Number of keys when generating, or cap on words read (default: 200,000)
//	-hash       Two-level hash strategy for the default workloads (default: polynomial)
//	-parallel   Workloads run at once, 0 for no limit (default: GOMAXPROCS)
//	-seed       Seed for generated keys (default: 1)
//	-log-level  debug, info, warn or error (default: info)
//
// A workload file holds one [[workload]] table per run:
//
//	[[workload]]
//	name = "twolevel-xxh3"
//	table = "twolevel"
//	keys = 500000
//	hash = "xxh3"
//	sizes = [5, 13, 29, 53, 97]
//	delete_fraction = 0.5
//	seed = 7
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tamirms/nesthash"
)

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func main() {
	configFlag := flag.String("config", "", "TOML workload file")
	wordsFlag := flag.String("words", "", "newline-separated word file used as keys")
	keysFlag := flag.Int("keys", 200_000, "number of keys to generate, or cap on words read")
	hashFlag := flag.String("hash", "", "two-level hash strategy: "+strings.Join(nesthash.HashNames, ", "))
	parallelFlag := flag.Int("parallel", runtime.GOMAXPROCS(0), "workloads run at once (0 = no limit)")
	seedFlag := flag.Uint64("seed", 1, "seed for generated keys")
	levelFlag := flag.String("log-level", "info", "log level: debug, info, warn or error")
	flag.Parse()

	logger, err := newLogger(*levelFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(*configFlag, *wordsFlag, *keysFlag, *hashFlag, *parallelFlag, *seedFlag, logger); err != nil {
		logger.Error("tablebench failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(configPath, wordsPath string, numKeys int, hash string, parallel int, seed uint64, logger *zap.Logger) error {
	cfg := defaultConfig(numKeys, hash)
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if cfg, err = ParseConfig(string(data)); err != nil {
			return err
		}
	} else if err := cfg.validate(); err != nil {
		return err
	}

	keys, err := loadKeys(wordsPath, numKeys, seed)
	if err != nil {
		return err
	}
	logger.Info("keys ready", zap.Int("keys", len(keys)), zap.Int("workloads", len(cfg.Workloads)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	baselineRSS := getMaxRSS()
	start := time.Now()
	results, err := runAll(ctx, cfg, keys, parallel, logger)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	peakRSS := getMaxRSS()

	printResults(results)
	fmt.Printf("Total wall time: %.2f sec, peak RSS growth: %.1f MB\n",
		elapsed.Seconds(), float64(peakRSS-min(baselineRSS, peakRSS))/1_000_000)
	return nil
}

func loadKeys(wordsPath string, n int, seed uint64) ([]string, error) {
	if wordsPath == "" {
		return generateKeys(rand.New(rand.NewPCG(seed, seed^0x5DEECE66D)), n), nil
	}
	w, err := openWords(wordsPath)
	if err != nil {
		return nil, err
	}
	keys := w.Words(n)
	if err := w.Close(); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("word file %s holds no words", wordsPath)
	}
	return keys, nil
}

func printResults(results []Result) {
	fmt.Printf("\n")
	fmt.Printf("╔══════════════════════╦══════════╦═════════╦═════════╦══════════╦═══════╦═════════╦═════════╦═════════╗\n")
	fmt.Printf("║ Workload             ║ Table    ║ Keys    ║ Deleted ║ Capacity ║ Depth ║ Insert  ║ Lookup  ║ Delete  ║\n")
	fmt.Printf("╠══════════════════════╬══════════╬═════════╬═════════╬══════════╬═══════╬═════════╬═════════╬═════════╣\n")
	for _, r := range results {
		fmt.Printf("║ %-20s ║ %-8s ║ %7d ║ %7d ║ %8d ║ %5d ║ %s ║ %s ║ %s ║\n",
			truncate(r.Name, 20), r.Table, r.Inserted, r.Deleted, r.Capacity, r.Depth,
			perOp(r.Insert, r.Inserted), perOp(r.Lookup, r.Inserted), perOp(r.Delete, r.Deleted))
	}
	fmt.Printf("╚══════════════════════╩══════════╩═════════╩═════════╩══════════╩═══════╩═════════╩═════════╩═════════╝\n")
}

// perOp formats the mean latency of n operations in nanoseconds.
func perOp(d time.Duration, n int) string {
	if n == 0 {
		return "    -  "
	}
	return fmt.Sprintf("%5.0fns", float64(d.Nanoseconds())/float64(n))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
