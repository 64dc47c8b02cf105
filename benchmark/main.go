// Package main provides a performance benchmarking tool for the outpost
// storage and replay layers. It measures cache write/read throughput, outbox
// enqueue rates, and replay drain rates against a local upstream, running
// each scenario multiple times, treating the first run as cold and averaging
// the rest as warm, generating CSV output for performance analysis and
// documentation.
//
// Prerequisites:
// - None for the default SQLite backend (uses a temp database file)
// - A reachable database for MySQL/PostgreSQL runs
//
// Usage: go run benchmark/main.go [backend] [conn-string]
//
//	backend:     sqlite (default), mysql, or postgresql
//	conn-string: required for mysql/postgresql
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/outpostlabs/outpost/core"
	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/internal/iostore"
	"github.com/outpostlabs/outpost/internal/netclient"
	"github.com/outpostlabs/outpost/schema"
)

// BenchmarkResult holds the result of one scenario (cold run and average of warm runs).
type BenchmarkResult struct {
	Scenario   string
	Backend    string
	Operations int
	ColdTime   string
	WarmTime   string
	Throughput string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	Backend    schema.DatabaseBackend
	ConnStr    string
	Operations int
	Runs       int
	PayloadLen int
}

func main() {
	backend := schema.SQLiteBackend
	connStr := ""

	if len(os.Args) > 1 {
		backend = schema.DatabaseBackend(os.Args[1])
	}
	if len(os.Args) > 2 {
		connStr = os.Args[2]
	}
	if backend != schema.SQLiteBackend && connStr == "" {
		fmt.Printf("Usage: %s [backend] [conn-string]\n", os.Args[0])
		os.Exit(1)
	}
	if backend == schema.SQLiteBackend && connStr == "" {
		tempDir, err := os.MkdirTemp("", "outpost-bench-*")
		if err != nil {
			fmt.Printf("Failed to create temp dir: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = os.RemoveAll(tempDir) }()
		connStr = filepath.Join(tempDir, "bench.db")
	}

	config := BenchmarkConfig{
		Backend:    backend,
		ConnStr:    connStr,
		Operations: 1000,
		Runs:       4,
		PayloadLen: 2048,
	}

	results, err := runBenchmarks(config)
	if err != nil {
		fmt.Printf("Benchmark failed: %v\n", err)
		os.Exit(1)
	}

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// runBenchmarks executes all scenarios against the configured backend.
func runBenchmarks(config BenchmarkConfig) ([]BenchmarkResult, error) {
	fmt.Printf("Starting benchmark: backend %s, %d operations per run, %d runs\n",
		config.Backend, config.Operations, config.Runs)

	cacheStore, err := iostore.NewCacheStore("bench_cache_entries", config.Backend, config.ConnStr)
	if err != nil {
		return nil, fmt.Errorf("cache store init: %w", err)
	}
	defer func() { _ = cacheStore.Close() }()

	mutationStore, err := iostore.NewMutationStore("bench_outbox", config.Backend, config.ConnStr, 0)
	if err != nil {
		return nil, fmt.Errorf("mutation store init: %w", err)
	}
	defer func() { _ = mutationStore.Close() }()

	// Local upstream that accepts every replayed mutation
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	ctx := context.Background()
	payload := make([]byte, config.PayloadLen)

	var results []BenchmarkResult

	// Scenario 1: cache writes
	result := runScenario(config, "cache write", func(run int) error {
		namespace := fmt.Sprintf("bench-run-%d", run)
		for i := range config.Operations {
			key := fmt.Sprintf("%s/item/%d", upstream.URL, i)
			if err := cacheStore.Put(ctx, namespace, key, payload); err != nil {
				return err
			}
		}
		return nil
	})
	results = append(results, result)

	// Scenario 2: cache read hits against the last written namespace
	hitNamespace := fmt.Sprintf("bench-run-%d", config.Runs-1)
	result = runScenario(config, "cache read hit", func(_ int) error {
		for i := range config.Operations {
			key := fmt.Sprintf("%s/item/%d", upstream.URL, i)
			if _, err := cacheStore.Get(ctx, hitNamespace, key); err != nil {
				return err
			}
		}
		return nil
	})
	results = append(results, result)

	// Scenario 3: outbox enqueues
	result = runScenario(config, "outbox enqueue", func(run int) error {
		tag := fmt.Sprintf("bench-tag-%d", run)
		for i := range config.Operations {
			m := schema.DeferredMutation{
				ID:         uuid.NewString(),
				QueueTag:   tag,
				Endpoint:   fmt.Sprintf("%s/orders/%d", upstream.URL, i),
				Method:     http.MethodPost,
				Body:       payload,
				EnqueuedAt: time.Now().UTC(),
			}
			if err := mutationStore.Enqueue(ctx, m); err != nil {
				return err
			}
		}
		return nil
	})
	results = append(results, result)

	// Scenario 4: replay drains each enqueued tag against the local upstream
	cfg := &contract.Config{ReplayMaxAttempts: 0}
	replayer := core.NewReplayer(cfg, mutationStore, nil, netclient.NewHTTPNetworkClient())
	result = runScenario(config, "replay drain", func(run int) error {
		tag := fmt.Sprintf("bench-tag-%d", run)
		summary, err := replayer.ReplayTag(ctx, schema.ManualTrigger, tag)
		if err != nil {
			return err
		}
		if summary.Failures > 0 {
			return fmt.Errorf("%d replay failures", summary.Failures)
		}
		return nil
	})
	results = append(results, result)

	return results, nil
}

// runScenario times one scenario across all runs. The first run is cold, the
// rest are averaged as warm.
func runScenario(config BenchmarkConfig, name string, body func(run int) error) BenchmarkResult {
	fmt.Printf("Running %s (%d runs)\n", name, config.Runs)

	var times []float64
	for run := range config.Runs {
		start := time.Now()
		if err := body(run); err != nil {
			fmt.Printf("  Run %d failed: %v\n", run+1, err)
			continue
		}
		times = append(times, time.Since(start).Seconds())
	}

	coldTime := "FAILED"
	warmTime := "FAILED"
	throughput := "n/a"
	if len(times) > 0 {
		coldTime = fmt.Sprintf("%.3fs", times[0])
	}
	if len(times) > 1 {
		var sum float64
		for _, t := range times[1:] {
			sum += t
		}
		avg := sum / float64(len(times)-1)
		warmTime = fmt.Sprintf("%.3fs", avg)
		throughput = fmt.Sprintf("%.0f ops/s", float64(config.Operations)/avg)
	}

	fmt.Printf("  Cold: %s, Warm average: %s, Throughput: %s\n", coldTime, warmTime, throughput)

	return BenchmarkResult{
		Scenario:   name,
		Backend:    string(config.Backend),
		Operations: config.Operations,
		ColdTime:   coldTime,
		WarmTime:   warmTime,
		Throughput: throughput,
	}
}

// saveResults writes benchmark results to a CSV file.
func saveResults(results []BenchmarkResult) error {
	file, err := os.Create("benchmark_results.csv")
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"scenario", "backend", "operations", "cold_time", "warm_time", "throughput"}); err != nil {
		return err
	}
	for _, r := range results {
		record := []string{
			r.Scenario,
			r.Backend,
			fmt.Sprintf("%d", r.Operations),
			r.ColdTime,
			r.WarmTime,
			r.Throughput,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// printSummary prints a human-readable summary of all results.
func printSummary(results []BenchmarkResult) {
	fmt.Println("\nBenchmark Summary")
	fmt.Println("=================")
	for _, r := range results {
		fmt.Printf("%-16s backend=%-10s ops=%-6d cold=%-8s warm=%-8s %s\n",
			r.Scenario, r.Backend, r.Operations, r.ColdTime, r.WarmTime, r.Throughput)
	}
	fmt.Println("\nResults saved to benchmark_results.csv")
}
