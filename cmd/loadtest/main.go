// Command loadtest drives GET /api/v1/search with concurrent workers and
// reports throughput and latency per query mode.
//
// Usage:
//
//	go run ./cmd/loadtest [-url http://localhost:8080] [-mode mixed] [-queries data/queries.txt]
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

var defaultQueries = []string{
	"she who must be obeyed",
	"ayesha",
	"allan quatermain",
	"king solomon mines",
	"zulu warrior",
	"ivory hunting",
	"ancient egypt",
	"cleopatra",
	"treasure",
	"witch doctor",
}

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Modes       []string
	TopK        int
	Queries     []string
}

type modeStats struct {
	latencies   []time.Duration
	statusCodes map[int]int64
	errors      int64
}

// Stats is shared by all workers.
type Stats struct {
	mu    sync.Mutex
	modes map[string]*modeStats
}

func NewStats() *Stats {
	return &Stats{modes: make(map[string]*modeStats)}
}

func (s *Stats) Record(mode string, d time.Duration, status int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ms, ok := s.modes[mode]
	if !ok {
		ms = &modeStats{statusCodes: make(map[int]int64)}
		s.modes[mode] = ms
	}
	if err != nil {
		ms.errors++
		return
	}
	ms.statusCodes[status]++
	if status < 200 || status >= 300 {
		ms.errors++
	}
	ms.latencies = append(ms.latencies, d)
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	mode := flag.String("mode", "mixed", "ranked, boolean or mixed")
	topK := flag.Int("k", 10, "top-k for ranked queries")
	queriesPath := flag.String("queries", "", "queries file; lines hold comma separated queries")
	flag.Parse()

	queries := defaultQueries
	if *queriesPath != "" {
		loaded, err := loadQueries(*queriesPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load queries: %v\n", err)
			os.Exit(1)
		}
		queries = loaded
	}
	modes := []string{*mode}
	if *mode == "mixed" {
		modes = []string{"ranked", "boolean"}
	}

	cfg := Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Concurrency: *concurrency,
		Duration:    *duration,
		Modes:       modes,
		TopK:        *topK,
		Queries:     queries,
	}

	fmt.Println("=== Retrieval Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Modes:       %s\n", strings.Join(cfg.Modes, ", "))
	fmt.Printf("Queries:     %d unique\n", len(cfg.Queries))
	fmt.Println()

	stats := runLoadTest(cfg)
	if !printReport(stats, cfg.Duration) {
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

// loadQueries reads every comma separated query on every line, skipping
// the "word, doc" pairs of TF-IDF lines, which are not queries.
func loadQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	seen := make(map[string]struct{})
	var out []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.Contains(line, "; ") {
			continue
		}
		for _, q := range strings.Split(line, ", ") {
			q = strings.TrimSpace(q)
			if q == "" {
				continue
			}
			if _, ok := seen[q]; ok {
				continue
			}
			seen[q] = struct{}{}
			out = append(out, q)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no queries in %s", path)
	}
	return out, nil
}

func searchURL(cfg Config, mode, query string) string {
	v := url.Values{}
	v.Set("q", query)
	v.Set("mode", mode)
	if mode == "ranked" {
		v.Set("k", fmt.Sprint(cfg.TopK))
	}
	return cfg.BaseURL + "/api/v1/search?" + v.Encode()
}

func runLoadTest(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	fmt.Print("Running")
	var g errgroup.Group
	for w := 0; w < cfg.Concurrency; w++ {
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				mode := cfg.Modes[i%len(cfg.Modes)]
				query := cfg.Queries[i%len(cfg.Queries)]

				req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL(cfg, mode, query), nil)
				if err != nil {
					return err
				}
				start := time.Now()
				resp, err := client.Do(req)
				d := time.Since(start)
				if err != nil {
					if ctx.Err() == nil {
						stats.Record(mode, d, 0, err)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.Record(mode, d, resp.StatusCode, nil)
			}
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "\nworker error: %v\n", err)
	}
	close(done)
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

// printReport reports false when nothing completed.
func printReport(stats *Stats, duration time.Duration) bool {
	stats.mu.Lock()
	defer stats.mu.Unlock()

	names := make([]string, 0, len(stats.modes))
	for name := range stats.modes {
		names = append(names, name)
	}
	sort.Strings(names)

	completed := 0
	for _, name := range names {
		ms := stats.modes[name]
		latencies := append([]time.Duration(nil), ms.latencies...)
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		total := int64(len(latencies))
		if total == 0 && ms.errors == 0 {
			continue
		}
		completed += len(latencies)

		fmt.Printf("=== %s ===\n", name)
		fmt.Printf("Requests:      %d\n", total)
		fmt.Printf("Errors:        %d\n", ms.errors)
		fmt.Printf("Requests/sec:  %.2f\n", float64(total)/duration.Seconds())
		if len(latencies) > 0 {
			var sum time.Duration
			for _, l := range latencies {
				sum += l
			}
			avg := sum / time.Duration(len(latencies))
			var sq float64
			for _, l := range latencies {
				diff := float64(l - avg)
				sq += diff * diff
			}
			fmt.Printf("Latency min/avg/max: %s / %s / %s\n", latencies[0], avg, latencies[len(latencies)-1])
			fmt.Printf("Latency p50/p95/p99: %s / %s / %s\n",
				percentile(latencies, 50), percentile(latencies, 95), percentile(latencies, 99))
			fmt.Printf("StdDev:        %s\n", time.Duration(math.Sqrt(sq/float64(len(latencies)))))
		}
		codes := make([]int, 0, len(ms.statusCodes))
		for code := range ms.statusCodes {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		for _, code := range codes {
			fmt.Printf("  %d: %d\n", code, ms.statusCodes[code])
		}
		fmt.Println()
	}
	return completed > 0
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
