// Command loadtest drives the search API with a mix of queries, thresholds
// and rankers and reports latency percentiles per threshold.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Queries     []string
	Thresholds  []float64
	Rankers     []string
}

type Stats struct {
	totalRequests atomic.Int64
	errorCount    atomic.Int64
	cacheHits     atomic.Int64
	zeroResults   atomic.Int64

	mu          sync.Mutex
	latencies   map[float64][]time.Duration
	statusCodes map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make(map[float64][]time.Duration),
		statusCodes: make(map[int]int64),
	}
}

func (s *Stats) Record(threshold float64, d time.Duration, status int, cacheHit, zero bool, err error) {
	s.totalRequests.Add(1)
	if err != nil {
		s.errorCount.Add(1)
		return
	}
	if status < 200 || status >= 300 {
		s.errorCount.Add(1)
	}
	if cacheHit {
		s.cacheHits.Add(1)
	}
	if zero {
		s.zeroResults.Add(1)
	}
	s.mu.Lock()
	s.latencies[threshold] = append(s.latencies[threshold], d)
	s.statusCodes[status]++
	s.mu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	thresholds := flag.String("thresholds", "0,0.5,0.75,1", "comma-separated match thresholds to cycle through")
	rankers := flag.String("rankers", "tfidf,static,bm25", "comma-separated rankers to cycle through")
	flag.Parse()

	cfg := Config{
		BaseURL:     *baseURL,
		Concurrency: *concurrency,
		Duration:    *duration,
		Queries: []string{
			"orange apple grape",
			"information retrieval ranking",
			"inverted index postings",
			"soft and boolean query",
			"document frequency weighting",
			"static quality prior",
			"threshold matching terms -noise",
			"search engine NOT spam",
		},
		Rankers: strings.Split(*rankers, ","),
	}
	for _, s := range strings.Split(*thresholds, ",") {
		t, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid threshold %q\n", s)
			os.Exit(2)
		}
		cfg.Thresholds = append(cfg.Thresholds, t)
	}

	fmt.Println("=== Soft-AND Search Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Thresholds:  %v\n", cfg.Thresholds)
	fmt.Printf("Rankers:     %v\n", cfg.Rankers)
	fmt.Println()

	stats := runLoadTest(cfg)
	if !printReport(os.Stdout, stats, cfg.Duration) {
		os.Exit(1)
	}
}

// searchURL builds the i-th request of the query/threshold/ranker rotation.
func searchURL(cfg Config, i int) (string, float64) {
	threshold := cfg.Thresholds[i%len(cfg.Thresholds)]
	v := url.Values{}
	v.Set("q", cfg.Queries[i%len(cfg.Queries)])
	v.Set("threshold", strconv.FormatFloat(threshold, 'g', -1, 64))
	v.Set("ranker", cfg.Rankers[(i/len(cfg.Thresholds))%len(cfg.Rankers)])
	v.Set("limit", "10")
	return cfg.BaseURL + "/api/v1/search?" + v.Encode(), threshold
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

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Concurrency; w++ {
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i += cfg.Concurrency {
				target, threshold := searchURL(cfg, i)
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				if err != nil {
					return err
				}
				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if err != nil {
					if ctx.Err() == nil {
						stats.Record(threshold, elapsed, 0, false, false, err)
					}
					continue
				}
				var body struct {
					Results []json.RawMessage `json:"results"`
				}
				json.NewDecoder(resp.Body).Decode(&body)
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.Record(threshold, elapsed, resp.StatusCode,
					resp.Header.Get("X-Cache") == "HIT", len(body.Results) == 0, nil)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "load test aborted: %v\n", err)
	}
	return stats
}

func printReport(w io.Writer, stats *Stats, duration time.Duration) bool {
	total := stats.totalRequests.Load()
	errs := stats.errorCount.Load()

	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", total)
	fmt.Fprintf(w, "Errors:          %d\n", errs)
	if total == 0 {
		fmt.Fprintln(w, "WARNING: No requests completed. Is the service running?")
		return false
	}
	fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(errs)/float64(total)*100)
	fmt.Fprintf(w, "Cache Hits:      %.2f%%\n", float64(stats.cacheHits.Load())/float64(total)*100)
	fmt.Fprintf(w, "Zero Results:    %.2f%%\n", float64(stats.zeroResults.Load())/float64(total)*100)
	fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(total)/duration.Seconds())

	stats.mu.Lock()
	defer stats.mu.Unlock()

	thresholds := make([]float64, 0, len(stats.latencies))
	for t := range stats.latencies {
		thresholds = append(thresholds, t)
	}
	sort.Float64s(thresholds)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Latency by threshold ===")
	fmt.Fprintf(w, "%-10s %8s %10s %10s %10s %10s\n", "threshold", "count", "p50", "p90", "p99", "max")
	for _, t := range thresholds {
		l := append([]time.Duration(nil), stats.latencies[t]...)
		sort.Slice(l, func(i, j int) bool { return l[i] < l[j] })
		fmt.Fprintf(w, "%-10.2f %8d %10s %10s %10s %10s\n", t, len(l),
			percentile(l, 50), percentile(l, 90), percentile(l, 99), l[len(l)-1])
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, stats.statusCodes[code])
	}
	return true
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
