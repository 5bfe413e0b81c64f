package main

import (
	"bytes"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestSearchURLRotation(t *testing.T) {
	cfg := Config{
		BaseURL:    "http://search",
		Queries:    []string{"a b", "c"},
		Thresholds: []float64{0, 0.5},
		Rankers:    []string{"tfidf", "bm25"},
	}
	seen := make(map[string]bool)
	for i := 0; i < 4; i++ {
		target, threshold := searchURL(cfg, i)
		u, err := url.Parse(target)
		if err != nil {
			t.Fatal(err)
		}
		q := u.Query()
		if q.Get("limit") != "10" || q.Get("q") != cfg.Queries[i%2] {
			t.Errorf("request %d: %s", i, target)
		}
		if threshold != cfg.Thresholds[i%2] {
			t.Errorf("request %d threshold = %v", i, threshold)
		}
		seen[q.Get("threshold")+"/"+q.Get("ranker")] = true
	}
	if len(seen) != 4 {
		t.Errorf("rotation covered %d threshold/ranker pairs, want 4: %v", len(seen), seen)
	}
}

func TestPercentile(t *testing.T) {
	l := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(l, 50); got != 5 {
		t.Errorf("p50 = %v", got)
	}
	if got := percentile(l, 99); got != 10 {
		t.Errorf("p99 = %v", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Errorf("empty p50 = %v", got)
	}
}

func TestPrintReport(t *testing.T) {
	stats := NewStats()
	if printReport(&bytes.Buffer{}, stats, time.Second) {
		t.Error("empty run reported success")
	}
	stats.Record(0.5, 3*time.Millisecond, 200, true, false, nil)
	stats.Record(0.5, 5*time.Millisecond, 400, false, true, nil)
	var out bytes.Buffer
	if !printReport(&out, stats, time.Second) {
		t.Fatal("report failed")
	}
	for _, want := range []string{"Total Requests:  2", "Errors:          1", "Cache Hits:      50.00%", "400: 1"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("report missing %q:\n%s", want, out.String())
		}
	}
}
