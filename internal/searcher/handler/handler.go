package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/softmatch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/softmatch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/softmatch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/softmatch/pkg/middleware"
)

type SearchExecutor interface {
	Search(ctx context.Context, plan *parser.QueryPlan, opts executor.Options, r ranker.Ranker) (*executor.SearchResult, error)
}

type RankerFactory interface {
	New(ctx context.Context, kind ranker.Kind) (ranker.Ranker, error)
}

// Config holds request defaults.
type Config struct {
	DefaultThreshold float64
	DefaultLimit     int
	// MaxResults caps limit; zero means uncapped.
	MaxResults    int
	DefaultRanker ranker.Kind
}

type Handler struct {
	executor  SearchExecutor
	analyze   parser.Analyzer
	rankers   RankerFactory
	cfg       Config
	cache     *cache.QueryCache
	collector *analytics.Collector
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func New(exec SearchExecutor, analyze parser.Analyzer, rankers RankerFactory, cfg Config) *Handler {
	if cfg.DefaultRanker == "" {
		cfg.DefaultRanker = ranker.KindTFIDF
	}
	return &Handler{
		executor: exec,
		analyze:  analyze,
		rankers:  rankers,
		cfg:      cfg,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// WithCache enables result caching. A nil cache disables it.
func (h *Handler) WithCache(c *cache.QueryCache) *Handler {
	h.cache = c
	return h
}

func (h *Handler) WithCollector(c *analytics.Collector) *Handler {
	h.collector = c
	return h
}

func (h *Handler) WithMetrics(m *metrics.Metrics) *Handler {
	h.metrics = m
	return h
}

// Routes registers the search API on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

type request struct {
	query string
	opts  executor.Options
	kind  ranker.Kind
}

func (h *Handler) parseRequest(r *http.Request) (request, error) {
	q := r.URL.Query()
	req := request{
		query: q.Get("q"),
		opts: executor.Options{
			MatchThreshold: h.cfg.DefaultThreshold,
			HitCount:       h.cfg.DefaultLimit,
		},
		kind: h.cfg.DefaultRanker,
	}
	if req.query == "" {
		return req, fmt.Errorf("%w: query parameter 'q' is required", apperrors.ErrInvalidInput)
	}
	if s := q.Get("threshold"); s != "" {
		t, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return req, fmt.Errorf("%w: threshold %q is not a number", apperrors.ErrInvalidThreshold, s)
		}
		req.opts.MatchThreshold = t
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return req, fmt.Errorf("%w: limit %q is not an integer", apperrors.ErrInvalidHitCount, s)
		}
		req.opts.HitCount = n
	}
	if h.cfg.MaxResults > 0 && req.opts.HitCount > h.cfg.MaxResults {
		req.opts.HitCount = h.cfg.MaxResults
	}
	if s := q.Get("ranker"); s != "" {
		kind, err := ranker.ParseKind(s)
		if err != nil {
			return req, err
		}
		req.kind = kind
	}
	return req, req.opts.Validate()
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	req, err := h.parseRequest(r)
	if err != nil {
		h.observe(req.kind, "invalid", "", nil, false)
		h.track(ctx, analytics.SearchEvent{
			Type:      analytics.EventInvalid,
			Query:     req.query,
			Threshold: req.opts.MatchThreshold,
			Ranker:    string(req.kind),
		}, start)
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}

	plan := parser.Parse(req.query, h.analyze)
	compute := func(ctx context.Context) (*executor.SearchResult, error) {
		rk, err := h.rankers.New(ctx, req.kind)
		if err != nil {
			return nil, err
		}
		return h.executor.Search(ctx, plan, req.opts, rk)
	}

	var result *executor.SearchResult
	cacheHit := false
	cacheStatus := "bypass"
	if h.cache != nil && plan.M() > 0 {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, cache.Key{Plan: plan, Options: req.opts, Ranker: req.kind}, compute)
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
		w.Header().Set("X-Cache", strings.ToUpper(cacheStatus))
	} else {
		result, err = compute(ctx)
	}

	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		message := "search failed"
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			status = http.StatusGatewayTimeout
			message = "search timed out"
		case status < http.StatusInternalServerError:
			message = err.Error()
		}
		log.Error("search execution failed", "query", req.query, "error", err)
		h.observe(req.kind, "error", cacheStatus, nil, false)
		h.writeError(w, status, message)
		return
	}

	resultType := "hit"
	if len(result.Results) == 0 {
		resultType = "zero_result"
	}
	h.observe(req.kind, resultType, cacheStatus, result, cacheHit)

	latency := time.Since(start)
	log.Info("search completed",
		"query", req.query,
		"threshold", req.opts.MatchThreshold,
		"min_match", result.MinMatch,
		"ranker", req.kind,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	h.track(ctx, analytics.SearchEvent{
		Type:      analytics.Classify(cacheHit, len(result.Results)),
		Query:     req.query,
		Terms:     plan.Terms,
		Threshold: req.opts.MatchThreshold,
		MinMatch:  result.MinMatch,
		Ranker:    string(req.kind),
		TotalHits: result.TotalHits,
		Returned:  len(result.Results),
		CacheHit:  cacheHit,
	}, start)

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) observe(kind ranker.Kind, resultType, cacheStatus string, result *executor.SearchResult, cacheHit bool) {
	if h.metrics == nil {
		return
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(string(kind), resultType).Inc()
	if result == nil {
		return
	}
	h.metrics.SearchResultsCount.Observe(float64(len(result.Results)))
	switch cacheStatus {
	case "hit":
		h.metrics.CacheHitsTotal.Inc()
	case "miss":
		h.metrics.CacheMissesTotal.Inc()
	}
	if !cacheHit {
		h.metrics.SearchMatchesCount.Observe(float64(result.Stats.Matches))
		h.metrics.PostingsVisited.Observe(float64(result.Stats.PostingsVisited))
	}
}

func (h *Handler) track(ctx context.Context, event analytics.SearchEvent, start time.Time) {
	latency := time.Since(start)
	if h.metrics != nil && event.Type != analytics.EventInvalid {
		status := "bypass"
		if h.cache != nil {
			status = "miss"
			if event.CacheHit {
				status = "hit"
			}
		}
		h.metrics.SearchLatency.WithLabelValues(status).Observe(latency.Seconds())
	}
	if h.collector == nil {
		return
	}
	event.LatencyMs = latency.Milliseconds()
	event.Timestamp = time.Now().UTC()
	event.RequestID = middleware.GetRequestID(ctx)
	h.collector.Track(event)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
