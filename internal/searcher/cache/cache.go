package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/softmatch/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const (
	keyPrefix             = "search:"
	defaultComputeTimeout = 30 * time.Second
)

// Store is the key-value backend. *redis.Client implements it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Key identifies a cached result: the same plan evaluated with the same
// threshold, limit and ranker.
type Key struct {
	Plan    *parser.QueryPlan
	Options executor.Options
	Ranker  ranker.Kind
}

// QueryCache caches search results. Backend failures are logged and treated
// as misses; the circuit breaker stops calling a backend that keeps failing.
type QueryCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	logger  *slog.Logger
	timeout time.Duration
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(store Store, ttl time.Duration, breaker *resilience.CircuitBreaker) *QueryCache {
	return &QueryCache{
		store:   store,
		ttl:     ttl,
		breaker: breaker,
		logger:  slog.Default().With("component", "query-cache"),
		timeout: defaultComputeTimeout,
	}
}

// WithComputeTimeout bounds a shared computation started by GetOrCompute.
func (c *QueryCache) WithComputeTimeout(d time.Duration) *QueryCache {
	if d > 0 {
		c.timeout = d
	}
	return c
}

func (c *QueryCache) do(fn func() error) error {
	if c.breaker == nil {
		return fn()
	}
	return c.breaker.Execute(fn)
}

func (c *QueryCache) Get(ctx context.Context, k Key) (*executor.SearchResult, bool) {
	key := buildKey(k)
	var data []byte
	var found bool
	err := c.do(func() error {
		var err error
		data, found, err = c.store.Get(ctx, key)
		return err
	})
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	if !found {
		c.misses.Add(1)
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "query", k.Plan.RawQuery, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, k Key, result *executor.SearchResult) {
	key := buildKey(k)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.do(func() error { return c.store.Set(ctx, key, data, c.ttl) }); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns a cached result or runs computeFn once per key, even
// under concurrent identical requests. computeFn receives a context that is
// detached from any single caller and bounded by the compute timeout, so a
// caller that goes away does not fail the others waiting on the same key.
// Each caller still stops waiting when its own ctx is done.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	k Key,
	computeFn func(ctx context.Context) (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, k); ok {
		return result, true, nil
	}
	key := buildKey(k)
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		computeCtx, cancel := context.WithTimeout(shared, c.timeout)
		defer cancel()
		result, err := computeFn(computeCtx)
		if err != nil {
			return nil, err
		}
		c.Set(computeCtx, k, result)
		return result, nil
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*executor.SearchResult), false, nil
	}
}

func (c *QueryCache) Invalidate(ctx context.Context) error {
	pattern := keyPrefix + "*"
	var deleted int64
	err := c.do(func() error {
		var err error
		deleted, err = c.store.FlushByPattern(ctx, pattern)
		return err
	})
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func buildKey(k Key) string {
	raw := fmt.Sprintf("%s|t=%s|limit=%d|ranker=%s",
		normalizePlan(k.Plan),
		strconv.FormatFloat(k.Options.MatchThreshold, 'g', -1, 64),
		k.Options.HitCount,
		k.Ranker,
	)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// normalizePlan renders the plan independent of term order.
func normalizePlan(plan *parser.QueryPlan) string {
	terms := make([]string, 0, len(plan.Terms))
	for _, term := range plan.Terms {
		terms = append(terms, term+"*"+strconv.Itoa(plan.Multiplicity[term]))
	}
	excludes := append([]string(nil), plan.ExcludeTerms...)
	sort.Strings(terms)
	sort.Strings(excludes)
	parts := []string{strings.Join(terms, ",")}
	if len(excludes) > 0 {
		parts = append(parts, "NOT:"+strings.Join(excludes, ","))
	}
	return strings.Join(parts, "|")
}
