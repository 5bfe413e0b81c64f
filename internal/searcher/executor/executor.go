// Package executor evaluates N-of-M queries against an inverted index.
//
// A document matches when it contains at least N of the M distinct query
// terms, N = max(1, min(M, floor(threshold*M))). Threshold 1 is a boolean
// AND over all terms and any threshold below 2/M is an OR. Evaluation is one
// document-at-a-time pass over the term posting iterators: every posting is
// visited once, every matching document is scored once, and the best
// HitCount documents are kept by a sieve.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/searcher/sieve"
	apperrors "github.com/Adithya-Monish-Kumar-K/softmatch/pkg/errors"
)

// Index is the read-only view of the inverted index the executor needs.
type Index interface {
	GetTerms(query string) []string
	PostingIterator(term string) (index.Iterator, error)
	DocumentFrequency(term string) int
	CorpusSize() int
}

// Corpus resolves winning document ids.
type Corpus interface {
	GetDocument(ctx context.Context, id int) (corpus.Document, error)
}

// Options control one evaluation.
type Options struct {
	// MatchThreshold is the fraction of distinct query terms a document
	// must contain, in [0, 1].
	MatchThreshold float64 `json:"match_threshold"`
	// HitCount caps the number of results.
	HitCount int `json:"hit_count"`
}

// Validate rejects out-of-range options. Nothing is clamped.
func (o Options) Validate() error {
	if math.IsNaN(o.MatchThreshold) || o.MatchThreshold < 0 || o.MatchThreshold > 1 {
		return fmt.Errorf("%w: got %v", apperrors.ErrInvalidThreshold, o.MatchThreshold)
	}
	if o.HitCount < 0 {
		return fmt.Errorf("%w: got %d", apperrors.ErrInvalidHitCount, o.HitCount)
	}
	return nil
}

// MinMatch returns N for m distinct terms. It is 0 only when m is 0.
func MinMatch(threshold float64, m int) int {
	if m <= 0 {
		return 0
	}
	n := int(math.Floor(threshold * float64(m)))
	if n > m {
		n = m
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Stats describe the work done by one evaluation.
type Stats struct {
	Terms           int `json:"terms"`
	MinMatch        int `json:"min_match"`
	Matches         int `json:"matches"`
	Excluded        int `json:"excluded"`
	PostingsVisited int `json:"postings_visited"`
}

// Hit is a scored document.
type Hit struct {
	Score    float64         `json:"score"`
	Document corpus.Document `json:"document"`
}

// Hits is a single-use cursor over results, best first.
type Hits struct {
	hits  []Hit
	pos   int
	stats Stats
}

// Next advances to the next hit. Once it returns false the cursor is spent.
func (h *Hits) Next() bool {
	if h.pos >= len(h.hits) {
		return false
	}
	h.pos++
	return true
}

// Hit returns the current hit. Only valid after Next returned true.
func (h *Hits) Hit() Hit {
	return h.hits[h.pos-1]
}

// Len returns the number of hits not yet consumed.
func (h *Hits) Len() int {
	return len(h.hits) - h.pos
}

func (h *Hits) Stats() Stats {
	return h.stats
}

type Executor struct {
	index  Index
	corpus Corpus
	logger *slog.Logger
}

func New(idx Index, docs Corpus) *Executor {
	return &Executor{
		index:  idx,
		corpus: docs,
		logger: slog.Default().With("component", "query-executor"),
	}
}

// Evaluate parses query with the index's analyzer and runs it.
func (e *Executor) Evaluate(ctx context.Context, query string, opts Options, r ranker.Ranker) (*Hits, error) {
	return e.Execute(ctx, parser.Parse(query, e.index.GetTerms), opts, r)
}

type slot struct {
	term         string
	multiplicity int
	it           index.Iterator
	cur          index.Posting
	live         bool
}

// Execute runs a parsed query. No hits are returned if any collaborator
// fails; winners are resolved to documents before Execute returns.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, opts Options, r ranker.Ranker) (*Hits, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	m := plan.M()
	n := MinMatch(opts.MatchThreshold, m)
	stats := Stats{Terms: m, MinMatch: n}
	if m == 0 || opts.HitCount == 0 {
		return &Hits{stats: stats}, nil
	}

	slots := make([]*slot, 0, m)
	for _, term := range plan.Terms {
		it, err := e.index.PostingIterator(term)
		if err != nil {
			return nil, fmt.Errorf("opening postings for %q: %w", term, err)
		}
		slots = append(slots, &slot{term: term, multiplicity: plan.Multiplicity[term], it: it})
	}
	excluded, err := e.openExclusions(plan.ExcludeTerms)
	if err != nil {
		return nil, err
	}

	advance := func(s *slot) error {
		s.live = s.it.Next()
		if !s.live {
			if err := s.it.Err(); err != nil {
				return fmt.Errorf("reading postings for %q: %w", s.term, err)
			}
			return nil
		}
		s.cur = s.it.Posting()
		stats.PostingsVisited++
		return nil
	}

	live := 0
	for _, s := range slots {
		if err := advance(s); err != nil {
			return nil, err
		}
		if s.live {
			live++
		}
	}

	sv := sieve.New(opts.HitCount)
	for live >= n {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("evaluating %q: %w", plan.RawQuery, err)
		}

		pivot := math.MaxInt
		for _, s := range slots {
			if s.live && s.cur.DocID < pivot {
				pivot = s.cur.DocID
			}
		}
		hits := 0
		for _, s := range slots {
			if s.live && s.cur.DocID == pivot {
				hits++
			}
		}

		if hits >= n {
			skip, err := excluded.contains(pivot)
			if err != nil {
				return nil, err
			}
			if skip {
				stats.Excluded++
			} else {
				r.Reset(pivot)
				for _, s := range slots {
					if s.live && s.cur.DocID == pivot {
						r.Update(s.term, s.multiplicity, s.cur)
					}
				}
				score, err := r.Evaluate()
				if err != nil {
					return nil, fmt.Errorf("scoring document %d: %w", pivot, err)
				}
				sv.Sift(score, pivot)
				stats.Matches++
			}
		}

		for _, s := range slots {
			if !s.live || s.cur.DocID != pivot {
				continue
			}
			if err := advance(s); err != nil {
				return nil, err
			}
			if !s.live {
				live--
			}
		}
	}

	winners := sv.Winners()
	result := make([]Hit, 0, len(winners))
	for _, w := range winners {
		doc, err := e.corpus.GetDocument(ctx, w.DocID)
		if err != nil {
			return nil, fmt.Errorf("resolving document %d: %w", w.DocID, err)
		}
		result = append(result, Hit{Score: w.Score, Document: doc})
	}

	e.logger.Info("query executed",
		"query", plan.RawQuery,
		"terms", m,
		"min_match", n,
		"matches", stats.Matches,
		"results", len(result),
		"postings_visited", stats.PostingsVisited,
		"duration", time.Since(start),
	)
	return &Hits{hits: result, stats: stats}, nil
}

// exclusion is a cursor over the union of excluded terms' postings. Pivots
// arrive in ascending order, so it only ever moves forward.
type exclusion struct {
	it      index.Iterator
	started bool
	live    bool
}

func (e *Executor) openExclusions(terms []string) (*exclusion, error) {
	if len(terms) == 0 {
		return &exclusion{it: index.Empty()}, nil
	}
	its := make([]index.Iterator, 0, len(terms))
	for _, term := range terms {
		it, err := e.index.PostingIterator(term)
		if err != nil {
			return nil, fmt.Errorf("opening postings for excluded %q: %w", term, err)
		}
		its = append(its, it)
	}
	return &exclusion{it: merger.UnionAll(its...)}, nil
}

func (x *exclusion) contains(docID int) (bool, error) {
	if !x.started {
		x.started = true
		x.live = x.it.Next()
	}
	for x.live && x.it.Posting().DocID < docID {
		x.live = x.it.Next()
	}
	if !x.live {
		if err := x.it.Err(); err != nil {
			return false, fmt.Errorf("reading excluded postings: %w", err)
		}
		return false, nil
	}
	return x.it.Posting().DocID == docID, nil
}

// SearchResult is the drained, serialisable form of an evaluation.
type SearchResult struct {
	Query        string         `json:"query"`
	Terms        []string       `json:"terms"`
	ExcludeTerms []string       `json:"exclude_terms,omitempty"`
	MinMatch     int            `json:"min_match"`
	TotalHits    int            `json:"total_hits"`
	Results      []Hit          `json:"results"`
	TermStats    map[string]int `json:"term_stats"`
	Stats        Stats          `json:"stats"`
}

// Search executes plan and drains the hits into a SearchResult.
func (e *Executor) Search(ctx context.Context, plan *parser.QueryPlan, opts Options, r ranker.Ranker) (*SearchResult, error) {
	hits, err := e.Execute(ctx, plan, opts, r)
	if err != nil {
		return nil, err
	}
	termStats := make(map[string]int, len(plan.Terms))
	for _, term := range plan.Terms {
		termStats[term] = e.index.DocumentFrequency(term)
	}
	results := make([]Hit, 0, hits.Len())
	for hits.Next() {
		results = append(results, hits.Hit())
	}
	stats := hits.Stats()
	return &SearchResult{
		Query:        plan.RawQuery,
		Terms:        plan.Terms,
		ExcludeTerms: plan.ExcludeTerms,
		MinMatch:     stats.MinMatch,
		TotalHits:    stats.Matches,
		Results:      results,
		TermStats:    termStats,
		Stats:        stats,
	}, nil
}
