package executor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"sort"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/softmatch/pkg/errors"
)

type fixture struct {
	engine *indexer.Engine
	corpus *corpus.MemoryCorpus
	exec   *Executor
}

func newFixture(t *testing.T, texts ...string) *fixture {
	t.Helper()
	c := corpus.NewMemoryCorpus()
	for _, text := range texts {
		c.AddText(text)
	}
	e := indexer.NewEngine()
	if _, err := e.IndexCorpus(context.Background(), c); err != nil {
		t.Fatalf("IndexCorpus: %v", err)
	}
	return &fixture{engine: e, corpus: c, exec: New(e, c)}
}

func fruitFixture(t *testing.T) *fixture {
	return newFixture(t, "orange apple", "orange banana", "apple banana grape")
}

func (f *fixture) ids(t *testing.T, query string, opts Options) []int {
	t.Helper()
	hits, err := f.exec.Evaluate(context.Background(), query, opts, ranker.NewTFIDF(f.engine))
	if err != nil {
		t.Fatalf("Evaluate(%q): %v", query, err)
	}
	ids := make([]int, 0, hits.Len())
	for hits.Next() {
		ids = append(ids, hits.Hit().Document.ID)
	}
	sort.Ints(ids)
	return ids
}

func TestMinMatch(t *testing.T) {
	tests := []struct {
		threshold float64
		m, want   int
	}{
		{0.5, 3, 1},
		{1.0, 3, 3},
		{0.67, 3, 2},
		{0, 4, 1},
		{0.5, 4, 2},
		{0.99, 4, 3},
		{1, 1, 1},
		{0.3, 0, 0},
	}
	for _, tt := range tests {
		if got := MinMatch(tt.threshold, tt.m); got != tt.want {
			t.Errorf("MinMatch(%v, %d) = %d, want %d", tt.threshold, tt.m, got, tt.want)
		}
	}
}

func TestFruitScenarios(t *testing.T) {
	f := fruitFixture(t)
	tests := []struct {
		name      string
		query     string
		threshold float64
		want      []int
	}{
		{"N=1 matches every document", "orange apple banana", 0.5, []int{0, 1, 2}},
		{"N=M matches none", "orange apple banana", 1.0, []int{}},
		{"N=2 each document has two terms", "orange apple banana", 0.67, []int{0, 1, 2}},
		{"N=2 drops single-term document", "orange apple grape", 0.67, []int{0, 2}},
		{"AND of two terms", "apple banana", 1.0, []int{2}},
		{"absent term only", "kiwi", 1.0, []int{}},
		{"absent term among present", "kiwi orange", 0.5, []int{0, 1}},
		{"empty query", "", 0.5, []int{}},
		{"stop words only", "the and of", 0.5, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.ids(t, tt.query, Options{MatchThreshold: tt.threshold, HitCount: 10})
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHitCountZero(t *testing.T) {
	f := fruitFixture(t)
	for _, threshold := range []float64{0, 0.5, 1} {
		if got := f.ids(t, "orange apple banana", Options{MatchThreshold: threshold, HitCount: 0}); len(got) != 0 {
			t.Errorf("threshold %v: got %v", threshold, got)
		}
	}
}

func TestHitCountTruncatesBestFirst(t *testing.T) {
	f := newFixture(t, "apple", "apple apple apple", "apple apple", "banana")
	hits, err := f.exec.Evaluate(context.Background(), "apple", Options{MatchThreshold: 1, HitCount: 2}, ranker.NewTFIDF(f.engine))
	if err != nil {
		t.Fatal(err)
	}
	if hits.Len() != 2 {
		t.Fatalf("Len = %d, want 2", hits.Len())
	}
	var ids []int
	var scores []float64
	for hits.Next() {
		ids = append(ids, hits.Hit().Document.ID)
		scores = append(scores, hits.Hit().Score)
	}
	if !reflect.DeepEqual(ids, []int{1, 2}) {
		t.Errorf("ids = %v, want [1 2]", ids)
	}
	if scores[0] < scores[1] {
		t.Errorf("scores not best first: %v", scores)
	}
	if hits.Next() {
		t.Error("spent cursor yielded again")
	}
	if st := hits.Stats(); st.Matches != 3 || st.Terms != 1 || st.MinMatch != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestValidation(t *testing.T) {
	f := fruitFixture(t)
	tests := []struct {
		name string
		opts Options
		want error
	}{
		{"negative threshold", Options{MatchThreshold: -0.1, HitCount: 1}, apperrors.ErrInvalidThreshold},
		{"threshold above one", Options{MatchThreshold: 1.5, HitCount: 1}, apperrors.ErrInvalidThreshold},
		{"NaN threshold", Options{MatchThreshold: nan(), HitCount: 1}, apperrors.ErrInvalidThreshold},
		{"negative hit count", Options{MatchThreshold: 0.5, HitCount: -1}, apperrors.ErrInvalidHitCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.exec.Evaluate(context.Background(), "orange", tt.opts, ranker.NewTFIDF(f.engine))
			if !errors.Is(err, tt.want) || !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}

func TestExcludeTerms(t *testing.T) {
	f := newFixture(t, "orange apple", "orange banana", "apple banana grape", "grape kiwi")
	tests := []struct {
		query     string
		threshold float64
		want      []int
	}{
		{"apple -grape", 1, []int{0}},
		{"apple banana NOT grape", 0.5, []int{0, 1}},
		{"grape -kiwi -orange", 1, []int{2}},
		{"orange -pear", 1, []int{0, 1}},
	}
	for _, tt := range tests {
		got := f.ids(t, tt.query, Options{MatchThreshold: tt.threshold, HitCount: 10})
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%q: ids = %v, want %v", tt.query, got, tt.want)
		}
	}
}

type update struct {
	term string
	doc  int
}

type recordingRanker struct {
	doc     int
	resets  map[int]int
	updates []update
}

func (r *recordingRanker) Reset(docID int) {
	r.doc = docID
	r.resets[docID]++
}

func (r *recordingRanker) Update(term string, _ int, p index.Posting) {
	if p.DocID != r.doc {
		panic("wrong document")
	}
	r.updates = append(r.updates, update{term, p.DocID})
}

func (r *recordingRanker) Evaluate() (float64, error) {
	return float64(r.doc), nil
}

func TestEachMatchScoredOnceWithItsTerms(t *testing.T) {
	f := newFixture(t, "orange apple", "orange banana", "apple banana grape", "grape kiwi", "orange grape")
	r := &recordingRanker{resets: make(map[int]int)}
	if _, err := f.exec.Evaluate(context.Background(), "orange apple grape", Options{MatchThreshold: 0.67, HitCount: 10}, r); err != nil {
		t.Fatal(err)
	}
	if want := map[int]int{0: 1, 2: 1, 4: 1}; !reflect.DeepEqual(r.resets, want) {
		t.Errorf("resets = %v, want %v", r.resets, want)
	}
	want := []update{
		{"orang", 0}, {"appl", 0},
		{"appl", 2}, {"grape", 2},
		{"orang", 4}, {"grape", 4},
	}
	if !reflect.DeepEqual(r.updates, want) {
		t.Errorf("updates = %v, want %v", r.updates, want)
	}
}

func randomFixture(t *testing.T, seed int64) (*fixture, []string) {
	t.Helper()
	vocab := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel"}
	rng := rand.New(rand.NewSource(seed))
	texts := make([]string, 60)
	for i := range texts {
		n := 1 + rng.Intn(5)
		words := make([]string, n)
		for j := range words {
			words[j] = vocab[rng.Intn(len(vocab))]
		}
		texts[i] = fmt.Sprint(words)
	}
	return newFixture(t, texts...), vocab
}

func (f *fixture) mergedIDs(t *testing.T, query string, combine func(...index.Iterator) index.Iterator) []int {
	t.Helper()
	plan := parser.Parse(query, f.engine.GetTerms)
	its := make([]index.Iterator, 0, len(plan.Terms))
	for _, term := range plan.Terms {
		it, err := f.engine.PostingIterator(term)
		if err != nil {
			t.Fatal(err)
		}
		its = append(its, it)
	}
	postings, err := index.Collect(combine(its...))
	if err != nil {
		t.Fatal(err)
	}
	return postings.DocIDs()
}

func TestAgreesWithMerger(t *testing.T) {
	f, _ := randomFixture(t, 7)
	queries := []string{"alpha bravo", "charlie delta echo", "foxtrot golf hotel alpha", "bravo"}
	opts := func(threshold float64) Options { return Options{MatchThreshold: threshold, HitCount: 1000} }

	for _, q := range queries {
		if got, want := f.ids(t, q, opts(1)), f.mergedIDs(t, q, merger.IntersectAll); !reflect.DeepEqual(got, want) {
			t.Errorf("%q AND: %v, want %v", q, got, want)
		}
		if got, want := f.ids(t, q, opts(0)), f.mergedIDs(t, q, merger.UnionAll); !reflect.DeepEqual(got, want) {
			t.Errorf("%q OR: %v, want %v", q, got, want)
		}
	}
}

func TestCompletenessAndSoundness(t *testing.T) {
	f, _ := randomFixture(t, 11)
	query := "alpha charlie echo golf"
	plan := parser.Parse(query, f.engine.GetTerms)

	for _, threshold := range []float64{0, 0.25, 0.5, 0.75, 1} {
		n := MinMatch(threshold, plan.M())
		want := []int{}
		err := f.corpus.ForEach(context.Background(), func(doc corpus.Document) error {
			present := make(map[string]bool)
			for _, term := range f.engine.GetTerms(doc.Text(corpus.FieldBody)) {
				present[term] = true
			}
			count := 0
			for _, term := range plan.Terms {
				if present[term] {
					count++
				}
			}
			if count >= n {
				want = append(want, doc.ID)
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		got := f.ids(t, query, Options{MatchThreshold: threshold, HitCount: 1000})
		if !reflect.DeepEqual(got, want) {
			t.Errorf("threshold %v (N=%d): got %v, want %v", threshold, n, got, want)
		}
	}
}

func TestMonotonicInThreshold(t *testing.T) {
	f, _ := randomFixture(t, 3)
	query := "alpha bravo charlie delta echo"
	var prev map[int]bool
	for _, threshold := range []float64{0, 0.2, 0.4, 0.6, 0.8, 1} {
		cur := make(map[int]bool)
		for _, id := range f.ids(t, query, Options{MatchThreshold: threshold, HitCount: 1000}) {
			cur[id] = true
		}
		for id := range cur {
			if prev != nil && !prev[id] {
				t.Errorf("threshold %v added document %d", threshold, id)
			}
		}
		prev = cur
	}
}

func TestIdempotent(t *testing.T) {
	f, _ := randomFixture(t, 5)
	run := func() []Hit {
		hits, err := f.exec.Evaluate(context.Background(), "delta echo foxtrot", Options{MatchThreshold: 0.5, HitCount: 5}, ranker.NewTFIDF(f.engine))
		if err != nil {
			t.Fatal(err)
		}
		var out []Hit
		for hits.Next() {
			out = append(out, hits.Hit())
		}
		return out
	}
	if a, b := run(), run(); !reflect.DeepEqual(a, b) {
		t.Errorf("runs differ:\n%v\n%v", a, b)
	}
}

func TestCancelledContext(t *testing.T) {
	f := fruitFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.exec.Evaluate(ctx, "orange apple", Options{MatchThreshold: 0.5, HitCount: 3}, ranker.NewTFIDF(f.engine))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

type failingIterator struct{ err error }

func (f failingIterator) Next() bool             { return false }
func (f failingIterator) Posting() index.Posting { return index.Posting{} }
func (f failingIterator) Err() error             { return f.err }

type brokenIndex struct {
	*indexer.Engine
	openErr error
	readErr error
}

func (b brokenIndex) PostingIterator(term string) (index.Iterator, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	if b.readErr != nil && term == "banana" {
		return failingIterator{err: b.readErr}, nil
	}
	return b.Engine.PostingIterator(term)
}

type failingRanker struct {
	ranker.Ranker
	err error
}

func (f failingRanker) Evaluate() (float64, error) { return 0, f.err }

type emptyCorpus struct{}

func (emptyCorpus) GetDocument(_ context.Context, id int) (corpus.Document, error) {
	return corpus.Document{}, fmt.Errorf("document %d: %w", id, apperrors.ErrDocumentNotFound)
}

func TestCollaboratorFailuresPropagate(t *testing.T) {
	f := fruitFixture(t)
	boom := errors.New("index offline")
	opts := Options{MatchThreshold: 0.5, HitCount: 3}
	ctx := context.Background()

	t.Run("open", func(t *testing.T) {
		e := New(brokenIndex{Engine: f.engine, openErr: boom}, f.corpus)
		hits, err := e.Evaluate(ctx, "orange", opts, ranker.NewTFIDF(f.engine))
		if !errors.Is(err, boom) || hits != nil {
			t.Errorf("hits=%v err=%v", hits, err)
		}
	})
	t.Run("read", func(t *testing.T) {
		e := New(brokenIndex{Engine: f.engine, readErr: boom}, f.corpus)
		hits, err := e.Evaluate(ctx, "orange banana", opts, ranker.NewTFIDF(f.engine))
		if !errors.Is(err, boom) || hits != nil {
			t.Errorf("hits=%v err=%v", hits, err)
		}
	})
	t.Run("rank", func(t *testing.T) {
		hits, err := f.exec.Evaluate(ctx, "orange", opts, failingRanker{Ranker: ranker.NewTFIDF(f.engine), err: boom})
		if !errors.Is(err, boom) || hits != nil {
			t.Errorf("hits=%v err=%v", hits, err)
		}
	})
	t.Run("corpus", func(t *testing.T) {
		e := New(f.engine, emptyCorpus{})
		hits, err := e.Evaluate(ctx, "orange", opts, ranker.NewTFIDF(f.engine))
		if !errors.Is(err, apperrors.ErrDocumentNotFound) || hits != nil {
			t.Errorf("hits=%v err=%v", hits, err)
		}
	})
}

func TestSearchResult(t *testing.T) {
	f := fruitFixture(t)
	plan := parser.Parse("orange apple -grape", f.engine.GetTerms)
	res, err := f.exec.Search(context.Background(), plan, Options{MatchThreshold: 0.5, HitCount: 10}, ranker.NewTFIDF(f.engine))
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalHits != 2 || len(res.Results) != 2 {
		t.Fatalf("result = %+v", res)
	}
	if res.TermStats["orang"] != 2 || res.TermStats["appl"] != 2 {
		t.Errorf("term stats = %v", res.TermStats)
	}
	if res.Stats.Excluded != 1 || res.MinMatch != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}
	if res.Results[0].Document.ID != 0 {
		t.Errorf("best hit = %d, want 0 (matches both terms)", res.Results[0].Document.ID)
	}
}
