// Package ranker scores one document at a time.
//
// A Ranker is driven through a three-call protocol: Reset on a document,
// zero or more Update calls with the postings of matched query terms, then
// Evaluate. Rankers hold per-document state and are not safe for concurrent
// use; build one per query.
package ranker

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/indexer/index"
)

const (
	k1 = 1.2
	b  = 0.75
)

type Ranker interface {
	// Reset clears accumulated state and starts scoring docID.
	Reset(docID int)

	// Update adds the contribution of term, which occurs multiplicity times
	// in the query. It panics if posting.DocID differs from the document
	// passed to the last Reset.
	Update(term string, multiplicity int, posting index.Posting)

	// Evaluate returns the score of the current document.
	Evaluate() (float64, error)
}

// Statistics are the corpus-wide figures TF-IDF needs.
type Statistics interface {
	DocumentFrequency(term string) int
	CorpusSize() int
}

// LengthStatistics add the document lengths used for BM25 normalisation.
type LengthStatistics interface {
	Statistics
	DocLength(docID int) int
	AvgDocLength() float64
}

// current tracks the document a ranker was last reset on.
type current struct {
	docID int
}

func (c *current) reset(docID int) {
	c.docID = docID
}

func (c *current) mustMatch(p index.Posting) {
	if p.DocID != c.docID {
		panic(fmt.Sprintf("ranker: update with posting for document %d while scoring document %d", p.DocID, c.docID))
	}
}

// idfCache memoises per-term inverse document frequencies for the lifetime
// of one ranker.
type idfCache struct {
	values  map[string]float64
	compute func(term string) float64
}

func newIDFCache(compute func(term string) float64) idfCache {
	return idfCache{values: make(map[string]float64), compute: compute}
}

func (c idfCache) get(term string) float64 {
	if v, ok := c.values[term]; ok {
		return v
	}
	v := c.compute(term)
	c.values[term] = v
	return v
}
