package ranker

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/indexer/index"
)

// TFIDF sums log(1+tf) * log(N/df) * multiplicity over the updated terms.
type TFIDF struct {
	current
	stats Statistics
	idf   idfCache
	score float64
}

func NewTFIDF(stats Statistics) *TFIDF {
	r := &TFIDF{current: current{docID: -1}, stats: stats}
	r.idf = newIDFCache(func(term string) float64 {
		return IDF(stats.CorpusSize(), stats.DocumentFrequency(term))
	})
	return r
}

func (r *TFIDF) Reset(docID int) {
	r.reset(docID)
	r.score = 0
}

func (r *TFIDF) Update(term string, multiplicity int, posting index.Posting) {
	r.mustMatch(posting)
	r.score += math.Log1p(float64(posting.Frequency)) * r.idf.get(term) * float64(multiplicity)
}

func (r *TFIDF) Evaluate() (float64, error) {
	return r.score, nil
}

// IDF returns log(nDocs/df), or 0 when either count is not positive.
func IDF(nDocs, df int) float64 {
	if df <= 0 || nDocs <= 0 {
		return 0
	}
	return math.Log(float64(nDocs) / float64(df))
}
