package ranker

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/indexer/index"
)

// BM25 is Okapi BM25 with k1=1.2 and b=0.75, scaled by query multiplicity.
type BM25 struct {
	current
	stats LengthStatistics
	idf   idfCache
	score float64
}

func NewBM25(stats LengthStatistics) *BM25 {
	r := &BM25{current: current{docID: -1}, stats: stats}
	r.idf = newIDFCache(func(term string) float64 {
		return computeIDF(int64(stats.CorpusSize()), int64(stats.DocumentFrequency(term)))
	})
	return r
}

func (r *BM25) Reset(docID int) {
	r.reset(docID)
	r.score = 0
}

func (r *BM25) Update(term string, multiplicity int, posting index.Posting) {
	r.mustMatch(posting)
	tfNorm := computeTFNorm(
		float64(posting.Frequency),
		float64(r.stats.DocLength(posting.DocID)),
		r.stats.AvgDocLength(),
	)
	r.score += r.idf.get(term) * tfNorm * float64(multiplicity)
}

func (r *BM25) Evaluate() (float64, error) {
	return r.score, nil
}

func computeIDF(totalDocs int64, docFreq int64) float64 {
	numerator := float64(totalDocs) - float64(docFreq)
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

func computeTFNorm(termFreq float64, docLength float64, avgDocLength float64) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + k1*(1-b+b*lengthRatio)
	return (termFreq * (k1 + 1)) / denominator
}
