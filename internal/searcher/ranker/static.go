package ranker

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/indexer/index"
)

// DefaultWeight is used for both the static and dynamic weight when none is
// configured.
const DefaultWeight = 1.0

// Documents resolves document fields for query-independent priors.
type Documents interface {
	GetDocument(ctx context.Context, id int) (corpus.Document, error)
}

// StaticPrior blends TF-IDF with the document's static_quality_score field:
//
//	DynamicWeight*tfidf + StaticWeight*static
//
// A missing or non-numeric field counts as 0.
type StaticPrior struct {
	StaticWeight  float64
	DynamicWeight float64

	ctx     context.Context
	dynamic *TFIDF
	docs    Documents
}

// NewStaticPrior builds a ranker for a single query; ctx bounds the document
// lookups made by Evaluate.
func NewStaticPrior(ctx context.Context, stats Statistics, docs Documents, staticWeight, dynamicWeight float64) *StaticPrior {
	return &StaticPrior{
		StaticWeight:  staticWeight,
		DynamicWeight: dynamicWeight,
		ctx:           ctx,
		dynamic:       NewTFIDF(stats),
		docs:          docs,
	}
}

func (r *StaticPrior) Reset(docID int) {
	r.dynamic.Reset(docID)
}

func (r *StaticPrior) Update(term string, multiplicity int, posting index.Posting) {
	r.dynamic.Update(term, multiplicity, posting)
}

func (r *StaticPrior) Evaluate() (float64, error) {
	dynamic, err := r.dynamic.Evaluate()
	if err != nil {
		return 0, err
	}
	docID := r.dynamic.docID
	doc, err := r.docs.GetDocument(r.ctx, docID)
	if err != nil {
		return 0, fmt.Errorf("reading static quality of document %d: %w", docID, err)
	}
	static := doc.Float(corpus.FieldStaticQualityScore, 0)
	return r.DynamicWeight*dynamic + r.StaticWeight*static, nil
}
