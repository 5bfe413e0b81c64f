package ranker

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/softmatch/pkg/errors"
)

// Kind names a scoring strategy.
type Kind string

const (
	KindTFIDF  Kind = "tfidf"
	KindStatic Kind = "static"
	KindBM25   Kind = "bm25"
)

// ParseKind maps a user-supplied name to a Kind. The empty string selects
// TF-IDF.
func ParseKind(name string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(name))) {
	case "", KindTFIDF:
		return KindTFIDF, nil
	case KindStatic:
		return KindStatic, nil
	case KindBM25:
		return KindBM25, nil
	default:
		return "", fmt.Errorf("%w: %q", apperrors.ErrUnknownRanker, name)
	}
}

// FactoryConfig holds the weights of the static-prior ranker.
type FactoryConfig struct {
	StaticWeight  float64
	DynamicWeight float64
}

// Factory builds a fresh Ranker for every query.
type Factory struct {
	stats LengthStatistics
	docs  Documents
	cfg   FactoryConfig
}

func NewFactory(stats LengthStatistics, docs Documents, cfg FactoryConfig) *Factory {
	return &Factory{stats: stats, docs: docs, cfg: cfg}
}

func (f *Factory) New(ctx context.Context, kind Kind) (Ranker, error) {
	switch kind {
	case KindTFIDF, "":
		return NewTFIDF(f.stats), nil
	case KindStatic:
		return NewStaticPrior(ctx, f.stats, f.docs, f.cfg.StaticWeight, f.cfg.DynamicWeight), nil
	case KindBM25:
		return NewBM25(f.stats), nil
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownRanker, kind)
	}
}
