package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/indexer/tokenizer"
)

// DefaultFields are the document fields indexed when none are given.
var DefaultFields = []string{corpus.FieldTitle, corpus.FieldBody}

// Engine is an in-memory inverted index over a corpus. It is built once and
// then shared read-only by concurrent queries.
type Engine struct {
	memIndex     *index.MemoryIndex
	logger       *slog.Logger
	docLengths   map[int]int
	docLengthsMu sync.RWMutex
	totalDocs    int64
	totalTokens  int64
}

func NewEngine() *Engine {
	return &Engine{
		memIndex:   index.NewMemoryIndex(),
		logger:     slog.Default().With("component", "indexer"),
		docLengths: make(map[int]int),
	}
}

// IndexDocument adds text under docID. Each id must be indexed once.
func (e *Engine) IndexDocument(docID int, text string) {
	tokenCount := e.memIndex.AddDocument(docID, text)

	e.docLengthsMu.Lock()
	e.docLengths[docID] = tokenCount
	e.totalDocs++
	e.totalTokens += int64(tokenCount)
	e.docLengthsMu.Unlock()

	e.logger.Debug("document indexed in memory",
		"doc_id", docID,
		"token_count", tokenCount,
		"mem_size", e.memIndex.Size(),
	)
}

// IndexCorpus indexes every document of c, joining the given fields (or
// DefaultFields) into one text. It returns the number of documents indexed.
func (e *Engine) IndexCorpus(ctx context.Context, c corpus.Corpus, fields ...string) (int, error) {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	start := time.Now()
	count := 0
	err := c.ForEach(ctx, func(doc corpus.Document) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.IndexDocument(doc.ID, doc.Text(fields...))
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("indexing corpus: %w", err)
	}
	e.logger.Info("corpus indexed",
		"documents", count,
		"terms", len(e.memIndex.Terms()),
		"mem_size", e.memIndex.Size(),
		"duration", time.Since(start),
	)
	return count, nil
}

// GetTerms analyses query exactly as documents were analysed at index time.
func (e *Engine) GetTerms(query string) []string {
	return tokenizer.Terms(query)
}

// PostingIterator returns the postings of an analysed term in DocID order.
// An unknown term yields an empty iterator.
func (e *Engine) PostingIterator(term string) (index.Iterator, error) {
	postings := e.memIndex.Search(term)
	if len(postings) == 0 {
		return index.Empty(), nil
	}
	return index.NewSliceIterator(postings), nil
}

func (e *Engine) DocumentFrequency(term string) int {
	return e.memIndex.DocumentFrequency(term)
}

// CorpusSize returns the number of indexed documents.
func (e *Engine) CorpusSize() int {
	e.docLengthsMu.RLock()
	defer e.docLengthsMu.RUnlock()
	return int(e.totalDocs)
}

func (e *Engine) DocLength(docID int) int {
	e.docLengthsMu.RLock()
	defer e.docLengthsMu.RUnlock()
	return e.docLengths[docID]
}

func (e *Engine) AvgDocLength() float64 {
	e.docLengthsMu.RLock()
	defer e.docLengthsMu.RUnlock()
	if e.totalDocs == 0 {
		return 0
	}
	return float64(e.totalTokens) / float64(e.totalDocs)
}

// Terms returns the indexed vocabulary.
func (e *Engine) Terms() []string {
	return e.memIndex.Terms()
}

// Size returns the approximate memory footprint of the postings in bytes.
func (e *Engine) Size() int64 {
	return e.memIndex.Size()
}

// Reset empties the index.
func (e *Engine) Reset() {
	e.memIndex.Reset()
	e.docLengthsMu.Lock()
	e.docLengths = make(map[int]int)
	e.totalDocs = 0
	e.totalTokens = 0
	e.docLengthsMu.Unlock()
}
