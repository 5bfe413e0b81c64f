package index

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/indexer/tokenizer"
)

// MemoryIndex is an in-memory inverted index from term to per-document
// postings. Posting lists are kept sorted by DocID so they can be served as
// ascending Iterators without re-sorting on every lookup.
type MemoryIndex struct {
	mu       sync.RWMutex
	index    map[string]PostingList
	docCount int
	size     int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index: make(map[string]PostingList),
	}
}

// AddDocument tokenizes text and merges its postings into the index. It
// returns the number of tokens kept. Adding the same docID twice appends a
// second posting; callers index each document once.
func (m *MemoryIndex) AddDocument(docID int, text string) int {
	tokens := tokenizer.Tokenize(text)

	termData := make(map[string]*Posting)
	for _, token := range tokens {
		p, exists := termData[token.Term]
		if !exists {
			p = &Posting{
				DocID:     docID,
				Frequency: 0,
				Positions: make([]int, 0, 4),
			}
			termData[token.Term] = p
		}
		p.Frequency++
		p.Positions = append(p.Positions, token.Position)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for term, posting := range termData {
		m.index[term] = insertSorted(m.index[term], *posting)
		m.size += int64(len(term) + len(posting.Positions)*8 + 64)
	}
	m.docCount++
	return len(tokens)
}

// insertSorted appends p keeping list ordered by DocID. Documents usually
// arrive in id order so the common case is a plain append.
func insertSorted(list PostingList, p Posting) PostingList {
	n := len(list)
	if n == 0 || list[n-1].DocID < p.DocID {
		return append(list, p)
	}
	i := sort.Search(n, func(i int) bool { return list[i].DocID >= p.DocID })
	list = append(list, Posting{})
	copy(list[i+1:], list[i:])
	list[i] = p
	return list
}

// Search returns the postings for an already normalised term. The returned
// list is shared with the index and must not be modified.
func (m *MemoryIndex) Search(term string) PostingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index[term]
}

// DocumentFrequency returns how many documents contain term.
func (m *MemoryIndex) DocumentFrequency(term string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.index[term])
}

// Terms returns the vocabulary in lexical order.
func (m *MemoryIndex) Terms() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	terms := make([]string, 0, len(m.index))
	for term := range m.index {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

func (m *MemoryIndex) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.docCount
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = make(map[string]PostingList)
	m.docCount = 0
	m.size = 0
}
