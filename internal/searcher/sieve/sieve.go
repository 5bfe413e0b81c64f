// Package sieve keeps the K best-scoring documents seen during a pass.
package sieve

import (
	"container/heap"
	"sort"
)

// Winner is a retained (score, document) pair.
type Winner struct {
	Score float64 `json:"score"`
	DocID int     `json:"doc_id"`
}

type entry struct {
	Winner
	seq int
}

// Sieve is a bounded min-heap of size at most K.
//
// Ties: an entry is never displaced by a later one with an equal score, so
// the first document seen at a given score wins. Winners are ordered by
// descending score and then by the order they were sifted.
type Sieve struct {
	k    int
	seq  int
	heap entryHeap
}

// New returns a Sieve retaining at most k winners. It panics if k is
// negative.
func New(k int) *Sieve {
	if k < 0 {
		panic("sieve: negative capacity")
	}
	return &Sieve{k: k, heap: make(entryHeap, 0, k)}
}

// Sift offers a candidate. It runs in O(log K).
func (s *Sieve) Sift(score float64, docID int) {
	if s.k == 0 {
		return
	}
	e := entry{Winner: Winner{Score: score, DocID: docID}, seq: s.seq}
	s.seq++

	if len(s.heap) < s.k {
		heap.Push(&s.heap, e)
		return
	}
	if score > s.heap[0].Score {
		s.heap[0] = e
		heap.Fix(&s.heap, 0)
	}
}

// Len returns the number of retained winners.
func (s *Sieve) Len() int {
	return len(s.heap)
}

// Cap returns K.
func (s *Sieve) Cap() int {
	return s.k
}

// Winners returns the retained pairs best first. The result is a fresh
// slice; calling Winners again yields the same sequence.
func (s *Sieve) Winners() []Winner {
	sorted := make([]entry, len(s.heap))
	copy(sorted, s.heap)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].seq < sorted[j].seq
	})
	out := make([]Winner, len(sorted))
	for i, e := range sorted {
		out[i] = e.Winner
	}
	return out
}

type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }

// Less puts the weakest entry at the root: lowest score, and among equal
// scores the most recently sifted.
func (h entryHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].seq > h[j].seq
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x interface{}) {
	*h = append(*h, x.(entry))
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
