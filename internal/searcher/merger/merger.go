// Package merger combines posting sequences with single-pass merge-joins.
//
// Every combinator takes two iterators sorted by ascending DocID and returns
// a lazy iterator that is also sorted. Inputs are consumed once, in order,
// and never rewound. When both inputs carry the same DocID, the posting of
// the left operand is the one emitted, so its Frequency and Positions are
// what downstream consumers observe.
package merger

import (
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/indexer/index"
)

type op int

const (
	opIntersection op = iota
	opUnion
	opDifference
)

type merged struct {
	op   op
	a, b index.Iterator

	aOK, bOK     bool
	needA, needB bool
	done         bool

	cur index.Posting
	err error
}

func newMerged(o op, a, b index.Iterator) *merged {
	return &merged{op: o, a: a, b: b, needA: true, needB: true}
}

// Intersection emits the postings of a whose DocID also appears in b.
func Intersection(a, b index.Iterator) index.Iterator {
	return newMerged(opIntersection, a, b)
}

// Union emits every DocID present in a or b once. Shared ids carry a's
// posting.
func Union(a, b index.Iterator) index.Iterator {
	return newMerged(opUnion, a, b)
}

// Difference emits the postings of a whose DocID does not appear in b. Once
// b is exhausted the rest of a is streamed without touching b again.
func Difference(a, b index.Iterator) index.Iterator {
	return newMerged(opDifference, a, b)
}

// IntersectAll folds Intersection left to right. No inputs yields an empty
// iterator.
func IntersectAll(its ...index.Iterator) index.Iterator {
	return fold(Intersection, its)
}

// UnionAll folds Union left to right. No inputs yields an empty iterator.
func UnionAll(its ...index.Iterator) index.Iterator {
	return fold(Union, its)
}

func fold(combine func(a, b index.Iterator) index.Iterator, its []index.Iterator) index.Iterator {
	if len(its) == 0 {
		return index.Empty()
	}
	acc := its[0]
	for _, it := range its[1:] {
		acc = combine(acc, it)
	}
	return acc
}

func (m *merged) Next() bool {
	if m.done {
		return false
	}
	ok := m.advance()
	if !ok {
		m.done = true
	}
	return ok
}

func (m *merged) Posting() index.Posting {
	return m.cur
}

func (m *merged) Err() error {
	return m.err
}

// pull refills whichever heads were consumed by the previous step.
func (m *merged) pull() bool {
	if m.needA {
		m.needA = false
		m.aOK = m.a.Next()
		if !m.aOK {
			if err := m.a.Err(); err != nil {
				m.err = err
				return false
			}
		}
	}
	if m.op == opIntersection && !m.aOK {
		return true
	}
	if m.needB {
		m.needB = false
		m.bOK = m.b.Next()
		if !m.bOK {
			if err := m.b.Err(); err != nil {
				m.err = err
				return false
			}
		}
	}
	return true
}

func (m *merged) advance() bool {
	for {
		if !m.pull() {
			return false
		}
		switch m.op {
		case opIntersection:
			if !m.aOK || !m.bOK {
				return false
			}
			pa, pb := m.a.Posting(), m.b.Posting()
			switch {
			case pa.DocID < pb.DocID:
				m.needA = true
			case pa.DocID > pb.DocID:
				m.needB = true
			default:
				m.cur = pa
				m.needA, m.needB = true, true
				return true
			}

		case opUnion:
			switch {
			case !m.aOK && !m.bOK:
				return false
			case !m.bOK:
				m.cur = m.a.Posting()
				m.needA = true
				return true
			case !m.aOK:
				m.cur = m.b.Posting()
				m.needB = true
				return true
			}
			pa, pb := m.a.Posting(), m.b.Posting()
			switch {
			case pa.DocID < pb.DocID:
				m.cur = pa
				m.needA = true
			case pa.DocID > pb.DocID:
				m.cur = pb
				m.needB = true
			default:
				m.cur = pa
				m.needA, m.needB = true, true
			}
			return true

		case opDifference:
			if !m.aOK {
				return false
			}
			pa := m.a.Posting()
			if !m.bOK {
				m.cur = pa
				m.needA = true
				return true
			}
			pb := m.b.Posting()
			switch {
			case pa.DocID < pb.DocID:
				m.cur = pa
				m.needA = true
				return true
			case pa.DocID > pb.DocID:
				m.needB = true
			default:
				m.needA, m.needB = true, true
			}
		}
	}
}
