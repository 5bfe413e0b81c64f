package merger

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/indexer/index"
)

func list(ids ...int) index.PostingList {
	pl := make(index.PostingList, len(ids))
	for i, id := range ids {
		pl[i] = index.Posting{DocID: id, Frequency: 1}
	}
	return pl
}

func it(ids ...int) index.Iterator {
	return index.NewSliceIterator(list(ids...))
}

func collect(t *testing.T, it index.Iterator) []int {
	t.Helper()
	got, err := index.Collect(it)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return got.DocIDs()
}

func TestCombinators(t *testing.T) {
	tests := []struct {
		name    string
		combine func(a, b index.Iterator) index.Iterator
		a, b    []int
		want    []int
	}{
		{"intersection", Intersection, []int{1, 3, 5, 7}, []int{2, 3, 4, 7, 9}, []int{3, 7}},
		{"intersection disjoint", Intersection, []int{1, 2}, []int{3, 4}, []int{}},
		{"intersection empty left", Intersection, nil, []int{1}, []int{}},
		{"union", Union, []int{1, 3, 5}, []int{2, 3, 6}, []int{1, 2, 3, 5, 6}},
		{"union empty right", Union, []int{4, 8}, nil, []int{4, 8}},
		{"union both empty", Union, nil, nil, []int{}},
		{"difference", Difference, []int{1, 2, 3, 4, 5}, []int{2, 4}, []int{1, 3, 5}},
		{"difference empty right", Difference, []int{1, 2}, nil, []int{1, 2}},
		{"difference all removed", Difference, []int{1, 2}, []int{0, 1, 2, 3}, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(t, tt.combine(it(tt.a...), it(tt.b...)))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLeftOperandWinsOnEqualIDs(t *testing.T) {
	left := index.PostingList{{DocID: 4, Frequency: 7, Positions: []int{0, 2}}}
	right := index.PostingList{{DocID: 4, Frequency: 1, Positions: []int{9}}}

	for name, combine := range map[string]func(a, b index.Iterator) index.Iterator{
		"intersection": Intersection,
		"union":        Union,
	} {
		out, err := index.Collect(combine(index.NewSliceIterator(left), index.NewSliceIterator(right)))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(out) != 1 || out[0].Frequency != 7 || !reflect.DeepEqual(out[0].Positions, []int{0, 2}) {
			t.Errorf("%s emitted %+v, want the left posting", name, out)
		}
	}
}

func TestFoldAll(t *testing.T) {
	if got := collect(t, IntersectAll(it(1, 2, 3, 4), it(2, 3, 4), it(3, 4, 5))); !reflect.DeepEqual(got, []int{3, 4}) {
		t.Errorf("IntersectAll = %v", got)
	}
	if got := collect(t, UnionAll(it(5), it(1, 5), it(3))); !reflect.DeepEqual(got, []int{1, 3, 5}) {
		t.Errorf("UnionAll = %v", got)
	}
	if IntersectAll().Next() || UnionAll().Next() {
		t.Error("folding zero iterators must be empty")
	}
	if got := collect(t, UnionAll(it(2, 9))); !reflect.DeepEqual(got, []int{2, 9}) {
		t.Errorf("UnionAll single = %v", got)
	}
}

type countingIterator struct {
	index.Iterator
	calls int
}

func (c *countingIterator) Next() bool {
	c.calls++
	return c.Iterator.Next()
}

func TestDifferenceStopsPullingExhaustedRight(t *testing.T) {
	right := &countingIterator{Iterator: it(1)}
	got := collect(t, Difference(it(1, 2, 3, 4, 5), right))
	if !reflect.DeepEqual(got, []int{2, 3, 4, 5}) {
		t.Fatalf("Difference = %v", got)
	}
	if right.calls != 2 {
		t.Errorf("right Next called %d times, want 2", right.calls)
	}
}

type failingIterator struct {
	err error
}

func (f *failingIterator) Next() bool             { return false }
func (f *failingIterator) Posting() index.Posting { return index.Posting{} }
func (f *failingIterator) Err() error             { return f.err }

func TestErrorsPropagate(t *testing.T) {
	boom := errors.New("segment read failed")
	for name, combine := range map[string]func(a, b index.Iterator) index.Iterator{
		"intersection": Intersection,
		"union":        Union,
		"difference":   Difference,
	} {
		m := combine(it(1, 2), &failingIterator{err: boom})
		if _, err := index.Collect(m); !errors.Is(err, boom) {
			t.Errorf("%s: err = %v, want %v", name, err, boom)
		}
		if m.Next() {
			t.Errorf("%s: Next after failure returned true", name)
		}
	}
}

func TestIteratorIsLazy(t *testing.T) {
	left := &countingIterator{Iterator: it(1, 2, 3)}
	right := &countingIterator{Iterator: it(1, 2, 3)}
	m := Intersection(left, right)
	if left.calls != 0 || right.calls != 0 {
		t.Fatal("constructing a merge must not pull postings")
	}
	if !m.Next() || m.Posting().DocID != 1 {
		t.Fatal("first posting should be doc 1")
	}
	if left.calls != 1 || right.calls != 1 {
		t.Errorf("pulled left=%d right=%d, want 1 each", left.calls, right.calls)
	}
}
