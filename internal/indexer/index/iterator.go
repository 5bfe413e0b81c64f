package index

// Iterator is a forward-only cursor over postings in ascending DocID order.
// It cannot be rewound. Next reports false once the sequence is exhausted or
// a read failed; Err distinguishes the two.
type Iterator interface {
	// Next advances to the next posting and reports whether one exists.
	Next() bool

	// Posting returns the posting under the cursor. Only valid after Next
	// returned true.
	Posting() Posting

	// Err returns the error that stopped iteration, if any.
	Err() error
}

type sliceIterator struct {
	postings PostingList
	pos      int
}

// NewSliceIterator returns an Iterator over an already sorted PostingList.
func NewSliceIterator(postings PostingList) Iterator {
	return &sliceIterator{postings: postings, pos: -1}
}

func (it *sliceIterator) Next() bool {
	if it.pos+1 >= len(it.postings) {
		it.pos = len(it.postings)
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Posting() Posting {
	return it.postings[it.pos]
}

func (it *sliceIterator) Err() error {
	return nil
}

type emptyIterator struct{}

// Empty returns an Iterator with no postings.
func Empty() Iterator {
	return emptyIterator{}
}

func (emptyIterator) Next() bool { return false }

func (emptyIterator) Posting() Posting { return Posting{} }

func (emptyIterator) Err() error { return nil }

// Collect drains it into a PostingList.
func Collect(it Iterator) (PostingList, error) {
	var out PostingList
	for it.Next() {
		out = append(out, it.Posting())
	}
	if err := it.Err(); err != nil {
		return out, err
	}
	return out, nil
}
