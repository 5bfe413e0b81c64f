package index

// Posting records that a document contains a term Frequency times.
type Posting struct {
	DocID     int   `json:"doc_id"`
	Frequency int   `json:"frequency"`
	Positions []int `json:"positions,omitempty"`
}

// PostingList is a slice of postings sorted by ascending DocID.
type PostingList []Posting

// DocIDs returns the document ids of the list in order.
func (pl PostingList) DocIDs() []int {
	ids := make([]int, len(pl))
	for i, p := range pl {
		ids[i] = p.DocID
	}
	return ids
}
