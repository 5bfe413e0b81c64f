package corpus

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ReadDocuments decodes a JSON array of field objects. The position of each
// object in the array becomes its document id.
func ReadDocuments(r io.Reader) ([]Document, error) {
	var records []map[string]any
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding documents: %w", err)
	}
	docs := make([]Document, len(records))
	for i, fields := range records {
		if fields == nil {
			fields = map[string]any{}
		}
		docs[i] = Document{ID: i, Fields: fields}
	}
	return docs, nil
}

// LoadFile reads a JSON document file into a MemoryCorpus.
func LoadFile(path string) (*MemoryCorpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus file %s: %w", path, err)
	}
	defer f.Close()

	docs, err := ReadDocuments(f)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file %s: %w", path, err)
	}
	c := NewMemoryCorpus()
	for _, doc := range docs {
		c.Add(doc.Fields)
	}
	return c, nil
}
