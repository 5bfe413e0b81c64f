// Package corpus holds the documents a search index is built from and that
// search results resolve back to. Documents are identified by dense integer
// ids and carry a bag of named fields.
package corpus

import (
	"context"
	"fmt"
	"strings"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/softmatch/pkg/errors"
)

// Well-known field names.
const (
	FieldTitle              = "title"
	FieldBody               = "body"
	FieldStaticQualityScore = "static_quality_score"
)

// Document is a single corpus entry.
type Document struct {
	ID     int            `json:"id"`
	Fields map[string]any `json:"fields"`
}

// GetField returns the named field, or def when the field is absent or nil.
func (d Document) GetField(name string, def any) any {
	if v, ok := d.Fields[name]; ok && v != nil {
		return v
	}
	return def
}

// Text joins the string values of the given fields with a space. Missing or
// non-string fields are skipped.
func (d Document) Text(fields ...string) string {
	parts := make([]string, 0, len(fields))
	for _, name := range fields {
		if s, ok := d.GetField(name, "").(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Corpus is a read-only document store.
type Corpus interface {
	GetDocument(ctx context.Context, id int) (Document, error)
	Size(ctx context.Context) (int, error)
	ForEach(ctx context.Context, fn func(Document) error) error
}

// MemoryCorpus keeps documents in a slice; a document's id is its position.
type MemoryCorpus struct {
	mu   sync.RWMutex
	docs []Document
}

func NewMemoryCorpus() *MemoryCorpus {
	return &MemoryCorpus{}
}

// Add appends a document built from fields and returns its id.
func (c *MemoryCorpus) Add(fields map[string]any) Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc := Document{ID: len(c.docs), Fields: fields}
	c.docs = append(c.docs, doc)
	return doc
}

// AddText is shorthand for a document with only a body field.
func (c *MemoryCorpus) AddText(body string) Document {
	return c.Add(map[string]any{FieldBody: body})
}

func (c *MemoryCorpus) GetDocument(_ context.Context, id int) (Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id < 0 || id >= len(c.docs) {
		return Document{}, fmt.Errorf("document %d: %w", id, apperrors.ErrDocumentNotFound)
	}
	return c.docs[id], nil
}

func (c *MemoryCorpus) Size(context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs), nil
}

func (c *MemoryCorpus) ForEach(ctx context.Context, fn func(Document) error) error {
	c.mu.RLock()
	docs := make([]Document, len(c.docs))
	copy(docs, c.docs)
	c.mu.RUnlock()
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	return nil
}
