package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/softmatch/pkg/errors"
)

// Dialect selects the bind-parameter syntax of the backing database.
type Dialect int

const (
	// DialectPostgres uses $1, $2, ... placeholders (lib/pq).
	DialectPostgres Dialect = iota
	// DialectSQLite uses ? placeholders.
	DialectSQLite
)

// Schema creates the corpus table. The DDL is valid for both PostgreSQL and
// SQLite.
const Schema = `CREATE TABLE IF NOT EXISTS corpus_documents (
	id                   INTEGER PRIMARY KEY,
	title                TEXT NOT NULL DEFAULT '',
	body                 TEXT NOT NULL DEFAULT '',
	static_quality_score DOUBLE PRECISION
)`

// SQLCorpus reads documents from the corpus_documents table.
type SQLCorpus struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

func NewSQLCorpus(db *sql.DB, dialect Dialect) *SQLCorpus {
	return &SQLCorpus{
		db:      db,
		dialect: dialect,
		logger:  slog.Default().With("component", "sql-corpus"),
	}
}

// EnsureSchema creates the corpus table if it does not exist.
func (c *SQLCorpus) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating corpus schema: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Insert stores doc. A duplicate id is an error.
func (c *SQLCorpus) Insert(ctx context.Context, doc Document) error {
	return c.insert(ctx, c.db, doc)
}

// InsertTx stores docs inside tx so a bulk load is all-or-nothing.
func (c *SQLCorpus) InsertTx(ctx context.Context, tx *sql.Tx, docs []Document) error {
	for _, doc := range docs {
		if err := c.insert(ctx, tx, doc); err != nil {
			return err
		}
	}
	c.logger.Info("documents inserted", "count", len(docs))
	return nil
}

func (c *SQLCorpus) insert(ctx context.Context, ex execer, doc Document) error {
	var static sql.NullFloat64
	if v, ok := toFloat(doc.GetField(FieldStaticQualityScore, nil)); ok {
		static = sql.NullFloat64{Float64: v, Valid: true}
	}
	title, _ := doc.GetField(FieldTitle, "").(string)
	body, _ := doc.GetField(FieldBody, "").(string)
	_, err := ex.ExecContext(ctx,
		c.rebind(`INSERT INTO corpus_documents (id, title, body, static_quality_score) VALUES (?, ?, ?, ?)`),
		doc.ID, title, body, static,
	)
	if err != nil {
		return fmt.Errorf("inserting document %d: %w", doc.ID, err)
	}
	return nil
}

func (c *SQLCorpus) GetDocument(ctx context.Context, id int) (Document, error) {
	row := c.db.QueryRowContext(ctx,
		c.rebind(`SELECT id, title, body, static_quality_score FROM corpus_documents WHERE id = ?`), id)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return Document{}, fmt.Errorf("document %d: %w", id, apperrors.ErrDocumentNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("querying document %d: %w", id, err)
	}
	return doc, nil
}

func (c *SQLCorpus) Size(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM corpus_documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

func (c *SQLCorpus) ForEach(ctx context.Context, fn func(Document) error) error {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, title, body, static_quality_score FROM corpus_documents ORDER BY id`)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return fmt.Errorf("scanning document row: %w", err)
		}
		if err := fn(doc); err != nil {
			return err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating documents: %w", err)
	}
	c.logger.Debug("corpus scanned", "documents", count)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (Document, error) {
	var (
		id          int
		title, body string
		static      sql.NullFloat64
	)
	if err := s.Scan(&id, &title, &body, &static); err != nil {
		return Document{}, err
	}
	fields := map[string]any{
		FieldTitle: title,
		FieldBody:  body,
	}
	if static.Valid {
		fields[FieldStaticQualityScore] = static.Float64
	}
	return Document{ID: id, Fields: fields}, nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (c *SQLCorpus) rebind(query string) string {
	if c.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// toFloat converts the numeric kinds a field may hold after JSON or SQL
// decoding.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

// Float returns the named field as a float64, or def when it is absent or
// not numeric.
func (d Document) Float(name string, def float64) float64 {
	if v, ok := toFloat(d.GetField(name, nil)); ok {
		return v
	}
	return def
}
