package corpus

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/glebarez/go-sqlite"
)

// OpenSQLite opens (or creates) the SQLite database at path, which may be
// ":memory:", and ensures the corpus table exists. The caller closes the
// returned *sql.DB.
func OpenSQLite(ctx context.Context, path string) (*SQLCorpus, *sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	// One connection: an in-memory database is private to its connection.
	db.SetMaxOpenConns(1)
	c := NewSQLCorpus(db, DialectSQLite)
	if err := c.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return c, db, nil
}
