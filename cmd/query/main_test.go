package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.json")
	data := `[{"title": "orange apple"}, {"title": "orange banana"}, {"body": "apple banana grape"}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := run(ctx, path, "", "orange apple", 0.5, 10, "bm25", []string{"title", "body"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := run(ctx, path, "", "orange", 1.5, 10, "tfidf", nil); err == nil {
		t.Error("expected an error for threshold 1.5")
	}
	if err := run(ctx, "", "", "orange", 0.5, 10, "tfidf", nil); err == nil {
		t.Error("expected an error without a corpus")
	}
	if err := run(ctx, path, "", "orange", 0.5, 10, "pagerank", nil); err == nil {
		t.Error("expected an error for an unknown ranker")
	}
}

func TestRunSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.db")
	if err := run(context.Background(), "", path, "orange", 0.5, 10, "static", nil); err != nil {
		t.Fatalf("run against an empty database: %v", err)
	}
}
