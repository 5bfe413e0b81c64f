// Command query evaluates one N-of-M query against a local corpus and prints
// the ranked hits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/softmatch/pkg/logger"
)

func main() {
	corpusPath := flag.String("corpus", "", "JSON document array")
	sqlitePath := flag.String("sqlite", "", "SQLite database with a corpus_documents table")
	query := flag.String("q", "", "query text")
	threshold := flag.Float64("threshold", 0.5, "fraction of query terms a document must contain")
	limit := flag.Int("limit", 10, "maximum number of hits")
	rankerName := flag.String("ranker", "tfidf", "tfidf, static or bm25")
	fields := flag.String("fields", "title,body", "comma-separated fields to index")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logger.Setup(*logLevel, "text")
	if err := run(context.Background(), *corpusPath, *sqlitePath, *query, *threshold, *limit, *rankerName, strings.Split(*fields, ",")); err != nil {
		fmt.Fprintf(os.Stderr, "query: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, corpusPath, sqlitePath, query string, threshold float64, limit int, rankerName string, fields []string) error {
	var docs corpus.Corpus
	switch {
	case sqlitePath != "":
		store, db, err := corpus.OpenSQLite(ctx, sqlitePath)
		if err != nil {
			return err
		}
		defer db.Close()
		docs = store
	case corpusPath != "":
		mem, err := corpus.LoadFile(corpusPath)
		if err != nil {
			return err
		}
		docs = mem
	default:
		return fmt.Errorf("one of -corpus or -sqlite is required")
	}

	kind, err := ranker.ParseKind(rankerName)
	if err != nil {
		return err
	}

	engine := indexer.NewEngine()
	if _, err := engine.IndexCorpus(ctx, docs, fields...); err != nil {
		return err
	}
	r, err := ranker.NewFactory(engine, docs, ranker.FactoryConfig{
		StaticWeight:  ranker.DefaultWeight,
		DynamicWeight: ranker.DefaultWeight,
	}).New(ctx, kind)
	if err != nil {
		return err
	}

	hits, err := executor.New(engine, docs).Evaluate(ctx, query, executor.Options{
		MatchThreshold: threshold,
		HitCount:       limit,
	}, r)
	if err != nil {
		return err
	}

	stats := hits.Stats()
	fmt.Printf("%d of %d terms required, %d matches\n", stats.MinMatch, stats.Terms, stats.Matches)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSCORE\tID\tTITLE")
	for rank := 1; hits.Next(); rank++ {
		hit := hits.Hit()
		title := hit.Document.Text(corpus.FieldTitle)
		if title == "" {
			title = hit.Document.Text(corpus.FieldBody)
		}
		fmt.Fprintf(tw, "%d\t%.4f\t%d\t%s\n", rank, hit.Score, hit.Document.ID, title)
	}
	return tw.Flush()
}
