package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/softmatch/internal/searcher/parser"
)

// Document bodies of the kind the corpus holds: titles, abstracts and
// full-text passages with a realistic share of stop words and inflections.
var documentTexts = map[string]string{
	"title":    "Evaluating approximate matching for ranked retrieval",
	"abstract": `We study queries where a document qualifies when it contains at least a
        fraction of the query terms. Matching documents are scored while the posting
        lists are traversed, and only the highest scoring candidates are retained.`,
	"passage": strings.Repeat(`The searchers were searching archived newspapers for articles
        mentioning flooded villages. Relevant articles rarely contained every keyword,
        so requiring all of them returned nothing, while accepting any of them returned
        thousands of loosely related reports. `, 25),
}

func BenchmarkAnalyzeDocument(b *testing.B) {
	for name, text := range documentTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = tokenizer.Terms(text)
			}
		})
	}
}

// BenchmarkSplitVsAnalyze separates splitting from stop-word removal and
// Snowball stemming.
func BenchmarkSplitVsAnalyze(b *testing.B) {
	text := documentTexts["abstract"]
	b.Run("words", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = tokenizer.Words(text)
		}
	})
	b.Run("terms", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = tokenizer.Terms(text)
		}
	})
}

func BenchmarkAnalyzeQuery(b *testing.B) {
	queries := map[string]string{
		"inflected":  "searching flooded villages newspapers",
		"stop_heavy": "the articles about the floods in the villages of the north",
		"repeated":   "flood flooded flooding floods village villages",
		"excluded":   "flooded villages -drought NOT famine",
	}
	for name, q := range queries {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = parser.Parse(q, tokenizer.Terms)
			}
		})
	}
}

func BenchmarkAnalyzeQueryParallel(b *testing.B) {
	q := "searching archived newspapers for flooded villages"
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = parser.Parse(q, tokenizer.Terms)
		}
	})
}

func BenchmarkAnalyzeQueryLength(b *testing.B) {
	vocabulary := strings.Fields("flooded villages archived newspapers relevant articles keyword reports searching matching")
	for _, n := range []int{1, 3, 10, 30} {
		words := make([]string, n)
		for i := range words {
			words[i] = vocabulary[i%len(vocabulary)]
		}
		q := strings.Join(words, " ")
		b.Run(fmt.Sprintf("terms_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = parser.Parse(q, tokenizer.Terms)
			}
		})
	}
}
