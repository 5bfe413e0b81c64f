package tokenizer

import (
	"reflect"
	"testing"
)

func TestTokenizeDropsStopWordsAndShortWords(t *testing.T) {
	got := Terms("The orange and a banana, x")
	want := Terms("orange banana")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Terms() = %v, want %v", got, want)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 terms, got %d: %v", len(got), got)
	}
}

func TestTokenizeStemsInflections(t *testing.T) {
	a := Terms("running")
	b := Terms("runs")
	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("expected one term each, got %v and %v", a, b)
	}
	if a[0] != "run" || b[0] != "run" {
		t.Fatalf("expected both to stem to %q, got %q and %q", "run", a[0], b[0])
	}
}

func TestTokenizePositionsCountKeptTokens(t *testing.T) {
	tokens := Tokenize("apple of the orange")
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(tokens))
	}
	for i, tok := range tokens {
		if tok.Position != i {
			t.Errorf("token %d (%q) position = %d, want %d", i, tok.Term, tok.Position, i)
		}
	}
}

func TestTokenizeCaseInsensitive(t *testing.T) {
	if !reflect.DeepEqual(Terms("GRAPE Kiwi"), Terms("grape kiwi")) {
		t.Fatal("tokenization should be case-insensitive")
	}
}

func TestTokenizeEmpty(t *testing.T) {
	if got := Tokenize("  ,,, the a "); len(got) != 0 {
		t.Fatalf("expected no tokens, got %v", got)
	}
}

func TestIsStopWord(t *testing.T) {
	if !IsStopWord("The") {
		t.Error("expected 'The' to be a stop word")
	}
	if IsStopWord("banana") {
		t.Error("did not expect 'banana' to be a stop word")
	}
}
