package parser

import (
	"strings"
)

// Analyzer turns free text into normalised index terms. It must be the same
// analysis the index was built with.
type Analyzer func(text string) []string

// QueryPlan is a parsed query. Terms holds the distinct positive terms in
// first-seen order; Multiplicity counts how often each occurred.
type QueryPlan struct {
	RawQuery     string         `json:"raw_query"`
	Terms        []string       `json:"terms"`
	Multiplicity map[string]int `json:"multiplicity"`
	ExcludeTerms []string       `json:"exclude_terms,omitempty"`
}

// M returns the number of distinct positive terms.
func (p *QueryPlan) M() int {
	return len(p.Terms)
}

// Parse splits query into words and analyses each one. A word prefixed with
// '-' or following NOT is excluded. The boolean keywords AND and OR are
// accepted and ignored; the match threshold decides how many terms a
// document needs. A term both wanted and excluded is only excluded.
func Parse(query string, analyze Analyzer) *QueryPlan {
	plan := &QueryPlan{
		RawQuery:     query,
		Terms:        make([]string, 0),
		Multiplicity: make(map[string]int),
		ExcludeTerms: make([]string, 0),
	}
	if strings.TrimSpace(query) == "" {
		return plan
	}

	var include []string
	excluded := make(map[string]bool)
	excludeNext := false
	for _, word := range strings.Fields(query) {
		switch strings.ToUpper(word) {
		case "AND", "OR":
			continue
		case "NOT":
			excludeNext = true
			continue
		}

		negate := excludeNext
		excludeNext = false
		if strings.HasPrefix(word, "-") {
			negate = true
			word = strings.TrimLeft(word, "-")
		}

		for _, term := range analyze(word) {
			if negate {
				if !excluded[term] {
					excluded[term] = true
					plan.ExcludeTerms = append(plan.ExcludeTerms, term)
				}
				continue
			}
			include = append(include, term)
		}
	}

	for _, term := range include {
		if excluded[term] {
			continue
		}
		if plan.Multiplicity[term] == 0 {
			plan.Terms = append(plan.Terms, term)
		}
		plan.Multiplicity[term]++
	}
	return plan
}

// FromTerms builds a plan from already analysed terms, as returned by an
// index's GetTerms.
func FromTerms(raw string, terms []string) *QueryPlan {
	plan := &QueryPlan{
		RawQuery:     raw,
		Terms:        make([]string, 0, len(terms)),
		Multiplicity: make(map[string]int, len(terms)),
		ExcludeTerms: make([]string, 0),
	}
	for _, term := range terms {
		if plan.Multiplicity[term] == 0 {
			plan.Terms = append(plan.Terms, term)
		}
		plan.Multiplicity[term]++
	}
	return plan
}
