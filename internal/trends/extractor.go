// Package trends derives n-gram frequency tables from paper titles.
//
// Titles are tokenized into lowercase ASCII letter runs, filtered against
// a fixed stopword list, and counted as unigrams, bigrams, and trigrams.
// N-grams never cross title boundaries.
package trends

import (
	"sort"
	"strings"

	"github.com/scholarmeta/metadata-service/internal/domain"
)

// PerYearCap bounds how many terms each per-year table may hold.
const PerYearCap = 5

// stopwords are structural and academic fillers excluded from every
// n-gram table.
var stopwords = map[string]struct{}{
	"the": {}, "of": {}, "and": {}, "in": {}, "for": {}, "on": {},
	"with": {}, "to": {}, "a": {}, "an": {}, "by": {}, "from": {},
	"at": {}, "as": {}, "is": {}, "are": {}, "be": {}, "this": {},
	"that": {}, "using": {}, "use": {}, "based": {}, "via": {},
	"into": {}, "between": {}, "study": {}, "analysis": {},
	"approach": {}, "method": {}, "methods": {}, "review": {},
	"system": {}, "model": {}, "models": {}, "data": {},
	"application": {}, "applications": {},
}

// TermCount is one ranked entry in a frequency table.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// Table groups the three n-gram frequency tables derived from one set
// of titles.
type Table struct {
	Unigrams []TermCount `json:"unigrams"`
	Bigrams  []TermCount `json:"bigrams"`
	Trigrams []TermCount `json:"trigrams"`
}

// Tokenize splits a title into lowercase ASCII letter runs, dropping
// tokens shorter than three characters and stopwords.
func Tokenize(title string) []string {
	lowered := strings.ToLower(title)

	var tokens []string
	start := -1
	for i := 0; i <= len(lowered); i++ {
		isLetter := i < len(lowered) && lowered[i] >= 'a' && lowered[i] <= 'z'
		if isLetter {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			token := lowered[start:i]
			start = -1
			if len(token) < 3 {
				continue
			}
			if _, stop := stopwords[token]; stop {
				continue
			}
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// Unigrams counts single tokens across titles and returns the top entries.
func Unigrams(titles []string, top int) []TermCount {
	return ngrams(titles, 1, top)
}

// Bigrams counts adjacent token pairs across titles and returns the top
// entries. Pairs never span two titles.
func Bigrams(titles []string, top int) []TermCount {
	return ngrams(titles, 2, top)
}

// Trigrams counts adjacent token triples across titles and returns the
// top entries. Triples never span two titles.
func Trigrams(titles []string, top int) []TermCount {
	return ngrams(titles, 3, top)
}

// Extract builds the full frequency table for a set of titles.
func Extract(titles []string, top int) Table {
	return Table{
		Unigrams: Unigrams(titles, top),
		Bigrams:  Bigrams(titles, top),
		Trigrams: Trigrams(titles, top),
	}
}

// PerYear groups papers by publication year and builds a frequency table
// per year. Papers without a year or a title are excluded. Each table is
// capped at min(top, PerYearCap) entries.
func PerYear(papers []domain.Paper, top int) map[int]Table {
	if top > PerYearCap {
		top = PerYearCap
	}

	byYear := make(map[int][]string)
	for _, p := range papers {
		if p.Year == 0 || p.Title == "" {
			continue
		}
		byYear[p.Year] = append(byYear[p.Year], p.Title)
	}

	tables := make(map[int]Table, len(byYear))
	for year, titles := range byYear {
		tables[year] = Extract(titles, top)
	}
	return tables
}

// ngrams counts window-of-n token joins across titles. Ranking is by
// count descending with ties kept in first-encountered order.
func ngrams(titles []string, n, top int) []TermCount {
	counts := make(map[string]int)
	var order []string

	for _, title := range titles {
		if title == "" {
			continue
		}
		tokens := Tokenize(title)
		for i := 0; i+n <= len(tokens); i++ {
			term := strings.Join(tokens[i:i+n], " ")
			if _, seen := counts[term]; !seen {
				order = append(order, term)
			}
			counts[term]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if top >= 0 && len(order) > top {
		order = order[:top]
	}

	ranked := make([]TermCount, 0, len(order))
	for _, term := range order {
		ranked = append(ranked, TermCount{Term: term, Count: counts[term]})
	}
	return ranked
}
