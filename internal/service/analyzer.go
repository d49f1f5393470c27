package service

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cloo-solutions/docsrag/internal/domain"
)

var yearPattern = regexp.MustCompile(`20\d\d`)

// QueryAnalyzer extracts filter hints from free-text queries. It is pure
// string parsing and has no failure path.
type QueryAnalyzer struct {
	vocab Vocabulary
}

// NewQueryAnalyzer creates a new QueryAnalyzer instance
func NewQueryAnalyzer(vocab Vocabulary) *QueryAnalyzer {
	return &QueryAnalyzer{vocab: vocab}
}

// Analyze returns the month constraint and keyword categories found in query.
// A month is only emitted when both a year and a month name are present.
func (a *QueryAnalyzer) Analyze(query string) domain.QueryFilter {
	lower := strings.ToLower(query)
	return domain.QueryFilter{
		Month:    a.month(lower),
		Keywords: a.keywords(lower),
	}
}

func (a *QueryAnalyzer) month(lower string) string {
	year := yearPattern.FindString(lower)
	if year == "" {
		return ""
	}

	bestPos, bestLen := -1, 0
	number := ""
	for _, m := range a.vocab.Months {
		pos := indexWord(lower, m.Name)
		if pos < 0 {
			continue
		}
		if bestPos < 0 || pos < bestPos || (pos == bestPos && len(m.Name) > bestLen) {
			bestPos, bestLen, number = pos, len(m.Name), m.Number
		}
	}
	if number == "" {
		return ""
	}
	return year + "-" + number
}

func (a *QueryAnalyzer) keywords(lower string) []string {
	var found []string
	for _, kc := range a.vocab.Keywords {
		for _, term := range kc.Terms {
			if strings.Contains(lower, term) {
				found = append(found, kc.Category)
				break
			}
		}
	}
	sort.Strings(found)
	return dedupeSorted(found)
}

// Enhance appends the configured expansion of every term that starts a word
// in query. Analysis always runs on the original query, not this output.
func (a *QueryAnalyzer) Enhance(query string) string {
	lower := strings.ToLower(query)
	enhanced := lower
	for _, e := range a.vocab.Expansions {
		if indexWordPrefix(lower, e.Term) >= 0 {
			enhanced += " " + e.Expansion
		}
	}
	return enhanced
}

// indexWord returns the byte offset of the first occurrence of word that is
// bounded by non-letters on both sides, or -1.
func indexWord(s, word string) int {
	return indexBounded(s, word, true)
}

// indexWordPrefix is like indexWord but only requires a boundary before word.
func indexWordPrefix(s, word string) int {
	return indexBounded(s, word, false)
}

func indexBounded(s, word string, requireEnd bool) int {
	if word == "" {
		return -1
	}
	offset := 0
	for {
		i := strings.Index(s[offset:], word)
		if i < 0 {
			return -1
		}
		start := offset + i
		end := start + len(word)
		if isBoundaryBefore(s, start) && (!requireEnd || isBoundaryAfter(s, end)) {
			return start
		}
		offset = start + 1
	}
}

func isBoundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func isBoundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !unicode.IsLetter(r)
}

func dedupeSorted(values []string) []string {
	if len(values) < 2 {
		return values
	}
	out := values[:1]
	for _, v := range values[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
