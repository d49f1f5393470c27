package ingest

import (
	"regexp"
	"sort"
	"strings"
)

var (
	isoDatePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-\d{2}`)
	yearPattern    = regexp.MustCompile(`20\d{2}`)
)

var monthNumbers = []struct {
	name   string
	number string
}{
	{"january", "01"}, {"february", "02"}, {"march", "03"}, {"april", "04"},
	{"may", "05"}, {"june", "06"}, {"july", "07"}, {"august", "08"},
	{"september", "09"}, {"october", "10"}, {"november", "11"}, {"december", "12"},
}

// updateKeywords mark records that announce product changes.
var updateKeywords = []string{"product", "update", "release", "changelog", "whats-new", "announcement"}

// ParseMonth returns "YYYY-MM" for ISO dates ("2025-05-15...") or for text
// carrying a full month name and a year ("May 14, 2025"). It returns an empty
// string when neither form is found.
func ParseMonth(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return ""
	}
	if m := isoDatePattern.FindStringSubmatch(date); m != nil {
		return m[1] + "-" + m[2]
	}

	lower := strings.ToLower(date)
	year := yearPattern.FindString(lower)
	if year == "" {
		return ""
	}
	for _, m := range monthNumbers {
		if strings.Contains(lower, m.name) {
			return year + "-" + m.number
		}
	}
	return ""
}

// ExtractTags returns the update keywords found in title or url plus the
// lower-cased categories, deduplicated and sorted.
func ExtractTags(title, url string, categories []string) []string {
	title = strings.ToLower(title)
	url = strings.ToLower(url)

	seen := make(map[string]struct{})
	for _, kw := range updateKeywords {
		if strings.Contains(title, kw) || strings.Contains(url, kw) {
			seen[kw] = struct{}{}
		}
	}
	for _, c := range categories {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			seen[c] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}

	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// ShouldInclude reports whether a record looks like update content: its
// title or url mentions an update keyword or a 20xx year.
func ShouldInclude(title, url string) bool {
	title = strings.ToLower(title)
	url = strings.ToLower(url)
	for _, kw := range updateKeywords {
		if strings.Contains(title, kw) || strings.Contains(url, kw) {
			return true
		}
	}
	return yearPattern.MatchString(title) || yearPattern.MatchString(url)
}
