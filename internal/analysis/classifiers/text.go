// Package classifiers holds the rule-based analyzers fanned out by the
// analysis pipeline.
package classifiers

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// rule is a named regular expression group scored by match count.
type rule struct {
	name    string
	pattern *regexp.Regexp
}

func words(alternatives ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(alternatives, "|") + `)\b`)
}

func count(re *regexp.Regexp, text string) int {
	return len(re.FindAllStringIndex(text, -1))
}

// rank scores every rule and returns the names with a positive score, highest
// first, ties kept in declaration order.
func rank(rules []rule, text string, limit int) (names []string, total int) {
	type scored struct {
		name  string
		score int
	}
	var hits []scored
	for _, r := range rules {
		if n := count(r.pattern, text); n > 0 {
			hits = append(hits, scored{r.name, n})
			total += n
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	for i := 0; i < len(hits) && i < limit; i++ {
		names = append(names, hits[i].name)
	}
	return names, total
}

var tokenPattern = regexp.MustCompile(`[a-z][a-z']*`)

// frequentWords returns lower-cased tokens of at least minLen runes that are
// not stopwords, most frequent first, ties by first occurrence.
func frequentWords(text string, minLen int, stop map[string]struct{}) []string {
	counts := make(map[string]int)
	var order []string
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		tok = strings.Trim(tok, "'")
		if len([]rune(tok)) < minLen {
			continue
		}
		if _, skip := stop[tok]; skip {
			continue
		}
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	return order
}

// appendUnique appends values not already present, stopping at limit.
func appendUnique(dst []string, limit int, values ...string) []string {
	for _, v := range values {
		if len(dst) >= limit {
			return dst
		}
		if v == "" || contains(dst, v) {
			continue
		}
		dst = append(dst, v)
	}
	return dst
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// humanize turns "urgent_action" into "Urgent Action".
func humanize(label string) string {
	// Casers are stateful, so one is built per call.
	return cases.Title(language.English).String(strings.ReplaceAll(label, "_", " "))
}

func toSet(values ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}
