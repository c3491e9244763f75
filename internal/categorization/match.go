package categorization

import "strings"

// MatchCategory maps analyzed category names onto stored categories. The
// first analyzed name that contains, or is contained in, a stored name
// (case-insensitive) wins. Lexically overlapping names such as "Work" and
// "Work & Business" therefore match each other.
func MatchCategory(analyzed []string, stored []Category) (Category, bool) {
	for _, name := range analyzed {
		a := strings.ToLower(strings.TrimSpace(name))
		if a == "" {
			continue
		}
		for _, c := range stored {
			s := strings.ToLower(strings.TrimSpace(c.Name))
			if s == "" {
				continue
			}
			if strings.Contains(s, a) || strings.Contains(a, s) {
				return c, true
			}
		}
	}
	return Category{}, false
}
