package tags

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sorter orders tag names for display using locale collation.
// A collate.Collator is not safe for concurrent use, so one is built per call.
type Sorter struct {
	tag language.Tag
}

// NewSorter returns a Sorter for a BCP 47 locale. Unparseable locales fall
// back to English.
func NewSorter(locale string) Sorter {
	t, err := language.Parse(locale)
	if err != nil {
		t = language.English
	}
	return Sorter{tag: t}
}

// Locale returns the collation locale.
func (s Sorter) Locale() string {
	return s.tag.String()
}

func (s Sorter) compare(col *collate.Collator, a, b string) int {
	if c := col.CompareString(a, b); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// Sort orders names ascending in place.
func (s Sorter) Sort(names []string) {
	col := collate.New(s.tag)
	slices.SortFunc(names, func(a, b string) int { return s.compare(col, a, b) })
}

// SortBy orders items in place by the collated value of key.
func SortBy[T any](s Sorter, items []T, key func(T) string) {
	col := collate.New(s.tag)
	slices.SortStableFunc(items, func(a, b T) int { return s.compare(col, key(a), key(b)) })
}

// TagCount is a tag with the number of users it matched.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ColumnOrder ranks candidates by how many of the visible tag lists contain
// them, most first, ties alphabetical.
func (s Sorter) ColumnOrder(candidates []string, visible [][]string) []TagCount {
	counts := make(map[string]int, len(candidates))
	for _, tags := range visible {
		for _, t := range tags {
			counts[t]++
		}
	}

	out := make([]TagCount, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, TagCount{Name: c, Count: counts[c]})
	}

	col := collate.New(s.tag)
	slices.SortFunc(out, func(a, b TagCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return s.compare(col, a.Name, b.Name)
	})
	return out
}
