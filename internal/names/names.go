// Package names provides fuzzy person-name search helpers. Gallery record
// keys stay exact and case-sensitive; these helpers only drive listing and
// search filters.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// Normalize normalizes a name for comparison (lowercase, no diacritics,
// spaces for dashes and underscores).
func Normalize(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")
	return name
}

// Matches reports whether the normalized name contains the normalized query.
// An empty query matches everything.
func Matches(name, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(Normalize(name), Normalize(query))
}

// Filter returns the names matching the query, keeping input order.
func Filter(all []string, query string) []string {
	if query == "" {
		return all
	}
	out := make([]string, 0, len(all))
	for _, name := range all {
		if Matches(name, query) {
			out = append(out, name)
		}
	}
	return out
}
