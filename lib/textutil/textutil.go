package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// transformers keep state between calls, so a new chain is built for each use
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Normalize lowercases, removes diacritics and collapses whitespace so that
// "Ubicación  planificada" and "ubicacion planificada" compare equal.
func Normalize(s string) string {
	folded, _, err := transform.String(stripMarks(), s)
	if err == nil {
		s = folded
	}
	s = strings.ToLower(s)
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Contains reports whether `needle` appears in `haystack` after normalizing both.
func Contains(haystack, needle string) bool {
	return strings.Contains(Normalize(haystack), Normalize(needle))
}

// FuzzyContains is like Contains but tolerates small edits: it slides a window of
// as many words as `needle` has over `haystack` and accepts the first window whose
// Jaro-Winkler similarity to `needle` is at least `threshold`.
func FuzzyContains(haystack, needle string, threshold float64) bool {
	h := Normalize(haystack)
	n := Normalize(needle)
	if n == "" {
		return true
	}
	if strings.Contains(h, n) {
		return true
	}

	words := strings.Fields(h)
	size := len(strings.Fields(n))
	if size == 0 || len(words) < size {
		return false
	}
	for i := 0; i+size <= len(words); i++ {
		window := strings.Join(words[i:i+size], " ")
		if matchr.JaroWinkler(window, n, false) >= threshold {
			return true
		}
	}
	return false
}
