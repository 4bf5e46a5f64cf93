package vectorizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAccents decomposes to NFKD and drops combining marks, so "Élysées"
// and "Elysees" produce the same n-grams.
var stripAccents = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// Normalize lowercases, strips accents, and collapses runs of whitespace.
// Both catalog texts and query texts pass through here, so the two sides
// always agree on the n-gram alphabet.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if out, _, err := transform.String(stripAccents, s); err == nil {
		s = out
	}
	return strings.Join(strings.Fields(s), " ")
}

// ngrams extracts overlapping character n-grams of lengths [minN, maxN] from
// each whitespace-delimited token, padding token edges with a single space.
// A token shorter than minN is emitted once as a whole, padded. Edge padding
// keeps n-grams from bleeding across word boundaries, which is what makes the
// features survive per-character OCR corruption.
func ngrams(text string, minN, maxN int) []string {
	var out []string
	for _, tok := range strings.Fields(text) {
		w := []rune(" " + tok + " ")
		wLen := len(w)
		for n := minN; n <= maxN; n++ {
			end := n
			if end > wLen {
				end = wLen
			}
			out = append(out, string(w[:end]))
			offset := 0
			for offset+n < wLen {
				offset++
				out = append(out, string(w[offset:offset+n]))
			}
			// A token shorter than n was emitted whole; longer n would
			// repeat the same string.
			if offset == 0 {
				break
			}
		}
	}
	return out
}

// termCounts returns term frequencies for the already-normalized text.
func termCounts(text string, minN, maxN int) map[string]int {
	grams := ngrams(text, minN, maxN)
	counts := make(map[string]int, len(grams))
	for _, g := range grams {
		counts[g]++
	}
	return counts
}
