// Package rerank scores retrieved candidates with signals the vector stage
// cannot see: direct string similarity on vendor name and address. It is
// pure and stateless; it never queries the store or the vectorizer.
package rerank

import (
	"strings"

	"github.com/FinchOCR/addrmatch/engine/domain"
)

// Ratio is a normalized edit-distance similarity over runes: 1.0 for equal
// strings, 0.0 for completely dissimilar ones. It uses the indel distance
// (insertions and deletions only, a substitution counting as one of each),
// normalized by the combined length. Symmetric by construction. Conventions
// for empty input: empty vs empty is 1.0, empty vs non-empty is 0.0.
func Ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 || lb == 0 {
		return 0.0
	}
	dist := indelDistance(ra, rb)
	return 1.0 - float64(dist)/float64(la+lb)
}

// indelDistance computes the insert/delete edit distance via the LCS
// recurrence with two rolling rows.
func indelDistance(a, b []rune) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)
	for i := range prev {
		prev[i] = i
	}
	for j := 1; j <= len(b); j++ {
		curr[0] = j
		for i := 1; i <= len(a); i++ {
			if a[i-1] == b[j-1] {
				curr[i] = prev[i-1]
			} else {
				del := prev[i] + 1
				ins := curr[i-1] + 1
				if del < ins {
					curr[i] = del
				} else {
					curr[i] = ins
				}
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(a)]
}

// Score combines vendor-name similarity, address similarity, and the store's
// vector similarity into a single weighted value. String comparison is
// case-insensitive; negative vector similarity is clamped to zero. The
// weights are applied as given, without normalization.
func Score(q domain.QueryInput, c domain.CandidateRecord, w domain.Weights) float64 {
	vendorSim := Ratio(strings.ToLower(q.VendorName), strings.ToLower(c.VendorName))
	addressSim := Ratio(strings.ToLower(q.Address), strings.ToLower(c.Address))
	embeddingSim := c.Similarity
	if embeddingSim < 0 {
		embeddingSim = 0
	}
	return w.Vendor*vendorSim + w.Address*addressSim + w.Embedding*embeddingSim
}
