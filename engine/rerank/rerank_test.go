package rerank

import (
	"math"
	"testing"

	"github.com/FinchOCR/addrmatch/engine/domain"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-12 }

func TestRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "189 The Grove Dr", "189 The Grove Dr", 1.0},
		{"both empty", "", "", 1.0},
		{"empty vs non-empty", "", "x", 0.0},
		{"non-empty vs empty", "x", "", 0.0},
		{"disjoint", "abc", "xyz", 0.0},
		// Two substitutions in a 16-char string: indel distance 4 over
		// combined length 32.
		{"ocr noise", "1B9 The Gr0ve Dr", "189 The Grove Dr", 1.0 - 4.0/32.0},
		{"single insert", "abcd", "abxcd", 1.0 - 1.0/9.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Ratio(tt.a, tt.b); !almostEqual(got, tt.want) {
				t.Fatalf("Ratio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestRatioSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"40 Boulevard Haussmann", "40 Bou1evard Haussrnann"},
		{"Tim Hortons", "Tim Horton"},
		{"a", "abcdef"},
	}
	for _, p := range pairs {
		if got, rev := Ratio(p[0], p[1]), Ratio(p[1], p[0]); !almostEqual(got, rev) {
			t.Fatalf("Ratio not symmetric for %q/%q: %v vs %v", p[0], p[1], got, rev)
		}
	}
}

func TestRatioBounds(t *testing.T) {
	pairs := [][2]string{
		{"KaDeWe", "kadewe berlin"},
		{"55 B1oor St VV", "55 Bloor St W"},
		{"", "anything"},
	}
	for _, p := range pairs {
		got := Ratio(p[0], p[1])
		if got < 0 || got > 1 {
			t.Fatalf("Ratio(%q, %q) = %v out of [0, 1]", p[0], p[1], got)
		}
	}
}

func TestScoreWeighting(t *testing.T) {
	q := domain.QueryInput{VendorName: "Apple Store", Address: "189 The Grove Dr"}
	cand := domain.CandidateRecord{
		ReferenceRecord: domain.ReferenceRecord{
			VendorName: "Apple Store",
			Address:    "189 The Grove Dr",
		},
		Similarity: 0.5,
	}

	got := Score(q, cand, domain.DefaultWeights())
	want := 0.5*1.0 + 0.3*1.0 + 0.2*0.5
	if !almostEqual(got, want) {
		t.Fatalf("Score = %v, want %v", got, want)
	}
}

func TestScoreCaseInsensitive(t *testing.T) {
	q := domain.QueryInput{VendorName: "apple store", Address: "189 the grove dr"}
	cand := domain.CandidateRecord{
		ReferenceRecord: domain.ReferenceRecord{
			VendorName: "APPLE STORE",
			Address:    "189 THE GROVE DR",
		},
	}
	got := Score(q, cand, domain.Weights{Vendor: 1, Address: 1})
	if !almostEqual(got, 2.0) {
		t.Fatalf("Score = %v, want 2.0", got)
	}
}

func TestScoreClampsNegativeSimilarity(t *testing.T) {
	q := domain.QueryInput{VendorName: "a", Address: "b"}
	cand := domain.CandidateRecord{
		ReferenceRecord: domain.ReferenceRecord{VendorName: "x", Address: "y"},
		Similarity:      -0.9,
	}
	if got := Score(q, cand, domain.Weights{Embedding: 1}); got != 0 {
		t.Fatalf("Score = %v, want 0 (negative similarity clamped)", got)
	}
}

func TestScoreWeightsNotNormalized(t *testing.T) {
	q := domain.QueryInput{VendorName: "same", Address: "same"}
	cand := domain.CandidateRecord{
		ReferenceRecord: domain.ReferenceRecord{VendorName: "same", Address: "same"},
		Similarity:      1.0,
	}
	// Weights summing to 10 must produce a score of 10, not 1.
	got := Score(q, cand, domain.Weights{Vendor: 5, Address: 3, Embedding: 2})
	if !almostEqual(got, 10.0) {
		t.Fatalf("Score = %v, want 10.0", got)
	}
}
