package match

import (
	"context"
	"log/slog"
	"testing"

	"github.com/FinchOCR/addrmatch/engine/ingest"
	"github.com/FinchOCR/addrmatch/engine/vectorizer"
)

// End-to-end: sample catalog in a memory index, OCR-corrupted queries through
// the full embed -> retrieve -> rerank pipeline.

func e2eMatcher(t *testing.T) *Matcher {
	t.Helper()
	model, idx, err := ingest.BuildMemoryIndex(ingest.SampleCatalog(), vectorizer.DefaultConfig())
	if err != nil {
		t.Fatalf("BuildMemoryIndex: %v", err)
	}
	m, err := New(model, idx, DefaultOptions(), slog.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestEndToEndOCRCorrections(t *testing.T) {
	m := e2eMatcher(t)
	for _, tc := range ingest.OCRCases() {
		t.Run(tc.VendorName, func(t *testing.T) {
			res, err := m.Correct(context.Background(), tc.VendorName, tc.OCRAddress)
			if err != nil {
				t.Fatalf("Correct: %v", err)
			}
			if !res.Matched {
				t.Fatalf("no match for %q / %q (confidence %v)", tc.VendorName, tc.OCRAddress, res.Confidence)
			}
			if res.CorrectedAddress != tc.WantAddress {
				t.Fatalf("CorrectedAddress = %q, want %q", res.CorrectedAddress, tc.WantAddress)
			}
			if res.CorrectedCity != tc.WantCity {
				t.Fatalf("CorrectedCity = %q, want %q", res.CorrectedCity, tc.WantCity)
			}
			if res.Confidence < DefaultOptions().ConfidenceThreshold {
				t.Fatalf("Confidence = %v, want >= threshold", res.Confidence)
			}
			if res.RefID == "" {
				t.Fatal("matched result must carry the reference ID")
			}
		})
	}
}

func TestEndToEndCleanQueryHighConfidence(t *testing.T) {
	m := e2eMatcher(t)
	res, err := m.Correct(context.Background(), "Apple Store", "189 The Grove Dr")
	if err != nil {
		t.Fatalf("Correct: %v", err)
	}
	if !res.Matched {
		t.Fatal("clean catalog query must match")
	}
	// Vendor and address both identical: score is at least the sum of the
	// string weights.
	if res.Confidence < 0.8 {
		t.Fatalf("Confidence = %v, want >= 0.8 for a clean query", res.Confidence)
	}
}

func TestEndToEndUnknownVendorNoMatch(t *testing.T) {
	m := e2eMatcher(t)
	res, err := m.Correct(context.Background(), "Zzyqx Vortex Emporium", "%%% @@@ ###")
	if err != nil {
		t.Fatalf("Correct: %v", err)
	}
	if res.Matched {
		t.Fatalf("expected no match, got %+v", res)
	}
	if res.Confidence >= DefaultOptions().ConfidenceThreshold {
		t.Fatalf("Confidence = %v, want below threshold", res.Confidence)
	}
	if res.CorrectedAddress != "" || res.RefID != "" {
		t.Fatal("corrected fields must be empty on non-match")
	}
}

func TestEndToEndConcurrentCorrections(t *testing.T) {
	m := e2eMatcher(t)
	cases := ingest.OCRCases()
	done := make(chan error, len(cases)*4)
	for i := 0; i < 4; i++ {
		for _, tc := range cases {
			go func(vendor, address string) {
				_, err := m.Correct(context.Background(), vendor, address)
				done <- err
			}(tc.VendorName, tc.OCRAddress)
		}
	}
	for i := 0; i < len(cases)*4; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent Correct: %v", err)
		}
	}
}
