// Package main runs the built-in OCR corruption cases through the full
// correction pipeline and prints a pass/fail report. Useful as a smoke
// test after changing the vectorizer or reranker tuning.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/FinchOCR/addrmatch/engine/ingest"
	"github.com/FinchOCR/addrmatch/engine/match"
	"github.com/FinchOCR/addrmatch/engine/vectorizer"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if err := run(logger); err != nil {
		fmt.Fprintln(os.Stderr, "demo failed:", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	catalog := ingest.SampleCatalog()
	model, idx, err := ingest.BuildMemoryIndex(catalog, vectorizer.DefaultConfig())
	if err != nil {
		return err
	}

	matcher, err := match.New(model, idx, match.DefaultOptions(), logger)
	if err != nil {
		return err
	}

	fmt.Printf("catalog: %d records, %d dims, %d n-gram features\n\n",
		len(catalog), model.Dims(), model.VocabSize())

	ctx := context.Background()
	passed := 0
	cases := ingest.OCRCases()
	for _, tc := range cases {
		result, err := matcher.Correct(ctx, tc.VendorName, tc.OCRAddress)
		if err != nil {
			return fmt.Errorf("correct %q: %w", tc.VendorName, err)
		}

		ok := result.Matched && result.CorrectedAddress == tc.WantAddress
		status := "FAIL"
		if ok {
			status = "PASS"
			passed++
		}

		fmt.Printf("[%s] %-22s %s\n", status, tc.VendorName, tc.Note)
		fmt.Printf("       ocr:       %q\n", tc.OCRAddress)
		fmt.Printf("       corrected: %q (confidence %.3f)\n", result.CorrectedAddress, result.Confidence)
		if !ok {
			fmt.Printf("       expected:  %q\n", tc.WantAddress)
		}
		fmt.Println()
	}

	fmt.Printf("accuracy: %d/%d\n", passed, len(cases))
	if passed < len(cases) {
		os.Exit(1)
	}
	return nil
}
