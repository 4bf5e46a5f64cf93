package main

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/FinchOCR/addrmatch/engine/domain"
)

type stubCorrector struct {
	result domain.CorrectionResult
	err    error
}

func (s *stubCorrector) Correct(context.Context, string, string) (domain.CorrectionResult, error) {
	return s.result, s.err
}

func TestHandleCorrectSuccess(t *testing.T) {
	stub := &stubCorrector{result: domain.CorrectionResult{
		Matched:          true,
		CorrectedAddress: "189 The Grove Dr",
		Confidence:       0.87,
	}}
	h := handleCorrect(stub, slog.Default())

	resp := h(context.Background(), CorrectRequest{VendorName: "Apple Store", Address: "1B9 The Gr0ve Dr"})
	if resp.Error != "" {
		t.Fatalf("unexpected error %q", resp.Error)
	}
	if !resp.Matched || resp.CorrectedAddress != "189 The Grove Dr" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestHandleCorrectValidationError(t *testing.T) {
	stub := &stubCorrector{err: domain.NewValidationError("query", "", domain.ErrEmptyQuery)}
	h := handleCorrect(stub, slog.Default())

	resp := h(context.Background(), CorrectRequest{})
	if resp.Error == "" {
		t.Fatal("expected error in response")
	}
	if resp.Matched {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestHandleCorrectStoreError(t *testing.T) {
	stub := &stubCorrector{err: errors.New("store down")}
	h := handleCorrect(stub, slog.Default())

	if resp := h(context.Background(), CorrectRequest{VendorName: "a", Address: "b"}); resp.Error != "store down" {
		t.Fatalf("resp.Error = %q", resp.Error)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := loadConfig()
	if cfg.Subject != "addrmatch.correct" || cfg.Backend != "qdrant" {
		t.Fatalf("cfg = %+v", cfg)
	}
}
