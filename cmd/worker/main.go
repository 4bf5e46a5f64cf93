// Package main implements a NATS request-reply correction worker. Clients
// publish a query to the correction subject and receive the correction
// result on the reply subject, so batch pipelines can fan corrections out
// without going through HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"

	"github.com/FinchOCR/addrmatch/engine/domain"
	"github.com/FinchOCR/addrmatch/engine/ingest"
	"github.com/FinchOCR/addrmatch/engine/match"
	"github.com/FinchOCR/addrmatch/engine/refindex"
	"github.com/FinchOCR/addrmatch/engine/vectorizer"
	"github.com/FinchOCR/addrmatch/pkg/natsutil"
)

// Config holds all environment-based configuration.
type Config struct {
	NATSURL    string
	Subject    string
	Backend    string // "qdrant" or "memory"
	QdrantURL  string
	Collection string
	ModelDir   string
}

func loadConfig() Config {
	return Config{
		NATSURL:    envOr("NATS_URL", nats.DefaultURL),
		Subject:    envOr("CORRECT_SUBJECT", "addrmatch.correct"),
		Backend:    envOr("BACKEND", "qdrant"),
		QdrantURL:  envOr("QDRANT_URL", "localhost:6334"),
		Collection: envOr("QDRANT_COLLECTION", "reference_addresses"),
		ModelDir:   envOr("MODEL_DIR", "./model"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// CorrectRequest is the JSON request on the correction subject.
type CorrectRequest struct {
	VendorName string `json:"vendor_name"`
	Address    string `json:"address"`
}

// CorrectResponse carries either a correction result or an error message.
type CorrectResponse struct {
	domain.CorrectionResult
	Error string `json:"error,omitempty"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("worker exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	matcher, cleanup, err := buildMatcher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Drain()

	sub, err := natsutil.Serve(nc, cfg.Subject, handleCorrect(matcher, logger))
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", cfg.Subject, err)
	}
	defer sub.Unsubscribe()

	logger.Info("worker listening", "subject", cfg.Subject, "backend", cfg.Backend)
	<-ctx.Done()
	logger.Info("shutdown signal received")
	return nil
}

// Corrector is the handler-side matcher contract.
type Corrector interface {
	Correct(ctx context.Context, vendorName, address string) (domain.CorrectionResult, error)
}

func handleCorrect(matcher Corrector, logger *slog.Logger) func(context.Context, CorrectRequest) CorrectResponse {
	return func(ctx context.Context, req CorrectRequest) CorrectResponse {
		result, err := matcher.Correct(ctx, req.VendorName, req.Address)
		if err != nil {
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				logger.Error("correction failed", "err", err)
			}
			return CorrectResponse{Error: err.Error()}
		}
		return CorrectResponse{CorrectionResult: result}
	}
}

func buildMatcher(ctx context.Context, cfg Config, logger *slog.Logger) (*match.Matcher, func(), error) {
	noop := func() {}

	if cfg.Backend == "memory" {
		model, idx, err := ingest.BuildMemoryIndex(ingest.SampleCatalog(), vectorizer.DefaultConfig())
		if err != nil {
			return nil, noop, fmt.Errorf("build memory index: %w", err)
		}
		m, err := match.New(model, idx, match.DefaultOptions(), logger)
		return m, noop, err
	}

	model, err := vectorizer.Load(cfg.ModelDir)
	if err != nil {
		return nil, noop, fmt.Errorf("load model from %s: %w", cfg.ModelDir, err)
	}

	store, err := refindex.New(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return nil, noop, fmt.Errorf("qdrant connect: %w", err)
	}
	cleanup := func() { store.Close() }

	if err := store.CheckCompatible(ctx, model.Dims()); err != nil {
		cleanup()
		return nil, noop, err
	}

	m, err := match.New(model, store, match.DefaultOptions(), logger)
	if err != nil {
		cleanup()
		return nil, noop, err
	}
	return m, cleanup, nil
}
