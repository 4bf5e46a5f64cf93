// Package main implements the address correction API server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/FinchOCR/addrmatch/engine/domain"
	"github.com/FinchOCR/addrmatch/engine/ingest"
	"github.com/FinchOCR/addrmatch/engine/match"
	"github.com/FinchOCR/addrmatch/engine/refindex"
	"github.com/FinchOCR/addrmatch/engine/vectorizer"
	"github.com/FinchOCR/addrmatch/pkg/metrics"
	"github.com/FinchOCR/addrmatch/pkg/mid"
)

// Config holds all environment-based configuration.
type Config struct {
	Port        string
	Backend     string // "qdrant" or "memory"
	QdrantURL   string
	Collection  string
	ModelDir    string
	CatalogPath string // memory backend; empty means built-in sample catalog
	CORSOrigin  string
	MetricsPort int
	Threshold   float64
	TopK        int
}

func loadConfig() Config {
	return Config{
		Port:        envOr("PORT", "8080"),
		Backend:     envOr("BACKEND", "qdrant"),
		QdrantURL:   envOr("QDRANT_URL", "localhost:6334"),
		Collection:  envOr("QDRANT_COLLECTION", "reference_addresses"),
		ModelDir:    envOr("MODEL_DIR", "./model"),
		CatalogPath: envOr("CATALOG_PATH", ""),
		CORSOrigin:  envOr("CORS_ORIGIN", "*"),
		MetricsPort: envIntOr("METRICS_PORT", 9090),
		Threshold:   envFloatOr("CONFIDENCE_THRESHOLD", match.DefaultOptions().ConfidenceThreshold),
		TopK:        envIntOr("TOP_K", match.DefaultOptions().TopK),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := match.DefaultOptions()
	opts.ConfidenceThreshold = cfg.Threshold
	opts.TopK = cfg.TopK

	matcher, cleanup, err := buildMatcher(ctx, cfg, opts, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	reg := metrics.New()
	reg.ServeAsync(cfg.MetricsPort)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/correct", handleCorrect(matcher, reg, logger))

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.OTel("addrmatch-api"),
		mid.CORS(cfg.CORSOrigin),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "backend", cfg.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// buildMatcher wires the matcher against the configured backend. The qdrant
// backend loads a fitted model from disk and checks it against the live
// collection; the memory backend fits on the catalog at startup.
func buildMatcher(ctx context.Context, cfg Config, opts match.Options, logger *slog.Logger) (*match.Matcher, func(), error) {
	noop := func() {}

	if cfg.Backend == "memory" {
		records, err := loadCatalog(cfg.CatalogPath)
		if err != nil {
			return nil, noop, err
		}
		model, idx, err := ingest.BuildMemoryIndex(records, vectorizer.DefaultConfig())
		if err != nil {
			return nil, noop, fmt.Errorf("build memory index: %w", err)
		}
		logger.Info("memory index ready", "records", idx.Len(), "dims", model.Dims())
		m, err := match.New(model, idx, opts, logger)
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
	logger.Info("qdrant index ready", "collection", cfg.Collection, "dims", model.Dims())

	m, err := match.New(model, store, opts, logger)
	if err != nil {
		cleanup()
		return nil, noop, err
	}
	return m, cleanup, nil
}

func loadCatalog(path string) ([]domain.ReferenceRecord, error) {
	switch {
	case path == "":
		return ingest.SampleCatalog(), nil
	case strings.HasSuffix(path, ".csv"):
		return ingest.LoadCSV(path)
	default:
		return ingest.LoadJSON(path)
	}
}

// Corrector is the handler-side matcher contract.
type Corrector interface {
	Correct(ctx context.Context, vendorName, address string) (domain.CorrectionResult, error)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// CorrectRequest is the JSON body for POST /api/correct.
type CorrectRequest struct {
	VendorName string `json:"vendor_name"`
	Address    string `json:"address"`
}

func handleCorrect(matcher Corrector, reg *metrics.Registry, logger *slog.Logger) http.HandlerFunc {
	latency := reg.Histogram("correction_duration_seconds", "Time spent correcting one query.", nil)
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var req CorrectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		result, err := matcher.Correct(r.Context(), req.VendorName, req.Address)
		if err != nil {
			var verr *domain.ValidationError
			if errors.As(err, &verr) || errors.Is(err, domain.ErrEmptyQuery) {
				http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)
				return
			}
			if errors.Is(err, domain.ErrStoreUnavailable) {
				logger.Error("reference store unavailable", "err", err)
				http.Error(w, `{"error":"reference store unavailable"}`, http.StatusServiceUnavailable)
				return
			}
			logger.Error("correction failed", "err", err)
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}

		latency.Since(start)
		reg.Counter(metrics.WithLabels("corrections_total", "matched", strconv.FormatBool(result.Matched)),
			"Correction outcomes by match result.").Inc()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}
