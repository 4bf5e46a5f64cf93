// Package main builds the reference index: it fits the vectorizer on a
// catalog, uploads embeddings to Qdrant, and writes the model bundle used
// by the API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/FinchOCR/addrmatch/engine/domain"
	"github.com/FinchOCR/addrmatch/engine/ingest"
	"github.com/FinchOCR/addrmatch/engine/refindex"
	"github.com/FinchOCR/addrmatch/engine/vectorizer"
	"github.com/FinchOCR/addrmatch/pkg/fn"
)

func main() {
	var (
		catalogPath = flag.String("catalog", "", "catalog file (.json or .csv); empty uses the built-in sample")
		modelDir    = flag.String("model-dir", "./model", "directory to write the model bundle to")
		dims        = flag.Int("dims", vectorizer.DefaultConfig().Dims, "embedding dimensions")
		qdrantURL   = flag.String("qdrant", "localhost:6334", "qdrant gRPC address")
		collection  = flag.String("collection", "reference_addresses", "qdrant collection name")
		recreate    = flag.Bool("recreate", false, "drop the collection before indexing")
		batchRate   = flag.Float64("batch-rate", 0, "max upsert batches per second (0 = unlimited)")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(*catalogPath, *modelDir, *dims, *qdrantURL, *collection, *recreate, *batchRate, logger); err != nil {
		logger.Error("index build failed", "err", err)
		os.Exit(1)
	}
}

func run(catalogPath, modelDir string, dims int, qdrantURL, collection string, recreate bool, batchRate float64, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	records, err := loadCatalog(catalogPath)
	if err != nil {
		return err
	}
	logger.Info("catalog loaded", "records", len(records), "path", catalogPath)

	store, err := refindex.New(qdrantURL, collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer store.Close()

	if recreate {
		if err := store.DeleteCollection(ctx); err != nil {
			return fmt.Errorf("drop collection: %w", err)
		}
		logger.Info("collection dropped", "collection", collection)
	}

	cfg := vectorizer.DefaultConfig()
	cfg.Dims = dims

	deps := ingest.Deps{
		Store:  store,
		Logger: logger,
		Retry:  fn.DefaultRetry,
	}
	if batchRate > 0 {
		deps.Limiter = rate.NewLimiter(rate.Limit(batchRate), 1)
	}

	start := time.Now()
	model, err := ingest.BuildIndex(ctx, deps, records, cfg)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	if err := model.Save(modelDir); err != nil {
		return fmt.Errorf("save model: %w", err)
	}

	logger.Info("index built",
		"records", len(records),
		"dims", model.Dims(),
		"vocab", model.VocabSize(),
		"model_dir", modelDir,
		"took", time.Since(start),
	)
	return nil
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
