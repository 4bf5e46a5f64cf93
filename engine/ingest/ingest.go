// Package ingest builds the reference index: it fits the vectorizer on the
// catalog, embeds every record, and loads the result into the reference
// store. This is an offline, single-writer batch step and must not run
// concurrently with serving against the same model.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/FinchOCR/addrmatch/engine/domain"
	"github.com/FinchOCR/addrmatch/engine/refindex"
	"github.com/FinchOCR/addrmatch/engine/vectorizer"
	"github.com/FinchOCR/addrmatch/pkg/fn"
)

// UpsertBatchSize is the number of records sent to the store per upsert.
const UpsertBatchSize = 256

// Upserter is the write-side store contract the pipeline needs.
type Upserter interface {
	EnsureCollection(ctx context.Context, dims int) error
	Upsert(ctx context.Context, records []domain.ReferenceRecord) error
}

// Deps holds the external dependencies of the pipeline.
type Deps struct {
	Store   Upserter
	Logger  *slog.Logger
	Limiter *rate.Limiter // optional; paces upsert batches
	Retry   fn.RetryOpts  // zero value disables retries
}

// recordID derives a stable UUID from a record's identity fields, so
// re-ingesting the same catalog overwrites rather than duplicates.
func recordID(r domain.ReferenceRecord) string {
	key := fmt.Sprintf("%s|%s|%s|%s|%s", r.VendorName, r.Address, r.City, r.Postcode, r.Country)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// Embed fits a vectorizer on the catalog and returns the records with IDs and
// embeddings filled in. Invalid records fail the whole build: a partially
// embedded catalog would silently shrink recall.
func Embed(records []domain.ReferenceRecord, cfg vectorizer.Config) (*vectorizer.Model, []domain.ReferenceRecord, error) {
	for i, r := range records {
		if err := domain.ValidateReference(r); err != nil {
			return nil, nil, fmt.Errorf("ingest: record %d: %w", i, err)
		}
	}

	corpus := make([]string, len(records))
	for i, r := range records {
		corpus[i] = vectorizer.PrepareText(r.VendorName, r.Address)
	}

	model, err := vectorizer.Fit(corpus, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: %w", err)
	}

	workers := runtime.GOMAXPROCS(0)
	results := fn.ParMapResult(records, workers, func(r domain.ReferenceRecord) fn.Result[domain.ReferenceRecord] {
		vec, err := model.TransformOne(vectorizer.PrepareText(r.VendorName, r.Address))
		if err != nil {
			return fn.Err[domain.ReferenceRecord](err)
		}
		r.ID = recordID(r)
		r.Embedding = vec
		return fn.Ok(r)
	})
	embedded, err := fn.Collect(results).Unwrap()
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: embed catalog: %w", err)
	}
	return model, embedded, nil
}

// BuildIndex runs the full offline build: fit, embed, ensure the collection,
// and upsert in paced batches. It returns the fitted model so the caller can
// persist the artifact bundle next to the populated index.
func BuildIndex(ctx context.Context, deps Deps, records []domain.ReferenceRecord, cfg vectorizer.Config) (*vectorizer.Model, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	model, embedded, err := Embed(records, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("catalog embedded", "records", len(embedded), "dims", model.Dims(), "vocab", model.VocabSize())

	if err := deps.Store.EnsureCollection(ctx, model.Dims()); err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	for start := 0; start < len(embedded); start += UpsertBatchSize {
		end := start + UpsertBatchSize
		if end > len(embedded) {
			end = len(embedded)
		}
		batch := embedded[start:end]

		if deps.Limiter != nil {
			if err := deps.Limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("ingest: %w", err)
			}
		}

		upsert := func(ctx context.Context) fn.Result[struct{}] {
			if err := deps.Store.Upsert(ctx, batch); err != nil {
				return fn.Err[struct{}](err)
			}
			return fn.Ok(struct{}{})
		}
		var res fn.Result[struct{}]
		if deps.Retry.MaxAttempts > 1 {
			res = fn.Retry(ctx, deps.Retry, upsert)
		} else {
			res = upsert(ctx)
		}
		if _, err := res.Unwrap(); err != nil {
			return nil, fmt.Errorf("ingest: upsert batch %d-%d: %w", start, end, err)
		}
		logger.Info("batch upserted", "from", start, "to", end)
	}

	return model, nil
}

// BuildMemoryIndex fits and embeds the catalog into an in-process index.
// Used by the demo harness, tests, and memory-backed serving.
func BuildMemoryIndex(records []domain.ReferenceRecord, cfg vectorizer.Config) (*vectorizer.Model, *refindex.MemoryIndex, error) {
	model, embedded, err := Embed(records, cfg)
	if err != nil {
		return nil, nil, err
	}
	idx := refindex.NewMemoryIndex()
	if err := idx.Build(embedded); err != nil {
		return nil, nil, err
	}
	return model, idx, nil
}
