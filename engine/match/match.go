// Package match orchestrates the two-stage correction pipeline: embed the
// noisy query, retrieve nearest reference candidates from the store, rerank
// them with string similarity, and gate the winner behind a confidence
// threshold. Each Correct call is an independent, side-effect-free pass; the
// only shared state is the immutable vectorizer model and the store handle.
package match

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FinchOCR/addrmatch/engine/domain"
	"github.com/FinchOCR/addrmatch/engine/rerank"
	"github.com/FinchOCR/addrmatch/engine/vectorizer"
)

// scoreEpsilon is the tie-break tolerance: a later candidate must beat the
// incumbent by more than this to replace it, so equal scores resolve to the
// store's native order and results stay deterministic.
const scoreEpsilon = 1e-9

// Searcher abstracts the reference store's similarity search.
type Searcher interface {
	SearchSimilar(ctx context.Context, vec []float32, topK int) ([]domain.CandidateRecord, error)
}

// Embedder abstracts the fitted vectorizer.
type Embedder interface {
	TransformOne(text string) ([]float32, error)
}

// Options tunes the correction pipeline.
type Options struct {
	TopK                int
	ConfidenceThreshold float64
	Weights             domain.Weights
	SearchTimeout       time.Duration
}

// DefaultOptions returns the reference tuning.
func DefaultOptions() Options {
	return Options{
		TopK:                20,
		ConfidenceThreshold: 0.45,
		Weights:             domain.DefaultWeights(),
		SearchTimeout:       5 * time.Second,
	}
}

// Matcher is the public correction entry point.
type Matcher struct {
	embed  Embedder
	search Searcher
	opts   Options
	logger *slog.Logger
}

// New creates a Matcher. Options are validated once here so Correct never
// has to.
func New(embed Embedder, search Searcher, opts Options, logger *slog.Logger) (*Matcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TopK <= 0 {
		return nil, domain.NewValidationError("top_k", fmt.Sprint(opts.TopK), domain.ErrInvalidTopK)
	}
	if err := domain.ValidateWeights(opts.Weights); err != nil {
		return nil, err
	}
	return &Matcher{embed: embed, search: search, opts: opts, logger: logger}, nil
}

// Correct finds the most likely reference record for a noisy (vendor,
// address) pair. A below-threshold best score or an empty candidate set is a
// normal non-match result, not an error; store failures are propagated.
func (m *Matcher) Correct(ctx context.Context, vendorName, address string) (domain.CorrectionResult, error) {
	query := domain.QueryInput{VendorName: vendorName, Address: address}
	if err := domain.ValidateQuery(query); err != nil {
		return domain.CorrectionResult{}, err
	}

	start := time.Now()

	vec, err := m.embed.TransformOne(vectorizer.PrepareText(vendorName, address))
	if err != nil {
		return domain.CorrectionResult{}, fmt.Errorf("match: embed query: %w", err)
	}

	searchCtx := ctx
	if m.opts.SearchTimeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, m.opts.SearchTimeout)
		defer cancel()
	}
	candidates, err := m.search.SearchSimilar(searchCtx, vec, m.opts.TopK)
	if err != nil {
		return domain.CorrectionResult{}, fmt.Errorf("match: %w", err)
	}

	if len(candidates) == 0 {
		m.logger.Info("no candidates", "vendor", vendorName, "duration", time.Since(start))
		return noMatch(query, 0), nil
	}

	// Rerank: scan in store order so that within-epsilon ties go to the
	// candidate the store ranked higher.
	best := 0
	bestScore := rerank.Score(query, candidates[0], m.opts.Weights)
	for i := 1; i < len(candidates); i++ {
		if score := rerank.Score(query, candidates[i], m.opts.Weights); score > bestScore+scoreEpsilon {
			best, bestScore = i, score
		}
	}

	if bestScore < m.opts.ConfidenceThreshold {
		m.logger.Info("below threshold",
			"vendor", vendorName,
			"best_score", bestScore,
			"candidates", len(candidates),
			"duration", time.Since(start),
		)
		return noMatch(query, bestScore), nil
	}

	winner := candidates[best]
	m.logger.Info("matched",
		"vendor", vendorName,
		"ref_id", winner.ID,
		"confidence", bestScore,
		"candidates", len(candidates),
		"duration", time.Since(start),
	)
	return domain.CorrectionResult{
		Matched:           true,
		OriginalVendor:    query.VendorName,
		OriginalAddress:   query.Address,
		CorrectedAddress:  winner.Address,
		CorrectedCity:     winner.City,
		CorrectedPostcode: winner.Postcode,
		CorrectedCountry:  winner.Country,
		RefID:             winner.ID,
		Confidence:        bestScore,
	}, nil
}

func noMatch(q domain.QueryInput, confidence float64) domain.CorrectionResult {
	return domain.CorrectionResult{
		Matched:         false,
		OriginalVendor:  q.VendorName,
		OriginalAddress: q.Address,
		Confidence:      confidence,
	}
}
