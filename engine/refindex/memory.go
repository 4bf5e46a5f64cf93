package refindex

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/FinchOCR/addrmatch/engine/domain"
)

// MemoryIndex is an exact brute-force cosine index over the full catalog.
// It satisfies the same SearchSimilar contract as the Qdrant store, which
// makes the two swappable without touching the matcher. Build once, then
// read-only: concurrent searches are safe, Build is not.
type MemoryIndex struct {
	records []domain.ReferenceRecord
	mags    []float64
	dims    int
}

// NewMemoryIndex returns an empty index. Searching it yields no candidates.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Build loads the records and precomputes embedding magnitudes. Records with
// missing embeddings or inconsistent dimensions are rejected.
func (m *MemoryIndex) Build(records []domain.ReferenceRecord) error {
	if len(records) == 0 {
		m.records, m.mags, m.dims = nil, nil, 0
		return nil
	}
	dims := len(records[0].Embedding)
	if dims == 0 {
		return fmt.Errorf("refindex: memory build: record %q has no embedding", records[0].ID)
	}
	mags := make([]float64, len(records))
	for i, r := range records {
		if len(r.Embedding) != dims {
			return fmt.Errorf("refindex: memory build: record %q has %d-dim embedding, want %d",
				r.ID, len(r.Embedding), dims)
		}
		mags[i] = magnitude(r.Embedding)
	}
	m.records = append([]domain.ReferenceRecord(nil), records...)
	m.mags = mags
	m.dims = dims
	return nil
}

// Len returns the number of indexed records.
func (m *MemoryIndex) Len() int { return len(m.records) }

// SearchSimilar returns up to topK records by descending cosine similarity.
// Zero-magnitude queries (fully out-of-vocabulary text) match nothing.
func (m *MemoryIndex) SearchSimilar(ctx context.Context, vec []float32, topK int) ([]domain.CandidateRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("refindex: memory search: %w", err)
	}
	if m.dims == 0 || len(m.records) == 0 {
		return nil, nil
	}
	if len(vec) != m.dims {
		return nil, fmt.Errorf("refindex: memory search: query dim %d != index dim %d: %w",
			len(vec), m.dims, domain.ErrArtifactIncompatible)
	}
	qm := magnitude(vec)
	if qm == 0 {
		return nil, nil
	}

	type scored struct {
		idx   int
		score float64
	}
	scoreds := make([]scored, 0, len(m.records))
	for i, r := range m.records {
		if m.mags[i] == 0 {
			continue
		}
		s := dot(vec, r.Embedding) / (qm * m.mags[i])
		if math.IsNaN(s) {
			continue
		}
		scoreds = append(scoreds, scored{idx: i, score: s})
	}
	sort.SliceStable(scoreds, func(a, b int) bool { return scoreds[a].score > scoreds[b].score })

	if topK <= 0 || topK > len(scoreds) {
		topK = len(scoreds)
	}
	out := make([]domain.CandidateRecord, topK)
	for n := 0; n < topK; n++ {
		out[n] = domain.CandidateRecord{
			ReferenceRecord: m.records[scoreds[n].idx],
			Similarity:      scoreds[n].score,
		}
	}
	return out, nil
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func magnitude(v []float32) float64 { return math.Sqrt(dot(v, v)) }
