// Package vectorizer turns free text into fixed-length dense vectors that are
// robust to character-level OCR corruption. Texts are decomposed into
// overlapping character n-grams weighted by TF-IDF, then projected to a dense
// embedding via a truncated SVD fitted once over the reference corpus.
//
// A fitted Model is immutable and safe for concurrent TransformOne calls.
// Fitting is an offline, single-writer operation.
package vectorizer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/FinchOCR/addrmatch/engine/domain"
)

// Config is the fit configuration, persisted alongside the model.
type Config struct {
	MinN        int `json:"min_n"`
	MaxN        int `json:"max_n"`
	Dims        int `json:"dims"`
	MaxFeatures int `json:"max_features"`
}

// DefaultConfig returns the reference configuration: 3–5 character n-grams
// projected to 256 dimensions, vocabulary capped at 50k terms.
func DefaultConfig() Config {
	return Config{MinN: 3, MaxN: 5, Dims: 256, MaxFeatures: 50_000}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinN <= 0 {
		c.MinN = d.MinN
	}
	if c.MaxN < c.MinN {
		c.MaxN = c.MinN
	}
	if c.Dims <= 0 {
		c.Dims = d.Dims
	}
	if c.MaxFeatures <= 0 {
		c.MaxFeatures = d.MaxFeatures
	}
	return c
}

// Model is a fitted vectorizer artifact: vocabulary, per-term IDF weights,
// and the dense projection. All fields are read-only after Fit or Load.
type Model struct {
	cfg   Config
	terms []string       // vocabulary, sorted; slice index is the term slot
	vocab map[string]int // term -> slot
	idf   []float64      // one per term
	proj  []float32      // len(terms) x dims, row-major by term
	dims  int            // actual projection rank, <= cfg.Dims
}

// Dims returns the embedding dimension produced by TransformOne.
func (m *Model) Dims() int { return m.dims }

// VocabSize returns the number of n-grams in the fitted vocabulary.
func (m *Model) VocabSize() int { return len(m.terms) }

// Config returns the configuration the model was fitted with.
func (m *Model) Config() Config { return m.cfg }

// PrepareText combines a vendor name and address into the canonical text form
// embedded on both the catalog and query sides.
func PrepareText(vendorName, address string) string {
	return strings.TrimSpace(strings.ToLower(vendorName + " " + address))
}

// Fit builds a Model from the reference corpus: n-gram vocabulary, smoothed
// IDF weights, and a truncated-SVD projection of the L2-normalized TF-IDF
// document matrix. The projection rank is capped at min(docs, vocab)-1, so a
// small corpus yields fewer than cfg.Dims dimensions.
func Fit(corpus []string, cfg Config) (*Model, error) {
	cfg = cfg.withDefaults()
	if len(corpus) == 0 {
		return nil, fmt.Errorf("vectorizer: fit: %w: empty corpus", domain.ErrDegenerateCorpus)
	}

	// Per-document term counts over normalized text.
	docs := make([]map[string]int, len(corpus))
	df := make(map[string]int)
	total := make(map[string]int)
	for i, text := range corpus {
		counts := termCounts(Normalize(text), cfg.MinN, cfg.MaxN)
		docs[i] = counts
		for term, c := range counts {
			df[term]++
			total[term] += c
		}
	}
	if len(df) == 0 {
		return nil, fmt.Errorf("vectorizer: fit: %w: corpus yields no n-grams", domain.ErrDegenerateCorpus)
	}

	terms := selectVocabulary(total, cfg.MaxFeatures)
	vocab := make(map[string]int, len(terms))
	for i, t := range terms {
		vocab[t] = i
	}

	// Smoothed IDF: ln((1+n)/(1+df)) + 1.
	n := float64(len(corpus))
	idf := make([]float64, len(terms))
	for i, t := range terms {
		idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}

	// Dense L2-normalized TF-IDF matrix, documents by terms.
	x := mat.NewDense(len(corpus), len(terms), nil)
	for i, counts := range docs {
		row := make([]float64, len(terms))
		var norm2 float64
		for term, c := range counts {
			j, ok := vocab[term]
			if !ok {
				continue
			}
			w := float64(c) * idf[j]
			row[j] = w
			norm2 += w * w
		}
		if norm2 > 0 {
			inv := 1 / math.Sqrt(norm2)
			for j := range row {
				row[j] *= inv
			}
		}
		x.SetRow(i, row)
	}

	// Rank cannot exceed min(docs, vocab); drop one like the reference
	// implementation so the projection never degenerates to the full space.
	maxRank := min(len(corpus), len(terms)) - 1
	if maxRank < 1 {
		maxRank = 1
	}
	dims := min(cfg.Dims, maxRank)

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, fmt.Errorf("vectorizer: fit: svd failed to converge")
	}
	var v mat.Dense
	svd.VTo(&v)

	proj := make([]float32, len(terms)*dims)
	for i := range terms {
		for j := 0; j < dims; j++ {
			proj[i*dims+j] = float32(v.At(i, j))
		}
	}

	return &Model{
		cfg:   cfg,
		terms: terms,
		vocab: vocab,
		idf:   idf,
		proj:  proj,
		dims:  dims,
	}, nil
}

// selectVocabulary keeps at most maxFeatures terms by descending corpus
// frequency (ties broken alphabetically) and returns them sorted.
func selectVocabulary(total map[string]int, maxFeatures int) []string {
	terms := make([]string, 0, len(total))
	for t := range total {
		terms = append(terms, t)
	}
	if len(terms) > maxFeatures {
		sort.Slice(terms, func(a, b int) bool {
			if total[terms[a]] != total[terms[b]] {
				return total[terms[a]] > total[terms[b]]
			}
			return terms[a] < terms[b]
		})
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)
	return terms
}

// TransformOne embeds a single text with the fitted model. It is a pure
// function of (model, text): out-of-vocabulary n-grams contribute zero, and
// the output always has exactly Dims() elements. Safe for concurrent use.
func (m *Model) TransformOne(text string) ([]float32, error) {
	if m == nil || len(m.proj) == 0 {
		return nil, fmt.Errorf("vectorizer: transform: %w", domain.ErrNotFitted)
	}

	counts := termCounts(Normalize(text), m.cfg.MinN, m.cfg.MaxN)

	type hit struct {
		slot   int
		weight float64
	}
	hits := make([]hit, 0, len(counts))
	var norm2 float64
	for term, c := range counts {
		slot, ok := m.vocab[term]
		if !ok {
			continue
		}
		w := float64(c) * m.idf[slot]
		hits = append(hits, hit{slot: slot, weight: w})
		norm2 += w * w
	}

	out := make([]float64, m.dims)
	if norm2 > 0 {
		inv := 1 / math.Sqrt(norm2)
		for _, h := range hits {
			w := h.weight * inv
			row := m.proj[h.slot*m.dims : (h.slot+1)*m.dims]
			for j, p := range row {
				out[j] += w * float64(p)
			}
		}
	}

	vec := make([]float32, m.dims)
	for j, f := range out {
		vec[j] = float32(f)
	}
	return vec, nil
}
