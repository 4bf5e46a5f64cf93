package vectorizer

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/FinchOCR/addrmatch/engine/domain"
)

// Artifact bundle layout: a directory holding manifest.json (human-readable
// summary) and model.bin (vocabulary, IDF weights, projection). The binary
// format is little-endian with length-prefixed terms.
const (
	manifestName  = "manifest.json"
	modelName     = "model.bin"
	bundleVersion = 1
)

var bundleMagic = [4]byte{'A', 'D', 'R', 'V'}

type manifest struct {
	Version   int       `json:"version"`
	MinN      int       `json:"min_n"`
	MaxN      int       `json:"max_n"`
	Dims      int       `json:"dims"`
	VocabSize int       `json:"vocab_size"`
	CreatedAt time.Time `json:"created_at"`
}

// Save persists the fitted model as a versioned artifact bundle under dir.
func (m *Model) Save(dir string) error {
	if m == nil || len(m.proj) == 0 {
		return fmt.Errorf("vectorizer: save: %w", domain.ErrNotFitted)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("vectorizer: save: %w", err)
	}

	man := manifest{
		Version:   bundleVersion,
		MinN:      m.cfg.MinN,
		MaxN:      m.cfg.MaxN,
		Dims:      m.dims,
		VocabSize: len(m.terms),
		CreatedAt: time.Now().UTC(),
	}
	manData, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return fmt.Errorf("vectorizer: save manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestName), manData, 0o644); err != nil {
		return fmt.Errorf("vectorizer: save manifest: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(bundleMagic[:])
	le := binary.LittleEndian
	writeU32 := func(v uint32) { _ = binary.Write(&buf, le, v) }
	writeU32(bundleVersion)
	writeU32(uint32(m.cfg.MinN))
	writeU32(uint32(m.cfg.MaxN))
	writeU32(uint32(m.cfg.MaxFeatures))
	writeU32(uint32(m.dims))
	writeU32(uint32(len(m.terms)))
	for i, term := range m.terms {
		writeU32(uint32(len(term)))
		buf.WriteString(term)
		_ = binary.Write(&buf, le, m.idf[i])
	}
	_ = binary.Write(&buf, le, m.proj)

	if err := os.WriteFile(filepath.Join(dir, modelName), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("vectorizer: save model: %w", err)
	}
	return nil
}

// Load recovers a Model previously written by Save. Loading followed by
// TransformOne reproduces the pre-save vectors exactly: the bundle stores the
// same float32/float64 values the fitted model computes with.
func Load(dir string) (*Model, error) {
	manData, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return nil, fmt.Errorf("vectorizer: load manifest: %w", err)
	}
	var man manifest
	if err := json.Unmarshal(manData, &man); err != nil {
		return nil, fmt.Errorf("vectorizer: load manifest: %w: %v", domain.ErrArtifactIncompatible, err)
	}
	if man.Version != bundleVersion {
		return nil, fmt.Errorf("vectorizer: load: %w: bundle version %d, want %d",
			domain.ErrArtifactIncompatible, man.Version, bundleVersion)
	}

	data, err := os.ReadFile(filepath.Join(dir, modelName))
	if err != nil {
		return nil, fmt.Errorf("vectorizer: load model: %w", err)
	}
	r := bytes.NewReader(data)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || magic != bundleMagic {
		return nil, fmt.Errorf("vectorizer: load: %w: bad magic", domain.ErrArtifactIncompatible)
	}
	le := binary.LittleEndian
	readU32 := func() (uint32, error) {
		var v uint32
		err := binary.Read(r, le, &v)
		return v, err
	}

	var header [6]uint32 // version, minN, maxN, maxFeatures, dims, vocabSize
	for i := range header {
		v, err := readU32()
		if err != nil {
			return nil, fmt.Errorf("vectorizer: load: %w: truncated header", domain.ErrArtifactIncompatible)
		}
		header[i] = v
	}
	if header[0] != bundleVersion {
		return nil, fmt.Errorf("vectorizer: load: %w: binary version %d, want %d",
			domain.ErrArtifactIncompatible, header[0], bundleVersion)
	}
	dims := int(header[4])
	vocabSize := int(header[5])
	if dims != man.Dims || vocabSize != man.VocabSize ||
		int(header[1]) != man.MinN || int(header[2]) != man.MaxN {
		return nil, fmt.Errorf("vectorizer: load: %w: manifest and binary disagree", domain.ErrArtifactIncompatible)
	}
	if dims <= 0 || vocabSize <= 0 {
		return nil, fmt.Errorf("vectorizer: load: %w: empty model", domain.ErrArtifactIncompatible)
	}

	terms := make([]string, vocabSize)
	idf := make([]float64, vocabSize)
	vocab := make(map[string]int, vocabSize)
	for i := 0; i < vocabSize; i++ {
		tlen, err := readU32()
		if err != nil {
			return nil, fmt.Errorf("vectorizer: load: %w: truncated vocabulary", domain.ErrArtifactIncompatible)
		}
		raw := make([]byte, tlen)
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, fmt.Errorf("vectorizer: load: %w: truncated term", domain.ErrArtifactIncompatible)
		}
		terms[i] = string(raw)
		vocab[terms[i]] = i
		if err := binary.Read(r, le, &idf[i]); err != nil {
			return nil, fmt.Errorf("vectorizer: load: %w: truncated idf", domain.ErrArtifactIncompatible)
		}
	}

	proj := make([]float32, vocabSize*dims)
	if err := binary.Read(r, le, proj); err != nil {
		return nil, fmt.Errorf("vectorizer: load: %w: truncated projection", domain.ErrArtifactIncompatible)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("vectorizer: load: %w: %d trailing bytes", domain.ErrArtifactIncompatible, r.Len())
	}

	return &Model{
		cfg: Config{
			MinN:        int(header[1]),
			MaxN:        int(header[2]),
			MaxFeatures: int(header[3]),
			Dims:        dims,
		},
		terms: terms,
		vocab: vocab,
		idf:   idf,
		proj:  proj,
		dims:  dims,
	}, nil
}
