// Package domain defines the core types, validation, and error taxonomy for
// the address-correction pipeline. It acts as the validation gate at pipeline
// entry points.
package domain

// ReferenceRecord is a single known (vendor, address) entry from the reference
// catalog. Records are created during ingestion and are read-only while serving.
type ReferenceRecord struct {
	ID         string    `json:"id"`
	VendorName string    `json:"vendor_name"`
	Address    string    `json:"address"`
	City       string    `json:"city,omitempty"`
	Postcode   string    `json:"postcode,omitempty"`
	Country    string    `json:"country,omitempty"`
	Embedding  []float32 `json:"-"`
}

// QueryInput is a noisy (vendor, address) pair as produced by OCR.
type QueryInput struct {
	VendorName string `json:"vendor_name"`
	Address    string `json:"address"`
}

// CandidateRecord pairs a ReferenceRecord with the vector similarity reported
// by the store. Candidate slices are ordered descending by Similarity, in the
// store's native order.
type CandidateRecord struct {
	ReferenceRecord
	Similarity float64 `json:"similarity"`
}

// CorrectionResult is the outcome of a single correction request. When Matched
// is false the corrected fields and RefID are empty; Confidence is always set.
type CorrectionResult struct {
	Matched           bool    `json:"matched"`
	OriginalVendor    string  `json:"original_vendor"`
	OriginalAddress   string  `json:"original_address"`
	CorrectedAddress  string  `json:"corrected_address,omitempty"`
	CorrectedCity     string  `json:"corrected_city,omitempty"`
	CorrectedPostcode string  `json:"corrected_postcode,omitempty"`
	CorrectedCountry  string  `json:"corrected_country,omitempty"`
	RefID             string  `json:"ref_id,omitempty"`
	Confidence        float64 `json:"confidence"`
}

// Weights control the reranker's combined score. They are used verbatim and
// are not normalized to sum to 1.
type Weights struct {
	Vendor    float64 `json:"vendor"`
	Address   float64 `json:"address"`
	Embedding float64 `json:"embedding"`
}

// DefaultWeights returns the reference weighting.
func DefaultWeights() Weights {
	return Weights{Vendor: 0.5, Address: 0.3, Embedding: 0.2}
}
