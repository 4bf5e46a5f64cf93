package domain

import (
	"fmt"
	"strings"
)

// ValidateQuery rejects queries that cannot possibly be corrected. A query
// needs at least one non-blank field; vendor or address alone is allowed
// because OCR frequently drops one of them.
func ValidateQuery(q QueryInput) error {
	vendor := strings.TrimSpace(q.VendorName)
	address := strings.TrimSpace(q.Address)
	if vendor == "" && address == "" {
		return NewValidationError("query", "", ErrEmptyQuery)
	}
	return nil
}

// ValidateReference checks a catalog record before ingestion. Vendor name and
// address are mandatory; city, postcode, and country are optional payload.
func ValidateReference(r ReferenceRecord) error {
	if strings.TrimSpace(r.VendorName) == "" {
		return NewValidationError("vendor_name", r.VendorName, ErrEmptyVendorName)
	}
	if strings.TrimSpace(r.Address) == "" {
		return NewValidationError("address", r.Address, ErrEmptyAddress)
	}
	return nil
}

// ValidateWeights rejects negative weights. The weights are deliberately not
// required to sum to 1.
func ValidateWeights(w Weights) error {
	for _, f := range []struct {
		name string
		val  float64
	}{
		{"vendor", w.Vendor},
		{"address", w.Address},
		{"embedding", w.Embedding},
	} {
		if f.val < 0 {
			return NewValidationError(f.name, fmt.Sprintf("%g", f.val), ErrNegativeWeight)
		}
	}
	return nil
}
