package domain

import (
	"errors"
	"testing"
)

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name    string
		q       QueryInput
		wantErr error
	}{
		{"both fields", QueryInput{VendorName: "Apple Store", Address: "189 The Grove Dr"}, nil},
		{"vendor only", QueryInput{VendorName: "Apple Store"}, nil},
		{"address only", QueryInput{Address: "189 The Grove Dr"}, nil},
		{"both empty", QueryInput{}, ErrEmptyQuery},
		{"whitespace only", QueryInput{VendorName: "  ", Address: "\t"}, ErrEmptyQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuery(tt.q)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateReference(t *testing.T) {
	ok := ReferenceRecord{VendorName: "Starbucks", Address: "1912 Pike Pl"}
	if err := ValidateReference(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateReference(ReferenceRecord{Address: "1912 Pike Pl"}); !errors.Is(err, ErrEmptyVendorName) {
		t.Fatalf("got %v, want ErrEmptyVendorName", err)
	}
	if err := ValidateReference(ReferenceRecord{VendorName: "Starbucks"}); !errors.Is(err, ErrEmptyAddress) {
		t.Fatalf("got %v, want ErrEmptyAddress", err)
	}
}

func TestValidateWeights(t *testing.T) {
	if err := ValidateWeights(DefaultWeights()); err != nil {
		t.Fatalf("default weights rejected: %v", err)
	}
	// Not summing to 1 is fine.
	if err := ValidateWeights(Weights{Vendor: 2, Address: 3, Embedding: 0}); err != nil {
		t.Fatalf("unnormalized weights rejected: %v", err)
	}
	if err := ValidateWeights(Weights{Vendor: -0.1}); !errors.Is(err, ErrNegativeWeight) {
		t.Fatalf("got %v, want ErrNegativeWeight", err)
	}
}

func TestValidationErrorUnwrap(t *testing.T) {
	err := NewValidationError("vendor_name", "", ErrEmptyVendorName)
	if !errors.Is(err, ErrEmptyVendorName) {
		t.Fatal("Unwrap should expose the sentinel")
	}
	if err.Error() == "" {
		t.Fatal("empty error string")
	}
}
