package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/FinchOCR/addrmatch/engine/domain"
)

// LoadJSON reads a catalog file containing a JSON array of reference records
// (vendor_name, address, city, postcode, country).
func LoadJSON(path string) ([]domain.ReferenceRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: read catalog: %w", err)
	}
	var records []domain.ReferenceRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("ingest: parse catalog %s: %w", path, err)
	}
	return records, nil
}

// LoadCSV reads a catalog from a headered CSV file. Recognized columns:
// vendor_name, address, city, postcode, country; unknown columns are ignored.
func LoadCSV(path string) ([]domain.ReferenceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open catalog: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("ingest: read catalog header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["vendor_name"]; !ok {
		return nil, fmt.Errorf("ingest: catalog %s missing vendor_name column", path)
	}
	if _, ok := cols["address"]; !ok {
		return nil, fmt.Errorf("ingest: catalog %s missing address column", path)
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []domain.ReferenceRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: read catalog row: %w", err)
		}
		records = append(records, domain.ReferenceRecord{
			VendorName: field(row, "vendor_name"),
			Address:    field(row, "address"),
			City:       field(row, "city"),
			Postcode:   field(row, "postcode"),
			Country:    field(row, "country"),
		})
	}
	return records, nil
}
