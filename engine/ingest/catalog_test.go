package ingest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "catalog.json", `[
		{"vendor_name": "Starbucks", "address": "1912 Pike Pl", "city": "Seattle", "postcode": "98101", "country": "US"},
		{"vendor_name": "Aldi", "address": "Brunnenstrasse 27"}
	]`)
	records, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].City != "Seattle" || records[1].VendorName != "Aldi" {
		t.Fatalf("records not parsed: %+v", records)
	}
}

func TestLoadJSONBadFile(t *testing.T) {
	if _, err := LoadJSON(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
	path := writeFile(t, "bad.json", "{not json")
	if _, err := LoadJSON(path); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, "catalog.csv",
		"vendor_name,address,city,postcode,country\n"+
			"Starbucks,1912 Pike Pl,Seattle,98101,US\n"+
			"Aldi,Brunnenstrasse 27,Berlin,10119,DE\n")
	records, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[1].Country != "DE" {
		t.Fatalf("records not parsed: %+v", records)
	}
}

func TestLoadCSVColumnOrderIrrelevant(t *testing.T) {
	path := writeFile(t, "catalog.csv",
		"city,address,vendor_name\n"+
			"Seattle,1912 Pike Pl,Starbucks\n")
	records, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if records[0].VendorName != "Starbucks" || records[0].City != "Seattle" {
		t.Fatalf("columns misread: %+v", records[0])
	}
}

func TestLoadCSVMissingRequiredColumn(t *testing.T) {
	path := writeFile(t, "catalog.csv", "vendor_name,city\nStarbucks,Seattle\n")
	if _, err := LoadCSV(path); err == nil {
		t.Fatal("expected error for missing address column")
	}
}
