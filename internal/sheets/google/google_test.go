package google

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"impegni/internal/core"
)

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		baseName string
		year     int
		expected string
	}{
		{"Impegni", 2025, "2025 Impegni"},
		{"Impegni Health", 2024, "2024 Impegni Health"},
		{"", 2023, ""},
		{"  Padded  ", 2022, "2022 Padded"},
		{"2025 Already Prefixed", 2024, "2025 Already Prefixed"},
	}

	for _, tt := range tests {
		got := yearPrefixedName(tt.baseName, tt.year)
		if got != tt.expected {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q",
				tt.baseName, tt.year, got, tt.expected)
		}
	}
}

func TestColumnRange(t *testing.T) {
	tests := []struct {
		sheet string
		cols  int
		want  string
	}{
		{"2025 Impegni", 12, "'2025 Impegni'!A:L"},
		{"2025 Impegni Health", 6, "'2025 Impegni Health'!A:F"},
		{"Bob's", 1, "'Bob''s'!A:A"},
	}
	for _, tt := range tests {
		if got := columnRange(tt.sheet, tt.cols); got != tt.want {
			t.Errorf("columnRange(%q, %d) = %q, want %q", tt.sheet, tt.cols, got, tt.want)
		}
	}
}

func TestToValues(t *testing.T) {
	got := toValues([][]string{{"a", "1.00"}, {"b"}})
	want := [][]interface{}{{"a", "1.00"}, {"b"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("toValues() = %v, want %v", got, want)
	}
}

func TestLoadCredentials(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(file, []byte(`{"type":"service_account"}`), 0600); err != nil {
		t.Fatal(err)
	}

	b, err := loadCredentials(Options{CredentialsJSON: ` {"inline":true} `, CredentialsFile: file})
	if err != nil || string(b) != `{"inline":true}` {
		t.Errorf("inline credentials should win, got %q, %v", b, err)
	}

	b, err = loadCredentials(Options{CredentialsFile: file})
	if err != nil || !strings.Contains(string(b), "service_account") {
		t.Errorf("file credentials: got %q, %v", b, err)
	}

	if _, err := loadCredentials(Options{CredentialsFile: filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := loadCredentials(Options{}); err == nil {
		t.Error("expected error without credentials")
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Options{CredentialsJSON: "{}"}); err == nil {
		t.Error("expected error without spreadsheet id")
	}
}

func TestExportWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "x", sheetBase: "Impegni"}

	_, err := c.ExportOccurrences(context.Background(), "alice", core.Period{Year: 2025, Month: 7},
		[]core.Occurrence{{Label: "Rent", Amount: core.Money{Cents: 100}}})
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("expected not initialized error, got %v", err)
	}
}
