package commands

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunExportCSV(t *testing.T) {
	path := writeTestLog(t, testEvents())
	out := filepath.Join(t.TempDir(), "export.csv")

	if err := RunExport(path, "csv", out); err != nil {
		t.Fatalf("RunExport: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read CSV: %v", err)
	}

	if len(records) != 4 {
		t.Fatalf("expected header + 3 rows, got %d records", len(records))
	}
	if records[0][0] != "timestamp" || records[0][7] != "type" {
		t.Errorf("unexpected header: %v", records[0])
	}
	if records[1][7] != "packet" {
		t.Errorf("expected packet row, got %v", records[1])
	}
	if records[1][9] != "0x100" {
		t.Errorf("expected CAN ID 0x100, got %q", records[1][9])
	}
	if records[2][7] != "command" {
		t.Errorf("expected command row, got %v", records[2])
	}
	if records[2][8] != "0x3A" {
		t.Errorf("expected function 0x3A, got %q", records[2][8])
	}
	if records[3][7] != "state" {
		t.Errorf("expected state row, got %v", records[3])
	}
}

func TestRunExportJSONL(t *testing.T) {
	path := writeTestLog(t, testEvents())
	out := filepath.Join(t.TempDir(), "export.jsonl")

	if err := RunExport(path, "jsonl", out); err != nil {
		t.Fatalf("RunExport: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 JSON lines, got %d", len(lines))
	}
	for i, line := range lines {
		if !strings.HasPrefix(line, "{") || !strings.HasSuffix(line, "}") {
			t.Errorf("line %d is not a JSON object: %s", i, line)
		}
	}
}

func TestRunExportUnknownFormat(t *testing.T) {
	path := writeTestLog(t, testEvents())

	err := RunExport(path, "xml", filepath.Join(t.TempDir(), "out"))
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
	if !strings.Contains(err.Error(), "unknown format") {
		t.Errorf("unexpected error: %v", err)
	}
}
