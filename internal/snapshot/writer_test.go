package snapshot

import (
	"FlowTagger/internal/model"
	"context"
	"encoding/gob"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriter_Write(t *testing.T) {
	// 1. Create a sample report
	counts := model.NewPortProtocolCounts()
	counts.Inc(model.PortProtocol{Port: "443", Protocol: "tcp"})
	counts.Inc(model.PortProtocol{Port: "22", Protocol: "tcp"})
	counts.Inc(model.PortProtocol{Port: "443", Protocol: "tcp"})

	generatedAt := time.Date(2024, 5, 4, 12, 30, 0, 0, time.FixedZone("UTC+2", 2*60*60))
	r := &model.Report{
		Result: &model.Result{
			TagCounts:          model.TagCounts{"sv_P2": 2, model.UntaggedTag: 1},
			PortProtocolCounts: counts,
			TotalValidLines:    3,
			SkippedLines:       2,
		},
		LookupFile:  "lookup_table.csv",
		FlowLogFile: "flow_logs.txt",
		GeneratedAt: generatedAt,
	}

	// 2. Write the snapshot
	tmpDir := t.TempDir()
	if err := NewWriter(tmpDir, nil).Write(context.Background(), r); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// 3. Verify the timestamped directory
	snapshotDir := filepath.Join(tmpDir, "2024-05-04_10-30-00.000000")
	if _, err := os.Stat(snapshotDir); err != nil {
		t.Fatalf("Snapshot directory was not created: %v", err)
	}

	// 4. Verify summary content
	summaryBytes, err := os.ReadFile(filepath.Join(snapshotDir, "summary.json"))
	if err != nil {
		t.Fatalf("Failed to read summary.json: %v", err)
	}
	var summary SummaryData
	if err := json.Unmarshal(summaryBytes, &summary); err != nil {
		t.Fatalf("Failed to unmarshal summary.json: %v", err)
	}
	if summary.Timestamp != "2024-05-04T10:30:00Z" {
		t.Errorf("Expected a UTC timestamp matching the directory, got %q", summary.Timestamp)
	}
	if summary.TotalValidLines != 3 || summary.SkippedLines != 2 {
		t.Errorf("Unexpected line totals in summary: %+v", summary)
	}
	if summary.Tags != 2 || summary.PortProtocolPairs != 2 {
		t.Errorf("Unexpected table sizes in summary: %+v", summary)
	}

	// 5. Verify gob file content
	gobFile, err := os.Open(filepath.Join(snapshotDir, "counts.gob"))
	if err != nil {
		t.Fatalf("Failed to open counts.gob: %v", err)
	}
	defer gobFile.Close()

	var decoded Counts
	if err := gob.NewDecoder(gobFile).Decode(&decoded); err != nil {
		t.Fatalf("Failed to decode gob file: %v", err)
	}
	if len(decoded.Tags) != 2 || decoded.Tags[0].Tag != "sv_P2" || decoded.Tags[0].Count != 2 {
		t.Errorf("Decoded tags do not match: %+v", decoded.Tags)
	}
	if len(decoded.PortProtocols) != 2 || decoded.PortProtocols[0].Port != "22" {
		t.Errorf("Decoded port/protocol rows do not match: %+v", decoded.PortProtocols)
	}
}

func TestWriter_WriteSameTimestamp(t *testing.T) {
	r := &model.Report{
		Result: &model.Result{
			TagCounts:          model.TagCounts{model.UntaggedTag: 1},
			PortProtocolCounts: model.NewPortProtocolCounts(),
			TotalValidLines:    1,
		},
		GeneratedAt: time.Date(2024, 5, 4, 12, 30, 0, 0, time.UTC),
	}

	tmpDir := t.TempDir()
	w := NewWriter(tmpDir, nil)
	for i := 0; i < 3; i++ {
		if err := w.Write(context.Background(), r); err != nil {
			t.Fatalf("Write %d failed: %v", i, err)
		}
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("Failed to list snapshots: %v", err)
	}
	want := []string{
		"2024-05-04_12-30-00.000000",
		"2024-05-04_12-30-00.000000-1",
		"2024-05-04_12-30-00.000000-2",
	}
	if len(entries) != len(want) {
		t.Fatalf("Expected %d snapshot directories, got %d", len(want), len(entries))
	}
	for i, entry := range entries {
		if entry.Name() != want[i] {
			t.Errorf("Snapshot %d: expected %s, got %s", i, want[i], entry.Name())
		}
	}
}
