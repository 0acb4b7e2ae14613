package report

import (
	"FlowTagger/internal/model"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newResult(tags model.TagCounts, pairs []model.PortProtocol) *model.Result {
	counts := model.NewPortProtocolCounts()
	for _, p := range pairs {
		counts.Inc(p)
	}
	return &model.Result{TagCounts: tags, PortProtocolCounts: counts, TotalValidLines: counts.Total()}
}

func TestRender(t *testing.T) {
	res := newResult(
		model.TagCounts{"web": 3, "dns": 1, model.UntaggedTag: 1},
		[]model.PortProtocol{
			{Port: "80", Protocol: "tcp"},
			{Port: "80", Protocol: "tcp"},
			{Port: "443", Protocol: "tcp"},
			{Port: "53", Protocol: "udp"},
			{Port: "9999", Protocol: "udp"},
		},
	)

	var buf bytes.Buffer
	if err := Render(&buf, res); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	want := "Tag Counts:\n" +
		"Tag,Count\n" +
		"web,3\n" +
		"Untagged,1\n" +
		"dns,1\n" +
		"\n" +
		"Port/Protocol Combination Counts:\n" +
		"Port,Protocol,Count\n" +
		"53,udp,1\n" +
		"80,tcp,2\n" +
		"443,tcp,1\n" +
		"9999,udp,1\n"
	if buf.String() != want {
		t.Errorf("Unexpected report:\n got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestRenderEmpty(t *testing.T) {
	res := newResult(model.TagCounts{model.UntaggedTag: 0}, nil)

	var buf bytes.Buffer
	if err := Render(&buf, res); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	want := "Tag Counts:\nTag,Count\n\nPort/Protocol Combination Counts:\nPort,Protocol,Count\n"
	if buf.String() != want {
		t.Errorf("Unexpected report:\n got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestSortedTagsTies(t *testing.T) {
	rows := SortedTags(model.TagCounts{"sv_P2": 2, "email": 2, "sv_P1": 2, "zero": 0, "top": 5})

	want := []TagCount{{"top", 5}, {"email", 2}, {"sv_P1", 2}, {"sv_P2", 2}}
	if len(rows) != len(want) {
		t.Fatalf("Expected %d rows, got %d: %v", len(want), len(rows), rows)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("Row %d: expected %v, got %v", i, want[i], rows[i])
		}
	}
}

func TestSortedPortProtocolsStable(t *testing.T) {
	counts := model.NewPortProtocolCounts()
	for _, p := range []model.PortProtocol{
		{Port: "443", Protocol: "udp"},
		{Port: "x", Protocol: "tcp"},
		{Port: "443", Protocol: "tcp"},
		{Port: "0", Protocol: "udp"},
		{Port: "25", Protocol: "tcp"},
	} {
		counts.Inc(p)
	}

	rows := SortedPortProtocols(counts)
	want := []model.PortProtocol{
		{Port: "x", Protocol: "tcp"},
		{Port: "0", Protocol: "udp"},
		{Port: "25", Protocol: "tcp"},
		{Port: "443", Protocol: "udp"},
		{Port: "443", Protocol: "tcp"},
	}
	for i := range want {
		if rows[i].PortProtocol != want[i] {
			t.Errorf("Row %d: expected %v, got %v", i, want[i], rows[i].PortProtocol)
		}
	}
}

func TestPortSortKey(t *testing.T) {
	cases := map[string]uint64{"443": 443, "0080": 80, "abc": 0, "": 0, "-5": 0}
	for port, want := range cases {
		if got := portSortKey(port); got != want {
			t.Errorf("portSortKey(%q) = %d, want %d", port, got, want)
		}
	}
}

func TestTextWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis_results.csv")
	res := newResult(model.TagCounts{"web": 1, model.UntaggedTag: 0}, []model.PortProtocol{{Port: "80", Protocol: "tcp"}})

	writer := NewTextWriter(path, nil)
	if err := writer.Write(context.Background(), &model.Report{Result: res}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	want := "Tag Counts:\nTag,Count\nweb,1\n\nPort/Protocol Combination Counts:\nPort,Protocol,Count\n80,tcp,1\n"
	if string(data) != want {
		t.Errorf("Unexpected report:\n%s", data)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("Failed to list output dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the report in the output dir, found %d entries", len(entries))
	}
}

func TestTextWriterUnwritableDestination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "analysis_results.csv")
	res := newResult(model.TagCounts{}, nil)

	err := NewTextWriter(path, nil).Write(context.Background(), &model.Report{Result: res})
	if !errors.Is(err, model.ErrIO) {
		t.Fatalf("Expected ErrIO, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Errorf("No report should exist after a failed write")
	}
}
