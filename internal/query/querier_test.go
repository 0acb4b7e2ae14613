package query

import (
	"strings"
	"testing"
	"time"
)

func TestBuildQueryNoFilter(t *testing.T) {
	query, args := buildQuery("SELECT Tag FROM tag_counts", Filter{}, " GROUP BY Tag")

	if strings.Contains(query, "WHERE") || strings.Contains(query, "LIMIT") {
		t.Errorf("Expected no WHERE or LIMIT clause, got %q", query)
	}
	if len(args) != 0 {
		t.Errorf("Expected no args, got %v", args)
	}
}

func TestBuildQueryFilters(t *testing.T) {
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	until := since.Add(24 * time.Hour)

	query, args := buildQuery("SELECT Tag FROM tag_counts", Filter{
		Since:       since,
		Until:       until,
		FlowLogFile: "flow_logs.txt",
		Limit:       10,
	}, " GROUP BY Tag")

	if !strings.Contains(query, "WHERE RunTime >= ? AND RunTime <= ? AND FlowLogFile = ?") {
		t.Errorf("Unexpected WHERE clause in %q", query)
	}
	if !strings.HasSuffix(query, "LIMIT 10") {
		t.Errorf("Expected the LIMIT clause last, got %q", query)
	}
	if strings.Index(query, "WHERE") > strings.Index(query, "GROUP BY") {
		t.Errorf("WHERE must come before GROUP BY in %q", query)
	}
	if len(args) != 3 || args[0] != since || args[1] != until || args[2] != "flow_logs.txt" {
		t.Errorf("Unexpected args: %v", args)
	}
}
