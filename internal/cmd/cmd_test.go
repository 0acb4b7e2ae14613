package cmd

import (
	"FlowTagger/internal/engine/protocol"
	"FlowTagger/internal/model"
	"FlowTagger/internal/report"
	"bytes"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/gopacket/layers"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCommand(&stdout, &stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	lookupFile := filepath.Join(dir, "lookup.csv")
	flowLogFile := filepath.Join(dir, "flows.txt")
	reportFile := filepath.Join(dir, "report.csv")

	if err := os.WriteFile(lookupFile, []byte("dstport,protocol,tag\n25,tcp,sv_P1\n"), 0644); err != nil {
		t.Fatalf("Failed to write lookup table: %v", err)
	}
	line := "2 123456789012 eni-4d3c2b1a 192.168.1.100 203.0.113.101 23 25 6 18 14000 1620140661 1620140721 REJECT OK\n"
	if err := os.WriteFile(flowLogFile, []byte(line), 0644); err != nil {
		t.Fatalf("Failed to write flow log: %v", err)
	}

	out, err := runCommand(t, "run", "--log-level", "error",
		"--lookup", lookupFile, "--flowlog", flowLogFile, "--output", reportFile)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out, "Processing completed successfully") {
		t.Errorf("Expected a completion message, got %q", out)
	}

	data, err := os.ReadFile(reportFile)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	if !strings.Contains(string(data), "sv_P1,1\n") || !strings.Contains(string(data), "25,tcp,1\n") {
		t.Errorf("Unexpected report:\n%s", data)
	}
}

func TestRunCommandMissingLookup(t *testing.T) {
	dir := t.TempDir()
	reportFile := filepath.Join(dir, "report.csv")

	out, err := runCommand(t, "run", "--log-level", "error",
		"--lookup", filepath.Join(dir, "missing.csv"),
		"--flowlog", filepath.Join(dir, "missing.txt"),
		"--output", reportFile)
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if out != "" {
		t.Errorf("Expected no completion message, got %q", out)
	}
	if _, statErr := os.Stat(reportFile); !os.IsNotExist(statErr) {
		t.Errorf("Report file should not exist after a failed run")
	}
}

func TestRunCommandMissingConfig(t *testing.T) {
	_, err := runCommand(t, "run", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Expected an error for an explicit missing config file")
	}
}

func TestConvertCommandRequiresPcap(t *testing.T) {
	if _, err := runCommand(t, "convert", "--log-level", "error"); err == nil {
		t.Fatal("Expected an error without --pcap")
	}
}

func TestHistoryCommandWithoutClickHouseSink(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	cfg := "sinks:\n  - type: nats\n    enabled: true\n    nats:\n      subject: flows\n  - type: clickhouse\n    enabled: false\n"
	if err := os.WriteFile(cfgFile, []byte(cfg), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	_, err := runCommand(t, "history", "--config", cfgFile, "--log-level", "error")
	if !errors.Is(err, errNoClickHouseSink) {
		t.Fatalf("Expected errNoClickHouseSink, got %v", err)
	}
}

func TestHistoryResult(t *testing.T) {
	res := historyResult(
		[]report.TagCount{{Tag: "web", Count: 3}, {Tag: "Untagged", Count: 1}},
		[]model.PortProtocolCount{
			{PortProtocol: model.PortProtocol{Port: "80", Protocol: "tcp"}, Count: 3},
			{PortProtocol: model.PortProtocol{Port: "9999", Protocol: "udp"}, Count: 1},
		})

	var out bytes.Buffer
	if err := report.Render(&out, res); err != nil {
		t.Fatalf("Failed to render history: %v", err)
	}
	for _, want := range []string{"web,3\n", "Untagged,1\n", "80,tcp,3\n", "9999,udp,1\n"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected %q in output:\n%s", want, out.String())
		}
	}
	if res.TotalValidLines != 4 {
		t.Errorf("Expected 4 total lines, got %d", res.TotalValidLines)
	}
}

func TestWriteFlowLogFile(t *testing.T) {
	records := []*protocol.FlowRecord{{
		SrcAddr:  net.IPv4(10, 0, 0, 1),
		DstAddr:  net.IPv4(10, 0, 0, 2),
		SrcPort:  40000,
		DstPort:  443,
		Protocol: layers.IPProtocolTCP,
		Packets:  3,
		Bytes:    180,
	}}

	path := filepath.Join(t.TempDir(), "flows.txt")
	if err := writeFlowLogFile(path, records); err != nil {
		t.Fatalf("writeFlowLogFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read flow log: %v", err)
	}
	if !strings.Contains(string(data), " 40000 443 6 3 180 ") {
		t.Errorf("Unexpected flow log: %q", data)
	}

	if err := writeFlowLogFile(filepath.Join(t.TempDir(), "missing", "flows.txt"), records); err == nil {
		t.Error("Expected an error for an output file in a missing directory")
	}
}

func TestWriteFlowLogFileDeviceFull(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	records := []*protocol.FlowRecord{{DstPort: 80, Protocol: layers.IPProtocolTCP}}
	if err := writeFlowLogFile("/dev/full", records); err == nil {
		t.Fatal("Expected a write error on a full device")
	}
}

func TestServeCommandWithoutClickHouseSink(t *testing.T) {
	_, err := runCommand(t, "serve", "--config", filepath.Join(t.TempDir(), "none.yaml"), "--log-level", "error")
	if err == nil {
		t.Fatal("Expected an error for a missing config file")
	}

	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgFile, []byte("api:\n  http_listen_addr: 127.0.0.1:0\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	_, err = runCommand(t, "serve", "--config", cfgFile, "--log-level", "error", "--grpc-addr", "")
	if !errors.Is(err, errNoClickHouseSink) {
		t.Fatalf("Expected errNoClickHouseSink, got %v", err)
	}
}
