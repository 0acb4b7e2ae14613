package snapshot

import (
	"FlowTagger/internal/config"
	"FlowTagger/internal/factory"
	"FlowTagger/internal/model"
	"FlowTagger/internal/report"
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// TimestampLayout names snapshot directories, always in UTC.
const TimestampLayout = "2006-01-02_15-04-05.000000"

func init() {
	factory.RegisterSink("snapshot", func(_ context.Context, def config.SinkDef, _ time.Duration, logger *zap.Logger) (model.Writer, error) {
		if def.Snapshot.RootPath == "" {
			return nil, fmt.Errorf("snapshot sink requires a root_path")
		}
		return NewWriter(def.Snapshot.RootPath, logger), nil
	})
}

// SummaryData holds the metadata for a snapshot.
type SummaryData struct {
	LookupFile        string `json:"lookup_file"`
	FlowLogFile       string `json:"flow_log_file"`
	TotalValidLines   int    `json:"total_valid_lines"`
	SkippedLines      int    `json:"skipped_lines"`
	Tags              int    `json:"tags"`
	PortProtocolPairs int    `json:"port_protocol_pairs"`
	Timestamp         string `json:"timestamp"`
}

// Counts is the gob-encoded payload of a snapshot.
type Counts struct {
	Tags          []report.TagCount
	PortProtocols []model.PortProtocolCount
}

// Writer stores each report in its own timestamped directory under rootPath.
// It implements the model.Writer interface.
type Writer struct {
	rootPath string
	logger   *zap.Logger
}

// NewWriter creates a new snapshot writer.
func NewWriter(rootPath string, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{rootPath: rootPath, logger: logger}
}

// Name returns the writer name.
func (w *Writer) Name() string {
	return "snapshot"
}

// Write creates <rootPath>/<timestamp>/ holding counts.gob and summary.json.
func (w *Writer) Write(_ context.Context, r *model.Report) error {
	snapshotDir, err := w.createSnapshotDir(r.GeneratedAt)
	if err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	counts := Counts{
		Tags:          report.SortedTags(r.TagCounts),
		PortProtocols: report.SortedPortProtocols(r.PortProtocolCounts),
	}
	countsFilePath := filepath.Join(snapshotDir, "counts.gob")
	countsFile, err := os.Create(countsFilePath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file '%s': %w", countsFilePath, err)
	}
	defer countsFile.Close()

	if err := gob.NewEncoder(countsFile).Encode(counts); err != nil {
		return fmt.Errorf("failed to encode counts to gob for file '%s': %w", countsFilePath, err)
	}

	summary := SummaryData{
		LookupFile:        r.LookupFile,
		FlowLogFile:       r.FlowLogFile,
		TotalValidLines:   r.TotalValidLines,
		SkippedLines:      r.SkippedLines,
		Tags:              len(counts.Tags),
		PortProtocolPairs: len(counts.PortProtocols),
		Timestamp:         r.GeneratedAt.UTC().Format(time.RFC3339),
	}
	summaryFilePath := filepath.Join(snapshotDir, "summary.json")
	summaryFile, err := os.Create(summaryFilePath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer summaryFile.Close()

	jsonEncoder := json.NewEncoder(summaryFile)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}

	w.logger.Info("Snapshot written", zap.String("dir", snapshotDir))
	return nil
}

// createSnapshotDir creates a new directory for at. Runs sharing a timestamp
// get a numeric suffix so that no snapshot is overwritten.
func (w *Writer) createSnapshotDir(at time.Time) (string, error) {
	if err := os.MkdirAll(w.rootPath, 0755); err != nil {
		return "", err
	}

	base := filepath.Join(w.rootPath, at.UTC().Format(TimestampLayout))
	dir := base
	for i := 1; ; i++ {
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
		dir = fmt.Sprintf("%s-%d", base, i)
	}
}
