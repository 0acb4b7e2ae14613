package report

import (
	"FlowTagger/internal/model"
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Section headers of the text report.
const (
	TagSectionTitle          = "Tag Counts:"
	TagSectionHeader         = "Tag,Count"
	PortProtocolSectionTitle = "Port/Protocol Combination Counts:"
	PortProtocolHeader       = "Port,Protocol,Count"
)

// TextWriter renders a report as CSV-like text into a single file.
// It implements the model.Writer interface.
type TextWriter struct {
	path   string
	logger *zap.Logger
}

// NewTextWriter creates a writer for the report file at path.
func NewTextWriter(path string, logger *zap.Logger) *TextWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextWriter{path: path, logger: logger}
}

// Name returns the writer name.
func (w *TextWriter) Name() string {
	return "text"
}

// Path returns the destination of the report.
func (w *TextWriter) Path() string {
	return w.path
}

// Write renders the report into a temporary file next to the destination and
// renames it into place, so a failed write leaves no partial report behind.
func (w *TextWriter) Write(_ context.Context, report *model.Report) error {
	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create output file '%s': %v: %w", w.path, err, model.ErrIO)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := Render(tmp, report.Result); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write output file '%s': %v: %w", w.path, err, model.ErrIO)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close output file '%s': %v: %w", w.path, err, model.ErrIO)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to set mode on output file '%s': %v: %w", w.path, err, model.ErrIO)
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		return fmt.Errorf("failed to move output file into place '%s': %v: %w", w.path, err, model.ErrIO)
	}

	w.logger.Info("Report written",
		zap.String("path", w.path),
		zap.Int("tags", len(report.TagCounts)),
		zap.Int("port_protocol_pairs", report.PortProtocolCounts.Len()))
	return nil
}

// Render writes both report sections to out.
func Render(out io.Writer, res *model.Result) error {
	bw := bufio.NewWriter(out)

	fmt.Fprintln(bw, TagSectionTitle)
	fmt.Fprintln(bw, TagSectionHeader)
	for _, row := range SortedTags(res.TagCounts) {
		fmt.Fprintf(bw, "%s,%d\n", row.Tag, row.Count)
	}

	fmt.Fprintln(bw)
	fmt.Fprintln(bw, PortProtocolSectionTitle)
	fmt.Fprintln(bw, PortProtocolHeader)
	for _, row := range SortedPortProtocols(res.PortProtocolCounts) {
		fmt.Fprintf(bw, "%s,%s,%d\n", row.Port, row.Protocol, row.Count)
	}

	return bw.Flush()
}
