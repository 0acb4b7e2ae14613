package tagger

import (
	"FlowTagger/internal/engine/protocol"
	"FlowTagger/internal/model"
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap"
)

// maxLineSize bounds a single flow log line. Longer lines abort the run.
const maxLineSize = 1024 * 1024

// Session classifies the records of a flow log against a tag index and owns
// the counters of the pass. A Session is not safe for concurrent use; each call
// to Process starts from empty counters.
type Session struct {
	index  *model.TagIndex
	logger *zap.Logger

	tagCounts model.TagCounts
	ppCounts  *model.PortProtocolCounts
	valid     int
	skipped   int
}

// NewSession creates a session for the given index.
func NewSession(index *model.TagIndex, logger *zap.Logger) *Session {
	if index == nil {
		index = model.NewTagIndex(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{index: index, logger: logger}
}

// Process reads the flow log at path and returns the finalized counts.
func (s *Session) Process(path string) (*model.Result, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("flow log file %s: %w", path, model.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", model.ErrProcessing, err)
	}
	defer file.Close()

	return s.ProcessReader(file)
}

// ProcessReader reads newline-delimited flow log records from r.
// Malformed records are logged and skipped; a read failure aborts the pass.
func (s *Session) ProcessReader(r io.Reader) (*model.Result, error) {
	s.reset()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		s.processLine(lineNum, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: after line %d: %v", model.ErrProcessing, lineNum, err)
	}

	return s.finalize(), nil
}

func (s *Session) reset() {
	s.tagCounts = make(model.TagCounts)
	s.ppCounts = model.NewPortProtocolCounts()
	s.valid = 0
	s.skipped = 0
}

func (s *Session) processLine(lineNum int, line string) {
	if strings.TrimSpace(line) == "" {
		return
	}

	rec, err := protocol.ParseLine(line)
	if err != nil {
		s.skipped++
		s.logger.Warn("Skipping invalid line",
			zap.Int("line", lineNum),
			zap.String("reason", skipReason(err)),
			zap.Int("fields", len(strings.Fields(line))),
			zap.Error(err))
		return
	}

	s.valid++
	s.ppCounts.Inc(model.PortProtocol{Port: rec.DstPort, Protocol: rec.Protocol})
	if tag, ok := s.index.Tag(rec.DstPort, rec.Protocol); ok {
		s.tagCounts[tag]++
	}
}

// skipReason names the validation rule a rejected line failed.
func skipReason(err error) string {
	switch {
	case errors.Is(err, protocol.ErrInsufficientFields):
		return "insufficient fields"
	case errors.Is(err, protocol.ErrInvalidPort):
		return "invalid port"
	default:
		return "unparseable"
	}
}

// finalize reconciles the Untagged bucket once, after the full pass.
func (s *Session) finalize() *model.Result {
	s.tagCounts[model.UntaggedTag] = s.valid - s.tagCounts.TaggedTotal()

	s.logger.Debug("Flow log pass complete",
		zap.Int("valid_lines", s.valid),
		zap.Int("skipped_lines", s.skipped),
		zap.Int("tags", len(s.tagCounts)),
		zap.Int("port_protocol_pairs", s.ppCounts.Len()))

	return &model.Result{
		TagCounts:          s.tagCounts,
		PortProtocolCounts: s.ppCounts,
		TotalValidLines:    s.valid,
		SkippedLines:       s.skipped,
	}
}
