package manager

import (
	"FlowTagger/internal/config"
	"FlowTagger/internal/engine/tagger"
	"FlowTagger/internal/factory"
	"FlowTagger/internal/lookup"
	"FlowTagger/internal/model"
	_ "FlowTagger/internal/publisher" // Registers the nats sink
	"FlowTagger/internal/report"
	_ "FlowTagger/internal/snapshot" // Registers the snapshot sink
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// sinkWriteTimeout bounds a single sink export.
const sinkWriteTimeout = 30 * time.Second

// Manager runs the load, process and write stages in order, then hands the
// finished report to the configured sinks.
type Manager struct {
	lookupFile  string
	flowLogFile string
	text        *report.TextWriter
	sinkDefs    []config.SinkDef
	logger      *zap.Logger
	now         func() time.Time
}

// NewManager creates a new Manager.
func NewManager(cfg *config.Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		lookupFile:  cfg.Input.LookupFile,
		flowLogFile: cfg.Input.FlowLogFile,
		text:        report.NewTextWriter(cfg.Output.ReportFile, logger),
		sinkDefs:    cfg.Sinks,
		logger:      logger,
		now:         time.Now,
	}
}

// Run executes the pipeline. Each stage finishes before the next begins; a
// failure in load, process or write aborts the run before any later output.
// When only sinks fail the report is returned together with an ErrSink error.
func (m *Manager) Run(ctx context.Context) (*model.Report, error) {
	start := m.now()

	for _, def := range m.sinkDefs {
		if def.Enabled && !factory.Registered(def.Type) {
			return nil, fmt.Errorf("unknown sink type: '%s'", def.Type)
		}
	}

	index, err := lookup.Load(m.lookupFile)
	if err != nil {
		return nil, fmt.Errorf("error loading lookup table: %w", err)
	}
	m.logger.Info("Lookup table loaded", zap.String("path", m.lookupFile), zap.Int("entries", index.Len()))

	res, err := tagger.NewSession(index, m.logger).Process(m.flowLogFile)
	if err != nil {
		return nil, fmt.Errorf("error processing flow logs: %w", err)
	}
	m.logger.Info("Flow log processed",
		zap.String("path", m.flowLogFile),
		zap.Int("valid_lines", res.TotalValidLines),
		zap.Int("skipped_lines", res.SkippedLines))

	rep := &model.Report{
		Result:      res,
		LookupFile:  m.lookupFile,
		FlowLogFile: m.flowLogFile,
		GeneratedAt: start,
	}
	if err := m.text.Write(ctx, rep); err != nil {
		return nil, fmt.Errorf("error writing output: %w", err)
	}

	sinkErr := m.export(ctx, rep)

	m.logger.Info("Run complete",
		zap.Int("valid_lines", res.TotalValidLines),
		zap.Int("skipped_lines", res.SkippedLines),
		zap.Int("tags", len(res.TagCounts)),
		zap.Int("port_protocol_pairs", res.PortProtocolCounts.Len()),
		zap.Duration("duration", m.now().Sub(start)))

	return rep, sinkErr
}

// ReportFile returns the path of the text report.
func (m *Manager) ReportFile() string {
	return m.text.Path()
}

// export writes the report to every enabled sink. All sinks are attempted;
// their failures are joined.
func (m *Manager) export(ctx context.Context, rep *model.Report) error {
	var errs []error
	sinks, err := factory.Create(ctx, m.sinkDefs, m.logger)
	if err != nil {
		errs = append(errs, err)
	}

	for _, sink := range sinks {
		if err := m.writeSink(ctx, sink, rep); err != nil {
			m.logger.Error("Sink export failed", zap.String("sink", sink.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("sink %s: %w", sink.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", model.ErrSink, errors.Join(errs...))
	}
	return nil
}

func (m *Manager) writeSink(ctx context.Context, sink model.Writer, rep *model.Report) error {
	if closer, ok := sink.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				m.logger.Warn("Failed to close sink", zap.String("sink", sink.Name()), zap.Error(err))
			}
		}()
	}

	ctx, cancel := context.WithTimeout(ctx, sinkWriteTimeout)
	defer cancel()
	return sink.Write(ctx, rep)
}
