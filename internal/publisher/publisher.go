package publisher

import (
	"FlowTagger/internal/config"
	"FlowTagger/internal/factory"
	"FlowTagger/internal/model"
	"FlowTagger/internal/report"
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func init() {
	factory.RegisterSink("nats", func(_ context.Context, def config.SinkDef, timeout time.Duration, logger *zap.Logger) (model.Writer, error) {
		return NewPublisher(def.NATS, timeout, logger)
	})
}

// Publisher publishes finished reports to a NATS subject.
// It implements the model.Writer interface.
type Publisher struct {
	nc      *nats.Conn
	subject string
	logger  *zap.Logger
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.NATSConfig, timeout time.Duration, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Subject == "" {
		return nil, fmt.Errorf("nats sink requires a subject")
	}

	nc, err := nats.Connect(cfg.URL, nats.Name("flow-tagger"), nats.Timeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	logger.Info("Connected to NATS server", zap.String("url", cfg.URL), zap.String("subject", cfg.Subject))
	return &Publisher{nc: nc, subject: cfg.Subject, logger: logger}, nil
}

// Name returns the writer name.
func (p *Publisher) Name() string {
	return "nats"
}

// Write serializes the report to Protobuf and publishes it, waiting for the
// server to acknowledge the flush.
func (p *Publisher) Write(ctx context.Context, r *model.Report) error {
	data, err := Encode(r)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish report: %w", err)
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush NATS connection: %w", err)
	}
	p.logger.Info("Published report", zap.String("subject", p.subject), zap.Int("bytes", len(data)))
	return nil
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}

// Encode converts a report into a serialized google.protobuf.Struct.
// Tables keep the report's sort order.
func Encode(r *model.Report) ([]byte, error) {
	tags := make([]interface{}, 0, len(r.TagCounts))
	for _, row := range report.SortedTags(r.TagCounts) {
		tags = append(tags, map[string]interface{}{"tag": row.Tag, "count": row.Count})
	}

	pairs := make([]interface{}, 0, r.PortProtocolCounts.Len())
	for _, row := range report.SortedPortProtocols(r.PortProtocolCounts) {
		pairs = append(pairs, map[string]interface{}{"port": row.Port, "protocol": row.Protocol, "count": row.Count})
	}

	msg, err := structpb.NewStruct(map[string]interface{}{
		"generated_at":         r.GeneratedAt.UTC().Format(time.RFC3339),
		"lookup_file":          r.LookupFile,
		"flow_log_file":        r.FlowLogFile,
		"total_valid_lines":    r.TotalValidLines,
		"skipped_lines":        r.SkippedLines,
		"tag_counts":           tags,
		"port_protocol_counts": pairs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build report message: %w", err)
	}

	data, err := proto.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report message: %w", err)
	}
	return data, nil
}

// Decode parses a message produced by Encode.
func Decode(data []byte) (*structpb.Struct, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report message: %w", err)
	}
	return &msg, nil
}
