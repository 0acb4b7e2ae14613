package report

import (
	"FlowTagger/internal/config"
	"FlowTagger/internal/factory"
	"FlowTagger/internal/model"
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

func init() {
	factory.RegisterSink("clickhouse", func(ctx context.Context, def config.SinkDef, timeout time.Duration, logger *zap.Logger) (model.Writer, error) {
		return NewClickHouseWriter(ctx, def.ClickHouse, timeout, logger)
	})
}

const createTagCountsStatement = `
CREATE TABLE IF NOT EXISTS tag_counts (
    RunTime     DateTime,
    LookupFile  String,
    FlowLogFile String,
    Tag         String,
    Count       UInt64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(RunTime)
ORDER BY (RunTime, Tag);
`

const createPortProtocolCountsStatement = `
CREATE TABLE IF NOT EXISTS port_protocol_counts (
    RunTime     DateTime,
    LookupFile  String,
    FlowLogFile String,
    Port        String,
    Protocol    LowCardinality(String),
    Count       UInt64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(RunTime)
ORDER BY (RunTime, Port, Protocol);
`

// ClickHouseWriter exports a report into the tag_counts and port_protocol_counts tables.
// It implements the model.Writer interface.
type ClickHouseWriter struct {
	conn   driver.Conn
	logger *zap.Logger
}

// NewClickHouseWriter connects to ClickHouse and makes sure both tables exist.
func NewClickHouseWriter(ctx context.Context, cfg config.ClickHouseConfig, dialTimeout time.Duration, logger *zap.Logger) (*ClickHouseWriter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := Connect(ctx, cfg, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	for _, stmt := range []string{createTagCountsStatement, createPortProtocolCountsStatement} {
		if err := conn.Exec(ctx, stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}
	logger.Info("Connected to ClickHouse and ensured tables exist",
		zap.String("host", cfg.Host), zap.Int("port", cfg.Port), zap.String("database", cfg.Database))

	return &ClickHouseWriter{conn: conn, logger: logger}, nil
}

// Connect opens and pings a ClickHouse connection.
func Connect(ctx context.Context, cfg config.ClickHouseConfig, dialTimeout time.Duration) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: dialTimeout,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// Name returns the writer name.
func (w *ClickHouseWriter) Name() string {
	return "clickhouse"
}

// Write inserts one row per positive tag count and one row per port/protocol pair.
func (w *ClickHouseWriter) Write(ctx context.Context, report *model.Report) error {
	runTime := report.GeneratedAt.UTC().Truncate(time.Second)

	tagBatch, err := w.conn.PrepareBatch(ctx, "INSERT INTO tag_counts")
	if err != nil {
		return fmt.Errorf("failed to prepare tag batch: %w", err)
	}
	tags := SortedTags(report.TagCounts)
	for _, row := range tags {
		if err := tagBatch.Append(runTime, report.LookupFile, report.FlowLogFile, row.Tag, uint64(row.Count)); err != nil {
			return fmt.Errorf("failed to append tag count to batch: %w", err)
		}
	}
	if err := tagBatch.Send(); err != nil {
		return fmt.Errorf("failed to send tag batch: %w", err)
	}

	ppBatch, err := w.conn.PrepareBatch(ctx, "INSERT INTO port_protocol_counts")
	if err != nil {
		return fmt.Errorf("failed to prepare port/protocol batch: %w", err)
	}
	pairs := SortedPortProtocols(report.PortProtocolCounts)
	for _, row := range pairs {
		if err := ppBatch.Append(runTime, report.LookupFile, report.FlowLogFile, row.Port, row.Protocol, uint64(row.Count)); err != nil {
			return fmt.Errorf("failed to append port/protocol count to batch: %w", err)
		}
	}
	if err := ppBatch.Send(); err != nil {
		return fmt.Errorf("failed to send port/protocol batch: %w", err)
	}

	w.logger.Info("Wrote report to ClickHouse", zap.Int("tag_rows", len(tags)), zap.Int("port_protocol_rows", len(pairs)))
	return nil
}

// Close closes the ClickHouse connection.
func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}
