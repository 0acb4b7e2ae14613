package query

import (
	"FlowTagger/internal/config"
	"FlowTagger/internal/model"
	"FlowTagger/internal/report"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Filter narrows a history query. Zero values do not filter.
type Filter struct {
	Since       time.Time
	Until       time.Time
	FlowLogFile string
	Limit       int
}

// Querier reads totals across the reports exported by the ClickHouse sink.
type Querier interface {
	TagTotals(ctx context.Context, f Filter) ([]report.TagCount, error)
	PortProtocolTotals(ctx context.Context, f Filter) ([]model.PortProtocolCount, error)
	Close() error
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn driver.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(ctx context.Context, cfg config.ClickHouseConfig, dialTimeout time.Duration) (Querier, error) {
	conn, err := report.Connect(ctx, cfg, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

// TagTotals sums tag counts across matching runs, largest first.
func (q *clickhouseQuerier) TagTotals(ctx context.Context, f Filter) ([]report.TagCount, error) {
	query, args := buildQuery(`
		SELECT Tag, sum(Count) AS Total
		FROM tag_counts`, f, `
		GROUP BY Tag
		ORDER BY Total DESC, Tag ASC`)

	rows, err := q.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var totals []report.TagCount
	for rows.Next() {
		var tag string
		var total uint64
		if err := rows.Scan(&tag, &total); err != nil {
			return nil, fmt.Errorf("failed to scan tag total: %w", err)
		}
		totals = append(totals, report.TagCount{Tag: tag, Count: int(total)})
	}
	return totals, rows.Err()
}

// PortProtocolTotals sums port/protocol counts across matching runs, ordered by port.
func (q *clickhouseQuerier) PortProtocolTotals(ctx context.Context, f Filter) ([]model.PortProtocolCount, error) {
	query, args := buildQuery(`
		SELECT Port, Protocol, sum(Count) AS Total
		FROM port_protocol_counts`, f, `
		GROUP BY Port, Protocol
		ORDER BY toUInt64OrZero(Port) ASC, Protocol ASC`)

	rows, err := q.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var totals []model.PortProtocolCount
	for rows.Next() {
		var row model.PortProtocolCount
		var total uint64
		if err := rows.Scan(&row.Port, &row.Protocol, &total); err != nil {
			return nil, fmt.Errorf("failed to scan port/protocol total: %w", err)
		}
		row.Count = int(total)
		totals = append(totals, row)
	}
	return totals, rows.Err()
}

// Close closes the ClickHouse connection.
func (q *clickhouseQuerier) Close() error {
	return q.conn.Close()
}

// buildQuery joins head, the WHERE clause for f, and tail.
func buildQuery(head string, f Filter, tail string) (string, []interface{}) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(head)

	var whereClauses []string
	args := []interface{}{}

	if !f.Since.IsZero() {
		whereClauses = append(whereClauses, "RunTime >= ?")
		args = append(args, f.Since.UTC())
	}
	if !f.Until.IsZero() {
		whereClauses = append(whereClauses, "RunTime <= ?")
		args = append(args, f.Until.UTC())
	}
	if f.FlowLogFile != "" {
		whereClauses = append(whereClauses, "FlowLogFile = ?")
		args = append(args, f.FlowLogFile)
	}

	if len(whereClauses) > 0 {
		queryBuilder.WriteString("\n\t\tWHERE " + strings.Join(whereClauses, " AND "))
	}
	queryBuilder.WriteString(tail)
	if f.Limit > 0 {
		queryBuilder.WriteString(fmt.Sprintf("\n\t\tLIMIT %d", f.Limit))
	}

	return queryBuilder.String(), args
}
