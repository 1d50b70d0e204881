// Package analytics mirrors completed GraphRAG queries to ClickHouse for
// latency and retrieval-size analysis, independent of the relational
// query_history table of record. It is a write-behind, best-effort sink:
// a ClickHouse outage never fails or delays a query_stream response.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"newsgraph/internal/config"
)

// QueryRecord is one completed query_stream invocation, sized down to
// the counts and timings worth aggregating rather than full payloads.
type QueryRecord struct {
	Query              string
	AnswerChars        int
	RelatedNodeCount   int
	SourceArticleCount int
	LatencyMS          int64
	CompletedAt        time.Time
}

// QuerySink records a completed query for later analysis. Record must
// not block the caller on a slow or unavailable backend beyond its own
// configured timeout.
type QuerySink interface {
	Record(ctx context.Context, rec QueryRecord) error
}

// ClickHouseSink appends QueryRecords to a ClickHouse table.
type ClickHouseSink struct {
	conn    clickhouse.Conn
	table   string
	timeout time.Duration
}

// NewClickHouseSink opens a ClickHouse connection per cfg. It returns
// (nil, nil) when disabled, matching the optional-collaborator pattern
// used by the other config-gated sinks.
func NewClickHouseSink(ctx context.Context, cfg config.ClickHouseConfig) (*ClickHouseSink, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("clickhouse analytics: dsn is required when enabled")
	}

	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse connection: %w", err)
	}

	timeout := 5 * time.Second
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}

	sink := &ClickHouseSink{conn: conn, table: "query_history_analytics", timeout: timeout}
	if err := sink.ensureTable(ctx); err != nil {
		return nil, err
	}
	return sink, nil
}

func (s *ClickHouseSink) ensureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		query String,
		answer_chars UInt32,
		related_node_count UInt32,
		source_article_count UInt32,
		latency_ms UInt32,
		completed_at DateTime
	) ENGINE = MergeTree() ORDER BY completed_at`, s.table)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.conn.Exec(ctx, ddl)
}

// Record appends one query's metrics as a single-row insert.
func (s *ClickHouseSink) Record(ctx context.Context, rec QueryRecord) error {
	if s == nil || s.conn == nil {
		return errors.New("clickhouse analytics: sink is not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (query, answer_chars, related_node_count, source_article_count, latency_ms, completed_at) VALUES (?, ?, ?, ?, ?, ?)`, s.table)
	return s.conn.Exec(ctx, query, rec.Query, rec.AnswerChars, rec.RelatedNodeCount, rec.SourceArticleCount, rec.LatencyMS, rec.CompletedAt)
}

// Close releases the underlying ClickHouse connection.
func (s *ClickHouseSink) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
