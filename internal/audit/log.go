package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/latticeforge/kernel/construct"
	"github.com/latticeforge/kernel/execute"
)

// InsertValidationToken appends a graph's validation token to the log.
// Call this once per sealed ValidatedGraph, at construction time.
func (db *DB) InsertValidationToken(ctx context.Context, token construct.ValidationToken) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO validation_tokens
		     (graph_id, validation_hash, issued_at, expires_at, signature)
		 VALUES (?, ?, ?, ?, ?)`,
		token.GraphID.String(),
		token.ValidationHash.Hex(),
		token.IssuedAt.Unix(),
		token.ExpiresAt.Unix(),
		token.Signature,
	)
	if err != nil {
		return fmt.Errorf("audit: insert validation token: %w", err)
	}
	return nil
}

// InsertExecutionSummary appends a graph's execution summary to the log.
// Call this once per Executor.Execute call, at execution time.
func (db *DB) InsertExecutionSummary(ctx context.Context, graphID construct.GraphID, summary execute.ExecutionSummary) error {
	failed := make([]string, len(summary.NodesFailed))
	for i, id := range summary.NodesFailed {
		failed[i] = id.String()
	}
	failedJSON, err := json.Marshal(failed)
	if err != nil {
		return fmt.Errorf("audit: marshal nodes_failed: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO execution_summaries
		     (graph_id, nodes_executed, execution_time_ms,
		      cpu_millis, memory_bytes, token_limit, iteration_cap,
		      nodes_failed, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		graphID.String(),
		summary.NodesExecuted,
		summary.ExecutionTimeMs,
		summary.ResourceConsumed.CPUMillis,
		summary.ResourceConsumed.MemoryBytes,
		summary.ResourceConsumed.TokenLimit,
		summary.ResourceConsumed.IterationCap,
		failedJSON,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("audit: insert execution summary: %w", err)
	}
	return nil
}

// ExecutionSummaryRecord is one row read back from the execution_summaries
// table, along with the fields the append log adds (RecordedAt).
type ExecutionSummaryRecord struct {
	GraphID         string
	NodesExecuted   int
	ExecutionTimeMs int64
	NodesFailed     []string
	RecordedAt      time.Time
}

// RecentExecutionSummaries returns the most recently recorded execution
// summaries for graphID, newest first.
func (db *DB) RecentExecutionSummaries(ctx context.Context, graphID construct.GraphID, limit int) ([]ExecutionSummaryRecord, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT graph_id, nodes_executed, execution_time_ms, nodes_failed, recorded_at
		 FROM execution_summaries
		 WHERE graph_id = ?
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`,
		graphID.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("audit: query execution summaries: %w", err)
	}
	defer rows.Close()

	var out []ExecutionSummaryRecord
	for rows.Next() {
		var (
			rec        ExecutionSummaryRecord
			failedJSON []byte
			recordedAt int64
		)
		if err := rows.Scan(&rec.GraphID, &rec.NodesExecuted, &rec.ExecutionTimeMs, &failedJSON, &recordedAt); err != nil {
			return nil, fmt.Errorf("audit: scan execution summary: %w", err)
		}
		if err := json.Unmarshal(failedJSON, &rec.NodesFailed); err != nil {
			return nil, fmt.Errorf("audit: unmarshal nodes_failed: %w", err)
		}
		rec.RecordedAt = time.Unix(recordedAt, 0).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate execution summaries: %w", err)
	}
	return out, nil
}
