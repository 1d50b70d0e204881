package databases

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// pgVector is a pgvector-backed VectorStore bound to one table. The store
// package constructs one instance per embedded entity (nodes, chunks,
// event vectors) so each gets its own table and dimensionality.
type pgVector struct {
	pool       *pgxpool.Pool
	table      string
	dimensions int
	metric     string // cosine|l2|ip
}

// NewPostgresVector opens (creating if absent) a pgvector-backed table
// named `table` and returns a VectorStore bound to it. Updates never use
// ON CONFLICT: vector rows are replaced via delete-then-insert inside the
// same transaction, per the storage design's mandate that vector tables
// do not support upsert.
func NewPostgresVector(pool *pgxpool.Pool, table string, dimensions int, metric string) VectorStore {
	ctx := context.Background()
	_, _ = pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`)
	vecType := "vector"
	if dimensions > 0 {
		vecType = fmt.Sprintf("vector(%d)", dimensions)
	}
	_, _ = pool.Exec(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id TEXT PRIMARY KEY,
  vec %s,
  metadata JSONB NOT NULL DEFAULT '{}'::jsonb
);
`, table, vecType))
	return &pgVector{pool: pool, table: table, dimensions: dimensions, metric: strings.ToLower(strings.TrimSpace(metric))}
}

func (p *pgVector) Close() {}

func (p *pgVector) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error {
	vecLit := toVectorLiteral(vector)
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id=$1`, p.table), id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(`INSERT INTO %s(id, vec, metadata) VALUES($1, $2::vector, $3)`, p.table),
		id, vecLit, metadata); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *pgVector) Delete(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id=$1`, p.table), id)
	return err
}

func (p *pgVector) Get(ctx context.Context, id string) ([]float32, bool, error) {
	var lit pgvector.Vector
	err := p.pool.QueryRow(ctx, fmt.Sprintf(`SELECT vec FROM %s WHERE id=$1`, p.table), id).Scan(&lit)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return lit.Slice(), true, nil
}

func (p *pgVector) SimilaritySearch(ctx context.Context, vector []float32, k int, filter map[string]string) ([]VectorResult, error) {
	if k <= 0 {
		k = 10
	}
	vecLit := toVectorLiteral(vector)
	op := "<=>" // cosine distance
	scoreExpr := "1 - (vec <=> $1::vector)"
	switch p.metric {
	case "l2", "euclidean":
		op = "<->"
		scoreExpr = "-(vec <-> $1::vector)" // higher is better (less distance)
	case "ip", "dot":
		op = "<#>"
		scoreExpr = "-(vec <#> $1::vector)" // maximize inner product
	}
	args := []any{vecLit, k}
	where := ""
	if len(filter) > 0 {
		where = "WHERE metadata @> $3"
		args = []any{vecLit, k, filter}
	}
	query := fmt.Sprintf(`SELECT id, %s AS score, metadata FROM %s %s ORDER BY vec %s $1::vector LIMIT $2`, scoreExpr, p.table, where, op)
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]VectorResult, 0, k)
	for rows.Next() {
		var r VectorResult
		var md map[string]string
		if err := rows.Scan(&r.ID, &r.Score, &md); err != nil {
			return nil, err
		}
		r.Metadata = md
		out = append(out, r)
	}
	return out, rows.Err()
}

// toVectorLiteral renders a vector as the pgvector text literal via the
// pgvector-go type, rather than hand-formatting floats.
func toVectorLiteral(v []float32) string {
	if len(v) == 0 {
		return "[]"
	}
	return pgvector.NewVector(v).String()
}
