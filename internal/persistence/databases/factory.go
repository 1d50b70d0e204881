package databases

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// VectorConfig selects and configures one VectorStore instance. The store
// package constructs one of these per embedded entity (nodes, chunks,
// event vectors), so each can independently choose memory/postgres/qdrant
// and its own dimensionality.
type VectorConfig struct {
	Backend    string // "memory" (default for tests) | "postgres" | "qdrant"
	Table      string // postgres table name
	Collection string // qdrant collection name
	DSN        string
	Dimensions int
	Metric     string // cosine|l2|ip
}

// NewVectorStore resolves cfg.Backend into a concrete VectorStore. When a
// *pgxpool.Pool is already open (the common case: one pool shared across
// all postgres-backed tables) pass it as pool; it is ignored for other
// backends.
func NewVectorStore(ctx context.Context, cfg VectorConfig, pool *pgxpool.Pool) (VectorStore, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryVector(), nil
	case "postgres", "pgvector", "pg":
		if pool == nil {
			return nil, fmt.Errorf("vector backend postgres requires an open pool")
		}
		return NewPostgresVector(pool, cfg.Table, cfg.Dimensions, cfg.Metric), nil
	case "qdrant":
		return NewQdrantVector(cfg.DSN, cfg.Collection, cfg.Dimensions, cfg.Metric)
	default:
		return nil, fmt.Errorf("unsupported vector backend: %s", cfg.Backend)
	}
}
