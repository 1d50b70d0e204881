package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// migration is one versioned, idempotent startup step. Steps run in
// ascending Version order, each inside its own transaction, and the
// applied version is recorded in schema_meta before commit.
type migration struct {
	Version     int
	Description string
	Apply       func(ctx context.Context, tx pgx.Tx) error
}

var migrations = []migration{
	{1, "schema metadata table", func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`)
		return err
	}},
	{2, "sources and feed items", func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
CREATE TABLE IF NOT EXISTS sources (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  feed_url TEXT NOT NULL,
  kind TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS feed_items (
  id BIGSERIAL PRIMARY KEY,
  source_id BIGINT NOT NULL REFERENCES sources(id),
  guid TEXT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  link TEXT NOT NULL DEFAULT '',
  pub_date TIMESTAMPTZ,
  description TEXT NOT NULL DEFAULT '',
  full_content TEXT NOT NULL DEFAULT '',
  author TEXT NOT NULL DEFAULT '',
  fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE(source_id, guid)
);
CREATE TABLE IF NOT EXISTS article_status (
  feed_item_id BIGINT PRIMARY KEY REFERENCES feed_items(id),
  state TEXT NOT NULL DEFAULT 'pending',
  chunk_count INT NOT NULL DEFAULT 0,
  error_message TEXT,
  started_at TIMESTAMPTZ,
  finished_at TIMESTAMPTZ
);`)
		return err
	}},
	{3, "article chunks", func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
CREATE TABLE IF NOT EXISTS article_chunks (
  id BIGSERIAL PRIMARY KEY,
  feed_item_id BIGINT NOT NULL REFERENCES feed_items(id),
  chunk_index INT NOT NULL,
  content TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  embedding_model TEXT,
  embedded_at TIMESTAMPTZ,
  UNIQUE(feed_item_id, chunk_index)
);`)
		return err
	}},
	{4, "hypergraph nodes, hyperedges, incidences, provenance", func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
CREATE TABLE IF NOT EXISTS hypergraph_nodes (
  id BIGSERIAL PRIMARY KEY,
  node_id TEXT NOT NULL UNIQUE,
  label TEXT NOT NULL,
  node_type TEXT,
  first_seen_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  metadata JSONB,
  embedding_model TEXT,
  embedded_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS hyperedges (
  id BIGSERIAL PRIMARY KEY,
  edge_id TEXT NOT NULL UNIQUE,
  label TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  source_chunk_id BIGINT REFERENCES article_chunks(id),
  metadata JSONB
);
CREATE TABLE IF NOT EXISTS incidences (
  id BIGSERIAL PRIMARY KEY,
  edge_id BIGINT NOT NULL REFERENCES hyperedges(id),
  node_id BIGINT NOT NULL REFERENCES hypergraph_nodes(id),
  role TEXT NOT NULL,
  position INT NOT NULL,
  UNIQUE(edge_id, node_id, role)
);
CREATE INDEX IF NOT EXISTS incidences_by_node ON incidences(node_id);
CREATE INDEX IF NOT EXISTS incidences_by_edge ON incidences(edge_id);
CREATE TABLE IF NOT EXISTS article_edge_provenance (
  id BIGSERIAL PRIMARY KEY,
  edge_id BIGINT NOT NULL REFERENCES hyperedges(id),
  feed_item_id BIGINT NOT NULL REFERENCES feed_items(id),
  chunk_index INT NOT NULL,
  chunk_text TEXT,
  confidence DOUBLE PRECISION,
  UNIQUE(edge_id, feed_item_id, chunk_index)
);`)
		return err
	}},
	{5, "node merge history", func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
CREATE TABLE IF NOT EXISTS node_merge_history (
  id BIGSERIAL PRIMARY KEY,
  merged_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  kept_node_id TEXT NOT NULL,
  removed_node_id TEXT NOT NULL,
  removed_label TEXT NOT NULL,
  similarity DOUBLE PRECISION NOT NULL
);`)
		return err
	}},
	{6, "clustering artifacts", func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
CREATE TABLE IF NOT EXISTS clusters (
  cluster_id INT NOT NULL,
  build_id TEXT NOT NULL,
  label TEXT NOT NULL DEFAULT '',
  size INT NOT NULL DEFAULT 0,
  centroid DOUBLE PRECISION[],
  top_entities_json JSONB,
  top_families_json JSONB,
  summary TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (build_id, cluster_id)
);
CREATE TABLE IF NOT EXISTS event_cluster (
  build_id TEXT NOT NULL,
  edge_id TEXT NOT NULL,
  cluster_id INT NOT NULL,
  membership_score DOUBLE PRECISION NOT NULL DEFAULT 0,
  PRIMARY KEY (build_id, edge_id)
);
CREATE TABLE IF NOT EXISTS cluster_members (
  build_id TEXT NOT NULL,
  cluster_id INT NOT NULL,
  edge_id TEXT NOT NULL,
  PRIMARY KEY (build_id, cluster_id, edge_id)
);
CREATE TABLE IF NOT EXISTS cluster_exemplars (
  build_id TEXT NOT NULL,
  cluster_id INT NOT NULL,
  edge_id TEXT NOT NULL,
  rank INT NOT NULL,
  PRIMARY KEY (build_id, cluster_id, edge_id)
);`)
		return err
	}},
	{7, "query history", func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
CREATE TABLE IF NOT EXISTS query_history (
  id BIGSERIAL PRIMARY KEY,
  query TEXT NOT NULL,
  answer TEXT NOT NULL DEFAULT '',
  related_nodes_json JSONB,
  reasoning_paths_json JSONB,
  graph_paths_json JSONB,
  source_articles_json JSONB,
  synthesized_analysis TEXT,
  hypotheses TEXT,
  analyzed_at TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`)
		return err
	}},
}

// applyMigrations reads schema_version from schema_meta (defaulting to 0
// when absent) and applies every migration with a higher version, each in
// its own transaction, recording the new version before commit.
func applyMigrations(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger) error {
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("ensure schema_meta: %w", err)
	}
	current := 0
	row := pool.QueryRow(ctx, `SELECT value FROM schema_meta WHERE key = 'schema_version'`)
	var v string
	if err := row.Scan(&v); err == nil {
		fmt.Sscanf(v, "%d", &current)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		if err := m.Apply(ctx, tx); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO schema_meta(key, value) VALUES('schema_version', $1)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, fmt.Sprintf("%d", m.Version)); err != nil {
			tx.Rollback(ctx)
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
		log.Info().Int("version", m.Version).Str("description", m.Description).Msg("applied migration")
		current = m.Version
	}
	return nil
}
