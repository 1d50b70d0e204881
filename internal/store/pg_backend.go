package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, letting
// pgBackend run the same SQL whether or not it is inside withTx.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgBackend struct {
	q    pgQuerier
	pool *pgxpool.Pool // only set on the top-level (non-transactional) instance
}

func (b *pgBackend) withTx(ctx context.Context, fn func(ctx context.Context, tx raw) error) error {
	if b.pool == nil {
		return fmt.Errorf("nested transactions are not supported")
	}
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(ctx, &pgBackend{q: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func unmarshalJSONMap(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (b *pgBackend) upsertSource(ctx context.Context, s Source) (int64, error) {
	var id int64
	err := b.q.QueryRow(ctx, `
INSERT INTO sources(name, feed_url, kind) VALUES ($1,$2,$3)
ON CONFLICT DO NOTHING RETURNING id`, s.Name, s.FeedURL, s.Kind).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != pgx.ErrNoRows {
		return 0, err
	}
	err = b.q.QueryRow(ctx, `UPDATE sources SET name=$1, kind=$2 WHERE feed_url=$3 RETURNING id`, s.Name, s.Kind, s.FeedURL).Scan(&id)
	return id, err
}

func (b *pgBackend) upsertFeedItem(ctx context.Context, fi FeedItem) (int64, error) {
	var id int64
	err := b.q.QueryRow(ctx, `
INSERT INTO feed_items(source_id, guid, title, link, pub_date, description, full_content, author, fetched_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (source_id, guid) DO UPDATE SET
  title = EXCLUDED.title, link = EXCLUDED.link, pub_date = EXCLUDED.pub_date,
  description = EXCLUDED.description,
  full_content = CASE WHEN EXCLUDED.full_content = '' THEN feed_items.full_content ELSE EXCLUDED.full_content END,
  author = EXCLUDED.author, fetched_at = EXCLUDED.fetched_at
RETURNING id`, fi.SourceID, fi.GUID, fi.Title, fi.Link, fi.PubDate, fi.Description, fi.FullContent, fi.Author, fi.FetchedAt).Scan(&id)
	return id, err
}

func (b *pgBackend) getFeedItem(ctx context.Context, id int64) (FeedItem, bool, error) {
	var fi FeedItem
	err := b.q.QueryRow(ctx, `
SELECT id, source_id, guid, title, link, pub_date, description, full_content, author, fetched_at
FROM feed_items WHERE id=$1`, id).Scan(
		&fi.ID, &fi.SourceID, &fi.GUID, &fi.Title, &fi.Link, &fi.PubDate, &fi.Description, &fi.FullContent, &fi.Author, &fi.FetchedAt)
	if err == pgx.ErrNoRows {
		return FeedItem{}, false, nil
	}
	return fi, err == nil, err
}

func (b *pgBackend) setArticleStatus(ctx context.Context, st ArticleStatus) error {
	_, err := b.q.Exec(ctx, `
INSERT INTO article_status(feed_item_id, state, chunk_count, error_message, started_at, finished_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (feed_item_id) DO UPDATE SET
  state=EXCLUDED.state, chunk_count=EXCLUDED.chunk_count, error_message=EXCLUDED.error_message,
  started_at=EXCLUDED.started_at, finished_at=EXCLUDED.finished_at`,
		st.FeedItemID, string(st.State), st.ChunkCount, st.ErrorMessage, st.StartedAt, st.FinishedAt)
	return err
}

func (b *pgBackend) getArticleStatus(ctx context.Context, feedItemID int64) (ArticleStatus, bool, error) {
	var st ArticleStatus
	var state string
	err := b.q.QueryRow(ctx, `
SELECT feed_item_id, state, chunk_count, error_message, started_at, finished_at
FROM article_status WHERE feed_item_id=$1`, feedItemID).Scan(
		&st.FeedItemID, &state, &st.ChunkCount, &st.ErrorMessage, &st.StartedAt, &st.FinishedAt)
	if err == pgx.ErrNoRows {
		return ArticleStatus{}, false, nil
	}
	st.State = ArticleState(state)
	return st, err == nil, err
}

func (b *pgBackend) listUnprocessedFeedItems(ctx context.Context) ([]int64, error) {
	rows, err := b.q.Query(ctx, `
SELECT fi.id FROM feed_items fi
LEFT JOIN article_status s ON s.feed_item_id = fi.id
WHERE s.feed_item_id IS NULL OR s.state NOT IN ('completed', 'processing')
ORDER BY fi.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (b *pgBackend) upsertChunk(ctx context.Context, c ArticleChunk) (int64, error) {
	var id int64
	err := b.q.QueryRow(ctx, `
INSERT INTO article_chunks(feed_item_id, chunk_index, content) VALUES ($1,$2,$3)
ON CONFLICT (feed_item_id, chunk_index) DO UPDATE SET content=EXCLUDED.content
RETURNING id`, c.FeedItemID, c.ChunkIndex, c.Content).Scan(&id)
	return id, err
}

func (b *pgBackend) listChunks(ctx context.Context, feedItemID int64) ([]ArticleChunk, error) {
	rows, err := b.q.Query(ctx, `
SELECT id, feed_item_id, chunk_index, content, created_at, embedding_model, embedded_at FROM article_chunks
WHERE feed_item_id=$1 ORDER BY chunk_index`, feedItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ArticleChunk
	for rows.Next() {
		var c ArticleChunk
		if err := rows.Scan(&c.ID, &c.FeedItemID, &c.ChunkIndex, &c.Content, &c.CreatedAt, &c.EmbeddingModel, &c.EmbeddedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (b *pgBackend) getChunk(ctx context.Context, id int64) (ArticleChunk, bool, error) {
	var c ArticleChunk
	err := b.q.QueryRow(ctx, `
SELECT id, feed_item_id, chunk_index, content, created_at, embedding_model, embedded_at FROM article_chunks WHERE id=$1`, id).Scan(
		&c.ID, &c.FeedItemID, &c.ChunkIndex, &c.Content, &c.CreatedAt, &c.EmbeddingModel, &c.EmbeddedAt)
	if err == pgx.ErrNoRows {
		return ArticleChunk{}, false, nil
	}
	return c, err == nil, err
}

func (b *pgBackend) markChunkEmbedded(ctx context.Context, id int64, model string) error {
	_, err := b.q.Exec(ctx, `UPDATE article_chunks SET embedding_model=$1, embedded_at=now() WHERE id=$2`, model, id)
	return err
}

func (b *pgBackend) upsertNode(ctx context.Context, nodeID, label, nodeType string) (int64, error) {
	var id int64
	err := b.q.QueryRow(ctx, `
INSERT INTO hypergraph_nodes(node_id, label, node_type) VALUES ($1,$2,$3)
ON CONFLICT (node_id) DO UPDATE SET
  label = EXCLUDED.label,
  node_type = CASE WHEN EXCLUDED.node_type = '' THEN hypergraph_nodes.node_type ELSE EXCLUDED.node_type END
RETURNING id`, nodeID, label, nodeType).Scan(&id)
	return id, err
}

func scanNode(row pgx.Row) (Node, error) {
	var n Node
	var metadata []byte
	err := row.Scan(&n.ID, &n.NodeID, &n.Label, &n.NodeType, &n.FirstSeenAt, &metadata, &n.EmbeddingModel, &n.EmbeddedAt)
	if err != nil {
		return Node{}, err
	}
	n.Metadata, err = unmarshalJSONMap(metadata)
	return n, err
}

func (b *pgBackend) getNodeByNodeID(ctx context.Context, nodeID string) (Node, bool, error) {
	row := b.q.QueryRow(ctx, `
SELECT id, node_id, label, node_type, first_seen_at, metadata, embedding_model, embedded_at
FROM hypergraph_nodes WHERE node_id=$1`, nodeID)
	n, err := scanNode(row)
	if err == pgx.ErrNoRows {
		return Node{}, false, nil
	}
	return n, err == nil, err
}

func (b *pgBackend) getNode(ctx context.Context, id int64) (Node, bool, error) {
	row := b.q.QueryRow(ctx, `
SELECT id, node_id, label, node_type, first_seen_at, metadata, embedding_model, embedded_at
FROM hypergraph_nodes WHERE id=$1`, id)
	n, err := scanNode(row)
	if err == pgx.ErrNoRows {
		return Node{}, false, nil
	}
	return n, err == nil, err
}

func (b *pgBackend) markNodeEmbedded(ctx context.Context, id int64, model string) error {
	_, err := b.q.Exec(ctx, `UPDATE hypergraph_nodes SET embedding_model=$1, embedded_at=now() WHERE id=$2`, model, id)
	return err
}

func (b *pgBackend) deleteNode(ctx context.Context, id int64) error {
	_, err := b.q.Exec(ctx, `DELETE FROM hypergraph_nodes WHERE id=$1`, id)
	return err
}

func (b *pgBackend) allNodes(ctx context.Context) ([]Node, error) {
	rows, err := b.q.Query(ctx, `
SELECT id, node_id, label, node_type, first_seen_at, metadata, embedding_model, embedded_at
FROM hypergraph_nodes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Node
	for rows.Next() {
		var n Node
		var metadata []byte
		if err := rows.Scan(&n.ID, &n.NodeID, &n.Label, &n.NodeType, &n.FirstSeenAt, &metadata, &n.EmbeddingModel, &n.EmbeddedAt); err != nil {
			return nil, err
		}
		if n.Metadata, err = unmarshalJSONMap(metadata); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (b *pgBackend) upsertEdge(ctx context.Context, edgeID, label string, sourceChunkID *int64) (int64, error) {
	var id int64
	err := b.q.QueryRow(ctx, `
INSERT INTO hyperedges(edge_id, label, source_chunk_id) VALUES ($1,$2,$3)
ON CONFLICT (edge_id) DO UPDATE SET
  label = EXCLUDED.label,
  source_chunk_id = COALESCE(EXCLUDED.source_chunk_id, hyperedges.source_chunk_id)
RETURNING id`, edgeID, label, sourceChunkID).Scan(&id)
	return id, err
}

func scanEdge(row pgx.Row) (Edge, error) {
	var e Edge
	var metadata []byte
	err := row.Scan(&e.ID, &e.EdgeID, &e.Label, &e.CreatedAt, &e.SourceChunkID, &metadata)
	if err != nil {
		return Edge{}, err
	}
	e.Metadata, err = unmarshalJSONMap(metadata)
	return e, err
}

func (b *pgBackend) getEdgeByEdgeID(ctx context.Context, edgeID string) (Edge, bool, error) {
	row := b.q.QueryRow(ctx, `SELECT id, edge_id, label, created_at, source_chunk_id, metadata FROM hyperedges WHERE edge_id=$1`, edgeID)
	e, err := scanEdge(row)
	if err == pgx.ErrNoRows {
		return Edge{}, false, nil
	}
	return e, err == nil, err
}

func (b *pgBackend) getEdge(ctx context.Context, id int64) (Edge, bool, error) {
	row := b.q.QueryRow(ctx, `SELECT id, edge_id, label, created_at, source_chunk_id, metadata FROM hyperedges WHERE id=$1`, id)
	e, err := scanEdge(row)
	if err == pgx.ErrNoRows {
		return Edge{}, false, nil
	}
	return e, err == nil, err
}

func (b *pgBackend) deleteEdge(ctx context.Context, id int64) error {
	if _, err := b.q.Exec(ctx, `DELETE FROM article_edge_provenance WHERE edge_id=$1`, id); err != nil {
		return err
	}
	if _, err := b.q.Exec(ctx, `DELETE FROM incidences WHERE edge_id=$1`, id); err != nil {
		return err
	}
	_, err := b.q.Exec(ctx, `DELETE FROM hyperedges WHERE id=$1`, id)
	return err
}

func (b *pgBackend) allEdges(ctx context.Context) ([]Edge, error) {
	rows, err := b.q.Query(ctx, `SELECT id, edge_id, label, created_at, source_chunk_id, metadata FROM hyperedges ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Edge
	for rows.Next() {
		var e Edge
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.EdgeID, &e.Label, &e.CreatedAt, &e.SourceChunkID, &metadata); err != nil {
			return nil, err
		}
		if e.Metadata, err = unmarshalJSONMap(metadata); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (b *pgBackend) edgeCount(ctx context.Context) (int, error) {
	var n int
	err := b.q.QueryRow(ctx, `SELECT count(*) FROM hyperedges`).Scan(&n)
	return n, err
}

func (b *pgBackend) upsertIncidence(ctx context.Context, edgeID, nodeID int64, role Role, position int) (int64, error) {
	var id int64
	err := b.q.QueryRow(ctx, `
INSERT INTO incidences(edge_id, node_id, role, position) VALUES ($1,$2,$3,$4)
ON CONFLICT (edge_id, node_id, role) DO UPDATE SET position=EXCLUDED.position
RETURNING id`, edgeID, nodeID, string(role), position).Scan(&id)
	return id, err
}

// repointIncidences moves every incidence off fromNodeID onto toNodeID.
// Duplicates created by the move (same edge_id/role already present on
// toNodeID) are resolved by dedupeIncidences, called separately per edge
// by the merge workflow; here we simply skip rows that would violate the
// unique constraint, keeping the pre-existing incidence on toNodeID.
func (b *pgBackend) repointIncidences(ctx context.Context, fromNodeID, toNodeID int64) error {
	rows, err := b.q.Query(ctx, `SELECT id, edge_id, role, position FROM incidences WHERE node_id=$1`, fromNodeID)
	if err != nil {
		return err
	}
	type row struct {
		id, edgeID int64
		role       string
		position   int
	}
	var toMove []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.edgeID, &r.role, &r.position); err != nil {
			rows.Close()
			return err
		}
		toMove = append(toMove, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, r := range toMove {
		var exists bool
		if err := b.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM incidences WHERE edge_id=$1 AND node_id=$2 AND role=$3)`,
			r.edgeID, toNodeID, r.role).Scan(&exists); err != nil {
			return err
		}
		if exists {
			if _, err := b.q.Exec(ctx, `DELETE FROM incidences WHERE id=$1`, r.id); err != nil {
				return err
			}
			continue
		}
		if _, err := b.q.Exec(ctx, `UPDATE incidences SET node_id=$1 WHERE id=$2`, toNodeID, r.id); err != nil {
			return err
		}
	}
	return nil
}

func (b *pgBackend) dedupeIncidences(ctx context.Context, edgeID int64) error {
	_, err := b.q.Exec(ctx, `
DELETE FROM incidences a USING incidences b
WHERE a.edge_id = $1 AND a.edge_id = b.edge_id AND a.node_id = b.node_id AND a.role = b.role AND a.id > b.id`, edgeID)
	return err
}

func scanIncidences(rows pgx.Rows) ([]Incidence, error) {
	defer rows.Close()
	var out []Incidence
	for rows.Next() {
		var inc Incidence
		var role string
		if err := rows.Scan(&inc.ID, &inc.EdgeID, &inc.NodeID, &role, &inc.Position); err != nil {
			return nil, err
		}
		inc.Role = Role(role)
		out = append(out, inc)
	}
	return out, rows.Err()
}

func (b *pgBackend) incidencesForEdge(ctx context.Context, edgeID int64) ([]Incidence, error) {
	rows, err := b.q.Query(ctx, `SELECT id, edge_id, node_id, role, position FROM incidences WHERE edge_id=$1 ORDER BY position`, edgeID)
	if err != nil {
		return nil, err
	}
	return scanIncidences(rows)
}

func (b *pgBackend) incidencesForNode(ctx context.Context, nodeID int64) ([]Incidence, error) {
	rows, err := b.q.Query(ctx, `SELECT id, edge_id, node_id, role, position FROM incidences WHERE node_id=$1 ORDER BY id`, nodeID)
	if err != nil {
		return nil, err
	}
	return scanIncidences(rows)
}

func (b *pgBackend) allIncidences(ctx context.Context) ([]Incidence, error) {
	rows, err := b.q.Query(ctx, `SELECT id, edge_id, node_id, role, position FROM incidences ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return scanIncidences(rows)
}

func (b *pgBackend) edgeHasIncidences(ctx context.Context, edgeID int64) (bool, error) {
	var exists bool
	err := b.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM incidences WHERE edge_id=$1)`, edgeID).Scan(&exists)
	return exists, err
}

func (b *pgBackend) upsertProvenance(ctx context.Context, p Provenance) (int64, error) {
	var id int64
	err := b.q.QueryRow(ctx, `
INSERT INTO article_edge_provenance(edge_id, feed_item_id, chunk_index, chunk_text, confidence)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (edge_id, feed_item_id, chunk_index) DO UPDATE SET
  chunk_text=EXCLUDED.chunk_text, confidence=EXCLUDED.confidence
RETURNING id`, p.EdgeID, p.FeedItemID, p.ChunkIndex, p.ChunkText, p.Confidence).Scan(&id)
	return id, err
}

func (b *pgBackend) provenanceForEdge(ctx context.Context, edgeID int64) ([]Provenance, error) {
	rows, err := b.q.Query(ctx, `
SELECT id, edge_id, feed_item_id, chunk_index, chunk_text, confidence
FROM article_edge_provenance WHERE edge_id=$1 ORDER BY chunk_index`, edgeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Provenance
	for rows.Next() {
		var p Provenance
		if err := rows.Scan(&p.ID, &p.EdgeID, &p.FeedItemID, &p.ChunkIndex, &p.ChunkText, &p.Confidence); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (b *pgBackend) appendMergeHistory(ctx context.Context, row MergeHistoryRow) error {
	_, err := b.q.Exec(ctx, `
INSERT INTO node_merge_history(kept_node_id, removed_node_id, removed_label, similarity)
VALUES ($1,$2,$3,$4)`, row.KeptNodeID, row.RemovedNodeID, row.RemovedLabel, row.Similarity)
	return err
}

func (b *pgBackend) resetBuild(ctx context.Context, buildID string) error {
	for _, table := range []string{"cluster_exemplars", "cluster_members", "event_cluster", "clusters"} {
		if _, err := b.q.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE build_id=$1`, table), buildID); err != nil {
			return err
		}
	}
	return nil
}

func (b *pgBackend) insertCluster(ctx context.Context, c Cluster) error {
	_, err := b.q.Exec(ctx, `
INSERT INTO clusters(build_id, cluster_id, label, size, centroid, top_entities_json, top_families_json, summary)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (build_id, cluster_id) DO UPDATE SET
  label=EXCLUDED.label, size=EXCLUDED.size, centroid=EXCLUDED.centroid,
  top_entities_json=EXCLUDED.top_entities_json, top_families_json=EXCLUDED.top_families_json,
  summary=EXCLUDED.summary`,
		c.BuildID, c.ClusterID, c.Label, c.Size, c.Centroid, nullIfEmpty(c.TopEntitiesJSON), nullIfEmpty(c.TopFamiliesJSON), c.Summary)
	return err
}

func nullIfEmpty(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func (b *pgBackend) insertEventCluster(ctx context.Context, buildID, edgeID string, clusterID int, score float64) error {
	_, err := b.q.Exec(ctx, `
INSERT INTO event_cluster(build_id, edge_id, cluster_id, membership_score) VALUES ($1,$2,$3,$4)
ON CONFLICT (build_id, edge_id) DO UPDATE SET cluster_id=EXCLUDED.cluster_id, membership_score=EXCLUDED.membership_score`,
		buildID, edgeID, clusterID, score)
	return err
}

func (b *pgBackend) insertClusterMember(ctx context.Context, buildID string, clusterID int, edgeID string) error {
	_, err := b.q.Exec(ctx, `
INSERT INTO cluster_members(build_id, cluster_id, edge_id) VALUES ($1,$2,$3)
ON CONFLICT DO NOTHING`, buildID, clusterID, edgeID)
	return err
}

func (b *pgBackend) insertClusterExemplar(ctx context.Context, buildID string, clusterID int, edgeID string, rank int) error {
	_, err := b.q.Exec(ctx, `
INSERT INTO cluster_exemplars(build_id, cluster_id, edge_id, rank) VALUES ($1,$2,$3,$4)
ON CONFLICT (build_id, cluster_id, edge_id) DO UPDATE SET rank=EXCLUDED.rank`, buildID, clusterID, edgeID, rank)
	return err
}

func (b *pgBackend) listClusters(ctx context.Context, buildID string) ([]Cluster, error) {
	rows, err := b.q.Query(ctx, `
SELECT cluster_id, build_id, label, size, centroid, top_entities_json, top_families_json, summary, created_at
FROM clusters WHERE build_id=$1 ORDER BY cluster_id`, buildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Cluster
	for rows.Next() {
		var c Cluster
		if err := rows.Scan(&c.ClusterID, &c.BuildID, &c.Label, &c.Size, &c.Centroid,
			&c.TopEntitiesJSON, &c.TopFamiliesJSON, &c.Summary, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (b *pgBackend) insertQueryHistory(ctx context.Context, row QueryHistoryRow) (int64, error) {
	var id int64
	err := b.q.QueryRow(ctx, `
INSERT INTO query_history(query, answer, related_nodes_json, reasoning_paths_json, graph_paths_json, source_articles_json)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		row.Query, row.Answer, nullIfEmpty(row.RelatedNodesJSON), nullIfEmpty(row.ReasoningPathsJSON),
		nullIfEmpty(row.GraphPathsJSON), nullIfEmpty(row.SourceArticlesJSON)).Scan(&id)
	return id, err
}

func (b *pgBackend) updateQueryHistoryAnalysis(ctx context.Context, id int64, synthesized, hypotheses string) error {
	_, err := b.q.Exec(ctx, `
UPDATE query_history SET synthesized_analysis=$1, hypotheses=$2, analyzed_at=now() WHERE id=$3`,
		synthesized, hypotheses, id)
	return err
}

func (b *pgBackend) getQueryHistory(ctx context.Context, id int64) (QueryHistoryRow, bool, error) {
	var r QueryHistoryRow
	err := b.q.QueryRow(ctx, `
SELECT id, query, answer, related_nodes_json, reasoning_paths_json, graph_paths_json, source_articles_json,
       synthesized_analysis, hypotheses, analyzed_at, created_at
FROM query_history WHERE id=$1`, id).Scan(
		&r.ID, &r.Query, &r.Answer, &r.RelatedNodesJSON, &r.ReasoningPathsJSON, &r.GraphPathsJSON, &r.SourceArticlesJSON,
		&r.SynthesizedAnalysis, &r.Hypotheses, &r.AnalyzedAt, &r.CreatedAt)
	if err == pgx.ErrNoRows {
		return QueryHistoryRow{}, false, nil
	}
	return r, err == nil, err
}

func (b *pgBackend) listQueryHistory(ctx context.Context, limit int) ([]QueryHistoryRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := b.q.Query(ctx, `
SELECT id, query, answer, related_nodes_json, reasoning_paths_json, graph_paths_json, source_articles_json,
       synthesized_analysis, hypotheses, analyzed_at, created_at
FROM query_history ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []QueryHistoryRow
	for rows.Next() {
		var r QueryHistoryRow
		if err := rows.Scan(&r.ID, &r.Query, &r.Answer, &r.RelatedNodesJSON, &r.ReasoningPathsJSON, &r.GraphPathsJSON,
			&r.SourceArticlesJSON, &r.SynthesizedAnalysis, &r.Hypotheses, &r.AnalyzedAt, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (b *pgBackend) statistics(ctx context.Context) (nodeCount, edgeCount, processedArticles, embeddingCount int, err error) {
	if err = b.q.QueryRow(ctx, `SELECT count(*) FROM hypergraph_nodes`).Scan(&nodeCount); err != nil {
		return
	}
	if err = b.q.QueryRow(ctx, `SELECT count(*) FROM hyperedges`).Scan(&edgeCount); err != nil {
		return
	}
	if err = b.q.QueryRow(ctx, `SELECT count(*) FROM article_status WHERE state='completed'`).Scan(&processedArticles); err != nil {
		return
	}
	err = b.q.QueryRow(ctx, `SELECT count(*) FROM hypergraph_nodes WHERE embedded_at IS NOT NULL`).Scan(&embeddingCount)
	return
}
