package store

import "context"

// This file forwards the Store's public, documented operations onto
// whichever raw backend Open selected. Keeping the forwarding separate
// from the backend implementations keeps the public API stable while
// the memory and Postgres backends evolve independently.

func (s *Store) UpsertSource(ctx context.Context, src Source) (int64, error) {
	return s.raw.upsertSource(ctx, src)
}

func (s *Store) UpsertFeedItem(ctx context.Context, fi FeedItem) (int64, error) {
	return s.raw.upsertFeedItem(ctx, fi)
}

func (s *Store) GetFeedItem(ctx context.Context, id int64) (FeedItem, bool, error) {
	return s.raw.getFeedItem(ctx, id)
}

func (s *Store) SetArticleStatus(ctx context.Context, st ArticleStatus) error {
	return s.raw.setArticleStatus(ctx, st)
}

func (s *Store) GetArticleStatus(ctx context.Context, feedItemID int64) (ArticleStatus, bool, error) {
	return s.raw.getArticleStatus(ctx, feedItemID)
}

func (s *Store) ListUnprocessedFeedItems(ctx context.Context) ([]int64, error) {
	return s.raw.listUnprocessedFeedItems(ctx)
}

func (s *Store) UpsertChunk(ctx context.Context, c ArticleChunk) (int64, error) {
	return s.raw.upsertChunk(ctx, c)
}

func (s *Store) ListChunks(ctx context.Context, feedItemID int64) ([]ArticleChunk, error) {
	return s.raw.listChunks(ctx, feedItemID)
}

func (s *Store) GetChunk(ctx context.Context, id int64) (ArticleChunk, bool, error) {
	return s.raw.getChunk(ctx, id)
}

func (s *Store) MarkChunkEmbedded(ctx context.Context, id int64, model string) error {
	return s.raw.markChunkEmbedded(ctx, id, model)
}

func (s *Store) UpsertNode(ctx context.Context, nodeID, label, nodeType string) (int64, error) {
	return s.raw.upsertNode(ctx, nodeID, label, nodeType)
}

func (s *Store) GetNodeByNodeID(ctx context.Context, nodeID string) (Node, bool, error) {
	return s.raw.getNodeByNodeID(ctx, nodeID)
}

func (s *Store) GetNode(ctx context.Context, id int64) (Node, bool, error) {
	return s.raw.getNode(ctx, id)
}

func (s *Store) MarkNodeEmbedded(ctx context.Context, id int64, model string) error {
	return s.raw.markNodeEmbedded(ctx, id, model)
}

func (s *Store) DeleteNode(ctx context.Context, id int64) error {
	return s.raw.deleteNode(ctx, id)
}

func (s *Store) AllNodes(ctx context.Context) ([]Node, error) {
	return s.raw.allNodes(ctx)
}

func (s *Store) UpsertEdge(ctx context.Context, edgeID, label string, sourceChunkID *int64) (int64, error) {
	return s.raw.upsertEdge(ctx, edgeID, label, sourceChunkID)
}

func (s *Store) GetEdgeByEdgeID(ctx context.Context, edgeID string) (Edge, bool, error) {
	return s.raw.getEdgeByEdgeID(ctx, edgeID)
}

func (s *Store) GetEdge(ctx context.Context, id int64) (Edge, bool, error) {
	return s.raw.getEdge(ctx, id)
}

func (s *Store) DeleteEdge(ctx context.Context, id int64) error {
	return s.raw.deleteEdge(ctx, id)
}

func (s *Store) AllEdges(ctx context.Context) ([]Edge, error) {
	return s.raw.allEdges(ctx)
}

func (s *Store) EdgeCount(ctx context.Context) (int, error) {
	return s.raw.edgeCount(ctx)
}

func (s *Store) UpsertIncidence(ctx context.Context, edgeID, nodeID int64, role Role, position int) (int64, error) {
	return s.raw.upsertIncidence(ctx, edgeID, nodeID, role, position)
}

func (s *Store) RepointIncidences(ctx context.Context, fromNodeID, toNodeID int64) error {
	return s.raw.repointIncidences(ctx, fromNodeID, toNodeID)
}

func (s *Store) DedupeIncidences(ctx context.Context, edgeID int64) error {
	return s.raw.dedupeIncidences(ctx, edgeID)
}

func (s *Store) IncidencesForEdge(ctx context.Context, edgeID int64) ([]Incidence, error) {
	return s.raw.incidencesForEdge(ctx, edgeID)
}

func (s *Store) IncidencesForNode(ctx context.Context, nodeID int64) ([]Incidence, error) {
	return s.raw.incidencesForNode(ctx, nodeID)
}

func (s *Store) AllIncidences(ctx context.Context) ([]Incidence, error) {
	return s.raw.allIncidences(ctx)
}

func (s *Store) EdgeHasIncidences(ctx context.Context, edgeID int64) (bool, error) {
	return s.raw.edgeHasIncidences(ctx, edgeID)
}

func (s *Store) UpsertProvenance(ctx context.Context, p Provenance) (int64, error) {
	return s.raw.upsertProvenance(ctx, p)
}

func (s *Store) ProvenanceForEdge(ctx context.Context, edgeID int64) ([]Provenance, error) {
	return s.raw.provenanceForEdge(ctx, edgeID)
}

func (s *Store) AppendMergeHistory(ctx context.Context, row MergeHistoryRow) error {
	return s.raw.appendMergeHistory(ctx, row)
}

func (s *Store) ResetBuild(ctx context.Context, buildID string) error {
	return s.raw.resetBuild(ctx, buildID)
}

func (s *Store) InsertCluster(ctx context.Context, c Cluster) error {
	return s.raw.insertCluster(ctx, c)
}

func (s *Store) InsertEventCluster(ctx context.Context, buildID, edgeID string, clusterID int, score float64) error {
	return s.raw.insertEventCluster(ctx, buildID, edgeID, clusterID, score)
}

func (s *Store) InsertClusterMember(ctx context.Context, buildID string, clusterID int, edgeID string) error {
	return s.raw.insertClusterMember(ctx, buildID, clusterID, edgeID)
}

func (s *Store) InsertClusterExemplar(ctx context.Context, buildID string, clusterID int, edgeID string, rank int) error {
	return s.raw.insertClusterExemplar(ctx, buildID, clusterID, edgeID, rank)
}

func (s *Store) ListClusters(ctx context.Context, buildID string) ([]Cluster, error) {
	return s.raw.listClusters(ctx, buildID)
}

func (s *Store) InsertQueryHistory(ctx context.Context, row QueryHistoryRow) (int64, error) {
	return s.raw.insertQueryHistory(ctx, row)
}

func (s *Store) UpdateQueryHistoryAnalysis(ctx context.Context, id int64, synthesized, hypotheses string) error {
	return s.raw.updateQueryHistoryAnalysis(ctx, id, synthesized, hypotheses)
}

func (s *Store) GetQueryHistory(ctx context.Context, id int64) (QueryHistoryRow, bool, error) {
	return s.raw.getQueryHistory(ctx, id)
}

func (s *Store) ListQueryHistory(ctx context.Context, limit int) ([]QueryHistoryRow, error) {
	return s.raw.listQueryHistory(ctx, limit)
}

// Statistics implements the presentation façade's get_statistics() call.
func (s *Store) Statistics(ctx context.Context) (nodeCount, edgeCount, processedArticles, embeddingCount int, err error) {
	return s.raw.statistics(ctx)
}
