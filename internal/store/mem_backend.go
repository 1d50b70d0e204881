package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// memBackend is the in-process, map-based raw implementation used by
// tests and by Config.Backend == "memory". A single mutex plays the role
// of Postgres's serialized writers / concurrent readers: writes take the
// full lock, reads take a read lock. withTx additionally snapshots the
// maps so a failing transaction rolls back cleanly, mirroring Postgres
// ROLLBACK semantics.
type memBackend struct {
	mu sync.RWMutex

	nextSourceID, nextFeedItemID, nextChunkID int64
	nextNodeID, nextEdgeID, nextIncidenceID   int64
	nextProvenanceID, nextQueryHistoryID      int64

	sources       map[int64]Source
	feedItems     map[int64]FeedItem
	feedItemIndex map[string]int64 // "sourceID/guid" -> id
	articleStatus map[int64]ArticleStatus

	chunks      map[int64]ArticleChunk
	chunkIndex  map[string]int64 // "feedItemID/chunkIndex" -> id

	nodes     map[int64]Node
	nodeIndex map[string]int64 // nodeID -> id

	edges     map[int64]Edge
	edgeIndex map[string]int64 // edgeID -> id

	incidences     map[int64]Incidence
	incidenceIndex map[string]int64 // "edgeID/nodeID/role" -> id

	provenance      map[int64]Provenance
	provenanceIndex map[string]int64 // "edgeID/feedItemID/chunkIndex" -> id

	mergeHistory []MergeHistoryRow

	clusters         map[string]map[int]Cluster
	eventCluster     map[string]map[string]eventClusterRow
	clusterMembers   map[string]map[int][]string
	clusterExemplars map[string]map[int][]string

	queryHistory map[int64]QueryHistoryRow
}

type eventClusterRow struct {
	clusterID int
	score     float64
}

func newMemBackend() *memBackend {
	return &memBackend{
		sources:          make(map[int64]Source),
		feedItems:        make(map[int64]FeedItem),
		feedItemIndex:    make(map[string]int64),
		articleStatus:    make(map[int64]ArticleStatus),
		chunks:           make(map[int64]ArticleChunk),
		chunkIndex:       make(map[string]int64),
		nodes:            make(map[int64]Node),
		nodeIndex:        make(map[string]int64),
		edges:            make(map[int64]Edge),
		edgeIndex:        make(map[string]int64),
		incidences:       make(map[int64]Incidence),
		incidenceIndex:   make(map[string]int64),
		provenance:       make(map[int64]Provenance),
		provenanceIndex:  make(map[string]int64),
		clusters:         make(map[string]map[int]Cluster),
		eventCluster:     make(map[string]map[string]eventClusterRow),
		clusterMembers:   make(map[string]map[int][]string),
		clusterExemplars: make(map[string]map[int][]string),
		queryHistory:     make(map[int64]QueryHistoryRow),
	}
}

// snapshot deep-copies every map so withTx can roll back on error.
func (m *memBackend) snapshot() *memBackend {
	cp := &memBackend{
		nextSourceID: m.nextSourceID, nextFeedItemID: m.nextFeedItemID, nextChunkID: m.nextChunkID,
		nextNodeID: m.nextNodeID, nextEdgeID: m.nextEdgeID, nextIncidenceID: m.nextIncidenceID,
		nextProvenanceID: m.nextProvenanceID, nextQueryHistoryID: m.nextQueryHistoryID,
		sources: cloneMap(m.sources), feedItems: cloneMap(m.feedItems), feedItemIndex: cloneMap(m.feedItemIndex),
		articleStatus: cloneMap(m.articleStatus), chunks: cloneMap(m.chunks), chunkIndex: cloneMap(m.chunkIndex),
		nodes: cloneMap(m.nodes), nodeIndex: cloneMap(m.nodeIndex), edges: cloneMap(m.edges), edgeIndex: cloneMap(m.edgeIndex),
		incidences: cloneMap(m.incidences), incidenceIndex: cloneMap(m.incidenceIndex),
		provenance: cloneMap(m.provenance), provenanceIndex: cloneMap(m.provenanceIndex),
		mergeHistory: append([]MergeHistoryRow{}, m.mergeHistory...),
		queryHistory: cloneMap(m.queryHistory),
	}
	cp.clusters = make(map[string]map[int]Cluster, len(m.clusters))
	for k, v := range m.clusters {
		cp.clusters[k] = cloneMap(v)
	}
	cp.eventCluster = make(map[string]map[string]eventClusterRow, len(m.eventCluster))
	for k, v := range m.eventCluster {
		cp.eventCluster[k] = cloneMap(v)
	}
	cp.clusterMembers = make(map[string]map[int][]string, len(m.clusterMembers))
	for k, v := range m.clusterMembers {
		nv := make(map[int][]string, len(v))
		for ck, cv := range v {
			nv[ck] = append([]string{}, cv...)
		}
		cp.clusterMembers[k] = nv
	}
	cp.clusterExemplars = make(map[string]map[int][]string, len(m.clusterExemplars))
	for k, v := range m.clusterExemplars {
		nv := make(map[int][]string, len(v))
		for ck, cv := range v {
			nv[ck] = append([]string{}, cv...)
		}
		cp.clusterExemplars[k] = nv
	}
	return cp
}

func (m *memBackend) restore(from *memBackend) {
	*m = *from
}

func cloneMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (m *memBackend) withTx(ctx context.Context, fn func(ctx context.Context, tx raw) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := m.snapshot()
	if err := fn(ctx, m); err != nil {
		m.restore(before)
		return err
	}
	return nil
}

func key2(a, b any) string { return fmt.Sprintf("%v/%v", a, b) }
func key3(a, b, c any) string { return fmt.Sprintf("%v/%v/%v", a, b, c) }

func (m *memBackend) upsertSource(_ context.Context, s Source) (int64, error) {
	for id, existing := range m.sources {
		if existing.FeedURL == s.FeedURL {
			existing.Name = s.Name
			existing.Kind = s.Kind
			m.sources[id] = existing
			return id, nil
		}
	}
	m.nextSourceID++
	id := m.nextSourceID
	s.ID = id
	m.sources[id] = s
	return id, nil
}

func (m *memBackend) upsertFeedItem(_ context.Context, fi FeedItem) (int64, error) {
	idxKey := key2(fi.SourceID, fi.GUID)
	if existingID, ok := m.feedItemIndex[idxKey]; ok {
		existing := m.feedItems[existingID]
		existing.Title = fi.Title
		existing.Link = fi.Link
		existing.PubDate = fi.PubDate
		existing.Description = fi.Description
		if fi.FullContent != "" {
			existing.FullContent = fi.FullContent
		}
		existing.Author = fi.Author
		existing.FetchedAt = fi.FetchedAt
		m.feedItems[existingID] = existing
		return existingID, nil
	}
	m.nextFeedItemID++
	id := m.nextFeedItemID
	fi.ID = id
	m.feedItems[id] = fi
	m.feedItemIndex[idxKey] = id
	return id, nil
}

func (m *memBackend) getFeedItem(_ context.Context, id int64) (FeedItem, bool, error) {
	fi, ok := m.feedItems[id]
	return fi, ok, nil
}

func (m *memBackend) setArticleStatus(_ context.Context, st ArticleStatus) error {
	m.articleStatus[st.FeedItemID] = st
	return nil
}

func (m *memBackend) getArticleStatus(_ context.Context, feedItemID int64) (ArticleStatus, bool, error) {
	st, ok := m.articleStatus[feedItemID]
	return st, ok, nil
}

func (m *memBackend) listUnprocessedFeedItems(_ context.Context) ([]int64, error) {
	var out []int64
	for id := range m.feedItems {
		st, ok := m.articleStatus[id]
		if !ok || (st.State != ArticleCompleted && st.State != ArticleProcessing) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *memBackend) upsertChunk(_ context.Context, c ArticleChunk) (int64, error) {
	idxKey := key2(c.FeedItemID, c.ChunkIndex)
	if existingID, ok := m.chunkIndex[idxKey]; ok {
		existing := m.chunks[existingID]
		existing.Content = c.Content
		m.chunks[existingID] = existing
		return existingID, nil
	}
	m.nextChunkID++
	id := m.nextChunkID
	c.ID = id
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	m.chunks[id] = c
	m.chunkIndex[idxKey] = id
	return id, nil
}

func (m *memBackend) listChunks(_ context.Context, feedItemID int64) ([]ArticleChunk, error) {
	var out []ArticleChunk
	for _, c := range m.chunks {
		if c.FeedItemID == feedItemID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (m *memBackend) getChunk(_ context.Context, id int64) (ArticleChunk, bool, error) {
	c, ok := m.chunks[id]
	return c, ok, nil
}

func (m *memBackend) markChunkEmbedded(_ context.Context, id int64, model string) error {
	c, ok := m.chunks[id]
	if !ok {
		return fmt.Errorf("chunk %d not found", id)
	}
	c.EmbeddingModel = model
	now := time.Now()
	c.EmbeddedAt = &now
	m.chunks[id] = c
	return nil
}

func (m *memBackend) upsertNode(_ context.Context, nodeID, label, nodeType string) (int64, error) {
	if existingID, ok := m.nodeIndex[nodeID]; ok {
		existing := m.nodes[existingID]
		existing.Label = label
		if nodeType != "" {
			existing.NodeType = nodeType
		}
		m.nodes[existingID] = existing
		return existingID, nil
	}
	m.nextNodeID++
	id := m.nextNodeID
	m.nodes[id] = Node{ID: id, NodeID: nodeID, Label: label, NodeType: nodeType, FirstSeenAt: time.Now()}
	m.nodeIndex[nodeID] = id
	return id, nil
}

func (m *memBackend) getNodeByNodeID(_ context.Context, nodeID string) (Node, bool, error) {
	id, ok := m.nodeIndex[nodeID]
	if !ok {
		return Node{}, false, nil
	}
	return m.nodes[id], true, nil
}

func (m *memBackend) getNode(_ context.Context, id int64) (Node, bool, error) {
	n, ok := m.nodes[id]
	return n, ok, nil
}

func (m *memBackend) markNodeEmbedded(_ context.Context, id int64, model string) error {
	n, ok := m.nodes[id]
	if !ok {
		return fmt.Errorf("node %d not found", id)
	}
	n.EmbeddingModel = model
	now := time.Now()
	n.EmbeddedAt = &now
	m.nodes[id] = n
	return nil
}

func (m *memBackend) deleteNode(_ context.Context, id int64) error {
	n, ok := m.nodes[id]
	if !ok {
		return nil
	}
	delete(m.nodes, id)
	delete(m.nodeIndex, n.NodeID)
	return nil
}

func (m *memBackend) allNodes(_ context.Context) ([]Node, error) {
	out := make([]Node, 0, len(m.nodes))
	for _, n := range m.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memBackend) upsertEdge(_ context.Context, edgeID, label string, sourceChunkID *int64) (int64, error) {
	if existingID, ok := m.edgeIndex[edgeID]; ok {
		existing := m.edges[existingID]
		existing.Label = label
		if sourceChunkID != nil {
			existing.SourceChunkID = sourceChunkID
		}
		m.edges[existingID] = existing
		return existingID, nil
	}
	m.nextEdgeID++
	id := m.nextEdgeID
	m.edges[id] = Edge{ID: id, EdgeID: edgeID, Label: label, CreatedAt: time.Now(), SourceChunkID: sourceChunkID}
	m.edgeIndex[edgeID] = id
	return id, nil
}

func (m *memBackend) getEdgeByEdgeID(_ context.Context, edgeID string) (Edge, bool, error) {
	id, ok := m.edgeIndex[edgeID]
	if !ok {
		return Edge{}, false, nil
	}
	return m.edges[id], true, nil
}

func (m *memBackend) getEdge(_ context.Context, id int64) (Edge, bool, error) {
	e, ok := m.edges[id]
	return e, ok, nil
}

func (m *memBackend) deleteEdge(_ context.Context, id int64) error {
	e, ok := m.edges[id]
	if !ok {
		return nil
	}
	delete(m.edges, id)
	delete(m.edgeIndex, e.EdgeID)
	for k, inc := range m.incidences {
		if inc.EdgeID == id {
			delete(m.incidences, k)
			delete(m.incidenceIndex, key3(inc.EdgeID, inc.NodeID, inc.Role))
		}
	}
	for k, p := range m.provenance {
		if p.EdgeID == id {
			delete(m.provenance, k)
			delete(m.provenanceIndex, key3(p.EdgeID, p.FeedItemID, p.ChunkIndex))
		}
	}
	return nil
}

func (m *memBackend) allEdges(_ context.Context) ([]Edge, error) {
	out := make([]Edge, 0, len(m.edges))
	for _, e := range m.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memBackend) edgeCount(_ context.Context) (int, error) { return len(m.edges), nil }

func (m *memBackend) upsertIncidence(_ context.Context, edgeID, nodeID int64, role Role, position int) (int64, error) {
	idxKey := key3(edgeID, nodeID, role)
	if existingID, ok := m.incidenceIndex[idxKey]; ok {
		existing := m.incidences[existingID]
		existing.Position = position
		m.incidences[existingID] = existing
		return existingID, nil
	}
	m.nextIncidenceID++
	id := m.nextIncidenceID
	m.incidences[id] = Incidence{ID: id, EdgeID: edgeID, NodeID: nodeID, Role: role, Position: position}
	m.incidenceIndex[idxKey] = id
	return id, nil
}

// repointIncidences moves every incidence of fromNodeID onto toNodeID,
// then deduplicates by (edge_id, node_id, role) keeping the smallest
// primary key, per the node-merging design.
func (m *memBackend) repointIncidences(_ context.Context, fromNodeID, toNodeID int64) error {
	for id, inc := range m.incidences {
		if inc.NodeID == fromNodeID {
			delete(m.incidenceIndex, key3(inc.EdgeID, inc.NodeID, inc.Role))
			inc.NodeID = toNodeID
			m.incidences[id] = inc
		}
	}
	// rebuild index, resolving duplicates by smallest id
	byKey := make(map[string][]int64)
	for id, inc := range m.incidences {
		k := key3(inc.EdgeID, inc.NodeID, inc.Role)
		byKey[k] = append(byKey[k], id)
	}
	for k, ids := range byKey {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		keep := ids[0]
		m.incidenceIndex[k] = keep
		for _, dup := range ids[1:] {
			delete(m.incidences, dup)
		}
	}
	return nil
}

func (m *memBackend) dedupeIncidences(_ context.Context, edgeID int64) error {
	byKey := make(map[string][]int64)
	for id, inc := range m.incidences {
		if inc.EdgeID != edgeID {
			continue
		}
		k := key3(inc.EdgeID, inc.NodeID, inc.Role)
		byKey[k] = append(byKey[k], id)
	}
	for k, ids := range byKey {
		if len(ids) <= 1 {
			continue
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		m.incidenceIndex[k] = ids[0]
		for _, dup := range ids[1:] {
			delete(m.incidences, dup)
		}
	}
	return nil
}

func (m *memBackend) incidencesForEdge(_ context.Context, edgeID int64) ([]Incidence, error) {
	var out []Incidence
	for _, inc := range m.incidences {
		if inc.EdgeID == edgeID {
			out = append(out, inc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memBackend) incidencesForNode(_ context.Context, nodeID int64) ([]Incidence, error) {
	var out []Incidence
	for _, inc := range m.incidences {
		if inc.NodeID == nodeID {
			out = append(out, inc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memBackend) allIncidences(_ context.Context) ([]Incidence, error) {
	out := make([]Incidence, 0, len(m.incidences))
	for _, inc := range m.incidences {
		out = append(out, inc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memBackend) edgeHasIncidences(_ context.Context, edgeID int64) (bool, error) {
	for _, inc := range m.incidences {
		if inc.EdgeID == edgeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memBackend) upsertProvenance(_ context.Context, p Provenance) (int64, error) {
	idxKey := key3(p.EdgeID, p.FeedItemID, p.ChunkIndex)
	if existingID, ok := m.provenanceIndex[idxKey]; ok {
		existing := m.provenance[existingID]
		existing.ChunkText = p.ChunkText
		existing.Confidence = p.Confidence
		m.provenance[existingID] = existing
		return existingID, nil
	}
	m.nextProvenanceID++
	id := m.nextProvenanceID
	p.ID = id
	m.provenance[id] = p
	m.provenanceIndex[idxKey] = id
	return id, nil
}

func (m *memBackend) provenanceForEdge(_ context.Context, edgeID int64) ([]Provenance, error) {
	var out []Provenance
	for _, p := range m.provenance {
		if p.EdgeID == edgeID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (m *memBackend) appendMergeHistory(_ context.Context, row MergeHistoryRow) error {
	row.ID = int64(len(m.mergeHistory) + 1)
	if row.MergedAt.IsZero() {
		row.MergedAt = time.Now()
	}
	m.mergeHistory = append(m.mergeHistory, row)
	return nil
}

func (m *memBackend) resetBuild(_ context.Context, buildID string) error {
	delete(m.clusterExemplars, buildID)
	delete(m.clusterMembers, buildID)
	delete(m.eventCluster, buildID)
	delete(m.clusters, buildID)
	return nil
}

func (m *memBackend) insertCluster(_ context.Context, c Cluster) error {
	if m.clusters[c.BuildID] == nil {
		m.clusters[c.BuildID] = make(map[int]Cluster)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	m.clusters[c.BuildID][c.ClusterID] = c
	return nil
}

func (m *memBackend) insertEventCluster(_ context.Context, buildID, edgeID string, clusterID int, score float64) error {
	if m.eventCluster[buildID] == nil {
		m.eventCluster[buildID] = make(map[string]eventClusterRow)
	}
	m.eventCluster[buildID][edgeID] = eventClusterRow{clusterID: clusterID, score: score}
	return nil
}

func (m *memBackend) insertClusterMember(_ context.Context, buildID string, clusterID int, edgeID string) error {
	if m.clusterMembers[buildID] == nil {
		m.clusterMembers[buildID] = make(map[int][]string)
	}
	m.clusterMembers[buildID][clusterID] = append(m.clusterMembers[buildID][clusterID], edgeID)
	return nil
}

func (m *memBackend) insertClusterExemplar(_ context.Context, buildID string, clusterID int, edgeID string, rank int) error {
	if m.clusterExemplars[buildID] == nil {
		m.clusterExemplars[buildID] = make(map[int][]string)
	}
	m.clusterExemplars[buildID][clusterID] = append(m.clusterExemplars[buildID][clusterID], edgeID)
	return nil
}

func (m *memBackend) listClusters(_ context.Context, buildID string) ([]Cluster, error) {
	var out []Cluster
	for _, c := range m.clusters[buildID] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClusterID < out[j].ClusterID })
	return out, nil
}

func (m *memBackend) insertQueryHistory(_ context.Context, row QueryHistoryRow) (int64, error) {
	m.nextQueryHistoryID++
	row.ID = m.nextQueryHistoryID
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	m.queryHistory[row.ID] = row
	return row.ID, nil
}

func (m *memBackend) updateQueryHistoryAnalysis(_ context.Context, id int64, synthesized, hypotheses string) error {
	row, ok := m.queryHistory[id]
	if !ok {
		return fmt.Errorf("query history %d not found", id)
	}
	row.SynthesizedAnalysis = synthesized
	row.Hypotheses = hypotheses
	now := time.Now()
	row.AnalyzedAt = &now
	m.queryHistory[id] = row
	return nil
}

func (m *memBackend) getQueryHistory(_ context.Context, id int64) (QueryHistoryRow, bool, error) {
	row, ok := m.queryHistory[id]
	return row, ok, nil
}

func (m *memBackend) listQueryHistory(_ context.Context, limit int) ([]QueryHistoryRow, error) {
	out := make([]QueryHistoryRow, 0, len(m.queryHistory))
	for _, r := range m.queryHistory {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memBackend) statistics(_ context.Context) (nodeCount, edgeCount, processedArticles, embeddingCount int, err error) {
	nodeCount = len(m.nodes)
	edgeCount = len(m.edges)
	for _, st := range m.articleStatus {
		if st.State == ArticleCompleted {
			processedArticles++
		}
	}
	for _, n := range m.nodes {
		if n.EmbeddedAt != nil {
			embeddingCount++
		}
	}
	return nodeCount, edgeCount, processedArticles, embeddingCount, nil
}
