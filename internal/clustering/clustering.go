// Package clustering runs the HDBSCAN pipeline over hyperedge event
// vectors: IDF weighting, vector construction, clustering, persistence
// of cluster artifacts, and optional LLM-generated titles/summaries.
package clustering

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"newsgraph/internal/eventvec"
	"newsgraph/internal/hdbscan"
	"newsgraph/internal/llm"
	"newsgraph/internal/store"
)

// Options configures one pipeline run. Labeler is optional: when nil,
// clusters keep their auto-generated label.
type Options struct {
	MinClusterSize int
	MinSamples     int
	EmbeddingDim   int
	Labeler        llm.Provider
	LabelerModel   string
}

// Result summarizes one completed run.
type Result struct {
	BuildID      string
	ClusterCount int
	EdgeCount    int
}

type edgeView struct {
	rowID         int64
	edgeID        string
	relation      string
	sourceLabels  []string
	targetLabels  []string
	memberLabels  []string
}

// RunFullPipeline computes IDF weights, builds an event vector per
// hyperedge, clusters them with HDBSCAN, and persists the resulting
// clusters, memberships, and exemplars under a fresh build id.
func RunFullPipeline(ctx context.Context, db *store.Store, opts Options) (Result, error) {
	buildID := uuid.NewString()
	dim := opts.EmbeddingDim
	if dim <= 0 {
		dim = 768
	}

	edges, err := db.AllEdges(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("clustering: list edges: %w", err)
	}
	if len(edges) == 0 {
		return Result{BuildID: buildID}, nil
	}

	incidences, err := db.AllIncidences(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("clustering: list incidences: %w", err)
	}
	nodes, err := db.AllNodes(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("clustering: list nodes: %w", err)
	}
	nodeByRowID := make(map[int64]store.Node, len(nodes))
	for _, n := range nodes {
		nodeByRowID[n.ID] = n
	}

	edgeByRowID := make(map[int64]*edgeView, len(edges))
	for i := range edges {
		e := &edges[i]
		relation := e.EdgeID
		if idx := strings.Index(e.EdgeID, "_chunk"); idx > 0 {
			relation = e.EdgeID[:idx]
		}
		edgeByRowID[e.ID] = &edgeView{rowID: e.ID, edgeID: e.EdgeID, relation: relation}
	}

	df := make(map[string]int)
	edgeNodeSeen := make(map[int64]map[string]bool, len(edgeByRowID))
	for _, inc := range incidences {
		ev, ok := edgeByRowID[inc.EdgeID]
		if !ok {
			continue
		}
		node, ok := nodeByRowID[inc.NodeID]
		if !ok {
			continue
		}
		switch inc.Role {
		case store.RoleSource:
			ev.sourceLabels = append(ev.sourceLabels, node.NodeID)
		case store.RoleTarget:
			ev.targetLabels = append(ev.targetLabels, node.NodeID)
		default:
			ev.memberLabels = append(ev.memberLabels, node.NodeID)
		}
		if edgeNodeSeen[inc.EdgeID] == nil {
			edgeNodeSeen[inc.EdgeID] = make(map[string]bool)
		}
		if !edgeNodeSeen[inc.EdgeID][node.NodeID] {
			edgeNodeSeen[inc.EdgeID][node.NodeID] = true
			df[node.NodeID]++
		}
	}

	idf := eventvec.ComputeIDF(df, len(edges))

	embeddings := make(map[string][]float64, len(nodes))
	for _, n := range nodes {
		if n.EmbeddedAt == nil {
			continue
		}
		vec, found, err := db.NodeVectors.Get(ctx, n.NodeID)
		if err != nil || !found {
			continue
		}
		f := make([]float64, len(vec))
		for i, v := range vec {
			f[i] = float64(v)
		}
		embeddings[n.NodeID] = f
	}

	ordered := make([]*edgeView, 0, len(edges))
	for _, e := range edges {
		ordered = append(ordered, edgeByRowID[e.ID])
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].edgeID < ordered[j].edgeID })

	vectors := make([][]float64, len(ordered))
	for i, ev := range ordered {
		vec := eventvec.Build(ev.sourceLabels, ev.targetLabels, ev.relation, idf, embeddings, dim)
		vectors[i] = vec
		if err := db.EventVectors.Upsert(ctx, ev.edgeID, toFloat32(vec), map[string]string{"edge_id": ev.edgeID}); err != nil {
			return Result{}, fmt.Errorf("clustering: upsert event vector %s: %w", ev.edgeID, err)
		}
	}

	result := hdbscan.Run(vectors, hdbscan.Params{MinClusterSize: opts.MinClusterSize, MinSamples: opts.MinSamples})

	if err := db.ResetBuild(ctx, buildID); err != nil {
		return Result{}, fmt.Errorf("clustering: reset build: %w", err)
	}

	for i, ev := range ordered {
		clusterID := result.Labels[i]
		if err := db.InsertEventCluster(ctx, buildID, ev.edgeID, clusterID, result.Membership[i]); err != nil {
			return Result{}, fmt.Errorf("clustering: insert event_cluster %s: %w", ev.edgeID, err)
		}
		if clusterID >= 0 {
			if err := db.InsertClusterMember(ctx, buildID, clusterID, ev.edgeID); err != nil {
				return Result{}, fmt.Errorf("clustering: insert cluster_member %s: %w", ev.edgeID, err)
			}
		}
	}

	byCluster := make(map[int][]int) // clusterID -> indices into ordered/vectors
	for i, l := range result.Labels {
		if l < 0 {
			continue
		}
		byCluster[l] = append(byCluster[l], i)
	}

	clusterIDs := make([]int, 0, len(byCluster))
	for id := range byCluster {
		clusterIDs = append(clusterIDs, id)
	}
	sort.Ints(clusterIDs)

	for _, clusterID := range clusterIDs {
		members := byCluster[clusterID]
		c := summarizeCluster(buildID, clusterID, members, ordered, vectors, idf, dim)

		if opts.Labeler != nil {
			if title, summary, ok := labelWithLLM(ctx, opts.Labeler, opts.LabelerModel, c); ok {
				c.Label = title
				c.Summary = summary
			}
		}

		if err := db.InsertCluster(ctx, c); err != nil {
			return Result{}, fmt.Errorf("clustering: insert cluster %d: %w", clusterID, err)
		}
		for rank, idx := range exemplarOrder(members, vectors, c.Centroid)[:min(10, len(members))] {
			if err := db.InsertClusterExemplar(ctx, buildID, clusterID, ordered[idx].edgeID, rank+1); err != nil {
				return Result{}, fmt.Errorf("clustering: insert exemplar: %w", err)
			}
		}
	}

	return Result{BuildID: buildID, ClusterCount: len(clusterIDs), EdgeCount: len(edges)}, nil
}

// summarizeCluster computes a cluster's centroid, top entities, top
// relation families, and auto-generated label from its member edges.
func summarizeCluster(buildID string, clusterID int, members []int, ordered []*edgeView, vectors [][]float64, idf map[string]float64, dim int) store.Cluster {
	centroid := make([]float64, eventvec.Dim(dim))
	for _, idx := range members {
		v := vectors[idx]
		for i := 0; i < len(centroid) && i < len(v); i++ {
			centroid[i] += v[i]
		}
	}
	for i := range centroid {
		centroid[i] /= float64(len(members))
	}
	centroid = eventvec.Normalize(centroid)

	entityScore := make(map[string]float64)
	familyCount := make(map[string]int)
	for _, idx := range members {
		ev := ordered[idx]
		for _, label := range append(append([]string{}, ev.sourceLabels...), ev.targetLabels...) {
			entityScore[label] += idf[label]
		}
		familyCount[eventvec.FamilyName(ev.relation)]++
	}

	topEntities := rankByScore(entityScore, 20)
	topFamilies := rankByCount(familyCount, 5)

	label := "Uncategorized"
	if len(topEntities) > 0 && len(topFamilies) > 0 {
		names := topEntities
		if len(names) > 2 {
			names = names[:2]
		}
		label = fmt.Sprintf("%s -- %s", strings.Join(names, ", "), topFamilies[0])
	} else if len(topEntities) > 0 {
		label = strings.Join(topEntities, ", ")
	}

	entitiesJSON, _ := json.Marshal(topEntities)
	familiesJSON, _ := json.Marshal(topFamilies)

	return store.Cluster{
		ClusterID:       clusterID,
		BuildID:         buildID,
		Label:           label,
		Size:            len(members),
		Centroid:        centroid,
		TopEntitiesJSON: entitiesJSON,
		TopFamiliesJSON: familiesJSON,
	}
}

func exemplarOrder(members []int, vectors [][]float64, centroid []float64) []int {
	type scored struct {
		idx int
		sim float64
	}
	ranked := make([]scored, len(members))
	for i, idx := range members {
		ranked[i] = scored{idx: idx, sim: cosine(vectors[idx], centroid)}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].sim > ranked[j].sim })
	out := make([]int, len(ranked))
	for i, r := range ranked {
		out[i] = r.idx
	}
	return out
}

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := 0; i < len(a) && i < len(b); i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func rankByScore(scores map[string]float64, limit int) []string {
	type kv struct {
		k string
		v float64
	}
	items := make([]kv, 0, len(scores))
	for k, v := range scores {
		items = append(items, kv{k, v})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].v != items[j].v {
			return items[i].v > items[j].v
		}
		return items[i].k < items[j].k
	})
	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.k
	}
	return out
}

func rankByCount(counts map[string]int, limit int) []string {
	type kv struct {
		k string
		v int
	}
	items := make([]kv, 0, len(counts))
	for k, v := range counts {
		items = append(items, kv{k, v})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].v != items[j].v {
			return items[i].v > items[j].v
		}
		return items[i].k < items[j].k
	})
	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.k
	}
	return out
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
