// Package merge implements node-merging: collapsing near-duplicate
// entity labels ("Google DeepMind" vs "DeepMind") discovered via
// embedding similarity, repointing their incidences, and garbage
// collecting edges left with no members.
package merge

import (
	"context"
	"fmt"
	"sort"

	"newsgraph/internal/store"
)

const DefaultThreshold = 0.85

// Candidate is one node paired with its cosine similarity to a probe node.
type Candidate struct {
	Node       store.Node
	Similarity float64
}

// FindSimilarNodes returns nodes whose embedding is within threshold
// cosine similarity of nodeID's embedding, most similar first.
func FindSimilarNodes(ctx context.Context, db *store.Store, nodeID string, threshold float64, limit int) ([]Candidate, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if limit <= 0 {
		limit = 20
	}
	_, found, err := db.GetNodeByNodeID(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("node %s not found", nodeID)
	}

	probe, ok, err := db.NodeVectors.Get(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	results, err := db.NodeVectors.SimilaritySearch(ctx, probe, limit+1, nil)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for _, r := range results {
		if r.ID == nodeID {
			continue
		}
		if r.Score < threshold {
			continue
		}
		n, found, err := db.GetNodeByNodeID(ctx, r.ID)
		if err != nil || !found {
			continue
		}
		out = append(out, Candidate{Node: n, Similarity: r.Score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Suggestion is a candidate merge pair with id1 < id2 to enforce unique pairing.
type Suggestion struct {
	ID1, ID2      int64
	Label1, Type1 string
	Label2, Type2 string
	Similarity    float64
}

// GetMergeSuggestions scans all embedded nodes pairwise and returns
// those above threshold, id1 < id2, most similar first, capped at limit.
func GetMergeSuggestions(ctx context.Context, db *store.Store, threshold float64, limit int) ([]Suggestion, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if limit <= 0 {
		limit = 50
	}
	nodes, err := db.AllNodes(ctx)
	if err != nil {
		return nil, err
	}
	var suggestions []Suggestion
	for i := 0; i < len(nodes); i++ {
		if nodes[i].EmbeddedAt == nil {
			continue
		}
		cands, err := FindSimilarNodes(ctx, db, nodes[i].NodeID, threshold, limit)
		if err != nil {
			continue
		}
		for _, c := range cands {
			a, b := nodes[i], c.Node
			if a.ID == b.ID {
				continue
			}
			id1, id2 := a.ID, b.ID
			n1, n2 := a, b
			if id1 > id2 {
				id1, id2 = id2, id1
				n1, n2 = n2, n1
			}
			suggestions = append(suggestions, Suggestion{
				ID1: id1, Label1: n1.Label, Type1: n1.NodeType,
				ID2: id2, Label2: n2.Label, Type2: n2.NodeType,
				Similarity: c.Similarity,
			})
		}
	}
	sort.Slice(suggestions, func(i, j int) bool { return suggestions[i].Similarity > suggestions[j].Similarity })
	dedup := dedupePairs(suggestions)
	if len(dedup) > limit {
		dedup = dedup[:limit]
	}
	return dedup, nil
}

func dedupePairs(in []Suggestion) []Suggestion {
	seen := make(map[[2]int64]bool)
	var out []Suggestion
	for _, s := range in {
		key := [2]int64{s.ID1, s.ID2}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// Merge atomically repoints all incidences from sourceID to targetID,
// deduplicates resulting incidences by (edge_id, node_id, role) keeping
// the smallest primary key, appends a merge-history row, deletes the
// source node and its embedding, then garbage-collects any edge left
// with no incidences.
func Merge(ctx context.Context, db *store.Store, sourceID, targetID int64, similarity float64) error {
	return db.Write(ctx, func(ctx context.Context, tx *store.Store) error {
		source, found, err := tx.GetNode(ctx, sourceID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("merge: source node %d not found", sourceID)
		}
		target, found, err := tx.GetNode(ctx, targetID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("merge: target node %d not found", targetID)
		}

		incidences, err := tx.IncidencesForNode(ctx, sourceID)
		if err != nil {
			return err
		}
		affectedEdges := make(map[int64]bool, len(incidences))
		for _, inc := range incidences {
			affectedEdges[inc.EdgeID] = true
		}

		if err := tx.RepointIncidences(ctx, sourceID, targetID); err != nil {
			return err
		}
		for edgeID := range affectedEdges {
			if err := tx.DedupeIncidences(ctx, edgeID); err != nil {
				return err
			}
		}

		if err := tx.AppendMergeHistory(ctx, store.MergeHistoryRow{
			KeptNodeID: target.NodeID, RemovedNodeID: source.NodeID, RemovedLabel: source.Label, Similarity: similarity,
		}); err != nil {
			return err
		}

		if err := tx.NodeVectors.Delete(ctx, source.NodeID); err != nil {
			return err
		}
		if err := tx.DeleteNode(ctx, sourceID); err != nil {
			return err
		}

		for edgeID := range affectedEdges {
			has, err := tx.EdgeHasIncidences(ctx, edgeID)
			if err != nil {
				return err
			}
			if !has {
				if err := tx.DeleteEdge(ctx, edgeID); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
