// Package pathfinder implements s-connected breadth-first search over
// the hyperedge incidence structure: two edges are s-adjacent when they
// share at least s nodes, and paths are sequences of such adjacent
// edges connecting a source node to a target node.
package pathfinder

import (
	"context"
	"sort"

	"newsgraph/internal/store"
)

const (
	DefaultDepthCap = 4
	DefaultMaxPaths = 3
)

// Index is the precomputed incidence structure used to answer BFS
// queries. Build it once per query batch (or reuse across queries in
// one GraphRAG pipeline call) via BuildIndex.
type Index struct {
	nodeToEdges map[int64]map[int64]bool
	edgeToNodes map[int64]map[int64]bool
	nodeLabels  map[int64]string
	edgeOrder   []int64 // deterministic iteration order
}

// BuildIndex loads all incidences and node labels into adjacency maps.
func BuildIndex(ctx context.Context, db *store.Store) (*Index, error) {
	incidences, err := db.AllIncidences(ctx)
	if err != nil {
		return nil, err
	}
	nodes, err := db.AllNodes(ctx)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		nodeToEdges: make(map[int64]map[int64]bool),
		edgeToNodes: make(map[int64]map[int64]bool),
		nodeLabels:  make(map[int64]string),
	}
	for _, n := range nodes {
		idx.nodeLabels[n.ID] = n.Label
	}
	edgeSet := make(map[int64]bool)
	for _, inc := range incidences {
		if idx.nodeToEdges[inc.NodeID] == nil {
			idx.nodeToEdges[inc.NodeID] = make(map[int64]bool)
		}
		idx.nodeToEdges[inc.NodeID][inc.EdgeID] = true
		if idx.edgeToNodes[inc.EdgeID] == nil {
			idx.edgeToNodes[inc.EdgeID] = make(map[int64]bool)
		}
		idx.edgeToNodes[inc.EdgeID][inc.NodeID] = true
		edgeSet[inc.EdgeID] = true
	}
	for e := range edgeSet {
		idx.edgeOrder = append(idx.edgeOrder, e)
	}
	sort.Slice(idx.edgeOrder, func(i, j int) bool { return idx.edgeOrder[i] < idx.edgeOrder[j] })
	return idx, nil
}

// adjacencyFor computes, afresh on each call, the s-adjacency lists: edge c
// is adjacent to edge e iff |nodes(e) ∩ nodes(c)| ≥ s. Each unordered
// pair is evaluated once via a seen-set.
func (idx *Index) adjacencyFor(s int) map[int64][]int64 {
	adj := make(map[int64][]int64, len(idx.edgeOrder))
	seen := make(map[[2]int64]bool)
	for _, e := range idx.edgeOrder {
		for n := range idx.edgeToNodes[e] {
			for c := range idx.nodeToEdges[n] {
				if c == e {
					continue
				}
				pair := [2]int64{e, c}
				if e > c {
					pair = [2]int64{c, e}
				}
				if seen[pair] {
					continue
				}
				seen[pair] = true
				shared := 0
				for nn := range idx.edgeToNodes[e] {
					if idx.edgeToNodes[c][nn] {
						shared++
					}
				}
				if shared >= s {
					adj[e] = append(adj[e], c)
					adj[c] = append(adj[c], e)
				}
			}
		}
	}
	for e := range adj {
		sort.Slice(adj[e], func(i, j int) bool { return adj[e][i] < adj[e][j] })
	}
	return adj
}

// Path is one discovered route between a source and target node.
type Path struct {
	EdgeIDs      []int64
	HopNodeLabels [][]string // per hop, intersection node labels between consecutive edges
}

// FindPaths returns up to maxPaths shortest s-connected routes for every
// (source, target) pair drawn from nodeIDs (all pairs, a < b), capped at
// depth hops.
func FindPaths(idx *Index, nodeIDs []int64, s, depthCap, maxPaths int) map[[2]int64][]Path {
	if depthCap <= 0 {
		depthCap = DefaultDepthCap
	}
	if maxPaths <= 0 {
		maxPaths = DefaultMaxPaths
	}
	adj := idx.adjacencyFor(s)

	out := make(map[[2]int64][]Path)
	for i := 0; i < len(nodeIDs); i++ {
		for j := i + 1; j < len(nodeIDs); j++ {
			a, b := nodeIDs[i], nodeIDs[j]
			paths := bfsPair(idx, adj, a, b, depthCap, maxPaths)
			if len(paths) > 0 {
				out[[2]int64{a, b}] = paths
			}
		}
	}
	return out
}

func bfsPair(idx *Index, adj map[int64][]int64, a, b int64, depthCap, maxPaths int) []Path {
	sourceEdges := sortedEdges(idx.nodeToEdges[a])
	targetEdges := setOf(idx.nodeToEdges[b])
	if len(sourceEdges) == 0 || len(targetEdges) == 0 {
		return nil
	}

	depth := make(map[int64]int)
	parents := make(map[int64][]int64)
	frontier := make([]int64, 0, len(sourceEdges))
	for _, e := range sourceEdges {
		depth[e] = 0
		frontier = append(frontier, e)
	}

	var foundDepth = -1
	var targetsHit []int64

	for _, e := range frontier {
		if targetEdges[e] {
			targetsHit = append(targetsHit, e)
		}
	}
	if len(targetsHit) > 0 {
		foundDepth = 0
	}

	for hop := 0; hop < depthCap && foundDepth == -1; hop++ {
		var next []int64
		nextSeen := make(map[int64]bool)
		for _, e := range frontier {
			for _, c := range adj[e] {
				if _, visited := depth[c]; visited {
					if depth[c] == hop+1 {
						parents[c] = appendUnique(parents[c], e)
					}
					continue
				}
				depth[c] = hop + 1
				parents[c] = []int64{e}
				if !nextSeen[c] {
					nextSeen[c] = true
					next = append(next, c)
				}
			}
		}
		sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
		for _, e := range next {
			if targetEdges[e] {
				targetsHit = append(targetsHit, e)
			}
		}
		if len(targetsHit) > 0 {
			foundDepth = hop + 1
		}
		frontier = next
	}
	if foundDepth == -1 {
		return nil
	}

	sort.Slice(targetsHit, func(i, j int) bool { return targetsHit[i] < targetsHit[j] })

	var paths []Path
	for _, target := range targetsHit {
		if len(paths) >= maxPaths {
			break
		}
		for _, seq := range reconstruct(target, parents, sourceEdges) {
			if len(paths) >= maxPaths {
				break
			}
			paths = append(paths, idx.describe(seq))
		}
	}
	return paths
}

func reconstruct(target int64, parents map[int64][]int64, sources []int64) [][]int64 {
	isSource := make(map[int64]bool, len(sources))
	for _, s := range sources {
		isSource[s] = true
	}
	var out [][]int64
	var walk func(e int64, suffix []int64)
	walk = func(e int64, suffix []int64) {
		path := append([]int64{e}, suffix...)
		if isSource[e] {
			out = append(out, path)
			return
		}
		for _, p := range parents[e] {
			walk(p, path)
		}
	}
	walk(target, nil)
	return out
}

func (idx *Index) describe(edgeSeq []int64) Path {
	p := Path{EdgeIDs: edgeSeq}
	for i := 0; i+1 < len(edgeSeq); i++ {
		var labels []string
		for n := range idx.edgeToNodes[edgeSeq[i]] {
			if idx.edgeToNodes[edgeSeq[i+1]][n] {
				labels = append(labels, idx.nodeLabels[n])
			}
		}
		sort.Strings(labels)
		p.HopNodeLabels = append(p.HopNodeLabels, labels)
	}
	return p
}

func sortedEdges(m map[int64]bool) []int64 {
	out := make([]int64, 0, len(m))
	for e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func setOf(m map[int64]bool) map[int64]bool {
	out := make(map[int64]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

func appendUnique(s []int64, v int64) []int64 {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}
