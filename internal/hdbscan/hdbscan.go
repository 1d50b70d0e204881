// Package hdbscan implements density-based hierarchical clustering over
// dense float64 vectors using only the standard library. No clustering
// library appears anywhere in the reference corpus this module was
// built against, so this is the one component deliberately built on
// stdlib math rather than a third-party dependency.
package hdbscan

import (
	"math"
	"sort"
)

// Result is the labeling produced by Run: Labels[i] is a positive
// cluster id for clustered points or -1 for noise; Membership[i] is the
// point's soft membership strength in its cluster (0 for noise).
type Result struct {
	Labels       []int
	Membership   []float64
	ClusterCount int
}

// Params configures the clustering run. MinSamples is clamped to the
// data size when larger than N; when N is below MinClusterSize every
// point is labelled noise.
type Params struct {
	MinClusterSize int
	MinSamples     int
}

const (
	DefaultMinClusterSize = 20
	DefaultMinSamples     = 10
)

// Run clusters the rows of X (N points, d dimensions each).
func Run(X [][]float64, params Params) Result {
	n := len(X)
	mcs := params.MinClusterSize
	if mcs <= 0 {
		mcs = DefaultMinClusterSize
	}
	ms := params.MinSamples
	if ms <= 0 {
		ms = DefaultMinSamples
	}
	if ms > n {
		ms = n
	}

	labels := make([]int, n)
	membership := make([]float64, n)
	for i := range labels {
		labels[i] = -1
	}
	if n < 2 || n < mcs {
		return Result{Labels: labels, Membership: membership, ClusterCount: 0}
	}

	dist := pairwiseDistances(X)
	core := coreDistances(dist, ms)
	mr := mutualReachability(dist, core)
	edges := primMST(mr)

	tree := buildMergeTree(edges, n)
	events, splits, parentOf := condense(tree, n, mcs)

	stability := computeStability(events, splitBirths(splits))
	selected := eomSelect(splits, stability)

	finalLabel := make(map[int]int) // emitted label id -> output positive label
	next := 1
	for _, lab := range selected {
		finalLabel[lab] = next
		next++
	}

	type memberEvent struct {
		point       int
		deathLambda float64
		birthLambda float64
	}
	byCluster := make(map[int][]memberEvent)
	ancestorSelected := func(label int) int {
		for {
			if _, ok := finalLabel[label]; ok {
				return label
			}
			parent, ok := parentOf[label]
			if !ok {
				return -1
			}
			label = parent
		}
	}
	births := splitBirths(splits)
	for _, ev := range events {
		sel := ancestorSelected(ev.label)
		if sel == -1 {
			continue
		}
		byCluster[sel] = append(byCluster[sel], memberEvent{point: ev.point, deathLambda: ev.lambda, birthLambda: births[sel]})
	}

	for sel, members := range byCluster {
		out := finalLabel[sel]
		lambdaMax := births[sel]
		for _, m := range members {
			if m.deathLambda > lambdaMax {
				lambdaMax = m.deathLambda
			}
		}
		for _, m := range members {
			labels[m.point] = out
			denom := lambdaMax - m.birthLambda
			score := 1.0
			if denom > 0 {
				score = (m.deathLambda - m.birthLambda) / denom
			}
			if score < 0 {
				score = 0
			}
			if score > 1 {
				score = 1
			}
			membership[m.point] = score
		}
	}

	return Result{Labels: labels, Membership: membership, ClusterCount: len(selected)}
}

// pairwiseDistances computes Euclidean distances via a single matrix
// multiply plus row norms: dist(a,b)² = ||a||² + ||b||² − 2·a·b.
func pairwiseDistances(X [][]float64) [][]float64 {
	n := len(X)
	normSq := make([]float64, n)
	for i, row := range X {
		var s float64
		for _, v := range row {
			s += v * v
		}
		normSq[i] = s
	}
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var dot float64
			a, b := X[i], X[j]
			for k := 0; k < len(a) && k < len(b); k++ {
				dot += a[k] * b[k]
			}
			sq := normSq[i] + normSq[j] - 2*dot
			if sq < 0 {
				sq = 0
			}
			d := math.Sqrt(sq)
			dist[i][j], dist[j][i] = d, d
		}
	}
	return dist
}

func coreDistances(dist [][]float64, k int) []float64 {
	n := len(dist)
	core := make([]float64, n)
	for i := 0; i < n; i++ {
		row := append([]float64(nil), dist[i]...)
		row[i] = math.Inf(1)
		sort.Float64s(row)
		idx := k - 1
		if idx >= n-1 {
			idx = n - 2
		}
		if idx < 0 {
			idx = 0
		}
		core[i] = row[idx]
	}
	return core
}

func mutualReachability(dist [][]float64, core []float64) [][]float64 {
	n := len(dist)
	mr := make([][]float64, n)
	for i := range mr {
		mr[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			v := dist[i][j]
			if core[i] > v {
				v = core[i]
			}
			if core[j] > v {
				v = core[j]
			}
			mr[i][j] = v
		}
	}
	return mr
}

type mstEdge struct {
	u, v   int
	weight float64
}

// primMST builds a minimum spanning tree over the implicit complete
// graph with mutual-reachability weights, breaking ties toward the
// smaller candidate index.
func primMST(mr [][]float64) []mstEdge {
	n := len(mr)
	inTree := make([]bool, n)
	minWeight := make([]float64, n)
	minFrom := make([]int, n)
	for i := range minWeight {
		minWeight[i] = math.Inf(1)
		minFrom[i] = -1
	}
	inTree[0] = true
	for j := 1; j < n; j++ {
		minWeight[j] = mr[0][j]
		minFrom[j] = 0
	}

	var edges []mstEdge
	for added := 1; added < n; added++ {
		best := -1
		for j := 0; j < n; j++ {
			if inTree[j] {
				continue
			}
			if best == -1 || minWeight[j] < minWeight[best] || (minWeight[j] == minWeight[best] && j < best) {
				best = j
			}
		}
		if best == -1 {
			break
		}
		inTree[best] = true
		edges = append(edges, mstEdge{u: minFrom[best], v: best, weight: minWeight[best]})
		for j := 0; j < n; j++ {
			if !inTree[j] && mr[best][j] < minWeight[j] {
				minWeight[j] = mr[best][j]
				minFrom[j] = best
			}
		}
	}
	return edges
}
