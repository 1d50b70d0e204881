package hdbscan

import (
	"math"
	"sort"
)

// mergeTree is the full binary merge tree built from the MST: nodes
// 0..n-1 are the original points (leaves); nodes n..2n-2 are merges,
// each recording the two child nodes and the MST edge weight that
// created it.
type mergeTree struct {
	n       int
	left    []int
	right   []int
	size    []int
	weight  []float64
	root    int
}

func buildMergeTree(edges []mstEdge, n int) *mergeTree {
	sort.Slice(edges, func(i, j int) bool { return edges[i].weight < edges[j].weight })

	total := 2*n - 1
	t := &mergeTree{
		n:      n,
		left:   make([]int, total),
		right:  make([]int, total),
		size:   make([]int, total),
		weight: make([]float64, total),
	}
	for i := 0; i < n; i++ {
		t.size[i] = 1
		t.left[i], t.right[i] = -1, -1
	}

	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	topNode := make([]int, n)
	for i := range topNode {
		topNode[i] = i
	}

	next := n
	for _, e := range edges {
		ru, rv := find(e.u), find(e.v)
		if ru == rv {
			continue
		}
		leftNode, rightNode := topNode[ru], topNode[rv]
		node := next
		next++
		t.left[node] = leftNode
		t.right[node] = rightNode
		t.size[node] = t.size[leftNode] + t.size[rightNode]
		t.weight[node] = e.weight
		parent[ru] = rv
		newRoot := find(rv)
		topNode[newRoot] = node
		t.root = node
	}
	return t
}

func lambdaOf(weight float64) float64 {
	if weight <= 0 {
		return math.Inf(1)
	}
	return 1.0 / weight
}

// falloutEvent records one original point leaving its active cluster
// label at a given lambda, either because it fell out of a chain or
// because it was the last point inside a label before that label split.
type falloutEvent struct {
	label  int
	point  int
	lambda float64
}

// splitEvent records a real split: parent label dividing into two new
// child labels at the given birth lambda.
type splitEvent struct {
	parent, left, right int
	lambda              float64
}

// condense walks the merge tree top-down, producing fallout events and
// split events per the condensed-tree construction in the clustering
// design. It returns parentOf mapping every emitted label to its parent
// label (label 0, the root, has no parent).
func condense(t *mergeTree, n, minClusterSize int) ([]falloutEvent, []splitEvent, map[int]int) {
	var events []falloutEvent
	var splits []splitEvent
	parentOf := make(map[int]int)
	nextLabel := 1

	var collectLeaves func(node int, out *[]int)
	collectLeaves = func(node int, out *[]int) {
		if node < n {
			*out = append(*out, node)
			return
		}
		collectLeaves(t.left[node], out)
		collectLeaves(t.right[node], out)
	}

	var walk func(node, label int)
	walk = func(node, label int) {
		if node < n {
			// A leaf reached directly under label means this point was
			// never part of any merge distinguishable from its siblings;
			// treat it as falling out at the label's own birth lambda.
			events = append(events, falloutEvent{label: label, point: node, lambda: lambdaOf(t.weight[node])})
			return
		}
		left, right := t.left[node], t.right[node]
		lsize, rsize := t.size[left], t.size[right]
		lam := lambdaOf(t.weight[node])

		switch {
		case lsize >= minClusterSize && rsize >= minClusterSize:
			leftLabel, rightLabel := nextLabel, nextLabel+1
			nextLabel += 2
			splits = append(splits, splitEvent{parent: label, left: leftLabel, right: rightLabel, lambda: lam})
			parentOf[leftLabel] = label
			parentOf[rightLabel] = label
			walk(left, leftLabel)
			walk(right, rightLabel)
		case lsize < minClusterSize && rsize < minClusterSize:
			var leaves []int
			collectLeaves(left, &leaves)
			collectLeaves(right, &leaves)
			for _, p := range leaves {
				events = append(events, falloutEvent{label: label, point: p, lambda: lam})
			}
		default:
			small, big := left, right
			if lsize >= minClusterSize {
				small, big = right, left
			}
			var leaves []int
			collectLeaves(small, &leaves)
			for _, p := range leaves {
				events = append(events, falloutEvent{label: label, point: p, lambda: lam})
			}
			walk(big, label)
		}
	}

	walk(t.root, 0)
	return events, splits, parentOf
}

// splitBirths returns the birth lambda for every emitted label: 0 for
// the root (present from the coarsest scale of the hierarchy) and the
// split lambda for every child label.
func splitBirths(splits []splitEvent) map[int]float64 {
	births := map[int]float64{0: 0}
	for _, s := range splits {
		births[s.left] = s.lambda
		births[s.right] = s.lambda
	}
	return births
}

// computeStability sums, per label, (lambda_death(p) - lambda_birth(label))
// across every fallout event recorded directly under that label.
func computeStability(events []falloutEvent, births map[int]float64) map[int]float64 {
	stability := make(map[int]float64)
	for _, ev := range events {
		lambda := ev.lambda
		if math.IsInf(lambda, 1) {
			continue
		}
		stability[ev.label] += lambda - births[ev.label]
	}
	return stability
}
