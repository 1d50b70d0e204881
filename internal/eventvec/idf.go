// Package eventvec computes IDF-weighted event vectors for hyperedges:
// a source/target/diff embedding triple concatenated with a one-hot
// relation-family classification, consumed by the clustering pipeline.
package eventvec

import "math"

// IDFMax clamps rare-entity weight.
const IDFMax = 6.0

// ComputeIDF returns idf(node) = min(log((N+1)/(df+1)) + 1, IDFMax) for
// every node in df, where N is the total edge count and df[node] is the
// number of distinct edges incident to that node.
func ComputeIDF(df map[string]int, totalEdges int) map[string]float64 {
	idf := make(map[string]float64, len(df))
	n := float64(totalEdges)
	for node, d := range df {
		v := math.Log((n+1)/(float64(d)+1)) + 1
		if v > IDFMax {
			v = IDFMax
		}
		idf[node] = v
	}
	return idf
}
