package eventvec

import "math"

// Pool computes the IDF-weighted mean embedding of labels: μ(X) =
// (Σ idf(x)·emb(x)) / Σ idf(x), returning a zero vector of the given
// dimension when the weight sum is zero (no labels, or all have idf 0).
func Pool(labels []string, idf map[string]float64, embeddings map[string][]float64, dim int) []float64 {
	sum := make([]float64, dim)
	var weightSum float64
	for _, label := range labels {
		emb, ok := embeddings[label]
		if !ok {
			continue
		}
		w := idf[label]
		if w == 0 {
			continue
		}
		weightSum += w
		for i := 0; i < dim && i < len(emb); i++ {
			sum[i] += w * emb[i]
		}
	}
	if weightSum == 0 {
		return sum
	}
	for i := range sum {
		sum[i] /= weightSum
	}
	return sum
}

// Normalize L2-normalizes v, returning v unchanged if its norm is zero.
func Normalize(v []float64) []float64 {
	var sumSq float64
	for _, x := range v {
		sumSq += x * x
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func diff(t, s []float64) []float64 {
	out := make([]float64, len(t))
	for i := range out {
		out[i] = t[i] - s[i]
	}
	return out
}

// Build computes the event vector for one hyperedge: concat(sNorm,
// tNorm, diffNorm, familyOneHot), length 3*dim + RelationFamilyCount.
func Build(sourceLabels, targetLabels []string, relationLabel string, idf map[string]float64, embeddings map[string][]float64, dim int) []float64 {
	muS := Pool(sourceLabels, idf, embeddings, dim)
	muT := Pool(targetLabels, idf, embeddings, dim)
	sNorm := Normalize(muS)
	tNorm := Normalize(muT)
	diffNorm := Normalize(diff(muT, muS))
	family := OneHot(relationLabel)

	out := make([]float64, 0, 3*dim+RelationFamilyCount)
	out = append(out, sNorm...)
	out = append(out, tNorm...)
	out = append(out, diffNorm...)
	out = append(out, family...)
	return out
}

// Dim returns the event vector length for a given embedding dimension.
func Dim(embeddingDim int) int { return 3*embeddingDim + RelationFamilyCount }
