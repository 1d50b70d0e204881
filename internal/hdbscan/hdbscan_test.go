package hdbscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clusterAround(center []float64, n int, jitter float64) [][]float64 {
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		offset := jitter * float64(i%3-1)
		out[i] = []float64{center[0] + offset, center[1] + offset}
	}
	return out
}

func TestRun_SeparatesTwoDenseClusters(t *testing.T) {
	var points [][]float64
	points = append(points, clusterAround([]float64{0, 0}, 8, 0.01)...)
	points = append(points, clusterAround([]float64{100, 100}, 8, 0.01)...)

	res := Run(points, Params{MinClusterSize: 4, MinSamples: 3})

	require.Equal(t, len(points), len(res.Labels))
	firstGroupLabel := res.Labels[0]
	secondGroupLabel := res.Labels[8]
	assert.NotEqual(t, -1, firstGroupLabel)
	assert.NotEqual(t, -1, secondGroupLabel)
	assert.NotEqual(t, firstGroupLabel, secondGroupLabel)
	for _, l := range res.Labels[:8] {
		assert.Equal(t, firstGroupLabel, l)
	}
	for _, l := range res.Labels[8:] {
		assert.Equal(t, secondGroupLabel, l)
	}
}

func TestRun_TooFewPointsYieldsAllNoise(t *testing.T) {
	res := Run([][]float64{{0, 0}}, Params{})
	assert.Equal(t, []int{-1}, res.Labels)
	assert.Equal(t, 0, res.ClusterCount)
}

func TestRun_FewerPointsThanMinClusterSizeYieldsNoise(t *testing.T) {
	points := [][]float64{{0, 0}, {0.1, 0.1}, {0.2, 0.2}}
	res := Run(points, Params{MinClusterSize: 10, MinSamples: 2})
	assert.Equal(t, 0, res.ClusterCount)
	for _, l := range res.Labels {
		assert.Equal(t, -1, l)
	}
}

func TestRun_MembershipWithinUnitRange(t *testing.T) {
	var points [][]float64
	points = append(points, clusterAround([]float64{0, 0}, 8, 0.05)...)
	res := Run(points, Params{MinClusterSize: 4, MinSamples: 3})
	for _, m := range res.Membership {
		assert.GreaterOrEqual(t, m, 0.0)
		assert.LessOrEqual(t, m, 1.0)
	}
}
