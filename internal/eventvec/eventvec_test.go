package eventvec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_FirstMatchingFamilyWins(t *testing.T) {
	assert.Equal(t, "acquisitionInvestment", FamilyName("Acme acquired Widgets Inc"))
	assert.Equal(t, "partnership", FamilyName("Acme partnered with Widgets"))
	assert.Equal(t, "other", FamilyName("Acme mentioned Widgets in passing"))
}

func TestOneHot_ExactlyOneHotIndex(t *testing.T) {
	v := OneHot("the company was hacked last week")
	var onCount int
	for _, x := range v {
		if x == 1.0 {
			onCount++
		}
	}
	assert.Equal(t, 1, onCount)
	assert.Len(t, v, RelationFamilyCount)
}

func TestComputeIDF_ClampsAtMax(t *testing.T) {
	idf := ComputeIDF(map[string]int{"rare": 0, "common": 1000}, 1000)
	assert.LessOrEqual(t, idf["rare"], IDFMax)
	assert.Greater(t, idf["rare"], idf["common"])
}

func TestPool_WeightedMeanAndZeroFallback(t *testing.T) {
	idf := map[string]float64{"a": 1, "b": 3}
	emb := map[string][]float64{"a": {1, 0}, "b": {0, 1}}

	mean := Pool([]string{"a", "b"}, idf, emb, 2)
	assert.InDelta(t, 0.25, mean[0], 1e-9)
	assert.InDelta(t, 0.75, mean[1], 1e-9)

	zero := Pool([]string{"unknown"}, idf, emb, 2)
	assert.Equal(t, []float64{0, 0}, zero)
}

func TestNormalize_ZeroVectorUnchanged(t *testing.T) {
	assert.Equal(t, []float64{0, 0}, Normalize([]float64{0, 0}))
	unit := Normalize([]float64{3, 4})
	assert.InDelta(t, 1.0, math.Hypot(unit[0], unit[1]), 1e-9)
}

func TestBuild_ProducesExpectedLength(t *testing.T) {
	idf := map[string]float64{"Acme": 2, "Widgets": 2}
	emb := map[string][]float64{"Acme": {1, 0}, "Widgets": {0, 1}}

	v := Build([]string{"Acme"}, []string{"Widgets"}, "partnered with", idf, emb, 2)
	assert.Len(t, v, Dim(2))
	assert.Equal(t, 3*2+RelationFamilyCount, Dim(2))
}
