package clustering

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsgraph/internal/llm"
	"newsgraph/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(context.Background(), store.Config{Backend: "memory"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func seedEmbeddedNode(t *testing.T, db *store.Store, nodeID, label string, vec []float32) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := db.UpsertNode(ctx, nodeID, label, "entity")
	require.NoError(t, err)
	require.NoError(t, db.NodeVectors.Upsert(ctx, nodeID, vec, nil))
	require.NoError(t, db.MarkNodeEmbedded(ctx, id, "test-model"))
	return id
}

func TestRunFullPipeline_NoEdgesReturnsEmptyResult(t *testing.T) {
	db := newTestStore(t)
	res, err := RunFullPipeline(context.Background(), db, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ClusterCount)
	assert.Equal(t, 0, res.EdgeCount)
	assert.NotEmpty(t, res.BuildID)
}

func TestRunFullPipeline_PersistsClustersForDenseGroup(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	acme := seedEmbeddedNode(t, db, "acme", "Acme", []float32{1, 0})
	widgets := seedEmbeddedNode(t, db, "widgets", "Widgets", []float32{0, 1})

	// Several near-identical "partnered with" edges between the same two
	// entities, enough to clear a small MinClusterSize/MinSamples.
	for i := 0; i < 6; i++ {
		edgeID, err := db.UpsertEdge(ctx, "partnered_with_chunk"+string(rune('0'+i))+"_0", "partnered with", nil)
		require.NoError(t, err)
		_, err = db.UpsertIncidence(ctx, edgeID, acme, store.RoleSource, 0)
		require.NoError(t, err)
		_, err = db.UpsertIncidence(ctx, edgeID, widgets, store.RoleTarget, 1)
		require.NoError(t, err)
	}

	res, err := RunFullPipeline(ctx, db, Options{MinClusterSize: 3, MinSamples: 2, EmbeddingDim: 2})
	require.NoError(t, err)
	assert.Equal(t, 6, res.EdgeCount)
	assert.NotEmpty(t, res.BuildID)

	clusters, err := db.ListClusters(ctx, res.BuildID)
	require.NoError(t, err)
	if res.ClusterCount > 0 {
		require.NotEmpty(t, clusters)
		assert.NotEmpty(t, clusters[0].Label)
		assert.NotEmpty(t, clusters[0].TopEntitiesJSON)
	}
}

type fakeChatOnly struct {
	response string
}

func (f *fakeChatOnly) Chat(ctx context.Context, system, user, model string, temperature float64) (string, error) {
	return f.response, nil
}

func (f *fakeChatOnly) ChatStream(ctx context.Context, system, user, model string, temperature float64, h llm.StreamHandler) error {
	h.OnDelta(f.response)
	return nil
}

func TestLabelWithLLM_ParsesTitleAndSummary(t *testing.T) {
	c := store.Cluster{TopEntitiesJSON: []byte(`["Acme","Widgets"]`), TopFamiliesJSON: []byte(`["partnership"]`)}
	title, summary, ok := labelWithLLM(context.Background(), &fakeChatOnly{response: `{"title":"Acme-Widgets Partnership","summary":"A recurring deal."}`}, "test-model", c)
	assert.True(t, ok)
	assert.Equal(t, "Acme-Widgets Partnership", title)
	assert.Equal(t, "A recurring deal.", summary)
}

func TestLabelWithLLM_EmptyTitleFails(t *testing.T) {
	c := store.Cluster{}
	_, _, ok := labelWithLLM(context.Background(), &fakeChatOnly{response: `{"title":"","summary":""}`}, "test-model", c)
	assert.False(t, ok)
}
