package merge

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsgraph/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(context.Background(), store.Config{Backend: "memory"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func seedNode(t *testing.T, db *store.Store, nodeID, label string, vec []float32) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := db.UpsertNode(ctx, nodeID, label, "entity")
	require.NoError(t, err)
	require.NoError(t, db.NodeVectors.Upsert(ctx, nodeID, vec, nil))
	require.NoError(t, db.MarkNodeEmbedded(ctx, id, "test-model"))
	return id
}

func TestFindSimilarNodes_ExcludesProbeAndBelowThreshold(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	seedNode(t, db, "acme", "Acme", []float32{1, 0})
	seedNode(t, db, "acme-corp", "Acme Corp", []float32{0.99, 0.01})
	seedNode(t, db, "unrelated", "Totally Different", []float32{0, 1})

	cands, err := FindSimilarNodes(ctx, db, "acme", 0.9, 10)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "Acme Corp", cands[0].Node.Label)
}

func TestFindSimilarNodes_UnknownNode(t *testing.T) {
	db := newTestStore(t)
	_, err := FindSimilarNodes(context.Background(), db, "missing", 0, 0)
	assert.Error(t, err)
}

func TestGetMergeSuggestions_CanonicalPairOrderAndDedup(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	id1 := seedNode(t, db, "acme", "Acme", []float32{1, 0})
	id2 := seedNode(t, db, "acme-corp", "Acme Corp", []float32{0.99, 0.01})

	suggestions, err := GetMergeSuggestions(ctx, db, 0.9, 10)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)

	want1, want2 := id1, id2
	if want1 > want2 {
		want1, want2 = want2, want1
	}
	assert.Equal(t, want1, suggestions[0].ID1)
	assert.Equal(t, want2, suggestions[0].ID2)
}

func TestMerge_RepointsIncidencesAndDeletesSource(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	sourceID := seedNode(t, db, "acme-corp", "Acme Corp", []float32{1, 0})
	targetID := seedNode(t, db, "acme", "Acme", []float32{0.99, 0.01})

	edgeID, err := db.UpsertEdge(ctx, "partnered_with_chunk0_0", "partnered with", nil)
	require.NoError(t, err)
	_, err = db.UpsertIncidence(ctx, edgeID, sourceID, store.RoleSource, 0)
	require.NoError(t, err)

	require.NoError(t, Merge(ctx, db, sourceID, targetID, 0.95))

	_, found, err := db.GetNode(ctx, sourceID)
	require.NoError(t, err)
	assert.False(t, found)

	incidences, err := db.IncidencesForNode(ctx, targetID)
	require.NoError(t, err)
	require.Len(t, incidences, 1)
	assert.Equal(t, edgeID, incidences[0].EdgeID)
}

func TestMerge_EdgeWithOnlySourceIncidenceSurvives(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	sourceID := seedNode(t, db, "acme-corp", "Acme Corp", []float32{1, 0})
	targetID := seedNode(t, db, "acme", "Acme", []float32{0.99, 0.01})

	// Edge with only the source node as a member: repointing moves that
	// single incidence onto the target, so the edge still has one
	// incidence and is not garbage-collected.
	edgeID, err := db.UpsertEdge(ctx, "mentioned_chunk0_0", "mentioned", nil)
	require.NoError(t, err)
	_, err = db.UpsertIncidence(ctx, edgeID, sourceID, store.RoleSource, 0)
	require.NoError(t, err)

	require.NoError(t, Merge(ctx, db, sourceID, targetID, 0.9))

	has, err := db.EdgeHasIncidences(ctx, edgeID)
	require.NoError(t, err)
	assert.True(t, has)
}
