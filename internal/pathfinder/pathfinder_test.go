package pathfinder

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

// seedChain builds A -[e1]- B -[e2]- C, where e1 and e2 share node B,
// so a 1-connected BFS from A to C should find a single two-hop path.
func seedChain(t *testing.T, db *store.Store) (a, b, c int64) {
	t.Helper()
	ctx := context.Background()

	a, err := db.UpsertNode(ctx, "a", "Alpha", "entity")
	require.NoError(t, err)
	b, err = db.UpsertNode(ctx, "b", "Bravo", "entity")
	require.NoError(t, err)
	c, err = db.UpsertNode(ctx, "c", "Charlie", "entity")
	require.NoError(t, err)

	e1, err := db.UpsertEdge(ctx, "partnered_with_chunk0_0", "partnered with", nil)
	require.NoError(t, err)
	_, err = db.UpsertIncidence(ctx, e1, a, store.RoleSource, 0)
	require.NoError(t, err)
	_, err = db.UpsertIncidence(ctx, e1, b, store.RoleTarget, 1)
	require.NoError(t, err)

	e2, err := db.UpsertEdge(ctx, "acquired_chunk0_1", "acquired", nil)
	require.NoError(t, err)
	_, err = db.UpsertIncidence(ctx, e2, b, store.RoleSource, 0)
	require.NoError(t, err)
	_, err = db.UpsertIncidence(ctx, e2, c, store.RoleTarget, 1)
	require.NoError(t, err)

	return a, b, c
}

func TestBuildIndex_LoadsIncidencesAndLabels(t *testing.T) {
	db := newTestStore(t)
	a, _, _ := seedChain(t, db)

	idx, err := BuildIndex(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", idx.nodeLabels[a])
	assert.NotEmpty(t, idx.edgeOrder)
}

func TestFindPaths_DiscoversTwoHopChain(t *testing.T) {
	db := newTestStore(t)
	a, _, c := seedChain(t, db)

	idx, err := BuildIndex(context.Background(), db)
	require.NoError(t, err)

	paths := FindPaths(idx, []int64{a, c}, 1, DefaultDepthCap, DefaultMaxPaths)
	key := [2]int64{a, c}
	if a > c {
		key = [2]int64{c, a}
	}
	require.Contains(t, paths, key)
	require.NotEmpty(t, paths[key])
	assert.Len(t, paths[key][0].EdgeIDs, 2)
}

func TestFindPaths_NoConnectionReturnsEmpty(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	x, err := db.UpsertNode(ctx, "x", "X", "entity")
	require.NoError(t, err)
	y, err := db.UpsertNode(ctx, "y", "Y", "entity")
	require.NoError(t, err)

	idx, err := BuildIndex(ctx, db)
	require.NoError(t, err)

	paths := FindPaths(idx, []int64{x, y}, 1, DefaultDepthCap, DefaultMaxPaths)
	assert.Empty(t, paths)
}

func TestFindPaths_HigherSThresholdPrunesWeakAdjacency(t *testing.T) {
	db := newTestStore(t)
	a, _, c := seedChain(t, db)

	idx, err := BuildIndex(context.Background(), db)
	require.NoError(t, err)

	// The two edges in the chain share exactly one node, so requiring
	// s=2 shared members removes the adjacency entirely.
	paths := FindPaths(idx, []int64{a, c}, 2, DefaultDepthCap, DefaultMaxPaths)
	assert.Empty(t, paths)
}
