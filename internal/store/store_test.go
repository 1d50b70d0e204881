package store_test

import (
	"context"
	"errors"
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

func TestOpen_MemoryBackendReportsInMemory(t *testing.T) {
	db := newTestStore(t)
	assert.True(t, db.InMemory())
}

func TestUpsertFeedItem_IsIdempotentOnGUID(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	id1, err := db.UpsertFeedItem(ctx, store.FeedItem{GUID: "guid-1", Title: "First"})
	require.NoError(t, err)
	id2, err := db.UpsertFeedItem(ctx, store.FeedItem{GUID: "guid-1", Title: "Updated"})
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	item, found, err := db.GetFeedItem(ctx, id1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Updated", item.Title)
}

func TestUpsertNodeAndEdge_RoundTrip(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	nodeRowID, err := db.UpsertNode(ctx, "acme", "Acme", "entity")
	require.NoError(t, err)
	node, found, err := db.GetNode(ctx, nodeRowID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "acme", node.NodeID)

	edgeRowID, err := db.UpsertEdge(ctx, "partnered_with_chunk0_0", "partnered with", nil)
	require.NoError(t, err)
	edge, found, err := db.GetEdgeByEdgeID(ctx, "partnered_with_chunk0_0")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, edgeRowID, edge.ID)

	_, err = db.UpsertIncidence(ctx, edgeRowID, nodeRowID, store.RoleSource, 0)
	require.NoError(t, err)

	incidences, err := db.IncidencesForEdge(ctx, edgeRowID)
	require.NoError(t, err)
	require.Len(t, incidences, 1)
	assert.Equal(t, store.RoleSource, incidences[0].Role)
}

func TestWrite_RollsBackOnError(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.Write(ctx, func(ctx context.Context, tx *store.Store) error {
		if _, err := tx.UpsertNode(ctx, "acme", "Acme", "entity"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, found, err := db.GetNodeByNodeID(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteNode_RemovesRow(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	id, err := db.UpsertNode(ctx, "acme", "Acme", "entity")
	require.NoError(t, err)
	require.NoError(t, db.DeleteNode(ctx, id))

	_, found, err := db.GetNode(ctx, id)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStatistics_CountsNodesAndEdges(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	_, err := db.UpsertNode(ctx, "acme", "Acme", "entity")
	require.NoError(t, err)
	_, err = db.UpsertEdge(ctx, "mentioned_chunk0_0", "mentioned", nil)
	require.NoError(t, err)

	nodeCount, edgeCount, _, _, err := db.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, nodeCount)
	assert.Equal(t, 1, edgeCount)
}
