package ingest

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsgraph/internal/embedder"
	"newsgraph/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(context.Background(), store.Config{Backend: "memory"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestPersistArticle_UpsertIsIdempotent(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	feedItemID, err := db.UpsertFeedItem(ctx, store.FeedItem{GUID: "guid-1", FullContent: "Acme partnered with Widgets."})
	require.NoError(t, err)

	ex := Extraction{
		Incidence: map[string][]string{
			"partnered_with_chunk0_0": {"Acme", "Widgets"},
		},
		Metadata: []EdgeMetadata{
			{Edge: "partnered_with_chunk0_0", Source: []string{"Acme"}, Target: []string{"Widgets"}, ChunkID: "chunk0"},
		},
		Embeddings: map[string][]float32{
			"Acme":    {0.1, 0.2},
			"Widgets": {0.3, 0.4},
		},
	}

	require.NoError(t, PersistArticle(ctx, db, feedItemID, "Acme partnered with Widgets.", ex, "test-model", nil))
	require.NoError(t, PersistArticle(ctx, db, feedItemID, "Acme partnered with Widgets.", ex, "test-model", nil))

	edges, err := db.AllEdges(ctx)
	require.NoError(t, err)
	assert.Len(t, edges, 1)

	nodes, err := db.AllNodes(ctx)
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	incidences, err := db.AllIncidences(ctx)
	require.NoError(t, err)
	assert.Len(t, incidences, 2)

	for _, n := range nodes {
		assert.NotNil(t, n.EmbeddedAt)
	}
}

func TestPersistArticle_EmptyContentReturnsSentinel(t *testing.T) {
	db := newTestStore(t)
	err := PersistArticle(context.Background(), db, 1, "", Extraction{}, "model", nil)
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestPersistArticle_EmbedsChunksWhenEmbedderProvided(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	feedItemID, err := db.UpsertFeedItem(ctx, store.FeedItem{GUID: "guid-2", FullContent: "A single short chunk of text."})
	require.NoError(t, err)

	ex := Extraction{Incidence: map[string][]string{}, Embeddings: map[string][]float32{}}
	require.NoError(t, PersistArticle(ctx, db, feedItemID, "A single short chunk of text.", ex, "test-model", embedder.NewDeterministic(8, true, 0)))

	chunks := Chunk("A single short chunk of text.")
	require.Len(t, chunks, 1)

	stored, err := db.ListChunks(ctx, feedItemID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotNil(t, stored[0].EmbeddedAt)
}
