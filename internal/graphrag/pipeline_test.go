package graphrag

import (
	"context"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsgraph/internal/embedder"
	"newsgraph/internal/llm"
	"newsgraph/internal/observability"
	"newsgraph/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(context.Background(), store.Config{Backend: "memory"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

type fakeProvider struct {
	keywordsJSON string
	answer       string
}

func (f *fakeProvider) Chat(ctx context.Context, system, user, model string, temperature float64) (string, error) {
	return f.keywordsJSON, nil
}

func (f *fakeProvider) ChatStream(ctx context.Context, system, user, model string, temperature float64, h llm.StreamHandler) error {
	h.OnDelta(f.answer)
	return nil
}

func TestAsk_CompletesWithAnswerAndPersistsHistory(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	emb := embedder.NewDeterministic(16, true, 0)

	nodeVec, err := emb.EmbedBatch(ctx, []string{"acme"})
	require.NoError(t, err)
	nodeID, err := db.UpsertNode(ctx, "acme", "Acme", "entity")
	require.NoError(t, err)
	require.NoError(t, db.NodeVectors.Upsert(ctx, "acme", nodeVec[0], nil))
	require.NoError(t, db.MarkNodeEmbedded(ctx, nodeID, "test-model"))

	feedItemID, err := db.UpsertFeedItem(ctx, store.FeedItem{GUID: "guid-1", Title: "Acme News", FullContent: "Acme partnered with Widgets."})
	require.NoError(t, err)
	chunkID, err := db.UpsertChunk(ctx, store.ArticleChunk{FeedItemID: feedItemID, ChunkIndex: 0, Content: "Acme partnered with Widgets."})
	require.NoError(t, err)
	chunkVec, err := emb.EmbedBatch(ctx, []string{"what did acme do"})
	require.NoError(t, err)
	require.NoError(t, db.ChunkVectors.Upsert(ctx, strconv.FormatInt(chunkID, 10), chunkVec[0], nil))

	provider := &fakeProvider{keywordsJSON: `{"keywords":["acme"]}`, answer: "Acme partnered with Widgets."}
	svc := New(db, emb, provider, WithModel("test-model"))

	var final *Response
	for ev := range svc.Ask(ctx, "what did acme do") {
		if ev.Type == EventFailed {
			t.Fatalf("pipeline failed: %v", ev.Err)
		}
		if ev.Type == EventCompleted {
			final = ev.Response
		}
	}

	require.NotNil(t, final)
	assert.Equal(t, "Acme partnered with Widgets.", final.Answer)
	assert.NotZero(t, final.HistoryID)

	row, found, err := db.GetQueryHistory(ctx, final.HistoryID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "what did acme do", row.Query)
}

func TestAsk_CancelledContextEmitsFailed(t *testing.T) {
	db := newTestStore(t)
	emb := embedder.NewDeterministic(8, true, 0)
	provider := &fakeProvider{keywordsJSON: `{"keywords":["x"]}`, answer: "answer"}
	svc := New(db, emb, provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var gotFailed bool
	for ev := range svc.Ask(ctx, "anything") {
		if ev.Type == EventFailed {
			gotFailed = true
			assert.ErrorIs(t, ev.Err, context.Canceled)
		}
	}
	assert.True(t, gotFailed)
}

func TestAsk_RecordsPerPhaseMetrics(t *testing.T) {
	db := newTestStore(t)
	emb := embedder.NewDeterministic(8, true, 0)
	provider := &fakeProvider{keywordsJSON: `{"keywords":["acme"]}`, answer: "answer"}
	metrics := observability.NewMockMetrics()
	svc := New(db, emb, provider, WithMetrics(metrics))

	for range svc.Ask(context.Background(), "what is acme") {
	}

	for _, phase := range []string{"keyword_extract", "node_retrieval", "chunk_retrieval", "path_gather", "answer_generate", "persist_history"} {
		assert.Equal(t, 1, metrics.Counters[phase+"_total"], "phase %s", phase)
		assert.Len(t, metrics.Hists[phase+"_duration_ms"], 1, "phase %s", phase)
	}
}

func TestFallbackKeywords_SkipsStopWordsAndShortTokens(t *testing.T) {
	words := fallbackKeywords("What is the relationship between Acme and Widgets?", defaultStopWords(), 5)
	assert.Contains(t, words, "relationship")
	assert.Contains(t, words, "acme")
	assert.Contains(t, words, "widgets")
	assert.NotContains(t, words, "the")
	assert.NotContains(t, words, "is")
}
