package mcpserver

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsgraph/internal/embedder"
	"newsgraph/internal/graphrag"
	"newsgraph/internal/ingest"
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

func TestProcessUnprocessedArticlesHandler_RequiresExtractor(t *testing.T) {
	deps := Deps{DB: newTestStore(t)}
	handler := processUnprocessedArticlesHandler(deps)
	_, _, err := handler(context.Background(), nil, processArticlesInput{})
	assert.Error(t, err)
}

func TestProcessUnprocessedArticlesHandler_ProcessesPendingArticles(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	_, err := db.UpsertFeedItem(ctx, store.FeedItem{GUID: "guid-1", FullContent: "Acme partnered with Widgets."})
	require.NoError(t, err)

	extract := ingest.Extractor(func(ctx context.Context, feedItemID int64, fullContent string) (ingest.Extraction, error) {
		return ingest.Extraction{
			Incidence: map[string][]string{"partnered_with_chunk0_0": {"Acme", "Widgets"}},
			Metadata:  []ingest.EdgeMetadata{{Edge: "partnered_with_chunk0_0", Source: []string{"Acme"}, Target: []string{"Widgets"}, ChunkID: "chunk0"}},
		}, nil
	})

	deps := Deps{DB: db, Extract: extract, EmbeddingModel: "test-model"}
	handler := processUnprocessedArticlesHandler(deps)
	_, out, err := handler(ctx, nil, processArticlesInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Completed)
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

func TestQueryHandler_ReturnsAnswerAndNodeLabels(t *testing.T) {
	db := newTestStore(t)
	emb := embedder.NewDeterministic(8, true, 0)
	provider := &fakeProvider{keywordsJSON: `{"keywords":["acme"]}`, answer: "Acme is a company."}
	svc := graphrag.New(db, emb, provider, graphrag.WithModel("test-model"))

	deps := Deps{DB: db, GraphRAG: svc}
	handler := queryHandler(deps)
	_, out, err := handler(context.Background(), nil, queryInput{Question: "who is acme"})
	require.NoError(t, err)
	assert.Equal(t, "Acme is a company.", out.Answer)
}

func TestRunClusteringHandler_EmptyGraphReturnsZeroCounts(t *testing.T) {
	deps := Deps{DB: newTestStore(t)}
	handler := runClusteringHandler(deps)
	_, out, err := handler(context.Background(), nil, runClusteringInput{})
	require.NoError(t, err)
	assert.Equal(t, 0, out.ClusterCount)
	assert.Equal(t, 0, out.EdgeCount)
}

func TestMergeSuggestionsHandler_DefaultsThresholdAndLimit(t *testing.T) {
	deps := Deps{DB: newTestStore(t)}
	handler := mergeSuggestionsHandler(deps)
	_, out, err := handler(context.Background(), nil, mergeSuggestionsInput{})
	require.NoError(t, err)
	assert.Empty(t, out.Suggestions)
}
