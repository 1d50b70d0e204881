package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsgraph/internal/embedder"
	"newsgraph/internal/llm"
)

type fakeProvider struct {
	response string
	err      error
	calls    int
}

func (f *fakeProvider) Chat(ctx context.Context, system, user, model string, temperature float64) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeProvider) ChatStream(ctx context.Context, system, user, model string, temperature float64, h llm.StreamHandler) error {
	text, err := f.Chat(ctx, system, user, model, temperature)
	if err != nil {
		return err
	}
	h.OnDelta(text)
	return nil
}

func TestLLMExtractor_ParsesFencedJSON(t *testing.T) {
	provider := &fakeProvider{response: "```json\n{\"edges\":[{\"relation\":\"acquired\",\"source\":[\"Acme Corp\"],\"target\":[\"Widgets Inc\"]}]}\n```"}
	extract := LLMExtractor(provider, "test-model", embedder.NewDeterministic(8, true, 0))

	ex, err := extract(context.Background(), 1, "Acme Corp acquired Widgets Inc today.")
	require.NoError(t, err)

	require.Len(t, ex.Incidence, 1)
	require.Len(t, ex.Metadata, 1)
	assert.Equal(t, "source", ex.Metadata[0].role("Acme Corp"))
	assert.Equal(t, "target", ex.Metadata[0].role("Widgets Inc"))
	assert.Equal(t, []string{"Acme Corp"}, ex.Metadata[0].Source)
	assert.Equal(t, []string{"Widgets Inc"}, ex.Metadata[0].Target)
	assert.Len(t, ex.Embeddings, 2)
	assert.Contains(t, ex.Embeddings, "Acme Corp")
	assert.Contains(t, ex.Embeddings, "Widgets Inc")
}

func TestLLMExtractor_SkipsEdgesMissingParticipants(t *testing.T) {
	provider := &fakeProvider{response: `{"edges":[{"relation":"mentioned","source":[],"target":["Someone"]}]}`}
	extract := LLMExtractor(provider, "test-model", nil)

	ex, err := extract(context.Background(), 1, "Some short article body.")
	require.NoError(t, err)
	assert.Empty(t, ex.Incidence)
}

func TestLLMExtractor_NoProviderReturnsSentinel(t *testing.T) {
	extract := LLMExtractor(nil, "test-model", nil)
	_, err := extract(context.Background(), 1, "content")
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestLLMExtractor_EmptyContentReturnsSentinel(t *testing.T) {
	provider := &fakeProvider{response: `{"edges":[]}`}
	extract := LLMExtractor(provider, "test-model", nil)
	_, err := extract(context.Background(), 1, "")
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestSanitizeRelation(t *testing.T) {
	assert.Equal(t, "acquired", sanitizeRelation("Acquired"))
	assert.Equal(t, "is_partnered_with", sanitizeRelation("  is partnered with  "))
	assert.Equal(t, "related_to", sanitizeRelation(""))
}
