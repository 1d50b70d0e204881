package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_SingleParagraphBelowTarget(t *testing.T) {
	chunks := Chunk("A short article body.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "A short article body.", chunks[0])
}

func TestChunk_PacksMultipleParagraphsTogether(t *testing.T) {
	chunks := Chunk("First paragraph.\n\nSecond paragraph.\n\nThird paragraph.")
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "First paragraph.")
	assert.Contains(t, chunks[0], "Third paragraph.")
}

func TestChunk_SplitsOversizedParagraphOnSentences(t *testing.T) {
	sentence := strings.Repeat("word ", 20) + "end."
	big := strings.Repeat(sentence+" ", 10)
	chunks := Chunk(big)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), TargetChunkSize+len(sentence))
	}
}

func TestChunk_IsDeterministic(t *testing.T) {
	text := "Paragraph one.\n\nParagraph two with more words in it to pad length out a bit."
	first := Chunk(text)
	second := Chunk(text)
	assert.Equal(t, first, second)
}

func TestChunk_EmptyInputYieldsNoChunks(t *testing.T) {
	assert.Empty(t, Chunk(""))
	assert.Empty(t, Chunk("   \n\n   "))
}
