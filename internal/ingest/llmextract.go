package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"newsgraph/internal/embedder"
	"newsgraph/internal/llm"
	"newsgraph/internal/llmutil"
)

const extractSystemPrompt = `You are an information-extraction engine building a semantic hypergraph from a news article chunk.
For the given chunk, identify n-ary relational events: one verb/relation phrase, an ordered set of source
participants, and an ordered set of target participants, using entity/concept names exactly as they appear
in the text (normalize casing and trim titles, but do not paraphrase).
Respond with a single JSON object of the form:
{"edges": [{"relation": "acquired", "source": ["Acme Corp"], "target": ["Widgets Inc"]}]}
Omit events with no clear target. Respond with JSON only, no commentary.`

// LLMExtractor returns an Extractor that turns each article's chunks
// into hypergraph edges via provider, then embeds every distinct node
// label encountered with nodeEmbed. Chunking uses the same deterministic
// cascade PersistArticle itself relies on, so edge chunk indices line up
// with the chunks PersistArticle will persist.
func LLMExtractor(provider llm.Provider, model string, nodeEmbed embedder.Embedder) Extractor {
	return func(ctx context.Context, feedItemID int64, fullContent string) (Extraction, error) {
		if provider == nil {
			return Extraction{}, ErrNoProvider
		}
		chunks := Chunk(fullContent)
		if len(chunks) == 0 {
			return Extraction{}, ErrNoContent
		}

		ex := Extraction{
			Incidence:  make(map[string][]string),
			Embeddings: make(map[string][]float32),
		}
		labelSeen := make(map[string]bool)
		var labels []string

		for i, chunk := range chunks {
			if ctx.Err() != nil {
				return Extraction{}, ErrCancelled
			}
			edges, err := extractChunkEdges(ctx, provider, model, chunk)
			if err != nil {
				continue // a single unparsable chunk should not fail the whole article
			}
			chunkID := "chunk" + strconv.Itoa(i)
			for k, edge := range edges {
				if len(edge.Source) == 0 || len(edge.Target) == 0 {
					continue
				}
				relation := sanitizeRelation(edge.Relation)
				edgeID := fmt.Sprintf("%s_%s_%d", relation, chunkID, k)

				participants := append(append([]string{}, edge.Source...), edge.Target...)
				ex.Incidence[edgeID] = participants
				ex.Metadata = append(ex.Metadata, EdgeMetadata{
					Edge: edgeID, Source: edge.Source, Target: edge.Target, ChunkID: chunkID,
				})
				for _, label := range participants {
					if !labelSeen[label] {
						labelSeen[label] = true
						labels = append(labels, label)
					}
				}
			}
		}

		if nodeEmbed != nil && len(labels) > 0 {
			vecs, err := nodeEmbed.EmbedBatch(ctx, labels)
			if err != nil {
				return Extraction{}, fmt.Errorf("database error: embed nodes: %w", err)
			}
			for i, label := range labels {
				if i < len(vecs) {
					ex.Embeddings[label] = vecs[i]
				}
			}
		}

		return ex, nil
	}
}

type extractedEdge struct {
	Relation string   `json:"relation"`
	Source   []string `json:"source"`
	Target   []string `json:"target"`
}

func extractChunkEdges(ctx context.Context, provider llm.Provider, model, chunk string) ([]extractedEdge, error) {
	text, err := provider.Chat(ctx, extractSystemPrompt, chunk, model, 0.0)
	if err != nil {
		return nil, err
	}
	text = llmutil.StripCodeFence(text)
	var parsed struct {
		Edges []extractedEdge `json:"edges"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}
	return parsed.Edges, nil
}

// sanitizeRelation collapses a relation phrase to the lowercase,
// underscore-joined token edge_id expects as its prefix.
func sanitizeRelation(relation string) string {
	relation = strings.ToLower(strings.TrimSpace(relation))
	relation = strings.Join(strings.Fields(relation), "_")
	if relation == "" {
		relation = "related_to"
	}
	return relation
}
