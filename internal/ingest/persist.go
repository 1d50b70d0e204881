package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"newsgraph/internal/embedder"
	"newsgraph/internal/store"
)

// PersistArticle runs the article-to-hypergraph persistence algorithm
// for one feed item, as a single write transaction: chunk the content,
// then for every edge upsert its node/incidence/provenance rows, then
// write any node embeddings not already present, then mark the article
// completed. A failure anywhere rolls back the whole transaction and is
// reported as the article's failed status by the caller. chunkEmbed may
// be nil, in which case chunks are persisted without embeddings.
func PersistArticle(ctx context.Context, db *store.Store, feedItemID int64, fullContent string, ex Extraction, embeddingModel string, chunkEmbed embedder.Embedder) error {
	if fullContent == "" {
		return ErrNoContent
	}
	chunks := Chunk(fullContent)

	var chunkVecs [][]float32
	if chunkEmbed != nil && len(chunks) > 0 {
		vecs, err := chunkEmbed.EmbedBatch(ctx, chunks)
		if err != nil {
			return fmt.Errorf("database error: embed chunks: %w", err)
		}
		chunkVecs = vecs
	}

	return db.Write(ctx, func(ctx context.Context, tx *store.Store) error {
		chunkIDs := make([]int64, len(chunks))
		for i, text := range chunks {
			id, err := tx.UpsertChunk(ctx, store.ArticleChunk{FeedItemID: feedItemID, ChunkIndex: i, Content: text})
			if err != nil {
				return fmt.Errorf("database error: upsert chunk %d: %w", i, err)
			}
			chunkIDs[i] = id
			if i < len(chunkVecs) {
				existing, found, err := tx.GetChunk(ctx, id)
				if err != nil {
					return fmt.Errorf("database error: lookup chunk %d: %w", i, err)
				}
				if found && existing.EmbeddedAt == nil {
					key := strconv.FormatInt(id, 10)
					if err := tx.ChunkVectors.Upsert(ctx, key, chunkVecs[i], map[string]string{"chunk_id": key}); err != nil {
						return fmt.Errorf("database error: upsert chunk embedding %d: %w", i, err)
					}
					if err := tx.MarkChunkEmbedded(ctx, id, embeddingModel); err != nil {
						return fmt.Errorf("database error: mark chunk embedded %d: %w", i, err)
					}
				}
			}
		}

		metaByEdge := make(map[string]EdgeMetadata, len(ex.Metadata))
		for _, m := range ex.Metadata {
			metaByEdge[m.Edge] = m
		}

		for edgeID, labels := range ex.Incidence {
			meta, ok := metaByEdge[edgeID]
			relation := edgeID
			if i := strings.IndexByte(edgeID, '_'); i >= 0 && i+1 < len(edgeID) {
				relation = edgeID[i+1:]
			}

			var sourceChunkID *int64
			chunkIndex := -1
			if ok {
				if idx, ok := parseChunkIndex(meta.ChunkID); ok && idx >= 0 && idx < len(chunkIDs) {
					chunkIndex = idx
					id := chunkIDs[idx]
					sourceChunkID = &id
				}
			}

			edgeRowID, err := tx.UpsertEdge(ctx, edgeID, relation, sourceChunkID)
			if err != nil {
				return fmt.Errorf("database error: upsert edge %s: %w", edgeID, err)
			}

			for pos, label := range labels {
				nodeRowID, err := tx.UpsertNode(ctx, label, label, "")
				if err != nil {
					return fmt.Errorf("database error: upsert node %s: %w", label, err)
				}
				role := store.Role("member")
				if ok {
					role = store.Role(meta.role(label))
				}
				if _, err := tx.UpsertIncidence(ctx, edgeRowID, nodeRowID, role, pos); err != nil {
					return fmt.Errorf("database error: upsert incidence %s/%s: %w", edgeID, label, err)
				}
			}

			if chunkIndex >= 0 {
				var chunkText string
				if chunkIndex < len(chunks) {
					chunkText = chunks[chunkIndex]
				}
				if _, err := tx.UpsertProvenance(ctx, store.Provenance{
					EdgeID: edgeRowID, FeedItemID: feedItemID, ChunkIndex: chunkIndex, ChunkText: chunkText,
				}); err != nil {
					return fmt.Errorf("database error: upsert provenance %s: %w", edgeID, err)
				}
			}
		}

		now := time.Now()
		for label, vec := range ex.Embeddings {
			node, found, err := tx.GetNodeByNodeID(ctx, label)
			if err != nil {
				return fmt.Errorf("database error: lookup node %s: %w", label, err)
			}
			if !found {
				continue
			}
			if node.EmbeddedAt != nil {
				continue // idempotent: embedding metadata already present
			}
			if err := tx.NodeVectors.Upsert(ctx, node.NodeID, vec, map[string]string{"node_id": node.NodeID}); err != nil {
				return fmt.Errorf("database error: upsert node embedding %s: %w", label, err)
			}
			if err := tx.MarkNodeEmbedded(ctx, node.ID, embeddingModel); err != nil {
				return fmt.Errorf("database error: mark embedded %s: %w", label, err)
			}
			_ = now
		}

		if err := tx.SetArticleStatus(ctx, store.ArticleStatus{
			FeedItemID: feedItemID, State: store.ArticleCompleted, ChunkCount: len(chunks), FinishedAt: &now,
		}); err != nil {
			return fmt.Errorf("database error: set article status: %w", err)
		}
		return nil
	})
}

// parseChunkIndex extracts N from a chunkID of the form "chunkNNN".
func parseChunkIndex(chunkID string) (int, bool) {
	if !strings.HasPrefix(chunkID, "chunk") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(chunkID, "chunk"))
	if err != nil {
		return 0, false
	}
	return n, true
}
