package graphrag

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"newsgraph/internal/analytics"
	"newsgraph/internal/llm"
	"newsgraph/internal/llmutil"
	"newsgraph/internal/pathfinder"
	"newsgraph/internal/store"
)

const keywordSystemPrompt = `Extract the most important search keywords from the user's question.
Respond with a single JSON object of the form {"keywords": ["...", "..."]}.
Include at most 5 keywords, lowercase, no stopwords. Respond with JSON only.`

const answerSystemPrompt = `You are a research assistant answering questions about a knowledge graph
built from news articles. Ground every claim in the supplied context. Prefer citing
specific relationships and source excerpts over speculation. If the context does not
answer the question, say so plainly instead of guessing.`

// Ask runs the GraphRAG pipeline for question and returns a channel of
// progress events. The channel is closed after a completed or failed
// event. If ctx is cancelled before an answer completes, the pipeline
// emits failed(context.Canceled) and stops.
func (s *Service) Ask(ctx context.Context, question string) <-chan Event {
	out := make(chan Event, 8)
	go s.run(ctx, question, out)
	return out
}

func (s *Service) run(ctx context.Context, question string, out chan<- Event) {
	defer close(out)
	pipelineStart := time.Now()

	emit := func(e Event) bool {
		select {
		case out <- e:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(err error) {
		select {
		case out <- Event{Type: EventFailed, Err: err}:
		default:
			emit(Event{Type: EventFailed, Err: err})
		}
	}

	if ctx.Err() != nil {
		fail(ctx.Err())
		return
	}

	// Phase 1: keyword extraction.
	emit(Event{Type: EventStatus, Status: "extracting keywords"})
	start := time.Now()
	keywords := s.extractKeywords(ctx, question)
	s.observePhase("keyword_extract", time.Since(start), nil)
	if !emit(Event{Type: EventKeywords, Keywords: keywords}) {
		fail(ctx.Err())
		return
	}

	// Phase 2: related nodes via keyword embeddings.
	emit(Event{Type: EventStatus, Status: "finding related concepts"})
	start = time.Now()
	relatedNodes, err := s.findRelatedNodes(ctx, keywords)
	s.observePhase("node_retrieval", time.Since(start), err)
	if err != nil {
		fail(err)
		return
	}
	if !emit(Event{Type: EventRelatedNodes, RelatedNodes: relatedNodes}) {
		fail(ctx.Err())
		return
	}

	// Phase 3: question embedding + chunk retrieval.
	emit(Event{Type: EventStatus, Status: "retrieving source content"})
	start = time.Now()
	chunks, err := s.findRelevantChunks(ctx, question, relatedNodes)
	s.observePhase("chunk_retrieval", time.Since(start), err)
	if err != nil {
		fail(err)
		return
	}

	// Phase 4: path gathering.
	emit(Event{Type: EventStatus, Status: "gathering reasoning paths"})
	start = time.Now()
	reasoningPaths, graphEdges, err := s.gatherPaths(ctx, relatedNodes)
	s.observePhase("path_gather", time.Since(start), err)
	if err != nil {
		fail(err)
		return
	}
	if !emit(Event{Type: EventReasoningPaths, ReasoningPaths: reasoningPaths}) {
		fail(ctx.Err())
		return
	}
	if !emit(Event{Type: EventGraphPaths, GraphPaths: graphEdges}) {
		fail(ctx.Err())
		return
	}

	// Phase 5: answer generation.
	emit(Event{Type: EventStatus, Status: "generating answer"})
	start = time.Now()
	contextMD := formatContext(relatedNodes, reasoningPaths, graphEdges, chunks)
	var answer strings.Builder
	streamErr := s.provider.ChatStream(ctx, answerSystemPrompt, contextMD+"\n\nQuestion: "+question, s.model, 0.3,
		llm.StringStream{OnDeltaFunc: func(delta string) {
			answer.WriteString(delta)
			emit(Event{Type: EventAnswerToken, Token: delta})
		}})
	s.observePhase("answer_generate", time.Since(start), streamErr)
	if streamErr != nil {
		fail(fmt.Errorf("provider_error: %w", streamErr))
		return
	}

	// Phase 6: finalization.
	sourceArticles := groupByArticle(ctx, s.db, chunks)
	if !emit(Event{Type: EventSourceArticles, SourceArticles: sourceArticles}) {
		fail(ctx.Err())
		return
	}

	resp := &Response{
		Query:          question,
		Answer:         answer.String(),
		RelatedNodes:   relatedNodes,
		ReasoningPaths: reasoningPaths,
		GraphPaths:     graphEdges,
		SourceArticles: sourceArticles,
	}
	start = time.Now()
	resp.HistoryID = s.persistHistory(ctx, resp)
	var persistErr error
	if resp.HistoryID == 0 {
		persistErr = fmt.Errorf("persist_history: no row inserted")
	}
	s.observePhase("persist_history", time.Since(start), persistErr)
	s.recordAnalytics(ctx, resp, time.Since(pipelineStart))
	emit(Event{Type: EventCompleted, Response: resp})
}

// recordAnalytics mirrors a completed query's metrics to the optional
// analytics sink. Best-effort: an error here never fails the query.
func (s *Service) recordAnalytics(ctx context.Context, resp *Response, took time.Duration) {
	if s.analytics == nil {
		return
	}
	_ = s.analytics.Record(ctx, analytics.QueryRecord{
		Query:              resp.Query,
		AnswerChars:        len(resp.Answer),
		RelatedNodeCount:   len(resp.RelatedNodes),
		SourceArticleCount: len(resp.SourceArticles),
		LatencyMS:          took.Milliseconds(),
		CompletedAt:        time.Now(),
	})
}

func (s *Service) extractKeywords(ctx context.Context, question string) []string {
	if s.provider != nil {
		text, err := s.provider.Chat(ctx, keywordSystemPrompt, question, s.model, 0.0)
		if err == nil {
			text = llmutil.StripCodeFence(text)
			var parsed struct {
				Keywords []string `json:"keywords"`
			}
			if json.Unmarshal([]byte(text), &parsed) == nil && len(parsed.Keywords) > 0 {
				return capKeywords(parsed.Keywords, 5)
			}
		}
	}
	return fallbackKeywords(question, s.stopWords, 5)
}

func fallbackKeywords(question string, stopWords map[string]bool, limit int) []string {
	fields := strings.Fields(strings.ToLower(question))
	seen := make(map[string]bool)
	var out []string
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:\"'()")
		if len(f) <= 2 || stopWords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func capKeywords(words []string, limit int) []string {
	if len(words) > limit {
		return words[:limit]
	}
	return words
}

func (s *Service) findRelatedNodes(ctx context.Context, keywords []string) ([]NodeRef, error) {
	threshold := float32(1 - defaultKeywordDistance)
	seen := make(map[string]bool)
	type scored struct {
		node  NodeRef
		score float64
	}
	var candidates []scored

	for _, kw := range keywords {
		vec, err := s.embedQuery(ctx, kw)
		if err != nil || len(vec) == 0 {
			continue
		}
		results, err := s.db.NodeVectors.SimilaritySearch(ctx, vec, defaultRelatedNodeLimit, nil)
		if err != nil {
			continue
		}
		for _, r := range results {
			if r.Score < float64(threshold) {
				continue
			}
			if seen[r.ID] {
				continue
			}
			node, found, err := s.db.GetNodeByNodeID(ctx, r.ID)
			if err != nil || !found {
				continue
			}
			seen[r.ID] = true
			candidates = append(candidates, scored{
				node:  NodeRef{NodeID: node.NodeID, Label: node.Label, NodeType: node.NodeType},
				score: r.Score,
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	out := make([]NodeRef, len(candidates))
	for i, c := range candidates {
		out[i] = c.node
	}
	return out, nil
}

func (s *Service) findRelevantChunks(ctx context.Context, question string, related []NodeRef) ([]store.ArticleChunk, error) {
	vec, err := s.embedQuery(ctx, question)
	if err == nil && len(vec) > 0 {
		results, err := s.db.ChunkVectors.SimilaritySearch(ctx, vec, s.maxChunks, nil)
		if err == nil {
			var chunks []store.ArticleChunk
			for _, r := range results {
				if r.Score < 1-defaultChunkDistance {
					continue
				}
				id, err := strconv.ParseInt(r.ID, 10, 64)
				if err != nil {
					continue
				}
				c, found, err := s.db.GetChunk(ctx, id)
				if err == nil && found {
					chunks = append(chunks, c)
				}
			}
			if len(chunks) > 0 {
				return chunks, nil
			}
		}
	}

	// Fallback: chunks reachable via provenance from the related-node set.
	return s.chunksViaProvenance(ctx, related)
}

func (s *Service) chunksViaProvenance(ctx context.Context, related []NodeRef) ([]store.ArticleChunk, error) {
	seen := make(map[int64]bool)
	var out []store.ArticleChunk
	for _, n := range related {
		node, found, err := s.db.GetNodeByNodeID(ctx, n.NodeID)
		if err != nil || !found {
			continue
		}
		incidences, err := s.db.IncidencesForNode(ctx, node.ID)
		if err != nil {
			continue
		}
		for _, inc := range incidences {
			prov, err := s.db.ProvenanceForEdge(ctx, inc.EdgeID)
			if err != nil {
				continue
			}
			for _, p := range prov {
				key := p.EdgeID*1000 + int64(p.ChunkIndex)
				if seen[key] {
					continue
				}
				seen[key] = true
				out = append(out, store.ArticleChunk{FeedItemID: p.FeedItemID, ChunkIndex: p.ChunkIndex, Content: p.ChunkText})
				if len(out) >= s.maxChunks {
					return out, nil
				}
			}
		}
	}
	return out, nil
}

func (s *Service) gatherPaths(ctx context.Context, related []NodeRef) ([]ReasoningPath, []GraphEdge, error) {
	idx, err := pathfinder.BuildIndex(ctx, s.db)
	if err != nil {
		return nil, nil, fmt.Errorf("database error: build path index: %w", err)
	}

	nodeRowIDs := make([]int64, 0, len(related))
	labelByRowID := make(map[int64]string)
	for _, n := range related {
		node, found, err := s.db.GetNodeByNodeID(ctx, n.NodeID)
		if err != nil || !found {
			continue
		}
		nodeRowIDs = append(nodeRowIDs, node.ID)
		labelByRowID[node.ID] = node.NodeID
	}

	pathResults := pathfinder.FindPaths(idx, nodeRowIDs, defaultPathfinderS, pathfinder.DefaultDepthCap, defaultPathfinderMaxPaths)

	pathEdgeIDs := make(map[int64]bool)
	var reasoningPaths []ReasoningPath
	pairSeen := make(map[[2]string]bool)
	for pair, paths := range pathResults {
		for _, p := range paths {
			for _, eid := range p.EdgeIDs {
				pathEdgeIDs[eid] = true
			}
			key := [2]string{labelByRowID[pair[0]], labelByRowID[pair[1]]}
			if pairSeen[key] {
				continue
			}
			pairSeen[key] = true
			edgeIDStrs := make([]string, 0, len(p.EdgeIDs))
			for _, eid := range p.EdgeIDs {
				if e, found, err := s.db.GetEdge(ctx, eid); err == nil && found {
					edgeIDStrs = append(edgeIDStrs, e.EdgeID)
				}
			}
			reasoningPaths = append(reasoningPaths, ReasoningPath{
				SourceNodeID: key[0], TargetNodeID: key[1], EdgeIDs: edgeIDStrs,
			})
		}
	}

	directEdgeIDs := make(map[int64]bool)
	for _, rowID := range nodeRowIDs {
		incidences, err := s.db.IncidencesForNode(ctx, rowID)
		if err != nil {
			continue
		}
		for _, inc := range incidences {
			if len(directEdgeIDs) >= defaultDirectEdgeLimit {
				break
			}
			directEdgeIDs[inc.EdgeID] = true
		}
	}

	merged := make(map[int64]bool, len(pathEdgeIDs)+len(directEdgeIDs))
	for id := range pathEdgeIDs {
		merged[id] = true
	}
	for id := range directEdgeIDs {
		if len(merged) >= len(pathEdgeIDs)+defaultDirectEdgeLimit {
			break
		}
		merged[id] = true
	}

	edgeIDList := make([]int64, 0, len(merged))
	for id := range merged {
		edgeIDList = append(edgeIDList, id)
	}
	sort.Slice(edgeIDList, func(i, j int) bool { return edgeIDList[i] < edgeIDList[j] })

	graphEdges := make([]GraphEdge, 0, len(edgeIDList))
	for _, rowID := range edgeIDList {
		e, found, err := s.db.GetEdge(ctx, rowID)
		if err != nil || !found {
			continue
		}
		relation := e.EdgeID
		if i := strings.Index(e.EdgeID, "_chunk"); i > 0 {
			relation = e.EdgeID[:i]
		}
		incidences, _ := s.db.IncidencesForEdge(ctx, rowID)
		var sourceLabels, targetLabels []string
		for _, inc := range incidences {
			node, found, err := s.db.GetNode(ctx, inc.NodeID)
			if err != nil || !found {
				continue
			}
			switch inc.Role {
			case store.RoleSource:
				sourceLabels = append(sourceLabels, node.NodeID)
			case store.RoleTarget:
				targetLabels = append(targetLabels, node.NodeID)
			}
		}
		var chunkText string
		if prov, err := s.db.ProvenanceForEdge(ctx, rowID); err == nil && len(prov) > 0 {
			chunkText = prov[0].ChunkText
		}
		graphEdges = append(graphEdges, GraphEdge{
			EdgeID: e.EdgeID, Relation: relation, SourceLabels: sourceLabels, TargetLabels: targetLabels, ChunkText: chunkText,
		})
	}

	return reasoningPaths, graphEdges, nil
}

func formatContext(nodes []NodeRef, paths []ReasoningPath, edges []GraphEdge, chunks []store.ArticleChunk) string {
	var b strings.Builder
	b.WriteString("## Relevant Concepts\n")
	for _, n := range nodes {
		fmt.Fprintf(&b, "- %s (%s)\n", n.Label, n.NodeType)
	}
	b.WriteString("\n## Reasoning Paths\n")
	for _, p := range paths {
		fmt.Fprintf(&b, "- %s -> %s via %s\n", p.SourceNodeID, p.TargetNodeID, strings.Join(p.EdgeIDs, ", "))
	}
	b.WriteString("\n## Relationships\n")
	for _, e := range edges {
		fmt.Fprintf(&b, "- %s %s %s\n", strings.Join(e.SourceLabels, "/"), e.Relation, strings.Join(e.TargetLabels, "/"))
	}
	b.WriteString("\n## Source Content\n")
	for _, c := range chunks {
		fmt.Fprintf(&b, "- %s\n", c.Content)
	}
	return b.String()
}

func groupByArticle(ctx context.Context, db *store.Store, chunks []store.ArticleChunk) []ArticleRef {
	seen := make(map[int64]bool)
	var out []ArticleRef
	for _, c := range chunks {
		if seen[c.FeedItemID] {
			continue
		}
		seen[c.FeedItemID] = true
		item, found, err := db.GetFeedItem(ctx, c.FeedItemID)
		if err != nil || !found {
			continue
		}
		out = append(out, ArticleRef{FeedItemID: item.ID, Title: item.Title, Link: item.Link})
	}
	return out
}

func (s *Service) persistHistory(ctx context.Context, resp *Response) int64 {
	relatedJSON, _ := json.Marshal(resp.RelatedNodes)
	pathsJSON, _ := json.Marshal(resp.ReasoningPaths)
	graphJSON, _ := json.Marshal(resp.GraphPaths)
	articlesJSON, _ := json.Marshal(resp.SourceArticles)

	id, err := s.db.InsertQueryHistory(ctx, store.QueryHistoryRow{
		Query:              resp.Query,
		Answer:             resp.Answer,
		RelatedNodesJSON:   relatedJSON,
		ReasoningPathsJSON: pathsJSON,
		GraphPathsJSON:     graphJSON,
		SourceArticlesJSON: articlesJSON,
		CreatedAt:          time.Now(),
	})
	if err != nil {
		return 0
	}
	return id
}
