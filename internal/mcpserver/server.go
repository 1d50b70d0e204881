// Package mcpserver exposes the presentation façade (process unprocessed
// articles, GraphRAG query, full clustering, merge-suggestion search) as
// MCP tools over stdio, for external MCP clients such as editor
// integrations or other agent runtimes.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"newsgraph/internal/clustering"
	"newsgraph/internal/embedder"
	"newsgraph/internal/graphrag"
	"newsgraph/internal/ingest"
	"newsgraph/internal/merge"
	"newsgraph/internal/store"
)

// Deps bundles the collaborators each tool handler needs. Deps.Extract
// may be nil if article processing is not exposed by this server.
// Deps.Archive is the zero value when full-content archiving is
// disabled.
type Deps struct {
	DB             *store.Store
	GraphRAG       *graphrag.Service
	Extract        ingest.Extractor
	ChunkEmbedder  embedder.Embedder
	EmbeddingModel string
	Archive        ingest.ArchiveConfig
	Clustering     clustering.Options
	Clean          ingest.ContentCleaner
}

// New constructs an MCP server with one tool per façade operation named
// in the presentation contract.
func New(deps Deps) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "newsgraph", Version: "0.1.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "process_unprocessed_articles",
		Description: "Run the article-to-hypergraph ingestion pipeline over every pending feed item.",
	}, processUnprocessedArticlesHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_stream",
		Description: "Ask a question against the knowledge graph and return the final grounded answer.",
	}, queryHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_full_clustering",
		Description: "Rebuild event clusters over the full hypergraph (HDBSCAN over relation event vectors).",
	}, runClusteringHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_merge_suggestions",
		Description: "List pairs of hypergraph nodes whose embeddings are similar enough to be merge candidates.",
	}, mergeSuggestionsHandler(deps))

	return server
}

type processArticlesInput struct{}

type processArticlesOutput struct {
	Completed int `json:"completed" jsonschema:"number of articles successfully persisted"`
}

func processUnprocessedArticlesHandler(deps Deps) func(context.Context, *mcp.CallToolRequest, processArticlesInput) (*mcp.CallToolResult, processArticlesOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ processArticlesInput) (*mcp.CallToolResult, processArticlesOutput, error) {
		if deps.Extract == nil {
			return nil, processArticlesOutput{}, fmt.Errorf("no content extractor configured")
		}
		completed, err := ingest.ProcessUnprocessedArticlesFull(ctx, deps.DB, deps.Extract, deps.ChunkEmbedder, deps.EmbeddingModel, ingest.DefaultConcurrency, nil, deps.Archive, deps.Clean)
		if err != nil {
			return nil, processArticlesOutput{}, err
		}
		return nil, processArticlesOutput{Completed: completed}, nil
	}
}

type queryInput struct {
	Question string `json:"question" jsonschema:"natural-language question to answer from the knowledge graph"`
}

type queryOutput struct {
	Answer         string   `json:"answer"`
	RelatedNodes   []string `json:"related_nodes"`
	SourceArticles []string `json:"source_articles"`
}

func queryHandler(deps Deps) func(context.Context, *mcp.CallToolRequest, queryInput) (*mcp.CallToolResult, queryOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in queryInput) (*mcp.CallToolResult, queryOutput, error) {
		var resp *graphrag.Response
		for ev := range deps.GraphRAG.Ask(ctx, in.Question) {
			switch ev.Type {
			case graphrag.EventCompleted:
				resp = ev.Response
			case graphrag.EventFailed:
				return nil, queryOutput{}, ev.Err
			}
		}
		if resp == nil {
			return nil, queryOutput{}, fmt.Errorf("query produced no response")
		}
		out := queryOutput{Answer: resp.Answer}
		for _, n := range resp.RelatedNodes {
			out.RelatedNodes = append(out.RelatedNodes, n.Label)
		}
		for _, a := range resp.SourceArticles {
			out.SourceArticles = append(out.SourceArticles, a.Title)
		}
		return nil, out, nil
	}
}

type runClusteringInput struct{}

type runClusteringOutput struct {
	BuildID      string `json:"build_id"`
	ClusterCount int    `json:"cluster_count"`
	EdgeCount    int    `json:"edge_count"`
}

func runClusteringHandler(deps Deps) func(context.Context, *mcp.CallToolRequest, runClusteringInput) (*mcp.CallToolResult, runClusteringOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ runClusteringInput) (*mcp.CallToolResult, runClusteringOutput, error) {
		result, err := clustering.RunFullPipeline(ctx, deps.DB, deps.Clustering)
		if err != nil {
			return nil, runClusteringOutput{}, err
		}
		return nil, runClusteringOutput{BuildID: result.BuildID, ClusterCount: result.ClusterCount, EdgeCount: result.EdgeCount}, nil
	}
}

type mergeSuggestionsInput struct {
	Threshold float64 `json:"threshold" jsonschema:"minimum cosine similarity, default 0.85"`
	Limit     int     `json:"limit" jsonschema:"maximum number of suggestions to return"`
}

type mergeSuggestionsOutput struct {
	Suggestions []mergeSuggestion `json:"suggestions"`
}

type mergeSuggestion struct {
	Label1     string  `json:"label1"`
	Label2     string  `json:"label2"`
	Similarity float64 `json:"similarity"`
}

func mergeSuggestionsHandler(deps Deps) func(context.Context, *mcp.CallToolRequest, mergeSuggestionsInput) (*mcp.CallToolResult, mergeSuggestionsOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in mergeSuggestionsInput) (*mcp.CallToolResult, mergeSuggestionsOutput, error) {
		threshold := in.Threshold
		if threshold <= 0 {
			threshold = merge.DefaultThreshold
		}
		limit := in.Limit
		if limit <= 0 {
			limit = 20
		}
		suggestions, err := merge.GetMergeSuggestions(ctx, deps.DB, threshold, limit)
		if err != nil {
			return nil, mergeSuggestionsOutput{}, err
		}
		out := mergeSuggestionsOutput{}
		for _, s := range suggestions {
			out.Suggestions = append(out.Suggestions, mergeSuggestion{Label1: s.Label1, Label2: s.Label2, Similarity: s.Similarity})
		}
		return nil, out, nil
	}
}
