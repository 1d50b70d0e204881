// Package graphrag implements the retrieval-augmented question-answering
// pipeline over the hypergraph: keyword extraction, vector retrieval of
// entities and chunks, path gathering, and grounded answer generation,
// emitted as a stream of typed phase events.
package graphrag

// EventType tags the kind of progress event emitted by Ask.
type EventType string

const (
	EventStatus          EventType = "status"
	EventKeywords        EventType = "keywords"
	EventRelatedNodes    EventType = "related_nodes"
	EventReasoningPaths  EventType = "reasoning_paths"
	EventGraphPaths      EventType = "graph_paths"
	EventAnswerToken     EventType = "answer_token"
	EventSourceArticles  EventType = "source_articles"
	EventCompleted       EventType = "completed"
	EventFailed          EventType = "failed"
)

// Event is one entry in the progressive stream Ask returns. Only the
// field matching Type is populated.
type Event struct {
	Type           EventType
	Status         string
	Keywords       []string
	RelatedNodes   []NodeRef
	ReasoningPaths []ReasoningPath
	GraphPaths     []GraphEdge
	Token          string
	SourceArticles []ArticleRef
	Response       *Response
	Err            error
}

// NodeRef is a lightweight, JSON-serializable view of a hypergraph node.
type NodeRef struct {
	NodeID   string `json:"node_id"`
	Label    string `json:"label"`
	NodeType string `json:"node_type"`
}

// ReasoningPath is one s-connected BFS path between two related nodes,
// deduplicated by (source, target) in the final response.
type ReasoningPath struct {
	SourceNodeID string   `json:"source_node_id"`
	TargetNodeID string   `json:"target_node_id"`
	EdgeIDs      []string `json:"edge_ids"`
}

// GraphEdge is a displayable hyperedge: its relation label is derived
// from edge_id (format "relation_chunkNNN_k"), never read off the
// stored label column, which may have drifted after a node merge.
type GraphEdge struct {
	EdgeID       string   `json:"edge_id"`
	Relation     string   `json:"relation"`
	SourceLabels []string `json:"source_labels"`
	TargetLabels []string `json:"target_labels"`
	ChunkText    string   `json:"chunk_text"`
}

// ArticleRef is a source article cited by the retrieved chunks.
type ArticleRef struct {
	FeedItemID int64  `json:"feed_item_id"`
	Title      string `json:"title"`
	Link       string `json:"link"`
}

// Response is the finalized answer, persisted to query_history.
type Response struct {
	Query          string          `json:"query"`
	Answer         string          `json:"answer"`
	RelatedNodes   []NodeRef       `json:"related_nodes"`
	ReasoningPaths []ReasoningPath `json:"reasoning_paths"`
	GraphPaths     []GraphEdge     `json:"graph_paths"`
	SourceArticles []ArticleRef    `json:"source_articles"`
	HistoryID      int64           `json:"-"`
}
