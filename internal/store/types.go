package store

import "time"

// Role is the position a node plays in a hyperedge's incidence.
type Role string

const (
	RoleSource Role = "source"
	RoleTarget Role = "target"
	RoleMember Role = "member"
)

type Source struct {
	ID      int64
	Name    string
	FeedURL string
	Kind    string
}

type FeedItem struct {
	ID          int64
	SourceID    int64
	GUID        string
	Title       string
	Link        string
	PubDate     *time.Time
	Description string
	FullContent string
	Author      string
	FetchedAt   time.Time
}

type ArticleState string

const (
	ArticlePending    ArticleState = "pending"
	ArticleProcessing ArticleState = "processing"
	ArticleCompleted  ArticleState = "completed"
	ArticleFailed     ArticleState = "failed"
)

type ArticleStatus struct {
	FeedItemID   int64
	State        ArticleState
	ChunkCount   int
	ErrorMessage string
	StartedAt    *time.Time
	FinishedAt   *time.Time
}

type ArticleChunk struct {
	ID             int64
	FeedItemID     int64
	ChunkIndex     int
	Content        string
	CreatedAt      time.Time
	EmbeddingModel string
	EmbeddedAt     *time.Time
}

type Node struct {
	ID            int64
	NodeID        string
	Label         string
	NodeType      string
	FirstSeenAt   time.Time
	Metadata      map[string]any
	EmbeddingModel string
	EmbeddedAt    *time.Time
}

type Edge struct {
	ID            int64
	EdgeID        string
	Label         string
	CreatedAt     time.Time
	SourceChunkID *int64
	Metadata      map[string]any
}

type Incidence struct {
	ID       int64
	EdgeID   int64
	NodeID   int64
	Role     Role
	Position int
}

type Provenance struct {
	ID          int64
	EdgeID      int64
	FeedItemID  int64
	ChunkIndex  int
	ChunkText   string
	Confidence  *float64
}

type MergeHistoryRow struct {
	ID            int64
	MergedAt      time.Time
	KeptNodeID    string
	RemovedNodeID string
	RemovedLabel  string
	Similarity    float64
}

type Cluster struct {
	ClusterID       int
	BuildID         string
	Label           string
	Size            int
	Centroid        []float64
	TopEntitiesJSON []byte
	TopFamiliesJSON []byte
	Summary         string
	CreatedAt       time.Time
}

type QueryHistoryRow struct {
	ID                  int64
	Query               string
	Answer              string
	RelatedNodesJSON    []byte
	ReasoningPathsJSON  []byte
	GraphPathsJSON      []byte
	SourceArticlesJSON  []byte
	SynthesizedAnalysis string
	Hypotheses          string
	AnalyzedAt          *time.Time
	CreatedAt           time.Time
}
