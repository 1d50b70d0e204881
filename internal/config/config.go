// Package config loads the knowledge-graph core's runtime configuration:
// storage backend selection, embedder/LLM provider credentials, and the
// tunable defaults for ingestion concurrency, clustering, and retrieval.
package config

// StoreConfig selects the relational backend and DSN. VectorBackend
// defaults to the relational backend's natural companion ("memory" or
// "postgres") but may be overridden to "qdrant" independently.
type StoreConfig struct {
	Backend string `yaml:"backend"` // "memory" | "postgres"
	DSN     string `yaml:"dsn"`

	VectorBackend string `yaml:"vector_backend"` // "" (inherit) | "memory" | "postgres" | "qdrant"
	QdrantAddr    string `yaml:"qdrant_addr"`
}

// EmbedderConfig selects the embedding provider used for node, chunk,
// and query vectors.
type EmbedderConfig struct {
	Provider   string `yaml:"provider"` // "local" | "openai" | "deterministic"
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Dimensions int    `yaml:"dimensions"`
}

// AnthropicConfig configures the Anthropic provider.
type AnthropicConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// OpenAIConfig configures the OpenAI provider, including the "local"
// provider alias which reuses the OpenAI-compatible completions API
// against a self-hosted base URL.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// GoogleConfig configures the Gemini provider.
type GoogleConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// LLMConfig selects and configures the chat provider consumed by
// keyword extraction, answer generation, clustering labels, and deep
// analysis.
type LLMConfig struct {
	Provider string `yaml:"provider"` // "local" | "openai" | "anthropic" | "google"

	Anthropic AnthropicConfig `yaml:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Google    GoogleConfig    `yaml:"google"`
}

// DefaultIngestionConcurrency is the bounded-parallelism default for
// batch article processing.
const DefaultIngestionConcurrency = 4

// IngestionConfig tunes the batch article-processing driver.
type IngestionConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// Clustering defaults, matching the reference HDBSCAN parameterization.
const (
	DefaultMinClusterSize = 20
	DefaultMinSamples     = 10
)

// ClusteringConfig tunes the HDBSCAN clustering pipeline.
type ClusteringConfig struct {
	MinClusterSize int `yaml:"min_cluster_size"`
	MinSamples     int `yaml:"min_samples"`
}

// Pathfinder defaults for s-connected BFS.
const (
	DefaultPathfinderS        = 1
	DefaultPathfinderMaxPaths = 3
	DefaultPathfinderDepthCap = 4
)

// PathfinderConfig tunes the GraphRAG path-gathering phase.
type PathfinderConfig struct {
	S        int `yaml:"s"`
	MaxPaths int `yaml:"max_paths"`
	DepthCap int `yaml:"depth_cap"`
}

// Retrieval thresholds, expressed as cosine similarity/distance.
const (
	DefaultChunkDistance   = 0.5
	DefaultKeywordDistance = 0.5
	DefaultMergeSimilarity = 0.85
)

// RetrievalConfig tunes the similarity thresholds used across GraphRAG
// retrieval and node-merge suggestion.
type RetrievalConfig struct {
	ChunkDistance   float64 `yaml:"chunk_distance"`
	KeywordDistance float64 `yaml:"keyword_distance"`
	MergeSimilarity float64 `yaml:"merge_similarity"`
}

// ObjectStoreConfig optionally archives full article content to S3
// instead of the relational row, at or above SizeThresholdByte.
type ObjectStoreConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Bucket            string `yaml:"bucket"`
	Region            string `yaml:"region"`
	Endpoint          string `yaml:"endpoint"`
	SizeThresholdByte int    `yaml:"size_threshold_bytes"`
}

// KafkaConfig optionally feeds the batch article driver from a topic of
// article-ready events instead of polling the processing-state table.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

// ClickHouseConfig optionally mirrors every completed query to an
// analytics sink, independent of the relational query_history table.
type ClickHouseConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// LogConfig configures the zerolog sink.
type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// TelemetryConfig controls OpenTelemetry metrics and tracing export.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// Config is the complete runtime configuration for the knowledge-graph
// core. It is built by Load, which layers environment variables over an
// optional YAML file.
type Config struct {
	Store       StoreConfig       `yaml:"store"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	LLM         LLMConfig         `yaml:"llm"`
	Ingestion   IngestionConfig   `yaml:"ingestion"`
	Clustering  ClusteringConfig  `yaml:"clustering"`
	Pathfinder  PathfinderConfig  `yaml:"pathfinder"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	ClickHouse  ClickHouseConfig  `yaml:"clickhouse"`
	Log         LogConfig         `yaml:"log"`
	OTel        TelemetryConfig   `yaml:"otel"`
}

// applyDefaults fills zero-valued tunables with their documented
// defaults. Called after YAML and env overrides are merged so the
// ordering matches the teacher's "defaults applied after YAML" loader.
func (c *Config) applyDefaults() {
	if c.Ingestion.Concurrency <= 0 {
		c.Ingestion.Concurrency = DefaultIngestionConcurrency
	}
	if c.Clustering.MinClusterSize <= 0 {
		c.Clustering.MinClusterSize = DefaultMinClusterSize
	}
	if c.Clustering.MinSamples <= 0 {
		c.Clustering.MinSamples = DefaultMinSamples
	}
	if c.Pathfinder.S <= 0 {
		c.Pathfinder.S = DefaultPathfinderS
	}
	if c.Pathfinder.MaxPaths <= 0 {
		c.Pathfinder.MaxPaths = DefaultPathfinderMaxPaths
	}
	if c.Pathfinder.DepthCap <= 0 {
		c.Pathfinder.DepthCap = DefaultPathfinderDepthCap
	}
	if c.Retrieval.ChunkDistance <= 0 {
		c.Retrieval.ChunkDistance = DefaultChunkDistance
	}
	if c.Retrieval.KeywordDistance <= 0 {
		c.Retrieval.KeywordDistance = DefaultKeywordDistance
	}
	if c.Retrieval.MergeSimilarity <= 0 {
		c.Retrieval.MergeSimilarity = DefaultMergeSimilarity
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.OTel.ServiceName == "" {
		c.OTel.ServiceName = "newsgraph"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
