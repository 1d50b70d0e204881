// Command graphragd-mcp runs the knowledge-graph core's presentation
// façade as an MCP server over stdio, for clients such as editor
// integrations or other agent runtimes that speak the Model Context
// Protocol rather than a bespoke HTTP surface.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"newsgraph/internal/analytics"
	"newsgraph/internal/clustering"
	"newsgraph/internal/config"
	"newsgraph/internal/contentfetch"
	"newsgraph/internal/embedder"
	"newsgraph/internal/graphrag"
	"newsgraph/internal/ingest"
	"newsgraph/internal/ingestqueue"
	"newsgraph/internal/llm/providers"
	"newsgraph/internal/mcpserver"
	"newsgraph/internal/objectstore"
	"newsgraph/internal/observability"
	"newsgraph/internal/persistence/databases"
	"newsgraph/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.Log.Path, cfg.Log.Level)

	ctx := context.Background()

	if cfg.OTel.Enabled {
		shutdown, err := observability.InitOTel(ctx, cfg.OTel)
		if err != nil {
			log.Fatal().Err(err).Msg("init otel")
		}
		defer shutdown(context.Background())
	}

	db, err := store.Open(ctx, storeConfig(cfg), log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer db.Close()

	emb := buildEmbedder(cfg)
	provider, err := providers.Build(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build llm provider")
	}

	graphragOpts := []graphrag.Option{graphrag.WithModel(modelFor(cfg))}
	if cfg.OTel.Enabled {
		graphragOpts = append(graphragOpts, graphrag.WithMetrics(observability.NewOtelMetrics()))
	}
	if sink, err := analytics.NewClickHouseSink(ctx, cfg.ClickHouse); err != nil {
		log.Warn().Err(err).Msg("init clickhouse analytics sink, continuing without it")
	} else if sink != nil {
		defer sink.Close()
		graphragOpts = append(graphragOpts, graphrag.WithAnalyticsSink(sink))
	}
	svc := graphrag.New(db, emb, provider, graphragOpts...)

	archive := buildArchive(ctx, cfg)
	extract := ingest.LLMExtractor(provider, modelFor(cfg), emb)
	clean := contentfetch.NewCleaner()

	server := mcpserver.New(mcpserver.Deps{
		DB:             db,
		GraphRAG:       svc,
		Extract:        extract,
		ChunkEmbedder:  emb,
		EmbeddingModel: cfg.Embedder.Model,
		Archive:        archive,
		Clustering:     clustering.Options{MinClusterSize: cfg.Clustering.MinClusterSize, MinSamples: cfg.Clustering.MinSamples, EmbeddingDim: cfg.Embedder.Dimensions, Labeler: provider, LabelerModel: modelFor(cfg)},
		Clean:          clean,
	})

	stopKafka := startKafkaIngest(ctx, cfg, db, extract, emb, archive, clean)
	defer stopKafka()

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatal().Err(err).Msg("mcp server error")
	}
}

// startKafkaIngest starts a background Kafka consumer that triggers the
// same per-article pipeline as process_unprocessed_articles, when
// cfg.Kafka is enabled. It returns a no-op stop function when disabled.
func startKafkaIngest(ctx context.Context, cfg config.Config, db *store.Store, extract ingest.Extractor, emb embedder.Embedder, archive ingest.ArchiveConfig, clean ingest.ContentCleaner) func() {
	processor := ingest.OneArticleProcessor{
		DB: db, Extract: extract, ChunkEmbedder: emb,
		EmbeddingModel: cfg.Embedder.Model, Archive: archive, Clean: clean,
	}
	consumer, err := ingestqueue.NewConsumer(cfg.Kafka, processor.ProcessOne)
	if err != nil {
		log.Warn().Err(err).Msg("init kafka ingest consumer, continuing without it")
		return func() {}
	}
	if consumer == nil {
		return func() {}
	}
	consumerCtx, cancel := context.WithCancel(ctx)
	go func() {
		if err := consumer.Run(consumerCtx); err != nil {
			log.Warn().Err(err).Msg("kafka ingest consumer stopped")
		}
	}()
	return func() {
		cancel()
		_ = consumer.Close()
	}
}

func storeConfig(cfg config.Config) store.Config {
	dim := cfg.Embedder.Dimensions
	if dim <= 0 {
		dim = 768
	}
	vc := databases.VectorConfig{Backend: cfg.Store.VectorBackend, DSN: cfg.Store.QdrantAddr, Dimensions: dim, Metric: "cosine"}
	nodeVC, chunkVC, eventVC := vc, vc, vc
	nodeVC.Table, nodeVC.Collection = "node_vectors", "node_vectors"
	chunkVC.Table, chunkVC.Collection = "chunk_vectors", "chunk_vectors"
	eventVC.Table, eventVC.Collection = "event_vectors", "event_vectors"
	return store.Config{
		Backend:      cfg.Store.Backend,
		DSN:          cfg.Store.DSN,
		NodeVectors:  nodeVC,
		ChunkVectors: chunkVC,
		EventVectors: eventVC,
	}
}

func buildEmbedder(cfg config.Config) embedder.Embedder {
	dim := cfg.Embedder.Dimensions
	if dim <= 0 {
		dim = 768
	}
	switch cfg.Embedder.Provider {
	case "deterministic", "":
		return embedder.NewDeterministic(dim, true, 0)
	default:
		return embedder.NewHTTP(embedder.Config{
			BaseURL: cfg.Embedder.BaseURL,
			Model:   cfg.Embedder.Model,
			APIKey:  cfg.Embedder.APIKey,
		}, dim)
	}
}

// buildArchive constructs the full_content archive from
// cfg.ObjectStore when enabled. A bucket error falls back to an
// in-memory store so the tool remains usable in local/demo wiring
// rather than failing server startup outright.
func buildArchive(ctx context.Context, cfg config.Config) ingest.ArchiveConfig {
	if !cfg.ObjectStore.Enabled {
		return ingest.ArchiveConfig{}
	}
	s3store, err := objectstore.NewS3Store(ctx, objectstore.S3Config{
		Bucket:   cfg.ObjectStore.Bucket,
		Region:   cfg.ObjectStore.Region,
		Endpoint: cfg.ObjectStore.Endpoint,
		Prefix:   "newsgraph",
	})
	if err != nil {
		log.Warn().Err(err).Msg("init s3 archive, falling back to in-memory store")
		return ingest.ArchiveConfig{Store: objectstore.NewMemoryStore(), SizeThresholdByte: cfg.ObjectStore.SizeThresholdByte}
	}
	return ingest.ArchiveConfig{Store: s3store, SizeThresholdByte: cfg.ObjectStore.SizeThresholdByte}
}

func modelFor(cfg config.Config) string {
	switch cfg.LLM.Provider {
	case "anthropic":
		return cfg.LLM.Anthropic.Model
	case "google":
		return cfg.LLM.Google.Model
	default:
		return cfg.LLM.OpenAI.Model
	}
}
