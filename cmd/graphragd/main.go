// Command graphragd wires the knowledge-graph core's configuration,
// storage, embedder, and LLM provider together and runs a single
// GraphRAG query against them, printing the streamed answer to stdout.
//
// It is a thin reference entrypoint for the presentation façade of §6:
// real deployments are expected to wrap graphrag.Service and
// ingest.ProcessUnprocessedArticles behind their own HTTP/MCP surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"newsgraph/internal/analytics"
	"newsgraph/internal/config"
	"newsgraph/internal/embedder"
	"newsgraph/internal/graphrag"
	"newsgraph/internal/llm/providers"
	"newsgraph/internal/observability"
	"newsgraph/internal/persistence/databases"
	"newsgraph/internal/store"
)

func main() {
	question := flag.String("question", "", "question to ask the knowledge graph")
	deep := flag.Bool("deep", false, "run the deep-analysis workflow after the answer completes")
	flag.Parse()

	if *question == "" {
		fmt.Fprintln(os.Stderr, "usage: graphragd -question \"...\"")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.Log.Path, cfg.Log.Level)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

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

	opts := []graphrag.Option{graphrag.WithModel(modelFor(cfg))}
	if cfg.OTel.Enabled {
		opts = append(opts, graphrag.WithMetrics(observability.NewOtelMetrics()))
	}
	if sink, err := analytics.NewClickHouseSink(ctx, cfg.ClickHouse); err != nil {
		log.Warn().Err(err).Msg("init clickhouse analytics sink, continuing without it")
	} else if sink != nil {
		defer sink.Close()
		opts = append(opts, graphrag.WithAnalyticsSink(sink))
	}
	svc := graphrag.New(db, emb, provider, opts...)

	var resp *graphrag.Response
	for ev := range svc.Ask(ctx, *question) {
		switch ev.Type {
		case graphrag.EventStatus:
			log.Info().Str("status", ev.Status).Msg("graphrag_status")
		case graphrag.EventAnswerToken:
			fmt.Print(ev.Token)
		case graphrag.EventCompleted:
			fmt.Println()
			resp = ev.Response
		case graphrag.EventFailed:
			log.Fatal().Err(ev.Err).Msg("graphrag_failed")
		}
	}

	if *deep && resp != nil {
		for ev := range svc.DeepAnalyze(ctx, resp) {
			switch ev.Stage {
			case "engineer_token", "hypothesizer_token":
				fmt.Print(ev.Token)
			case "failed":
				log.Error().Err(ev.Err).Msg("deep_analysis_failed")
			}
		}
		fmt.Println()
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
