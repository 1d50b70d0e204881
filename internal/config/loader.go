package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v3"
)

// Load builds the runtime Config by starting from an optional YAML file
// (path from CONFIG_FILE, default "config.yaml" if present), then
// layering environment variables on top (optionally loaded from a local
// .env via godotenv), then applying documented defaults for any
// tunable left unset. Env vars win over YAML so a deployment can pin
// secrets outside the checked-in file.
func Load() (Config, error) {
	_ = godotenv.Overload()

	var cfg Config
	path := firstNonEmpty(strings.TrimSpace(os.Getenv("CONFIG_FILE")), "config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	cfg.applyDefaults()
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("STORE_BACKEND")); v != "" {
		cfg.Store.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv("STORE_DSN")); v != "" {
		cfg.Store.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("STORE_VECTOR_BACKEND")); v != "" {
		cfg.Store.VectorBackend = v
	}
	if v := strings.TrimSpace(os.Getenv("QDRANT_ADDR")); v != "" {
		cfg.Store.QdrantAddr = v
	}

	if v := strings.TrimSpace(os.Getenv("EMBEDDER_PROVIDER")); v != "" {
		cfg.Embedder.Provider = v
	}
	if v := strings.TrimSpace(os.Getenv("EMBEDDER_MODEL")); v != "" {
		cfg.Embedder.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("EMBEDDER_BASE_URL")); v != "" {
		cfg.Embedder.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("EMBEDDER_API_KEY")); v != "" {
		cfg.Embedder.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("EMBEDDER_DIMENSIONS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Embedder.Dimensions = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("LLM_PROVIDER")); v != "" {
		cfg.LLM.Provider = v
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); v != "" {
		cfg.LLM.Anthropic.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_MODEL")); v != "" {
		cfg.LLM.Anthropic.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL")); v != "" {
		cfg.LLM.Anthropic.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		cfg.LLM.OpenAI.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_MODEL")); v != "" {
		cfg.LLM.OpenAI.Model = v
	}
	if v := firstNonEmpty(strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")), strings.TrimSpace(os.Getenv("OPENAI_API_BASE_URL"))); v != "" {
		cfg.LLM.OpenAI.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")); v != "" {
		cfg.LLM.Google.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("GOOGLE_MODEL")); v != "" {
		cfg.LLM.Google.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("GOOGLE_BASE_URL")); v != "" {
		cfg.LLM.Google.BaseURL = v
	}

	if v := strings.TrimSpace(os.Getenv("INGESTION_CONCURRENCY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingestion.Concurrency = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CLUSTERING_MIN_CLUSTER_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Clustering.MinClusterSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CLUSTERING_MIN_SAMPLES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Clustering.MinSamples = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("RETRIEVAL_CHUNK_DISTANCE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Retrieval.ChunkDistance = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("RETRIEVAL_KEYWORD_DISTANCE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Retrieval.KeywordDistance = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("RETRIEVAL_MERGE_SIMILARITY")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Retrieval.MergeSimilarity = f
		}
	}

	if v := strings.TrimSpace(os.Getenv("OBJECT_STORE_BUCKET")); v != "" {
		cfg.ObjectStore.Enabled = true
		cfg.ObjectStore.Bucket = v
	}
	if v := strings.TrimSpace(os.Getenv("OBJECT_STORE_REGION")); v != "" {
		cfg.ObjectStore.Region = v
	}
	if v := strings.TrimSpace(os.Getenv("OBJECT_STORE_ENDPOINT")); v != "" {
		cfg.ObjectStore.Endpoint = v
	}

	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		cfg.Kafka.Enabled = true
		cfg.Kafka.Brokers = parseCommaSeparatedList(v)
	}
	if v := strings.TrimSpace(os.Getenv("KAFKA_TOPIC")); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := strings.TrimSpace(os.Getenv("KAFKA_GROUP_ID")); v != "" {
		cfg.Kafka.GroupID = v
	}

	if v := strings.TrimSpace(os.Getenv("CLICKHOUSE_DSN")); v != "" {
		cfg.ClickHouse.Enabled = true
		cfg.ClickHouse.DSN = v
	}

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_PATH")); v != "" {
		cfg.Log.Path = v
	}

	if v := strings.TrimSpace(os.Getenv("OTEL_ENDPOINT")); v != "" {
		cfg.OTel.Enabled = true
		cfg.OTel.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("OTEL_SERVICE_NAME")); v != "" {
		cfg.OTel.ServiceName = v
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseCommaSeparatedList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
