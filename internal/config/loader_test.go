package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		old, had := os.LookupEnv(k)
		_ = os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				_ = os.Setenv(k, old)
			}
		})
	}
}

func TestLoad_AppliesDefaultsWithNoEnvOrFile(t *testing.T) {
	clearEnv(t, "CONFIG_FILE", "STORE_BACKEND", "INGESTION_CONCURRENCY",
		"CLUSTERING_MIN_CLUSTER_SIZE", "CLUSTERING_MIN_SAMPLES",
		"RETRIEVAL_CHUNK_DISTANCE", "RETRIEVAL_KEYWORD_DISTANCE", "RETRIEVAL_MERGE_SIMILARITY")
	_ = os.Setenv("CONFIG_FILE", "nonexistent-config.yaml")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, DefaultIngestionConcurrency, cfg.Ingestion.Concurrency)
	assert.Equal(t, DefaultMinClusterSize, cfg.Clustering.MinClusterSize)
	assert.Equal(t, DefaultMinSamples, cfg.Clustering.MinSamples)
	assert.Equal(t, DefaultPathfinderS, cfg.Pathfinder.S)
	assert.Equal(t, DefaultPathfinderMaxPaths, cfg.Pathfinder.MaxPaths)
	assert.Equal(t, DefaultPathfinderDepthCap, cfg.Pathfinder.DepthCap)
	assert.Equal(t, DefaultChunkDistance, cfg.Retrieval.ChunkDistance)
	assert.Equal(t, DefaultKeywordDistance, cfg.Retrieval.KeywordDistance)
	assert.Equal(t, DefaultMergeSimilarity, cfg.Retrieval.MergeSimilarity)
	assert.Equal(t, "newsgraph", cfg.OTel.ServiceName)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	clearEnv(t, "CONFIG_FILE", "STORE_BACKEND", "STORE_DSN", "LLM_PROVIDER", "ANTHROPIC_API_KEY", "INGESTION_CONCURRENCY")
	_ = os.Setenv("CONFIG_FILE", "nonexistent-config.yaml")
	_ = os.Setenv("STORE_BACKEND", "postgres")
	_ = os.Setenv("STORE_DSN", "postgres://user@host/db")
	_ = os.Setenv("LLM_PROVIDER", "anthropic")
	_ = os.Setenv("ANTHROPIC_API_KEY", "sk-test")
	_ = os.Setenv("INGESTION_CONCURRENCY", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, "postgres://user@host/db", cfg.Store.DSN)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.Anthropic.APIKey)
	assert.Equal(t, 8, cfg.Ingestion.Concurrency)
}

func TestLoad_YAMLFileIsLayeredUnderEnv(t *testing.T) {
	clearEnv(t, "CONFIG_FILE", "STORE_BACKEND")
	path := "config_loader_test.yaml"
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: postgres\n  dsn: postgres://yaml/db\n"), 0o644))
	t.Cleanup(func() { _ = os.Remove(path) })
	_ = os.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, "postgres://yaml/db", cfg.Store.DSN)
}

func TestParseCommaSeparatedList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, parseCommaSeparatedList(" a, b ,c"))
	assert.Empty(t, parseCommaSeparatedList(""))
}
