package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsgraph/internal/config"
)

func TestBuild_SelectsProviderByConfig(t *testing.T) {
	cases := []string{"", "openai", "local", "anthropic"}
	for _, provider := range cases {
		cfg := config.Config{}
		cfg.LLM.Provider = provider
		p, err := Build(cfg)
		require.NoError(t, err)
		assert.NotNil(t, p)
	}
}

func TestBuild_UnsupportedProviderReturnsError(t *testing.T) {
	cfg := config.Config{}
	cfg.LLM.Provider = "not-a-real-provider"
	_, err := Build(cfg)
	assert.Error(t, err)
}
