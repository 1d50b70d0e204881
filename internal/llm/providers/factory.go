// Package providers selects and constructs a concrete llm.Provider from
// configuration.
package providers

import (
	"fmt"

	"newsgraph/internal/config"
	"newsgraph/internal/llm"
	"newsgraph/internal/llm/anthropic"
	"newsgraph/internal/llm/google"
	"newsgraph/internal/llm/local"
	openaillm "newsgraph/internal/llm/openai"
)

// Build constructs an llm.Provider from cfg.LLM.Provider:
//   - "" / "openai": the OpenAI client
//   - "local": the OpenAI-compatible client pointed at a self-hosted endpoint
//   - "anthropic": the Anthropic client
//   - "google": the Gemini client
func Build(cfg config.Config) (llm.Provider, error) {
	switch cfg.LLM.Provider {
	case "", "openai":
		return openaillm.New(cfg.LLM.OpenAI), nil
	case "local":
		return local.New(cfg.LLM.OpenAI), nil
	case "anthropic":
		return anthropic.New(cfg.LLM.Anthropic), nil
	case "google":
		return google.New(cfg.LLM.Google)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.LLM.Provider)
	}
}
