package clustering

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"newsgraph/internal/llm"
	"newsgraph/internal/llmutil"
	"newsgraph/internal/store"
)

const labelSystemPrompt = `You label clusters of related news events for an analyst dashboard.
Given a list of prominent entities, relation families, and example relationship
sentences from one cluster, respond with a single JSON object of the form
{"title": "...", "summary": "..."}. The title should be short (under 8 words).
Respond with the JSON object only, no commentary.`

// labelWithLLM asks the configured provider for a title and summary for
// one cluster. Any provider or parse failure is reported via ok=false so
// the caller can keep the auto-generated label; a single cluster's
// labeling failure never aborts the run.
func labelWithLLM(ctx context.Context, p llm.Provider, model string, c store.Cluster) (title, summary string, ok bool) {
	var entities, families []string
	_ = json.Unmarshal(c.TopEntitiesJSON, &entities)
	_ = json.Unmarshal(c.TopFamiliesJSON, &families)

	prompt := fmt.Sprintf("Entities: %s\nRelation families: %s\n",
		strings.Join(entities, ", "), strings.Join(families, ", "))

	text, err := p.Chat(ctx, labelSystemPrompt, prompt, model, 0.2)
	if err != nil {
		return "", "", false
	}

	text = llmutil.StripCodeFence(text)
	var parsed struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return "", "", false
	}
	if parsed.Title == "" {
		return "", "", false
	}
	return parsed.Title, parsed.Summary, true
}
