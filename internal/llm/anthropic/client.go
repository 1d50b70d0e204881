// Package anthropic implements llm.Provider against the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"newsgraph/internal/config"
	"newsgraph/internal/llm"
)

const defaultMaxTokens int64 = 2048

type Client struct {
	sdk   sdk.Client
	model string
}

func New(cfg config.AnthropicConfig) *Client {
	opts := []option.RequestOption{option.WithAPIKey(strings.TrimSpace(cfg.APIKey))}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = string(sdk.ModelClaude3_7SonnetLatest)
	}
	return &Client{sdk: sdk.NewClient(opts...), model: model}
}

func (c *Client) pickModel(model string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return c.model
}

func (c *Client) Chat(ctx context.Context, system, user, model string, temperature float64) (string, error) {
	resp, err := c.sdk.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(c.pickModel(model)),
		MaxTokens:   defaultMaxTokens,
		Temperature: sdk.Float(temperature),
		System:      []sdk.TextBlockParam{{Text: system}},
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(user))},
	})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(sdk.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}
	return b.String(), nil
}

func (c *Client) ChatStream(ctx context.Context, system, user, model string, temperature float64, h llm.StreamHandler) error {
	stream := c.sdk.Messages.NewStreaming(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(c.pickModel(model)),
		MaxTokens:   defaultMaxTokens,
		Temperature: sdk.Float(temperature),
		System:      []sdk.TextBlockParam{{Text: system}},
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(user))},
	})
	defer func() { _ = stream.Close() }()

	for stream.Next() {
		event := stream.Current()
		if delta, ok := event.AsAny().(sdk.ContentBlockDeltaEvent); ok {
			if text, ok := delta.Delta.AsAny().(sdk.TextDelta); ok && text.Text != "" {
				h.OnDelta(text.Text)
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return stream.Err()
}
