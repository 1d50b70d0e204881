// Package openai implements llm.Provider against the OpenAI chat
// completions API. The "local" provider alias is served by the separate
// internal/llm/local client, not by this one.
package openai

import (
	"context"
	"strings"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"newsgraph/internal/config"
	"newsgraph/internal/llm"
)

type Client struct {
	sdk   sdk.Client
	model string
}

func New(cfg config.OpenAIConfig) *Client {
	opts := []option.RequestOption{option.WithAPIKey(strings.TrimSpace(cfg.APIKey))}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = sdk.ChatModelGPT4o
	}
	return &Client{sdk: sdk.NewClient(opts...), model: model}
}

func (c *Client) pickModel(model string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return c.model
}

func (c *Client) params(system, user, model string, temperature float64) sdk.ChatCompletionNewParams {
	return sdk.ChatCompletionNewParams{
		Model:       sdk.ChatModel(c.pickModel(model)),
		Temperature: sdk.Float(temperature),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.SystemMessage(system),
			sdk.UserMessage(user),
		},
	}
}

func (c *Client) Chat(ctx context.Context, system, user, model string, temperature float64) (string, error) {
	resp, err := c.sdk.Chat.Completions.New(ctx, c.params(system, user, model, temperature))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) ChatStream(ctx context.Context, system, user, model string, temperature float64, h llm.StreamHandler) error {
	stream := c.sdk.Chat.Completions.NewStreaming(ctx, c.params(system, user, model, temperature))
	defer func() { _ = stream.Close() }()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) > 0 {
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				h.OnDelta(delta)
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return stream.Err()
}
