// Package google implements llm.Provider against the Gemini API via
// google.golang.org/genai.
package google

import (
	"context"
	"fmt"
	"strings"

	genai "google.golang.org/genai"

	"newsgraph/internal/config"
	"newsgraph/internal/llm"
)

type Client struct {
	client *genai.Client
	model  string
}

func New(cfg config.GoogleConfig) (*Client, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-1.5-flash"
	}
	httpOpts := genai.HTTPOptions{}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		httpOpts.BaseURL = strings.TrimSuffix(base, "/") + "/"
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      strings.TrimSpace(cfg.APIKey),
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("init google client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

func (c *Client) pickModel(model string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return c.model
}

func (c *Client) contentConfig(system string, temperature float64) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(float32(temperature)),
	}
}

func (c *Client) Chat(ctx context.Context, system, user, model string, temperature float64) (string, error) {
	effectiveModel := c.pickModel(model)
	contents := []*genai.Content{genai.NewContentFromText(user, genai.RoleUser)}
	resp, err := c.client.Models.GenerateContent(ctx, effectiveModel, contents, c.contentConfig(system, temperature))
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (c *Client) ChatStream(ctx context.Context, system, user, model string, temperature float64, h llm.StreamHandler) error {
	effectiveModel := c.pickModel(model)
	contents := []*genai.Content{genai.NewContentFromText(user, genai.RoleUser)}
	stream := c.client.Models.GenerateContentStream(ctx, effectiveModel, contents, c.contentConfig(system, temperature))

	for resp, err := range stream {
		if err != nil {
			return err
		}
		if text := resp.Text(); text != "" {
			h.OnDelta(text)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}
