// Package local implements llm.Provider against a self-hosted,
// OpenAI-compatible /chat/completions endpoint (llama.cpp, vLLM,
// ollama's OpenAI shim, and similar).
package local

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"newsgraph/internal/config"
	"newsgraph/internal/llm"
)

type Client struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

func New(cfg config.OpenAIConfig) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
		Delta   chatMessage `json:"delta"`
	} `json:"choices"`
}

func (c *Client) pickModel(model string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return c.model
}

func (c *Client) request(ctx context.Context, system, user, model string, temperature float64, stream bool) (*http.Response, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.pickModel(model),
		Temperature: temperature,
		Stream:      stream,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("chat request: status %d: %s", resp.StatusCode, string(b))
	}
	return resp, nil
}

func (c *Client) Chat(ctx context.Context, system, user, model string, temperature float64) (string, error) {
	resp, err := c.request(ctx, system, user, model, temperature, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return parsed.Choices[0].Message.Content, nil
}

// ChatStream consumes a server-sent-events stream of
// "data: {...}\n\n" frames terminated by "data: [DONE]", the de facto
// OpenAI-compatible streaming wire format.
func (c *Client) ChatStream(ctx context.Context, system, user, model string, temperature float64, h llm.StreamHandler) error {
	resp, err := c.request(ctx, system, user, model, temperature, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}
		var chunk chatResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			h.OnDelta(chunk.Choices[0].Delta.Content)
		}
	}
	return scanner.Err()
}
