// Package embedder provides the Embedder contract used for node, chunk,
// and query embeddings, plus a deterministic test double and a local
// HTTP-backed client for an OpenAI-compatible embeddings endpoint.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"sync"
	"time"
)

// Embedder converts text into fixed-dimensional vectors.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
	Dimension() int
	Ping(ctx context.Context) error
}

// httpEmbedder calls a local or remote OpenAI-compatible /embeddings
// endpoint. Requests are sent one chunk at a time: some local inference
// servers (llama.cpp, in particular) misbehave under batched embedding
// requests.
type httpEmbedder struct {
	baseURL string
	model   string
	dim     int
	apiKey  string
	client  *http.Client

	mu       sync.Mutex
	lastCall time.Time
	minDelay time.Duration
}

// Config configures an HTTP embedder client.
type Config struct {
	BaseURL  string
	Model    string
	APIKey   string
	Timeout  time.Duration
	MinDelay time.Duration
}

// NewHTTP constructs an Embedder backed by an OpenAI-compatible HTTP API.
func NewHTTP(cfg Config, dim int) Embedder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpEmbedder{
		baseURL:  cfg.BaseURL,
		model:    cfg.Model,
		dim:      dim,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
		minDelay: cfg.MinDelay,
	}
}

func (c *httpEmbedder) Name() string   { return c.model }
func (c *httpEmbedder) Dimension() int { return c.dim }

func (c *httpEmbedder) Ping(ctx context.Context) error {
	_, err := c.EmbedBatch(ctx, []string{"ping"})
	return err
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *httpEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := c.embedOne(ctx, t)
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *httpEmbedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	if !c.lastCall.IsZero() && c.minDelay > 0 {
		if elapsed := time.Since(c.lastCall); elapsed < c.minDelay {
			time.Sleep(c.minDelay - elapsed)
		}
	}
	c.lastCall = time.Now()
	c.mu.Unlock()

	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: []string{text}})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("embed request: status %d: %s", resp.StatusCode, string(b))
	}
	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embed response contained no vectors")
	}
	return parsed.Data[0].Embedding, nil
}

// deterministicEmbedder hashes byte 3-grams into a fixed-size vector.
// Used by tests and by any component that needs embeddings without a
// running inference server.
type deterministicEmbedder struct {
	dim       int
	normalize bool
	seed      uint64
}

// NewDeterministic constructs a deterministic embedder with the given
// dimension. If normalize is true, vectors are L2-normalized so cosine
// and L2 similarity coincide.
func NewDeterministic(dim int, normalize bool, seed uint64) Embedder {
	if dim <= 0 {
		dim = 64
	}
	return &deterministicEmbedder{dim: dim, normalize: normalize, seed: seed}
}

func (d *deterministicEmbedder) Name() string      { return "deterministic" }
func (d *deterministicEmbedder) Dimension() int    { return d.dim }
func (d *deterministicEmbedder) Ping(_ context.Context) error { return nil }

func (d *deterministicEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = d.embedOne(t)
	}
	return out, nil
}

func (d *deterministicEmbedder) embedOne(s string) []float32 {
	v := make([]float32, d.dim)
	b := []byte(s)
	if len(b) == 0 {
		return v
	}
	if len(b) < 3 {
		addGram(d.seed, b, v)
	} else {
		for i := 0; i <= len(b)-3; i++ {
			addGram(d.seed, b[i:i+3], v)
		}
	}
	if d.normalize {
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		if sum > 0 {
			inv := float32(1.0 / math.Sqrt(sum))
			for i := range v {
				v[i] *= inv
			}
		}
	}
	return v
}

func addGram(seed uint64, gram []byte, v []float32) {
	h := fnv.New64a()
	if seed != 0 {
		var tmp [8]byte
		for i := 0; i < 8; i++ {
			tmp[i] = byte(seed >> (8 * i))
		}
		_, _ = h.Write(tmp[:])
	}
	_, _ = h.Write(gram)
	hv := h.Sum64()
	idx := int(hv % uint64(len(v)))
	w := float32(int32(hv>>32)) / float32(1<<31)
	v[idx] += w
}
