package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedQuery wraps an Embedder with a Redis-backed cache for query
// embeddings. GraphRAG queries repeat across a session far more than
// ingested chunk text does, so only query embeddings are cached.
type CachedQuery struct {
	inner Embedder
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCachedQuery wraps inner with a Redis cache keyed by sha256(model, text).
func NewCachedQuery(inner Embedder, rdb *redis.Client, ttl time.Duration) *CachedQuery {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedQuery{inner: inner, rdb: rdb, ttl: ttl}
}

func (c *CachedQuery) Name() string                          { return c.inner.Name() }
func (c *CachedQuery) Dimension() int                        { return c.inner.Dimension() }
func (c *CachedQuery) Ping(ctx context.Context) error         { return c.inner.Ping(ctx) }

func (c *CachedQuery) cacheKey(text string) string {
	h := sha256.New()
	h.Write([]byte(c.inner.Name()))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return "embedcache:" + hex.EncodeToString(h.Sum(nil))
}

// EmbedQuery embeds a single query string, checking the cache first.
func (c *CachedQuery) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)
	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		return decodeFloat32s(raw), nil
	}
	vecs, err := c.inner.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	v := vecs[0]
	_ = c.rdb.Set(ctx, key, encodeFloat32s(v), c.ttl).Err()
	return v, nil
}

// EmbedBatch bypasses the cache: batch embedding calls are assumed to be
// ingestion traffic (chunks, node labels), not repeated queries.
func (c *CachedQuery) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return c.inner.EmbedBatch(ctx, texts)
}

func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func decodeFloat32s(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
