package graphrag

import (
	"context"
	"time"

	"newsgraph/internal/analytics"
	"newsgraph/internal/embedder"
	"newsgraph/internal/llm"
	"newsgraph/internal/observability"
	"newsgraph/internal/store"
)

const (
	DefaultMaxChunks           = 5
	defaultKeywordDistance     = 0.5
	defaultChunkDistance       = 0.5
	defaultRelatedNodeLimit    = 20
	defaultDirectEdgeLimit     = 50
	defaultPathfinderS         = 1
	defaultPathfinderMaxPaths  = 3
)

// queryEmbedder is satisfied by *embedder.CachedQuery; callers using a
// plain embedder.Embedder still work via the EmbedBatch fallback in
// embedQuery.
type queryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Service runs the GraphRAG pipeline against one hypergraph store.
type Service struct {
	db       *store.Store
	emb      embedder.Embedder
	provider llm.Provider
	model    string

	maxChunks int
	stopWords map[string]bool
	metrics   observability.Metrics
	analytics analytics.QuerySink
}

// Option configures a Service during construction.
type Option func(*Service)

// WithModel sets the chat model name passed to the provider.
func WithModel(model string) Option { return func(s *Service) { s.model = model } }

// WithMaxChunks overrides the default retrieved-chunk limit.
func WithMaxChunks(n int) Option { return func(s *Service) { s.maxChunks = n } }

// WithStopWords overrides the fallback keyword-extraction stop-word set.
func WithStopWords(words []string) Option {
	return func(s *Service) {
		set := make(map[string]bool, len(words))
		for _, w := range words {
			set[w] = true
		}
		s.stopWords = set
	}
}

// WithMetrics records per-phase timing and outcome counters as the
// pipeline runs. Without it, Ask runs unobserved.
func WithMetrics(m observability.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithAnalyticsSink mirrors every completed query's metrics to an
// external analytics sink, independent of the relational query_history
// table. Without it, no mirroring happens.
func WithAnalyticsSink(sink analytics.QuerySink) Option {
	return func(s *Service) { s.analytics = sink }
}

// New constructs a Service. emb embeds keywords and questions; provider
// answers chat prompts (keyword extraction, answer generation, deep
// analysis).
func New(db *store.Store, emb embedder.Embedder, provider llm.Provider, opts ...Option) *Service {
	s := &Service{
		db:        db,
		emb:       emb,
		provider:  provider,
		maxChunks: DefaultMaxChunks,
		stopWords: defaultStopWords(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) embedQuery(ctx context.Context, text string) ([]float32, error) {
	if qe, ok := s.emb.(queryEmbedder); ok {
		return qe.EmbedQuery(ctx, text)
	}
	vecs, err := s.emb.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	return vecs[0], nil
}

// observePhase records a phase's wall-clock duration and a
// success/error outcome counter. No-op when no metrics sink is
// configured.
func (s *Service) observePhase(phase string, took time.Duration, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveHistogram(phase+"_duration_ms", float64(took.Milliseconds()), map[string]string{"status": status})
	s.metrics.IncCounter(phase+"_total", map[string]string{"status": status})
}

func defaultStopWords() map[string]bool {
	words := []string{
		"the", "a", "an", "and", "or", "but", "in", "on", "at", "to",
		"for", "of", "as", "by", "is", "was", "are", "were", "be", "been",
		"this", "that", "these", "those", "with", "from", "its", "it",
		"what", "which", "who", "whom", "how", "why", "when", "where",
		"does", "did", "has", "have", "had", "will", "would", "could",
		"about", "into", "than", "then", "there", "their", "they",
	}
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
