// Package llm defines the capability interfaces the knowledge-graph core
// consumes from pluggable chat providers. Implementations for local and
// cloud endpoints share no parent type; callers depend only on Provider.
package llm

import "context"

// Message is one turn of a chat exchange.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// StreamHandler receives incremental tokens from a streaming Chat call.
type StreamHandler interface {
	OnDelta(content string)
}

// Provider is the chat contract consumed by the GraphRAG pipeline,
// keyword extraction, clustering labeling, and deep analysis. Local and
// cloud implementations are built against their own SDKs and registered
// through providers.Build; none of them embed a shared base struct.
type Provider interface {
	// Chat performs a single-shot completion and returns the full text.
	Chat(ctx context.Context, system, user string, model string, temperature float64) (string, error)
	// ChatStream performs the same completion but delivers tokens to h as
	// they arrive. Implementations must stop emitting once ctx is done.
	ChatStream(ctx context.Context, system, user string, model string, temperature float64, h StreamHandler) error
}

// StringStream adapts a plain func(string) into a StreamHandler: each
// delta is passed to OnDeltaFunc as it arrives (a nil func drops it).
type StringStream struct {
	OnDeltaFunc func(string)
}

func (s StringStream) OnDelta(content string) {
	if s.OnDeltaFunc != nil {
		s.OnDeltaFunc(content)
	}
}
