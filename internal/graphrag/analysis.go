package graphrag

import (
	"context"
	"fmt"
	"strings"

	"newsgraph/internal/llm"
)

const engineerSystemPrompt = `You are a research engineer reviewing a drafted answer and its cited
sources. Rewrite the answer as a tightly cited synthesis: every factual claim must carry a
bracketed citation like [1], [2] referencing the numbered source article list. Do not invent
citations for claims the sources don't support.`

const hypothesizerSystemPrompt = `You are a research hypothesizer. Given a question, its cited
answer, and the source articles, propose 2-4 follow-up hypotheses or open questions a researcher
should investigate next. Be concrete: name the entities or relationships involved. Respond with
plain text, one hypothesis per line.`

// AnalysisEvent streams the two-agent deep analysis workflow. Only the
// field matching Stage is populated.
type AnalysisEvent struct {
	Stage string // "engineer_token" | "hypothesizer_token" | "completed" | "failed"
	Token string
	Err   error
}

// DeepAnalyze runs the Engineer and Hypothesizer agents serially over an
// already-completed response, streaming tokens from each in turn, then
// persists both texts plus analyzed_at onto the response's history row.
func (s *Service) DeepAnalyze(ctx context.Context, resp *Response) <-chan AnalysisEvent {
	out := make(chan AnalysisEvent, 8)
	go s.runDeepAnalysis(ctx, resp, out)
	return out
}

func (s *Service) runDeepAnalysis(ctx context.Context, resp *Response, out chan<- AnalysisEvent) {
	defer close(out)

	emit := func(e AnalysisEvent) bool {
		select {
		case out <- e:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(err error) {
		emit(AnalysisEvent{Stage: "failed", Err: err})
	}

	if ctx.Err() != nil {
		fail(ctx.Err())
		return
	}
	if s.provider == nil {
		fail(fmt.Errorf("provider_error: no provider configured"))
		return
	}

	sourceList := formatSourceList(resp.SourceArticles)

	var engineerOut strings.Builder
	engineerUser := fmt.Sprintf("Question: %s\n\nDraft answer:\n%s\n\nSources:\n%s", resp.Query, resp.Answer, sourceList)
	if err := s.provider.ChatStream(ctx, engineerSystemPrompt, engineerUser, s.model, 0.2,
		llm.StringStream{OnDeltaFunc: func(delta string) {
			engineerOut.WriteString(delta)
			emit(AnalysisEvent{Stage: "engineer_token", Token: delta})
		}}); err != nil {
		fail(fmt.Errorf("provider_error: %w", err))
		return
	}

	if ctx.Err() != nil {
		fail(ctx.Err())
		return
	}

	var hypothesizerOut strings.Builder
	hypothesizerUser := fmt.Sprintf("Question: %s\n\nCited answer:\n%s\n\nSources:\n%s", resp.Query, engineerOut.String(), sourceList)
	if err := s.provider.ChatStream(ctx, hypothesizerSystemPrompt, hypothesizerUser, s.model, 0.5,
		llm.StringStream{OnDeltaFunc: func(delta string) {
			hypothesizerOut.WriteString(delta)
			emit(AnalysisEvent{Stage: "hypothesizer_token", Token: delta})
		}}); err != nil {
		fail(fmt.Errorf("provider_error: %w", err))
		return
	}

	if resp.HistoryID != 0 {
		_ = s.db.UpdateQueryHistoryAnalysis(ctx, resp.HistoryID, engineerOut.String(), hypothesizerOut.String())
	}

	emit(AnalysisEvent{Stage: "completed"})
}

func formatSourceList(articles []ArticleRef) string {
	var b strings.Builder
	for i, a := range articles {
		fmt.Fprintf(&b, "[%d] %s (%s)\n", i+1, a.Title, a.Link)
	}
	return b.String()
}
