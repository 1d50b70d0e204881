package ingest

import "errors"

// Sentinel errors forming the per-article error taxonomy. database_error
// carries its own message and is constructed with fmt.Errorf("database
// error: %w", ...) rather than a sentinel, so callers match it with
// errors.Is against a wrapped underlying error instead.
var (
	ErrArticleNotFound    = errors.New("article_not_found")
	ErrNoContent          = errors.New("no_content")
	ErrProviderMissingKey = errors.New("provider_missing_key")
	ErrNoProvider         = errors.New("no_provider")
	ErrCancelled          = errors.New("cancelled")
)
