package ingest

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"newsgraph/internal/contentfetch"
	"newsgraph/internal/embedder"
	"newsgraph/internal/objectstore"
	"newsgraph/internal/store"
)

// ArchiveConfig optionally offloads large article bodies to an
// ObjectStore instead of leaving them inline in feed_items.full_content.
// A zero-value ArchiveConfig (nil Store) disables archiving.
type ArchiveConfig struct {
	Store             objectstore.ObjectStore
	SizeThresholdByte int
}

func (a ArchiveConfig) enabled() bool {
	return a.Store != nil && a.SizeThresholdByte > 0
}

// Extractor turns an article's full content into a hypergraph
// extraction. Implementations call an LLM provider; ErrProviderMissingKey
// and ErrNoProvider surface configuration errors distinctly from
// extraction failures.
type Extractor func(ctx context.Context, feedItemID int64, fullContent string) (Extraction, error)

// ContentCleaner is the external ContentExtractor collaborator: it turns
// a feed item's raw full_content (HTML, typically) into clean Markdown
// before chunking and extraction run over it. A nil ContentCleaner skips
// cleaning entirely.
type ContentCleaner interface {
	Clean(rawHTML, baseURL string) (title, markdown string, err error)
}

// ProgressFunc reports batch progress after each article finishes,
// successfully or not.
type ProgressFunc func(done, total int)

// DefaultConcurrency is the batch driver's default bounded parallelism.
const DefaultConcurrency = 4

// ProcessUnprocessedArticles processes every feed item not already
// completed or in-flight, with bounded parallelism. A failure in one
// article is recorded on its article_status row and does not abort the
// batch; cancellation is checked before each article starts. It returns
// the number of articles that completed successfully.
func ProcessUnprocessedArticles(ctx context.Context, db *store.Store, extract Extractor, chunkEmbed embedder.Embedder, embeddingModel string, concurrency int, progress ProgressFunc) (int, error) {
	return ProcessUnprocessedArticlesWithArchive(ctx, db, extract, chunkEmbed, embeddingModel, concurrency, progress, ArchiveConfig{})
}

// ProcessUnprocessedArticlesFull is ProcessUnprocessedArticlesWithArchive
// with an optional content-cleaning step: any full_content that looks
// like HTML is run through clean before archiving and extraction. A nil
// clean leaves full_content untouched.
func ProcessUnprocessedArticlesFull(ctx context.Context, db *store.Store, extract Extractor, chunkEmbed embedder.Embedder, embeddingModel string, concurrency int, progress ProgressFunc, archive ArchiveConfig, clean ContentCleaner) (int, error) {
	return processUnprocessedArticles(ctx, db, extract, chunkEmbed, embeddingModel, concurrency, progress, archive, clean)
}

// ProcessUnprocessedArticlesWithArchive is ProcessUnprocessedArticles with
// an optional full_content archive step: articles at or above
// archive.SizeThresholdByte have their body written to archive.Store
// under "articles/<feed_item_id>.txt" before extraction runs. Archiving
// is best-effort; a failure is logged as a warning and never aborts the
// article or the batch.
func ProcessUnprocessedArticlesWithArchive(ctx context.Context, db *store.Store, extract Extractor, chunkEmbed embedder.Embedder, embeddingModel string, concurrency int, progress ProgressFunc, archive ArchiveConfig) (int, error) {
	return processUnprocessedArticles(ctx, db, extract, chunkEmbed, embeddingModel, concurrency, progress, archive, nil)
}

func processUnprocessedArticles(ctx context.Context, db *store.Store, extract Extractor, chunkEmbed embedder.Embedder, embeddingModel string, concurrency int, progress ProgressFunc, archive ArchiveConfig, clean ContentCleaner) (int, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	ids, err := db.ListUnprocessedFeedItems(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var completed int64
	var done int64
	total := len(ids)

	g, gctx := errgroup.WithContext(context.Background())
	g.SetLimit(concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			ok := processOne(ctx, db, id, extract, chunkEmbed, embeddingModel, archive, clean)
			if ok {
				atomic.AddInt64(&completed, 1)
			}
			d := atomic.AddInt64(&done, 1)
			if progress != nil {
				progress(int(d), total)
			}
			return nil
		})
	}
	_ = gctx
	_ = g.Wait()
	return int(completed), nil
}

func processOne(ctx context.Context, db *store.Store, feedItemID int64, extract Extractor, chunkEmbed embedder.Embedder, embeddingModel string, archive ArchiveConfig, clean ContentCleaner) bool {
	now := time.Now()
	_ = db.SetArticleStatus(ctx, store.ArticleStatus{FeedItemID: feedItemID, State: store.ArticleProcessing, StartedAt: &now})

	fail := func(err error) bool {
		finished := time.Now()
		_ = db.SetArticleStatus(ctx, store.ArticleStatus{
			FeedItemID: feedItemID, State: store.ArticleFailed, ErrorMessage: err.Error(), FinishedAt: &finished,
		})
		return false
	}

	if ctx.Err() != nil {
		return fail(ErrCancelled)
	}

	item, found, err := db.GetFeedItem(ctx, feedItemID)
	if err != nil {
		return fail(err)
	}
	if !found {
		return fail(ErrArticleNotFound)
	}
	if item.FullContent == "" {
		return fail(ErrNoContent)
	}

	content := item.FullContent
	if clean != nil && contentfetch.LooksLikeHTML(content) {
		if _, md, cerr := clean.Clean(content, item.Link); cerr == nil && md != "" {
			content = md
		} else if cerr != nil {
			log.Warn().Err(cerr).Int64("feed_item_id", feedItemID).Msg("clean full_content")
		}
	}

	if archive.enabled() && len(content) >= archive.SizeThresholdByte {
		key := "articles/" + strconv.FormatInt(feedItemID, 10) + ".txt"
		if _, err := archive.Store.Put(ctx, key, strings.NewReader(content), objectstore.PutOptions{ContentType: "text/plain"}); err != nil {
			log.Warn().Err(err).Int64("feed_item_id", feedItemID).Msg("archive full_content")
		}
	}

	ex, err := extract(ctx, feedItemID, content)
	if err != nil {
		if errors.Is(err, ErrNoProvider) || errors.Is(err, ErrProviderMissingKey) || errors.Is(err, ErrCancelled) {
			return fail(err)
		}
		return fail(err)
	}

	if err := PersistArticle(ctx, db, feedItemID, content, ex, embeddingModel, chunkEmbed); err != nil {
		return fail(err)
	}
	return true
}

// OneArticleProcessor runs the full per-article pipeline (clean, archive,
// extract, persist) for a single feed item, as used by an
// ingestqueue.Consumer in place of the polling batch driver.
type OneArticleProcessor struct {
	DB             *store.Store
	Extract        Extractor
	ChunkEmbedder  embedder.Embedder
	EmbeddingModel string
	Archive        ArchiveConfig
	Clean          ContentCleaner
}

// ProcessOne processes a single feed item and reports whether it
// completed successfully; failures are recorded on the article's status
// row, mirroring the batch driver.
func (p OneArticleProcessor) ProcessOne(ctx context.Context, feedItemID int64) (bool, error) {
	ok := processOne(ctx, p.DB, feedItemID, p.Extract, p.ChunkEmbedder, p.EmbeddingModel, p.Archive, p.Clean)
	return ok, nil
}
