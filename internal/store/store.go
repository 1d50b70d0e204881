// Package store implements the persistent hypergraph schema: relational
// tables for feed items, chunks, nodes, hyperedges, incidences,
// provenance, clusters, and query history, plus three companion vector
// indexes (node embeddings, chunk embeddings, event vectors).
//
// A single process-scoped Store handle is created at startup and threaded
// through services as a *Store.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"newsgraph/internal/persistence/databases"
)

// Config selects the relational backend and the three vector backends.
// Backends default to "memory" so tests can construct a Store with no
// external services running.
type Config struct {
	Backend string // "memory" | "postgres"
	DSN     string

	NodeVectors  databases.VectorConfig
	ChunkVectors databases.VectorConfig
	EventVectors databases.VectorConfig
}

// raw is the relational backend implemented by both the in-memory test
// double and the Postgres-backed store. Store forwards its public, typed
// methods to whichever raw implementation Open selected.
type raw interface {
	upsertSource(ctx context.Context, s Source) (int64, error)
	upsertFeedItem(ctx context.Context, fi FeedItem) (int64, error)
	getFeedItem(ctx context.Context, id int64) (FeedItem, bool, error)
	setArticleStatus(ctx context.Context, st ArticleStatus) error
	getArticleStatus(ctx context.Context, feedItemID int64) (ArticleStatus, bool, error)
	listUnprocessedFeedItems(ctx context.Context) ([]int64, error)

	upsertChunk(ctx context.Context, c ArticleChunk) (int64, error)
	listChunks(ctx context.Context, feedItemID int64) ([]ArticleChunk, error)
	getChunk(ctx context.Context, id int64) (ArticleChunk, bool, error)
	markChunkEmbedded(ctx context.Context, id int64, model string) error

	upsertNode(ctx context.Context, nodeID, label, nodeType string) (int64, error)
	getNodeByNodeID(ctx context.Context, nodeID string) (Node, bool, error)
	getNode(ctx context.Context, id int64) (Node, bool, error)
	markNodeEmbedded(ctx context.Context, id int64, model string) error
	deleteNode(ctx context.Context, id int64) error
	allNodes(ctx context.Context) ([]Node, error)

	upsertEdge(ctx context.Context, edgeID, label string, sourceChunkID *int64) (int64, error)
	getEdgeByEdgeID(ctx context.Context, edgeID string) (Edge, bool, error)
	getEdge(ctx context.Context, id int64) (Edge, bool, error)
	deleteEdge(ctx context.Context, id int64) error
	allEdges(ctx context.Context) ([]Edge, error)
	edgeCount(ctx context.Context) (int, error)

	upsertIncidence(ctx context.Context, edgeID, nodeID int64, role Role, position int) (int64, error)
	repointIncidences(ctx context.Context, fromNodeID, toNodeID int64) error
	dedupeIncidences(ctx context.Context, edgeID int64) error
	incidencesForEdge(ctx context.Context, edgeID int64) ([]Incidence, error)
	incidencesForNode(ctx context.Context, nodeID int64) ([]Incidence, error)
	allIncidences(ctx context.Context) ([]Incidence, error)
	edgeHasIncidences(ctx context.Context, edgeID int64) (bool, error)

	upsertProvenance(ctx context.Context, p Provenance) (int64, error)
	provenanceForEdge(ctx context.Context, edgeID int64) ([]Provenance, error)

	appendMergeHistory(ctx context.Context, row MergeHistoryRow) error

	resetBuild(ctx context.Context, buildID string) error
	insertCluster(ctx context.Context, c Cluster) error
	insertEventCluster(ctx context.Context, buildID, edgeID string, clusterID int, score float64) error
	insertClusterMember(ctx context.Context, buildID string, clusterID int, edgeID string) error
	insertClusterExemplar(ctx context.Context, buildID string, clusterID int, edgeID string, rank int) error
	listClusters(ctx context.Context, buildID string) ([]Cluster, error)

	insertQueryHistory(ctx context.Context, row QueryHistoryRow) (int64, error)
	updateQueryHistoryAnalysis(ctx context.Context, id int64, synthesized, hypotheses string) error
	getQueryHistory(ctx context.Context, id int64) (QueryHistoryRow, bool, error)
	listQueryHistory(ctx context.Context, limit int) ([]QueryHistoryRow, error)

	statistics(ctx context.Context) (nodeCount, edgeCount, processedArticles, embeddingCount int, err error)

	// withTx runs fn inside a single relational transaction for the
	// memory backend (a mutex-guarded critical section) or a real SQL
	// transaction for Postgres. Either way, all writes inside fn are
	// atomic: the caller sees either all of them or none.
	withTx(ctx context.Context, fn func(ctx context.Context, tx raw) error) error
}

// Store is the process-scoped handle to the relational hypergraph schema
// and its three vector indexes.
type Store struct {
	backend string
	pool    *pgxpool.Pool // nil when backend == "memory"
	raw     raw

	NodeVectors  databases.VectorStore
	ChunkVectors databases.VectorStore
	EventVectors databases.VectorStore

	log zerolog.Logger
}

// Open constructs a Store, applying migrations (postgres backend) or
// initializing in-process maps (memory backend), and opens the three
// vector indexes per cfg.
func Open(ctx context.Context, cfg Config, log zerolog.Logger) (*Store, error) {
	s := &Store{backend: cfg.Backend, log: log}

	switch cfg.Backend {
	case "", "memory":
		s.backend = "memory"
		s.raw = newMemBackend()
	case "postgres":
		pool, err := databases.OpenPool(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres pool: %w", err)
		}
		s.pool = pool
		if err := applyMigrations(ctx, pool, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		s.raw = &pgBackend{pool: pool}
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}

	nv, err := openVectorStore(ctx, cfg.Backend, cfg.NodeVectors, s.pool)
	if err != nil {
		return nil, fmt.Errorf("open node vectors: %w", err)
	}
	cv, err := openVectorStore(ctx, cfg.Backend, cfg.ChunkVectors, s.pool)
	if err != nil {
		return nil, fmt.Errorf("open chunk vectors: %w", err)
	}
	ev, err := openVectorStore(ctx, cfg.Backend, cfg.EventVectors, s.pool)
	if err != nil {
		return nil, fmt.Errorf("open event vectors: %w", err)
	}
	s.NodeVectors, s.ChunkVectors, s.EventVectors = nv, cv, ev
	return s, nil
}

func openVectorStore(ctx context.Context, relBackend string, vc databases.VectorConfig, pool *pgxpool.Pool) (databases.VectorStore, error) {
	if vc.Backend == "" && relBackend == "postgres" {
		vc.Backend = "postgres"
	}
	return databases.NewVectorStore(ctx, vc, pool)
}

// Close releases the underlying connection pool and vector-store clients.
func (s *Store) Close() {
	if s.NodeVectors != nil {
		s.NodeVectors.Close()
	}
	if s.ChunkVectors != nil {
		s.ChunkVectors.Close()
	}
	if s.EventVectors != nil {
		s.EventVectors.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

// InMemory reports whether the Store is running against the in-process
// map backend (used by tests and by the "memory" config backend).
func (s *Store) InMemory() bool { return s.backend == "memory" }

// Write runs fn as a single scoped write transaction: every call inside
// fn either all commit or all roll back. This is the Go shape of the
// storage design's "read(f)/write(f) scoped transactions".
func (s *Store) Write(ctx context.Context, fn func(ctx context.Context, tx *Store) error) error {
	return s.raw.withTx(ctx, func(ctx context.Context, r raw) error {
		txStore := &Store{backend: s.backend, pool: s.pool, raw: r, NodeVectors: s.NodeVectors, ChunkVectors: s.ChunkVectors, EventVectors: s.EventVectors, log: s.log}
		return fn(ctx, txStore)
	})
}
