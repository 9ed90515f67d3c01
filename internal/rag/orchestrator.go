package rag

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/nvmediagithub/scriptrating-rag/internal/config"
	"github.com/nvmediagithub/scriptrating-rag/internal/embedcache"
	"github.com/nvmediagithub/scriptrating-rag/internal/embeddings"
	"github.com/nvmediagithub/scriptrating-rag/internal/lexical"
	"github.com/nvmediagithub/scriptrating-rag/internal/router"
	"github.com/nvmediagithub/scriptrating-rag/internal/vectorstore"
)

// Orchestrator is the single public façade composing §4.B-§4.E: the
// embedding chain feeds the vector index and the lexical shadow index on
// ingest; the router decides how to answer a query.
type Orchestrator struct {
	chain  *embeddings.Chain
	store  vectorstore.Store
	lex    *lexical.Index
	router *router.Router
	logger *zap.Logger

	collection     string
	searchDeadline time.Duration

	indexedCount atomic.Int64
	searchCount  atomic.Int64
}

// New constructs an Orchestrator, wiring its dependencies in the
// documented initialisation order: embedding providers, then vector index
// (collection ensured by NewStore), then lexical index (starts empty),
// then router (given the first three).
func New(cfg *config.Config, logger *zap.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	embedCache, err := embedcache.New(cfg.EmbedCache.BackendURL, cfg.EmbedCache.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("rag: constructing embedding cache: %w", err)
	}

	chain, err := buildChain(cfg, embedCache, logger)
	if err != nil {
		return nil, fmt.Errorf("rag: constructing embedding chain: %w", err)
	}

	store, err := vectorstore.NewStore(cfg, embeddings.NewChainEmbedder(chain), logger)
	if err != nil {
		return nil, fmt.Errorf("rag: constructing vector index: %w", err)
	}

	lex := lexical.NewIndex(lexical.Config{
		MaxFeatures:     cfg.Lexical.MaxFeatures,
		MinDocFrequency: cfg.Lexical.MinDocFrequency,
	})

	resultCache, err := embedcache.New(cfg.EmbedCache.BackendURL, cfg.EmbedCache.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("rag: constructing query-result cache: %w", err)
	}

	rcfg := router.Config{
		Strategy:            routerStrategyFromConfig(cfg.Router.Strategy),
		ConfidenceThreshold: cfg.Router.ConfidenceThreshold,
		VectorWeight:        cfg.Router.VectorWeight,
		LexicalWeight:       cfg.Router.LexicalWeight,
		EnableCache:         cfg.Router.EnableCache,
	}
	// The vector store facades built from this config (chromem, qdrant,
	// qdrant-langchain) all default to cosine distance (see
	// vectorstore.ChromemConfig / QdrantConfig); there is no vector.metric
	// config knob yet, so auto and hybrid strategies are validated against
	// "cosine" directly.
	r, err := router.New(store, lex, resultCache, rcfg, cfg.EmbedCache.ResultTTL, "cosine")
	if err != nil {
		return nil, fmt.Errorf("rag: constructing router: %w", err)
	}

	collection := cfg.VectorStore.Chromem.DefaultCollection
	if cfg.VectorStore.Provider == "qdrant" || cfg.VectorStore.Provider == "qdrant-langchain" {
		collection = cfg.Qdrant.CollectionName
	}

	deadline := cfg.RAG.SearchDeadline
	if deadline <= 0 {
		deadline = 5 * time.Second
	}

	return &Orchestrator{
		chain:          chain,
		store:          store,
		lex:            lex,
		router:         r,
		logger:         logger,
		collection:     collection,
		searchDeadline: deadline,
	}, nil
}

// buildChain assembles the embedding provider chain from configuration:
// the configured primary provider (remote/TEI or local/FastEmbed), always
// terminated by a deterministic mock provider so the chain can never fail
// outright (spec §4.B). A primary provider that cannot be constructed at
// startup (e.g. the local model fails to load) is logged and omitted
// rather than aborting construction, since the mock terminal still lets the
// engine run in a degraded mode.
func buildChain(cfg *config.Config, cache embedcache.Cache, logger *zap.Logger) (*embeddings.Chain, error) {
	dim := storeDimension(cfg)
	var opts []embeddings.ChainOption

	switch cfg.Embeddings.Provider {
	case "tei":
		p, err := embeddings.NewProvider(embeddings.ProviderConfig{
			Provider: "tei",
			Model:    cfg.Embeddings.Model,
			BaseURL:  cfg.Embeddings.BaseURL,
		})
		if err != nil {
			logger.Warn("remote embedding provider unavailable at startup; chain continues without it", zap.Error(err))
		} else {
			opts = append(opts, embeddings.ChainOption{
				ID: "remote", Kind: embeddings.KindRemote, Model: cfg.Embeddings.Model,
				Deterministic: true, Timeout: cfg.Embeddings.Timeout, Provider: p,
			})
		}
	case "openai":
		p, err := embeddings.NewProvider(embeddings.ProviderConfig{
			Provider: "openai",
			Model:    cfg.Embeddings.Model,
			BaseURL:  cfg.Embeddings.BaseURL,
			APIKey:   cfg.Embeddings.APIKey.Value(),
		})
		if err != nil {
			logger.Warn("remote embedding provider unavailable at startup; chain continues without it", zap.Error(err))
		} else {
			opts = append(opts, embeddings.ChainOption{
				ID: "remote", Kind: embeddings.KindRemote, Model: cfg.Embeddings.Model,
				Deterministic: true, Timeout: cfg.Embeddings.Timeout, Provider: p,
			})
		}
	default:
		p, err := embeddings.NewProvider(embeddings.ProviderConfig{
			Provider: "fastembed",
			Model:    cfg.Embeddings.Model,
			CacheDir: cfg.Embeddings.CacheDir,
		})
		if err != nil {
			logger.Warn("local embedding provider unavailable at startup; chain continues without it", zap.Error(err))
		} else {
			opts = append(opts, embeddings.ChainOption{
				ID: "local", Kind: embeddings.KindLocal, Model: cfg.Embeddings.Model,
				Deterministic: true, Timeout: cfg.Embeddings.Timeout, Provider: p,
			})
			if dim <= 0 {
				dim = p.Dimension()
			}
		}
	}

	if dim <= 0 {
		dim = 384
	}
	opts = append(opts, embeddings.ChainOption{
		ID: "mock", Kind: embeddings.KindMock, Model: "mock",
		Deterministic: true, Timeout: cfg.Embeddings.Timeout, Provider: embeddings.NewMockProvider(dim),
	})

	return embeddings.NewChain(opts, cache, embeddings.ChainConfig{
		CacheTTL:  cfg.EmbedCache.TTL,
		BatchSize: cfg.Embeddings.BatchSize,
	})
}

// newWithDeps wires a pre-built store/lex/router directly, bypassing the
// config-driven construction in New. Used by tests to exercise the
// orchestrator's index/search/health logic against fakes.
func newWithDeps(chain *embeddings.Chain, store vectorstore.Store, lex *lexical.Index, r *router.Router, deadline time.Duration, collection string) *Orchestrator {
	if deadline <= 0 {
		deadline = 5 * time.Second
	}
	return &Orchestrator{
		chain:          chain,
		store:          store,
		lex:            lex,
		router:         r,
		logger:         zap.NewNop(),
		collection:     collection,
		searchDeadline: deadline,
	}
}

// routerStrategyFromConfig translates ROUTER_STRATEGY's config-level
// vocabulary ("auto"/"vector"/"lexical"/"hybrid"/"") into the router
// package's Strategy constants, which spell the single-index variants
// "vector-only"/"lexical-only" to make their no-fallback behaviour
// explicit at the call site.
func routerStrategyFromConfig(s string) router.Strategy {
	switch s {
	case "vector":
		return router.StrategyVectorOnly
	case "lexical":
		return router.StrategyLexicalOnly
	case "hybrid":
		return router.StrategyHybrid
	default:
		return router.StrategyAuto
	}
}

func storeDimension(cfg *config.Config) int {
	if cfg.VectorStore.Provider == "qdrant" || cfg.VectorStore.Provider == "qdrant-langchain" {
		return int(cfg.Qdrant.VectorSize)
	}
	return cfg.VectorStore.Chromem.VectorSize
}

// IndexDocument embeds and upserts a single document into both the vector
// and lexical indices (spec §4.F index-document). wait is accepted for
// interface parity with the upsert(records, wait) contract; the
// backing stores wired here (chromem, qdrant) are already synchronous by
// the time AddDocuments returns, so there is no separate "not yet
// queryable" window to wait out.
func (o *Orchestrator) IndexDocument(ctx context.Context, doc Document, wait bool) error {
	return o.IndexBatch(ctx, []Document{doc}, wait)
}

// IndexBatch embeds and upserts a batch of documents in one vector-store
// call and one lexical-index update, preserving the "all of B is
// present in both indices after the call returns successfully, or none
// is" invariant: the lexical index is only touched after the vector
// upsert succeeds.
func (o *Orchestrator) IndexBatch(ctx context.Context, docs []Document, wait bool) error {
	if len(docs) == 0 {
		return nil
	}

	vsDocs := make([]vectorstore.Document, len(docs))
	lexRecords := make([]lexical.Record, len(docs))
	for i, d := range docs {
		vsDocs[i] = vectorstore.Document{ID: d.ID, Content: d.Text, Metadata: d.Metadata}
		lexRecords[i] = lexical.Record{ID: d.ID, Text: d.Text, Payload: d.Metadata}
	}

	if _, err := o.store.AddDocuments(ctx, vsDocs); err != nil {
		return fmt.Errorf("rag: index batch: vector upsert: %w", err)
	}

	o.lex.AddOrUpdate(lexRecords)
	o.indexedCount.Add(int64(len(docs)))
	return nil
}

// DeleteDocuments removes documents by id from both indices (spec §4.F
// delete-documents). A second call with already-deleted ids is a no-op
// that still returns success, matching the idempotence law in spec §8.
func (o *Orchestrator) DeleteDocuments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := o.store.DeleteDocuments(ctx, ids); err != nil {
		return fmt.Errorf("rag: delete documents: %w", err)
	}
	o.lex.Remove(ids)
	return nil
}

// Search delegates to the router using its configured strategy, wrapped
// in the orchestrator's end-to-end search deadline (spec §4.F
// search-path timeout). A query with k<=0 returns empty immediately
// without touching any downstream component (spec §8 boundary
// behaviour). If the deadline is hit, the search returns an empty,
// degraded result rather than an error or a partial one.
func (o *Orchestrator) Search(ctx context.Context, text string, k int, filters map[string]string) (router.Response, error) {
	if k <= 0 {
		return router.Response{Results: nil}, nil
	}

	o.searchCount.Add(1)
	cctx, cancel := context.WithTimeout(ctx, o.searchDeadline)
	defer cancel()

	resp, err := o.router.Query(cctx, text, k, filters)
	if errors.Is(cctx.Err(), context.DeadlineExceeded) || errors.Is(cctx.Err(), context.Canceled) {
		return router.Response{Degraded: true}, nil
	}
	if err != nil {
		return router.Response{}, err
	}
	return resp, nil
}

// HybridSearch forces strategy=hybrid for this call regardless of the
// router's configured default (spec §4.F hybrid-search), with the same
// end-to-end deadline wrapping as Search.
func (o *Orchestrator) HybridSearch(ctx context.Context, text string, k int, vectorWeight, lexicalWeight float64, filters map[string]string) (router.Response, error) {
	if k <= 0 {
		return router.Response{Results: nil}, nil
	}

	o.searchCount.Add(1)
	cctx, cancel := context.WithTimeout(ctx, o.searchDeadline)
	defer cancel()

	resp, err := o.router.QueryHybrid(cctx, text, k, vectorWeight, lexicalWeight, filters)
	if errors.Is(cctx.Err(), context.DeadlineExceeded) || errors.Is(cctx.Err(), context.Canceled) {
		return router.Response{Degraded: true, Strategy: router.StrategyHybrid}, nil
	}
	if err != nil {
		return router.Response{}, err
	}
	return resp, nil
}

// Health reports the orchestrator's aggregate status: unhealthy when both
// the vector index and the embedding chain are unusable, degraded when only
// the vector index cannot be reached (lexical fallback still serves
// queries), healthy otherwise. The lexical index is always reported healthy.
func (o *Orchestrator) Health(ctx context.Context) Health {
	components := make(map[string]Status, 3)

	vectorStatus := StatusHealthy
	if _, err := o.store.GetCollectionInfo(ctx, o.collection); err != nil {
		vectorStatus = StatusUnhealthy
	}
	components["vector_index"] = vectorStatus

	lexStatus := StatusHealthy
	components["lexical_index"] = lexStatus

	chainStatus := StatusHealthy
	if o.chain.Len() == 0 {
		chainStatus = StatusUnhealthy
	}
	components["embedding_chain"] = chainStatus

	overall := StatusHealthy
	switch {
	case vectorStatus == StatusUnhealthy && chainStatus == StatusUnhealthy:
		overall = StatusUnhealthy
	case vectorStatus == StatusUnhealthy:
		overall = StatusDegraded
	}

	return Health{Status: overall, Components: components}
}

// Metrics returns a read-only snapshot of indexing/search counters and
// component health (spec §4.F metrics()).
func (o *Orchestrator) Metrics(ctx context.Context) Metrics {
	var avgMs, hitRate float64
	var samples int
	for _, snap := range o.router.Metrics() {
		avgMs += snap.AvgLatencyMs
		hitRate += snap.CacheHitRate
		samples++
	}
	if samples > 0 {
		avgMs /= float64(samples)
		hitRate /= float64(samples)
	}

	indexedCount := int(o.indexedCount.Load())
	if info, err := o.store.GetCollectionInfo(ctx, o.collection); err == nil {
		indexedCount = info.PointCount
	}

	h := o.Health(ctx)
	return Metrics{
		IndexedCount:    indexedCount,
		SearchCount:     o.searchCount.Load(),
		AvgSearchMS:     avgMs,
		CacheHitRate:    hitRate,
		ComponentHealth: h.Components,
	}
}

// Close releases resources held by the vector index. Embedding providers
// and the lexical index hold no external connections to release.
func (o *Orchestrator) Close() error {
	return o.store.Close()
}
