package router

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nvmediagithub/scriptrating-rag/internal/embedcache"
	"github.com/nvmediagithub/scriptrating-rag/internal/lexical"
	"github.com/nvmediagithub/scriptrating-rag/internal/vectorstore"
)

// Router dispatches queries to the vector index, the lexical shadow index,
// or both, according to Config.Strategy, and merges their results.
type Router struct {
	store     vectorstore.Store
	lex       *lexical.Index
	cache     embedcache.Cache
	cfg       Config
	resultTTL time.Duration
	metrics   *liveMetrics
}

// New constructs a Router. vectorMetric is the configured vector-index
// distance metric (e.g. "cosine"), used to validate that auto/hybrid
// strategies are only enabled against a metric whose scores are already
// comparable to the lexical index's [0,1] cosine scores.
func New(store vectorstore.Store, lex *lexical.Index, cache embedcache.Cache, cfg Config, resultTTL time.Duration, vectorMetric string) (*Router, error) {
	if err := cfg.Validate(vectorMetric); err != nil {
		return nil, err
	}
	if cache == nil {
		cache = embedcache.NewNoop()
	}
	return &Router{
		store:     store,
		lex:       lex,
		cache:     cache,
		cfg:       cfg,
		resultTTL: resultTTL,
		metrics:   newLiveMetrics(),
	}, nil
}

// Query executes a router query using the router's configured strategy.
// filters is a conjunction of equality predicates applied to document
// metadata during vector search; the lexical index does not support
// filters and ignores them.
func (r *Router) Query(ctx context.Context, text string, k int, filters map[string]string) (Response, error) {
	return r.queryWithStrategy(ctx, r.cfg.Strategy, text, k, filters)
}

// QueryHybrid forces a hybrid merge regardless of the router's configured
// strategy, used by the orchestrator's hybrid-search operation.
func (r *Router) QueryHybrid(ctx context.Context, text string, k int, vectorWeight, lexicalWeight float64, filters map[string]string) (Response, error) {
	overrides := r.cfg
	overrides.VectorWeight = vectorWeight
	overrides.LexicalWeight = lexicalWeight
	return r.queryWithConfig(ctx, overrides, StrategyHybrid, text, k, filters)
}

func (r *Router) queryWithStrategy(ctx context.Context, strategy Strategy, text string, k int, filters map[string]string) (Response, error) {
	return r.queryWithConfig(ctx, r.cfg, strategy, text, k, filters)
}

func (r *Router) queryWithConfig(ctx context.Context, cfg Config, strategy Strategy, text string, k int, filters map[string]string) (Response, error) {
	start := time.Now()

	cacheKey := ""
	if cfg.EnableCache {
		cacheKey = embedcache.ResultKey(string(strategy), text, k, filters)
		if cached, found, err := r.cache.Get(ctx, cacheKey); err == nil && found {
			var resp Response
			if err := json.Unmarshal(cached, &resp); err == nil {
				r.metrics.record(strategy, time.Since(start), true)
				cacheHitsTotal.WithLabelValues("hit").Inc()
				return resp, nil
			}
		}
		cacheHitsTotal.WithLabelValues("miss").Inc()
	}

	var resp Response
	var err error
	switch strategy {
	case StrategyVectorOnly:
		resp, err = r.vectorOnly(ctx, text, k, filters)
	case StrategyLexicalOnly:
		resp, err = r.lexicalOnly(ctx, text, k)
	case StrategyHybrid:
		resp, err = r.hybrid(ctx, cfg, text, k, filters)
	case StrategyAuto:
		resp, err = r.auto(ctx, cfg, text, k, filters)
	default:
		return Response{}, fmt.Errorf("router: unknown strategy %q", strategy)
	}

	elapsed := time.Since(start)
	queryDuration.WithLabelValues(string(strategy)).Observe(elapsed.Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	} else if resp.Degraded {
		outcome = "degraded"
	}
	queriesTotal.WithLabelValues(string(strategy), outcome).Inc()
	r.metrics.record(strategy, elapsed, false)

	// Degraded responses (a component failed or a deadline was hit) are
	// never cached: the underlying condition may already have cleared by
	// the next query, and a cancelled caller must not pollute the cache
	// with a partial result (spec §5).
	if err == nil && !resp.Degraded && cfg.EnableCache && cacheKey != "" {
		if blob, mErr := json.Marshal(resp); mErr == nil {
			_ = r.cache.Set(ctx, cacheKey, blob, r.resultTTL)
		}
	}
	return resp, err
}

func (r *Router) vectorOnly(ctx context.Context, text string, k int, filters map[string]string) (Response, error) {
	results, err := r.searchVector(ctx, text, k, filters)
	if err != nil {
		return Response{Strategy: StrategyVectorOnly, Degraded: true, Results: nil}, nil
	}
	return Response{Strategy: StrategyVectorOnly, Results: results}, nil
}

func (r *Router) lexicalOnly(ctx context.Context, text string, k int) (Response, error) {
	results, err := r.searchLexical(ctx, text, k)
	if err != nil {
		return Response{}, fmt.Errorf("router: lexical search: %w", err)
	}
	return Response{Strategy: StrategyLexicalOnly, Results: results}, nil
}

func (r *Router) hybrid(ctx context.Context, cfg Config, text string, k int, filters map[string]string) (Response, error) {
	var vecResults, lexResults []Result
	var vecErr, lexErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vecResults, vecErr = r.searchVector(gctx, text, k, filters)
		return nil
	})
	g.Go(func() error {
		lexResults, lexErr = r.searchLexical(gctx, text, k)
		return nil
	})
	_ = g.Wait()

	if vecErr != nil && lexErr != nil {
		return Response{}, fmt.Errorf("router: hybrid search: vector: %v, lexical: %v", vecErr, lexErr)
	}

	merged := mergeWeighted(vecResults, lexResults, cfg.VectorWeight, cfg.LexicalWeight, k)
	degraded := vecErr != nil || lexErr != nil
	return Response{Strategy: StrategyHybrid, Results: merged, Degraded: degraded}, nil
}

func (r *Router) auto(ctx context.Context, cfg Config, text string, k int, filters map[string]string) (Response, error) {
	vecResults, vecErr := r.searchVector(ctx, text, k, filters)
	if vecErr != nil {
		// Vector path failed entirely: fall through to lexical-only, distinct
		// from the low-confidence hybrid-merge path below. This is normal auto
		// behaviour, not a degraded response - only vector-only surfaces
		// degraded=true on a vector-store outage.
		lexResults, lexErr := r.searchLexical(ctx, text, k)
		if lexErr != nil {
			return Response{}, fmt.Errorf("router: auto strategy: vector: %v, lexical: %v", vecErr, lexErr)
		}
		return Response{Strategy: StrategyAuto, Results: lexResults}, nil
	}

	if len(vecResults) > 0 && vecResults[0].Score >= cfg.ConfidenceThreshold {
		return Response{Strategy: StrategyAuto, Results: vecResults}, nil
	}

	lexResults, lexErr := r.searchLexical(ctx, text, k)
	if lexErr != nil {
		// Lexical leg failed during the low-confidence fallback: return what
		// the vector index gave us rather than erroring the whole query.
		return Response{Strategy: StrategyAuto, Results: vecResults, Degraded: true}, nil
	}

	merged := mergeWeighted(vecResults, lexResults, cfg.VectorWeight, cfg.LexicalWeight, k)
	return Response{Strategy: StrategyAuto, Results: merged}, nil
}

func (r *Router) searchVector(ctx context.Context, text string, k int, filters map[string]string) ([]Result, error) {
	var (
		hits []vectorstore.SearchResult
		err  error
	)
	if len(filters) == 0 {
		hits, err = r.store.Search(ctx, text, k)
	} else {
		f := make(map[string]interface{}, len(filters))
		for key, v := range filters {
			f[key] = v
		}
		hits, err = r.store.SearchWithFilters(ctx, text, k, f)
	}
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			ID:      h.ID,
			Score:   float64(h.Score),
			Payload: h.Metadata,
			Source:  SourceVector,
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

func (r *Router) searchLexical(ctx context.Context, text string, k int) ([]Result, error) {
	hits, err := r.lex.Search(ctx, text, k)
	if err != nil {
		return nil, err
	}
	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			ID:      h.ID,
			Score:   h.Score,
			Payload: h.Payload,
			Source:  SourceLexical,
		}
	}
	return results, nil
}

// mergeWeighted combines vector and lexical result sets: ids present in
// both get w_v*vectorScore + w_l*lexicalScore; ids unique to one side keep
// their single-source score scaled by that side's weight. The merge is
// re-ranked descending and truncated to k.
func mergeWeighted(vec, lex []Result, vectorWeight, lexicalWeight float64, k int) []Result {
	byID := make(map[string]*Result, len(vec)+len(lex))
	order := make([]string, 0, len(vec)+len(lex))

	for _, v := range vec {
		byID[v.ID] = &Result{ID: v.ID, Payload: v.Payload, Score: vectorWeight * v.Score, Source: SourceVector}
		order = append(order, v.ID)
	}
	for _, l := range lex {
		if existing, ok := byID[l.ID]; ok {
			existing.Score += lexicalWeight * l.Score
			existing.Source = SourceHybrid
			if existing.Payload == nil {
				existing.Payload = l.Payload
			}
			continue
		}
		byID[l.ID] = &Result{ID: l.ID, Payload: l.Payload, Score: lexicalWeight * l.Score, Source: SourceLexical}
		order = append(order, l.ID)
	}

	merged := make([]Result, 0, len(byID))
	seen := make(map[string]bool, len(byID))
	for _, id := range order {
		if seen[id] {
			continue
		}
		seen[id] = true
		merged = append(merged, *byID[id])
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ID < merged[j].ID
	})

	if k > 0 && k < len(merged) {
		merged = merged[:k]
	}
	return merged
}

// Metrics returns a read-only snapshot of per-strategy query counters and
// average latency over all queries since the router was constructed.
func (r *Router) Metrics() []Snapshot {
	return r.metrics.snapshot()
}
