package embeddings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nvmediagithub/scriptrating-rag/internal/embedcache"
)

// Result is what the chain returns for a single embedded text (spec §3
// "Embedding result").
type Result struct {
	Text         string
	Vector       []float32
	ProviderID   string
	ModelName    string
	FromCache    bool
	FallbackUsed bool
}

// Kind distinguishes the closed set of provider variants the chain can
// hold, per spec §4.B / §9 ("closed variant set {Remote, Local, Mock}").
type Kind string

const (
	KindRemote Kind = "remote"
	KindLocal  Kind = "local"
	KindMock   Kind = "mock"
)

// ChainOption configures an entry in an embedding Chain.
type ChainOption struct {
	ID            string
	Kind          Kind
	Model         string
	Deterministic bool
	Timeout       time.Duration
	Provider      Provider
}

// health tracks a sliding-window failure rate and the resulting skip/cool-
// down decision for one provider. Writes happen under a mutex; the skip
// check itself is a lock-free atomic load, matching spec §5's "counters
// updated atomically; the skip decision is read without a lock".
type health struct {
	mu         sync.Mutex
	window     []bool
	windowSize int
	threshold  float64
	cooldown   time.Duration

	skip          atomic.Bool
	cooldownUntil atomic.Int64 // UnixNano
	permanent     atomic.Bool  // local-model first-load failure: never retried
}

func newHealth(windowSize int, threshold float64, cooldown time.Duration) *health {
	if windowSize <= 0 {
		windowSize = 20
	}
	if threshold <= 0 {
		threshold = 0.5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &health{windowSize: windowSize, threshold: threshold, cooldown: cooldown}
}

func (h *health) record(failure bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.window = append(h.window, failure)
	if len(h.window) > h.windowSize {
		h.window = h.window[len(h.window)-h.windowSize:]
	}
	if len(h.window) < h.windowSize {
		return
	}
	failures := 0
	for _, f := range h.window {
		if f {
			failures++
		}
	}
	rate := float64(failures) / float64(len(h.window))
	if rate >= h.threshold {
		h.skip.Store(true)
		h.cooldownUntil.Store(time.Now().Add(h.cooldown).UnixNano())
	}
}

func (h *health) markPermanentlySkipped() {
	h.permanent.Store(true)
}

// skipped reports whether the provider should be bypassed right now.
func (h *health) skipped() bool {
	if h.permanent.Load() {
		return true
	}
	if !h.skip.Load() {
		return false
	}
	if time.Now().UnixNano() >= h.cooldownUntil.Load() {
		h.skip.Store(false)
		return false
	}
	return true
}

type chainEntry struct {
	id            string
	kind          Kind
	model         string
	deterministic bool
	timeout       time.Duration
	provider      Provider
	health        *health
	firstCallDone atomic.Bool
}

// firstCall reports whether this invocation is the entry's first attempt,
// atomically flipping the marker so concurrent callers agree on exactly one
// "first" call. Used to implement the local-model provider's "first call
// failure permanently skips it" rule (spec §4.B).
func (e *chainEntry) firstCall() bool {
	return !e.firstCallDone.Swap(true)
}

// Chain is an ordered, non-empty list of embedding providers attempted in
// sequence with cache-aware fallback (spec §4.B). Embed and EmbedBatch
// return an error once every entry has been skipped or has failed; NewChain
// does not append a mock entry, so that outcome depends on the caller's list.
type Chain struct {
	entries   []*chainEntry
	cache     embedcache.Cache
	cacheTTL  time.Duration
	batchSize int
}

// ChainConfig controls chain-wide behaviour not specific to any one entry.
type ChainConfig struct {
	// CacheTTL is the embedding-cache entry lifetime (spec cache.embedding.ttl-sec).
	CacheTTL time.Duration
	// BatchSize bounds how many texts are submitted to a provider in a
	// single call (spec embedding.batch-size).
	BatchSize int
	// FailureWindow is how many recent calls a provider's failure rate is
	// computed over.
	FailureWindow int
	// FailureThreshold is the failure rate (0..1) at or above which a
	// provider is skipped for CooldownPeriod.
	FailureThreshold float64
	// CooldownPeriod is how long a tripped provider is skipped before being
	// retried.
	CooldownPeriod time.Duration
}

// NewChain builds a Chain from an ordered list of options. The caller is
// responsible for ensuring the last option is a mock provider; NewChain
// does not inject one implicitly, since the orchestrator's composition
// root (internal/rag) owns that decision.
func NewChain(opts []ChainOption, cache embedcache.Cache, cfg ChainConfig) (*Chain, error) {
	if len(opts) == 0 {
		return nil, errors.New("embeddings: chain requires at least one provider")
	}
	if cache == nil {
		cache = embedcache.NewNoop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 7 * 24 * time.Hour
	}

	entries := make([]*chainEntry, len(opts))
	for i, o := range opts {
		if o.Provider == nil {
			return nil, fmt.Errorf("embeddings: chain entry %d (%s): nil provider", i, o.ID)
		}
		timeout := o.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		entries[i] = &chainEntry{
			id:            o.ID,
			kind:          o.Kind,
			model:         o.Model,
			deterministic: o.Deterministic,
			timeout:       timeout,
			provider:      o.Provider,
			health:        newHealth(cfg.FailureWindow, cfg.FailureThreshold, cfg.CooldownPeriod),
		}
	}

	return &Chain{
		entries:   entries,
		cache:     cache,
		cacheTTL:  cfg.CacheTTL,
		batchSize: cfg.BatchSize,
	}, nil
}

// Len returns the number of providers configured in the chain (including
// the terminal mock).
func (c *Chain) Len() int { return len(c.entries) }

// Embed embeds a single text, walking the chain in order: cache check,
// then invoke under the provider's timeout, falling through to the next
// provider on timeout or error (spec §4.B steps 1-5).
func (c *Chain) Embed(ctx context.Context, text string) (Result, error) {
	var sawFailure bool

	for _, e := range c.entries {
		if e.isSkipped() {
			continue
		}

		if cached, found, err := c.cache.Get(ctx, embedcache.EmbeddingKey(e.id, text)); err == nil && found {
			if vec, decErr := embedcache.DecodeVector(cached); decErr == nil {
				return Result{
					Text:         text,
					Vector:       vec,
					ProviderID:   e.id,
					ModelName:    e.model,
					FromCache:    true,
					FallbackUsed: sawFailure,
				}, nil
			}
		}

		isFirst := e.firstCall()
		vec, err := e.embedOne(ctx, text)
		if err != nil {
			e.health.record(true)
			if e.kind == KindLocal && isFirst {
				e.health.markPermanentlySkipped()
			}
			sawFailure = true
			continue
		}
		e.health.record(false)

		if e.deterministic {
			_ = c.cache.Set(ctx, embedcache.EmbeddingKey(e.id, text), embedcache.EncodeVector(vec), c.cacheTTL)
		}

		return Result{
			Text:         text,
			Vector:       vec,
			ProviderID:   e.id,
			ModelName:    e.model,
			FromCache:    false,
			FallbackUsed: sawFailure,
		}, nil
	}

	return Result{}, fmt.Errorf("embeddings: all providers exhausted for text (len=%d)", len(text))
}

// EmbedBatch embeds a list of texts. Each text's cache entry is probed
// individually; the set of misses is submitted to the first non-skipped
// provider as one all-or-nothing call, retried whole against the next
// provider on failure (spec §4.B batch semantics). Input order is
// preserved in the returned slice.
func (c *Chain) EmbedBatch(ctx context.Context, texts []string) ([]Result, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([]Result, len(texts))
	resolved := make([]bool, len(texts))

	// A batch call is attempted against providers in order, starting from
	// whichever is non-skipped when the batch begins; once a provider
	// succeeds on the remaining miss set the batch is done.
	startIdx := 0
	for startIdx < len(c.entries) && c.entries[startIdx].isSkipped() {
		startIdx++
	}
	if startIdx >= len(c.entries) {
		return nil, errors.New("embeddings: no usable provider in chain")
	}
	probeEntry := c.entries[startIdx]

	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))
	for i, t := range texts {
		if cached, found, err := c.cache.Get(ctx, embedcache.EmbeddingKey(probeEntry.id, t)); err == nil && found {
			if vec, decErr := embedcache.DecodeVector(cached); decErr == nil {
				results[i] = Result{Text: t, Vector: vec, ProviderID: probeEntry.id, ModelName: probeEntry.model, FromCache: true}
				resolved[i] = true
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	sawFailure := false
	for idx := startIdx; idx < len(c.entries); idx++ {
		e := c.entries[idx]
		if idx != startIdx && e.isSkipped() {
			continue
		}

		isFirst := e.firstCall()
		vecs, err := e.embedBatch(ctx, missTexts, c.batchSize)
		if err != nil {
			e.health.record(true)
			if e.kind == KindLocal && isFirst {
				e.health.markPermanentlySkipped()
			}
			sawFailure = true
			continue
		}
		e.health.record(false)

		for j, vec := range vecs {
			orig := missIdx[j]
			results[orig] = Result{
				Text:         missTexts[j],
				Vector:       vec,
				ProviderID:   e.id,
				ModelName:    e.model,
				FromCache:    false,
				FallbackUsed: sawFailure,
			}
			resolved[orig] = true
			if e.deterministic {
				_ = c.cache.Set(ctx, embedcache.EmbeddingKey(e.id, missTexts[j]), embedcache.EncodeVector(vec), c.cacheTTL)
			}
		}
		break
	}

	for i, ok := range resolved {
		if !ok {
			return nil, fmt.Errorf("embeddings: batch embedding failed for text index %d", i)
		}
	}
	return results, nil
}

func (e *chainEntry) isSkipped() bool {
	return e.health.skipped()
}

func (e *chainEntry) embedOne(ctx context.Context, text string) ([]float32, error) {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type out struct {
		vec []float32
		err error
	}
	ch := make(chan out, 1)
	go func() {
		v, err := e.provider.EmbedQuery(cctx, text)
		ch <- out{v, err}
	}()

	select {
	case o := <-ch:
		return o.vec, o.err
	case <-cctx.Done():
		return nil, fmt.Errorf("embeddings: provider %s: %w", e.id, cctx.Err())
	}
}

func (e *chainEntry) embedBatch(ctx context.Context, texts []string, maxBatch int) ([][]float32, error) {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if maxBatch <= 0 || len(texts) <= maxBatch {
		return e.callBatch(cctx, texts)
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := start + maxBatch
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.callBatch(cctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// ChainEmbedder adapts a Chain to the vectorstore.Embedder interface, so a
// Store can drive its own document/query embedding through the chain's
// cache-and-fallback pipeline (spec §4.F composition: B feeds C) instead of
// talking to a single provider directly.
type ChainEmbedder struct {
	chain *Chain
}

// NewChainEmbedder wraps chain as a vectorstore.Embedder.
func NewChainEmbedder(chain *Chain) *ChainEmbedder {
	return &ChainEmbedder{chain: chain}
}

func (e *ChainEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	results, err := e.chain.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	vecs := make([][]float32, len(results))
	for i, r := range results {
		vecs[i] = r.Vector
	}
	return vecs, nil
}

func (e *ChainEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	r, err := e.chain.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return r.Vector, nil
}

func (e *chainEntry) callBatch(ctx context.Context, texts []string) ([][]float32, error) {
	type out struct {
		vecs [][]float32
		err  error
	}
	ch := make(chan out, 1)
	go func() {
		v, err := e.provider.EmbedDocuments(ctx, texts)
		ch <- out{v, err}
	}()

	select {
	case o := <-ch:
		return o.vecs, o.err
	case <-ctx.Done():
		return nil, fmt.Errorf("embeddings: provider %s: %w", e.id, ctx.Err())
	}
}
