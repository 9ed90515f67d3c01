package lexical

import (
	"context"
	"math"
	"sort"
	"sync"
)

// Config controls vocabulary sizing for the shadow index.
type Config struct {
	// MaxFeatures caps the vocabulary to the most frequent terms
	// corpus-wide. Default: 5000.
	MaxFeatures int
	// MinDocFrequency drops terms that appear in fewer than this many
	// documents before the MaxFeatures cut is applied. Default: 1 (no
	// pruning beyond MaxFeatures).
	MinDocFrequency int
}

type document struct {
	text    string
	payload map[string]interface{}
	terms   map[string]int // term -> raw count in this document
}

// Index is an in-process TF-IDF shadow index. The zero value is not usable;
// construct with NewIndex. An Index is safe for concurrent use.
type Index struct {
	cfg Config

	mu    sync.RWMutex
	docs  map[string]*document
	stale bool

	// rebuilt artifacts, valid only when stale is false
	vocab   map[string]int     // term -> column index
	idf     []float64          // idf per vocab column
	vectors map[string][]float64 // doc id -> L2-normalized tf-idf vector
}

// NewIndex creates an empty Index with the given configuration, applying
// defaults for zero-valued fields.
func NewIndex(cfg Config) *Index {
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = 5000
	}
	if cfg.MinDocFrequency <= 0 {
		cfg.MinDocFrequency = 1
	}
	return &Index{
		cfg:  cfg,
		docs: make(map[string]*document),
	}
}

// AddOrUpdate inserts or replaces the given records. Indexing is not
// recomputed until the next Search, a deferred-rebuild
// contract.
func (idx *Index) AddOrUpdate(records []Record) {
	if len(records) == 0 {
		return
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, r := range records {
		idx.docs[r.ID] = &document{
			text:    r.Text,
			payload: r.Payload,
			terms:   countTerms(r.Text),
		}
	}
	idx.stale = true
}

// Remove deletes the given document ids from the index, if present.
func (idx *Index) Remove(ids []string) {
	if len(ids) == 0 {
		return
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, id := range ids {
		delete(idx.docs, id)
	}
	idx.stale = true
}

// Len reports how many documents are currently indexed.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

// Search returns up to k documents most similar to queryText by cosine
// similarity of their TF-IDF vectors. Results are sorted by score
// descending; ties are broken by document id for determinism. If the index
// is stale, Search rebuilds it synchronously first, an O(corpus size)
// operation by design (see package doc).
func (idx *Index) Search(ctx context.Context, queryText string, k int) ([]Result, error) {
	if k <= 0 {
		return nil, nil
	}

	idx.mu.Lock()
	if idx.stale {
		idx.rebuildLocked()
	}
	// Snapshot the rebuilt artifacts under the write lock, then release it so
	// scoring a possibly large corpus runs unlocked; a rebuild replaces these
	// rather than mutating them. Payloads are read under the read lock below.
	vocab := idx.vocab
	idfVec := idx.idf
	vectors := idx.vectors
	idx.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(vocab) == 0 || len(vectors) == 0 {
		return nil, nil
	}

	queryVec := tfidfVector(tokenize(queryText), vocab, idfVec)
	if queryVec == nil {
		return nil, nil
	}

	type scored struct {
		id    string
		score float64
	}
	all := make([]scored, 0, len(vectors))
	for id, docVec := range vectors {
		s := cosineSimilarity(queryVec, docVec)
		if s <= 0 {
			continue
		}
		all = append(all, scored{id: id, score: s})
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].id < all[j].id
	})

	if k < len(all) {
		all = all[:k]
	}

	results := make([]Result, len(all))
	idx.mu.RLock()
	for i, s := range all {
		var payload map[string]interface{}
		if d, ok := idx.docs[s.id]; ok {
			payload = d.payload
		}
		results[i] = Result{ID: s.id, Score: s.score, Payload: payload}
	}
	idx.mu.RUnlock()
	return results, nil
}

// rebuildLocked recomputes the vocabulary, IDF weights, and per-document
// TF-IDF vectors. Caller must hold idx.mu for writing.
func (idx *Index) rebuildLocked() {
	n := len(idx.docs)
	if n == 0 {
		idx.vocab = nil
		idx.idf = nil
		idx.vectors = nil
		idx.stale = false
		return
	}

	docFreq := make(map[string]int)
	for _, d := range idx.docs {
		for term := range d.terms {
			docFreq[term]++
		}
	}

	type termCount struct {
		term string
		df   int
	}
	candidates := make([]termCount, 0, len(docFreq))
	for term, df := range docFreq {
		if df >= idx.cfg.MinDocFrequency {
			candidates = append(candidates, termCount{term, df})
		}
	}

	// Rank by document frequency descending (most common terms first),
	// break ties alphabetically for determinism, then cap at MaxFeatures.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].df != candidates[j].df {
			return candidates[i].df > candidates[j].df
		}
		return candidates[i].term < candidates[j].term
	})
	if len(candidates) > idx.cfg.MaxFeatures {
		candidates = candidates[:idx.cfg.MaxFeatures]
	}

	vocab := make(map[string]int, len(candidates))
	idf := make([]float64, len(candidates))
	for i, c := range candidates {
		vocab[c.term] = i
		// Smoothed IDF, matching scikit-learn's default smooth_idf=True:
		// idf(t) = ln((1+n) / (1+df(t))) + 1
		idf[i] = math.Log(float64(1+n)/float64(1+c.df)) + 1
	}

	vectors := make(map[string][]float64, n)
	for id, d := range idx.docs {
		vectors[id] = tfidfVector(termsToList(d.terms), vocab, idf)
	}

	idx.vocab = vocab
	idx.idf = idf
	idx.vectors = vectors
	idx.stale = false
}

// countTerms tokenizes text and counts raw term frequency.
func countTerms(text string) map[string]int {
	counts := make(map[string]int)
	for _, t := range tokenize(text) {
		counts[t]++
	}
	return counts
}

// termsToList expands a term->count map back into a repeated term list, the
// shape tfidfVector expects.
func termsToList(counts map[string]int) []string {
	terms := make([]string, 0, len(counts))
	for t, c := range counts {
		for i := 0; i < c; i++ {
			terms = append(terms, t)
		}
	}
	return terms
}

// tfidfVector builds an L2-normalized TF-IDF vector over vocab for the given
// term list. Returns nil if none of the terms are in vocab.
func tfidfVector(terms []string, vocab map[string]int, idf []float64) []float64 {
	counts := make(map[int]float64)
	for _, t := range terms {
		if col, ok := vocab[t]; ok {
			counts[col]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	vec := make([]float64, len(vocab))
	var sumSquares float64
	for col, tf := range counts {
		w := tf * idf[col]
		vec[col] = w
		sumSquares += w * w
	}

	if sumSquares == 0 {
		return nil
	}
	norm := math.Sqrt(sumSquares)
	for i, w := range vec {
		vec[i] = w / norm
	}
	return vec
}

// cosineSimilarity computes the dot product of two equal-length vectors.
// Since both inputs are already L2-normalized, this is the cosine
// similarity directly.
func cosineSimilarity(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
