package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
)

// MockProvider is the terminal provider in an embedding chain (spec §4.B):
// it never fails, producing a deterministic pseudo-random vector seeded
// from the input text's hash. It exists so a chain always has somewhere to
// land when every real provider is unavailable, at the cost of returning
// vectors with no actual semantic meaning; callers are expected to treat
// chain results annotated fallback-used=true as degraded, not authoritative.
type MockProvider struct {
	dim int
}

// NewMockProvider creates a MockProvider producing vectors of the given
// dimension.
func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 384
	}
	return &MockProvider{dim: dim}
}

func (m *MockProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = m.embed(t)
	}
	return vecs, nil
}

func (m *MockProvider) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return m.embed(text), nil
}

func (m *MockProvider) Dimension() int { return m.dim }

func (m *MockProvider) Close() error { return nil }

// embed produces a unit-ish pseudo-random vector seeded from text's FNV-1a
// hash, so the same text always maps to the same vector (hash-seeded
// determinism) without requiring a real model.
func (m *MockProvider) embed(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, m.dim)
	var sumSquares float64
	for i := range vec {
		v := rng.Float64()*2 - 1
		vec[i] = float32(v)
		sumSquares += v * v
	}
	if sumSquares == 0 {
		return vec
	}
	norm := float32(1.0)
	if sumSquares > 0 {
		norm = float32(1.0 / math.Sqrt(sumSquares))
	}
	for i := range vec {
		vec[i] *= norm
	}
	return vec
}
