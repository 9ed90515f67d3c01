package embeddings

import (
	"context"
	"fmt"

	pkgembeddings "github.com/nvmediagithub/scriptrating-rag/pkg/embeddings"
)

// openAIProvider adapts pkg/embeddings.Service (langchaingo + the OpenAI
// client, also usable against any OpenAI-compatible TEI deployment) to the
// Provider interface. It is an alternate remote path to the raw-HTTP TEI
// client in service.go, selected via ProviderConfig.Provider = "openai".
type openAIProvider struct {
	svc       *pkgembeddings.Service
	dimension int
}

func newOpenAIProvider(cfg ProviderConfig) (Provider, error) {
	svc, err := pkgembeddings.NewService(pkgembeddings.Config{
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		APIKey:  cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings: openai provider: %w", err)
	}
	return &openAIProvider{svc: svc, dimension: detectDimensionFromModel(cfg.Model)}, nil
}

func (o *openAIProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return o.svc.Embed(ctx, texts)
}

func (o *openAIProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := o.svc.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embeddings: openai provider returned no vector for query")
	}
	return vecs[0], nil
}

func (o *openAIProvider) Dimension() int { return o.dimension }

func (o *openAIProvider) Close() error { return nil }
