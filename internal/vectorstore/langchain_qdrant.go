package vectorstore

import (
	"context"
	"fmt"

	langchainembed "github.com/tmc/langchaingo/embeddings"

	pkgvectorstore "github.com/nvmediagithub/scriptrating-rag/pkg/vectorstore"
)

// LangchainQdrantConfig configures the langchaingo-backed Qdrant backend:
// an alternate Store implementation that talks to Qdrant through
// langchaingo's vectorstores/qdrant client rather than the direct
// qdrant-client/chromem-go paths in qdrant.go / chromem.go. Selected via
// VectorStoreConfig.Provider = "qdrant-langchain".
type LangchainQdrantConfig struct {
	URL            string
	CollectionName string
}

// langchainQdrantStore adapts pkg/vectorstore.Service to the Store
// interface. It is a single-collection client: SearchInCollection and
// DeleteDocumentsFromCollection only recognize the configured collection
// and return ErrCollectionNotFound for any other name.
type langchainQdrantStore struct {
	svc        *pkgvectorstore.Service
	collection string
}

// NewLangchainQdrantStore constructs a Store backed by langchaingo's Qdrant
// vector store client. embedder must satisfy langchaingo's
// embeddings.Embedder contract (EmbedDocuments/EmbedQuery); any
// vectorstore.Embedder-shaped value, such as
// internal/embeddings.ChainEmbedder, already matches it structurally.
func NewLangchainQdrantStore(cfg LangchainQdrantConfig, embedder langchainembed.Embedder) (Store, error) {
	svc, err := pkgvectorstore.NewService(pkgvectorstore.Config{
		URL:            cfg.URL,
		CollectionName: cfg.CollectionName,
		Embedder:       embedder,
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: langchain-qdrant backend: %w", err)
	}
	return &langchainQdrantStore{svc: svc, collection: cfg.CollectionName}, nil
}

func (l *langchainQdrantStore) AddDocuments(ctx context.Context, docs []Document) ([]string, error) {
	pdocs := make([]pkgvectorstore.Document, len(docs))
	ids := make([]string, len(docs))
	for i, d := range docs {
		pdocs[i] = pkgvectorstore.Document{ID: d.ID, Content: d.Content, Metadata: d.Metadata}
		ids[i] = d.ID
	}
	if err := l.svc.AddDocuments(ctx, pdocs); err != nil {
		return nil, err
	}
	return ids, nil
}

func (l *langchainQdrantStore) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	results, err := l.svc.Search(ctx, query, k)
	return convertLangchainResults(results), err
}

func (l *langchainQdrantStore) SearchWithFilters(ctx context.Context, query string, k int, filters map[string]interface{}) ([]SearchResult, error) {
	results, err := l.svc.SearchWithFilters(ctx, query, k, filters)
	return convertLangchainResults(results), err
}

func (l *langchainQdrantStore) SearchInCollection(ctx context.Context, collectionName, query string, k int, filters map[string]interface{}) ([]SearchResult, error) {
	if collectionName != l.collection {
		return nil, ErrCollectionNotFound
	}
	return l.SearchWithFilters(ctx, query, k, filters)
}

func (l *langchainQdrantStore) DeleteDocuments(ctx context.Context, ids []string) error {
	return l.svc.DeleteDocuments(ctx, ids)
}

func (l *langchainQdrantStore) DeleteDocumentsFromCollection(ctx context.Context, collectionName string, ids []string) error {
	if collectionName != l.collection {
		return ErrCollectionNotFound
	}
	return l.svc.DeleteDocuments(ctx, ids)
}

func (l *langchainQdrantStore) CreateCollection(ctx context.Context, collectionName string, vectorSize int) error {
	return l.svc.CreateCollection(ctx, collectionName, vectorSize)
}

func (l *langchainQdrantStore) DeleteCollection(ctx context.Context, collectionName string) error {
	return l.svc.DeleteCollection(ctx, collectionName)
}

func (l *langchainQdrantStore) CollectionExists(ctx context.Context, collectionName string) (bool, error) {
	return l.svc.CollectionExists(ctx, collectionName)
}

func (l *langchainQdrantStore) ListCollections(ctx context.Context) ([]string, error) {
	return l.svc.ListCollections(ctx)
}

func (l *langchainQdrantStore) GetCollectionInfo(ctx context.Context, collectionName string) (*CollectionInfo, error) {
	info, err := l.svc.GetCollectionInfo(ctx, collectionName)
	if err != nil {
		return nil, err
	}
	return &CollectionInfo{Name: info.Name, PointCount: info.PointCount, VectorSize: info.VectorSize}, nil
}

func (l *langchainQdrantStore) ExactSearch(ctx context.Context, collectionName, query string, k int) ([]SearchResult, error) {
	if collectionName != l.collection {
		return nil, ErrCollectionNotFound
	}
	results, err := l.svc.ExactSearch(ctx, collectionName, query, k)
	return convertLangchainResults(results), err
}

func (l *langchainQdrantStore) Close() error { return nil }

func convertLangchainResults(results []pkgvectorstore.SearchResult) []SearchResult {
	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{ID: r.ID, Content: r.Content, Score: r.Score, Metadata: r.Metadata}
	}
	return out
}
