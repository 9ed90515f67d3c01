// Package vectorstore provides vector storage via langchaingo.
//
// This package wraps langchaingo's vector store functionality to provide
// storage and retrieval of embedded documents in Qdrant. It supports
// owner/project scoped collections and similarity search with filters.
//
// Example usage:
//
//	config := vectorstore.Config{
//	    URL:            "http://localhost:6333",
//	    CollectionName: "owner_abc/project_def/main",
//	}
//	service, err := vectorstore.NewService(config)
//	if err != nil {
//	    // Handle error
//	}
//
//	// Add documents
//	docs := []vectorstore.Document{
//	    {ID: "doc1", Content: "text", Metadata: map[string]interface{}{"owner": "alice"}},
//	}
//	err = service.AddDocuments(ctx, docs)
//
//	// Search
//	results, err := service.Search(ctx, "query", 10)
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"github.com/tmc/langchaingo/vectorstores/qdrant"
)

var (
	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyDocuments indicates empty or nil documents
	ErrEmptyDocuments = errors.New("empty or nil documents")
)

// Config holds configuration for the vector store service.
type Config struct {
	// URL is the Qdrant server URL (e.g., http://localhost:6333)
	URL string

	// CollectionName is the Qdrant collection name
	// Format: owner_<hash>/project_<hash>/<branch>
	CollectionName string

	// Embedder is the embeddings service for generating vectors
	// Optional: If nil, a default embedder must be provided
	Embedder embeddings.Embedder
}

// ConfigFromEnv creates a Config from environment variables.
//
// Environment variables:
//   - QDRANT_URL: Qdrant server URL (default: http://localhost:6333)
func ConfigFromEnv(collectionName string) Config {
	url := os.Getenv("QDRANT_URL")
	if url == "" {
		url = "http://localhost:6333"
	}

	return Config{
		URL:            url,
		CollectionName: collectionName,
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: URL required", ErrInvalidConfig)
	}
	if c.CollectionName == "" {
		return fmt.Errorf("%w: collection name required", ErrInvalidConfig)
	}
	return nil
}

// Service provides vector store functionality.
type Service struct {
	store  vectorstores.VectorStore
	config Config
}

// NewService creates a new vector store service with the given configuration.
//
// The service uses langchaingo's Qdrant vector store implementation.
// The collection is not created here; it must already exist (see
// CreateCollection and EnsureCollection).
//
// Returns an error if the configuration is invalid or the connection fails.
func NewService(config Config) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	// Parse URL
	qdrantURL, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing Qdrant URL: %w", err)
	}

	// Create options list
	opts := []qdrant.Option{
		qdrant.WithURL(*qdrantURL),
		qdrant.WithCollectionName(config.CollectionName),
	}

	// Add embedder if provided
	if config.Embedder != nil {
		opts = append(opts, qdrant.WithEmbedder(config.Embedder))
	}

	// Create Qdrant vector store
	store, err := qdrant.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating Qdrant store: %w", err)
	}

	return &Service{
		store:  store,
		config: config,
	}, nil
}

// AddDocuments adds documents to the vector store.
//
// Documents are embedded and stored with their metadata. The document ID
// is used as the unique identifier in the vector store.
//
// Returns ErrEmptyDocuments if documents slice is empty or nil.
func (s *Service) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return fmt.Errorf("%w: documents cannot be empty", ErrEmptyDocuments)
	}

	// Convert to langchaingo schema.Document format
	schemaDocs := make([]schema.Document, len(docs))
	for i, doc := range docs {
		schemaDocs[i] = schema.Document{
			PageContent: doc.Content,
			Metadata:    doc.Metadata,
		}

		// Store document ID in metadata for retrieval
		if schemaDocs[i].Metadata == nil {
			schemaDocs[i].Metadata = make(map[string]interface{})
		}
		schemaDocs[i].Metadata["id"] = doc.ID
	}

	// Add documents to vector store
	_, err := s.store.AddDocuments(ctx, schemaDocs)
	if err != nil {
		return fmt.Errorf("adding documents to store: %w", err)
	}

	return nil
}

// Search performs similarity search in the vector store.
//
// It searches for documents similar to the query and returns up to k results
// ordered by similarity score (highest first).
//
// Parameters:
//   - ctx: Context for cancellation
//   - query: Search query text
//   - k: Maximum number of results to return
//
// Returns:
//   - Search results with scores and metadata
//   - Error if search fails
func (s *Service) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if query == "" {
		return nil, errors.New("query cannot be empty")
	}
	if k <= 0 {
		return nil, errors.New("k must be positive")
	}

	// Perform similarity search
	docs, err := s.store.SimilaritySearch(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	// Convert to SearchResult format
	results := make([]SearchResult, len(docs))
	for i, doc := range docs {
		result := SearchResult{
			Content:  doc.PageContent,
			Metadata: doc.Metadata,
			Score:    doc.Score,
		}

		// Extract document ID from metadata
		if id, ok := doc.Metadata["id"]; ok {
			if idStr, ok := id.(string); ok {
				result.ID = idStr
			}
		}

		results[i] = result
	}

	return results, nil
}

// SearchWithFilters performs similarity search with metadata filters.
//
// Filters are applied to document metadata (e.g., {"owner": "alice"}).
// Only documents matching ALL filter conditions are returned.
//
// Parameters:
//   - ctx: Context for cancellation
//   - query: Search query text
//   - k: Maximum number of results
//   - filters: Metadata filters (e.g., {"owner": "alice", "project": "contextd"})
//
// Returns:
//   - Filtered search results
//   - Error if search fails
func (s *Service) SearchWithFilters(ctx context.Context, query string, k int, filters map[string]interface{}) ([]SearchResult, error) {
	if query == "" {
		return nil, errors.New("query cannot be empty")
	}
	if k <= 0 {
		return nil, errors.New("k must be positive")
	}

	// Perform similarity search with filters
	docs, err := s.store.SimilaritySearch(
		ctx,
		query,
		k,
		vectorstores.WithFilters(filters),
	)
	if err != nil {
		return nil, fmt.Errorf("similarity search with filters: %w", err)
	}

	// Convert to SearchResult format
	results := make([]SearchResult, len(docs))
	for i, doc := range docs {
		result := SearchResult{
			Content:  doc.PageContent,
			Metadata: doc.Metadata,
			Score:    doc.Score,
		}

		// Extract document ID from metadata
		if id, ok := doc.Metadata["id"]; ok {
			if idStr, ok := id.(string); ok {
				result.ID = idStr
			}
		}

		results[i] = result
	}

	return results, nil
}

// DeleteDocuments checks that ids is non-empty and returns nil. It does not
// remove anything from Qdrant.
func (s *Service) DeleteDocuments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: document IDs cannot be empty", ErrEmptyDocuments)
	}

	// langchaingo's VectorStore interface has no delete method, so no
	// points are removed.
	return nil
}
