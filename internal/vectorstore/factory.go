// Package vectorstore provides vector storage implementations.
package vectorstore

import (
	"fmt"

	"github.com/nvmediagithub/scriptrating-rag/internal/config"
	"go.uber.org/zap"
)

// StoreOption configures a Store after creation.
type StoreOption func(store Store)

// NewStore creates a new Store based on the configuration (spec §4.C: one
// process holds exactly one active collection, backed by exactly one
// provider).
//
//   - "chromem" (default): embedded ChromemStore, zero external dependencies
//   - "qdrant": external QdrantStore, requires a running Qdrant server
//   - "qdrant-langchain": external Qdrant via langchaingo's vectorstores/qdrant
//     client, an alternate transport path to the same server
//
// Vector-store failure is handled one layer up, by the router falling
// through to the lexical index (spec §4.E); the facade itself does not
// wrap a second store for fallback.
func NewStore(cfg *config.Config, embedder Embedder, logger *zap.Logger, opts ...StoreOption) (Store, error) {
	var store Store
	var err error

	switch cfg.VectorStore.Provider {
	case "chromem", "":
		chromemCfg := ChromemConfig{
			Path:              cfg.VectorStore.Chromem.Path,
			Compress:          cfg.VectorStore.Chromem.Compress,
			DefaultCollection: cfg.VectorStore.Chromem.DefaultCollection,
			VectorSize:        cfg.VectorStore.Chromem.VectorSize,
		}
		store, err = NewChromemStore(chromemCfg, embedder, logger)

	case "qdrant":
		qdrantCfg := QdrantConfig{
			Host:           cfg.Qdrant.Host,
			Port:           cfg.Qdrant.Port,
			CollectionName: cfg.Qdrant.CollectionName,
			VectorSize:     cfg.Qdrant.VectorSize,
		}
		store, err = NewQdrantStore(qdrantCfg, embedder)

	case "qdrant-langchain":
		store, err = NewLangchainQdrantStore(LangchainQdrantConfig{
			URL:            fmt.Sprintf("http://%s:%d", cfg.Qdrant.Host, cfg.Qdrant.HTTPPort),
			CollectionName: cfg.Qdrant.CollectionName,
		}, embedder)

	default:
		return nil, fmt.Errorf("unsupported vectorstore provider: %s (supported: chromem, qdrant, qdrant-langchain)", cfg.VectorStore.Provider)
	}

	if err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(store)
	}

	return store, nil
}

// NewStoreFromProvider creates a store directly from provider name and specific config.
// This is useful when you need more control over configuration.
func NewStoreFromProvider(provider string, chromemCfg *ChromemConfig, qdrantCfg *QdrantConfig, embedder Embedder, logger *zap.Logger, opts ...StoreOption) (Store, error) {
	var store Store
	var err error

	switch provider {
	case "chromem", "":
		if chromemCfg == nil {
			return nil, fmt.Errorf("chromem config required for chromem provider")
		}
		store, err = NewChromemStore(*chromemCfg, embedder, logger)

	case "qdrant":
		if qdrantCfg == nil {
			return nil, fmt.Errorf("qdrant config required for qdrant provider")
		}
		store, err = NewQdrantStore(*qdrantCfg, embedder)

	default:
		return nil, fmt.Errorf("unsupported vectorstore provider: %s", provider)
	}

	if err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(store)
	}

	return store, nil
}
