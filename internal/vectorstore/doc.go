// Package vectorstore provides vector storage abstraction over embedded and
// external backends.
//
// The package offers a unified Store interface for vector storage operations
// with chromem (embedded) and Qdrant (external, through its native gRPC client
// or through langchaingo) provider implementations. A
// process holds exactly one active collection; the collection-scoped methods
// on Store exist for operators running migrations or tooling against
// multiple collections, not for steady-state query traffic.
//
// # Usage
//
//	import "github.com/nvmediagithub/scriptrating-rag/internal/vectorstore"
//
//	config := vectorstore.ChromemConfig{
//	    Path:              "/data/vectorstore",
//	    DefaultCollection: "documents",
//	    VectorSize:        384,
//	    Compress:          true,
//	}
//
//	store, err := vectorstore.NewChromemStore(config, embedder, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	docs := []vectorstore.Document{
//	    {
//	        ID:      "doc-1",
//	        Content: "The quick brown fox",
//	        Metadata: map[string]interface{}{"source": "ingest"},
//	    },
//	}
//	ids, err := store.AddDocuments(ctx, docs)
//
//	results, err := store.Search(ctx, "a fast animal", 10)
//
// # Provider Selection
//
// ChromemStore (default):
//   - Embedded chromem-go storage, no external dependencies
//   - Good for local development and single-process deployments
//
// QdrantStore (optional):
//   - External Qdrant service via gRPC
//   - Requires a running Qdrant server and a separate embedder
//   - Recommended for larger collections and horizontal scaling
//
// Provider selection via config:
//
//	vectorstore:
//	  provider: chromem  # "chromem" (default), "qdrant" or "qdrant-langchain"
//
// # Performance
//
//   - Batch embedding generation for multiple documents
//   - Optional compression for storage efficiency (chromem)
//   - Exact brute-force similarity search over all stored vectors (chromem), or
//     the HNSW index maintained by the external Qdrant collection
package vectorstore
