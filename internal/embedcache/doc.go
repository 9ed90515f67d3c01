// Package embedcache provides a best-effort cache for embedding vectors and
// router query results.
//
// The cache is never a source of truth: a miss always falls through to
// recomputation, and a cache that is unreachable or unconfigured degrades to
// an all-miss no-op rather than failing the caller. Two logical namespaces
// share one Cache implementation, distinguished by key prefix:
//
//   - "embed:", (provider, text) -> embedding vector, long TTL (default 7
//     days), populated by the embedding provider chain.
//   - "qres:", (strategy, query, k, filters) -> router results, short TTL
//     (default 24h), populated by the knowledge-base router.
package embedcache
