// Package router implements the knowledge-base router (spec §4.E): it picks
// between the vector index, the lexical shadow index, or both, according to
// a configured strategy, and merges their results into one ranked list.
//
// Four strategies are supported: "auto" (vector-first, confidence-gated
// fallback to a hybrid merge), "vector-only", "lexical-only", and "hybrid"
// (always merges both, run concurrently via errgroup). Query results are
// cached under the "qres:" namespace of an embedcache.Cache when enabled.
package router
