// Package lexical provides an in-process TF-IDF shadow index used as the
// lexical leg of the knowledge-base router's auto/hybrid strategies.
//
// The index is maintained transactionally alongside the vector index: the
// same upsert/delete call that mutates the vector store also calls
// AddOrUpdate/Remove here, so the two indexes never diverge in membership.
// Scoring uses lowercased unigram+bigram TF-IDF vectors with smoothed IDF
// and cosine similarity, a generalization of simple term-overlap scoring to
// full TF-IDF weighting plus bigram augmentation.
//
// Index mutations mark the corpus stale rather than rebuilding eagerly;
// Search rebuilds synchronously on first use after a mutation. This keeps
// bulk ingestion (many AddOrUpdate calls in a row) from recomputing the
// full TF-IDF matrix after every single record.
package lexical
