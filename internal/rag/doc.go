// Package rag implements the RAG Orchestrator (spec §4.F): the single
// public façade that composes the embedding cache, provider chain, vector
// index, lexical shadow index, and router into index/search operations.
package rag
