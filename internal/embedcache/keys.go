package embedcache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	embedPrefix  = "embed:"
	resultPrefix = "qres:"
)

// normalizeText applies the canonicalization the cache keys on: Unicode NFC
// normalization and whitespace trimming. Case is preserved deliberately: the
// cache-key contract folds neither "Foo" nor "foo" into the other, since
// embedding providers are not guaranteed case-insensitive.
func normalizeText(text string) string {
	return strings.TrimSpace(norm.NFC.String(text))
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(normalizeText(text)))
	return hex.EncodeToString(sum[:])
}

// EmbeddingKey builds the embedding-cache key for (providerID, text), per
// the "(provider-id, sha256(text))" key contract.
func EmbeddingKey(providerID, text string) string {
	return embedPrefix + providerID + ":" + hashText(text)
}

// ResultKey builds the router query-result cache key for
// (strategy, text, k, filters), per the
// "hash(strategy,text,k,filters)" contract. filters is hashed in
// key-sorted order so the same filter set always yields the same key
// regardless of map iteration order.
func ResultKey(strategy, text string, k int, filters map[string]string) string {
	var b strings.Builder
	b.WriteString(strategy)
	b.WriteByte('\x00')
	b.WriteString(normalizeText(text))
	b.WriteByte('\x00')
	fmt.Fprintf(&b, "%d", k)

	if len(filters) > 0 {
		keys := make([]string, 0, len(filters))
		for key := range filters {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			b.WriteByte('\x00')
			b.WriteString(key)
			b.WriteByte('=')
			b.WriteString(filters[key])
		}
	}

	sum := sha256.Sum256([]byte(b.String()))
	return resultPrefix + hex.EncodeToString(sum[:])
}

// EncodeVector packs a float32 embedding vector into a compact little-endian
// binary representation for cache storage.
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector unpacks a binary blob produced by EncodeVector back into a
// float32 slice. It returns an error if the blob length is not a multiple
// of 4 bytes.
func DecodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("embedcache: corrupt vector blob: length %d not a multiple of 4", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}
