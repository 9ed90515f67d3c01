// Package config provides configuration loading for the RAG engine.
//
// Configuration is loaded from environment variables with sensible defaults.
// This package supports server, observability, and application-specific settings.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Config holds the complete engine configuration.
type Config struct {
	Production    ProductionConfig
	Server        ServerConfig
	Observability ObservabilityConfig
	VectorStore   VectorStoreConfig
	Qdrant        QdrantConfig
	Embeddings    EmbeddingsConfig
	EmbedCache    EmbedCacheConfig
	Lexical       LexicalConfig
	Router        RouterConfig
	RAG           RAGConfig
}

// VectorStoreConfig holds vectorstore provider configuration.
type VectorStoreConfig struct {
	Provider string        `koanf:"provider"` // "chromem", "qdrant" or "qdrant-langchain" (default: "chromem")
	Chromem  ChromemConfig `koanf:"chromem"`
}

// Validate validates VectorStoreConfig.
func (c *VectorStoreConfig) Validate() error {
	switch c.Provider {
	case "chromem":
		return c.Chromem.Validate()
	case "qdrant", "qdrant-langchain":
		// Qdrant validation handled elsewhere
		return nil
	default:
		return fmt.Errorf("unsupported provider: %s (supported: chromem, qdrant, qdrant-langchain)", c.Provider)
	}
}

// ChromemConfig holds chromem-go embedded vector database configuration.
// chromem-go is a pure Go, embedded vector database with zero third-party dependencies.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	// Default: "~/.config/contextd/vectorstore"
	Path string `koanf:"path"`

	// Compress enables gzip compression for stored data.
	// Default: false
	Compress bool `koanf:"compress"`

	// DefaultCollection is the default collection name.
	// Default: "contextd_default"
	DefaultCollection string `koanf:"default_collection"`

	// VectorSize is the expected embedding dimension.
	// Must match the embedder's output dimension.
	// Default: 384 (for FastEmbed bge-small-en-v1.5)
	VectorSize int `koanf:"vector_size"`
}

// Validate validates ChromemConfig.
func (c *ChromemConfig) Validate() error {
	if c.VectorSize <= 0 {
		return fmt.Errorf("vector_size must be positive, got %d", c.VectorSize)
	}
	return nil
}

// QdrantConfig holds Qdrant vector database configuration.
type QdrantConfig struct {
	Host           string `koanf:"host"`
	Port           int    `koanf:"port"`
	HTTPPort       int    `koanf:"http_port"`
	CollectionName string `koanf:"collection_name"`
	VectorSize     uint64 `koanf:"vector_size"`
	DataPath       string `koanf:"data_path"`
}

// EmbeddingsConfig holds embeddings service configuration.
type EmbeddingsConfig struct {
	Provider    string `koanf:"provider"` // "fastembed" or "tei"
	BaseURL     string `koanf:"base_url"` // TEI URL (if using TEI)
	Model       string `koanf:"model"`
	CacheDir    string `koanf:"cache_dir"`    // Model cache directory (for fastembed)
	ONNXVersion string `koanf:"onnx_version"` // Optional ONNX runtime version override

	// Timeout bounds a single provider call (embed one text or one batch).
	// Default: 10s (spec embedding.timeout-sec).
	Timeout time.Duration `koanf:"timeout"`

	// BatchSize is the max number of texts submitted to a provider in one
	// call. Default: 50 (spec embedding.batch-size).
	BatchSize int `koanf:"batch_size"`

	// APIKey authenticates the "openai" provider variant; unused by
	// "fastembed" and optional for an OpenAI-compatible TEI deployment.
	APIKey Secret `koanf:"api_key"`
}

// EmbedCacheConfig holds configuration for the embedding / query-result cache
// (spec §4.A). A single pluggable cache backend serves two key-prefix
// namespaces: "embed:" for per-text embedding vectors, "qres:" for cached
// query-result sets.
type EmbedCacheConfig struct {
	// MaxEntries bounds the in-process LRU cache. Default: 10000.
	MaxEntries int `koanf:"max_entries"`

	// TTL is how long an embedding-cache entry stays valid.
	// Default: 168h / 7 days (spec cache.embedding.ttl-sec = 604800).
	TTL time.Duration `koanf:"ttl"`

	// ResultTTL is how long a query-result cache entry stays valid.
	// Default: 24h (spec cache.results.ttl-sec = 86400).
	ResultTTL time.Duration `koanf:"result_ttl"`

	// BackendURL is the address of a remote key-value cache backend.
	// Empty disables the cache backend (every get is a miss, matching the
	// spec's "absent backend degrades to no-op" contract).
	BackendURL string `koanf:"backend_url"`
}

// LexicalConfig holds configuration for the bigram TF-IDF shadow index
// (spec §4.D).
type LexicalConfig struct {
	// MaxFeatures caps the vocabulary size retained after fitting.
	// Default: 5000.
	MaxFeatures int `koanf:"max_features"`

	// MinDocFrequency drops terms seen in fewer than this many documents.
	// Default: 1 (no pruning).
	MinDocFrequency int `koanf:"min_doc_frequency"`
}

// RouterConfig holds configuration for the knowledge-base router (spec
// §4.E): strategy selection, confidence thresholds, and hybrid-merge
// weighting.
type RouterConfig struct {
	// Strategy selects the default retrieval strategy: "auto", "vector",
	// "lexical", or "hybrid". Default: "auto".
	Strategy string `koanf:"strategy"`

	// ConfidenceThreshold is the minimum vector top-1 score under which
	// "auto" strategy falls through from vector-only to hybrid.
	// Default: 0.7.
	ConfidenceThreshold float64 `koanf:"confidence_threshold"`

	// VectorWeight and LexicalWeight control the weighted merge-by-id used
	// by the hybrid strategy. Default to 0.7 / 0.3 per spec.
	VectorWeight  float64 `koanf:"vector_weight"`
	LexicalWeight float64 `koanf:"lexical_weight"`

	// EnableCache toggles the router's query-result cache. Default: true.
	EnableCache bool `koanf:"enable_cache"`
}

// RAGConfig holds configuration for the orchestrator (spec §4.F).
type RAGConfig struct {
	// SearchDeadline bounds the end-to-end search call. Default: 5s
	// (spec search.deadline-sec).
	SearchDeadline time.Duration `koanf:"search_deadline"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry   bool   `koanf:"enable_telemetry"`
	ServiceName       string `koanf:"service_name"`
	OTLPEndpoint      string `koanf:"otlp_endpoint"`        // OTLP endpoint (default: localhost:4317)
	OTLPProtocol      string `koanf:"otlp_protocol"`        // "grpc" or "http/protobuf" (default: grpc)
	OTLPInsecure      bool   `koanf:"otlp_insecure"`        // Use insecure connection (default: true for localhost)
	OTLPTLSSkipVerify bool   `koanf:"otlp_tls_skip_verify"` // Skip TLS verification for internal CAs
}

// Load loads configuration from environment variables with defaults.
//
// Quick Start - Most commonly configured env vars:
//
//   - CONTEXTD_DATA_PATH: Base data path (default: /data)
//   - EMBEDDINGS_PROVIDER: fastembed (default, local) or tei (remote)
//   - EMBEDDINGS_CACHE_DIR: Model cache directory (default: empty)
//   - CONTEXTD_VECTORSTORE_PROVIDER: chromem (default, embedded) or qdrant (external)
//   - CONTEXTD_PRODUCTION_MODE: Enable production safety checks (default: false)
//
// All environment variables:
//
// Server:
//   - SERVER_PORT: HTTP server port (default: 9090)
//   - SERVER_SHUTDOWN_TIMEOUT: Graceful shutdown timeout (default: 10s)
//
// Qdrant:
//   - QDRANT_HOST: Qdrant host (default: localhost)
//   - QDRANT_PORT: Qdrant gRPC port (default: 6334)
//   - QDRANT_HTTP_PORT: Qdrant HTTP port (default: 6333)
//   - QDRANT_COLLECTION: Default collection name (default: ragd_default)
//   - QDRANT_VECTOR_SIZE: Vector dimensions (default: 384 for FastEmbed)
//   - CONTEXTD_DATA_PATH: Base data path (default: /data)
//
// Embeddings:
//   - EMBEDDINGS_PROVIDER: Provider type: fastembed or tei (default: fastembed)
//   - EMBEDDINGS_MODEL: Embedding model (default: BAAI/bge-small-en-v1.5)
//   - EMBEDDING_BASE_URL: TEI URL if using TEI (default: http://localhost:8080)
//   - EMBEDDINGS_CACHE_DIR: Model cache directory for fastembed (default: empty)
//
// Embedding / query-result cache:
//   - EMBEDCACHE_MAX_ENTRIES: LRU capacity (default: 10000)
//   - EMBEDCACHE_TTL: embedding cache entry lifetime (default: 168h / 7 days)
//   - EMBEDCACHE_RESULT_TTL: query-result cache entry lifetime (default: 24h)
//   - EMBEDCACHE_BACKEND_URL: remote cache backend address (default: disabled)
//
// Lexical index:
//   - LEXICAL_MAX_FEATURES: vocabulary cap (default: 5000)
//   - LEXICAL_MIN_DOC_FREQUENCY: minimum document frequency (default: 1)
//
// Router:
//   - ROUTER_STRATEGY: auto, vector, lexical, or hybrid (default: auto)
//   - ROUTER_CONFIDENCE_THRESHOLD: auto-strategy fallthrough threshold (default: 0.7)
//   - ROUTER_VECTOR_WEIGHT / ROUTER_LEXICAL_WEIGHT: hybrid merge weights (default: 0.7 / 0.3)
//   - ROUTER_ENABLE_CACHE: enable the query-result cache (default: true)
//
// Orchestrator:
//   - RAG_SEARCH_DEADLINE: end-to-end search deadline (default: 5s)
//
// Telemetry:
//   - OTEL_ENABLE: Enable OpenTelemetry (default: false, requires OTEL collector)
//   - OTEL_SERVICE_NAME: Service name for traces (default: ragd)
//
// Example:
//
//	cfg := config.Load()
//	fmt.Println("Qdrant host:", cfg.Qdrant.Host)
func Load() *Config {
	cfg := &Config{
		Production: ProductionConfig{
			Enabled:               getEnvBool("CONTEXTD_PRODUCTION_MODE", false),
			LocalModeAcknowledged: getEnvBool("CONTEXTD_LOCAL_MODE", false),
			RequireAuthentication: getEnvBool("CONTEXTD_REQUIRE_AUTH", false),
			RequireTLS:            getEnvBool("CONTEXTD_REQUIRE_TLS", false),
		},
		Server: ServerConfig{
			Port:            getEnvInt("SERVER_PORT", 9090),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Observability: ObservabilityConfig{
			EnableTelemetry:   getEnvBool("OTEL_ENABLE", false),
			ServiceName:       getEnvString("OTEL_SERVICE_NAME", "ragd"),
			OTLPEndpoint:      getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			OTLPProtocol:      getEnvString("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
			OTLPInsecure:      getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			OTLPTLSSkipVerify: getEnvBool("OTEL_EXPORTER_OTLP_TLS_SKIP_VERIFY", false),
		},
	}

	// Qdrant configuration
	cfg.Qdrant = QdrantConfig{
		Host:           getEnvString("QDRANT_HOST", "localhost"),
		Port:           getEnvInt("QDRANT_PORT", 6334),
		HTTPPort:       getEnvInt("QDRANT_HTTP_PORT", 6333),
		CollectionName: getEnvString("QDRANT_COLLECTION", "ragd_default"),
		VectorSize:     uint64(getEnvInt("QDRANT_VECTOR_SIZE", 384)), // FastEmbed default
		DataPath:       getEnvString("CONTEXTD_DATA_PATH", "/data"),
	}

	// Embeddings configuration
	cfg.Embeddings = EmbeddingsConfig{
		Provider:    getEnvString("EMBEDDINGS_PROVIDER", "fastembed"),
		BaseURL:     getEnvString("EMBEDDING_BASE_URL", "http://localhost:8080"),
		Model:       getEnvString("EMBEDDINGS_MODEL", "BAAI/bge-small-en-v1.5"),
		CacheDir:    getEnvString("EMBEDDINGS_CACHE_DIR", ""),
		ONNXVersion: getEnvString("EMBEDDINGS_ONNX_VERSION", ""),
		Timeout:     getEnvDuration("EMBEDDING_TIMEOUT", 10*time.Second),
		BatchSize:   getEnvInt("EMBEDDING_BATCH_SIZE", 50),
		APIKey:      Secret(getEnvString("EMBEDDINGS_API_KEY", "")),
	}

	// VectorStore configuration (chromem is default - embedded, no external deps)
	cfg.VectorStore = VectorStoreConfig{
		Provider: getEnvString("CONTEXTD_VECTORSTORE_PROVIDER", "chromem"),
		Chromem: ChromemConfig{
			Path:              getEnvString("CONTEXTD_VECTORSTORE_CHROMEM_PATH", "~/.config/contextd/vectorstore"),
			Compress:          getEnvBool("CONTEXTD_VECTORSTORE_CHROMEM_COMPRESS", false),
			DefaultCollection: getEnvString("CONTEXTD_VECTORSTORE_CHROMEM_COLLECTION", "contextd_default"),
			VectorSize:        getEnvInt("CONTEXTD_VECTORSTORE_CHROMEM_VECTOR_SIZE", 384),
		},
	}

	// Embedding / query-result cache configuration
	cfg.EmbedCache = EmbedCacheConfig{
		MaxEntries: getEnvInt("EMBEDCACHE_MAX_ENTRIES", 10000),
		TTL:        getEnvDuration("EMBEDCACHE_TTL", 168*time.Hour),
		ResultTTL:  getEnvDuration("EMBEDCACHE_RESULT_TTL", 24*time.Hour),
		BackendURL: getEnvString("EMBEDCACHE_BACKEND_URL", ""),
	}

	// Lexical shadow index configuration
	cfg.Lexical = LexicalConfig{
		MaxFeatures:     getEnvInt("LEXICAL_MAX_FEATURES", 5000),
		MinDocFrequency: getEnvInt("LEXICAL_MIN_DOC_FREQUENCY", 1),
	}

	// Router configuration
	cfg.Router = RouterConfig{
		Strategy:            getEnvString("ROUTER_STRATEGY", "auto"),
		ConfidenceThreshold: getEnvFloat("ROUTER_CONFIDENCE_THRESHOLD", 0.7),
		VectorWeight:        getEnvFloat("ROUTER_VECTOR_WEIGHT", 0.7),
		LexicalWeight:       getEnvFloat("ROUTER_LEXICAL_WEIGHT", 0.3),
		EnableCache:         getEnvBool("ROUTER_ENABLE_CACHE", true),
	}

	// Orchestrator configuration
	cfg.RAG = RAGConfig{
		SearchDeadline: getEnvDuration("RAG_SEARCH_DEADLINE", 5*time.Second),
	}

	return cfg
}

// Validate validates the configuration.
//
// Returns an error if:
//   - Server port is not between 1 and 65535
//   - Shutdown timeout is not positive
//   - Service name is empty (when telemetry is enabled)
func (c *Config) Validate() error {
	// Validate server configuration
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	// Validate observability configuration
	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	// Validate environment variable inputs
	if err := validateHostname(c.Qdrant.Host); err != nil {
		return fmt.Errorf("invalid QDRANT_HOST: %w", err)
	}

	if err := validatePath(c.Qdrant.DataPath); err != nil {
		return fmt.Errorf("invalid CONTEXTD_DATA_PATH: %w", err)
	}

	if err := validatePath(c.VectorStore.Chromem.Path); err != nil {
		return fmt.Errorf("invalid CONTEXTD_VECTORSTORE_CHROMEM_PATH: %w", err)
	}

	if c.Embeddings.CacheDir != "" {
		if err := validatePath(c.Embeddings.CacheDir); err != nil {
			return fmt.Errorf("invalid EMBEDDINGS_CACHE_DIR: %w", err)
		}
	}

	if c.Embeddings.BaseURL != "" {
		if err := validateURL(c.Embeddings.BaseURL); err != nil {
			return fmt.Errorf("invalid EMBEDDING_BASE_URL: %w", err)
		}
	}

	// Validate production configuration
	if err := c.Production.Validate(); err != nil {
		return fmt.Errorf("production config validation failed: %w", err)
	}

	// Validate router configuration
	switch c.Router.Strategy {
	case "auto", "vector", "lexical", "hybrid", "":
		// Valid
	default:
		return fmt.Errorf("invalid ROUTER_STRATEGY: %q (must be auto, vector, lexical, or hybrid)", c.Router.Strategy)
	}

	return nil
}

// Helper functions for environment variable parsing

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

// ProductionConfig holds production deployment configuration.
type ProductionConfig struct {
	// Enabled indicates whether production mode is active.
	// Set via CONTEXTD_PRODUCTION_MODE=1 environment variable.
	Enabled bool `koanf:"enabled"`

	// LocalModeAcknowledged allows development features in production mode.
	// Set via CONTEXTD_LOCAL_MODE=1 environment variable.
	// Use only for local development/testing.
	LocalModeAcknowledged bool `koanf:"local_mode_acknowledged"`

	// RequireAuthentication enforces authentication in production.
	RequireAuthentication bool `koanf:"require_authentication"`

	// AuthenticationConfigured indicates if auth is properly set up.
	AuthenticationConfigured bool `koanf:"authentication_configured"`

	// RequireTLS enforces TLS for external services (Qdrant, OTEL).
	RequireTLS bool `koanf:"require_tls"`
}

// IsProduction returns true if running in production mode.
func (c *ProductionConfig) IsProduction() bool {
	return c.Enabled
}

// IsLocal returns true if local mode is acknowledged.
func (c *ProductionConfig) IsLocal() bool {
	return c.LocalModeAcknowledged
}

// Validate checks production configuration for security issues.
func (c *ProductionConfig) Validate() error {
	if !c.Enabled {
		return nil // Not in production, skip validation
	}

	if c.RequireAuthentication && !c.AuthenticationConfigured {
		return fmt.Errorf("SECURITY: RequireAuthentication enabled but authentication not configured")
	}

	return nil
}

// validateHostname checks if a hostname is safe (no command injection attempts).
// Uses positive validation with net.ParseIP for IP addresses and regexp for hostnames.
func validateHostname(host string) error {
	// Empty hostname is allowed (config may use defaults)
	if host == "" {
		return nil
	}

	// Try parsing as IP first
	if net.ParseIP(host) != nil {
		return nil // Valid IP address
	}

	// Validate hostname format (RFC 1123)
	// Allow alphanumeric, dots, hyphens. Must not start/end with dash.
	hostnameRegex := regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)
	if !hostnameRegex.MatchString(host) {
		return fmt.Errorf("invalid hostname format: %s", host)
	}

	// Additional blacklist check for shell metacharacters (defense in depth)
	invalidChars := []string{";", "\n", "\r", "$", "`", "|", "&", "<", ">", "(", ")"}
	for _, char := range invalidChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("invalid hostname: contains forbidden character %q", char)
		}
	}
	return nil
}

// validatePath checks if a path is safe (no path traversal)
func validatePath(path string) error {
	// Check for path traversal sequences
	if strings.Contains(path, "..") {
		return fmt.Errorf("path contains traversal sequence: %s", path)
	}

	// For absolute paths, verify the cleaned path doesn't escape
	if filepath.IsAbs(path) {
		clean := filepath.Clean(path)
		// Count directory depth - compare original vs cleaned
		// If cleaned has fewer separators, upward traversal occurred
		origDepth := strings.Count(path, string(filepath.Separator))
		cleanDepth := strings.Count(clean, string(filepath.Separator))

		if cleanDepth < origDepth-1 {
			return fmt.Errorf("path traversal detected: %s (resolves to %s)", path, clean)
		}
	}

	return nil
}

// validateURL checks if a URL uses allowed schemes (http/https only)
func validateURL(urlStr string) error {
	// Only allow http and https schemes
	if !strings.HasPrefix(urlStr, "http://") && !strings.HasPrefix(urlStr, "https://") {
		return fmt.Errorf("URL must use http:// or https:// scheme, got: %s", urlStr)
	}
	return nil
}
