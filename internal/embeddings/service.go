// Package embeddings provides embedding generation via TEI.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/nvmediagithub/scriptrating-rag/internal/vectorstore"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// ErrEmptyInput indicates empty or nil input texts
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Config holds configuration for the embedding service.
type Config struct {
	// BaseURL is the base URL for the embedding API
	BaseURL string

	// Model is the embedding model to use
	Model string

	// APIKey is the API key (optional for TEI)
	APIKey string

	// RequestsPerSecond caps the rate of outgoing requests to the remote
	// embeddings API. Zero disables rate limiting.
	RequestsPerSecond float64

	// Burst is the token-bucket burst size for RequestsPerSecond. Ignored
	// if RequestsPerSecond is zero.
	Burst int

	// MaxRetries bounds the number of retries for transient failures
	// (network errors, 429, 5xx). Zero disables retries beyond the
	// initial attempt.
	MaxRetries int
}

// ConfigFromEnv creates a Config from environment variables.
func ConfigFromEnv() Config {
	baseURL := os.Getenv("EMBEDDING_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		model = "BAAI/bge-small-en-v1.5"
	}

	apiKey := os.Getenv("OPENAI_API_KEY")

	return Config{
		BaseURL:    baseURL,
		Model:      model,
		APIKey:     apiKey,
		MaxRetries: 3,
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	return nil
}

// Service provides embedding generation functionality.
type Service struct {
	config  Config
	client  *http.Client
	metrics *Metrics
	limiter *rate.Limiter
}

// NewService creates a new embedding service with the given configuration.
func NewService(config Config) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}

	return &Service{
		config:  config,
		client:  &http.Client{},
		metrics: NewMetrics(zap.NewNop()),
		limiter: limiter,
	}, nil
}

// isTransientHTTPError reports whether an embed request should be retried:
// network-level failures and 429/5xx responses are transient, everything
// else (4xx other than 429) is permanent.
func isTransientHTTPError(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= http.StatusInternalServerError
}

// doEmbed performs the rate-limited, retried HTTP round-trip to the embed
// endpoint, decoding the vectors response.
func (s *Service) doEmbed(ctx context.Context, req teiRequest) ([][]float32, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	maxTries := uint(s.config.MaxRetries + 1)

	return backoff.Retry(ctx, func() ([][]float32, error) {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, backoff.Permanent(fmt.Errorf("%w: rate limiter: %v", ErrEmbeddingFailed, err))
			}
		}

		body, err := json.Marshal(req)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("marshaling request: %w", err))
		}

		httpReq, err := http.NewRequestWithContext(ctx, "POST", s.config.BaseURL+"/embed", bytes.NewReader(body))
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			embedErr := fmt.Errorf("%w: status %d: %s", ErrEmbeddingFailed, resp.StatusCode, string(respBody))
			if !isTransientHTTPError(resp.StatusCode) {
				return nil, backoff.Permanent(embedErr)
			}
			return nil, embedErr
		}

		var vectors [][]float32
		if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("decoding response: %w", err))
		}
		return vectors, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(maxTries))
}

// teiRequest is the request body for TEI embed endpoint.
type teiRequest struct {
	Inputs   interface{} `json:"inputs"`
	Truncate bool        `json:"truncate"`
}

// Embedder returns an Embedder interface implementation.
func (s *Service) Embedder() vectorstore.Embedder {
	return s
}

// EmbedDocuments generates embeddings for multiple texts.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	var genErr error
	defer func() {
		s.metrics.RecordGeneration(ctx, s.config.Model, "embed_documents", time.Since(start), len(texts), genErr)
	}()

	if len(texts) == 0 {
		genErr = fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
		return nil, genErr
	}

	req := teiRequest{
		Inputs:   texts,
		Truncate: true,
	}

	vectors, err := s.doEmbed(ctx, req)
	if err != nil {
		genErr = err
		return nil, genErr
	}

	return vectors, nil
}

// EmbedQuery generates an embedding for a single query.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	var genErr error
	defer func() {
		s.metrics.RecordGeneration(ctx, s.config.Model, "embed_query", time.Since(start), 1, genErr)
	}()

	if text == "" {
		genErr = fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
		return nil, genErr
	}

	req := teiRequest{
		Inputs:   text,
		Truncate: true,
	}

	vectors, err := s.doEmbed(ctx, req)
	if err != nil {
		genErr = err
		return nil, genErr
	}

	if len(vectors) == 0 {
		genErr = fmt.Errorf("%w: empty response", ErrEmbeddingFailed)
		return nil, genErr
	}

	return vectors[0], nil
}

// Embed generates embeddings for the given texts (legacy method).
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return s.EmbedDocuments(ctx, texts)
}
