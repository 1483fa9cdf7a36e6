package embedder

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Environment variables consulted by NewFromEnv
const (
	EnvProvider     = "VECTREE_EMBEDDING_PROVIDER"
	EnvModel        = "VECTREE_EMBEDDING_MODEL"
	EnvBaseURL      = "VECTREE_EMBEDDING_BASE_URL"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// Config holds provider configuration
type Config struct {
	Provider   string
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	CacheSize  int
	Progress   ProgressFunc
}

// New creates a provider from explicit configuration. The variant set
// is closed: openai, local, mock.
func New(cfg Config, models *ModelCache, logger *slog.Logger) (Provider, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIProvider(OpenAIOptions{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Cache:      cache,
			Logger:     logger,
		})
	case ProviderLocal:
		return NewLocalProvider(models, LocalOptions{
			BaseURL:  cfg.BaseURL,
			Model:    cfg.Model,
			Cache:    cache,
			Progress: cfg.Progress,
			Logger:   logger,
		})
	case ProviderMock:
		return NewMockProvider(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
}

// NewFromEnv creates a provider based on environment variables.
// Priority:
//  1. VECTREE_EMBEDDING_PROVIDER (openai, local, mock)
//  2. OPENAI_API_KEY present -> openai
//  3. Fallback to mock (offline mode)
func NewFromEnv(models *ModelCache, logger *slog.Logger) (Provider, error) {
	return New(Config{
		Provider:  DetectProvider(),
		BaseURL:   os.Getenv(EnvBaseURL),
		APIKey:    os.Getenv(EnvOpenAIAPIKey),
		Model:     os.Getenv(EnvModel),
		CacheSize: 10000,
	}, models, logger)
}

// DetectProvider returns the provider NewFromEnv would select
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	return ProviderMock
}
