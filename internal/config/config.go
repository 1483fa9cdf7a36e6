// Package config loads vectree configuration from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/dshills/vectree/internal/embedder"
)

// Environment overrides. The API key is env-only and never persisted
// to the config file.
const (
	EnvDBPath     = "VECTREE_DB_PATH"
	EnvLogLevel   = "VECTREE_LOG_LEVEL"
	EnvDimensions = "VECTREE_EMBEDDING_DIMENSIONS"
)

// Config is the full vectree configuration
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Scanner   ScannerConfig   `yaml:"scanner"`
	DBPath    string          `yaml:"db_path"`
	LogLevel  string          `yaml:"log_level"`
}

// EmbeddingConfig selects and tunes the embedding provider
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
}

// ScannerConfig tunes workspace scans
type ScannerConfig struct {
	Excludes []string `yaml:"excludes"`
	Workers  int      `yaml:"workers"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:  embedder.DetectProvider(),
			CacheSize: 10000,
		},
		Scanner: ScannerConfig{
			Workers: 4,
		},
		DBPath:   "vectree.db",
		LogLevel: "info",
	}
}

// Load reads path, falling back to Default when the file is absent.
// Malformed YAML is an error. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(embedder.EnvProvider); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv(embedder.EnvBaseURL); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv(embedder.EnvModel); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv(EnvDimensions); v != "" {
		if dims, err := strconv.Atoi(v); err == nil {
			cfg.Embedding.Dimensions = dims
		}
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
}

// EmbedderConfig maps the embedding section to the provider factory,
// attaching the env-only API key
func (c *Config) EmbedderConfig() embedder.Config {
	return embedder.Config{
		Provider:   c.Embedding.Provider,
		BaseURL:    c.Embedding.BaseURL,
		APIKey:     os.Getenv(embedder.EnvOpenAIAPIKey),
		Model:      c.Embedding.Model,
		Dimensions: c.Embedding.Dimensions,
		CacheSize:  c.Embedding.CacheSize,
	}
}
