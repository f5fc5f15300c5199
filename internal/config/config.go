// Package config loads collector configuration. Values are applied in order
// of increasing precedence: hardcoded defaults, the user config file
// (~/.config/collector/config.yaml), the project config (collector.yaml in
// the working directory), then COLLECTOR_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete collector configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Data       DataConfig       `yaml:"data" json:"data"`
	Store      StoreConfig      `yaml:"store" json:"store"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// DataConfig configures where on-disk state lives.
type DataConfig struct {
	// Dir is the root data directory. Collections, indexes, and locks live
	// under it. Defaults to ~/.collector.
	Dir string `yaml:"dir" json:"dir"`
}

// StoreConfig selects and tunes the vector store backend.
type StoreConfig struct {
	// Backend is "local" (sqlite + hnsw, persistent) or "chromem"
	// (in-memory, for tests and ephemeral runs).
	Backend string `yaml:"backend" json:"backend"`

	// HNSWM is the HNSW graph connectivity parameter.
	HNSWM int `yaml:"hnsw_m" json:"hnsw_m"`

	// HNSWEfSearch is the HNSW search beam width.
	HNSWEfSearch int `yaml:"hnsw_ef_search" json:"hnsw_ef_search"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "openai" or "static" (deterministic hash embeddings, no
	// network; used for tests and offline runs).
	Provider string `yaml:"provider" json:"provider"`

	// Model is the embedding model name.
	Model string `yaml:"model" json:"model"`

	// Dimensions is the embedding width. 0 means the provider default.
	Dimensions int `yaml:"dimensions" json:"dimensions"`

	// APIKey authenticates against the provider. Usually set via
	// COLLECTOR_OPENAI_API_KEY or OPENAI_API_KEY rather than the file.
	APIKey string `yaml:"api_key" json:"-"`

	// BaseURL overrides the provider endpoint (proxies, local gateways).
	BaseURL string `yaml:"base_url" json:"base_url"`

	// BatchSize is the number of texts embedded per provider call.
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// CacheSize is the number of embeddings kept in the LRU cache.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// SearchConfig configures query-side defaults.
type SearchConfig struct {
	// DefaultLimit is the page size used when a query does not set one.
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`

	// MaxLimit caps the page size a caller may request.
	MaxLimit int `yaml:"max_limit" json:"max_limit"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFile   string `yaml:"log_file" json:"log_file"`
}

// NewConfig creates a Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Data: DataConfig{
			Dir: defaultDataDir(),
		},
		Store: StoreConfig{
			Backend:      "local",
			HNSWM:        16,
			HNSWEfSearch: 64,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "openai",
			Model:      "text-embedding-3-small",
			Dimensions: 0, // provider default (1536 for text-embedding-3-small)
			BatchSize:  64,
			CacheSize:  4096,
		},
		Search: SearchConfig{
			DefaultLimit: 20,
			MaxLimit:     200,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".collector")
	}
	return filepath.Join(home, ".collector")
}

// GetUserConfigPath returns the path of the user-level configuration file,
// following the XDG Base Directory convention.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "collector", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "collector", "config.yaml")
	}
	return filepath.Join(home, ".config", "collector", "config.yaml")
}

// Load loads configuration for the given working directory.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("load user config: %w", err)
		}
	}

	for _, name := range []string{"collector.yaml", "collector.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			if err := cfg.loadYAML(path); err != nil {
				return nil, err
			}
			break
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Data.Dir != "" {
		c.Data.Dir = other.Data.Dir
	}
	if other.Store.Backend != "" {
		c.Store.Backend = other.Store.Backend
	}
	if other.Store.HNSWM != 0 {
		c.Store.HNSWM = other.Store.HNSWM
	}
	if other.Store.HNSWEfSearch != 0 {
		c.Store.HNSWEfSearch = other.Store.HNSWEfSearch
	}
	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.APIKey != "" {
		c.Embeddings.APIKey = other.Embeddings.APIKey
	}
	if other.Embeddings.BaseURL != "" {
		c.Embeddings.BaseURL = other.Embeddings.BaseURL
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}
	if other.Search.DefaultLimit != 0 {
		c.Search.DefaultLimit = other.Search.DefaultLimit
	}
	if other.Search.MaxLimit != 0 {
		c.Search.MaxLimit = other.Search.MaxLimit
	}
	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
	if other.Server.LogFile != "" {
		c.Server.LogFile = other.Server.LogFile
	}
}

// applyEnvOverrides applies COLLECTOR_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("COLLECTOR_DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv("COLLECTOR_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("COLLECTOR_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("COLLECTOR_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("COLLECTOR_EMBEDDINGS_BASE_URL"); v != "" {
		c.Embeddings.BaseURL = v
	}
	if v := os.Getenv("COLLECTOR_OPENAI_API_KEY"); v != "" {
		c.Embeddings.APIKey = v
	} else if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.Embeddings.APIKey == "" {
		c.Embeddings.APIKey = v
	}
	if v := os.Getenv("COLLECTOR_SEARCH_DEFAULT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.DefaultLimit = n
		}
	}
	if v := os.Getenv("COLLECTOR_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("COLLECTOR_LOG_FILE"); v != "" {
		c.Server.LogFile = v
	}
	if v := os.Getenv("COLLECTOR_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Store.Backend) {
	case "local", "chromem":
	default:
		return fmt.Errorf("store.backend must be 'local' or 'chromem', got %s", c.Store.Backend)
	}

	switch strings.ToLower(c.Embeddings.Provider) {
	case "openai", "static":
	default:
		return fmt.Errorf("embeddings.provider must be 'openai' or 'static', got %s", c.Embeddings.Provider)
	}

	if c.Embeddings.BatchSize < 1 {
		return fmt.Errorf("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize)
	}
	if c.Search.DefaultLimit < 1 {
		return fmt.Errorf("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("search.max_limit (%d) must be at least default_limit (%d)",
			c.Search.MaxLimit, c.Search.DefaultLimit)
	}

	validTransports := map[string]bool{"stdio": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
