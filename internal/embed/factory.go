package embed

import (
	"fmt"
	"strings"

	"github.com/relaymesh/collector/internal/config"
)

// NewFromConfig builds the configured embedder, wrapped in the LRU cache.
func NewFromConfig(cfg config.EmbeddingsConfig) (Embedder, error) {
	var (
		inner Embedder
		err   error
	)
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		opts := []OpenAIOption{WithBatchSize(cfg.BatchSize)}
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		if cfg.Dimensions != 0 {
			opts = append(opts, WithDimensions(cfg.Dimensions))
		}
		inner, err = NewOpenAIEmbedder(cfg.APIKey, cfg.Model, opts...)
	case "static":
		inner = NewStaticEmbedder()
	default:
		err = fmt.Errorf("unknown embeddings provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}
