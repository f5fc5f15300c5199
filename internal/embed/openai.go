package embed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/relaymesh/collector/internal/errors"
)

// Known model dimensions. Models not listed here must set Dimensions
// explicitly in the options.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIOption configures an OpenAIEmbedder.
type OpenAIOption func(*OpenAIEmbedder)

// WithBaseURL points the client at a compatible gateway instead of the
// public API.
func WithBaseURL(url string) OpenAIOption {
	return func(e *OpenAIEmbedder) { e.baseURL = url }
}

// WithDimensions overrides the embedding width reported for the model.
func WithDimensions(d int) OpenAIOption {
	return func(e *OpenAIEmbedder) { e.dimensions = d }
}

// WithBatchSize sets the number of texts sent per API call.
func WithBatchSize(n int) OpenAIOption {
	return func(e *OpenAIEmbedder) {
		if n >= MinBatchSize && n <= MaxBatchSize {
			e.batchSize = n
		}
	}
}

// WithRetryConfig replaces the default retry policy.
func WithRetryConfig(cfg errors.RetryConfig) OpenAIOption {
	return func(e *OpenAIEmbedder) { e.retry = cfg }
}

// OpenAIEmbedder generates embeddings via the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	baseURL    string
	dimensions int
	batchSize  int
	retry      errors.RetryConfig

	mu     sync.RWMutex
	closed bool
}

// NewOpenAIEmbedder creates an embedder for the given model.
func NewOpenAIEmbedder(apiKey, model string, opts ...OpenAIOption) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "openai api key is required", nil).
			WithSuggestion("set COLLECTOR_OPENAI_API_KEY or OPENAI_API_KEY")
	}
	if model == "" {
		model = "text-embedding-3-small"
	}

	e := &OpenAIEmbedder{
		model:     model,
		batchSize: DefaultBatchSize,
		retry:     errors.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.dimensions == 0 {
		d, ok := modelDimensions[model]
		if !ok {
			return nil, errors.New(errors.ErrCodeConfigInvalid,
				fmt.Sprintf("unknown embedding model %q: set dimensions explicitly", model), nil)
		}
		e.dimensions = d
	}

	cfg := openai.DefaultConfig(apiKey)
	if e.baseURL != "" {
		cfg.BaseURL = e.baseURL
	}
	e.client = openai.NewClientWithConfig(cfg)
	return e, nil
}

// Embed generates the embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts. Inputs beyond the
// configured batch size are split into sequential API calls.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.embedChunk(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *OpenAIEmbedder) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	// The API rejects empty inputs; substitute a single space.
	inputs := make([]string, len(texts))
	for i, t := range texts {
		if t == "" {
			t = " "
		}
		inputs[i] = t
	}

	resp, err := errors.RetryWithResult(ctx, e.retry, func() (openai.EmbeddingResponse, error) {
		return e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: inputs,
			Model: openai.EmbeddingModel(e.model),
		})
	})
	if err != nil {
		return nil, errors.EmbeddingFailed("openai embeddings request failed", err).
			WithDetail("model", e.model)
	}
	if len(resp.Data) != len(inputs) {
		return nil, errors.EmbeddingFailed(
			fmt.Sprintf("openai returned %d embeddings for %d inputs", len(resp.Data), len(inputs)), nil)
	}

	// Responses are index-tagged; do not assume order.
	vecs := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, errors.EmbeddingFailed(
				fmt.Sprintf("openai returned out-of-range index %d", d.Index), nil)
		}
		vecs[d.Index] = d.Embedding
	}
	for i, v := range vecs {
		if v == nil {
			return nil, errors.EmbeddingFailed(
				fmt.Sprintf("openai response missing embedding for input %d", i), nil)
		}
		if len(v) != e.dimensions {
			return nil, errors.EmbeddingFailed(
				fmt.Sprintf("embedding dimension %d, expected %d", len(v), e.dimensions), nil)
		}
	}
	return vecs, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the model identifier.
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// Available probes the API with a minimal request.
func (e *OpenAIEmbedder) Available(ctx context.Context) bool {
	_, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{"ping"},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		slog.Debug("openai embedder unavailable", "error", err)
		return false
	}
	return true
}

// Close releases resources.
func (e *OpenAIEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

var _ Embedder = (*OpenAIEmbedder)(nil)
