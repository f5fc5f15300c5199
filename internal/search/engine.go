package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/relaymesh/collector/internal/embed"
	"github.com/relaymesh/collector/internal/errors"
	"github.com/relaymesh/collector/internal/source"
	"github.com/relaymesh/collector/internal/store"
)

// Engine runs queries across the per-source collections. One engine is
// shared by the whole process; it is safe for concurrent use.
type Engine struct {
	registry *store.Registry
	embedder embed.Embedder
	logger   *slog.Logger

	defaultLimit int
	maxLimit     int

	// now is stubbed by tests that pin the recency boost.
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLimits overrides the default and maximum page sizes.
func WithLimits(defaultLimit, maxLimit int) Option {
	return func(e *Engine) {
		e.defaultLimit = defaultLimit
		e.maxLimit = maxLimit
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides the time source used for recency boosts.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine builds a search engine over the collection registry.
func NewEngine(registry *store.Registry, embedder embed.Embedder, opts ...Option) *Engine {
	e := &Engine{
		registry:     registry,
		embedder:     embedder,
		logger:       slog.Default(),
		defaultLimit: DefaultLimit,
		maxLimit:     MaxLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search fans the query out to every requested source, scores and merges the
// hits, coalesces chunk groups, applies boosts, and paginates. A source that
// fails to open or query is logged and contributes nothing; an embedding
// failure aborts vector and hybrid searches.
func (e *Engine) Search(ctx context.Context, query string, opts Options) (*Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New(errors.ErrCodeQueryEmpty, "search query must not be empty", nil)
	}
	opts.normalize(e.defaultLimit, e.maxLimit)
	if !opts.Type.Valid() {
		return nil, errors.MalformedInput("unknown search type: " + string(opts.Type))
	}

	where, err := opts.whereClause()
	if err != nil {
		return nil, errors.MalformedInput(err.Error())
	}

	var embedding []float32
	if opts.Type == TypeVector || opts.Type == TypeHybrid {
		embedding, err = e.embedder.Embed(ctx, query)
		if err != nil {
			return nil, errors.EmbeddingFailed("failed to embed search query", err)
		}
	}
	terms := queryTerms(query)

	var (
		mu      sync.Mutex
		results []Result
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, ds := range opts.Sources {
		g.Go(func() error {
			hits, err := e.searchSource(gctx, ds, opts, embedding, terms, where)
			if err != nil {
				e.logger.Warn("source search failed, skipping",
					"source", ds, "error", err)
				return nil
			}
			mu.Lock()
			results = append(results, hits...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results = coalesce(results)
	now := e.now()
	for i := range results {
		applyBoosts(&results[i], query, now)
	}
	if opts.MinScore > 0 {
		filtered := results[:0]
		for _, r := range results {
			if r.Score >= opts.MinScore {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}
	sortResults(results)

	total := len(results)
	page := paginate(results, opts.Limit, opts.Offset)
	return &Page{Results: page, Total: total, Limit: opts.Limit, Offset: opts.Offset}, nil
}

// searchSource runs one source's share of the query. For hybrid searches the
// vector and keyword hit lists are merged by id, keeping the higher score.
func (e *Engine) searchSource(ctx context.Context, ds source.DataSource, opts Options, embedding []float32, terms []string, where store.Where) ([]Result, error) {
	coll, err := e.registry.Open(ctx, ds)
	if err != nil {
		return nil, err
	}

	var vector, keyword []Result
	if opts.Type == TypeVector || opts.Type == TypeHybrid {
		vector, err = e.vectorHits(ctx, coll, ds, opts, embedding, where)
		if err != nil {
			return nil, err
		}
	}
	if opts.Type == TypeKeyword || opts.Type == TypeHybrid {
		keyword, err = e.keywordHits(ctx, coll, ds, terms, where)
		if err != nil {
			return nil, err
		}
	}

	if opts.Type != TypeHybrid {
		if vector != nil {
			return vector, nil
		}
		return keyword, nil
	}

	merged := make(map[string]Result, len(vector)+len(keyword))
	for _, r := range vector {
		merged[r.ID] = r
	}
	for _, r := range keyword {
		if prev, ok := merged[r.ID]; !ok || r.Score > prev.Score {
			merged[r.ID] = r
		}
	}
	out := make([]Result, 0, len(merged))
	for _, r := range merged {
		out = append(out, r)
	}
	return out, nil
}

func (e *Engine) vectorHits(ctx context.Context, coll store.Collection, ds source.DataSource, opts Options, embedding []float32, where store.Where) ([]Result, error) {
	hits, err := coll.Query(ctx, embedding, opts.Limit+opts.Offset, where, nil)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{
			ID:       h.ID,
			Content:  h.Content,
			Metadata: h.Metadata,
			Score:    VectorScore(h.Distance),
			Source:   ds,
		})
	}
	return results, nil
}

func (e *Engine) keywordHits(ctx context.Context, coll store.Collection, ds source.DataSource, terms []string, where store.Where) ([]Result, error) {
	items, err := coll.Scan(ctx, where, &store.DocFilter{Contains: terms}, 0)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(items))
	for _, item := range items {
		score := KeywordScore(terms, item.Content)
		if score == 0 {
			continue
		}
		results = append(results, Result{
			ID:       item.ID,
			Content:  item.Content,
			Metadata: item.Metadata,
			Score:    score,
			Source:   ds,
		})
	}
	return results, nil
}
