// Package collector wires the document pipeline, query engine, and
// navigator into the single service the MCP server and CLI talk to.
package collector

import (
	"context"
	"log/slog"
	"strings"

	"github.com/relaymesh/collector/internal/embed"
	"github.com/relaymesh/collector/internal/errors"
	"github.com/relaymesh/collector/internal/navigate"
	"github.com/relaymesh/collector/internal/search"
	"github.com/relaymesh/collector/internal/source"
	"github.com/relaymesh/collector/internal/store"
)

// Service exposes the caller-facing operations over one vector store and
// one embedding provider. Safe for concurrent use.
type Service struct {
	registry  *store.Registry
	embedder  embed.Embedder
	engine    *search.Engine
	navigator *navigate.Navigator
	logger    *slog.Logger
	batchSize int

	searchOpts []search.Option
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithBatchSize overrides the store write batch size.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithSearchOptions forwards options to the query engine.
func WithSearchOptions(opts ...search.Option) Option {
	return func(s *Service) {
		s.searchOpts = append(s.searchOpts, opts...)
	}
}

// New builds the service over a store and an embedder.
func New(st store.Store, embedder embed.Embedder, opts ...Option) *Service {
	s := &Service{
		registry:  store.NewRegistry(st),
		embedder:  embedder,
		logger:    slog.Default(),
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = search.NewEngine(s.registry, embedder,
		append(s.searchOpts, search.WithLogger(s.logger))...)
	s.navigator = navigate.NewNavigator(s.registry, s.logger)
	return s
}

// Search runs a query across the per-source collections.
func (s *Service) Search(ctx context.Context, query string, opts search.Options) (*search.Page, error) {
	return s.engine.Search(ctx, query, opts)
}

// Navigate resolves a document's relatives.
func (s *Service) Navigate(ctx context.Context, documentID string, direction navigate.Direction, scope navigate.Scope, limit int) (*navigate.Result, error) {
	return s.navigator.Navigate(ctx, documentID, direction, scope, limit)
}

// GetDocument fetches a single item by id. Returns nil without error when
// the id is unknown; a found item carries score 1.
func (s *Service) GetDocument(ctx context.Context, ds source.DataSource, id string) (*search.Result, error) {
	if !ds.Valid() {
		return nil, errors.MalformedInput("unknown data source: " + string(ds))
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.MalformedInput("document id must not be empty")
	}

	coll, err := s.registry.Open(ctx, ds)
	if err != nil {
		return nil, errors.StoreUnavailable("failed to open collection", err)
	}
	items, err := coll.Get(ctx, []string{id})
	if err != nil {
		return nil, errors.StoreUnavailable("failed to fetch document", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	r := toResult(items[0], ds)
	return &r, nil
}

// GetDocumentsByMetadata fetches items matching the equality predicates.
// Each returned item carries score 1. Non-primitive predicate values are
// ignored.
func (s *Service) GetDocumentsByMetadata(ctx context.Context, ds source.DataSource, where map[string]any, limit int) ([]search.Result, error) {
	if !ds.Valid() {
		return nil, errors.MalformedInput("unknown data source: " + string(ds))
	}

	var predicates store.Where
	for field, value := range where {
		switch value.(type) {
		case string, bool, float64, float32, int, int32, int64:
			predicates = append(predicates, store.Eq(field, value))
		}
	}

	coll, err := s.registry.Open(ctx, ds)
	if err != nil {
		return nil, errors.StoreUnavailable("failed to open collection", err)
	}
	items, err := coll.Scan(ctx, predicates, nil, limit)
	if err != nil {
		return nil, errors.StoreUnavailable("metadata scan failed", err)
	}

	results := make([]search.Result, 0, len(items))
	for _, item := range items {
		results = append(results, toResult(item, ds))
	}
	return results, nil
}

// DeleteDocument removes a logical document: the id itself plus every chunk
// pointing at it through parentDocId. Unknown ids are not an error.
func (s *Service) DeleteDocument(ctx context.Context, ds source.DataSource, id string) error {
	if !ds.Valid() {
		return errors.MalformedInput("unknown data source: " + string(ds))
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.MalformedInput("document id must not be empty")
	}

	coll, err := s.registry.Open(ctx, ds)
	if err != nil {
		return errors.StoreUnavailable("failed to open collection", err)
	}
	if err := coll.Delete(ctx, []string{id}); err != nil {
		return errors.StoreUnavailable("failed to delete document", err)
	}
	swept, err := coll.DeleteWhere(ctx, store.Where{store.Eq("parentDocId", id)})
	if err != nil {
		return errors.StoreUnavailable("failed to delete document chunks", err)
	}
	s.logger.Debug("deleted document", "source", ds, "id", id, "chunks", swept)
	return nil
}

// DeleteCollection drops a source's entire collection.
func (s *Service) DeleteCollection(ctx context.Context, ds source.DataSource) error {
	if !ds.Valid() {
		return errors.MalformedInput("unknown data source: " + string(ds))
	}
	s.registry.Drop(ctx, ds)
	return nil
}

// SourceStatus is one source's slice of the status report.
type SourceStatus struct {
	Source source.DataSource `json:"source"`
	Count  int               `json:"count"`
}

// Status summarizes the stored corpus and the embedding provider.
type Status struct {
	Sources        []SourceStatus `json:"sources"`
	TotalDocuments int            `json:"totalDocuments"`
	EmbeddingModel string         `json:"embeddingModel"`
	EmbedderReady  bool           `json:"embedderReady"`
}

// Status reports per-source item counts and provider readiness. A source
// whose collection cannot be opened counts zero.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	st := &Status{
		EmbeddingModel: s.embedder.ModelName(),
		EmbedderReady:  s.embedder.Available(ctx),
	}
	for _, ds := range source.All {
		count := 0
		coll, err := s.registry.Open(ctx, ds)
		if err == nil {
			count, err = coll.Count(ctx)
		}
		if err != nil {
			s.logger.Warn("status probe failed", "source", ds, "error", err)
			count = 0
		}
		st.Sources = append(st.Sources, SourceStatus{Source: ds, Count: count})
		st.TotalDocuments += count
	}
	return st, nil
}

func toResult(item store.Item, ds source.DataSource) search.Result {
	return search.Result{
		ID:       item.ID,
		Content:  item.Content,
		Metadata: item.Metadata,
		Score:    1,
		Source:   ds,
	}
}
