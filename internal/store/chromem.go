package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	cerrors "github.com/relaymesh/collector/internal/errors"
)

// ChromemStore is the in-memory backend, built on chromem-go. It keeps an
// authoritative side map of items per collection: chromem answers the vector
// queries, the side map serves Get/Scan and the metadata predicates (chromem
// metadata is string-only, ours is typed).
type ChromemStore struct {
	db *chromem.DB

	mu     sync.RWMutex
	items  map[string]map[string]Item // collection -> id -> item
	closed bool
}

// NewChromemStore creates an empty in-memory store.
func NewChromemStore() *ChromemStore {
	return &ChromemStore{
		db:    chromem.NewDB(),
		items: make(map[string]map[string]Item),
	}
}

// OpenCollection opens (creating if needed) the named collection.
func (s *ChromemStore) OpenCollection(ctx context.Context, name string) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, cerrors.StoreUnavailable("store is closed", nil)
	}

	coll, err := s.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, cerrors.StoreUnavailable("create collection", err)
	}
	if s.items[name] == nil {
		s.items[name] = make(map[string]Item)
	}
	return &chromemCollection{store: s, name: name, coll: coll}, nil
}

// DropCollection removes the named collection.
func (s *ChromemStore) DropCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cerrors.StoreUnavailable("store is closed", nil)
	}
	if err := s.db.DeleteCollection(name); err != nil {
		return cerrors.StoreUnavailable("delete collection", err)
	}
	delete(s.items, name)
	return nil
}

// Close marks the store closed. chromem-go holds no external resources.
func (s *ChromemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.items = nil
	return nil
}

var _ Store = (*ChromemStore)(nil)

// chromemCollection is a collection handle of a ChromemStore.
type chromemCollection struct {
	store *ChromemStore
	name  string
	coll  *chromem.Collection
}

func (c *chromemCollection) Name() string { return c.name }

func (c *chromemCollection) side() map[string]Item {
	return c.store.items[c.name]
}

func (c *chromemCollection) Upsert(ctx context.Context, items []Item) error {
	for _, item := range items {
		if item.Embedding == nil {
			return fmt.Errorf("item %s has no embedding", item.ID)
		}
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	for _, item := range items {
		// chromem has no replace; delete any previous version first.
		if _, exists := c.side()[item.ID]; exists {
			_ = c.coll.Delete(ctx, nil, nil, item.ID)
		}
		doc := chromem.Document{
			ID:        item.ID,
			Content:   item.Content,
			Embedding: item.Embedding,
			Metadata:  stringMetadata(item.Metadata),
		}
		if err := c.coll.AddDocument(ctx, doc); err != nil {
			return cerrors.StoreUnavailable(fmt.Sprintf("add document %s", item.ID), err)
		}
		stored := item
		stored.Embedding = nil
		stored.Metadata = cloneMetadata(item.Metadata)
		c.side()[item.ID] = stored
	}
	return nil
}

func (c *chromemCollection) UpdateMetadata(ctx context.Context, id string, metadata map[string]any) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	item, ok := c.side()[id]
	if !ok {
		return cerrors.NotFound(fmt.Sprintf("item %s not found in %s", id, c.name))
	}
	item.Metadata = cloneMetadata(metadata)
	c.side()[id] = item
	return nil
}

func (c *chromemCollection) Get(ctx context.Context, ids []string) ([]Item, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	var out []Item
	for _, id := range ids {
		if item, ok := c.side()[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (c *chromemCollection) Scan(ctx context.Context, where Where, filter *DocFilter, limit int) ([]Item, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	ids := make([]string, 0, len(c.side()))
	for id := range c.side() {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []Item
	for _, id := range ids {
		item := c.side()[id]
		if !where.Matches(item.Metadata) || !filter.MatchesContent(item.Content) {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (c *chromemCollection) Query(ctx context.Context, embedding []float32, n int, where Where, filter *DocFilter) ([]Hit, error) {
	if n <= 0 {
		return nil, nil
	}

	c.store.mu.RLock()
	total := len(c.side())
	c.store.mu.RUnlock()
	if total == 0 {
		return nil, nil
	}

	// chromem rejects nResults above the document count.
	k := n
	if len(where) > 0 || filter != nil {
		k = queryOverfetch(n)
	}
	if k > total {
		k = total
	}

	docs, err := c.coll.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, cerrors.StoreUnavailable("vector search", err)
	}

	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	hits := make([]Hit, 0, n)
	for _, doc := range docs {
		item, ok := c.side()[doc.ID]
		if !ok {
			continue
		}
		if !where.Matches(item.Metadata) || !filter.MatchesContent(item.Content) {
			continue
		}
		// chromem reports cosine similarity; convert to cosine distance.
		hits = append(hits, Hit{Item: item, Distance: 1 - doc.Similarity})
		if len(hits) >= n {
			break
		}
	}
	return hits, nil
}

func (c *chromemCollection) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	for _, id := range ids {
		if _, ok := c.side()[id]; !ok {
			continue
		}
		if err := c.coll.Delete(ctx, nil, nil, id); err != nil {
			return cerrors.StoreUnavailable(fmt.Sprintf("delete document %s", id), err)
		}
		delete(c.side(), id)
	}
	return nil
}

func (c *chromemCollection) DeleteWhere(ctx context.Context, where Where) (int, error) {
	matched, err := c.Scan(ctx, where, nil, 0)
	if err != nil {
		return 0, err
	}
	if len(matched) == 0 {
		return 0, nil
	}
	ids := make([]string, len(matched))
	for i, item := range matched {
		ids[i] = item.ID
	}
	if err := c.Delete(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (c *chromemCollection) Count(ctx context.Context) (int, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	return len(c.side()), nil
}

var _ Collection = (*chromemCollection)(nil)

// stringMetadata narrows typed metadata to chromem's string-only form. The
// side map keeps the typed original; this copy only feeds chromem internals.
func stringMetadata(meta map[string]any) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		if s, ok := v.(string); ok {
			out[k] = s
		} else {
			out[k] = fmt.Sprintf("%v", v)
		}
	}
	return out
}

func cloneMetadata(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
