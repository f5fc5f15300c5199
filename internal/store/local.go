package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	cerrors "github.com/relaymesh/collector/internal/errors"
)

// LocalStore is the persistent backend: sqlite rows for content and
// metadata, one HNSW index per collection for vectors, and a file lock that
// keeps a second process from opening the same data directory.
type LocalStore struct {
	dir  string
	db   *docDB
	lock *flock.Flock

	dims     int
	m        int
	efSearch int

	mu      sync.Mutex
	indexes map[string]*vectorIndex
	closed  bool
}

// LocalOption configures a LocalStore.
type LocalOption func(*LocalStore)

// WithHNSWParams tunes the per-collection HNSW graphs.
func WithHNSWParams(m, efSearch int) LocalOption {
	return func(s *LocalStore) {
		s.m = m
		s.efSearch = efSearch
	}
}

// NewLocalStore opens the store rooted at dir. dims is the embedding width
// every collection uses.
func NewLocalStore(dir string, dims int, opts ...LocalOption) (*LocalStore, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", dims)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, cerrors.StoreUnavailable("create data directory", err)
	}

	lock := flock.New(filepath.Join(dir, "collector.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, cerrors.StoreUnavailable("acquire data directory lock", err)
	}
	if !locked {
		return nil, cerrors.StoreUnavailable(
			fmt.Sprintf("data directory %s is locked by another process", dir), nil).
			WithSuggestion("stop the other collector instance or use a different data directory")
	}

	db, err := openDocDB(filepath.Join(dir, "collector.db"))
	if err != nil {
		_ = lock.Unlock()
		return nil, cerrors.StoreUnavailable("open document database", err)
	}

	s := &LocalStore{
		dir:     dir,
		db:      db,
		lock:    lock,
		dims:    dims,
		indexes: make(map[string]*vectorIndex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *LocalStore) indexPath(name string) string {
	return filepath.Join(s.dir, "indexes", name+".hnsw")
}

// OpenCollection opens (creating if needed) the named collection, loading
// its vector index from disk when one exists.
func (s *LocalStore) OpenCollection(ctx context.Context, name string) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, cerrors.StoreUnavailable("store is closed", nil)
	}

	idx, ok := s.indexes[name]
	if !ok {
		idx = newVectorIndex(s.dims, s.m, s.efSearch)
		if err := idx.load(s.indexPath(name)); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, cerrors.Wrap(cerrors.ErrCodeCorruptIndex, err).
					WithDetail("collection", name)
			}
			// Fresh collection.
		}
		s.indexes[name] = idx
	}
	return &localCollection{store: s, name: name, index: idx}, nil
}

// DropCollection removes the collection's rows and index files.
func (s *LocalStore) DropCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cerrors.StoreUnavailable("store is closed", nil)
	}

	if err := s.db.dropCollection(ctx, name); err != nil {
		return cerrors.StoreUnavailable("drop collection rows", err)
	}
	delete(s.indexes, name)

	path := s.indexPath(name)
	for _, p := range []string{path, path + ".meta"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to remove index file", "path", p, "error", err)
		}
	}
	return nil
}

// Collections lists collection names present in the document store.
func (s *LocalStore) Collections(ctx context.Context) ([]string, error) {
	return s.db.collections(ctx)
}

// Close saves every open index and releases the database and lock.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	for name, idx := range s.indexes {
		if err := idx.save(s.indexPath(name)); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("save index %s: %w", name, err)
		}
	}
	if err := s.db.close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.lock.Unlock(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

var _ Store = (*LocalStore)(nil)

// localCollection is a collection handle of a LocalStore.
type localCollection struct {
	store *LocalStore
	name  string
	index *vectorIndex
}

func (c *localCollection) Name() string { return c.name }

func (c *localCollection) Upsert(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}

	ids := make([]string, len(items))
	vectors := make([][]float32, len(items))
	for i, item := range items {
		if item.Embedding == nil {
			return fmt.Errorf("item %s has no embedding", item.ID)
		}
		ids[i] = item.ID
		vectors[i] = item.Embedding
	}

	if err := c.store.db.upsert(ctx, c.name, items); err != nil {
		return cerrors.StoreUnavailable("upsert items", err)
	}
	if err := c.index.add(ids, vectors); err != nil {
		return cerrors.StoreUnavailable("index vectors", err)
	}
	return c.persistIndex()
}

func (c *localCollection) UpdateMetadata(ctx context.Context, id string, metadata map[string]any) error {
	err := c.store.db.updateMetadata(ctx, c.name, id, metadata)
	if errors.Is(err, sql.ErrNoRows) {
		return cerrors.NotFound(fmt.Sprintf("item %s not found in %s", id, c.name))
	}
	if err != nil {
		return cerrors.StoreUnavailable("update metadata", err)
	}
	return nil
}

func (c *localCollection) Get(ctx context.Context, ids []string) ([]Item, error) {
	items, err := c.store.db.get(ctx, c.name, ids)
	if err != nil {
		return nil, cerrors.StoreUnavailable("get items", err)
	}
	return items, nil
}

func (c *localCollection) Scan(ctx context.Context, where Where, filter *DocFilter, limit int) ([]Item, error) {
	items, err := c.store.db.scan(ctx, c.name, where, filter, limit)
	if err != nil {
		return nil, cerrors.StoreUnavailable("scan items", err)
	}
	return items, nil
}

// queryOverfetch is how many extra candidates the vector search pulls so
// that predicate filtering can still fill a page.
func queryOverfetch(n int) int {
	k := n * 4
	if k < n+16 {
		k = n + 16
	}
	return k
}

func (c *localCollection) Query(ctx context.Context, embedding []float32, n int, where Where, filter *DocFilter) ([]Hit, error) {
	if n <= 0 {
		return nil, nil
	}

	k := n
	if len(where) > 0 || filter != nil {
		k = queryOverfetch(n)
	}

	candidates, err := c.index.search(embedding, k)
	if err != nil {
		return nil, cerrors.StoreUnavailable("vector search", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]string, len(candidates))
	for i, cand := range candidates {
		ids[i] = cand.id
	}
	rows, err := c.store.db.get(ctx, c.name, ids)
	if err != nil {
		return nil, cerrors.StoreUnavailable("resolve query candidates", err)
	}
	byID := make(map[string]Item, len(rows))
	for _, item := range rows {
		byID[item.ID] = item
	}

	hits := make([]Hit, 0, n)
	for _, cand := range candidates {
		item, ok := byID[cand.id]
		if !ok {
			// Row deleted between index search and fetch.
			continue
		}
		if !where.Matches(item.Metadata) || !filter.MatchesContent(item.Content) {
			continue
		}
		hits = append(hits, Hit{Item: item, Distance: cand.distance})
		if len(hits) >= n {
			break
		}
	}
	return hits, nil
}

func (c *localCollection) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := c.store.db.delete(ctx, c.name, ids); err != nil {
		return cerrors.StoreUnavailable("delete items", err)
	}
	c.index.remove(ids)
	return c.persistIndex()
}

func (c *localCollection) DeleteWhere(ctx context.Context, where Where) (int, error) {
	matched, err := c.store.db.scan(ctx, c.name, where, nil, 0)
	if err != nil {
		return 0, cerrors.StoreUnavailable("scan for delete", err)
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

func (c *localCollection) Count(ctx context.Context) (int, error) {
	n, err := c.store.db.count(ctx, c.name)
	if err != nil {
		return 0, cerrors.StoreUnavailable("count items", err)
	}
	return n, nil
}

func (c *localCollection) persistIndex() error {
	c.store.mu.Lock()
	closed := c.store.closed
	c.store.mu.Unlock()
	if closed {
		return nil
	}
	if err := c.index.save(c.store.indexPath(c.name)); err != nil {
		return cerrors.StoreUnavailable("persist vector index", err)
	}
	return nil
}

var _ Collection = (*localCollection)(nil)
