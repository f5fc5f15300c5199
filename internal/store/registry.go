package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/relaymesh/collector/internal/source"
)

// Registry hands out the per-source collection handles, memoizing them so
// repeated operations against a source reuse one handle. Dropping a source
// evicts its handle; the next access recreates the collection empty.
type Registry struct {
	store Store

	mu   sync.RWMutex
	open map[source.DataSource]Collection
}

// NewRegistry creates a registry over the given store.
func NewRegistry(s Store) *Registry {
	return &Registry{
		store: s,
		open:  make(map[source.DataSource]Collection),
	}
}

// Open returns the collection for a source, opening it on first use.
func (r *Registry) Open(ctx context.Context, ds source.DataSource) (Collection, error) {
	r.mu.RLock()
	coll, ok := r.open[ds]
	r.mu.RUnlock()
	if ok {
		return coll, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if coll, ok := r.open[ds]; ok {
		return coll, nil
	}

	coll, err := r.store.OpenCollection(ctx, ds.Collection())
	if err != nil {
		return nil, err
	}
	r.open[ds] = coll
	return coll, nil
}

// Drop removes a source's collection and evicts the cached handle. Failures
// are logged and swallowed: a partially dropped collection is rebuilt on the
// next Open anyway.
func (r *Registry) Drop(ctx context.Context, ds source.DataSource) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.DropCollection(ctx, ds.Collection()); err != nil {
		slog.Warn("failed to drop collection",
			"collection", ds.Collection(), "error", err)
	}
	delete(r.open, ds)
}

// Forget evicts the cached handle without touching stored data.
func (r *Registry) Forget(ds source.DataSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.open, ds)
}
