// Package store provides the vector store abstraction: named collections of
// items with content, flat metadata, and an embedding, supporting upsert,
// metadata predicates, substring filters, and nearest-neighbor queries.
//
// Two backends implement it: the local backend (sqlite rows + an HNSW graph
// per collection, persistent) and the chromem backend (in-memory, used by
// tests and ephemeral runs).
package store

import (
	"context"
)

// Item is one stored unit of a collection.
type Item struct {
	ID       string
	Content  string
	Metadata map[string]any

	// Embedding is the content vector. Required on Upsert, unset on reads
	// other than Query internals.
	Embedding []float32
}

// Hit is a query result with its vector distance (cosine distance, 0 for
// identical direction).
type Hit struct {
	Item
	Distance float32
}

// Op is a metadata predicate operator.
type Op string

const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpLte Op = "lte"
)

// Cond is a single metadata predicate.
type Cond struct {
	Field string
	Op    Op
	Value any
}

// Where is a conjunction of metadata predicates. An empty Where matches
// everything.
type Where []Cond

// Eq builds an equality predicate.
func Eq(field string, value any) Cond {
	return Cond{Field: field, Op: OpEq, Value: value}
}

// Gte builds a greater-or-equal predicate.
func Gte(field string, value any) Cond {
	return Cond{Field: field, Op: OpGte, Value: value}
}

// Lte builds a less-or-equal predicate.
func Lte(field string, value any) Cond {
	return Cond{Field: field, Op: OpLte, Value: value}
}

// DocFilter filters on item content: every term must appear as a
// case-insensitive substring.
type DocFilter struct {
	Contains []string
}

// Collection is a named set of items sharing one vector index.
type Collection interface {
	// Name returns the collection name.
	Name() string

	// Upsert inserts or replaces items by id. Items must carry embeddings.
	Upsert(ctx context.Context, items []Item) error

	// UpdateMetadata replaces the metadata of an existing item, leaving its
	// content and embedding untouched.
	UpdateMetadata(ctx context.Context, id string, metadata map[string]any) error

	// Get fetches items by id. Missing ids are skipped; the result carries
	// no embeddings.
	Get(ctx context.Context, ids []string) ([]Item, error)

	// Scan returns items matching the predicates, up to limit (0 = all).
	Scan(ctx context.Context, where Where, filter *DocFilter, limit int) ([]Item, error)

	// Query returns the n nearest items to the embedding that satisfy the
	// predicates, ordered by ascending distance.
	Query(ctx context.Context, embedding []float32, n int, where Where, filter *DocFilter) ([]Hit, error)

	// Delete removes items by id. Unknown ids are ignored.
	Delete(ctx context.Context, ids []string) error

	// DeleteWhere removes all items matching the predicates and reports how
	// many were removed.
	DeleteWhere(ctx context.Context, where Where) (int, error)

	// Count returns the number of items in the collection.
	Count(ctx context.Context) (int, error)
}

// Store manages collections.
type Store interface {
	// OpenCollection opens (creating if needed) the named collection.
	OpenCollection(ctx context.Context, name string) (Collection, error)

	// DropCollection removes the named collection and all its items.
	// Dropping an unknown collection is not an error.
	DropCollection(ctx context.Context, name string) error

	// Close flushes and releases all resources.
	Close() error
}
