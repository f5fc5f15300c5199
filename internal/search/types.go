// Package search implements the cross-source query engine: parallel
// per-source fan-out, vector and keyword scoring, multi-chunk coalescing,
// relevancy boosts, and pagination.
package search

import (
	"github.com/relaymesh/collector/internal/source"
)

// Type selects the retrieval strategy.
type Type string

const (
	TypeVector  Type = "vector"
	TypeKeyword Type = "keyword"
	TypeHybrid  Type = "hybrid"
)

// Valid reports whether t is a known search type.
func (t Type) Valid() bool {
	switch t {
	case TypeVector, TypeKeyword, TypeHybrid:
		return true
	}
	return false
}

// Result is one scored item of a search response.
type Result struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]any    `json:"metadata"`
	Score    float64           `json:"score"`
	Source   source.DataSource `json:"source"`
}

// Page is a search response: one page of results plus the post-coalesce,
// pre-pagination total.
type Page struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}
