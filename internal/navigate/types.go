// Package navigate resolves the relational neighborhood of a stored
// document: its chunk neighbors, thread or folder siblings, parent, and
// children, across the per-source collections.
package navigate

import (
	"github.com/relaymesh/collector/internal/source"
)

// Direction selects which relatives of the current document to return.
type Direction string

const (
	Prev     Direction = "prev"
	Next     Direction = "next"
	Siblings Direction = "siblings"
	Parent   Direction = "parent"
	Children Direction = "children"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	switch d {
	case Prev, Next, Siblings, Parent, Children:
		return true
	}
	return false
}

// Scope selects the navigation granularity for prev/next/siblings.
// Parent and children ignore it.
type Scope string

const (
	// ScopeChunk navigates between the chunks of one split document.
	ScopeChunk Scope = "chunk"
	// ScopeDatapoint navigates between time-ordered siblings in the same
	// thread, issue, or folder.
	ScopeDatapoint Scope = "datapoint"
	// ScopeContext navigates one container level up: channel, project,
	// space, repository.
	ScopeContext Scope = "context"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	switch s {
	case ScopeChunk, ScopeDatapoint, ScopeContext:
		return true
	}
	return false
}

// DefaultLimit caps related lists when the caller does not set one.
const DefaultLimit = 10

// Doc is one document in a navigation response.
type Doc struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]any    `json:"metadata"`
	Source   source.DataSource `json:"source"`
}

// Navigation summarizes the position of the current document among its
// relatives.
type Navigation struct {
	HasPrev       bool    `json:"hasPrev"`
	HasNext       bool    `json:"hasNext"`
	ParentID      *string `json:"parentId"`
	ContextType   string  `json:"contextType"`
	TotalSiblings int     `json:"totalSiblings"`
}

// Result is a navigation response. Current is nil when the document id is
// unknown to every source.
type Result struct {
	Current    *Doc       `json:"current"`
	Related    []Doc      `json:"related"`
	Navigation Navigation `json:"navigation"`
}

// nullResult is returned when the document id resolves nowhere.
func nullResult() *Result {
	return &Result{
		Current: nil,
		Related: []Doc{},
		Navigation: Navigation{
			HasPrev:     false,
			HasNext:     false,
			ParentID:    nil,
			ContextType: "unknown",
		},
	}
}
