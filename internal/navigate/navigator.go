package navigate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/relaymesh/collector/internal/errors"
	"github.com/relaymesh/collector/internal/prepare"
	"github.com/relaymesh/collector/internal/source"
	"github.com/relaymesh/collector/internal/store"
)

// datapointOverfetch pads the sibling scan so the window around the current
// document is full even when the current document sorts near an edge.
const datapointOverfetch = 10

// Navigator answers navigate requests against the collection registry. Safe
// for concurrent use.
type Navigator struct {
	registry *store.Registry
	logger   *slog.Logger
}

// NewNavigator builds a navigator over the collection registry.
func NewNavigator(registry *store.Registry, logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Navigator{registry: registry, logger: logger}
}

// Navigate resolves the document and returns its relatives in the given
// direction and scope. An unknown id is not an error: the result carries a
// nil current document. Per-source store failures during resolution and
// sibling fetches are logged and treated as empty.
func (n *Navigator) Navigate(ctx context.Context, documentID string, direction Direction, scope Scope, limit int) (*Result, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, errors.MalformedInput("document id must not be empty")
	}
	if !direction.Valid() {
		return nil, errors.MalformedInput(fmt.Sprintf("unknown direction %q", direction))
	}
	if direction != Parent && direction != Children && !scope.Valid() {
		return nil, errors.MalformedInput(fmt.Sprintf("unknown scope %q", scope))
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	current, ds, ok := n.resolveCurrent(ctx, documentID)
	if !ok {
		return nullResult(), nil
	}

	var related []Doc
	switch direction {
	case Parent:
		related = n.parentOf(ctx, ds, current)
	case Children:
		related = n.childrenOf(ctx, ds, current, limit)
	default:
		switch scope {
		case ScopeChunk:
			related = n.chunkRelatives(ctx, ds, current, direction, limit)
		case ScopeDatapoint:
			related = n.datapointRelatives(ctx, ds, current, direction, limit)
		case ScopeContext:
			related = n.contextRelatives(ctx, ds, current, direction, limit)
		}
	}
	if related == nil {
		related = []Doc{}
	}

	nav := Navigation{
		HasPrev:       len(related) > 0 && (direction == Prev || direction == Siblings),
		HasNext:       len(related) > 0 && (direction == Next || direction == Siblings),
		ContextType:   ds.ContextType(current.Metadata),
		TotalSiblings: len(related),
	}
	if p := ds.ResolveParent(current.Metadata); p != "" {
		nav.ParentID = &p
	}

	return &Result{Current: current, Related: related, Navigation: nav}, nil
}

// resolveCurrent probes every source in declaration order for the id. The
// first hit wins.
func (n *Navigator) resolveCurrent(ctx context.Context, id string) (*Doc, source.DataSource, bool) {
	for _, ds := range source.All {
		coll, err := n.registry.Open(ctx, ds)
		if err != nil {
			n.logger.Warn("skipping source during navigation lookup",
				"source", ds, "error", err)
			continue
		}
		items, err := coll.Get(ctx, []string{id})
		if err != nil {
			n.logger.Warn("lookup failed for source",
				"source", ds, "error", err)
			continue
		}
		if len(items) > 0 {
			return toDoc(items[0], ds), ds, true
		}
	}
	return nil, "", false
}

func (n *Navigator) parentOf(ctx context.Context, ds source.DataSource, current *Doc) []Doc {
	parentID := ds.ResolveParent(current.Metadata)
	if parentID == "" {
		return nil
	}
	return n.fetchByIDs(ctx, ds, []string{parentID})
}

// childrenOf fetches items that point back at the current document, either
// through the logical parentId field or, for chunks, through parentDocId.
func (n *Navigator) childrenOf(ctx context.Context, ds source.DataSource, current *Doc, limit int) []Doc {
	logicalID := current.ID
	if ds != source.Slack && ds != source.GitHub {
		if id, _ := current.Metadata["id"].(string); id != "" {
			logicalID = id
		}
	}

	children := n.scan(ctx, ds, store.Where{store.Eq("parentId", logicalID)}, limit)
	chunks := n.scan(ctx, ds, store.Where{store.Eq(prepare.MetaParentDocID, current.ID)}, limit)
	children = append(children, chunks...)
	if len(children) > limit {
		children = children[:limit]
	}
	return children
}

// chunkRelatives walks between the chunks of one split document by index.
func (n *Navigator) chunkRelatives(ctx context.Context, ds source.DataSource, current *Doc, direction Direction, limit int) []Doc {
	parentDocID, _ := current.Metadata[prepare.MetaParentDocID].(string)
	index, hasIndex := numericMeta(current.Metadata[prepare.MetaChunkIndex])
	if parentDocID == "" || !hasIndex {
		return nil
	}

	switch direction {
	case Prev:
		if index <= 0 {
			return nil
		}
		return n.fetchByIDs(ctx, ds, []string{prepare.ChunkID(parentDocID, int(index)-1)})
	case Next:
		total, hasTotal := numericMeta(current.Metadata[prepare.MetaTotalChunks])
		if !hasTotal || index+1 >= total {
			return nil
		}
		return n.fetchByIDs(ctx, ds, []string{prepare.ChunkID(parentDocID, int(index)+1)})
	default:
		return n.siblingsByParentDoc(ctx, ds, current, parentDocID, limit)
	}
}

// datapointRelatives orders the documents sharing the current document's
// thread, issue, or folder by time and returns the window around it.
func (n *Navigator) datapointRelatives(ctx context.Context, ds source.DataSource, current *Doc, direction Direction, limit int) []Doc {
	where, ok := datapointWhere(ds, current.Metadata)
	if !ok {
		return nil
	}

	docs := n.scan(ctx, ds, where, limit+datapointOverfetch)
	sortByTimestamp(docs, ds.TimestampField())

	pos := -1
	for i, d := range docs {
		if d.ID == current.ID {
			pos = i
			break
		}
	}

	switch direction {
	case Prev:
		if pos <= 0 {
			return nil
		}
		start := pos - limit
		if start < 0 {
			start = 0
		}
		return docs[start:pos]
	case Next:
		if pos < 0 || pos+1 >= len(docs) {
			return nil
		}
		end := pos + 1 + limit
		if end > len(docs) {
			end = len(docs)
		}
		return docs[pos+1 : end]
	default:
		others := make([]Doc, 0, len(docs))
		for _, d := range docs {
			if d.ID == current.ID {
				continue
			}
			others = append(others, d)
			if len(others) == limit {
				break
			}
		}
		return others
	}
}

// contextRelatives fetches documents from the surrounding container. The
// siblings direction reuses the chunk-style parentDocId grouping; prev and
// next use the coarse per-source predicate.
func (n *Navigator) contextRelatives(ctx context.Context, ds source.DataSource, current *Doc, direction Direction, limit int) []Doc {
	if direction == Siblings {
		if parentDocID, _ := current.Metadata[prepare.MetaParentDocID].(string); parentDocID != "" {
			return n.siblingsByParentDoc(ctx, ds, current, parentDocID, limit)
		}
	}

	where, ok := contextWhere(ds, current.Metadata)
	if !ok {
		return nil
	}
	docs := n.scan(ctx, ds, where, limit+1)
	others := make([]Doc, 0, len(docs))
	for _, d := range docs {
		if d.ID == current.ID {
			continue
		}
		others = append(others, d)
		if len(others) == limit {
			break
		}
	}
	return others
}

func (n *Navigator) siblingsByParentDoc(ctx context.Context, ds source.DataSource, current *Doc, parentDocID string, limit int) []Doc {
	docs := n.scan(ctx, ds, store.Where{store.Eq(prepare.MetaParentDocID, parentDocID)}, limit+1)
	others := make([]Doc, 0, len(docs))
	for _, d := range docs {
		if d.ID == current.ID {
			continue
		}
		others = append(others, d)
		if len(others) == limit {
			break
		}
	}
	return others
}

func (n *Navigator) fetchByIDs(ctx context.Context, ds source.DataSource, ids []string) []Doc {
	coll, err := n.registry.Open(ctx, ds)
	if err != nil {
		n.logger.Warn("skipping source during navigation fetch",
			"source", ds, "error", err)
		return nil
	}
	items, err := coll.Get(ctx, ids)
	if err != nil {
		n.logger.Warn("navigation fetch failed",
			"source", ds, "error", err)
		return nil
	}
	docs := make([]Doc, 0, len(items))
	for _, item := range items {
		docs = append(docs, *toDoc(item, ds))
	}
	return docs
}

func (n *Navigator) scan(ctx context.Context, ds source.DataSource, where store.Where, limit int) []Doc {
	coll, err := n.registry.Open(ctx, ds)
	if err != nil {
		n.logger.Warn("skipping source during navigation scan",
			"source", ds, "error", err)
		return nil
	}
	items, err := coll.Scan(ctx, where, nil, limit)
	if err != nil {
		n.logger.Warn("navigation scan failed",
			"source", ds, "error", err)
		return nil
	}
	docs := make([]Doc, 0, len(items))
	for _, item := range items {
		docs = append(docs, *toDoc(item, ds))
	}
	return docs
}

func toDoc(item store.Item, ds source.DataSource) *Doc {
	return &Doc{
		ID:       item.ID,
		Content:  item.Content,
		Metadata: item.Metadata,
		Source:   ds,
	}
}

// sortByTimestamp orders docs ascending by the named metadata field.
// Numeric values compare numerically, parseable timestamp strings by their
// epoch, everything else lexically. Docs without the field sort first.
func sortByTimestamp(docs []Doc, field string) {
	sort.SliceStable(docs, func(i, j int) bool {
		return timestampLess(docs[i].Metadata[field], docs[j].Metadata[field])
	})
}

func timestampLess(a, b any) bool {
	av, aok := timestampValue(a)
	bv, bok := timestampValue(b)
	if aok && bok {
		return av < bv
	}
	if aok != bok {
		return !aok
	}
	as, _ := a.(string)
	bs, _ := b.(string)
	return as < bs
}

// timestampValue coerces a metadata timestamp to epoch milliseconds.
func timestampValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		if parsed, ok := prepare.ParseTimestamp(t); ok {
			return float64(parsed.UnixMilli()), true
		}
	}
	return 0, false
}

func numericMeta(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
