// Package source defines the closed set of upstream data sources and the
// per-source conventions (collection names, timestamp fields, recency
// half-lives, context types) the rest of the engine dispatches on.
package source

import (
	"fmt"
	"strings"
)

// DataSource identifies one of the seven upstream systems documents are
// harvested from. The set is closed: adding a source is a coordinated change
// across every table in this package plus the navigator's predicate tables.
type DataSource string

const (
	Jira       DataSource = "jira"
	Slack      DataSource = "slack"
	Gmail      DataSource = "gmail"
	Drive      DataSource = "drive"
	Confluence DataSource = "confluence"
	Calendar   DataSource = "calendar"
	GitHub     DataSource = "github"
)

// All lists every source in declaration order. Navigation probes sources in
// this order, so it must stay stable.
var All = []DataSource{Jira, Slack, Gmail, Drive, Confluence, Calendar, GitHub}

// collectionPrefix is prepended to the source name to form the collection
// name inside the vector store.
const collectionPrefix = "collector_"

// Parse validates a raw source string.
func Parse(s string) (DataSource, error) {
	ds := DataSource(strings.ToLower(strings.TrimSpace(s)))
	if !ds.Valid() {
		return "", fmt.Errorf("unknown data source %q", s)
	}
	return ds, nil
}

// Valid reports whether ds is one of the seven known sources.
func (ds DataSource) Valid() bool {
	switch ds {
	case Jira, Slack, Gmail, Drive, Confluence, Calendar, GitHub:
		return true
	}
	return false
}

func (ds DataSource) String() string {
	return string(ds)
}

// Collection returns the name of the store collection owned by this source.
func (ds DataSource) Collection() string {
	return collectionPrefix + string(ds)
}

// recencyHalfLifeDays maps each source to the number of days after which a
// document's recency contribution halves. Chat decays fastest, file and wiki
// archives slowest.
var recencyHalfLifeDays = map[DataSource]float64{
	Slack:      7,
	Calendar:   14,
	Gmail:      14,
	Jira:       30,
	GitHub:     60,
	Confluence: 90,
	Drive:      90,
}

// RecencyHalfLifeDays returns the recency half-life for ds in days.
func (ds DataSource) RecencyHalfLifeDays() float64 {
	if h, ok := recencyHalfLifeDays[ds]; ok {
		return h
	}
	return 30
}

// timestampField maps each source to the metadata field that carries its
// primary event time, used to order datapoint siblings.
var timestampField = map[DataSource]string{
	Slack:    "timestamp",
	Gmail:    "date",
	Calendar: "start",
}

// TimestampField returns the metadata field used to time-order items of this
// source. Sources without a native event field fall back to updatedAt.
func (ds DataSource) TimestampField() string {
	if f, ok := timestampField[ds]; ok {
		return f
	}
	return "updatedAt"
}

// ContextType labels the immediate container of a document for the
// source-specific hierarchy (thread, project, folder, ...).
func (ds DataSource) ContextType(meta map[string]any) string {
	switch ds {
	case Slack:
		if _, ok := meta["threadTs"]; ok {
			return "thread"
		}
		return "channel"
	case Gmail:
		return "thread"
	case Jira:
		if t, _ := meta["type"].(string); t == "comment" {
			return "issue"
		}
		return "project"
	case Drive:
		return "folder"
	case Confluence:
		if t, _ := meta["type"].(string); t == "comment" {
			return "page"
		}
		return "space"
	case Calendar:
		return "calendar"
	case GitHub:
		if t, _ := meta["type"].(string); t == "pr_comment" || t == "pr_review" {
			return "pull_request"
		}
		return "repository"
	}
	return "unknown"
}

// ResolveParent extracts the stored id of a document's parent from its
// metadata. Returns "" when the document has no parent. Confluence comments
// reference their page by raw id; the stored page id carries a
// "confluence_" prefix.
func (ds DataSource) ResolveParent(meta map[string]any) string {
	raw, _ := meta["parentId"].(string)
	if raw == "" {
		raw, _ = meta["parentDocId"].(string)
	}
	if raw == "" {
		return ""
	}
	if ds == Confluence {
		if t, _ := meta["type"].(string); t == "comment" {
			return "confluence_" + raw
		}
	}
	return raw
}
