package navigate

import (
	"strings"

	"github.com/relaymesh/collector/internal/source"
	"github.com/relaymesh/collector/internal/store"
)

// datapointWhere builds the predicate selecting the current document's
// immediate sibling group: same thread, same issue, same folder. Returns
// false when the metadata carries nothing to group on.
func datapointWhere(ds source.DataSource, meta map[string]any) (store.Where, bool) {
	switch ds {
	case source.Slack:
		if v, ok := metaString(meta, "threadTs"); ok {
			return store.Where{store.Eq("threadTs", v)}, true
		}
		if v, ok := metaString(meta, "channelId"); ok {
			return store.Where{store.Eq("channelId", v)}, true
		}
	case source.Gmail:
		if v, ok := metaString(meta, "threadId"); ok {
			return store.Where{store.Eq("threadId", v)}, true
		}
	case source.Jira:
		if v, ok := metaString(meta, "parentId"); ok {
			return store.Where{store.Eq("parentId", v)}, true
		}
		if v, ok := metaString(meta, "project"); ok {
			return store.Where{store.Eq("project", v)}, true
		}
	case source.Drive:
		if v, ok := driveFolder(meta); ok {
			return store.Where{store.Eq("folderPath", v)}, true
		}
	case source.Confluence:
		if v, ok := metaString(meta, "parentId"); ok {
			return store.Where{store.Eq("parentId", v)}, true
		}
		if v, ok := metaString(meta, "space"); ok {
			return store.Where{store.Eq("space", v)}, true
		}
	case source.Calendar:
		return store.Where{store.Eq("source", "calendar")}, true
	case source.GitHub:
		if v, ok := metaString(meta, "parentId"); ok {
			return store.Where{store.Eq("parentId", v)}, true
		}
		if v, ok := metaString(meta, "repo"); ok {
			return store.Where{store.Eq("repo", v)}, true
		}
	}
	return nil, false
}

// contextWhere builds the predicate one container level up: channel,
// thread, project, folder, space, repository. Calendar has no such
// container and returns false.
func contextWhere(ds source.DataSource, meta map[string]any) (store.Where, bool) {
	switch ds {
	case source.Slack:
		if v, ok := metaString(meta, "channelId"); ok {
			return store.Where{store.Eq("channelId", v)}, true
		}
	case source.Gmail:
		if v, ok := metaString(meta, "threadId"); ok {
			return store.Where{store.Eq("threadId", v)}, true
		}
	case source.Jira:
		if v, ok := metaString(meta, "project"); ok {
			return store.Where{store.Eq("project", v)}, true
		}
	case source.Drive:
		if v, ok := driveFolder(meta); ok {
			return store.Where{store.Eq("folderPath", v)}, true
		}
	case source.Confluence:
		if v, ok := metaString(meta, "space"); ok {
			return store.Where{store.Eq("space", v)}, true
		}
	case source.GitHub:
		if v, ok := metaString(meta, "repo"); ok {
			return store.Where{store.Eq("repo", v)}, true
		}
	case source.Calendar:
		return nil, false
	}
	return nil, false
}

// driveFolder prefers an explicit folderPath and falls back to the folder
// component of the file path.
func driveFolder(meta map[string]any) (string, bool) {
	if v, ok := metaString(meta, "folderPath"); ok {
		return v, true
	}
	if p, ok := metaString(meta, "path"); ok {
		if i := strings.LastIndex(p, "/"); i >= 0 {
			return p[:i], true
		}
	}
	return "", false
}

func metaString(meta map[string]any, key string) (string, bool) {
	v, _ := meta[key].(string)
	return v, v != ""
}
