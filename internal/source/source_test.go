package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	ds, err := Parse(" Jira ")
	require.NoError(t, err)
	assert.Equal(t, Jira, ds)

	_, err = Parse("notion")
	assert.Error(t, err)
}

func TestCollectionNames(t *testing.T) {
	assert.Equal(t, "collector_slack", Slack.Collection())
	assert.Equal(t, "collector_github", GitHub.Collection())
}

func TestAllCoversEverySource(t *testing.T) {
	assert.Len(t, All, 7)
	for _, ds := range All {
		assert.True(t, ds.Valid(), ds)
	}
}

func TestRecencyHalfLives(t *testing.T) {
	tests := []struct {
		ds   DataSource
		days float64
	}{
		{Slack, 7},
		{Calendar, 14},
		{Gmail, 14},
		{Jira, 30},
		{GitHub, 60},
		{Confluence, 90},
		{Drive, 90},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.days, tt.ds.RecencyHalfLifeDays(), tt.ds)
	}
}

func TestTimestampFields(t *testing.T) {
	assert.Equal(t, "timestamp", Slack.TimestampField())
	assert.Equal(t, "date", Gmail.TimestampField())
	assert.Equal(t, "start", Calendar.TimestampField())
	assert.Equal(t, "updatedAt", Jira.TimestampField())
	assert.Equal(t, "updatedAt", Drive.TimestampField())
}

func TestContextType(t *testing.T) {
	tests := []struct {
		name string
		ds   DataSource
		meta map[string]any
		want string
	}{
		{"slack thread", Slack, map[string]any{"threadTs": "123.456"}, "thread"},
		{"slack channel", Slack, map[string]any{"channelId": "C1"}, "channel"},
		{"gmail", Gmail, map[string]any{}, "thread"},
		{"jira comment", Jira, map[string]any{"type": "comment"}, "issue"},
		{"jira issue", Jira, map[string]any{"type": "issue"}, "project"},
		{"drive", Drive, map[string]any{}, "folder"},
		{"confluence comment", Confluence, map[string]any{"type": "comment"}, "page"},
		{"confluence page", Confluence, map[string]any{"type": "page"}, "space"},
		{"calendar", Calendar, map[string]any{}, "calendar"},
		{"github pr comment", GitHub, map[string]any{"type": "pr_comment"}, "pull_request"},
		{"github pr review", GitHub, map[string]any{"type": "pr_review"}, "pull_request"},
		{"github pr", GitHub, map[string]any{"type": "pr"}, "repository"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ds.ContextType(tt.meta))
		})
	}
}

func TestResolveParent(t *testing.T) {
	assert.Equal(t, "PROJ-12", Jira.ResolveParent(map[string]any{"parentId": "PROJ-12"}))
	assert.Equal(t, "", Jira.ResolveParent(map[string]any{}))

	// Confluence comments reference pages by raw id; the stored page id is
	// prefixed.
	assert.Equal(t, "confluence_98765",
		Confluence.ResolveParent(map[string]any{"type": "comment", "parentId": "98765"}))
	assert.Equal(t, "confluence_root",
		Confluence.ResolveParent(map[string]any{"type": "page", "parentId": "confluence_root"}))
}
