package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhereMatchesEquality(t *testing.T) {
	meta := map[string]any{
		"source":  "jira",
		"starred": true,
		"count":   float64(3),
	}

	assert.True(t, Where{Eq("source", "jira")}.Matches(meta))
	assert.False(t, Where{Eq("source", "slack")}.Matches(meta))
	assert.True(t, Where{Eq("starred", true)}.Matches(meta))
	assert.False(t, Where{Eq("missing", "x")}.Matches(meta))

	// Numeric coercion: an int query value matches a float64 stored value.
	assert.True(t, Where{Eq("count", 3)}.Matches(meta))
	assert.True(t, Where{Eq("count", int64(3))}.Matches(meta))
	assert.False(t, Where{Eq("count", "3")}.Matches(meta))
}

func TestWhereMatchesRange(t *testing.T) {
	meta := map[string]any{"createdAtTs": float64(1704067200000)}

	assert.True(t, Where{Gte("createdAtTs", float64(1704067200000))}.Matches(meta))
	assert.True(t, Where{Gte("createdAtTs", 1704067199999)}.Matches(meta))
	assert.False(t, Where{Gte("createdAtTs", float64(1704067200001))}.Matches(meta))
	assert.True(t, Where{Lte("createdAtTs", float64(1704067200000))}.Matches(meta))
	assert.False(t, Where{Lte("createdAtTs", float64(1704067199999))}.Matches(meta))
}

func TestWhereConjunction(t *testing.T) {
	meta := map[string]any{"source": "gmail", "threadId": "t-9"}

	assert.True(t, Where{Eq("source", "gmail"), Eq("threadId", "t-9")}.Matches(meta))
	assert.False(t, Where{Eq("source", "gmail"), Eq("threadId", "t-10")}.Matches(meta))
	assert.True(t, Where{}.Matches(meta))
	assert.True(t, Where(nil).Matches(meta))
}

func TestDocFilterCaseInsensitiveAnd(t *testing.T) {
	content := "Deploy checklist for the Payments service"

	assert.True(t, (&DocFilter{Contains: []string{"payments"}}).MatchesContent(content))
	assert.True(t, (&DocFilter{Contains: []string{"DEPLOY", "checklist"}}).MatchesContent(content))
	assert.False(t, (&DocFilter{Contains: []string{"deploy", "rollback"}}).MatchesContent(content))
	assert.True(t, (*DocFilter)(nil).MatchesContent(content))
	assert.True(t, (&DocFilter{}).MatchesContent(content))
}
