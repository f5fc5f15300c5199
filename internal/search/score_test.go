package search

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymesh/collector/internal/source"
)

func TestKeywordScoreExactSingleTerm(t *testing.T) {
	// One term, one occurrence, short document: coverage 1, normTF 1/3,
	// lengthFactor 1.
	score := KeywordScore([]string{"deploy"}, "the deploy finished cleanly")
	assert.InDelta(t, 0.8, score, 1e-9)
}

func TestKeywordScoreNoMatch(t *testing.T) {
	assert.Zero(t, KeywordScore([]string{"kubernetes"}, "nothing relevant here"))
	assert.Zero(t, KeywordScore(nil, "content"))
}

func TestKeywordScorePartialCoverage(t *testing.T) {
	full := KeywordScore([]string{"alpha", "beta"}, "alpha and beta together")
	half := KeywordScore([]string{"alpha", "missing"}, "alpha and beta together")
	assert.Greater(t, full, half)
	assert.Greater(t, half, 0.0)
}

func TestKeywordScoreLongDocumentPenalized(t *testing.T) {
	short := "release notes for the search service"
	long := short + string(make([]byte, 40000))
	assert.Greater(t,
		KeywordScore([]string{"release"}, short),
		KeywordScore([]string{"release"}, long))
}

func TestKeywordScoreClamped(t *testing.T) {
	content := ""
	for i := 0; i < 500; i++ {
		content += "term "
	}
	score := KeywordScore([]string{"term"}, content)
	assert.LessOrEqual(t, score, 1.0)
}

func TestVectorScore(t *testing.T) {
	assert.InDelta(t, 0.8, VectorScore(0.2), 1e-6)
	assert.InDelta(t, 0.5, VectorScore(0.5), 1e-6)
	assert.Zero(t, VectorScore(1.5))
}

func TestCoalesceCollapsesChunkGroup(t *testing.T) {
	results := []Result{
		{ID: "p_chunk_0", Score: 0.8, Source: source.Drive,
			Metadata: map[string]any{"parentDocId": "p"}},
		{ID: "p_chunk_1", Score: 0.7, Source: source.Drive,
			Metadata: map[string]any{"parentDocId": "p"}},
		{ID: "p_chunk_2", Score: 0.6, Source: source.Drive,
			Metadata: map[string]any{"parentDocId": "p"}},
	}

	out := coalesce(results)
	require.Len(t, out, 1)
	assert.Equal(t, "p_chunk_0", out[0].ID)
	want := 0.8 * (1 + math.Log(3)*0.05)
	assert.InDelta(t, want, out[0].Score, 1e-9)
}

func TestCoalesceBoostCapped(t *testing.T) {
	var results []Result
	for i := 0; i < 50; i++ {
		results = append(results, Result{
			ID: "p_chunk_" + string(rune('a'+i)), Score: 0.5, Source: source.Drive,
			Metadata: map[string]any{"parentDocId": "p"},
		})
	}
	out := coalesce(results)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.5*1.15, out[0].Score, 1e-9)
}

func TestCoalesceSingletonsPassThrough(t *testing.T) {
	results := []Result{
		{ID: "a", Score: 0.9, Source: source.Jira, Metadata: map[string]any{}},
		{ID: "b", Score: 0.4, Source: source.Slack, Metadata: map[string]any{}},
	}
	out := coalesce(results)
	require.Len(t, out, 2)
	assert.InDelta(t, 0.9, out[0].Score, 1e-9)
	assert.InDelta(t, 0.4, out[1].Score, 1e-9)
}

func TestCoalesceKeepsSourcesApart(t *testing.T) {
	// The same parent id in two sources must not merge.
	results := []Result{
		{ID: "p_chunk_0", Score: 0.8, Source: source.Drive,
			Metadata: map[string]any{"parentDocId": "p"}},
		{ID: "p_chunk_0", Score: 0.7, Source: source.Confluence,
			Metadata: map[string]any{"parentDocId": "p"}},
	}
	assert.Len(t, coalesce(results), 2)
}

func TestRelevanceBlend(t *testing.T) {
	assert.Equal(t, 1.0, relevanceBlend(map[string]any{}))
	assert.Equal(t, 1.0, relevanceBlend(map[string]any{"relevance_score": "high"}))
	assert.Equal(t, 1.0, relevanceBlend(map[string]any{"relevance_score": 1.5}))
	assert.InDelta(t, 0.85, relevanceBlend(map[string]any{"relevance_score": 0.0}), 1e-9)
	assert.InDelta(t, 1.2, relevanceBlend(map[string]any{"relevance_score": 1.0}), 1e-9)
	assert.InDelta(t, 1.025, relevanceBlend(map[string]any{"relevance_score": 0.5}), 1e-9)
}

func TestTitleBoost(t *testing.T) {
	tests := []struct {
		name  string
		meta  map[string]any
		query string
		want  float64
	}{
		{"no title", map[string]any{}, "deploy", 1},
		{"exact match", map[string]any{"title": "Deploy Runbook"}, "deploy runbook", 1.3},
		{"partial match", map[string]any{"title": "Deploy Runbook"}, "deploy schedule", 1.1},
		{"all tokens", map[string]any{"title": "Deploy Runbook Guide"}, "deploy runbook", 1.2},
		{"no overlap", map[string]any{"title": "Quarterly Review"}, "deploy", 1},
		{"subject fallback", map[string]any{"subject": "deploy status"}, "deploy status", 1.3},
		{"title wins over subject", map[string]any{"title": "Other", "subject": "deploy"}, "deploy", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, titleBoost(tt.meta, tt.query), 1e-9)
		})
	}
}

func TestRecencyBoost(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	fresh := recencyBoost(7, map[string]any{
		"updatedAt": now.Format(time.RFC3339),
	}, now)
	assert.InDelta(t, 1.08, fresh, 1e-9)

	// One half-life old: boost halves.
	weekOld := recencyBoost(7, map[string]any{
		"updatedAt": now.AddDate(0, 0, -7).Format(time.RFC3339),
	}, now)
	assert.InDelta(t, 1.04, weekOld, 1e-6)

	// Future timestamps clamp to zero age.
	future := recencyBoost(7, map[string]any{
		"updatedAt": now.AddDate(0, 0, 3).Format(time.RFC3339),
	}, now)
	assert.InDelta(t, 1.08, future, 1e-9)

	// Missing or unparseable timestamps leave the score alone.
	assert.Equal(t, 1.0, recencyBoost(7, map[string]any{}, now))
	assert.Equal(t, 1.0, recencyBoost(7, map[string]any{"updatedAt": "recently"}, now))
}

func TestApplyBoostsClampsToOne(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r := Result{
		ID: "a", Score: 0.99, Source: source.Slack,
		Metadata: map[string]any{
			"title":           "deploy",
			"relevance_score": 1.0,
			"updatedAt":       now.Format(time.RFC3339),
		},
	}
	applyBoosts(&r, "deploy", now)
	assert.Equal(t, 1.0, r.Score)
}

func TestSortResultsDeterministicTies(t *testing.T) {
	results := []Result{
		{ID: "b", Score: 0.5},
		{ID: "a", Score: 0.5},
		{ID: "c", Score: 0.9},
	}
	sortResults(results)
	assert.Equal(t, "c", results[0].ID)
	assert.Equal(t, "a", results[1].ID)
	assert.Equal(t, "b", results[2].ID)
}

func TestPaginate(t *testing.T) {
	results := []Result{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	assert.Len(t, paginate(results, 2, 0), 2)
	assert.Equal(t, "c", paginate(results, 2, 2)[0].ID)
	assert.Empty(t, paginate(results, 10, 5))
}
