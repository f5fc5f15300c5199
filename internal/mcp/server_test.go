package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymesh/collector/internal/collector"
	"github.com/relaymesh/collector/internal/embed"
	cerrors "github.com/relaymesh/collector/internal/errors"
	"github.com/relaymesh/collector/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc := collector.New(store.NewChromemStore(), embed.NewStaticEmbedder())
	srv, err := NewServer(svc, nil)
	require.NoError(t, err)
	return srv
}

func TestNewServerRequiresService(t *testing.T) {
	_, err := NewServer(nil, nil)
	assert.Error(t, err)
}

func TestUpsertSearchGetDeleteRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, up, err := srv.handleUpsert(ctx, nil, UpsertInput{
		Source: "jira",
		Documents: []DocumentInput{{
			ID:       "jira-1",
			Content:  "Fix the flaky deploy pipeline",
			Metadata: map[string]any{"title": "Deploy bug"},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, up.Indexed)

	_, got, err := srv.handleGetDocument(ctx, nil, GetDocumentInput{Source: "jira", ID: "jira-1"})
	require.NoError(t, err)
	require.True(t, got.Found)
	assert.Equal(t, "Fix the flaky deploy pipeline", got.Document.Content)

	_, page, err := srv.handleSearch(ctx, nil, SearchInput{
		Query:      "deploy",
		Sources:    []string{"jira"},
		SearchType: "keyword",
	})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "jira-1", page.Results[0].ID)

	_, del, err := srv.handleDelete(ctx, nil, DeleteInput{Source: "jira", ID: "jira-1"})
	require.NoError(t, err)
	assert.True(t, del.Deleted)

	_, got, err = srv.handleGetDocument(ctx, nil, GetDocumentInput{Source: "jira", ID: "jira-1"})
	require.NoError(t, err)
	assert.False(t, got.Found)
}

func TestNavigateTool(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, _, err := srv.handleUpsert(ctx, nil, UpsertInput{
		Source: "drive",
		Documents: []DocumentInput{{
			ID:      "doc1",
			Content: "ignored",
			Chunks:  []string{"part one", "part two"},
		}},
	})
	require.NoError(t, err)

	_, nav, err := srv.handleNavigate(ctx, nil, NavigateInput{
		DocumentID: "doc1_chunk_0",
		Direction:  "next",
		Scope:      "chunk",
	})
	require.NoError(t, err)
	require.NotNil(t, nav.Current)
	require.Len(t, nav.Related, 1)
	assert.Equal(t, "doc1_chunk_1", nav.Related[0].ID)
	assert.True(t, nav.Navigation.HasNext)
}

func TestStatusTool(t *testing.T) {
	srv := newTestServer(t)

	_, st, err := srv.handleStatus(context.Background(), nil, StatusInput{})
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.True(t, st.EmbedderReady)
	assert.Zero(t, st.TotalDocuments)
}

func TestToolInputValidation(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, _, err := srv.handleSearch(ctx, nil, SearchInput{Query: "q", Sources: []string{"intranet"}})
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)

	_, _, err = srv.handleSearch(ctx, nil, SearchInput{Query: "   "})
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)

	_, _, err = srv.handleUpsert(ctx, nil, UpsertInput{Source: "nowhere"})
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"nil", nil, 0},
		{"validation", cerrors.MalformedInput("bad id"), ErrCodeInvalidParams},
		{"embedding", cerrors.EmbeddingFailed("provider down", nil), ErrCodeEmbeddingFailed},
		{"store", cerrors.StoreUnavailable("locked", nil), ErrCodeStoreUnavailable},
		{"partial", cerrors.PartialBatch(1, 3, nil), ErrCodePartialBatch},
		{"timeout", context.DeadlineExceeded, ErrCodeTimeout},
		{"unknown", assert.AnError, ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapError(tt.err)
			if tt.err == nil {
				assert.Nil(t, mapped)
				return
			}
			require.NotNil(t, mapped)
			assert.Equal(t, tt.code, mapped.Code)
		})
	}
}
