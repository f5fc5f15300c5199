package collector

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymesh/collector/internal/embed"
	"github.com/relaymesh/collector/internal/errors"
	"github.com/relaymesh/collector/internal/navigate"
	"github.com/relaymesh/collector/internal/prepare"
	"github.com/relaymesh/collector/internal/search"
	"github.com/relaymesh/collector/internal/source"
	"github.com/relaymesh/collector/internal/store"
)

// recordingStore wraps a store and counts content writes and metadata
// updates per collection.
type recordingStore struct {
	store.Store

	mu          sync.Mutex
	upsertCalls int
	upsertItems int
	metaUpdates int
	failUpserts bool
}

func (r *recordingStore) OpenCollection(ctx context.Context, name string) (store.Collection, error) {
	coll, err := r.Store.OpenCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	return &recordingCollection{Collection: coll, parent: r}, nil
}

type recordingCollection struct {
	store.Collection
	parent *recordingStore
}

func (c *recordingCollection) Upsert(ctx context.Context, items []store.Item) error {
	c.parent.mu.Lock()
	c.parent.upsertCalls++
	c.parent.upsertItems += len(items)
	fail := c.parent.failUpserts && c.parent.upsertCalls > 1
	c.parent.mu.Unlock()
	if fail {
		return fmt.Errorf("simulated write failure")
	}
	return c.Collection.Upsert(ctx, items)
}

func (c *recordingCollection) UpdateMetadata(ctx context.Context, id string, metadata map[string]any) error {
	c.parent.mu.Lock()
	c.parent.metaUpdates++
	c.parent.mu.Unlock()
	return c.Collection.UpdateMetadata(ctx, id, metadata)
}

func newTestService(t *testing.T, opts ...Option) (*Service, *recordingStore) {
	t.Helper()
	rec := &recordingStore{Store: store.NewChromemStore()}
	svc := New(rec, embed.NewStaticEmbedder(), opts...)
	return svc, rec
}

func TestUpsertSingleChunkDocument(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.UpsertDocuments(ctx, source.Jira, []prepare.Document{{
		ID:      "jira-1",
		Content: "Short issue",
		Metadata: map[string]any{
			"title":     "Bug",
			"createdAt": "2024-01-15T10:00:00Z",
		},
	}})
	require.NoError(t, err)

	got, err := svc.GetDocument(ctx, source.Jira, "jira-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Short issue", got.Content)
	assert.Equal(t, 1.0, got.Score)
	assert.Equal(t, "Bug", got.Metadata["title"])
	assert.Equal(t, float64(1705312800000), got.Metadata["createdAtTs"])
	assert.Equal(t, prepare.ContentHash("Short issue"), got.Metadata[prepare.MetaContentHash])
}

func TestUpsertLongDocumentStoresChunks(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	long := strings.Repeat("Deployment history entry. ", 400) // ~10k chars
	err := svc.UpsertDocuments(ctx, source.Drive, []prepare.Document{{
		ID:       "doc-long",
		Content:  long,
		Metadata: map[string]any{"title": "History"},
	}})
	require.NoError(t, err)

	// The logical id itself is not stored.
	got, err := svc.GetDocument(ctx, source.Drive, "doc-long")
	require.NoError(t, err)
	assert.Nil(t, got)

	chunks, err := svc.GetDocumentsByMetadata(ctx, source.Drive,
		map[string]any{"parentDocId": "doc-long"}, 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)
	for _, c := range chunks {
		assert.True(t, prepare.IsChunkID(c.ID))
		assert.Equal(t, 1.0, c.Score)
	}
}

func TestUpsertUnchangedContentIsMetadataOnly(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	doc := prepare.Document{
		ID:       "jira-7",
		Content:  "stable content",
		Metadata: map[string]any{"status": "open"},
	}
	require.NoError(t, svc.UpsertDocuments(ctx, source.Jira, []prepare.Document{doc}))
	firstUpserts := rec.upsertItems

	doc.Metadata = map[string]any{"status": "closed"}
	require.NoError(t, svc.UpsertDocuments(ctx, source.Jira, []prepare.Document{doc}))

	assert.Equal(t, firstUpserts, rec.upsertItems, "unchanged content must not rewrite items")
	assert.Equal(t, 1, rec.metaUpdates)

	got, err := svc.GetDocument(ctx, source.Jira, "jira-7")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "closed", got.Metadata["status"])
	assert.Equal(t, "stable content", got.Content)
}

func TestUpsertContentChangeSweepsStaleChunks(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpsertDocuments(ctx, source.Drive, []prepare.Document{{
		ID:      "doc-x",
		Content: "long original",
		Chunks:  []string{"chunk a", "chunk b", "chunk c"},
	}}))

	chunks, err := svc.GetDocumentsByMetadata(ctx, source.Drive,
		map[string]any{"parentDocId": "doc-x"}, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	// Shrinks to a single unchunked item: all chunk ids are stale.
	require.NoError(t, svc.UpsertDocuments(ctx, source.Drive, []prepare.Document{{
		ID:      "doc-x",
		Content: "now short",
	}}))

	chunks, err = svc.GetDocumentsByMetadata(ctx, source.Drive,
		map[string]any{"parentDocId": "doc-x"}, 0)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	got, err := svc.GetDocument(ctx, source.Drive, "doc-x")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "now short", got.Content)
}

func TestUpsertIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	doc := prepare.Document{ID: "gmail-1", Content: "same twice",
		Metadata: map[string]any{"subject": "hello"}}
	require.NoError(t, svc.UpsertDocuments(ctx, source.Gmail, []prepare.Document{doc}))
	first, err := svc.GetDocument(ctx, source.Gmail, "gmail-1")
	require.NoError(t, err)

	require.NoError(t, svc.UpsertDocuments(ctx, source.Gmail, []prepare.Document{doc}))
	second, err := svc.GetDocument(ctx, source.Gmail, "gmail-1")
	require.NoError(t, err)

	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, first.Metadata, second.Metadata)
}

func TestUpsertEmptyBatchIsNoop(t *testing.T) {
	svc, rec := newTestService(t)
	require.NoError(t, svc.UpsertDocuments(context.Background(), source.Jira, nil))
	assert.Zero(t, rec.upsertCalls)
}

func TestUpsertValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.UpsertDocuments(ctx, "mystery", []prepare.Document{{ID: "a", Content: "x"}})
	assert.Equal(t, errors.ErrCodeMalformedInput, errors.GetCode(err))

	err = svc.UpsertDocuments(ctx, source.Jira, []prepare.Document{{ID: "  ", Content: "x"}})
	assert.Equal(t, errors.ErrCodeMalformedInput, errors.GetCode(err))

	err = svc.UpsertDocuments(ctx, source.Jira, []prepare.Document{{ID: "doc_chunk_0", Content: "x"}})
	assert.Equal(t, errors.ErrCodeMalformedInput, errors.GetCode(err))
}

func TestUpsertPartialBatchFailure(t *testing.T) {
	svc, rec := newTestService(t, WithBatchSize(1))
	rec.failUpserts = true
	ctx := context.Background()

	err := svc.UpsertDocuments(ctx, source.Jira, []prepare.Document{
		{ID: "jira-1", Content: "first"},
		{ID: "jira-2", Content: "second"},
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodePartialBatch, errors.GetCode(err))

	// The first batch landed and stays.
	got, err := svc.GetDocument(ctx, source.Jira, "jira-1")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestDeleteDocumentSweepsChunks(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpsertDocuments(ctx, source.Confluence, []prepare.Document{{
		ID:      "confluence_9",
		Content: "page",
		Chunks:  []string{"part a", "part b"},
	}}))

	require.NoError(t, svc.DeleteDocument(ctx, source.Confluence, "confluence_9"))

	got, err := svc.GetDocument(ctx, source.Confluence, "confluence_9")
	require.NoError(t, err)
	assert.Nil(t, got)
	chunks, err := svc.GetDocumentsByMetadata(ctx, source.Confluence,
		map[string]any{"parentDocId": "confluence_9"}, 0)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	// Deleting again is not an error.
	assert.NoError(t, svc.DeleteDocument(ctx, source.Confluence, "confluence_9"))
}

func TestDeleteCollection(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpsertDocuments(ctx, source.Slack, []prepare.Document{
		{ID: "slack_1", Content: "a"}, {ID: "slack_2", Content: "b"},
	}))
	require.NoError(t, svc.DeleteCollection(ctx, source.Slack))

	st, err := svc.Status(ctx)
	require.NoError(t, err)
	for _, src := range st.Sources {
		if src.Source == source.Slack {
			assert.Zero(t, src.Count)
		}
	}
}

func TestStatusCounts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpsertDocuments(ctx, source.Jira, []prepare.Document{
		{ID: "jira-1", Content: "a"}, {ID: "jira-2", Content: "b"},
	}))
	require.NoError(t, svc.UpsertDocuments(ctx, source.Slack, []prepare.Document{
		{ID: "slack_1", Content: "c"},
	}))

	st, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalDocuments)
	assert.Len(t, st.Sources, len(source.All))
	assert.True(t, st.EmbedderReady)
	assert.NotEmpty(t, st.EmbeddingModel)
}

func TestSearchAndNavigateDelegation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpsertDocuments(ctx, source.Jira, []prepare.Document{
		{ID: "jira-1", Content: "database migration checklist"},
	}))

	page, err := svc.Search(ctx, "migration", search.Options{Type: search.TypeKeyword})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "jira-1", page.Results[0].ID)

	res, err := svc.Navigate(ctx, "jira-1", navigate.Parent, "", 0)
	require.NoError(t, err)
	require.NotNil(t, res.Current)
	assert.Equal(t, "jira-1", res.Current.ID)
}
