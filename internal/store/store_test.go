package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDims = 4

// backends builds one store of each backend for the shared conformance
// tests. Cleanup closes them.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	local, err := NewLocalStore(t.TempDir(), testDims)
	require.NoError(t, err)
	t.Cleanup(func() { _ = local.Close() })

	chromem := NewChromemStore()
	t.Cleanup(func() { _ = chromem.Close() })

	return map[string]Store{"local": local, "chromem": chromem}
}

func vec(vals ...float32) []float32 {
	v := make([]float32, testDims)
	copy(v, vals)
	return v
}

func testItems() []Item {
	return []Item{
		{
			ID:        "doc-a",
			Content:   "Payments outage postmortem",
			Metadata:  map[string]any{"source": "confluence", "createdAtTs": float64(1000)},
			Embedding: vec(1, 0, 0, 0),
		},
		{
			ID:        "doc-b",
			Content:   "Payments oncall handbook",
			Metadata:  map[string]any{"source": "confluence", "createdAtTs": float64(2000)},
			Embedding: vec(0.9, 0.1, 0, 0),
		},
		{
			ID:        "doc-c",
			Content:   "Holiday party planning",
			Metadata:  map[string]any{"source": "drive", "createdAtTs": float64(3000)},
			Embedding: vec(0, 0, 1, 0),
		},
	}
}

func TestCollectionRoundTrip(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			coll, err := s.OpenCollection(ctx, "collector_test")
			require.NoError(t, err)

			require.NoError(t, coll.Upsert(ctx, testItems()))

			n, err := coll.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			got, err := coll.Get(ctx, []string{"doc-a", "doc-missing", "doc-c"})
			require.NoError(t, err)
			require.Len(t, got, 2)

			byID := map[string]Item{}
			for _, item := range got {
				byID[item.ID] = item
			}
			assert.Equal(t, "Payments outage postmortem", byID["doc-a"].Content)
			assert.Equal(t, "confluence", byID["doc-a"].Metadata["source"])
		})
	}
}

func TestCollectionUpsertReplaces(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			coll, err := s.OpenCollection(ctx, "collector_test")
			require.NoError(t, err)

			require.NoError(t, coll.Upsert(ctx, testItems()))
			require.NoError(t, coll.Upsert(ctx, []Item{{
				ID:        "doc-a",
				Content:   "Rewritten postmortem",
				Metadata:  map[string]any{"source": "confluence", "createdAtTs": float64(1500)},
				Embedding: vec(0, 1, 0, 0),
			}}))

			n, err := coll.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			got, err := coll.Get(ctx, []string{"doc-a"})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "Rewritten postmortem", got[0].Content)

			// The new vector wins: doc-a is now nearest to (0,1,0,0).
			hits, err := coll.Query(ctx, vec(0, 1, 0, 0), 1, nil, nil)
			require.NoError(t, err)
			require.Len(t, hits, 1)
			assert.Equal(t, "doc-a", hits[0].ID)
		})
	}
}

func TestCollectionQueryOrdersByDistance(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			coll, err := s.OpenCollection(ctx, "collector_test")
			require.NoError(t, err)
			require.NoError(t, coll.Upsert(ctx, testItems()))

			hits, err := coll.Query(ctx, vec(1, 0, 0, 0), 3, nil, nil)
			require.NoError(t, err)
			require.Len(t, hits, 3)
			assert.Equal(t, "doc-a", hits[0].ID)
			assert.Equal(t, "doc-b", hits[1].ID)
			assert.Equal(t, "doc-c", hits[2].ID)
			assert.InDelta(t, 0, hits[0].Distance, 1e-5)
			assert.Less(t, hits[1].Distance, hits[2].Distance)
		})
	}
}

func TestCollectionQueryFilters(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			coll, err := s.OpenCollection(ctx, "collector_test")
			require.NoError(t, err)
			require.NoError(t, coll.Upsert(ctx, testItems()))

			hits, err := coll.Query(ctx, vec(1, 0, 0, 0), 3,
				Where{Gte("createdAtTs", float64(1500))}, nil)
			require.NoError(t, err)
			require.Len(t, hits, 2)
			assert.Equal(t, "doc-b", hits[0].ID)

			hits, err = coll.Query(ctx, vec(1, 0, 0, 0), 3, nil,
				&DocFilter{Contains: []string{"oncall"}})
			require.NoError(t, err)
			require.Len(t, hits, 1)
			assert.Equal(t, "doc-b", hits[0].ID)
		})
	}
}

func TestCollectionScanAndDeleteWhere(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			coll, err := s.OpenCollection(ctx, "collector_test")
			require.NoError(t, err)
			require.NoError(t, coll.Upsert(ctx, testItems()))

			items, err := coll.Scan(ctx, Where{Eq("source", "confluence")}, nil, 0)
			require.NoError(t, err)
			assert.Len(t, items, 2)

			items, err = coll.Scan(ctx, nil, &DocFilter{Contains: []string{"payments"}}, 1)
			require.NoError(t, err)
			assert.Len(t, items, 1)

			removed, err := coll.DeleteWhere(ctx, Where{Eq("source", "confluence")})
			require.NoError(t, err)
			assert.Equal(t, 2, removed)

			n, err := coll.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			// Deleting by the same predicate again removes nothing.
			removed, err = coll.DeleteWhere(ctx, Where{Eq("source", "confluence")})
			require.NoError(t, err)
			assert.Equal(t, 0, removed)
		})
	}
}

func TestCollectionDeleteIgnoresUnknownIDs(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			coll, err := s.OpenCollection(ctx, "collector_test")
			require.NoError(t, err)
			require.NoError(t, coll.Upsert(ctx, testItems()))

			require.NoError(t, coll.Delete(ctx, []string{"doc-a", "never-existed"}))

			n, err := coll.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			// Deleted items no longer surface in queries.
			hits, err := coll.Query(ctx, vec(1, 0, 0, 0), 3, nil, nil)
			require.NoError(t, err)
			for _, h := range hits {
				assert.NotEqual(t, "doc-a", h.ID)
			}
		})
	}
}

func TestCollectionUpdateMetadata(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			coll, err := s.OpenCollection(ctx, "collector_test")
			require.NoError(t, err)
			require.NoError(t, coll.Upsert(ctx, testItems()))

			err = coll.UpdateMetadata(ctx, "doc-a", map[string]any{
				"source": "confluence", "createdAtTs": float64(1000), "starred": true,
			})
			require.NoError(t, err)

			got, err := coll.Get(ctx, []string{"doc-a"})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, true, got[0].Metadata["starred"])
			assert.Equal(t, "Payments outage postmortem", got[0].Content)

			err = coll.UpdateMetadata(ctx, "ghost", map[string]any{"a": "b"})
			assert.Error(t, err)
		})
	}
}

func TestDropCollection(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			coll, err := s.OpenCollection(ctx, "collector_test")
			require.NoError(t, err)
			require.NoError(t, coll.Upsert(ctx, testItems()))

			require.NoError(t, s.DropCollection(ctx, "collector_test"))

			coll, err = s.OpenCollection(ctx, "collector_test")
			require.NoError(t, err)
			n, err := coll.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, n)

			// Dropping a collection that does not exist is fine on the
			// local backend; chromem reports it, which Registry swallows.
			_ = s.DropCollection(ctx, "collector_never")
		})
	}
}

func TestLocalStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewLocalStore(dir, testDims)
	require.NoError(t, err)
	coll, err := s.OpenCollection(ctx, "collector_test")
	require.NoError(t, err)
	require.NoError(t, coll.Upsert(ctx, testItems()))
	require.NoError(t, s.Close())

	s2, err := NewLocalStore(dir, testDims)
	require.NoError(t, err)
	defer s2.Close()

	coll2, err := s2.OpenCollection(ctx, "collector_test")
	require.NoError(t, err)

	n, err := coll2.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hits, err := coll2.Query(ctx, vec(1, 0, 0, 0), 1, nil, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc-a", hits[0].ID)
}

func TestLocalStoreLockExcludesSecondProcess(t *testing.T) {
	dir := t.TempDir()

	s, err := NewLocalStore(dir, testDims)
	require.NoError(t, err)
	defer s.Close()

	_, err = NewLocalStore(dir, testDims)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")
}
