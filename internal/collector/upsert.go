package collector

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/relaymesh/collector/internal/errors"
	"github.com/relaymesh/collector/internal/prepare"
	"github.com/relaymesh/collector/internal/source"
	"github.com/relaymesh/collector/internal/store"
)

// defaultBatchSize caps one store write. Batches are issued sequentially so
// chunk order is committed deterministically.
const defaultBatchSize = 100

// docPlan is the classified write set for one logical document.
type docPlan struct {
	items    []prepare.Item
	metaOnly bool
	stale    []string
}

// UpsertDocuments ingests a batch of logical documents into one source's
// collection. Documents whose chunk set and content hashes match what is
// stored get a metadata-only update; everything else is fully rewritten and
// its stale chunks removed. An empty batch is a no-op.
//
// Writes are batched; a failing batch aborts the rest of the call but does
// not roll back earlier batches. The call is idempotent by id, so retrying
// with the same input is safe.
func (s *Service) UpsertDocuments(ctx context.Context, ds source.DataSource, docs []prepare.Document) error {
	if !ds.Valid() {
		return errors.MalformedInput("unknown data source: " + string(ds))
	}
	if len(docs) == 0 {
		return nil
	}
	for _, doc := range docs {
		if strings.TrimSpace(doc.ID) == "" {
			return errors.MalformedInput("document id must not be empty")
		}
		if prepare.IsChunkID(doc.ID) {
			return errors.MalformedInput("document id must not use the reserved chunk suffix: " + doc.ID)
		}
	}

	opID := uuid.NewString()
	log := s.logger.With("op", opID, "source", ds)

	coll, err := s.registry.Open(ctx, ds)
	if err != nil {
		return errors.StoreUnavailable("failed to open collection", err)
	}

	plans := make([]docPlan, 0, len(docs))
	for _, doc := range docs {
		plan, err := s.classify(ctx, coll, doc)
		if err != nil {
			return err
		}
		plans = append(plans, plan)
	}

	var upserts []prepare.Item
	var metaUpdates []prepare.Item
	var stale []string
	for _, plan := range plans {
		if plan.metaOnly {
			metaUpdates = append(metaUpdates, plan.items...)
		} else {
			upserts = append(upserts, plan.items...)
		}
		stale = append(stale, plan.stale...)
	}
	log.Debug("classified upsert batch",
		"documents", len(docs),
		"items", len(upserts),
		"metadata_only", len(metaUpdates),
		"stale", len(stale))

	embedded, err := s.embedItems(ctx, upserts)
	if err != nil {
		return err
	}

	persisted := 0
	total := (len(embedded) + s.batchSize - 1) / s.batchSize
	for start := 0; start < len(embedded); start += s.batchSize {
		end := start + s.batchSize
		if end > len(embedded) {
			end = len(embedded)
		}
		if err := coll.Upsert(ctx, embedded[start:end]); err != nil {
			if persisted > 0 {
				return errors.PartialBatch(persisted, total, err)
			}
			return errors.StoreUnavailable("upsert batch failed", err)
		}
		persisted++
	}

	for _, item := range metaUpdates {
		if err := coll.UpdateMetadata(ctx, item.ID, item.Metadata); err != nil {
			if persisted > 0 {
				return errors.PartialBatch(persisted, total, err)
			}
			return errors.StoreUnavailable("metadata update failed", err)
		}
	}

	if len(stale) > 0 {
		if err := coll.Delete(ctx, stale); err != nil {
			return errors.StoreUnavailable("failed to delete stale chunks", err)
		}
	}
	log.Info("upsert complete",
		"documents", len(docs), "written", len(embedded), "stale_removed", len(stale))
	return nil
}

// classify compares a document's prospective items against what the store
// holds for the same logical id.
func (s *Service) classify(ctx context.Context, coll store.Collection, doc prepare.Document) (docPlan, error) {
	items := prepare.BuildItems(doc)

	stored, err := s.storedHashes(ctx, coll, doc.ID)
	if err != nil {
		return docPlan{}, errors.StoreUnavailable("failed to read stored hashes", err)
	}

	metaOnly := len(stored) == len(items)
	for _, item := range items {
		hash, ok := stored[item.ID]
		if !ok || hash != item.Metadata[prepare.MetaContentHash] {
			metaOnly = false
			break
		}
	}

	plan := docPlan{items: items, metaOnly: metaOnly}
	if !metaOnly {
		prospective := make(map[string]struct{}, len(items))
		for _, item := range items {
			prospective[item.ID] = struct{}{}
		}
		for id := range stored {
			if _, keep := prospective[id]; !keep {
				plan.stale = append(plan.stale, id)
			}
		}
	}
	return plan, nil
}

// storedHashes returns the content hash of every stored item belonging to
// the logical id: the id itself plus its chunks.
func (s *Service) storedHashes(ctx context.Context, coll store.Collection, logicalID string) (map[string]string, error) {
	hashes := make(map[string]string)

	own, err := coll.Get(ctx, []string{logicalID})
	if err != nil {
		return nil, err
	}
	chunks, err := coll.Scan(ctx, store.Where{store.Eq(prepare.MetaParentDocID, logicalID)}, nil, 0)
	if err != nil {
		return nil, err
	}

	for _, item := range append(own, chunks...) {
		hash, _ := item.Metadata[prepare.MetaContentHash].(string)
		hashes[item.ID] = hash
	}
	return hashes, nil
}

// embedItems turns prepared items into store items carrying embeddings.
func (s *Service) embedItems(ctx context.Context, items []prepare.Item) ([]store.Item, error) {
	if len(items) == 0 {
		return nil, nil
	}
	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, errors.EmbeddingFailed("failed to embed document content", err)
	}
	if len(vectors) != len(items) {
		return nil, errors.EmbeddingFailed("provider returned a mismatched vector count", nil)
	}

	out := make([]store.Item, len(items))
	for i, item := range items {
		out[i] = store.Item{
			ID:        item.ID,
			Content:   item.Content,
			Metadata:  item.Metadata,
			Embedding: vectors[i],
		}
	}
	return out, nil
}
