package prepare

import (
	"fmt"
	"strings"
)

// Chunk relation metadata keys. A chunked document is stored only as its
// chunk items; the logical document's identity survives in ParentDocID on
// each chunk.
const (
	MetaChunkIndex  = "chunkIndex"
	MetaTotalChunks = "totalChunks"
	MetaParentDocID = "parentDocId"
)

// chunkIDSep joins a logical id with a chunk index. Logical ids must not end
// in this pattern themselves.
const chunkIDSep = "_chunk_"

// Document is a logical document as submitted by an upstream connector,
// before chunking.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]any

	// Chunks optionally carries caller-supplied content slices that replace
	// automatic chunking. Honored only with two or more entries.
	Chunks []string
}

// Item is a store-ready unit of the vector index.
type Item struct {
	ID       string
	Content  string
	Metadata map[string]any
}

// ChunkID returns the stored id of chunk i of the given logical document.
func ChunkID(logicalID string, i int) string {
	return fmt.Sprintf("%s%s%d", logicalID, chunkIDSep, i)
}

// IsChunkID reports whether id follows the reserved <logical>_chunk_<n>
// pattern.
func IsChunkID(id string) bool {
	idx := strings.LastIndex(id, chunkIDSep)
	if idx < 0 {
		return false
	}
	suffix := id[idx+len(chunkIDSep):]
	if suffix == "" {
		return false
	}
	for _, c := range suffix {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// BuildItems expands a logical document into its stored items. Short content
// yields a single item whose id equals the logical id. Long (or pre-chunked)
// content yields one item per chunk; the logical id itself is not stored.
// Every item carries the flattened metadata plus its own content hash.
func BuildItems(doc Document) []Item {
	content := Sanitize(doc.Content)
	base := FlattenMetadata(doc.Metadata)

	chunks := doc.Chunks
	if len(chunks) >= 2 {
		sanitized := make([]string, len(chunks))
		for i, c := range chunks {
			sanitized[i] = Sanitize(c)
		}
		chunks = sanitized
	} else {
		chunks = Chunks(content)
	}

	if len(chunks) == 1 {
		meta := cloneMeta(base)
		meta[MetaContentHash] = ContentHash(chunks[0])
		return []Item{{ID: doc.ID, Content: chunks[0], Metadata: meta}}
	}

	items := make([]Item, len(chunks))
	for i, chunk := range chunks {
		meta := cloneMeta(base)
		meta[MetaContentHash] = ContentHash(chunk)
		meta[MetaChunkIndex] = float64(i)
		meta[MetaTotalChunks] = float64(len(chunks))
		meta[MetaParentDocID] = doc.ID
		items[i] = Item{ID: ChunkID(doc.ID, i), Content: chunk, Metadata: meta}
	}
	return items
}

func cloneMeta(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta)+4)
	for k, v := range meta {
		out[k] = v
	}
	return out
}
