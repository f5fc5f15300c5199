package prepare

import (
	"strings"
	"unicode/utf8"
)

// Chunking constants. Content at or under MaxSingleChunk is stored whole;
// longer content is split into overlapping windows that prefer to break at
// paragraph, line, sentence, and word boundaries, in that order.
const (
	// MaxSingleChunk is the largest content (in runes) stored as one item.
	MaxSingleChunk = 8000

	// ChunkTarget is the target window size for split content.
	ChunkTarget = 4000

	// ChunkOverlap is the number of runes consecutive chunks share.
	ChunkOverlap = 200

	// separatorRegion is how far back from the window end a separator is
	// searched for. The preferred region is [start+ChunkTarget-separatorRegion, end].
	separatorRegion = 800
)

// Chunks splits content into overlapping chunks. Content that fits in a
// single chunk is returned unchanged as a one-element slice. Offsets are
// rune-based so multi-byte characters are never split.
func Chunks(content string) []string {
	runes := []rune(content)
	if len(runes) <= MaxSingleChunk {
		return []string{content}
	}

	var chunks []string
	start := 0
	for {
		end := start + ChunkTarget
		if end > len(runes) {
			end = len(runes)
		}
		if end < len(runes) {
			end = shiftToSeparator(runes, start, end)
		}
		chunks = append(chunks, string(runes[start:end]))

		start = end - ChunkOverlap
		// Stop once the next window would lie entirely inside the emitted tail.
		if start+ChunkOverlap >= len(runes) {
			break
		}
	}
	return chunks
}

// separators are tried in order of preference; cut is the number of runes
// after the separator's start that the chunk boundary lands on.
var separators = []struct {
	seq string
	cut int
}{
	{"\n\n", 2},
	{"\n", 1},
	{". ", 2},
	{" ", 1},
}

// shiftToSeparator moves end back to just past the last preferred separator
// inside the search region. When the region holds no separator at all, end
// is returned unchanged (a hard cut in the middle of a run of text).
func shiftToSeparator(runes []rune, start, end int) int {
	lo := start + ChunkTarget - separatorRegion
	if lo < start {
		lo = start
	}
	region := string(runes[lo:end])

	for _, sep := range separators {
		idx := strings.LastIndex(region, sep.seq)
		if idx < 0 {
			continue
		}
		offset := utf8.RuneCountInString(region[:idx])
		return lo + offset + sep.cut
	}
	return end
}
