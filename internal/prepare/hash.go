package prepare

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHashLen is the number of hex characters kept from the SHA-256 of
// stored content.
const ContentHashLen = 16

// MetaContentHash is the metadata key carrying the content hash.
const MetaContentHash = "_contentHash"

// ContentHash returns the first 16 lowercase hex characters of the SHA-256
// of text. It is computed over the content actually stored, so for a chunk
// item it hashes the chunk text, not the whole document.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:ContentHashLen]
}
