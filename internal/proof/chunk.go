package proof

import (
	"crypto/sha256"
	"encoding/hex"
)

// ChunkSize is the fixed chunk width content is split into before hashing.
const ChunkSize = 1024

func sha256Bytes(input []byte) []byte {
	sum := sha256.Sum256(input)
	return sum[:]
}

func sha256Hex(input []byte) string {
	return hex.EncodeToString(sha256Bytes(input))
}

// HashContent hashes the whole buffer as a single chunk. This is the
// delivery-time hash the transaction state machine compares against the
// committed root.
func HashContent(content []byte) string {
	return sha256Hex(content)
}

// ChunkHashes splits content into ChunkSize-byte chunks, the final chunk
// shorter when the length is not a multiple, and hashes each independently.
// Empty content produces exactly one hash of the empty chunk, so a Merkle
// tree built from the result always has at least one leaf.
func ChunkHashes(content []byte) []string {
	if len(content) == 0 {
		return []string{sha256Hex(nil)}
	}
	hashes := make([]string, 0, (len(content)+ChunkSize-1)/ChunkSize)
	for start := 0; start < len(content); start += ChunkSize {
		end := start + ChunkSize
		if end > len(content) {
			end = len(content)
		}
		hashes = append(hashes, sha256Hex(content[start:end]))
	}
	return hashes
}
