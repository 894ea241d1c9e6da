package proof

import "errors"

var ErrNoLeaves = errors.New("merkle tree requires at least one leaf")

// MerkleTree is the commitment over an ordered list of chunk hashes. Leaves
// are retained for the private proof payload; only Root, LeafCount and Depth
// are ever revealed.
type MerkleTree struct {
	Root      string
	LeafCount int
	Depth     int
	Leaves    []string
}

// BuildMerkle folds leaf hashes into a root by pairing adjacent hashes left
// to right. An odd level duplicates its last element so no leaf is dropped.
// Parents hash the concatenation of the two child hex strings as UTF-8 text.
// Depth counts combining rounds: zero for a single leaf.
func BuildMerkle(leaves []string) (MerkleTree, error) {
	if len(leaves) == 0 {
		return MerkleTree{}, ErrNoLeaves
	}
	kept := make([]string, len(leaves))
	copy(kept, leaves)

	level := kept
	depth := 0
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]string, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, sha256Hex([]byte(level[i]+level[i+1])))
		}
		level = next
		depth++
	}

	return MerkleTree{
		Root:      level[0],
		LeafCount: len(kept),
		Depth:     depth,
		Leaves:    kept,
	}, nil
}
