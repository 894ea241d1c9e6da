package proof

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

const (
	// BloomFilterBytes fixes the filter at 256 bytes (2048 bits).
	BloomFilterBytes = 256
	BloomFilterBits  = BloomFilterBytes * 8
	// BloomHashCount is k, the number of independent bit positions per word.
	BloomHashCount = 3
)

// BloomFilter is a fixed-size membership filter over the distinct words of a
// listing's content. It yields false positives but never false negatives,
// and reveals nothing about the inserted words themselves, which makes the
// serialized filter the only part of this proof that is safe to publish.
type BloomFilter struct {
	bits []byte
}

func NewBloomFilter() *BloomFilter {
	return &BloomFilter{bits: make([]byte, BloomFilterBytes)}
}

// BuildBloom tokenizes content and inserts each distinct word.
func BuildBloom(content []byte) *BloomFilter {
	f := NewBloomFilter()
	for _, word := range Tokenize(string(content)) {
		f.Add(word)
	}
	return f
}

// Tokenize lower-cases text and extracts maximal runs of letters and digits;
// every other character separates. Duplicates are removed.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	seen := make(map[string]struct{})
	words := make([]string, 0)
	var current strings.Builder
	flush := func() {
		if current.Len() == 0 {
			return
		}
		word := current.String()
		current.Reset()
		if _, dup := seen[word]; dup {
			return
		}
		seen[word] = struct{}{}
		words = append(words, word)
	}
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return words
}

func (f *BloomFilter) Add(word string) {
	for _, pos := range bitPositions(word) {
		f.bits[pos/8] |= 1 << (pos % 8)
	}
}

// Test reports whether the word is probably present: all k positions must be
// set. Words that were inserted always test true.
func (f *BloomFilter) Test(word string) bool {
	for _, pos := range bitPositions(strings.ToLower(word)) {
		if f.bits[pos/8]&(1<<(pos%8)) == 0 {
			return false
		}
	}
	return true
}

// bitPositions derives k positions by hashing "{seed}:{word}" for each seed
// and reducing the first four digest bytes, big-endian, modulo the bit count.
func bitPositions(word string) [BloomHashCount]int {
	var positions [BloomHashCount]int
	for seed := 0; seed < BloomHashCount; seed++ {
		digest := sha256Bytes([]byte(fmt.Sprintf("%d:%s", seed, word)))
		positions[seed] = int(binary.BigEndian.Uint32(digest[:4]) % BloomFilterBits)
	}
	return positions
}

func (f *BloomFilter) Bytes() []byte {
	out := make([]byte, len(f.bits))
	copy(out, f.bits)
	return out
}

func (f *BloomFilter) Hex() string {
	return hex.EncodeToString(f.bits)
}

// Commitment hashes the raw filter bytes. Publishing both the filter and its
// hash lets a buyer detect a filter swapped after listing time.
func (f *BloomFilter) Commitment() string {
	return sha256Hex(f.bits)
}

// ParseBloomHex restores a filter from its serialized form.
func ParseBloomHex(s string) (*BloomFilter, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid bloom filter encoding: %w", err)
	}
	if len(raw) != BloomFilterBytes {
		return nil, fmt.Errorf("invalid bloom filter size: %d bytes", len(raw))
	}
	return &BloomFilter{bits: raw}, nil
}
