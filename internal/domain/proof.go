package domain

import "time"

type ProofType string

const (
	ProofMerkleRoot  ProofType = "merkle_root"
	ProofSchema      ProofType = "schema"
	ProofBloomFilter ProofType = "bloom_filter"
	ProofMetadata    ProofType = "metadata"
)

// ProofTypes lists the four commitment kinds every published listing carries.
// Generation is all-or-nothing: a listing has either zero proofs or all four.
var ProofTypes = []ProofType{ProofMerkleRoot, ProofSchema, ProofBloomFilter, ProofMetadata}

// Proof is one committed claim about a listing. Exactly one of the payload
// pointers is set, matching Type. Proofs are written once at listing
// publication and never mutated.
type Proof struct {
	ID         string
	ListingID  string
	Type       ProofType
	Commitment string // lowercase hex, 64 chars

	Merkle   *MerkleProof
	Schema   *SchemaProof
	Bloom    *BloomProof
	Metadata *MetadataProof

	CreatedAt time.Time
}

// MerkleProof commits to the chunked content. Leaves stay private: leaf
// hashes of small chunks are open to dictionary attacks on chunk boundaries,
// so only root, leaf_count and depth are revealed.
type MerkleProof struct {
	Root      string   `json:"root"`
	LeafCount int      `json:"leaf_count"`
	Depth     int      `json:"depth"`
	Leaves    []string `json:"leaves"`
}

// SchemaProof commits to the shape of the content. The full tree is private;
// the public projection keeps field names and types but never values.
type SchemaProof struct {
	Schema *SchemaNode `json:"schema"`
}

// BloomProof carries the serialized filter. The filter itself is the public
// artifact: it supports membership tests without revealing inserted words.
type BloomProof struct {
	FilterHex  string `json:"filter_hex"`
	FilterBits int    `json:"filter_bits"`
	HashCount  int    `json:"hash_count"`
}

// MetadataProof republishes the declared listing metadata verbatim. The
// commitment only makes after-the-fact tampering with the claim detectable.
type MetadataProof struct {
	ContentSize  uint64    `json:"content_size"`
	Category     string    `json:"category"`
	FreshnessAt  time.Time `json:"freshness_at"`
	QualityScore float64   `json:"quality_score"`
}

// SchemaNode is one node of a content shape fingerprint. JSON content
// produces object/array/primitive nodes; content that does not parse as JSON
// falls back to a single text-mode node with aggregate counts.
type SchemaNode struct {
	Type       string                 `json:"type,omitempty"`
	Mode       string                 `json:"mode,omitempty"`
	FieldCount int                    `json:"field_count,omitempty"`
	Fields     map[string]*SchemaNode `json:"fields,omitempty"`
	ItemCount  int                    `json:"item_count,omitempty"`
	ItemSchema *SchemaNode            `json:"item_schema,omitempty"`
	LineCount  int                    `json:"line_count,omitempty"`
	WordCount  int                    `json:"word_count,omitempty"`
	CharCount  int                    `json:"char_count,omitempty"`
}

const SchemaModeText = "text"

// Label names the node for public projections: the type for JSON nodes,
// "text" for the fallback.
func (n *SchemaNode) Label() string {
	if n == nil {
		return "unknown"
	}
	if n.Mode == SchemaModeText {
		return SchemaModeText
	}
	if n.Type == "" {
		return "unknown"
	}
	return n.Type
}

// Public returns the safe-to-reveal projection of the fingerprint: field
// names and type labels for objects, the item type for arrays, aggregate
// counts for text. Field values never appear in the tree to begin with, but
// nested shapes are flattened to labels so the projection leaks no structure
// beyond the first level.
func (n *SchemaNode) Public() map[string]any {
	if n == nil {
		return map[string]any{"type": "unknown"}
	}
	if n.Mode == SchemaModeText {
		return map[string]any{
			"mode":       SchemaModeText,
			"line_count": n.LineCount,
			"word_count": n.WordCount,
			"char_count": n.CharCount,
		}
	}
	switch n.Type {
	case "object":
		fields := make(map[string]any, len(n.Fields))
		for name, child := range n.Fields {
			fields[name] = child.Label()
		}
		return map[string]any{
			"type":        "object",
			"field_count": n.FieldCount,
			"fields":      fields,
		}
	case "array":
		return map[string]any{
			"type":        "array",
			"item_count":  n.ItemCount,
			"item_schema": n.ItemSchema.Label(),
		}
	default:
		return map[string]any{"type": n.Label()}
	}
}

// PublicInputs returns the revealable projection of the proof, keyed the way
// the HTTP surface and the proofs table expose it.
func (p Proof) PublicInputs() map[string]any {
	switch p.Type {
	case ProofMerkleRoot:
		if p.Merkle == nil {
			return nil
		}
		return map[string]any{
			"root":       p.Merkle.Root,
			"leaf_count": p.Merkle.LeafCount,
			"depth":      p.Merkle.Depth,
		}
	case ProofSchema:
		if p.Schema == nil {
			return nil
		}
		return p.Schema.Schema.Public()
	case ProofBloomFilter:
		if p.Bloom == nil {
			return nil
		}
		return map[string]any{
			"filter_hex":  p.Bloom.FilterHex,
			"filter_bits": p.Bloom.FilterBits,
			"hash_count":  p.Bloom.HashCount,
		}
	case ProofMetadata:
		if p.Metadata == nil {
			return nil
		}
		return map[string]any{
			"content_size":  p.Metadata.ContentSize,
			"category":      p.Metadata.Category,
			"freshness_at":  p.Metadata.FreshnessAt.UTC().Format(time.RFC3339),
			"quality_score": p.Metadata.QualityScore,
		}
	}
	return nil
}
