package usecase

import (
	"context"
	"fmt"
	"time"

	"bazaar/internal/domain"
	"bazaar/internal/proof"

	"github.com/google/uuid"
)

type GenerateListingProofsRequest struct {
	SellerID     string
	Title        string
	Content      []byte
	Category     string
	FreshnessAt  time.Time
	QualityScore float64
	PriceUSDC    float64
}

type GenerateListingProofsResponse struct {
	Listing domain.Listing
	Proofs  []domain.Proof
	// ContentHash is the Merkle root every transaction against this listing
	// is staked against.
	ContentHash string
}

// GenerateListingProofs runs the full commitment pipeline at listing
// publication: chunk+Merkle, schema fingerprint, Bloom filter and metadata
// commitment, persisted all-or-nothing. It is invoked exactly once per
// listing, after content is finalized.
type GenerateListingProofs struct {
	Listings ListingRepository
	Clock    func() time.Time
}

func (uc *GenerateListingProofs) Execute(ctx context.Context, req GenerateListingProofsRequest) (*GenerateListingProofsResponse, error) {
	if req.SellerID == "" {
		return nil, domain.ValidationError("seller_id is required")
	}
	if req.Category == "" {
		return nil, domain.ValidationError("category is required")
	}
	if req.QualityScore < 0 || req.QualityScore > 1 {
		return nil, domain.ValidationError("quality_score must be within [0,1]")
	}
	if req.PriceUSDC < 0 {
		return nil, domain.ValidationError("price_usdc must not be negative")
	}

	now := uc.now()
	freshness := req.FreshnessAt
	if freshness.IsZero() {
		freshness = now
	}

	listing := domain.Listing{
		ID:           uuid.NewString(),
		SellerID:     req.SellerID,
		Title:        req.Title,
		Category:     req.Category,
		ContentSize:  uint64(len(req.Content)),
		FreshnessAt:  freshness.UTC(),
		QualityScore: req.QualityScore,
		PriceUSDC:    req.PriceUSDC,
		CreatedAt:    now,
	}

	proofs, err := buildProofs(listing, req.Content, now)
	if err != nil {
		// Abort the whole flow: a listing must never publish with a partial
		// or unprovable claim set.
		return nil, fmt.Errorf("generate proofs for listing %s: %w", listing.ID, err)
	}

	if err := uc.Listings.CreateWithProofs(ctx, listing, proofs); err != nil {
		return nil, err
	}

	return &GenerateListingProofsResponse{
		Listing:     listing,
		Proofs:      proofs,
		ContentHash: proofs[0].Merkle.Root,
	}, nil
}

// buildProofs produces the four proof rows in a fixed order, merkle_root
// first so callers can read the binding content hash off index zero.
func buildProofs(listing domain.Listing, content []byte, now time.Time) ([]domain.Proof, error) {
	tree, err := proof.BuildMerkle(proof.ChunkHashes(content))
	if err != nil {
		return nil, err
	}

	schema := proof.Fingerprint(content)
	schemaCommit, err := proof.SchemaCommitment(schema)
	if err != nil {
		return nil, err
	}

	filter := proof.BuildBloom(content)

	metaCommit, err := proof.MetadataCommitment(listing.ContentSize, listing.Category, listing.FreshnessAt, listing.QualityScore)
	if err != nil {
		return nil, err
	}

	base := func(t domain.ProofType, commitment string) domain.Proof {
		return domain.Proof{
			ID:         uuid.NewString(),
			ListingID:  listing.ID,
			Type:       t,
			Commitment: commitment,
			CreatedAt:  now,
		}
	}

	merkleProof := base(domain.ProofMerkleRoot, tree.Root)
	merkleProof.Merkle = &domain.MerkleProof{
		Root:      tree.Root,
		LeafCount: tree.LeafCount,
		Depth:     tree.Depth,
		Leaves:    tree.Leaves,
	}

	schemaProof := base(domain.ProofSchema, schemaCommit)
	schemaProof.Schema = &domain.SchemaProof{Schema: schema}

	bloomProof := base(domain.ProofBloomFilter, filter.Commitment())
	bloomProof.Bloom = &domain.BloomProof{
		FilterHex:  filter.Hex(),
		FilterBits: proof.BloomFilterBits,
		HashCount:  proof.BloomHashCount,
	}

	metaProof := base(domain.ProofMetadata, metaCommit)
	metaProof.Metadata = &domain.MetadataProof{
		ContentSize:  listing.ContentSize,
		Category:     listing.Category,
		FreshnessAt:  listing.FreshnessAt,
		QualityScore: listing.QualityScore,
	}

	return []domain.Proof{merkleProof, schemaProof, bloomProof, metaProof}, nil
}

func (uc *GenerateListingProofs) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock().UTC()
	}
	return time.Now().UTC()
}
