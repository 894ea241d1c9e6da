package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"bazaar/internal/domain"
	"bazaar/internal/infra/memstore"
	"bazaar/internal/usecase"
)

func TestGenerateListingProofsProducesAllFour(t *testing.T) {
	store := memstore.New()
	generate := &usecase.GenerateListingProofs{Listings: store.Listings(), Clock: fixedClock}

	content := bytes.Repeat([]byte(`{"k": "v"} `), 200)
	resp, err := generate.Execute(context.Background(), usecase.GenerateListingProofsRequest{
		SellerID:     "seller-1",
		Title:        "bulk scrape",
		Content:      content,
		Category:     "datasets",
		QualityScore: 0.75,
		PriceUSDC:    12.5,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if len(resp.Proofs) != len(domain.ProofTypes) {
		t.Fatalf("got %d proofs, want %d", len(resp.Proofs), len(domain.ProofTypes))
	}
	byType := make(map[domain.ProofType]domain.Proof)
	for _, p := range resp.Proofs {
		if p.Commitment == "" || len(p.Commitment) != 64 {
			t.Errorf("proof %s commitment = %q", p.Type, p.Commitment)
		}
		if p.ListingID != resp.Listing.ID {
			t.Errorf("proof %s bound to wrong listing", p.Type)
		}
		byType[p.Type] = p
	}
	for _, want := range domain.ProofTypes {
		if _, ok := byType[want]; !ok {
			t.Errorf("proof type %s missing", want)
		}
	}

	merkle := byType[domain.ProofMerkleRoot]
	if merkle.Merkle == nil {
		t.Fatalf("merkle proof has no payload")
	}
	if resp.ContentHash != merkle.Merkle.Root {
		t.Errorf("content hash %s != merkle root %s", resp.ContentHash, merkle.Merkle.Root)
	}
	// 2200 bytes of content spans three 1024-byte chunks.
	if merkle.Merkle.LeafCount != 3 {
		t.Errorf("leaf count = %d, want 3", merkle.Merkle.LeafCount)
	}
	if merkle.Merkle.Depth != 2 {
		t.Errorf("depth = %d, want 2", merkle.Merkle.Depth)
	}

	if resp.Listing.ContentSize != uint64(len(content)) {
		t.Errorf("content size = %d, want %d", resp.Listing.ContentSize, len(content))
	}

	// Proofs are persisted atomically with the listing.
	stored, err := store.Proofs().ListByListing(context.Background(), resp.Listing.ID)
	if err != nil {
		t.Fatalf("list proofs: %v", err)
	}
	if len(stored) != 4 {
		t.Errorf("stored %d proofs, want 4", len(stored))
	}
}

func TestGenerateListingProofsMerklePublicInputsHideLeaves(t *testing.T) {
	store := memstore.New()
	generate := &usecase.GenerateListingProofs{Listings: store.Listings(), Clock: fixedClock}
	resp, err := generate.Execute(context.Background(), usecase.GenerateListingProofsRequest{
		SellerID:     "seller-1",
		Content:      []byte("short content"),
		Category:     "misc",
		QualityScore: 0.5,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, p := range resp.Proofs {
		if p.Type != domain.ProofMerkleRoot {
			continue
		}
		inputs := p.PublicInputs()
		if _, leaked := inputs["leaves"]; leaked {
			t.Errorf("public inputs leak leaf hashes")
		}
		if inputs["root"] != p.Merkle.Root {
			t.Errorf("public inputs root mismatch")
		}
	}
}

func TestGenerateListingProofsValidation(t *testing.T) {
	store := memstore.New()
	generate := &usecase.GenerateListingProofs{Listings: store.Listings(), Clock: fixedClock}
	ctx := context.Background()

	cases := []usecase.GenerateListingProofsRequest{
		{Category: "misc", QualityScore: 0.5},
		{SellerID: "s", QualityScore: 0.5},
		{SellerID: "s", Category: "misc", QualityScore: -0.1},
		{SellerID: "s", Category: "misc", QualityScore: 1.1},
		{SellerID: "s", Category: "misc", QualityScore: 0.5, PriceUSDC: -1},
	}
	for i, req := range cases {
		if _, err := generate.Execute(ctx, req); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("case %d: got %v, want ErrValidation", i, err)
		}
	}
}

func TestGenerateListingProofsEmptyContent(t *testing.T) {
	store := memstore.New()
	generate := &usecase.GenerateListingProofs{Listings: store.Listings(), Clock: fixedClock}
	resp, err := generate.Execute(context.Background(), usecase.GenerateListingProofsRequest{
		SellerID:     "seller-1",
		Category:     "misc",
		QualityScore: 0,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, p := range resp.Proofs {
		if p.Type == domain.ProofMerkleRoot {
			if p.Merkle.LeafCount != 1 || p.Merkle.Depth != 0 {
				t.Errorf("empty content merkle = %d leaves depth %d, want 1/0", p.Merkle.LeafCount, p.Merkle.Depth)
			}
		}
	}
	if resp.Listing.ContentSize != 0 {
		t.Errorf("content size = %d, want 0", resp.Listing.ContentSize)
	}
}
