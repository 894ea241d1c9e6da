package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bazaar/internal/domain"

	"gorm.io/gorm"
)

type ProofRepository struct {
	db *gorm.DB
}

func NewProofRepository(db *gorm.DB) *ProofRepository {
	return &ProofRepository{db: db}
}

func (r *ProofRepository) ListByListing(ctx context.Context, listingID string) ([]domain.Proof, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []ProofModel
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("created_at ASC, proof_type ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	proofs := make([]domain.Proof, 0, len(models))
	for _, m := range models {
		p, err := proofFromModel(m)
		if err != nil {
			return nil, err
		}
		proofs = append(proofs, p)
	}
	return proofs, nil
}

func (r *ProofRepository) GetByType(ctx context.Context, listingID string, proofType domain.ProofType) (*domain.Proof, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model ProofModel
	err := r.db.WithContext(ctx).
		Where("listing_id = ? AND proof_type = ?", listingID, string(proofType)).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p, err := proofFromModel(model)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// proofToModel serializes the typed payload explicitly per proof type. An
// unset payload is a programming error and refused rather than stored as
// null.
func proofToModel(p domain.Proof) (ProofModel, error) {
	var payload any
	switch p.Type {
	case domain.ProofMerkleRoot:
		payload = p.Merkle
	case domain.ProofSchema:
		payload = p.Schema
	case domain.ProofBloomFilter:
		payload = p.Bloom
	case domain.ProofMetadata:
		payload = p.Metadata
	default:
		return ProofModel{}, fmt.Errorf("unknown proof type %q", p.Type)
	}
	if payload == nil {
		return ProofModel{}, fmt.Errorf("proof %s has no %s payload", p.ID, p.Type)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return ProofModel{}, err
	}
	public, err := json.Marshal(p.PublicInputs())
	if err != nil {
		return ProofModel{}, err
	}
	return ProofModel{
		ID:           p.ID,
		ListingID:    p.ListingID,
		ProofType:    string(p.Type),
		Commitment:   p.Commitment,
		ProofData:    data,
		PublicInputs: public,
		CreatedAt:    p.CreatedAt.UTC(),
	}, nil
}

func proofFromModel(m ProofModel) (domain.Proof, error) {
	p := domain.Proof{
		ID:         m.ID,
		ListingID:  m.ListingID,
		Type:       domain.ProofType(m.ProofType),
		Commitment: m.Commitment,
		CreatedAt:  m.CreatedAt.UTC(),
	}
	var err error
	switch p.Type {
	case domain.ProofMerkleRoot:
		p.Merkle = &domain.MerkleProof{}
		err = json.Unmarshal(m.ProofData, p.Merkle)
	case domain.ProofSchema:
		p.Schema = &domain.SchemaProof{}
		err = json.Unmarshal(m.ProofData, p.Schema)
	case domain.ProofBloomFilter:
		p.Bloom = &domain.BloomProof{}
		err = json.Unmarshal(m.ProofData, p.Bloom)
	case domain.ProofMetadata:
		p.Metadata = &domain.MetadataProof{}
		err = json.Unmarshal(m.ProofData, p.Metadata)
	default:
		return domain.Proof{}, fmt.Errorf("unknown proof type %q", m.ProofType)
	}
	if err != nil {
		return domain.Proof{}, fmt.Errorf("decode %s proof %s: %w", m.ProofType, m.ID, err)
	}
	return p, nil
}
