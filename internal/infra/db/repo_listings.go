package db

import (
	"context"
	"errors"
	"time"

	"bazaar/internal/domain"

	"gorm.io/gorm"
)

var errDBUnavailable = errors.New("db unavailable")

type ListingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// CreateWithProofs writes the listing and its four proofs in one database
// transaction. Either all rows land or none do.
func (r *ListingRepository) CreateWithProofs(ctx context.Context, listing domain.Listing, proofs []domain.Proof) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := ListingModel{
		ID:           listing.ID,
		SellerID:     listing.SellerID,
		Title:        listing.Title,
		Category:     listing.Category,
		ContentSize:  int64(listing.ContentSize),
		FreshnessAt:  listing.FreshnessAt.UTC(),
		QualityScore: listing.QualityScore,
		PriceUSDC:    listing.PriceUSDC,
		CreatedAt:    listing.CreatedAt.UTC(),
	}
	proofModels := make([]ProofModel, 0, len(proofs))
	for _, p := range proofs {
		pm, err := proofToModel(p)
		if err != nil {
			return err
		}
		proofModels = append(proofModels, pm)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		for i := range proofModels {
			if err := tx.Create(&proofModels[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ListingRepository) Get(ctx context.Context, id string) (*domain.Listing, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model ListingModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	listing := listingFromModel(model)
	return &listing, nil
}

func listingFromModel(m ListingModel) domain.Listing {
	return domain.Listing{
		ID:           m.ID,
		SellerID:     m.SellerID,
		Title:        m.Title,
		Category:     m.Category,
		ContentSize:  uint64(m.ContentSize),
		FreshnessAt:  m.FreshnessAt.UTC(),
		QualityScore: m.QualityScore,
		PriceUSDC:    m.PriceUSDC,
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

func timePtrUTC(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
