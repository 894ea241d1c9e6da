package db

import "time"

type ListingModel struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	SellerID     string    `gorm:"type:uuid;index;not null"`
	Title        string    `gorm:"not null"`
	Category     string    `gorm:"index;not null"`
	ContentSize  int64     `gorm:"not null"`
	FreshnessAt  time.Time `gorm:"not null"`
	QualityScore float64   `gorm:"not null"`
	PriceUSDC    float64   `gorm:"column:price_usdc;not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (ListingModel) TableName() string {
	return "listings"
}

// ProofModel stores one commitment row per (listing, proof_type). The
// private payload and the public projection are kept in separate jsonb
// columns so the read path for the public surface never touches proof_data.
type ProofModel struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	ListingID    string    `gorm:"type:uuid;index;uniqueIndex:idx_proofs_listing_type;not null"`
	ProofType    string    `gorm:"uniqueIndex:idx_proofs_listing_type;not null"`
	Commitment   string    `gorm:"not null"`
	ProofData    []byte    `gorm:"type:jsonb;not null"`
	PublicInputs []byte    `gorm:"type:jsonb;not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (ProofModel) TableName() string {
	return "zk_proofs"
}

type TransactionModel struct {
	ID                 string  `gorm:"type:uuid;primaryKey"`
	ListingID          string  `gorm:"type:uuid;index;not null"`
	BuyerID            string  `gorm:"type:uuid;index;not null"`
	SellerID           string  `gorm:"type:uuid;index;not null"`
	AmountUSDC         float64 `gorm:"column:amount_usdc;not null"`
	Status             string  `gorm:"index;not null"`
	PaymentMethod      string  `gorm:"not null"`
	PaymentTxHash      *string
	ContentHash        string `gorm:"not null"`
	DeliveredHash      *string
	VerificationStatus string `gorm:"not null"`
	ErrorMessage       *string
	InitiatedAt        time.Time `gorm:"not null"`
	PaidAt             *time.Time
	DeliveredAt        *time.Time
	VerifiedAt         *time.Time
	CompletedAt        *time.Time
}

func (TransactionModel) TableName() string {
	return "transactions"
}
