package domain

import "time"

// Listing is an offered piece of cached agent data. The raw content is never
// stored by the proof layer; once proofs are generated the listing's declared
// metadata is immutable without regenerating all four proofs.
type Listing struct {
	ID           string
	SellerID     string
	Title        string
	Category     string
	ContentSize  uint64
	FreshnessAt  time.Time
	QualityScore float64
	PriceUSDC    float64
	CreatedAt    time.Time
}
