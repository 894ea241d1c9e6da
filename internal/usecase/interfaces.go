package usecase

import (
	"context"
	"time"

	"bazaar/internal/domain"
)

type ListingRepository interface {
	// CreateWithProofs persists the listing and its four proofs atomically.
	// A partial write would leave a listing with an unverifiable subset of
	// claims, so either everything lands or nothing does.
	CreateWithProofs(ctx context.Context, listing domain.Listing, proofs []domain.Proof) error
	Get(ctx context.Context, id string) (*domain.Listing, error)
}

type ProofRepository interface {
	ListByListing(ctx context.Context, listingID string) ([]domain.Proof, error)
	GetByType(ctx context.Context, listingID string, proofType domain.ProofType) (*domain.Proof, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, tx domain.Transaction) error
	Get(ctx context.Context, id string) (*domain.Transaction, error)
	List(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, int64, error)
	// Transition applies the update only if the row still holds the expected
	// status, as a single conditional write. Implementations return
	// domain.ErrInvalidState when the precondition no longer holds, so two
	// racing transitions can never both succeed against one snapshot.
	Transition(ctx context.Context, id string, expected domain.TransactionStatus, update domain.TransactionUpdate) (*domain.Transaction, error)
}

type PaymentProvider interface {
	Method() string
	// Confirm returns the payment reference to record for the transaction.
	// Simulated deployments synthesize one; external deployments validate the
	// caller-supplied hash.
	Confirm(ctx context.Context, tx domain.Transaction, signature, txHash string) (string, error)
}

type VerificationCache interface {
	Get(ctx context.Context, key string) (*domain.VerificationResult, bool, error)
	Put(ctx context.Context, key string, value domain.VerificationResult, ttl time.Duration) error
}
