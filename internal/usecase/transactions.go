package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bazaar/internal/domain"
	"bazaar/internal/proof"

	"github.com/google/uuid"
)

// TransactionService drives the purchase lifecycle:
//
//	payment_pending -> payment_confirmed -> delivered -> completed | disputed
//
// Every transition is a single conditional write against the expected
// previous status; wrong-actor attempts fail with ErrForbidden and
// wrong-state attempts with ErrInvalidState, leaving the record untouched.
type TransactionService struct {
	Listings     ListingRepository
	Proofs       ProofRepository
	Transactions TransactionRepository
	Payments     PaymentProvider
	Clock        func() time.Time
}

// Initiate creates a transaction staked against the listing's committed
// Merkle root. The root becomes the transaction's expected content hash.
func (s *TransactionService) Initiate(ctx context.Context, buyerID, listingID string) (*domain.Transaction, error) {
	if buyerID == "" {
		return nil, domain.ValidationError("buyer id is required")
	}
	if listingID == "" {
		return nil, domain.ValidationError("listing_id is required")
	}

	listing, err := s.Listings.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}
	merkle, err := s.Proofs.GetByType(ctx, listingID, domain.ProofMerkleRoot)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: listing %s has no merkle_root commitment", domain.ErrNoProofs, listingID)
		}
		return nil, err
	}

	tx := domain.Transaction{
		ID:            uuid.NewString(),
		ListingID:     listing.ID,
		BuyerID:       buyerID,
		SellerID:      listing.SellerID,
		AmountUSDC:    listing.PriceUSDC,
		Status:        domain.StatusPaymentPending,
		PaymentMethod: s.Payments.Method(),
		ContentHash:   merkle.Commitment,
		Verification:  domain.VerificationPending,
		InitiatedAt:   s.now(),
	}
	if err := s.Transactions.Create(ctx, tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// ConfirmPayment records the payment reference and advances
// payment_pending -> payment_confirmed.
func (s *TransactionService) ConfirmPayment(ctx context.Context, buyerID, txID, signature, txHash string) (*domain.Transaction, error) {
	tx, err := s.Transactions.Get(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.BuyerID != buyerID {
		return nil, fmt.Errorf("%w: only the buyer may confirm payment", domain.ErrForbidden)
	}
	if tx.Status != domain.StatusPaymentPending {
		return nil, domain.InvalidStateError(domain.StatusPaymentPending, tx.Status)
	}

	paymentRef, err := s.Payments.Confirm(ctx, *tx, signature, txHash)
	if err != nil {
		return nil, err
	}

	now := s.now()
	return s.Transactions.Transition(ctx, txID, domain.StatusPaymentPending, domain.TransactionUpdate{
		Status:        domain.StatusPaymentConfirmed,
		PaymentTxHash: &paymentRef,
		PaidAt:        &now,
	})
}

// Deliver hashes the delivered bytes as a single buffer and advances
// payment_confirmed -> delivered. The hash is written exactly once and never
// recomputed afterwards.
func (s *TransactionService) Deliver(ctx context.Context, sellerID, txID string, content []byte) (*domain.Transaction, error) {
	tx, err := s.Transactions.Get(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.SellerID != sellerID {
		return nil, fmt.Errorf("%w: only the seller may deliver", domain.ErrForbidden)
	}
	if tx.Status != domain.StatusPaymentConfirmed {
		return nil, domain.InvalidStateError(domain.StatusPaymentConfirmed, tx.Status)
	}

	deliveredHash := proof.HashContent(content)
	now := s.now()
	return s.Transactions.Transition(ctx, txID, domain.StatusPaymentConfirmed, domain.TransactionUpdate{
		Status:        domain.StatusDelivered,
		DeliveredHash: &deliveredHash,
		DeliveredAt:   &now,
	})
}

// Verify compares the delivery hash against the committed content hash,
// exactly once. A match completes the transaction; a mismatch is not an
// error but a successful transition to disputed.
func (s *TransactionService) Verify(ctx context.Context, buyerID, txID string) (*domain.Transaction, error) {
	tx, err := s.Transactions.Get(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.BuyerID != buyerID {
		return nil, fmt.Errorf("%w: only the buyer may verify delivery", domain.ErrForbidden)
	}
	if tx.Status != domain.StatusDelivered {
		return nil, domain.InvalidStateError(domain.StatusDelivered, tx.Status)
	}

	now := s.now()
	if tx.DeliveredHash != "" && tx.DeliveredHash == tx.ContentHash {
		verified := domain.VerificationVerified
		return s.Transactions.Transition(ctx, txID, domain.StatusDelivered, domain.TransactionUpdate{
			Status:       domain.StatusCompleted,
			Verification: &verified,
			VerifiedAt:   &now,
			CompletedAt:  &now,
		})
	}

	failed := domain.VerificationFailed
	message := fmt.Sprintf("content hash mismatch: committed %s, delivered %s", tx.ContentHash, tx.DeliveredHash)
	return s.Transactions.Transition(ctx, txID, domain.StatusDelivered, domain.TransactionUpdate{
		Status:       domain.StatusDisputed,
		Verification: &failed,
		ErrorMessage: &message,
		VerifiedAt:   &now,
	})
}

func (s *TransactionService) Get(ctx context.Context, txID string) (*domain.Transaction, error) {
	return s.Transactions.Get(ctx, txID)
}

func (s *TransactionService) List(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	return s.Transactions.List(ctx, filter)
}

func (s *TransactionService) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}
