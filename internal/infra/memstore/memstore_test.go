package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"bazaar/internal/domain"
)

func seedTransaction(t *testing.T, store *Store, id string, status domain.TransactionStatus) {
	t.Helper()
	err := store.Transactions().Create(context.Background(), domain.Transaction{
		ID:          id,
		ListingID:   "listing-1",
		BuyerID:     "buyer-1",
		SellerID:    "seller-1",
		Status:      status,
		InitiatedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
}

func TestTransitionRequiresExpectedStatus(t *testing.T) {
	store := New()
	seedTransaction(t, store, "tx-1", domain.StatusPaymentPending)
	ctx := context.Background()

	got, err := store.Transactions().Transition(ctx, "tx-1", domain.StatusPaymentPending, domain.TransactionUpdate{
		Status: domain.StatusPaymentConfirmed,
	})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if got.Status != domain.StatusPaymentConfirmed {
		t.Fatalf("status = %s", got.Status)
	}

	// The same precondition cannot be consumed twice.
	_, err = store.Transactions().Transition(ctx, "tx-1", domain.StatusPaymentPending, domain.TransactionUpdate{
		Status: domain.StatusPaymentConfirmed,
	})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("second transition: got %v, want ErrInvalidState", err)
	}
}

func TestTransitionUnknownTransaction(t *testing.T) {
	store := New()
	_, err := store.Transactions().Transition(context.Background(), "missing", domain.StatusPaymentPending, domain.TransactionUpdate{
		Status: domain.StatusPaymentConfirmed,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestTransitionAppliesNilableFields(t *testing.T) {
	store := New()
	seedTransaction(t, store, "tx-1", domain.StatusPaymentConfirmed)

	hash := "abc123"
	at := time.Date(2026, 5, 1, 12, 5, 0, 0, time.UTC)
	got, err := store.Transactions().Transition(context.Background(), "tx-1", domain.StatusPaymentConfirmed, domain.TransactionUpdate{
		Status:        domain.StatusDelivered,
		DeliveredHash: &hash,
		DeliveredAt:   &at,
	})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if got.DeliveredHash != hash {
		t.Errorf("delivered hash = %q", got.DeliveredHash)
	}
	if got.DeliveredAt == nil || !got.DeliveredAt.Equal(at) {
		t.Errorf("delivered at = %v", got.DeliveredAt)
	}
	if got.PaidAt != nil {
		t.Errorf("untouched field was written")
	}
}

func TestConcurrentTransitionsSingleWinner(t *testing.T) {
	store := New()
	seedTransaction(t, store, "tx-1", domain.StatusPaymentPending)

	const attempts = 16
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, err := store.Transactions().Transition(context.Background(), "tx-1", domain.StatusPaymentPending, domain.TransactionUpdate{
				Status: domain.StatusPaymentConfirmed,
			})
			results <- err
		}()
	}

	wins := 0
	for i := 0; i < attempts; i++ {
		if err := <-results; err == nil {
			wins++
		} else if !errors.Is(err, domain.ErrInvalidState) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("%d transitions won against one snapshot, want exactly 1", wins)
	}
}

func TestCreateWithProofsRejectsDuplicates(t *testing.T) {
	store := New()
	listing := domain.Listing{ID: "l-1", SellerID: "s-1"}
	ctx := context.Background()

	if err := store.Listings().CreateWithProofs(ctx, listing, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Listings().CreateWithProofs(ctx, listing, nil); err == nil {
		t.Fatalf("duplicate listing accepted")
	}
}

func TestProofLookup(t *testing.T) {
	store := New()
	listing := domain.Listing{ID: "l-1", SellerID: "s-1"}
	proofs := []domain.Proof{
		{ID: "p-1", ListingID: "l-1", Type: domain.ProofMerkleRoot, Commitment: "aaa"},
		{ID: "p-2", ListingID: "l-1", Type: domain.ProofBloomFilter, Commitment: "bbb"},
	}
	ctx := context.Background()
	if err := store.Listings().CreateWithProofs(ctx, listing, proofs); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.Proofs().GetByType(ctx, "l-1", domain.ProofBloomFilter)
	if err != nil {
		t.Fatalf("get by type: %v", err)
	}
	if got.ID != "p-2" {
		t.Errorf("got proof %s", got.ID)
	}

	if _, err := store.Proofs().GetByType(ctx, "l-1", domain.ProofSchema); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing type: got %v, want ErrNotFound", err)
	}

	all, err := store.Proofs().ListByListing(ctx, "l-1")
	if err != nil || len(all) != 2 {
		t.Errorf("list = %d proofs, err %v", len(all), err)
	}
}
