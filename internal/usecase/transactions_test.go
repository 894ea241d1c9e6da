package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"bazaar/internal/domain"
	"bazaar/internal/infra/memstore"
	"bazaar/internal/infra/payment"
	"bazaar/internal/usecase"
)

func fixedClock() time.Time {
	return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
}

func newMarketplace(t *testing.T) (*usecase.GenerateListingProofs, *usecase.TransactionService) {
	t.Helper()
	store := memstore.New()
	generate := &usecase.GenerateListingProofs{
		Listings: store.Listings(),
		Clock:    fixedClock,
	}
	txSvc := &usecase.TransactionService{
		Listings:     store.Listings(),
		Proofs:       store.Proofs(),
		Transactions: store.Transactions(),
		Payments:     &payment.SimulatedProvider{},
		Clock:        fixedClock,
	}
	return generate, txSvc
}

func publishListing(t *testing.T, generate *usecase.GenerateListingProofs, content []byte) domain.Listing {
	t.Helper()
	resp, err := generate.Execute(context.Background(), usecase.GenerateListingProofsRequest{
		SellerID:     "seller-1",
		Title:        "cached api scrape",
		Content:      content,
		Category:     "datasets",
		QualityScore: 0.9,
		PriceUSDC:    5,
	})
	if err != nil {
		t.Fatalf("publish listing: %v", err)
	}
	return resp.Listing
}

func TestPurchaseHappyPath(t *testing.T) {
	generate, txSvc := newMarketplace(t)
	content := []byte(`{"rows": [1, 2, 3], "source": "api"}`)
	listing := publishListing(t, generate, content)
	ctx := context.Background()

	tx, err := txSvc.Initiate(ctx, "buyer-1", listing.ID)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if tx.Status != domain.StatusPaymentPending {
		t.Fatalf("status after initiate = %s", tx.Status)
	}
	if tx.ContentHash == "" {
		t.Fatalf("initiate did not copy the committed content hash")
	}
	if tx.AmountUSDC != 5 {
		t.Errorf("amount = %v, want listing price", tx.AmountUSDC)
	}

	tx, err = txSvc.ConfirmPayment(ctx, "buyer-1", tx.ID, "sig", "")
	if err != nil {
		t.Fatalf("confirm payment: %v", err)
	}
	if tx.Status != domain.StatusPaymentConfirmed {
		t.Fatalf("status after confirm = %s", tx.Status)
	}
	if !strings.HasPrefix(tx.PaymentTxHash, "sim_") {
		t.Errorf("simulated payment hash = %q", tx.PaymentTxHash)
	}
	if tx.PaidAt == nil {
		t.Errorf("paid_at not set")
	}

	tx, err = txSvc.Deliver(ctx, "seller-1", tx.ID, content)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if tx.Status != domain.StatusDelivered {
		t.Fatalf("status after deliver = %s", tx.Status)
	}
	if tx.DeliveredHash == "" || tx.DeliveredAt == nil {
		t.Fatalf("delivery hash or timestamp missing")
	}

	tx, err = txSvc.Verify(ctx, "buyer-1", tx.ID)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if tx.Status != domain.StatusCompleted {
		t.Fatalf("status after verify = %s, want completed", tx.Status)
	}
	if tx.Verification != domain.VerificationVerified {
		t.Errorf("verification = %s, want verified", tx.Verification)
	}
	if tx.VerifiedAt == nil || tx.CompletedAt == nil {
		t.Errorf("terminal timestamps missing")
	}
}

func TestTamperedDeliveryDisputes(t *testing.T) {
	generate, txSvc := newMarketplace(t)
	content := []byte(`{"rows": [1, 2, 3]}`)
	listing := publishListing(t, generate, content)
	ctx := context.Background()

	tx, err := txSvc.Initiate(ctx, "buyer-1", listing.ID)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if _, err := txSvc.ConfirmPayment(ctx, "buyer-1", tx.ID, "sig", ""); err != nil {
		t.Fatalf("confirm payment: %v", err)
	}
	if _, err := txSvc.Deliver(ctx, "seller-1", tx.ID, []byte(`{"rows": [0, 0, 0]}`)); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	got, err := txSvc.Verify(ctx, "buyer-1", tx.ID)
	if err != nil {
		t.Fatalf("verify returned error on mismatch: %v", err)
	}
	if got.Status != domain.StatusDisputed {
		t.Fatalf("status = %s, want disputed", got.Status)
	}
	if got.Verification != domain.VerificationFailed {
		t.Errorf("verification = %s, want failed", got.Verification)
	}
	if !strings.Contains(got.ErrorMessage, "content hash mismatch") {
		t.Errorf("error message = %q", got.ErrorMessage)
	}
	if got.CompletedAt != nil {
		t.Errorf("disputed transaction must not carry completed_at")
	}
}

func TestDeliverBeforeConfirmRejected(t *testing.T) {
	generate, txSvc := newMarketplace(t)
	listing := publishListing(t, generate, []byte("content"))
	ctx := context.Background()

	tx, err := txSvc.Initiate(ctx, "buyer-1", listing.ID)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	_, err = txSvc.Deliver(ctx, "seller-1", tx.ID, []byte("content"))
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if !strings.Contains(err.Error(), string(domain.StatusPaymentConfirmed)) {
		t.Errorf("error should name the expected status: %v", err)
	}

	got, err := txSvc.Get(ctx, tx.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusPaymentPending {
		t.Errorf("failed transition mutated status to %s", got.Status)
	}
}

func TestWrongActorForbidden(t *testing.T) {
	generate, txSvc := newMarketplace(t)
	content := []byte("content")
	listing := publishListing(t, generate, content)
	ctx := context.Background()

	tx, err := txSvc.Initiate(ctx, "buyer-1", listing.ID)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	if _, err := txSvc.ConfirmPayment(ctx, "someone-else", tx.ID, "sig", ""); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("confirm by non-buyer: got %v, want ErrForbidden", err)
	}
	if _, err := txSvc.ConfirmPayment(ctx, "buyer-1", tx.ID, "sig", ""); err != nil {
		t.Fatalf("confirm payment: %v", err)
	}
	if _, err := txSvc.Deliver(ctx, "buyer-1", tx.ID, content); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("deliver by non-seller: got %v, want ErrForbidden", err)
	}
	if _, err := txSvc.Deliver(ctx, "seller-1", tx.ID, content); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if _, err := txSvc.Verify(ctx, "seller-1", tx.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("verify by non-buyer: got %v, want ErrForbidden", err)
	}
}

func TestInitiateMissingListing(t *testing.T) {
	_, txSvc := newMarketplace(t)
	_, err := txSvc.Initiate(context.Background(), "buyer-1", "no-such-listing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExternalPaymentRequiresHash(t *testing.T) {
	store := memstore.New()
	generate := &usecase.GenerateListingProofs{Listings: store.Listings(), Clock: fixedClock}
	txSvc := &usecase.TransactionService{
		Listings:     store.Listings(),
		Proofs:       store.Proofs(),
		Transactions: store.Transactions(),
		Payments:     &payment.ExternalProvider{},
		Clock:        fixedClock,
	}
	listing := publishListing(t, generate, []byte("content"))
	ctx := context.Background()

	tx, err := txSvc.Initiate(ctx, "buyer-1", listing.ID)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if tx.PaymentMethod != payment.ModeExternal {
		t.Errorf("payment method = %s", tx.PaymentMethod)
	}
	if _, err := txSvc.ConfirmPayment(ctx, "buyer-1", tx.ID, "sig", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing hash, got %v", err)
	}
	confirmed, err := txSvc.ConfirmPayment(ctx, "buyer-1", tx.ID, "sig", "0xabc123")
	if err != nil {
		t.Fatalf("confirm with hash: %v", err)
	}
	if confirmed.PaymentTxHash != "0xabc123" {
		t.Errorf("payment hash = %q", confirmed.PaymentTxHash)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	generate, txSvc := newMarketplace(t)
	listing := publishListing(t, generate, []byte("content"))
	ctx := context.Background()

	first, err := txSvc.Initiate(ctx, "buyer-1", listing.ID)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if _, err := txSvc.Initiate(ctx, "buyer-2", listing.ID); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if _, err := txSvc.ConfirmPayment(ctx, "buyer-1", first.ID, "sig", ""); err != nil {
		t.Fatalf("confirm payment: %v", err)
	}

	txs, total, err := txSvc.List(ctx, domain.TransactionFilter{Status: domain.StatusPaymentPending})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(txs) != 1 {
		t.Fatalf("status filter: total=%d len=%d, want 1/1", total, len(txs))
	}
	if txs[0].BuyerID != "buyer-2" {
		t.Errorf("filtered to wrong transaction: %s", txs[0].BuyerID)
	}

	_, total, err = txSvc.List(ctx, domain.TransactionFilter{AgentID: "buyer-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 {
		t.Errorf("agent filter total = %d, want 1", total)
	}

	_, total, err = txSvc.List(ctx, domain.TransactionFilter{AgentID: "seller-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 {
		t.Errorf("seller sees %d transactions, want 2", total)
	}
}
