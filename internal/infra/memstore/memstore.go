// Package memstore backs the no-db deployment mode and unit tests with
// mutex-guarded in-memory repositories. Transition holds the lock across the
// expected-status check and the write, giving the same linearization the SQL
// compare-and-swap provides.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bazaar/internal/domain"
)

type Store struct {
	mu       sync.RWMutex
	listings map[string]domain.Listing
	proofs   map[string][]domain.Proof
	txs      map[string]domain.Transaction
}

func New() *Store {
	return &Store{
		listings: make(map[string]domain.Listing),
		proofs:   make(map[string][]domain.Proof),
		txs:      make(map[string]domain.Transaction),
	}
}

func (s *Store) Listings() *ListingRepo         { return &ListingRepo{s: s} }
func (s *Store) Proofs() *ProofRepo             { return &ProofRepo{s: s} }
func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{s: s} }

type ListingRepo struct {
	s *Store
}

func (r *ListingRepo) CreateWithProofs(ctx context.Context, listing domain.Listing, proofs []domain.Proof) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.listings[listing.ID]; exists {
		return fmt.Errorf("listing %s already exists", listing.ID)
	}
	r.s.listings[listing.ID] = listing
	kept := make([]domain.Proof, len(proofs))
	copy(kept, proofs)
	r.s.proofs[listing.ID] = kept
	return nil
}

func (r *ListingRepo) Get(ctx context.Context, id string) (*domain.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	listing, ok := r.s.listings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &listing, nil
}

type ProofRepo struct {
	s *Store
}

func (r *ProofRepo) ListByListing(ctx context.Context, listingID string) ([]domain.Proof, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	proofs := r.s.proofs[listingID]
	out := make([]domain.Proof, len(proofs))
	copy(out, proofs)
	return out, nil
}

func (r *ProofRepo) GetByType(ctx context.Context, listingID string, proofType domain.ProofType) (*domain.Proof, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.proofs[listingID] {
		if p.Type == proofType {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

type TransactionRepo struct {
	s *Store
}

func (r *TransactionRepo) Create(ctx context.Context, tx domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.txs[tx.ID]; exists {
		return fmt.Errorf("transaction %s already exists", tx.ID)
	}
	r.s.txs[tx.ID] = tx
	return nil
}

func (r *TransactionRepo) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	tx, ok := r.s.txs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &tx, nil
}

func (r *TransactionRepo) List(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]domain.Transaction, 0, len(r.s.txs))
	for _, tx := range r.s.txs {
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		if filter.AgentID != "" && tx.BuyerID != filter.AgentID && tx.SellerID != filter.AgentID {
			continue
		}
		matched = append(matched, tx)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].InitiatedAt.Equal(matched[j].InitiatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].InitiatedAt.After(matched[j].InitiatedAt)
	})

	total := int64(len(matched))
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = len(matched) + 1
	}
	start := (filter.Page - 1) * filter.PageSize
	if start >= len(matched) {
		return []domain.Transaction{}, total, nil
	}
	end := start + filter.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	page := make([]domain.Transaction, end-start)
	copy(page, matched[start:end])
	return page, total, nil
}

func (r *TransactionRepo) Transition(ctx context.Context, id string, expected domain.TransactionStatus, update domain.TransactionUpdate) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx, ok := r.s.txs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if tx.Status != expected {
		return nil, domain.InvalidStateError(expected, tx.Status)
	}

	tx.Status = update.Status
	if update.PaymentTxHash != nil {
		tx.PaymentTxHash = *update.PaymentTxHash
	}
	if update.DeliveredHash != nil {
		tx.DeliveredHash = *update.DeliveredHash
	}
	if update.Verification != nil {
		tx.Verification = *update.Verification
	}
	if update.ErrorMessage != nil {
		tx.ErrorMessage = *update.ErrorMessage
	}
	if update.PaidAt != nil {
		tx.PaidAt = update.PaidAt
	}
	if update.DeliveredAt != nil {
		tx.DeliveredAt = update.DeliveredAt
	}
	if update.VerifiedAt != nil {
		tx.VerifiedAt = update.VerifiedAt
	}
	if update.CompletedAt != nil {
		tx.CompletedAt = update.CompletedAt
	}
	r.s.txs[id] = tx
	return &tx, nil
}
