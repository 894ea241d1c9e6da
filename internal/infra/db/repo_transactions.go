package db

import (
	"context"
	"errors"

	"bazaar/internal/domain"

	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx domain.Transaction) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := transactionToModel(tx)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *TransactionRepository) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model TransactionModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	tx := transactionFromModel(model)
	return &tx, nil
}

func (r *TransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, int64, error) {
	if r.db == nil {
		return nil, 0, errDBUnavailable
	}
	query := r.db.WithContext(ctx).Model(&TransactionModel{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.AgentID != "" {
		query = query.Where("buyer_id = ? OR seller_id = ?", filter.AgentID, filter.AgentID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []TransactionModel
	err := query.
		Order("initiated_at DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	txs := make([]domain.Transaction, 0, len(models))
	for _, m := range models {
		txs = append(txs, transactionFromModel(m))
	}
	return txs, total, nil
}

// Transition is the atomic compare-and-swap on the status column: the UPDATE
// matches on both id and the expected previous status, and an affected-row
// count of zero means the precondition no longer held. A read-then-write
// check here would lose updates under concurrency.
func (r *TransactionRepository) Transition(ctx context.Context, id string, expected domain.TransactionStatus, update domain.TransactionUpdate) (*domain.Transaction, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}

	values := map[string]any{"status": string(update.Status)}
	if update.PaymentTxHash != nil {
		values["payment_tx_hash"] = *update.PaymentTxHash
	}
	if update.DeliveredHash != nil {
		values["delivered_hash"] = *update.DeliveredHash
	}
	if update.Verification != nil {
		values["verification_status"] = string(*update.Verification)
	}
	if update.ErrorMessage != nil {
		values["error_message"] = *update.ErrorMessage
	}
	if update.PaidAt != nil {
		values["paid_at"] = update.PaidAt.UTC()
	}
	if update.DeliveredAt != nil {
		values["delivered_at"] = update.DeliveredAt.UTC()
	}
	if update.VerifiedAt != nil {
		values["verified_at"] = update.VerifiedAt.UTC()
	}
	if update.CompletedAt != nil {
		values["completed_at"] = update.CompletedAt.UTC()
	}

	res := r.db.WithContext(ctx).
		Model(&TransactionModel{}).
		Where("id = ? AND status = ?", id, string(expected)).
		Updates(values)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		current, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, domain.InvalidStateError(expected, current.Status)
	}
	return r.Get(ctx, id)
}

func transactionToModel(tx domain.Transaction) TransactionModel {
	return TransactionModel{
		ID:                 tx.ID,
		ListingID:          tx.ListingID,
		BuyerID:            tx.BuyerID,
		SellerID:           tx.SellerID,
		AmountUSDC:         tx.AmountUSDC,
		Status:             string(tx.Status),
		PaymentMethod:      tx.PaymentMethod,
		PaymentTxHash:      stringPtrOrNil(tx.PaymentTxHash),
		ContentHash:        tx.ContentHash,
		DeliveredHash:      stringPtrOrNil(tx.DeliveredHash),
		VerificationStatus: string(tx.Verification),
		ErrorMessage:       stringPtrOrNil(tx.ErrorMessage),
		InitiatedAt:        tx.InitiatedAt.UTC(),
		PaidAt:             timePtrUTC(tx.PaidAt),
		DeliveredAt:        timePtrUTC(tx.DeliveredAt),
		VerifiedAt:         timePtrUTC(tx.VerifiedAt),
		CompletedAt:        timePtrUTC(tx.CompletedAt),
	}
}

func transactionFromModel(m TransactionModel) domain.Transaction {
	return domain.Transaction{
		ID:            m.ID,
		ListingID:     m.ListingID,
		BuyerID:       m.BuyerID,
		SellerID:      m.SellerID,
		AmountUSDC:    m.AmountUSDC,
		Status:        domain.TransactionStatus(m.Status),
		PaymentMethod: m.PaymentMethod,
		PaymentTxHash: stringOrEmpty(m.PaymentTxHash),
		ContentHash:   m.ContentHash,
		DeliveredHash: stringOrEmpty(m.DeliveredHash),
		Verification:  domain.VerificationStatus(m.VerificationStatus),
		ErrorMessage:  stringOrEmpty(m.ErrorMessage),
		InitiatedAt:   m.InitiatedAt.UTC(),
		PaidAt:        timePtrUTC(m.PaidAt),
		DeliveredAt:   timePtrUTC(m.DeliveredAt),
		VerifiedAt:    timePtrUTC(m.VerifiedAt),
		CompletedAt:   timePtrUTC(m.CompletedAt),
	}
}

func stringPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
