package domain

import "time"

type TransactionStatus string

const (
	StatusInitiated        TransactionStatus = "initiated"
	StatusPaymentPending   TransactionStatus = "payment_pending"
	StatusPaymentConfirmed TransactionStatus = "payment_confirmed"
	StatusDelivered        TransactionStatus = "delivered"
	StatusCompleted        TransactionStatus = "completed"
	StatusDisputed         TransactionStatus = "disputed"
	StatusRefunded         TransactionStatus = "refunded"
	StatusFailed           TransactionStatus = "failed"
)

// Terminal reports whether the status is absorbing: no transition may leave it.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusDisputed, StatusRefunded, StatusFailed:
		return true
	}
	return false
}

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationFailed   VerificationStatus = "failed"
	VerificationSkipped  VerificationStatus = "skipped"
)

// Transaction is one purchase of a listing. ContentHash is copied from the
// listing's Merkle root commitment at initiation; DeliveredHash is written
// exactly once, at delivery, and never recomputed. The two are compared
// exactly once to derive VerificationStatus.
type Transaction struct {
	ID        string
	ListingID string
	BuyerID   string
	SellerID  string

	AmountUSDC    float64
	Status        TransactionStatus
	PaymentMethod string
	PaymentTxHash string

	ContentHash   string
	DeliveredHash string

	Verification VerificationStatus
	ErrorMessage string

	InitiatedAt time.Time
	PaidAt      *time.Time
	DeliveredAt *time.Time
	VerifiedAt  *time.Time
	CompletedAt *time.Time
}

// TransactionUpdate is the payload of one atomic status transition. Nil
// fields are left untouched; Status is always written, conditional on the
// row still holding the expected previous status.
type TransactionUpdate struct {
	Status        TransactionStatus
	PaymentTxHash *string
	DeliveredHash *string
	Verification  *VerificationStatus
	ErrorMessage  *string
	PaidAt        *time.Time
	DeliveredAt   *time.Time
	VerifiedAt    *time.Time
	CompletedAt   *time.Time
}

// TransactionFilter narrows List queries. Page is 1-based.
type TransactionFilter struct {
	Status   TransactionStatus
	AgentID  string
	Page     int
	PageSize int
}
